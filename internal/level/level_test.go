// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-gamefs.
//
// go-gamefs is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-gamefs is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-gamefs.  If not, see <https://www.gnu.org/licenses/>.

package level_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-gamefs/internal/level"
	"github.com/ZaparooProject/go-gamefs/internal/packtest"
)

func TestReadHeader(t *testing.T) {
	t.Parallel()

	image := packtest.Level([]byte("zip bytes"))
	h, err := level.ReadHeader(bytes.NewReader(image), int64(len(image)))
	require.NoError(t, err)

	assert.Equal(t, int32(21), h.Version)
	assert.Equal(t, int32(1), h.MapRevision)
	lump := h.Lump(level.LumpPakfile)
	assert.Equal(t, int64(level.HeaderSize), lump.Offset)
	assert.Equal(t, int64(9), lump.Length)
	assert.Equal(t, level.Lump{}, h.Lump(-1))
	assert.Equal(t, level.Lump{}, h.Lump(level.LumpCount))
}

func TestReadHeaderErrors(t *testing.T) {
	t.Parallel()

	image := packtest.Level([]byte("zip bytes"))

	badIdent := append([]byte(nil), image...)
	copy(badIdent, "IBSP")

	badLump := append([]byte(nil), image...)
	// Pakfile lump length field.
	binary.LittleEndian.PutUint32(badLump[8+level.LumpPakfile*16+4:], 1<<20)

	tests := []struct {
		name  string
		image []byte
		want  error
	}{
		{"short", image[:100], level.ErrNotLevel},
		{"ident", badIdent, level.ErrNotLevel},
		{"lump range", badLump, level.ErrBadLump},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := level.ReadHeader(bytes.NewReader(tt.image), int64(len(tt.image)))
			require.ErrorIs(t, err, tt.want)
		})
	}
}
