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

package chunked

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func treeEntry(terminator uint16) []byte {
	b := []byte("txt\x00scripts\x00a\x00")
	b = binary.LittleEndian.AppendUint32(b, 0)
	b = binary.LittleEndian.AppendUint16(b, 2) // preload bytes
	b = binary.LittleEndian.AppendUint16(b, 0)
	b = binary.LittleEndian.AppendUint32(b, 0)
	b = binary.LittleEndian.AppendUint32(b, 5)
	b = binary.LittleEndian.AppendUint16(b, terminator)
	b = append(b, "hi"...)
	return append(b, 0, 0, 0)
}

func TestParseTree(t *testing.T) {
	t.Parallel()

	idx, err := parseTree(treeEntry(vpkTerminator))
	require.NoError(t, err)
	assert.Equal(t, index{"scripts/a.txt": 7}, idx)

	_, err = parseTree(treeEntry(0x1234))
	require.ErrorIs(t, err, ErrInvalidDirectory)

	full := treeEntry(vpkTerminator)
	_, err = parseTree(full[:len(full)-4])
	require.ErrorIs(t, err, ErrInvalidDirectory)
}

func TestEntryName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "scripts/a.txt", entryName("scripts", "a", "txt"))
	assert.Equal(t, "readme", entryName(" ", "readme", " "))
	assert.Equal(t, "cfg/.rc", entryName("CFG", " ", "rc"))
}
