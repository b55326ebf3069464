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

package chunked_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-gamefs/chunked"
	"github.com/ZaparooProject/go-gamefs/internal/packtest"
)

func writeVPK(t *testing.T) string {
	t.Helper()
	return packtest.WriteChunked(t, filepath.Join(t.TempDir(), "pak01"), map[string]string{
		"scripts/items.txt":   "item data",
		"Materials/Brick.vmt": "brick",
		"readme":              "top level",
	})
}

func TestOpenVPK(t *testing.T) {
	t.Parallel()

	base := writeVPK(t)
	v, err := chunked.OpenVPK(base + "_dir.vpk")
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })

	assert.Equal(t, base, v.Name())
	assert.Equal(t, []string{"materials/brick.vmt", "readme", "scripts/items.txt"}, v.List())

	tests := []struct {
		name string
		want string
	}{
		{"scripts/items.txt", "item data"},
		{"MATERIALS\\brick.VMT", "brick"},
		{"/readme", "top level"},
	}
	for _, tt := range tests {
		f, err := v.Find(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, int64(len(tt.want)), f.Size(), tt.name)

		got, err := io.ReadAll(f)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, string(got), tt.name)
		require.NoError(t, f.Close(), tt.name)
	}
}

func TestVPKFindMissing(t *testing.T) {
	t.Parallel()

	v, err := chunked.OpenVPK(writeVPK(t))
	require.NoError(t, err)

	for _, name := range []string{"scripts/missing.txt", "scripts", "materials/", ""} {
		_, err := v.Find(name)
		require.ErrorIs(t, err, chunked.ErrNotFound, "%q", name)
	}

	require.NoError(t, v.Close())
	_, err = v.Find("readme")
	require.ErrorIs(t, err, chunked.ErrClosed)
}

func TestVPKChecksum(t *testing.T) {
	t.Parallel()

	base := writeVPK(t)
	chunk := chunked.ChunkPath(base, 0)
	data, err := os.ReadFile(chunk)
	require.NoError(t, err)
	for i := range data {
		data[i] ^= 0xFF
	}
	require.NoError(t, os.WriteFile(chunk, data, 0o600))

	v, err := chunked.OpenVPK(base)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })

	f, err := v.Find("readme")
	require.NoError(t, err)
	_, err = io.ReadAll(f)
	require.NoError(t, err)
	require.Error(t, f.Close())
}

func TestVPKChunkHashes(t *testing.T) {
	t.Parallel()

	v, err := chunked.OpenVPK(writeVPK(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })

	hashes, err := v.ChunkHashes()
	require.NoError(t, err)
	require.Len(t, hashes, 1)

	failed, err := chunked.Verify(v, hashes)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestOpenVPKInvalid(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "pak01")
	packtest.WriteFile(t, base+"_dir.vpk", []byte("not a directory file"))
	_, err := chunked.OpenVPK(base)
	require.Error(t, err)

	_, err = chunked.OpenVPK(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}
