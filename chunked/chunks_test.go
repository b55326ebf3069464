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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-gamefs/chunked"
	"github.com/ZaparooProject/go-gamefs/integrity"
)

// dirArchive serves chunk hashing only.
type dirArchive struct {
	base     string
	fraction int64
}

func (d dirArchive) Name() string                              { return d.base }
func (d dirArchive) Find(string) (*chunked.File, error)        { return nil, chunked.ErrNotFound }
func (d dirArchive) List() []string                            { return nil }
func (d dirArchive) ChunkHashes() ([]chunked.ChunkHash, error) { return chunked.HashChunks(d.base, d.fraction) }
func (d dirArchive) VerifyChunk(h chunked.ChunkHash) error     { return chunked.VerifyChunkFile(d.base, h) }
func (d dirArchive) Close() error                              { return nil }

func writeChunks(t *testing.T) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), "pak01")
	require.NoError(t, os.WriteFile(chunked.ChunkPath(base, 0), bytes.Repeat([]byte{'a'}, 2500), 0o600))
	require.NoError(t, os.WriteFile(chunked.ChunkPath(base, 1), bytes.Repeat([]byte{'b'}, 1000), 0o600))
	require.NoError(t, os.WriteFile(base+"_dir.vpk", []byte("directory"), 0o600))
	return base
}

func TestHashChunks(t *testing.T) {
	t.Parallel()

	base := writeChunks(t)
	hashes, err := chunked.HashChunks(base, 1000)
	require.NoError(t, err)
	require.Len(t, hashes, 4)

	assert.Equal(t, chunked.ChunkHash{ChunkIndex: 0, Offset: 2000, Length: 500,
		Sum: integrity.FingerprintBytes(bytes.Repeat([]byte{'a'}, 500))}, hashes[2])
	assert.Equal(t, 1, hashes[3].ChunkIndex)
	assert.Equal(t, int64(1000), hashes[3].Length)

	for _, h := range hashes {
		require.NoError(t, chunked.VerifyChunkFile(base, h), h.String())
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	t.Parallel()

	base := writeChunks(t)
	a := dirArchive{base: base, fraction: 1000}
	m, err := chunked.BuildManifest(a, 1000)
	require.NoError(t, err)

	f, err := os.OpenFile(chunked.ChunkPath(base, 0), os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("X"), 1500)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = a.VerifyChunk(m.Chunks[1])
	require.ErrorIs(t, err, chunked.ErrChunkMismatch)
	require.ErrorIs(t, err, integrity.ErrHashMismatch)

	failed, err := chunked.Verify(a, m.Chunks)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, int64(1000), failed[0].Offset)

	past := m.Chunks[3]
	past.Offset = 5000
	require.ErrorIs(t, a.VerifyChunk(past), chunked.ErrChunkMismatch)

	missing := m.Chunks[0]
	missing.ChunkIndex = 9
	_, err = chunked.Verify(a, []chunked.ChunkHash{missing})
	require.Error(t, err)
	require.NotErrorIs(t, err, chunked.ErrChunkMismatch)
}

func TestManifestRoundTrip(t *testing.T) {
	t.Parallel()

	base := writeChunks(t)
	m, err := chunked.BuildManifest(dirArchive{base: base, fraction: 1000}, 1000)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pak01.manifest")
	require.NoError(t, chunked.SaveManifest(path, m))
	got, err := chunked.LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = chunked.ReadManifest(bytes.NewReader([]byte{0xFF}))
	require.Error(t, err)
}

func TestBaseName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "csgo/pak01", chunked.BaseName("csgo/pak01_dir.vpk"))
	assert.Equal(t, "csgo/PAK01", chunked.BaseName("csgo/PAK01_DIR.VPK"))
	assert.Equal(t, "csgo/pak01", chunked.BaseName("csgo/pak01"))
	assert.True(t, chunked.IsDirectoryFile("csgo/Pak01_Dir.vpk"))
	assert.False(t, chunked.IsDirectoryFile("csgo/pak01_000.vpk"))
}
