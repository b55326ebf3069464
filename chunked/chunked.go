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

// Package chunked mounts chunked content archives: a directory file plus
// numbered chunk files holding the data.
//
// Directory parsing and entry reads are delegated to the vpk2 reader. This
// package adds seekable file handles over it and per-chunk content hashes
// that can be verified against a stored manifest.
package chunked

import (
	"errors"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-gamefs/integrity"
)

// DefaultFractionSize is the span of one chunk hash (1MiB).
const DefaultFractionSize = 1 << 20

var (
	// ErrNotFound indicates the archive has no entry with the requested name.
	ErrNotFound = errors.New("not found in chunked archive")

	// ErrChunkMismatch indicates a chunk fraction failed verification.
	ErrChunkMismatch = fmt.Errorf("chunk %w", integrity.ErrHashMismatch)

	// ErrClosed indicates use of a closed file or archive.
	ErrClosed = errors.New("chunked archive closed")
)

// Archive is a mounted chunked content archive.
type Archive interface {
	// Name returns the archive base path.
	Name() string
	// Find opens the named entry.
	Find(name string) (*File, error)
	// List returns every entry name, lowercased and sorted.
	List() []string
	// ChunkHashes hashes every fraction of every chunk file.
	ChunkHashes() ([]ChunkHash, error)
	// VerifyChunk rehashes one fraction and compares it with h.Sum.
	VerifyChunk(h ChunkHash) error
	Close() error
}

// ChunkHash identifies one fraction of a chunk file.
type ChunkHash struct {
	ChunkIndex int           `cbor:"1,keyasint"`
	Offset     int64         `cbor:"2,keyasint"`
	Length     int64         `cbor:"3,keyasint"`
	Sum        integrity.Sum `cbor:"4,keyasint"`
}

func (h ChunkHash) String() string {
	return fmt.Sprintf("chunk %03d [%d,+%d)", h.ChunkIndex, h.Offset, h.Length)
}

// Verify checks every expected fraction and returns those that failed. The
// error is non-nil only when a chunk could not be read.
func Verify(a Archive, expected []ChunkHash) ([]ChunkHash, error) {
	var failed []ChunkHash
	for _, h := range expected {
		err := a.VerifyChunk(h)
		switch {
		case err == nil:
		case errors.Is(err, ErrChunkMismatch):
			failed = append(failed, h)
		default:
			return failed, err
		}
	}
	return failed, nil
}

// hashFraction reads and hashes [offset, offset+length) of r.
func hashFraction(r io.ReaderAt, offset, length int64) (integrity.Sum, error) {
	return integrity.Fingerprint(io.NewSectionReader(r, offset, length))
}
