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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ChunkPath returns the path of chunk index of the archive at base.
func ChunkPath(base string, index int) string {
	return fmt.Sprintf("%s_%03d.vpk", base, index)
}

// chunkFiles lists the chunk files of base in ascending index order.
func chunkFiles(base string) ([]int, error) {
	matches, err := filepath.Glob(base + "_[0-9][0-9][0-9].vpk")
	if err != nil {
		return nil, fmt.Errorf("list chunks of %s: %w", base, err)
	}
	prefix := filepath.Base(base) + "_"
	indices := make([]int, 0, len(matches))
	for _, m := range matches {
		digits := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".vpk")
		i, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices, nil
}

// HashChunks hashes each chunk file of base in fractions of fraction bytes.
func HashChunks(base string, fraction int64) ([]ChunkHash, error) {
	if fraction <= 0 {
		fraction = DefaultFractionSize
	}
	indices, err := chunkFiles(base)
	if err != nil {
		return nil, err
	}

	var out []ChunkHash
	for _, idx := range indices {
		hashes, err := hashChunkFile(ChunkPath(base, idx), idx, fraction)
		if err != nil {
			return nil, err
		}
		out = append(out, hashes...)
	}
	return out, nil
}

func hashChunkFile(path string, index int, fraction int64) ([]ChunkHash, error) {
	f, err := os.Open(path) //nolint:gosec // Chunk paths derive from the mounted archive
	if err != nil {
		return nil, fmt.Errorf("open chunk: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat chunk: %w", err)
	}

	var out []ChunkHash
	for off := int64(0); off < info.Size(); off += fraction {
		length := min(fraction, info.Size()-off)
		sum, err := hashFraction(f, off, length)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", path, err)
		}
		out = append(out, ChunkHash{ChunkIndex: index, Offset: off, Length: length, Sum: sum})
	}
	return out, nil
}

// VerifyChunkFile rehashes the fraction described by h in the chunk files of
// base. A differing sum returns an error wrapping ErrChunkMismatch.
func VerifyChunkFile(base string, h ChunkHash) error {
	path := ChunkPath(base, h.ChunkIndex)
	f, err := os.Open(path) //nolint:gosec // Chunk paths derive from the mounted archive
	if err != nil {
		return fmt.Errorf("open chunk: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat chunk: %w", err)
	}
	if h.Offset < 0 || h.Length < 0 || h.Offset+h.Length > info.Size() {
		return fmt.Errorf("%w: %s past end of %d byte chunk", ErrChunkMismatch, h, info.Size())
	}

	sum, err := hashFraction(f, h.Offset, h.Length)
	if err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}
	if sum != h.Sum {
		return fmt.Errorf("%w: %s: want %s, got %s", ErrChunkMismatch, h, h.Sum, sum)
	}
	return nil
}
