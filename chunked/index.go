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
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/ZaparooProject/go-gamefs/internal/binary"
)

// Directory file layout (version 2), all little-endian:
//
//	header  Magic, Version, TreeSize, then four section sizes (u32 each)
//	tree    for each extension, each directory, each base name (NUL-terminated,
//	        each level ended by an empty string): CRC u32, PreloadBytes u16,
//	        ArchiveIndex u16, Offset u32, Length u32, Terminator u16, preload
const (
	vpkMagic      = 0x55aa1234
	vpkVersion    = 2
	vpkHeaderSize = 28
	vpkTerminator = 0xffff
)

// ErrInvalidDirectory indicates a malformed directory file.
var ErrInvalidDirectory = errors.New("invalid chunked archive directory")

// index maps lowercased entry names to their lengths.
type index map[string]int64

// names returns the indexed names in sorted order.
func (idx index) names() []string {
	out := make([]string, 0, len(idx))
	for n := range idx {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// readIndex reads the header and directory tree of the directory file at p.
func readIndex(p string) (index, error) {
	f, err := os.Open(p) //nolint:gosec // Directory files are mounted by path
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	hdr := make([]byte, vpkHeaderSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrInvalidDirectory, err)
	}
	d := binary.NewDecoder(hdr)
	magic, version, treeSize := d.Uint32(), d.Uint32(), d.Uint32()
	if magic != vpkMagic {
		return nil, fmt.Errorf("%w: magic %#x", ErrInvalidDirectory, magic)
	}
	if version != vpkVersion {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidDirectory, version)
	}
	if int64(treeSize) > info.Size()-vpkHeaderSize {
		return nil, fmt.Errorf("%w: tree of %d bytes in %d byte file", ErrInvalidDirectory, treeSize, info.Size())
	}

	tree := make([]byte, treeSize)
	if _, err := io.ReadFull(f, tree); err != nil {
		return nil, fmt.Errorf("%w: tree: %w", ErrInvalidDirectory, err)
	}
	return parseTree(tree)
}

func parseTree(tree []byte) (index, error) {
	d := binary.NewDecoder(tree)
	idx := make(index)
	for ext := d.CString(); ext != ""; ext = d.CString() {
		for dir := d.CString(); dir != ""; dir = d.CString() {
			for base := d.CString(); base != ""; base = d.CString() {
				d.Skip(4) // CRC
				preload := d.Uint16()
				d.Skip(2 + 4) // archive index, offset
				length := d.Uint32()
				term := d.Uint16()
				d.Skip(int(preload))
				if err := d.Err(); err != nil {
					return nil, fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
				}
				if term != vpkTerminator {
					return nil, fmt.Errorf("%w: entry %s/%s.%s is corrupt", ErrInvalidDirectory, dir, base, ext)
				}
				idx[entryName(dir, base, ext)] = int64(preload) + int64(length)
			}
		}
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}
	return idx, nil
}

// entryName joins tree components; a single space stands for an empty one.
func entryName(dir, base, ext string) string {
	var name string
	if base != " " {
		name = base
	}
	if ext != " " {
		name += "." + ext
	}
	if dir != " " {
		name = path.Join(dir, name)
	}
	return strings.ToLower(name)
}
