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

// Package packtest builds pack file and level container fixtures for tests.
package packtest

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"
)

// PreloadSectionName mirrors the reserved preload entry name.
const PreloadSectionName = "__preload_section.pre"

type entry struct {
	name    string
	data    []byte
	preload []byte
	method  uint16
}

// Builder assembles a zip archive with stored entries and an optional
// preload section as its first entry.
type Builder struct {
	entries        []entry
	comment        []byte
	preload        bool
	preloadVersion uint32
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{preloadVersion: 3}
}

// Add appends a stored entry.
func (b *Builder) Add(name string, data []byte) *Builder {
	b.entries = append(b.entries, entry{name: name, data: data})
	return b
}

// AddPreloaded appends a stored entry whose preload record is record, either
// raw leading bytes or a codec blob.
func (b *Builder) AddPreloaded(name string, data, record []byte) *Builder {
	b.preload = true
	b.entries = append(b.entries, entry{name: name, data: data, preload: record})
	return b
}

// AddMethod appends an entry flagged with compression method m. The data is
// stored as given.
func (b *Builder) AddMethod(name string, data []byte, m uint16) *Builder {
	b.entries = append(b.entries, entry{name: name, data: data, method: m})
	return b
}

// WithPreload forces a preload section even when no entry has a record.
func (b *Builder) WithPreload() *Builder {
	b.preload = true
	return b
}

// PreloadVersion overrides the preload header version.
func (b *Builder) PreloadVersion(v uint32) *Builder {
	b.preloadVersion = v
	return b
}

// Comment sets the end record comment.
func (b *Builder) Comment(c []byte) *Builder {
	b.comment = c
	return b
}

func (b *Builder) preloadSection() []byte {
	total := len(b.entries) + 1
	var records [][]byte
	remap := make([]uint16, total)
	remap[0] = 0xFFFF
	for i, e := range b.entries {
		if e.preload == nil {
			remap[i+1] = 0xFFFF
			continue
		}
		remap[i+1] = uint16(len(records)) //nolint:gosec // Fixture sizes are small
		records = append(records, e.preload)
	}

	out := le32(nil, b.preloadVersion)
	out = le32(out, uint32(total))        //nolint:gosec // Fixture sizes are small
	out = le32(out, uint32(len(records))) //nolint:gosec // Fixture sizes are small
	out = le32(out, 0)
	var offset uint32
	for _, r := range records {
		out = le32(out, uint32(len(r))) //nolint:gosec // Fixture sizes are small
		out = le32(out, offset)
		offset += uint32(len(r)) //nolint:gosec // Fixture sizes are small
	}
	for _, idx := range remap {
		out = binary.LittleEndian.AppendUint16(out, idx)
	}
	for _, r := range records {
		out = append(out, r...)
	}
	return out
}

// Bytes returns the archive image.
func (b *Builder) Bytes() []byte {
	all := b.entries
	if b.preload {
		all = append([]entry{{name: PreloadSectionName, data: b.preloadSection()}}, b.entries...)
	}

	var out, central []byte
	for _, e := range all {
		offset := uint32(len(out)) //nolint:gosec // Fixture sizes are small
		size := uint32(len(e.data)) //nolint:gosec // Fixture sizes are small
		sum := crc32.ChecksumIEEE(e.data)

		out = le32(out, 0x04034b50)
		out = le16(out, 10)
		out = le16(out, 0)
		out = le16(out, e.method)
		out = le32(out, 0) // time, date
		out = le32(out, sum)
		out = le32(out, size)
		out = le32(out, size)
		out = le16(out, uint16(len(e.name))) //nolint:gosec // Fixture sizes are small
		out = le16(out, 0)
		out = append(out, e.name...)
		out = append(out, e.data...)

		central = le32(central, 0x02014b50)
		central = le16(central, 20)
		central = le16(central, 10)
		central = le16(central, 0)
		central = le16(central, e.method)
		central = le32(central, 0)
		central = le32(central, sum)
		central = le32(central, size)
		central = le32(central, size)
		central = le16(central, uint16(len(e.name))) //nolint:gosec // Fixture sizes are small
		central = le16(central, 0)
		central = le16(central, 0)
		central = le16(central, 0)
		central = le16(central, 0)
		central = le32(central, 0)
		central = le32(central, offset)
		central = append(central, e.name...)
	}

	dirOffset := uint32(len(out)) //nolint:gosec // Fixture sizes are small
	out = append(out, central...)
	out = le32(out, 0x06054b50)
	out = le16(out, 0)
	out = le16(out, 0)
	out = le16(out, uint16(len(all))) //nolint:gosec // Fixture sizes are small
	out = le16(out, uint16(len(all))) //nolint:gosec // Fixture sizes are small
	out = le32(out, uint32(len(central))) //nolint:gosec // Fixture sizes are small
	out = le32(out, dirOffset)
	out = le16(out, uint16(len(b.comment))) //nolint:gosec // Fixture sizes are small
	return append(out, b.comment...)
}

// WriteFile writes the archive to dir/name and returns the path.
func (b *Builder) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	return WriteFile(t, filepath.Join(dir, name), b.Bytes())
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Level wraps a pack file image into a level container with it as the
// pakfile lump, placed directly after the header.
func Level(pack []byte) []byte {
	const (
		lumps      = 64
		pakfile    = 40
		headerSize = 4 + 4 + lumps*16 + 4
	)
	out := append([]byte(nil), "VBSP"...)
	out = le32(out, 21)
	for i := 0; i < lumps; i++ {
		if i == pakfile {
			out = le32(out, headerSize)
			out = le32(out, uint32(len(pack))) //nolint:gosec // Fixture sizes are small
		} else {
			out = le32(out, 0)
			out = le32(out, 0)
		}
		out = le32(out, 0)
		out = le32(out, 0)
	}
	out = le32(out, 1)
	return append(out, pack...)
}

func le16(b []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(b, v) }
func le32(b []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(b, v) }
