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

package packtest

import (
	"hash/crc32"
	"path"
	"sort"
	"strings"
	"testing"
)

// WriteChunked writes a version 2 chunked archive at base: base_dir.vpk
// holding the directory tree and base_000.vpk holding every file's data.
// It returns base.
func WriteChunked(t testing.TB, base string, files map[string]string) string {
	t.Helper()

	// ext -> dir -> base -> data, with a single space for empty components.
	tree := make(map[string]map[string]map[string]string)
	for name, data := range files {
		dir, file := path.Split(strings.ToLower(name))
		dir = strings.TrimSuffix(dir, "/")
		ext := path.Ext(file)
		file = strings.TrimSuffix(file, ext)
		ext = strings.TrimPrefix(ext, ".")
		dir, file, ext = orSpace(dir), orSpace(file), orSpace(ext)
		if tree[ext] == nil {
			tree[ext] = make(map[string]map[string]string)
		}
		if tree[ext][dir] == nil {
			tree[ext][dir] = make(map[string]string)
		}
		tree[ext][dir][file] = data
	}

	var dirTree, chunk []byte
	for _, ext := range sortedKeys(tree) {
		dirTree = cstr(dirTree, ext)
		for _, dir := range sortedKeys(tree[ext]) {
			dirTree = cstr(dirTree, dir)
			for _, file := range sortedKeys(tree[ext][dir]) {
				data := tree[ext][dir][file]
				dirTree = cstr(dirTree, file)
				// CRC, preload size, chunk index, offset, length, terminator
				dirTree = le32(dirTree, crc32.ChecksumIEEE([]byte(data)))
				dirTree = le16(dirTree, 0)
				dirTree = le16(dirTree, 0)
				dirTree = le32(dirTree, uint32(len(chunk))) //nolint:gosec // Fixture sizes are small
				dirTree = le32(dirTree, uint32(len(data)))  //nolint:gosec // Fixture sizes are small
				dirTree = le16(dirTree, 0xffff)
				chunk = append(chunk, data...)
			}
			dirTree = cstr(dirTree, "")
		}
		dirTree = cstr(dirTree, "")
	}
	dirTree = cstr(dirTree, "")

	hdr := le32(nil, 0x55aa1234)
	hdr = le32(hdr, 2)
	hdr = le32(hdr, uint32(len(dirTree))) //nolint:gosec // Fixture sizes are small
	for i := 0; i < 4; i++ {
		hdr = le32(hdr, 0)
	}
	WriteFile(t, base+"_dir.vpk", append(hdr, dirTree...))
	WriteFile(t, base+"_000.vpk", chunk)
	return base
}

func orSpace(s string) string {
	if s == "" {
		return " "
	}
	return s
}

func cstr(b []byte, s string) []byte {
	return append(append(b, s...), 0)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
