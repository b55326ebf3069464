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

package gamefs

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/ZaparooProject/go-gamefs/searchpath"
)

type globMatch struct {
	name     string
	archived bool
}

// Glob lists the files and directories matching pattern across every
// eligible search path. Matching is case-insensitive on the last element;
// the directory part names one directory. Names that differ only by case are
// reported once, with the archive spelling preferred over a loose file.
func (fs *FileSystem) Glob(pattern, pathID string) ([]string, error) {
	if fs.shutdown.Load() {
		return nil, ErrShutdown
	}
	pattern = fs.symlinks.rewrite(pattern)
	rel, id := fs.splitPathID(pattern, pathID)
	rel = strings.TrimLeft(slashes(rel), "/")

	dir, base := path.Split(rel)
	dir = strings.TrimSuffix(dir, "/")
	base = strings.ToLower(base)
	if _, err := path.Match(base, ""); err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	seen := make(map[string]*globMatch)
	add := func(name string, archived bool) {
		key := strings.ToLower(name)
		if m, ok := seen[key]; ok {
			if archived && !m.archived {
				m.name, m.archived = name, true
			}
			return
		}
		seen[key] = &globMatch{name: name, archived: archived}
	}

	it := fs.paths.Iterate(searchpath.Query{PathID: id})
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		switch {
		case e.IsPack():
			for _, pe := range e.Archive.Pack().Entries() {
				if matchArchived(pe.Name, dir, base) {
					add(pe.Name, true)
				}
			}
		case e.IsChunked():
			for _, name := range e.Archive.Chunked().List() {
				if matchArchived(name, dir, base) {
					add(name, true)
				}
			}
		default:
			entries, err := os.ReadDir(e.Path + dir)
			if err != nil {
				continue
			}
			for _, de := range entries {
				if ok, _ := path.Match(base, strings.ToLower(de.Name())); ok {
					add(path.Join(dir, de.Name()), false)
				}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for _, m := range seen {
		out = append(out, m.name)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out, nil
}

// matchArchived reports whether the archive entry name sits in dir and its
// base name matches the lowercased pattern.
func matchArchived(name, dir, pattern string) bool {
	d, b := path.Split(name)
	if !strings.EqualFold(strings.TrimSuffix(d, "/"), dir) {
		return false
	}
	ok, _ := path.Match(pattern, strings.ToLower(b))
	return ok
}
