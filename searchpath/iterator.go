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

package searchpath

import (
	"path"

	"github.com/ZaparooProject/go-gamefs/nametable"
)

// Filter restricts which kinds of entries a walk visits.
type Filter int

// Walk filters.
const (
	FilterNone Filter = iota
	// FilterNoPack skips archives.
	FilterNoPack
	// FilterPackOnly visits archives only.
	FilterPackOnly
	// FilterCullLocalized visits non-localized archives only.
	FilterCullLocalized
	// FilterCullLocalizedAny skips localized entries of any kind.
	FilterCullLocalizedAny
)

// Query selects the entries of a walk.
type Query struct {
	// Name is the relative file name being resolved. Exclusion checks need it.
	Name string

	// PathID limits the walk to one path ID. Empty walks every path ID that
	// is not request-only.
	PathID string

	Filter Filter

	// DVDDev enables developer fallback substitution driven by Exclude.
	DVDDev  bool
	Exclude *ExcludeList
}

// Iterator is a filtered walk over a snapshot of the list.
type Iterator struct {
	entries     []*Entry
	requestOnly map[nametable.Symbol]bool
	visited     map[int]struct{}
	query       Query
	pathID      nametable.Symbol
	next        int
	anyPathID   bool
	excluded    bool
}

// Iterate starts a walk. The list may change during the walk without
// affecting it.
func (l *List) Iterate(q Query) *Iterator {
	l.mu.Lock()
	entries := make([]*Entry, len(l.entries))
	copy(entries, l.entries)
	requestOnly := l.requestOnlySnapshot()
	l.mu.Unlock()

	it := &Iterator{
		entries:     entries,
		requestOnly: requestOnly,
		visited:     make(map[int]struct{}),
		query:       q,
		anyPathID:   q.PathID == "",
	}
	if !it.anyPathID {
		it.pathID = l.names.Intern(q.PathID)
	}
	return it
}

// Collect returns every entry the walk visits.
func (l *List) Collect(q Query) []*Entry {
	it := l.Iterate(q)
	var out []*Entry
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		out = append(out, e)
	}
	return out
}

// Excluded reports whether the walk matched the exclusion list, after which
// only developer fallback entries are visited.
func (it *Iterator) Excluded() bool { return it.excluded }

func (it *Iterator) skipPathID(e *Entry) bool {
	if it.anyPathID {
		return it.requestOnly[e.PathID]
	}
	return e.PathID != it.pathID
}

// markVisit records e's store and reports whether it was already visited.
func (it *Iterator) markVisit(e *Entry) bool {
	if _, ok := it.visited[e.StoreID]; ok {
		return true
	}
	it.visited[e.StoreID] = struct{}{}
	return false
}

// Next returns the next eligible entry.
func (it *Iterator) Next() (*Entry, bool) {
	if it.query.DVDDev && it.query.Name != "" {
		return it.nextDVDDev()
	}
	for it.next < len(it.entries) {
		e := it.entries[it.next]
		it.next++

		archive := e.Archive != nil
		f := it.query.Filter
		if f == FilterNoPack && archive {
			continue
		}
		if (f == FilterPackOnly || f == FilterCullLocalized) && !archive {
			continue
		}
		if (f == FilterCullLocalized || f == FilterCullLocalizedAny) && e.Has(FlagLocalized) {
			continue
		}
		if it.skipPathID(e) || it.markVisit(e) {
			continue
		}
		return e, true
	}
	return nil, false
}

func (it *Iterator) nextDVDDev() (*Entry, bool) {
	for it.next < len(it.entries) {
		e := it.entries[it.next]
		it.next++

		archive := e.Archive != nil
		f := it.query.Filter
		if f == FilterNoPack && archive {
			continue
		}
		if (f == FilterCullLocalized || f == FilterCullLocalizedAny) && e.Has(FlagLocalized) {
			continue
		}

		fallback := e.Has(FlagDevFallback)
		// The fallback is ignored until an exclusion matches; after that
		// nothing but the fallback can serve the file.
		if fallback != it.excluded {
			continue
		}
		if it.skipPathID(e) || it.markVisit(e) {
			continue
		}

		if !fallback && !e.Has(FlagMapArchive) {
			if it.query.Exclude.Match(it.composeName(e)) {
				it.excluded = true
				continue
			}
			if !archive && f == FilterPackOnly {
				continue
			}
		}
		return e, true
	}
	return nil, false
}

func (it *Iterator) composeName(e *Entry) string {
	dir := e.Path
	if e.Archive != nil {
		dir = path.Dir(normalizePath(e.Path)) + "/"
	}
	return dir + it.query.Name
}
