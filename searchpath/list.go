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

// Package searchpath holds the priority-ordered list of mounted directories
// and archives and the filtered walk over it.
//
// The list order is the lookup priority. Mutations are serialized by one
// mutex; iteration works on a snapshot so lookups never hold the lock while
// doing I/O.
package searchpath

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-gamefs/nametable"
)

// Flags classify an entry.
type Flags uint8

// Entry flags.
const (
	// FlagDevFallback marks the writable developer mirror of a read-only medium.
	FlagDevFallback Flags = 1 << iota
	// FlagLocalized marks a language-specific path.
	FlagLocalized
	// FlagMapArchive marks the pakfile lump of the current level.
	FlagMapArchive
)

type insertKind uint8

const (
	insertTail insertKind = iota
	insertHead
	insertAtIndex
)

// InsertMode places a new entry in the list.
type InsertMode struct {
	kind  insertKind
	index int
}

// Insert modes.
var (
	Head = InsertMode{kind: insertHead}
	Tail = InsertMode{kind: insertTail}
)

// TailAtIndex inserts before position i, clamped to the list bounds.
func TailAtIndex(i int) InsertMode {
	return InsertMode{kind: insertAtIndex, index: i}
}

func (m InsertMode) String() string {
	switch m.kind {
	case insertHead:
		return "head"
	case insertAtIndex:
		return fmt.Sprintf("tail@%d", m.index)
	default:
		return "tail"
	}
}

// ParseInsertMode accepts "head", "tail" and "tail@N".
func ParseInsertMode(s string) (InsertMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tail":
		return Tail, nil
	case "head":
		return Head, nil
	}
	var i int
	if _, err := fmt.Sscanf(strings.ToLower(s), "tail@%d", &i); err == nil && i >= 0 {
		return TailAtIndex(i), nil
	}
	return Tail, fmt.Errorf("unknown insert mode %q", s)
}

// Entry is one mounted search path.
type Entry struct {
	// Path is the normalized directory (with trailing slash) or archive path.
	Path string
	// PathID is the interned path ID.
	PathID nametable.Symbol
	// StoreID groups entries that reference the same physical location.
	StoreID int
	// Archive is the mounted archive, nil for a directory.
	Archive *Ref
	Flags   Flags

	seq   uint64
	group uint64 // Shared by entries added by one AddGroup
}

// IsPack reports whether the entry mounts a pack file.
func (e *Entry) IsPack() bool { return e.Archive != nil && e.Archive.Pack() != nil }

// IsChunked reports whether the entry mounts a chunked archive.
func (e *Entry) IsChunked() bool { return e.Archive != nil && e.Archive.Chunked() != nil }

// IsDirectory reports whether the entry is a plain directory.
func (e *Entry) IsDirectory() bool { return e.Archive == nil }

// Has reports whether all of f is set.
func (e *Entry) Has(f Flags) bool { return e.Flags&f == f }

func (e *Entry) archiveKey() string {
	if e.Archive == nil {
		return ""
	}
	return e.Archive.Key()
}

// NormalizePath cleans a directory path and adds a trailing slash.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	return normalizePath(p) + "/"
}

func normalizePath(p string) string {
	p = filepath.ToSlash(filepath.Clean(strings.ReplaceAll(p, "\\", "/")))
	return strings.TrimSuffix(p, "/")
}

// Option configures a List.
type Option func(*List)

// WithLogger returns an option to specify the logger.
func WithLogger(l *zap.Logger) Option {
	return func(list *List) {
		if l != nil {
			list.log = l
		}
	}
}

// WithNameTable returns an option to intern paths and path IDs in t.
func WithNameTable(t *nametable.Table) Option {
	return func(list *List) {
		if t != nil {
			list.names = t
		}
	}
}

// List is the ordered search path list.
type List struct {
	log   *zap.Logger
	names *nametable.Table

	mu          sync.Mutex
	entries     []*Entry
	requestOnly map[nametable.Symbol]bool
	nextStore   int
	nextSeq     uint64
}

// NewList returns an empty list.
func NewList(opts ...Option) *List {
	l := &List{
		log:         zap.NewNop(),
		names:       nametable.Default,
		requestOnly: make(map[nametable.Symbol]bool),
		nextStore:   1,
		nextSeq:     1,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Names returns the table used for paths and path IDs.
func (l *List) Names() *nametable.Table { return l.names }

// Intern interns a path ID.
func (l *List) Intern(pathID string) nametable.Symbol { return l.names.Intern(pathID) }

func pathKey(p string) string { return strings.ToLower(p) }

func (l *List) sameEntry(a *Entry, path string, pathID nametable.Symbol, archive string) bool {
	return a.PathID == pathID && pathKey(a.Path) == pathKey(path) && a.archiveKey() == archive
}

// Add inserts e and reports whether the list changed. The list takes over
// the caller's reference on e.Archive: when an equivalent entry (same path,
// path ID and archive) already exists the reference is released and nothing
// is added. The exception is Head for an equivalent entry that is not at the
// head, which moves it there.
//
// A new entry shares the StoreID of any existing entry with the same path.
func (l *List) Add(e Entry, mode InsertMode) bool {
	archive := e.archiveKey()

	l.mu.Lock()
	defer l.mu.Unlock()

	storeID := 0
	for i, cur := range l.entries {
		if l.sameEntry(cur, e.Path, e.PathID, archive) {
			if e.Archive != nil {
				_ = e.Archive.Release()
			}
			if mode.kind != insertHead || i == 0 {
				return false
			}
			copy(l.entries[1:i+1], l.entries[:i])
			l.entries[0] = cur
			return true
		}
		if storeID == 0 && pathKey(cur.Path) == pathKey(e.Path) {
			storeID = cur.StoreID
		}
	}
	if storeID == 0 {
		storeID = l.nextStore
		l.nextStore++
	}

	ne := e
	ne.StoreID = storeID
	ne.seq = l.nextSeq
	l.nextSeq++
	if ne.group == 0 {
		ne.group = ne.seq
	}

	idx := len(l.entries)
	switch mode.kind {
	case insertHead:
		idx = 0
	case insertAtIndex:
		idx = min(max(mode.index, 0), len(l.entries))
	}
	l.entries = append(l.entries, nil)
	copy(l.entries[idx+1:], l.entries[idx:])
	l.entries[idx] = &ne

	l.log.Debug("search path added",
		zap.String("path", ne.Path),
		zap.String("path_id", l.names.Text(ne.PathID)),
		zap.Stringer("mode", mode),
		zap.Int("store_id", storeID))
	return true
}

// AddGroup adds entries as one contiguous run at the position named by mode,
// keeping their order, and returns how many were added.
func (l *List) AddGroup(entries []Entry, mode InsertMode) int {
	l.mu.Lock()
	group := l.nextSeq
	l.nextSeq++
	l.mu.Unlock()

	added := 0
	switch mode.kind {
	case insertHead:
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			e.group = group
			if l.Add(e, mode) {
				added++
			}
		}
	case insertAtIndex:
		for _, e := range entries {
			e.group = group
			if l.Add(e, TailAtIndex(mode.index+added)) {
				added++
			}
		}
	default:
		for _, e := range entries {
			e.group = group
			if l.Add(e, mode) {
				added++
			}
		}
	}
	return added
}

// Contains reports whether an entry with path and path ID exists, regardless
// of its archive.
func (l *List) Contains(path, pathID string) bool {
	sym := l.names.Intern(pathID)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.PathID == sym && pathKey(e.Path) == pathKey(path) {
			return true
		}
	}
	return false
}

// Remove deletes every entry with path and path ID and reports whether any existed.
func (l *List) Remove(path, pathID string) bool {
	sym := l.names.Intern(pathID)
	return l.RemoveIf(func(e *Entry) bool {
		return e.PathID == sym && pathKey(e.Path) == pathKey(path)
	}) > 0
}

// RemovePathID deletes every entry under pathID.
func (l *List) RemovePathID(pathID string) int {
	sym := l.names.Intern(pathID)
	return l.RemoveIf(func(e *Entry) bool { return e.PathID == sym })
}

// RemoveIf deletes every entry for which fn returns true, releasing their
// archive references, and returns the count.
func (l *List) RemoveIf(fn func(*Entry) bool) int {
	l.mu.Lock()
	var removed []*Entry
	kept := l.entries[:0]
	for _, e := range l.entries {
		if fn(e) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(l.entries); i++ {
		l.entries[i] = nil
	}
	l.entries = kept
	l.mu.Unlock()

	l.release(removed)
	return len(removed)
}

// Clear removes every entry, releasing archives in reverse creation order.
func (l *List) Clear() {
	l.mu.Lock()
	removed := l.entries
	l.entries = nil
	l.mu.Unlock()
	l.release(removed)
}

func (l *List) release(removed []*Entry) {
	sort.Slice(removed, func(i, j int) bool { return removed[i].seq > removed[j].seq })
	for _, e := range removed {
		if e.Archive == nil {
			continue
		}
		if err := e.Archive.Release(); err != nil {
			l.log.Warn("release archive", zap.String("archive", e.Archive.Name()), zap.Error(err))
		}
	}
}

// Len returns the number of entries.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a snapshot of the list in priority order.
func (l *List) Entries() []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Index returns the position of the first entry under pathID matching path,
// or -1.
func (l *List) Index(path, pathID string) int {
	sym := l.names.Intern(pathID)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.PathID == sym && pathKey(e.Path) == pathKey(path) {
			return i
		}
	}
	return -1
}

// GroupIndex returns the position of the first entry added together with the
// entry for path and path ID, or -1 when none is mounted. Inserting at that
// position places a new entry ahead of the whole group.
func (l *List) GroupIndex(path, pathID string) int {
	sym := l.names.Intern(pathID)
	l.mu.Lock()
	defer l.mu.Unlock()
	var group uint64
	for _, e := range l.entries {
		if e.PathID == sym && pathKey(e.Path) == pathKey(path) {
			group = e.group
			break
		}
	}
	if group == 0 {
		return -1
	}
	for i, e := range l.entries {
		if e.group == group {
			return i
		}
	}
	return -1
}

// MarkRequestOnly sets whether pathID is searched only when requested by name.
func (l *List) MarkRequestOnly(pathID string, requestOnly bool) {
	sym := l.names.Intern(pathID)
	l.mu.Lock()
	defer l.mu.Unlock()
	if requestOnly {
		l.requestOnly[sym] = true
	} else {
		delete(l.requestOnly, sym)
	}
}

// IsRequestOnly reports whether pathID is request-only.
func (l *List) IsRequestOnly(pathID string) bool {
	sym := l.names.Intern(pathID)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.requestOnly[sym]
}

func (l *List) requestOnlySnapshot() map[nametable.Symbol]bool {
	out := make(map[nametable.Symbol]bool, len(l.requestOnly))
	for k, v := range l.requestOnly {
		out[k] = v
	}
	return out
}
