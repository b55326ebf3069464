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

package filehandle

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Table tracks open handles so leaks can be reported at shutdown.
type Table struct {
	log  *zap.Logger
	open map[*Handle]struct{}
	mu   sync.Mutex
}

// NewTable returns an empty table. A nil logger discards output.
func NewTable(log *zap.Logger) *Table {
	if log == nil {
		log = zap.NewNop()
	}
	return &Table{log: log, open: make(map[*Handle]struct{})}
}

// Track registers h; closing h untracks it.
func (t *Table) Track(h *Handle) {
	t.mu.Lock()
	t.open[h] = struct{}{}
	t.mu.Unlock()
	h.table = t
}

// Untrack forgets h.
func (t *Table) Untrack(h *Handle) {
	t.mu.Lock()
	delete(t.open, h)
	t.mu.Unlock()
}

// Count returns the number of open handles.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// Names lists the open handles, sorted.
func (t *Table) Names() []string {
	t.mu.Lock()
	names := make([]string, 0, len(t.open))
	for h := range t.open {
		names = append(names, h.name)
	}
	t.mu.Unlock()
	sort.Strings(names)
	return names
}

// ReportLeaks logs every handle still open and returns the count.
func (t *Table) ReportLeaks() int {
	names := t.Names()
	for _, n := range names {
		t.log.Warn("file handle leaked", zap.String("name", n))
	}
	return len(names)
}

func (t *Table) reportDoubleClose(h *Handle) {
	t.log.Error("file handle closed twice", zap.String("name", h.name), zap.Stringer("kind", h.kind))
}
