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

// Package nametable interns path and path-ID strings into small comparable symbols.
//
// Symbols compare case-insensitively: interning "Maps" and "maps" yields the same
// Symbol, and Text returns the spelling that was interned first. Tables are
// append-only and safe for concurrent use.
package nametable

import (
	"strings"
	"sync"
)

// Symbol is an interned string. The zero Symbol is the empty string.
type Symbol uint32

// Empty is the symbol for the empty string.
const Empty Symbol = 0

// Table interns strings. The zero value is not usable; use New.
type Table struct {
	index map[string]Symbol // folded text -> symbol
	texts []string          // symbol -> original spelling
	mu    sync.RWMutex
}

// Default is the process-wide table used when no table is supplied.
var Default = New()

// New returns an empty table.
func New() *Table {
	return &Table{
		index: map[string]Symbol{"": Empty},
		texts: []string{""},
	}
}

// Intern returns the symbol for text, adding it if it is not yet present.
func (t *Table) Intern(text string) Symbol {
	key := fold(text)

	t.mu.RLock()
	sym, ok := t.index[key]
	t.mu.RUnlock()
	if ok {
		return sym
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Another writer may have added it between the two locks.
	if sym, ok := t.index[key]; ok {
		return sym
	}

	//nolint:gosec // Symbol count is bounded far below 2^32 in practice
	sym = Symbol(len(t.texts))
	t.texts = append(t.texts, text)
	t.index[key] = sym
	return sym
}

// Lookup returns the symbol for text without interning it.
func (t *Table) Lookup(text string) (Symbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sym, ok := t.index[fold(text)]
	return sym, ok
}

// Text returns the stored spelling of sym, or "" for an unknown symbol.
func (t *Table) Text(sym Symbol) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(sym) >= len(t.texts) {
		return ""
	}
	return t.texts[sym]
}

// Len returns the number of interned strings, including the empty string.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.texts)
}

// Equal reports whether a and b name the same string. Symbols from the same
// table are already canonical, so this is plain equality.
func Equal(a, b Symbol) bool {
	return a == b
}

func fold(text string) string {
	return strings.ToLower(text)
}
