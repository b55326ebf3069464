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
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ExcludeList is the set of files forced off the primary medium and onto the
// developer fallback. Entries are full paths compared case-insensitively.
type ExcludeList struct {
	paths map[string]struct{}
}

// NewExcludeList builds a list from full paths.
func NewExcludeList(paths ...string) *ExcludeList {
	l := &ExcludeList{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		l.paths[excludeKey(p)] = struct{}{}
	}
	return l
}

// ParseExcludeList reads a whitespace separated manifest of full paths.
func ParseExcludeList(r io.Reader) (*ExcludeList, error) {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	var paths []string
	for s.Scan() {
		paths = append(paths, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read exclude list: %w", err)
	}
	return NewExcludeList(paths...), nil
}

// Len returns the number of excluded paths.
func (l *ExcludeList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.paths)
}

// Match reports whether fullPath is excluded.
func (l *ExcludeList) Match(fullPath string) bool {
	if l == nil || len(l.paths) == 0 {
		return false
	}
	_, ok := l.paths[excludeKey(fullPath)]
	return ok
}

func excludeKey(p string) string {
	return strings.ToLower(filepath.ToSlash(filepath.Clean(strings.ReplaceAll(p, "\\", "/"))))
}

// IsLocalizedPath reports whether a search path is a language-specific
// directory for language, such as "game_french/". English is never localized.
func IsLocalizedPath(path, language string) bool {
	if language == "" || strings.EqualFold(language, "english") {
		return false
	}
	path = strings.TrimRight(path, `/\`)
	if len(path) <= len(language) {
		return false
	}
	return strings.EqualFold(path[len(path)-len(language):], language)
}
