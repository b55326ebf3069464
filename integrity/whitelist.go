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

package integrity

import (
	"path"
	"strings"
)

// Whitelist is the externally supplied trust policy.
type Whitelist interface {
	// WantHash reports whether the file's content must be fingerprinted and verified.
	WantHash(name string) bool
	// AllowFromDisk reports whether the file may load from local disk rather
	// than a trusted archive.
	AllowFromDisk(name string) bool
}

// AllowAll permits every file from disk and verifies nothing.
type AllowAll struct{}

// WantHash implements Whitelist.
func (AllowAll) WantHash(string) bool { return false }

// AllowFromDisk implements Whitelist.
func (AllowAll) AllowFromDisk(string) bool { return true }

// StaticWhitelist matches names against fixed pattern lists. Patterns use
// path.Match syntax, compare case-insensitively, and a trailing "/" matches a
// whole subtree.
type StaticWhitelist struct {
	hashed  []string
	trusted []string
}

// NewStaticWhitelist returns a policy that fingerprints names matching hashed
// and forces names matching trusted to load from trusted archives.
func NewStaticWhitelist(hashed, trusted []string) *StaticWhitelist {
	return &StaticWhitelist{hashed: lowerAll(hashed), trusted: lowerAll(trusted)}
}

// WantHash implements Whitelist.
func (w *StaticWhitelist) WantHash(name string) bool {
	return matchAny(w.hashed, name)
}

// AllowFromDisk implements Whitelist.
func (w *StaticWhitelist) AllowFromDisk(name string) bool {
	return !matchAny(w.trusted, name)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, p := range in {
		out[i] = strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
	}
	return out
}

func matchAny(patterns []string, name string) bool {
	name = normalizeName(name)
	for _, p := range patterns {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(name, p) {
				return true
			}
			continue
		}
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}
