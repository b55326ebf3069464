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

package packfile

import (
	"path"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NormalizeName converts a pack-relative name to its canonical form: forward
// slashes, no "." or ".." components, no leading slash. It returns false when
// the name is empty or climbs above the archive root.
func NormalizeName(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || !staysInside(name) {
		return "", false
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+name), "/")
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

// staysInside reports whether resolving ".." components never leaves the root.
func staysInside(name string) bool {
	depth := 0
	for _, part := range strings.Split(name, "/") {
		switch part {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return false
			}
		default:
			depth++
		}
	}
	return true
}

// hashName hashes a normalized name case-insensitively.
func hashName(normalized string) uint64 {
	return xxhash.Sum64String(strings.ToLower(normalized))
}
