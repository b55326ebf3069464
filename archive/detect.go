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

package archive

import (
	"fmt"
	"path"
	"strings"
)

// FindRoot locates marker (a file name such as "dlc.yaml") in the archive and
// returns the directory holding it, with a trailing slash, or "" when it sits
// at the top level. The shallowest match wins.
func FindRoot(arc Archive, marker string) (string, error) {
	files, err := arc.List()
	if err != nil {
		return "", fmt.Errorf("list archive files: %w", err)
	}

	best, depth := "", -1
	for _, file := range files {
		name := strings.TrimPrefix(strings.ReplaceAll(file.Name, "\\", "/"), "/")
		if !strings.EqualFold(path.Base(name), marker) {
			continue
		}
		d := strings.Count(name, "/")
		if depth == -1 || d < depth {
			best, depth = name, d
		}
	}
	if depth == -1 {
		return "", FileNotFoundError{Archive: arc.Name(), InternalPath: marker}
	}

	dir := path.Dir(best)
	if dir == "." {
		return "", nil
	}
	return dir + "/", nil
}
