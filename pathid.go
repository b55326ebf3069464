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
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ParsePathID splits an embedded "//id/rest" prefix from name. The embedded
// ID overrides pathID; "//*/rest" selects every path ID. all reports that the
// resulting lookup is not scoped to one path ID.
func ParsePathID(name, pathID string) (rel, id string, all bool) {
	if embedded, rest, ok := splitEmbeddedPathID(name); ok {
		if embedded == "*" {
			return rest, "", true
		}
		return rest, embedded, false
	}
	if pathID == "*" {
		pathID = ""
	}
	return name, pathID, pathID == ""
}

func splitEmbeddedPathID(name string) (id, rest string, ok bool) {
	if !strings.HasPrefix(name, "//") {
		return "", "", false
	}
	body := name[2:]
	i := strings.IndexAny(body, `/\`)
	if i <= 0 {
		return "", "", false
	}
	return body[:i], body[i+1:], true
}

// splitPathID is ParsePathID with a warning when name embeds an ID that
// contradicts the explicit one.
func (fs *FileSystem) splitPathID(name, pathID string) (string, string) {
	if embedded, _, ok := splitEmbeddedPathID(name); ok && pathID != "" && pathID != "*" &&
		embedded != "*" && !strings.EqualFold(embedded, pathID) {
		fs.log.Warn("conflicting path ID",
			zap.String("name", name),
			zap.String("path_id", pathID),
			zap.String("embedded", embedded))
	}
	rel, id, _ := ParsePathID(name, pathID)
	return rel, id
}

// SymlinkRule substitutes the To tree for names under From.
type SymlinkRule struct {
	From string `mapstructure:"from" yaml:"from"`
	To   string `mapstructure:"to"   yaml:"to"`
}

type symlinks []SymlinkRule

func newSymlinks(rules []SymlinkRule) symlinks {
	out := make(symlinks, 0, len(rules))
	for _, r := range rules {
		from := strings.ToLower(slashes(r.From))
		if from == "" {
			continue
		}
		out = append(out, SymlinkRule{From: from, To: slashes(r.To)})
	}
	return out
}

// rewrite applies the first rule whose From is a prefix of name.
func (s symlinks) rewrite(name string) string {
	if len(s) == 0 {
		return name
	}
	norm := slashes(name)
	lower := strings.ToLower(norm)
	for _, r := range s {
		if strings.HasPrefix(lower, r.From) {
			return r.To + norm[len(r.From):]
		}
	}
	return name
}

func slashes(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// cleanRelative normalizes a relative lookup name. Names that climb out of
// the search path are rejected with "".
func cleanRelative(name string) string {
	name = strings.TrimLeft(slashes(name), "/")
	if name == "" {
		return ""
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return ""
	}
	return clean
}

func isAbsolute(name string) bool {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return true
	}
	return len(name) >= 3 && name[1] == ':' && (name[2] == '/' || name[2] == '\\')
}

// fitsPlatform reports whether every component of rel is within the
// platform's filename limit.
func (fs *FileSystem) fitsPlatform(rel string) bool {
	limit := fs.platform.MaxFilenameLength()
	if limit <= 0 {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if len(part) > limit {
			return false
		}
	}
	return true
}

func cleanPath(p string) string {
	return filepath.ToSlash(filepath.Clean(slashes(p)))
}
