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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Kind classifies a container by its file name.
type Kind int

// Container kinds.
const (
	KindNone Kind = iota
	// KindPack is an uncompressed pack file (.zip).
	KindPack
	// KindLevel is a level container with an embedded pack file (.bsp).
	KindLevel
	// KindChunked is a chunked content archive (.vpk).
	KindChunked
	// KindPackage is a foreign distribution archive (.7z, .rar).
	KindPackage
)

func (k Kind) String() string {
	switch k {
	case KindPack:
		return "pack"
	case KindLevel:
		return "level"
	case KindChunked:
		return "chunked"
	case KindPackage:
		return "package"
	default:
		return "none"
	}
}

// KindOf returns the container kind implied by name's extension.
func KindOf(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip":
		return KindPack
	case ".bsp":
		return KindLevel
	case ".vpk":
		return KindChunked
	case ".7z", ".rar":
		return KindPackage
	default:
		return KindNone
	}
}

// Path represents a parsed archive path with optional internal path.
type Path struct {
	ArchivePath  string // Path to the archive file
	InternalPath string // Path inside the archive, empty for the archive itself
	Kind         Kind
}

// ParsePath parses a path that may reference a file inside a container, such
// as "/game/maps/de_dust.bsp/materials/x.vmt". The first prefix that names an
// existing regular file with a container extension wins.
//
// Returns:
//   - (*Path, nil) if the path contains an archive reference
//   - (nil, nil) if the path is not an archive reference
//   - (nil, error) if there was an error checking the path
//
//nolint:nilnil // nil,nil is documented API behavior
func ParsePath(path string) (*Path, error) {
	normalized := filepath.ToSlash(strings.ReplaceAll(path, "\\", "/"))

	for i := 0; i < len(normalized); i++ {
		if normalized[i] != '/' || i == 0 {
			continue
		}
		prefix := normalized[:i]
		kind := KindOf(prefix)
		if kind == KindNone {
			continue
		}
		ok, err := isRegular(prefix)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		return &Path{
			ArchivePath:  prefix,
			InternalPath: strings.TrimLeft(normalized[i:], "/"),
			Kind:         kind,
		}, nil
	}

	kind := KindOf(normalized)
	if kind == KindNone {
		return nil, nil
	}
	ok, err := isRegular(normalized)
	if err != nil || !ok {
		return nil, err
	}
	return &Path{ArchivePath: normalized, Kind: kind}, nil
}

func isRegular(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		if errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, fmt.Errorf("stat archive %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// IsArchivePath checks if a path references a container.
// This is a quick check that doesn't verify file existence.
func IsArchivePath(path string) bool {
	normalized := strings.ToLower(filepath.ToSlash(strings.ReplaceAll(path, "\\", "/")))
	for _, ext := range []string{".zip", ".bsp", ".vpk", ".7z", ".rar"} {
		if strings.Contains(normalized, ext+"/") || strings.HasSuffix(normalized, ext) {
			return true
		}
	}
	return false
}
