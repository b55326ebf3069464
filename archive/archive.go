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

// Package archive reads foreign archives (ZIP, 7z and RAR) such as the
// distribution form of downloadable content packages, and parses paths that
// point inside a container.
package archive

import (
	"io"
	"path/filepath"
	"strings"
)

// FileInfo describes a file in an archive.
type FileInfo struct {
	Name string // Full path within archive
	Size int64  // Uncompressed size, -1 when unknown
}

// WalkFunc receives each file in archive order. r is only valid during the call.
type WalkFunc func(info FileInfo, r io.Reader) error

// Archive provides read access to files within an archive.
type Archive interface {
	// Name returns the archive path.
	Name() string

	// List returns all files in the archive.
	List() ([]FileInfo, error)

	// Open opens a file within the archive for reading.
	// Returns the reader, uncompressed size, and any error.
	Open(internalPath string) (io.ReadCloser, int64, error)

	// Walk streams every file in archive order. Solid and sequential
	// formats decode each file once.
	Walk(fn WalkFunc) error

	// Close closes the archive.
	Close() error
}

// Open opens an archive file based on its extension.
// Supported formats: .zip, .7z, .rar
func Open(path string) (Archive, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".zip":
		return OpenZIP(path)
	case ".7z":
		return OpenSevenZip(path)
	case ".rar":
		return OpenRAR(path)
	default:
		return nil, FormatError{Format: ext}
	}
}

// IsArchiveExtension checks if an extension is a supported foreign archive format.
func IsArchiveExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".zip", ".7z", ".rar":
		return true
	default:
		return false
	}
}

func normalizeInternal(p string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.ToSlash(strings.ReplaceAll(p, "\\", "/")), "/"))
}
