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
	"errors"
	"fmt"
)

// Allocation limits guarding against hostile headers.
const (
	// MaxCentralDirectorySize bounds the central directory read (64MB).
	MaxCentralDirectorySize = 64 * 1024 * 1024

	// MaxNameLength bounds an entry name.
	MaxNameLength = 1024

	// DefaultPreloadBudget is the largest preload section loaded into memory (64MB).
	DefaultPreloadBudget = 64 * 1024 * 1024
)

// Common pack file errors.
var (
	// ErrNotAnArchive indicates no end-of-central-directory record was found.
	ErrNotAnArchive = errors.New("not a pack file")

	// ErrUnsupportedCompression indicates a non-preload entry is compressed.
	ErrUnsupportedCompression = errors.New("unsupported compression")

	// ErrCorruptDirectory indicates the central directory is malformed.
	ErrCorruptDirectory = errors.New("corrupt central directory")

	// ErrPreloadUnavailable indicates the archive has no usable preload section.
	ErrPreloadUnavailable = errors.New("preload section unavailable")

	// ErrInvalidIndex indicates an entry index outside the directory.
	ErrInvalidIndex = errors.New("invalid entry index")

	// ErrClosed indicates use of a closed archive.
	ErrClosed = errors.New("pack file closed")
)

// EntryError describes a central directory entry that failed to parse.
type EntryError struct {
	Err     error
	Archive string
	Entry   string
	Index   int
}

func (e *EntryError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("pack file %q entry %d (%s): %v", e.Archive, e.Index, e.Entry, e.Err)
	}
	return fmt.Sprintf("pack file %q entry %d: %v", e.Archive, e.Index, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
