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

import "fmt"

// FormatError indicates an unsupported or invalid archive format.
type FormatError struct {
	Format string
	Reason string
}

func (e FormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported archive format %s: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("unsupported archive format: %s", e.Format)
}

// FileNotFoundError indicates a file was not found in the archive.
type FileNotFoundError struct {
	Archive      string
	InternalPath string
}

func (e FileNotFoundError) Error() string {
	return fmt.Sprintf("file %q not found in archive %q", e.InternalPath, e.Archive)
}

// UnsafePathError indicates an archive member whose name would escape the
// extraction directory.
type UnsafePathError struct {
	Archive string
	Name    string
}

func (e UnsafePathError) Error() string {
	return fmt.Sprintf("unsafe member %q in archive %q", e.Name, e.Archive)
}

// SizeMismatchError indicates a member whose decoded size differs from the
// size recorded in the archive directory.
type SizeMismatchError struct {
	Name string
	Want int64
	Got  int64
}

func (e SizeMismatchError) Error() string {
	return fmt.Sprintf("member %q decoded to %d bytes, directory says %d", e.Name, e.Got, e.Want)
}
