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
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrFileNotFound indicates that no search path holds the file. It
	// matches fs.ErrNotExist.
	ErrFileNotFound = fmt.Errorf("file not found: %w", fs.ErrNotExist)

	// ErrNoWritePath indicates that no directory search path can take writes.
	ErrNoWritePath = errors.New("no write path mounted")

	// ErrInvalidName indicates a name that climbs out of its search path.
	ErrInvalidName = errors.New("invalid file name")

	// ErrNoPrefetcher indicates a Prefetch call on a filesystem built
	// without a prefetcher.
	ErrNoPrefetcher = errors.New("no prefetcher configured")

	// ErrShutdown indicates use of a filesystem after Shutdown.
	ErrShutdown = errors.New("filesystem shut down")
)

// MountError describes a search path that could not be mounted.
type MountError struct {
	Path string
	Err  error
}

func (e *MountError) Error() string {
	return fmt.Sprintf("mount %s: %v", e.Path, e.Err)
}

func (e *MountError) Unwrap() error {
	return e.Err
}

func notFound(name, pathID string) error {
	if pathID == "" {
		return fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return fmt.Errorf("%w: %s in %s", ErrFileNotFound, name, pathID)
}
