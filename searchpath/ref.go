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
	"errors"
	"strings"
	"sync/atomic"

	"github.com/ZaparooProject/go-gamefs/chunked"
	"github.com/ZaparooProject/go-gamefs/packfile"
)

// ErrReleased indicates an Acquire on an archive whose last reference is gone.
var ErrReleased = errors.New("archive already released")

// Ref is a reference-counted mounted archive, shared by every entry that
// mounts it. The last Release closes the archive.
type Ref struct {
	pack    *packfile.Archive
	chunked chunked.Archive
	name    string
	refs    atomic.Int32
	onClose func(*Ref)
}

// NewPackRef wraps a prepared pack file with one reference held.
func NewPackRef(a *packfile.Archive) *Ref {
	r := &Ref{pack: a, name: a.Name()}
	r.refs.Store(1)
	return r
}

// NewChunkedRef wraps a chunked archive with one reference held.
func NewChunkedRef(a chunked.Archive) *Ref {
	r := &Ref{chunked: a, name: a.Name()}
	r.refs.Store(1)
	return r
}

// OnClose registers fn to run after the archive is closed.
func (r *Ref) OnClose(fn func(*Ref)) { r.onClose = fn }

// Name returns the archive path.
func (r *Ref) Name() string { return r.name }

// Key returns the archive identity used for duplicate detection.
func (r *Ref) Key() string { return strings.ToLower(normalizePath(r.name)) }

// Pack returns the pack file, or nil for a chunked archive.
func (r *Ref) Pack() *packfile.Archive { return r.pack }

// Chunked returns the chunked archive, or nil for a pack file.
func (r *Ref) Chunked() chunked.Archive { return r.chunked }

// Refs returns the current reference count.
func (r *Ref) Refs() int { return int(r.refs.Load()) }

// Acquire adds a reference. It fails once the archive has been released.
func (r *Ref) Acquire() error {
	for {
		n := r.refs.Load()
		if n <= 0 {
			return ErrReleased
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Release drops a reference, closing the archive when it was the last.
func (r *Ref) Release() error {
	n := r.refs.Add(-1)
	if n > 0 {
		return nil
	}
	if n < 0 {
		return ErrReleased
	}

	var err error
	if r.pack != nil {
		err = r.pack.Close()
	}
	if r.chunked != nil {
		err = r.chunked.Close()
	}
	if r.onClose != nil {
		r.onClose(r)
	}
	return err //nolint:wrapcheck // Close error passthrough is intentional
}
