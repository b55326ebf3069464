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

// Package filehandle unifies plain files, pack file entries and chunked
// archive entries behind one handle type.
package filehandle

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ZaparooProject/go-gamefs/chunked"
	"github.com/ZaparooProject/go-gamefs/packfile"
)

var (
	// ErrStaleHandle indicates use of a handle after Close.
	ErrStaleHandle = errors.New("stale file handle")

	// ErrDoubleClose indicates a second Close of the same handle.
	ErrDoubleClose = errors.New("file handle closed twice")

	// ErrReadOnly indicates a write to a handle opened for reading.
	ErrReadOnly = errors.New("file handle is read-only")
)

// Kind identifies the backing of a handle.
type Kind int

// Handle kinds.
const (
	KindPlain Kind = iota
	KindPack
	KindChunked
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindPack:
		return "pack"
	case KindChunked:
		return "chunked"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Option configures a handle at construction.
type Option func(*Handle)

// WithRelease returns an option registering fn to run once when the handle
// closes, after the backing resource is released.
func WithRelease(fn func()) Option {
	return func(h *Handle) {
		h.release = fn
	}
}

// WithReadObserver returns an option calling fn with the byte count of every
// successful read.
func WithReadObserver(fn func(kind Kind, n int)) Option {
	return func(h *Handle) {
		h.observe = fn
	}
}

// WithSeekObserver returns an option calling fn after every seek that moves
// the position.
func WithSeekObserver(fn func()) Option {
	return func(h *Handle) {
		h.seeked = fn
	}
}

// WithName returns an option overriding the diagnostic name.
func WithName(name string) Option {
	return func(h *Handle) {
		h.name = name
	}
}

// Handle is an open file. The length is fixed at open time and bounds every
// read. A Handle is not safe for concurrent use.
type Handle struct {
	file  *os.File
	pack  *packfile.Archive
	chunk *chunked.File
	table *Table

	release func()
	observe func(kind Kind, n int)
	seeked  func()

	name  string
	entry packfile.Entry
	kind  Kind
	size  int64
	pos   int64

	writable bool
	closed   bool
}

// FromFile wraps an open OS file. Writable handles may grow the file.
func FromFile(f *os.File, writable bool, opts ...Option) (*Handle, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	h := &Handle{file: f, kind: KindPlain, name: f.Name(), size: info.Size(), writable: writable}
	return h.apply(opts), nil
}

// FromPack returns a handle over one pack file entry.
func FromPack(a *packfile.Archive, e packfile.Entry, opts ...Option) *Handle {
	h := &Handle{pack: a, entry: e, kind: KindPack, name: e.Name, size: e.Length}
	return h.apply(opts)
}

// FromChunked returns a handle over an open chunked archive entry.
func FromChunked(f *chunked.File, opts ...Option) *Handle {
	h := &Handle{chunk: f, kind: KindChunked, name: f.Name(), size: f.Size()}
	return h.apply(opts)
}

func (h *Handle) apply(opts []Option) *Handle {
	for _, o := range opts {
		o(h)
	}
	return h
}

// Kind returns the backing kind.
func (h *Handle) Kind() Kind { return h.kind }

// Name returns the diagnostic name.
func (h *Handle) Name() string { return h.name }

// Size returns the length fixed at open time, extended by writes.
func (h *Handle) Size() int64 { return h.size }

// Tell returns the current position.
func (h *Handle) Tell() int64 { return h.pos }

// Writable reports whether Write is permitted.
func (h *Handle) Writable() bool { return h.writable }

// Archive returns the pack file backing a KindPack handle.
func (h *Handle) Archive() *packfile.Archive { return h.pack }

// Read implements io.Reader.
func (h *Handle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, ErrStaleHandle
	}
	if h.pos >= h.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if remain := h.size - h.pos; int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := h.readAt(p, h.pos)
	h.pos += int64(n)
	h.observed(n)
	if errors.Is(err, io.EOF) {
		err = nil
		if n == 0 {
			err = io.EOF
		}
	}
	return n, err
}

// ReadAt implements io.ReaderAt. It does not move the position of a plain or
// pack handle.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h.closed {
		return 0, ErrStaleHandle
	}
	if off < 0 {
		return 0, fmt.Errorf("read %s: negative offset %d", h.name, off)
	}
	if off >= h.size {
		return 0, io.EOF
	}
	want := len(p)
	if remain := h.size - off; int64(want) > remain {
		p = p[:remain]
	}

	var total int
	for total < len(p) {
		n, err := h.readAt(p[total:], off+int64(total))
		total += n
		if err != nil && !errors.Is(err, io.EOF) {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	h.observed(total)
	if total < want {
		return total, io.EOF
	}
	return total, nil
}

func (h *Handle) observed(n int) {
	if n > 0 && h.observe != nil {
		h.observe(h.kind, n)
	}
}

// readAt issues one backend read.
func (h *Handle) readAt(p []byte, off int64) (int, error) {
	switch h.kind {
	case KindPlain:
		n, err := h.file.ReadAt(p, off)
		if err != nil && !errors.Is(err, io.EOF) {
			return n, fmt.Errorf("read %s: %w", h.name, err)
		}
		return n, err //nolint:wrapcheck // io.EOF must pass through unwrapped
	case KindPack:
		n, err := h.pack.ReadFromPack(h.entry.Index, off, p)
		if err != nil {
			return n, fmt.Errorf("read %s: %w", h.name, err)
		}
		return n, nil
	case KindChunked:
		if h.chunk.Tell() != off {
			if _, err := h.chunk.Seek(off, io.SeekStart); err != nil {
				return 0, err //nolint:wrapcheck // Already carries the entry name
			}
		}
		return h.chunk.Read(p) //nolint:wrapcheck // Already carries the entry name
	}
	return 0, fmt.Errorf("read %s: unknown handle kind %v", h.name, h.kind)
}

// Seek implements io.Seeker. Read-only handles cannot seek past Size.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if h.closed {
		return 0, ErrStaleHandle
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = h.pos + offset
	case io.SeekEnd:
		target = h.size + offset
	default:
		return 0, fmt.Errorf("seek %s: invalid whence %d", h.name, whence)
	}
	if target < 0 || (!h.writable && target > h.size) {
		return 0, fmt.Errorf("seek %s: position %d outside [0,%d]", h.name, target, h.size)
	}
	if target != h.pos && h.seeked != nil {
		h.seeked()
	}
	h.pos = target
	return target, nil
}

// Write implements io.Writer for writable plain handles.
func (h *Handle) Write(p []byte) (int, error) {
	if h.closed {
		return 0, ErrStaleHandle
	}
	if !h.writable || h.kind != KindPlain {
		return 0, fmt.Errorf("%w: %s", ErrReadOnly, h.name)
	}
	n, err := h.file.WriteAt(p, h.pos)
	h.pos += int64(n)
	if h.pos > h.size {
		h.size = h.pos
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", h.name, err)
	}
	return n, nil
}

// Close releases the backing resource. Every later call on the handle fails
// with ErrStaleHandle and a second Close returns ErrDoubleClose.
func (h *Handle) Close() error {
	if h.closed {
		if h.table != nil {
			h.table.reportDoubleClose(h)
		}
		return fmt.Errorf("%w: %s", ErrDoubleClose, h.name)
	}
	h.closed = true

	var err error
	switch h.kind {
	case KindPlain:
		err = h.file.Close()
	case KindChunked:
		err = h.chunk.Close()
	case KindPack:
		// The archive is shared; the release hook drops this handle's reference.
	}
	if h.table != nil {
		h.table.Untrack(h)
	}
	if h.release != nil {
		h.release()
	}
	if err != nil {
		return fmt.Errorf("close %s: %w", h.name, err)
	}
	return nil
}
