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

package chunked

import (
	"errors"
	"fmt"
	"io"
)

type opener func() (io.ReadCloser, error)

// File is an open entry of a chunked archive. It is not safe for concurrent use.
//
// The entry stream is opened on first use, so a File that is never read
// costs no I/O.
type File struct {
	open   opener
	src    io.ReadCloser
	name   string
	size   int64
	pos    int64
	closed bool
}

func newFile(name string, size int64, open opener) *File {
	return &File{open: open, name: name, size: size}
}

// Name returns the entry name.
func (f *File) Name() string { return f.name }

// Size returns the entry length.
func (f *File) Size() int64 { return f.size }

// Tell returns the current position.
func (f *File) Tell() int64 { return f.pos }

// stream opens the entry stream at position 0 when none is open.
func (f *File) stream() error {
	if f.src != nil {
		return nil
	}
	src, err := f.open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.name, err)
	}
	f.src = src
	return nil
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	if f.pos >= f.size {
		return 0, io.EOF
	}
	if err := f.stream(); err != nil {
		return 0, err
	}
	if remain := f.size - f.pos; int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := f.src.Read(p)
	f.pos += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("read %s: %w", f.name, err)
	}
	if errors.Is(err, io.EOF) && f.pos < f.size {
		return n, fmt.Errorf("read %s: %w", f.name, io.ErrUnexpectedEOF)
	}
	return n, err //nolint:wrapcheck // io.EOF must pass through unwrapped
}

// Seek implements io.Seeker. Positions are bounded to [0, Size].
//
// Backends that cannot seek are emulated: forward seeks discard, backward
// seeks reopen the entry first.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = f.pos + offset
	case io.SeekEnd:
		target = f.size + offset
	default:
		return 0, fmt.Errorf("seek %s: invalid whence %d", f.name, whence)
	}
	if target < 0 || target > f.size {
		return 0, fmt.Errorf("seek %s: position %d outside [0,%d]", f.name, target, f.size)
	}
	if target == f.pos {
		return target, nil
	}
	if f.src == nil && target == f.size {
		// Nothing left to read; defer opening.
		f.pos = target
		return target, nil
	}

	if target < f.pos && f.src != nil {
		if _, ok := f.src.(io.Seeker); !ok {
			_ = f.src.Close()
			f.src = nil
		}
	}
	if f.src == nil {
		f.pos = 0
	}
	if err := f.stream(); err != nil {
		return 0, err
	}
	if s, ok := f.src.(io.Seeker); ok {
		if _, err := s.Seek(target, io.SeekStart); err != nil {
			return 0, fmt.Errorf("seek %s: %w", f.name, err)
		}
		f.pos = target
		return target, nil
	}

	n, err := io.CopyN(io.Discard, f.src, target-f.pos)
	f.pos += n
	if err != nil {
		return f.pos, fmt.Errorf("seek %s: %w", f.name, err)
	}
	return f.pos, nil
}

// Close releases the entry. A second Close returns ErrClosed.
//
// Stream errors on close, such as a checksum mismatch, are reported only
// when the entry was read to its end.
func (f *File) Close() error {
	if f.closed {
		return ErrClosed
	}
	f.closed = true
	if f.src == nil {
		return nil
	}
	err := f.src.Close()
	if err != nil && f.pos == f.size {
		return fmt.Errorf("close %s: %w", f.name, err)
	}
	return nil
}
