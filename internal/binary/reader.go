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

// Package binary provides little-endian helpers for the on-disk archive formats.
package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrShortBuffer is returned by Decoder when a field runs past the end of its buffer.
var ErrShortBuffer = errors.New("short buffer")

// ReadAt reads exactly len(buf) bytes from r at offset.
func ReadAt(r io.ReaderAt, offset int64, buf []byte) error {
	n, err := r.ReadAt(buf, offset)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read %d bytes at offset %d: %w", len(buf), offset, err)
}

// ReadBytesAt reads n bytes from r at offset.
func ReadBytesAt(r io.ReaderAt, offset int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := ReadAt(r, offset, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadUint32LEAt reads a little-endian uint32 from r at offset.
func ReadUint32LEAt(r io.ReaderAt, offset int64) (uint32, error) {
	var buf [4]byte
	if err := ReadAt(r, offset, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// Decoder walks a byte slice decoding little-endian fields.
//
// The first out-of-range access latches ErrShortBuffer; later calls return
// zero values so a record can be decoded in one pass and checked once.
type Decoder struct {
	err error
	buf []byte
	pos int
}

// NewDecoder returns a decoder positioned at the start of buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Err returns the first error encountered.
func (d *Decoder) Err() error { return d.err }

// Pos returns the current offset into the buffer.
func (d *Decoder) Pos() int { return d.pos }

// Remaining returns the number of undecoded bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.pos+n > len(d.buf) {
		d.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, d.pos, len(d.buf)-d.pos)
		return nil
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b
}

// Uint16 decodes a little-endian uint16.
func (d *Decoder) Uint16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Uint32 decodes a little-endian uint32.
func (d *Decoder) Uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Int32 decodes a little-endian int32.
func (d *Decoder) Int32() int32 {
	return int32(d.Uint32()) //nolint:gosec // Two's complement reinterpretation is intended
}

// Bytes returns the next n bytes without copying.
func (d *Decoder) Bytes(n int) []byte {
	return d.take(n)
}

// CString decodes a NUL-terminated string. A missing terminator latches
// ErrShortBuffer.
func (d *Decoder) CString() string {
	if d.err != nil {
		return ""
	}
	i := bytes.IndexByte(d.buf[d.pos:], 0)
	if i < 0 {
		d.err = fmt.Errorf("%w: unterminated string at offset %d", ErrShortBuffer, d.pos)
		return ""
	}
	s := string(d.buf[d.pos : d.pos+i])
	d.pos += i + 1
	return s
}

// Skip advances past n bytes.
func (d *Decoder) Skip(n int) {
	d.take(n)
}

// LastIndex returns the offset of the last occurrence of needle in haystack
// that starts at or before limit, or -1.
func LastIndex(haystack, needle []byte, limit int) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	start := len(haystack) - len(needle)
	if limit < start {
		start = limit
	}
	for i := start; i >= 0; i-- {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
