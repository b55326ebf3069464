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

// Package codec decodes the magic-prefixed compressed blobs found in pack file
// preload sections.
//
// A compressed blob starts with a 4-byte magic identifying its codec. Blobs
// without a registered magic are stored raw.
package codec

import (
	"fmt"
	"sync"
)

// Magic is the 4-byte prefix identifying a codec.
type Magic [4]byte

// Well-known codec magics.
var (
	// MagicLZMA prefixes size-headed raw LZMA streams ("LZMA").
	MagicLZMA = Magic{'L', 'Z', 'M', 'A'}

	// MagicZstd is the Zstandard frame magic.
	MagicZstd = Magic{0x28, 0xB5, 0x2F, 0xFD}

	// MagicLZ4 prefixes size-headed LZ4 blocks ("LZ4B").
	MagicLZ4 = Magic{'L', 'Z', '4', 'B'}
)

// String returns the magic as printable text where possible.
func (m Magic) String() string {
	for _, c := range m {
		if c < 0x20 || c > 0x7E {
			return fmt.Sprintf("%02x%02x%02x%02x", m[0], m[1], m[2], m[3])
		}
	}
	return string(m[:])
}

// Codec decompresses one family of blobs.
type Codec interface {
	// ActualSize returns the decompressed size declared by the blob header.
	ActualSize(src []byte) (int, error)

	// Decompress decompresses src into dst, which must hold at least
	// ActualSize(src) bytes. Returns the number of bytes written.
	Decompress(dst, src []byte) (int, error)
}

var (
	registry   = make(map[Magic]func() Codec)
	registryMu sync.RWMutex
)

// Register registers a codec factory for the given magic.
func Register(magic Magic, factory func() Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[magic] = factory
}

// Lookup returns a codec instance for the given magic.
func Lookup(magic Magic) (Codec, error) {
	registryMu.RLock()
	factory, ok := registry[magic]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, magic)
	}
	return factory(), nil
}

// Detect returns the codec for the magic at the start of buf.
// The boolean is false when buf is not a recognized compressed blob.
func Detect(buf []byte) (Codec, bool) {
	if len(buf) < len(Magic{}) {
		return nil, false
	}
	var magic Magic
	copy(magic[:], buf)

	c, err := Lookup(magic)
	if err != nil {
		return nil, false
	}
	return c, true
}

// IsCompressed reports whether buf starts with a registered codec magic.
func IsCompressed(buf []byte) bool {
	_, ok := Detect(buf)
	return ok
}

// Decode decompresses a magic-prefixed blob into a newly allocated buffer.
func Decode(src []byte) ([]byte, error) {
	c, ok := Detect(src)
	if !ok {
		return nil, ErrUnsupportedCodec
	}
	size, err := c.ActualSize(src)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, size)
	n, err := c.Decompress(dst, src)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

func checkActualSize(size uint64) (int, error) {
	if size > MaxActualSize {
		return 0, fmt.Errorf("%w: declared size %d exceeds limit", ErrInvalidHeader, size)
	}
	return int(size), nil //nolint:gosec // Bounded by MaxActualSize above
}
