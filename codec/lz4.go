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

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

func init() {
	Register(MagicLZ4, func() Codec { return lz4Codec{} })
}

// LZ4 blob layout: id "LZ4B", actual size u32 LE, then one LZ4 block.
const lz4HeaderSize = 8

var errIncompressible = errors.New("lz4: data is incompressible")

type lz4Codec struct{}

// ActualSize returns the decompressed size from the header.
func (lz4Codec) ActualSize(src []byte) (int, error) {
	if len(src) < lz4HeaderSize {
		return 0, fmt.Errorf("%w: lz4: %d byte header", ErrInvalidHeader, len(src))
	}
	return checkActualSize(uint64(binary.LittleEndian.Uint32(src[4:8])))
}

// Decompress decodes the block into dst.
func (c lz4Codec) Decompress(dst, src []byte) (int, error) {
	actual, err := c.ActualSize(src)
	if err != nil {
		return 0, err
	}
	if len(dst) < actual {
		return 0, fmt.Errorf("%w: lz4: need %d, have %d", ErrShortDestination, actual, len(dst))
	}
	if actual == 0 {
		return 0, nil
	}

	n, err := lz4.UncompressBlock(src[lz4HeaderSize:], dst[:actual])
	if err != nil {
		return 0, fmt.Errorf("%w: lz4: %w", ErrDecompressFailed, err)
	}
	if n != actual {
		return 0, fmt.Errorf("%w: lz4: got %d bytes, expected %d", ErrDecompressFailed, n, actual)
	}
	return n, nil
}

// CompressLZ4 encodes data as an LZ4 blob. Incompressible input returns an
// error; callers store such entries raw.
func CompressLZ4(data []byte) ([]byte, error) {
	out := make([]byte, lz4HeaderSize+lz4.CompressBlockBound(len(data)))
	copy(out[0:4], MagicLZ4[:])
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(data))) //nolint:gosec // Preload entries are small

	written, err := lz4.CompressBlock(data, out[lz4HeaderSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 {
		return nil, errIncompressible
	}
	return out[:lz4HeaderSize+written], nil
}
