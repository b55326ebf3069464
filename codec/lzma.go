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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

func init() {
	Register(MagicLZMA, func() Codec { return lzmaCodec{} })
}

// LZMA blob layout:
//
//	0  id "LZMA"
//	4  actual (decompressed) size, u32 LE
//	8  compressed stream size, u32 LE
//	12 properties: lc/lp/pb byte then dictionary size u32 LE
//	17 raw LZMA stream, no end marker
const (
	lzmaHeaderSize  = 17
	lzmaPropsOffset = 12
	lzmaPropsSize   = 5

	// classic .lzma header: props(1) dictSize(4) uncompressedSize(8)
	lzmaAloneHeaderSize = 13
)

type lzmaCodec struct{}

func (lzmaCodec) header(src []byte) (actual int, body []byte, err error) {
	if len(src) < lzmaHeaderSize {
		return 0, nil, fmt.Errorf("%w: lzma: %d byte header", ErrInvalidHeader, len(src))
	}
	actual, err = checkActualSize(uint64(binary.LittleEndian.Uint32(src[4:8])))
	if err != nil {
		return 0, nil, err
	}
	streamSize := int(binary.LittleEndian.Uint32(src[8:12]))
	body = src[lzmaHeaderSize:]
	if streamSize > len(body) {
		return 0, nil, fmt.Errorf("%w: lzma: stream size %d exceeds %d available bytes",
			ErrInvalidHeader, streamSize, len(body))
	}
	return actual, body[:streamSize], nil
}

// ActualSize returns the decompressed size from the LZMA header.
func (c lzmaCodec) ActualSize(src []byte) (int, error) {
	actual, _, err := c.header(src)
	return actual, err
}

// Decompress decodes the blob by rebuilding the classic .lzma header the
// decoder expects in front of the raw stream.
func (c lzmaCodec) Decompress(dst, src []byte) (int, error) {
	actual, body, err := c.header(src)
	if err != nil {
		return 0, err
	}
	if len(dst) < actual {
		return 0, fmt.Errorf("%w: lzma: need %d, have %d", ErrShortDestination, actual, len(dst))
	}

	var alone [lzmaAloneHeaderSize]byte
	copy(alone[:lzmaPropsSize], src[lzmaPropsOffset:lzmaPropsOffset+lzmaPropsSize])
	binary.LittleEndian.PutUint64(alone[lzmaPropsSize:], uint64(actual))

	reader, err := lzma.NewReader(io.MultiReader(bytes.NewReader(alone[:]), bytes.NewReader(body)))
	if err != nil {
		return 0, fmt.Errorf("%w: lzma init: %w", ErrDecompressFailed, err)
	}

	n, err := io.ReadFull(reader, dst[:actual])
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: lzma read: %w", ErrDecompressFailed, err)
	}
	return n, nil
}

// CompressLZMA encodes data as an LZMA blob.
func CompressLZMA(data []byte) ([]byte, error) {
	var stream bytes.Buffer
	w, err := lzma.WriterConfig{SizeInHeader: true, Size: int64(len(data))}.NewWriter(&stream)
	if err != nil {
		return nil, fmt.Errorf("lzma writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lzma write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lzma close: %w", err)
	}

	encoded := stream.Bytes()
	if len(encoded) < lzmaAloneHeaderSize {
		return nil, fmt.Errorf("lzma: short stream of %d bytes", len(encoded))
	}
	body := encoded[lzmaAloneHeaderSize:]

	out := make([]byte, lzmaHeaderSize+len(body))
	copy(out[0:4], MagicLZMA[:])
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(data))) //nolint:gosec // Preload entries are small
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(body))) //nolint:gosec // Bounded by input size
	copy(out[lzmaPropsOffset:lzmaHeaderSize], encoded[:lzmaPropsSize])
	copy(out[lzmaHeaderSize:], body)
	return out, nil
}
