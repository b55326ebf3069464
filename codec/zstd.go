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
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

func init() {
	Register(MagicZstd, func() Codec { return zstdCodec{} })
}

// zstd decoders are safe for concurrent DecodeAll calls, so one is shared.
var (
	zstdDecoderOnce sync.Once
	zstdDecoder     *zstd.Decoder
	errZstdDecoder  error
)

func sharedZstdDecoder() (*zstd.Decoder, error) {
	zstdDecoderOnce.Do(func() {
		zstdDecoder, errZstdDecoder = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
	return zstdDecoder, errZstdDecoder
}

// zstdCodec decodes single Zstandard frames that record their content size.
type zstdCodec struct{}

// ActualSize returns the frame content size.
func (zstdCodec) ActualSize(src []byte) (int, error) {
	var header zstd.Header
	if err := header.Decode(src); err != nil {
		return 0, fmt.Errorf("%w: zstd: %w", ErrInvalidHeader, err)
	}
	if !header.HasFCS {
		return 0, fmt.Errorf("%w: zstd: frame has no content size", ErrInvalidHeader)
	}
	return checkActualSize(header.FrameContentSize)
}

// Decompress decompresses the frame into dst.
func (c zstdCodec) Decompress(dst, src []byte) (int, error) {
	actual, err := c.ActualSize(src)
	if err != nil {
		return 0, err
	}
	if len(dst) < actual {
		return 0, fmt.Errorf("%w: zstd: need %d, have %d", ErrShortDestination, actual, len(dst))
	}

	decoder, err := sharedZstdDecoder()
	if err != nil {
		return 0, fmt.Errorf("%w: zstd init: %w", ErrDecompressFailed, err)
	}

	result, err := decoder.DecodeAll(src, dst[:0])
	if err != nil {
		return 0, fmt.Errorf("%w: zstd: %w", ErrDecompressFailed, err)
	}
	if len(result) != actual {
		return 0, fmt.Errorf("%w: zstd: got %d bytes, expected %d", ErrDecompressFailed, len(result), actual)
	}
	// DecodeAll appends in place while capacity allows.
	if actual > 0 && &result[0] != &dst[0] {
		copy(dst, result)
	}
	return actual, nil
}

// CompressZstd encodes data as a single Zstandard frame with its content size.
func CompressZstd(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	defer func() { _ = encoder.Close() }()
	return encoder.EncodeAll(data, nil), nil
}
