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

package codec_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-gamefs/codec"
)

var sample = bytes.Repeat([]byte("models/props/crate01.mdl\x00"), 64)

func TestCodecs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		encode func([]byte) ([]byte, error)
		magic  codec.Magic
	}{
		{"lzma", codec.CompressLZMA, codec.MagicLZMA},
		{"zstd", codec.CompressZstd, codec.MagicZstd},
		{"lz4", codec.CompressLZ4, codec.MagicLZ4},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			blob, err := tt.encode(sample)
			require.NoError(t, err)
			assert.Equal(t, tt.magic[:], blob[:4])
			assert.True(t, codec.IsCompressed(blob))

			c, ok := codec.Detect(blob)
			require.True(t, ok)

			size, err := c.ActualSize(blob)
			require.NoError(t, err)
			assert.Equal(t, len(sample), size)

			dst := make([]byte, size)
			n, err := c.Decompress(dst, blob)
			require.NoError(t, err)
			assert.Equal(t, sample, dst[:n])

			_, err = c.Decompress(make([]byte, size-1), blob)
			require.ErrorIs(t, err, codec.ErrShortDestination)
		})
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	blob, err := codec.CompressLZMA(sample)
	require.NoError(t, err)

	got, err := codec.Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, sample, got)

	_, err = codec.Decode([]byte("raw preload data"))
	require.ErrorIs(t, err, codec.ErrUnsupportedCodec)
}

func TestDetectRaw(t *testing.T) {
	t.Parallel()

	assert.False(t, codec.IsCompressed([]byte("VBSP")))
	assert.False(t, codec.IsCompressed([]byte("LZ")))
	assert.False(t, codec.IsCompressed(nil))
}

func TestTruncatedHeaders(t *testing.T) {
	t.Parallel()

	for _, magic := range []codec.Magic{codec.MagicLZMA, codec.MagicLZ4} {
		magic := magic
		c, err := codec.Lookup(magic)
		require.NoError(t, err)

		_, err = c.ActualSize(magic[:])
		require.ErrorIs(t, err, codec.ErrInvalidHeader, magic.String())
	}
}

func TestLZMAStreamSizeOverflow(t *testing.T) {
	t.Parallel()

	blob, err := codec.CompressLZMA(sample)
	require.NoError(t, err)

	// Declare a stream longer than the blob.
	blob[8], blob[9], blob[10], blob[11] = 0xFF, 0xFF, 0xFF, 0x00

	_, err = codec.Decode(blob)
	require.ErrorIs(t, err, codec.ErrInvalidHeader)
}

func TestMagicString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "LZMA", codec.MagicLZMA.String())
	assert.Equal(t, "28b52ffd", codec.MagicZstd.String())
}

func TestLookupUnknown(t *testing.T) {
	t.Parallel()

	_, err := codec.Lookup(codec.Magic{'N', 'O', 'P', 'E'})
	require.ErrorIs(t, err, codec.ErrUnsupportedCodec)
}
