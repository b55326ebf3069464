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

package binary

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAt(t *testing.T) {
	t.Parallel()

	r := bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05})

	tests := []struct {
		name    string
		offset  int64
		length  int
		want    []byte
		wantErr bool
	}{
		{"read from start", 0, 3, []byte{0x00, 0x01, 0x02}, false},
		{"read to end", 3, 3, []byte{0x03, 0x04, 0x05}, false},
		{"read past end", 4, 5, nil, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ReadBytesAt(r, tt.offset, tt.length)
			if tt.wantErr {
				require.ErrorIs(t, err, io.ErrUnexpectedEOF)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadUint32LEAt(t *testing.T) {
	t.Parallel()

	got, err := ReadUint32LEAt(bytes.NewReader([]byte{0xFF, 0x50, 0x4B, 0x05, 0x06}), 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x06054B50), got)
}

func TestDecoder(t *testing.T) {
	t.Parallel()

	d := NewDecoder([]byte{0x34, 0x12, 0x78, 0x56, 0x34, 0x12, 'a', 'b', 0xFE, 0xFF, 0xFF, 0xFF})

	assert.Equal(t, uint16(0x1234), d.Uint16())
	assert.Equal(t, uint32(0x12345678), d.Uint32())
	assert.Equal(t, []byte("ab"), d.Bytes(2))
	assert.Equal(t, int32(-2), d.Int32())
	assert.Equal(t, 0, d.Remaining())
	require.NoError(t, d.Err())

	assert.Zero(t, d.Uint16())
	require.ErrorIs(t, d.Err(), ErrShortBuffer)

	// The first error sticks.
	d.Skip(1)
	require.ErrorIs(t, d.Err(), ErrShortBuffer)
	assert.Equal(t, 12, d.Pos())
}

func TestDecoderCString(t *testing.T) {
	t.Parallel()

	d := NewDecoder([]byte("txt\x00scripts\x00\x00tail"))
	assert.Equal(t, "txt", d.CString())
	assert.Equal(t, "scripts", d.CString())
	assert.Empty(t, d.CString())
	require.NoError(t, d.Err())

	assert.Empty(t, d.CString())
	require.ErrorIs(t, d.Err(), ErrShortBuffer)
	assert.Equal(t, 13, d.Pos())
}

func TestLastIndex(t *testing.T) {
	t.Parallel()

	sig := []byte("PK\x05\x06")
	buf := append([]byte("PK\x05\x06xxxxPK\x05\x06"), make([]byte, 4)...)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"unbounded finds last", len(buf), 8},
		{"limit before second", 7, 0},
		{"negative limit", -1, -1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, LastIndex(buf, sig, tt.limit))
		})
	}

	assert.Equal(t, -1, LastIndex([]byte("PK"), sig, 10))
}

// FuzzLastIndex checks that any reported match is real and in bounds.
func FuzzLastIndex(f *testing.F) {
	f.Add([]byte("hello world"), []byte("o"), 20)
	f.Add([]byte{}, []byte("x"), 0)
	f.Add([]byte("abcabc"), []byte("abc"), 2)

	f.Fuzz(func(t *testing.T, haystack, needle []byte, limit int) {
		idx := LastIndex(haystack, needle, limit)
		if idx < 0 {
			return
		}
		if idx > limit || idx+len(needle) > len(haystack) {
			t.Fatalf("index %d out of range (limit %d, haystack %d)", idx, limit, len(haystack))
		}
		if !bytes.Equal(haystack[idx:idx+len(needle)], needle) {
			t.Fatalf("no match at %d", idx)
		}
	})
}
