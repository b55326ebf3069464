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
	"io"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamOnly hides Seek so File has to emulate it.
type streamOnly struct {
	fs.File
}

func mapOpener(t *testing.T, fsys fstest.MapFS, name string, seekable bool, opens *int) opener {
	t.Helper()
	return func() (io.ReadCloser, error) {
		*opens++
		f, err := fsys.Open(name)
		if err != nil {
			return nil, err //nolint:wrapcheck // Test passthrough
		}
		if seekable {
			return f, nil
		}
		return streamOnly{File: f}, nil
	}
}

func TestFileReadSeek(t *testing.T) {
	t.Parallel()

	data := []byte("0123456789abcdefghij")
	fsys := fstest.MapFS{"scripts/items.txt": {Data: data}}

	for _, seekable := range []bool{true, false} {
		var opens int
		f := newFile("scripts/items.txt", int64(len(data)), mapOpener(t, fsys, "scripts/items.txt", seekable, &opens))
		assert.Equal(t, int64(len(data)), f.Size())
		assert.Zero(t, opens, "opened before first read")

		buf := make([]byte, 4)
		_, err := io.ReadFull(f, buf)
		require.NoError(t, err)
		assert.Equal(t, []byte("0123"), buf)
		assert.Equal(t, int64(4), f.Tell())

		pos, err := f.Seek(6, io.SeekCurrent)
		require.NoError(t, err)
		assert.Equal(t, int64(10), pos)
		_, err = io.ReadFull(f, buf)
		require.NoError(t, err)
		assert.Equal(t, []byte("abcd"), buf)

		_, err = f.Seek(2, io.SeekStart)
		require.NoError(t, err)
		_, err = io.ReadFull(f, buf)
		require.NoError(t, err)
		assert.Equal(t, []byte("2345"), buf)

		_, err = f.Seek(-2, io.SeekEnd)
		require.NoError(t, err)
		rest, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, []byte("ij"), rest)

		_, err = f.Seek(-1, io.SeekStart)
		require.Error(t, err)
		_, err = f.Seek(int64(len(data))+1, io.SeekStart)
		require.Error(t, err)

		if seekable {
			assert.Equal(t, 1, opens)
		} else {
			assert.Equal(t, 2, opens, "backward seek reopens")
		}

		require.NoError(t, f.Close())
		require.ErrorIs(t, f.Close(), ErrClosed)
		_, err = f.Read(buf)
		require.ErrorIs(t, err, ErrClosed)
	}
}

func TestFileMissingEntry(t *testing.T) {
	t.Parallel()

	var opens int
	f := newFile("nope.txt", 4, mapOpener(t, fstest.MapFS{}, "nope.txt", true, &opens))
	_, err := f.Read(make([]byte, 4))
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.NoError(t, f.Close())
}

func TestFileUnreadCostsNothing(t *testing.T) {
	t.Parallel()

	var opens int
	fsys := fstest.MapFS{"a.txt": {Data: []byte("abcdef")}}
	f := newFile("a.txt", 6, mapOpener(t, fsys, "a.txt", false, &opens))

	pos, err := f.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)
	n, err := f.Read(make([]byte, 1))
	assert.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)
	assert.Zero(t, opens)

	_, err = f.Seek(2, io.SeekStart)
	require.NoError(t, err)
	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("cdef"), rest)
	assert.Equal(t, 1, opens)
	require.NoError(t, f.Close())
}

// checkedStream fails Close like a checksum mismatch.
type checkedStream struct {
	io.Reader
}

var errChecksum = errors.New("checksum mismatch")

func (checkedStream) Close() error { return errChecksum }

func TestFileCloseChecksum(t *testing.T) {
	t.Parallel()

	open := func() (io.ReadCloser, error) { return checkedStream{strings.NewReader("abcdef")}, nil }

	partial := newFile("a.txt", 6, open)
	_, err := partial.Read(make([]byte, 3))
	require.NoError(t, err)
	require.NoError(t, partial.Close(), "partial reads cannot be checked")

	full := newFile("a.txt", 6, open)
	_, err = io.ReadAll(full)
	require.NoError(t, err)
	require.ErrorIs(t, full.Close(), errChecksum)
}

func TestFileTruncatedStream(t *testing.T) {
	t.Parallel()

	f := newFile("a.txt", 10, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("abc")), nil
	})
	_, err := io.ReadAll(f)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
