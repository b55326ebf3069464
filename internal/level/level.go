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

// Package level reads the header of a level container and locates its lumps.
//
// Only the header is decoded. The pakfile lump holds an uncompressed zip that
// the packfile package mounts in place through a base offset.
package level

import (
	"errors"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-gamefs/internal/binary"
)

const (
	// Ident is the four-byte magic at the start of a level container.
	Ident = "VBSP"

	// LumpCount is the number of lump records in the header.
	LumpCount = 64

	// LumpPakfile is the index of the embedded zip lump.
	LumpPakfile = 40

	lumpRecordSize = 16

	// HeaderSize is ident + version + lumps + map revision.
	HeaderSize = 4 + 4 + LumpCount*lumpRecordSize + 4
)

var (
	// ErrNotLevel indicates the ident did not match.
	ErrNotLevel = errors.New("not a level container")

	// ErrBadLump indicates a lump record pointing outside the file.
	ErrBadLump = errors.New("lump out of range")
)

// Lump is one lump directory record.
type Lump struct {
	Offset  int64
	Length  int64
	Version int32
	FourCC  [4]byte
}

// Header is a decoded level container header.
type Header struct {
	Version     int32
	MapRevision int32
	lumps       [LumpCount]Lump
}

// Lump returns lump record i, or a zero record for an unknown index.
func (h *Header) Lump(i int) Lump {
	if i < 0 || i >= LumpCount {
		return Lump{}
	}
	return h.lumps[i]
}

// ReadHeader decodes the header of a level container of size bytes.
func ReadHeader(r io.ReaderAt, size int64) (*Header, error) {
	if size < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotLevel, size)
	}
	buf, err := binary.ReadBytesAt(r, 0, HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(buf[:4]) != Ident {
		return nil, fmt.Errorf("%w: ident %q", ErrNotLevel, buf[:4])
	}

	d := binary.NewDecoder(buf[4:])
	h := &Header{Version: d.Int32()}
	for i := range h.lumps {
		l := Lump{
			Offset:  int64(d.Uint32()),
			Length:  int64(d.Uint32()),
			Version: d.Int32(),
		}
		copy(l.FourCC[:], d.Bytes(4))
		if l.Offset+l.Length > size {
			return nil, fmt.Errorf("%w: lump %d at %d+%d, file is %d bytes", ErrBadLump, i, l.Offset, l.Length, size)
		}
		h.lumps[i] = l
	}
	h.MapRevision = d.Int32()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
