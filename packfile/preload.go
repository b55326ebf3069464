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

package packfile

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-gamefs/codec"
	"github.com/ZaparooProject/go-gamefs/internal/binary"
)

// Preload section layout, all little-endian:
//
//	header    Version, DirectoryEntries, PreloadDirectoryEntries, Alignment (u32 each)
//	directory PreloadDirectoryEntries x {Length, DataOffset} (u32 each)
//	remap     DirectoryEntries x u16, indexed by central directory position
//	data      blob; DataOffset is relative to its start
const (
	// PreloadVersion is the preload header version this reader understands.
	PreloadVersion = 3

	preloadHeaderSize     = 16
	preloadDirEntrySize   = 8
	invalidPreloadEntry   = 0xFFFF
	maxPreloadDirEntries  = 0xFFFF
	maxDirectoryEntries   = 0xFFFF
	preloadRemapEntrySize = 2
)

type preloadEntry struct {
	length     uint32
	dataOffset uint32
}

type preloadSection struct {
	entries []preloadEntry
	remap   []uint16
	data    []byte
}

// parsePreload validates a preload section. Every directory record must lie
// inside the data blob.
func parsePreload(buf []byte, directoryEntries int) (*preloadSection, error) {
	d := binary.NewDecoder(buf)
	version := d.Uint32()
	dirEntries := int(d.Uint32())
	preloadEntries := int(d.Uint32())
	d.Skip(4) // alignment
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("preload header: %w", err)
	}
	if version != PreloadVersion {
		return nil, fmt.Errorf("preload version %d, want %d", version, PreloadVersion)
	}
	if dirEntries != directoryEntries || dirEntries > maxDirectoryEntries {
		return nil, fmt.Errorf("preload covers %d entries, directory has %d", dirEntries, directoryEntries)
	}
	if preloadEntries > maxPreloadDirEntries {
		return nil, fmt.Errorf("preload directory of %d entries", preloadEntries)
	}

	sec := &preloadSection{
		entries: make([]preloadEntry, preloadEntries),
		remap:   make([]uint16, dirEntries),
	}
	for i := range sec.entries {
		sec.entries[i] = preloadEntry{length: d.Uint32(), dataOffset: d.Uint32()}
	}
	for i := range sec.remap {
		sec.remap[i] = d.Uint16()
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("preload directory: %w", err)
	}
	sec.data = buf[d.Pos():]

	for i, e := range sec.entries {
		if uint64(e.dataOffset)+uint64(e.length) > uint64(len(sec.data)) {
			return nil, fmt.Errorf("preload entry %d spans [%d,+%d) past %d data bytes",
				i, e.dataOffset, e.length, len(sec.data))
		}
	}
	for i, idx := range sec.remap {
		if idx != invalidPreloadEntry && int(idx) >= preloadEntries {
			return nil, fmt.Errorf("remap %d points at preload entry %d of %d", i, idx, preloadEntries)
		}
	}
	return sec, nil
}

// initPreload loads the section found during Prepare and returns its remap
// table, or nil when the section is unusable.
func (a *Archive) initPreload(directoryEntries int) []uint16 {
	sec, err := a.loadPreload(directoryEntries)
	if err != nil {
		a.log.Warn("preload section disabled", zap.Error(err))
		a.preloadSize = 0
		return nil
	}
	a.preload.Store(sec)
	return sec.remap
}

func (a *Archive) loadPreload(directoryEntries int) (*preloadSection, error) {
	if a.preloadSize < preloadHeaderSize {
		return nil, fmt.Errorf("%w: section of %d bytes", ErrPreloadUnavailable, a.preloadSize)
	}
	if a.preloadSize > a.preloadBudget {
		return nil, fmt.Errorf("%w: section of %d bytes exceeds budget of %d",
			ErrPreloadUnavailable, a.preloadSize, a.preloadBudget)
	}
	if a.preloadOffset+a.preloadSize > a.length {
		return nil, fmt.Errorf("%w: section runs past end of archive", ErrPreloadUnavailable)
	}

	// One read for the whole section.
	buf := make([]byte, a.preloadSize)
	n, err := a.readRaw(a.preloadOffset, buf)
	if err != nil {
		return nil, err
	}
	if int64(n) != a.preloadSize {
		return nil, fmt.Errorf("%w: short read (%d of %d bytes)", ErrPreloadUnavailable, n, a.preloadSize)
	}
	return parsePreload(buf, directoryEntries)
}

// HasPreload reports whether the preload section is resident.
func (a *Archive) HasPreload() bool {
	return a.preload.Load() != nil
}

// SetupPreload loads the preload section into memory. It is a no-op when the
// section is already resident and returns ErrPreloadUnavailable when the
// archive has none or it cannot be loaded; reads then use direct I/O.
func (a *Archive) SetupPreload() error {
	if a.preload.Load() != nil {
		return nil
	}
	if a.preloadSize == 0 {
		return ErrPreloadUnavailable
	}
	sec, err := a.loadPreload(a.recordCount)
	if err != nil {
		return err
	}
	a.preload.CompareAndSwap(nil, sec)
	return nil
}

// DiscardPreload frees the preload section. Entries keep their preload index
// and fall back to direct reads until SetupPreload runs again.
func (a *Archive) DiscardPreload() {
	a.preload.Store(nil)
}

// readPreload copies dst from the preload record for e when the whole range
// [offset, offset+len(dst)) is covered.
func (a *Archive) readPreload(e Entry, offset int64, dst []byte) bool {
	sec := a.preload.Load()
	if sec == nil || e.PreloadIndex >= len(sec.entries) {
		return false
	}
	pe := sec.entries[e.PreloadIndex]
	data := sec.data[pe.dataOffset : pe.dataOffset+pe.length]
	end := offset + int64(len(dst))

	c, compressed := codec.Detect(data)
	if !compressed {
		if end > int64(len(data)) {
			return false
		}
		copy(dst, data[offset:end])
		return true
	}

	actual, err := c.ActualSize(data)
	if err != nil || end > int64(actual) {
		return false
	}
	if offset == 0 && len(dst) == actual {
		// Decompress straight into the caller's buffer.
		if _, err := c.Decompress(dst, data); err != nil {
			a.log.Warn("preload decompress failed", zap.String("entry", e.Name), zap.Error(err))
			return false
		}
		return true
	}

	tmp := make([]byte, actual)
	if _, err := c.Decompress(tmp, data); err != nil {
		a.log.Warn("preload decompress failed", zap.String("entry", e.Name), zap.Error(err))
		return false
	}
	copy(dst, tmp[offset:end])
	return true
}
