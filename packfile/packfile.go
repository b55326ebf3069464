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

// Package packfile reads uncompressed zip-format pack files.
//
// A pack file is a standard zip archive whose entries are all stored without
// compression, so each entry is a contiguous byte range that can be read in
// place. The first entry may be a reserved preload section holding an in-memory
// copy (optionally compressed) of the leading bytes of selected entries, which
// lets small reads complete without touching the backing store.
//
// Prepare builds an immutable, case-insensitive directory once. Lookups need no
// lock; reads against the backing store share one cursor guarded by the
// archive mutex.
package packfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-gamefs/internal/binary"
	"github.com/ZaparooProject/go-gamefs/internal/level"
)

// Reserved entry names.
const (
	// PreloadSectionName is the reserved first entry holding the preload section.
	PreloadSectionName = "__preload_section.pre"

	// KVPoolName is the reserved entry holding the auxiliary string pool.
	KVPoolName = "kvpool.image"
)

const (
	sigEndOfCentralDir uint32 = 0x06054b50
	sigCentralHeader   uint32 = 0x02014b50

	endRecordSize     = 22
	centralHeaderSize = 46
	localHeaderSize   = 30

	// XZip archives carry a fixed 32-byte comment after the end record.
	xzipCommentLength = 32

	scanChunk = 4096

	noPreload = -1
)

var sigEndOfCentralDirBytes = []byte{0x50, 0x4b, 0x05, 0x06}

// Entry describes one file in the directory.
type Entry struct {
	Name         string // Stored name with forward slashes
	Index        int    // Position in the directory
	Position     int64  // Data position relative to the archive start
	Offset       int64  // Data position in the backing store (Position + base offset)
	Length       int64  // Size in bytes
	PreloadIndex int    // Preload directory index, or -1
}

// HasPreload reports whether the entry has a preload directory record.
func (e Entry) HasPreload() bool {
	return e.PreloadIndex != noPreload
}

// Stats reports backing store and preload usage.
type Stats struct {
	BackingReads uint64 // Seek+read pairs issued against the backing store
	PreloadHits  uint64 // Reads served entirely from the preload section
}

type dirKey struct {
	lower string
	hash  uint64
}

// Archive is a prepared pack file.
type Archive struct {
	store  io.ReadSeeker
	closer io.Closer
	log    *zap.Logger

	preload atomic.Pointer[preloadSection]

	name   string
	keys   []dirKey
	dir    []Entry
	kvPool []string

	length        int64
	baseOffset    int64
	preloadOffset int64
	preloadSize   int64
	preloadBudget int64

	backingReads atomic.Uint64
	preloadHits  atomic.Uint64

	// mu guards the store cursor.
	mu sync.Mutex

	// recordCount is the central directory record count, preload entry included.
	recordCount int

	onPreloadHit func()

	kvKey   uint32
	closed  atomic.Bool
	console bool
}

type endRecord struct {
	entries    uint16
	dirSize    uint32
	dirOffset  uint32
	compatible bool
}

// Prepare parses the pack file occupying totalLength bytes of store. With
// WithBaseOffset the archive starts at that offset inside store.
//
// Any malformed central directory record or compressed entry fails the whole
// archive. Problems with the preload section or the string pool only disable
// that feature.
func Prepare(store io.ReadSeeker, totalLength int64, opts ...Option) (*Archive, error) {
	c := defaultCfg()
	for _, o := range opts {
		o(c)
	}

	a := &Archive{
		store:         store,
		log:           c.log.With(zap.String("pack", c.name)),
		name:          c.name,
		length:        totalLength,
		baseOffset:    c.baseOffset,
		preloadBudget: c.preloadBudget,
		console:       c.console,
		onPreloadHit:  c.onPreloadHit,
	}

	if totalLength < endRecordSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrNotAnArchive, c.name, totalLength)
	}

	rec, err := a.findEndRecord()
	if err != nil {
		return nil, err
	}
	if rec.entries == 0 {
		return a, nil
	}

	if err := a.parseDirectory(rec); err != nil {
		return nil, err
	}

	a.loadKVPool()
	return a, nil
}

// Open opens and prepares the pack file at path. The returned archive owns the
// file and closes it on Close.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path) //nolint:gosec // Mounting user-supplied paths is the point
	if err != nil {
		return nil, fmt.Errorf("open pack file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat pack file: %w", err)
	}

	opts = append([]Option{WithName(path)}, opts...)
	a, err := Prepare(f, info.Size(), opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// OpenLevel opens the pack file embedded in the pakfile lump of a level
// container. Entry offsets are biased by the lump position.
func OpenLevel(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path) //nolint:gosec // Mounting user-supplied paths is the point
	if err != nil {
		return nil, fmt.Errorf("open level: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat level: %w", err)
	}

	hdr, err := level.ReadHeader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read level header: %w", err)
	}
	lump := hdr.Lump(level.LumpPakfile)
	if lump.Length == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s has an empty pakfile lump", ErrNotAnArchive, path)
	}

	opts = append([]Option{WithName(path)}, opts...)
	opts = append(opts, WithBaseOffset(lump.Offset))
	a, err := Prepare(f, lump.Length, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// Close releases the preload section and any backing file owned by the archive.
func (a *Archive) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	a.DiscardPreload()
	if a.closer != nil {
		return a.closer.Close() //nolint:wrapcheck // Close error passthrough is intentional
	}
	return nil
}

// Name returns the archive name given at open time.
func (a *Archive) Name() string { return a.name }

// Len returns the number of directory entries.
func (a *Archive) Len() int { return len(a.dir) }

// BaseOffset returns the archive start within its backing store.
func (a *Archive) BaseOffset() int64 { return a.baseOffset }

// Entries returns the directory in lookup order.
func (a *Archive) Entries() []Entry {
	out := make([]Entry, len(a.dir))
	copy(out, a.dir)
	return out
}

// Stats returns read counters.
func (a *Archive) Stats() Stats {
	return Stats{
		BackingReads: a.backingReads.Load(),
		PreloadHits:  a.preloadHits.Load(),
	}
}

// Find looks up name case-insensitively after normalizing it the same way
// stored names are normalized.
func (a *Archive) Find(name string) (Entry, bool) {
	norm, ok := NormalizeName(name)
	if !ok {
		return Entry{}, false
	}
	want := dirKey{hash: hashName(norm), lower: strings.ToLower(norm)}

	i := sort.Search(len(a.keys), func(i int) bool {
		k := a.keys[i]
		return k.hash > want.hash || (k.hash == want.hash && k.lower >= want.lower)
	})
	if i < len(a.keys) && a.keys[i] == want {
		return a.dir[i], true
	}
	return Entry{}, false
}

// ReadFromPack reads up to len(dst) bytes of entry index starting offset bytes
// into the entry. Reads are clamped to the entry length.
//
// A read that lies entirely inside the entry's preload record is served from
// memory without touching the backing store. Otherwise the archive mutex is
// held for one seek+read pair. A short read from the backing store returns
// the short count and a nil error.
func (a *Archive) ReadFromPack(index int, offset int64, dst []byte) (int, error) {
	if a.closed.Load() {
		return 0, ErrClosed
	}
	if index < 0 || index >= len(a.dir) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	e := a.dir[index]
	if offset < 0 {
		return 0, fmt.Errorf("negative offset %d", offset)
	}
	if offset >= e.Length || len(dst) == 0 {
		return 0, nil
	}
	if remain := e.Length - offset; int64(len(dst)) > remain {
		dst = dst[:remain]
	}

	if e.PreloadIndex != noPreload && a.readPreload(e, offset, dst) {
		a.preloadHits.Add(1)
		if a.onPreloadHit != nil {
			a.onPreloadHit()
		}
		return len(dst), nil
	}
	return a.readRaw(e.Position+offset, dst)
}

// ReadAt implements io.ReaderAt over the archive byte range, independent of
// entry boundaries.
func (a *Archive) ReadAt(p []byte, off int64) (int, error) {
	if a.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= a.length {
		return 0, io.EOF
	}
	want := len(p)
	if remain := a.length - off; int64(want) > remain {
		p = p[:remain]
	}
	n, err := a.readRaw(off, p)
	if err == nil && n < want {
		err = io.EOF
	}
	return n, err
}

// Section returns a reader over entry index that bypasses the preload section.
func (a *Archive) Section(index int) (*io.SectionReader, error) {
	if index < 0 || index >= len(a.dir) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	e := a.dir[index]
	return io.NewSectionReader(a, e.Position, e.Length), nil
}

// readRaw performs one seek+read pair at an archive-relative position.
func (a *Archive) readRaw(pos int64, dst []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.backingReads.Add(1)
	if _, err := a.store.Seek(a.baseOffset+pos, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek %s: %w", a.name, err)
	}
	n, err := io.ReadFull(a.store, dst)
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return n, nil
	}
	if err != nil {
		return n, fmt.Errorf("read %s: %w", a.name, err)
	}
	return n, nil
}

func (a *Archive) findEndRecord() (endRecord, error) {
	if a.console {
		return a.findEndRecordWindow()
	}
	return a.findEndRecordScan()
}

// findEndRecordWindow reads the bounded XZip trailer window as one block and
// scans it forward.
func (a *Archive) findEndRecordWindow() (endRecord, error) {
	offset := a.length - endRecordSize
	if offset-xzipCommentLength >= 0 {
		offset -= xzipCommentLength
	}
	buf := make([]byte, a.length-offset)
	n, err := a.readRaw(offset, buf)
	if err != nil {
		return endRecord{}, err
	}
	buf = buf[:n]

	for i := 0; i+endRecordSize <= len(buf); i++ {
		if binary.NewDecoder(buf[i:]).Uint32() != sigEndOfCentralDir {
			continue
		}
		rec := decodeEndRecord(buf[i:])
		if comment := buf[i+endRecordSize:]; len(comment) >= 4 {
			if strings.EqualFold(string(comment[:3]), "XZP") && comment[3] != '1' {
				rec.compatible = false
			}
		}
		return rec, nil
	}
	return endRecord{}, fmt.Errorf("%w: %s", ErrNotAnArchive, a.name)
}

// findEndRecordScan scans backward from the end of the archive in blocks.
func (a *Archive) findEndRecordScan() (endRecord, error) {
	end := a.length
	buf := make([]byte, scanChunk)
	for end >= endRecordSize {
		start := end - scanChunk
		if start < 0 {
			start = 0
		}
		window := buf[:end-start]
		n, err := a.readRaw(start, window)
		if err != nil {
			return endRecord{}, err
		}
		window = window[:n]

		if idx := binary.LastIndex(window, sigEndOfCentralDirBytes, len(window)-endRecordSize); idx >= 0 {
			return decodeEndRecord(window[idx:]), nil
		}
		if start == 0 {
			break
		}
		// Overlap so a record straddling the block boundary is still seen.
		end = start + endRecordSize - 1
	}
	return endRecord{}, fmt.Errorf("%w: %s", ErrNotAnArchive, a.name)
}

func decodeEndRecord(b []byte) endRecord {
	d := binary.NewDecoder(b)
	d.Skip(4) // signature
	d.Skip(6) // disk numbers, entries on this disk
	rec := endRecord{compatible: true}
	rec.entries = d.Uint16()
	rec.dirSize = d.Uint32()
	rec.dirOffset = d.Uint32()
	return rec
}

func (a *Archive) parseDirectory(rec endRecord) error {
	dirSize := int64(rec.dirSize)
	dirOffset := int64(rec.dirOffset)
	if dirSize > MaxCentralDirectorySize || dirOffset+dirSize > a.length {
		return fmt.Errorf("%w: %s: directory of %d bytes at %d exceeds archive of %d bytes",
			ErrCorruptDirectory, a.name, dirSize, dirOffset, a.length)
	}

	// The whole central directory is read in one call.
	cd := make([]byte, dirSize)
	n, err := a.readRaw(dirOffset, cd)
	if err != nil {
		return err
	}
	if int64(n) != dirSize {
		return fmt.Errorf("%w: %s: short directory read (%d of %d bytes)", ErrCorruptDirectory, a.name, n, dirSize)
	}

	d := binary.NewDecoder(cd)
	total := int(rec.entries)
	a.recordCount = total
	entries := make([]Entry, 0, total)
	var remap []uint16

	for i := 0; i < total; i++ {
		h, err := decodeCentralHeader(d)
		if err != nil {
			return &EntryError{Archive: a.name, Index: i, Err: err}
		}
		if rec.compatible {
			d.Skip(h.extraLen + h.commentLen)
		}

		position := int64(h.localOffset) + localHeaderSize + int64(len(h.name)) + int64(h.extraLen)

		if i == 0 && strings.EqualFold(h.name, PreloadSectionName) {
			a.preloadOffset = position
			a.preloadSize = int64(h.size)
			remap = a.initPreload(total)
			continue
		}
		if i == 0 && a.console {
			a.log.Warn("console pack file missing preload section")
		}

		if h.method != 0 {
			return &EntryError{Archive: a.name, Entry: h.name, Index: i,
				Err: fmt.Errorf("%w: method %d", ErrUnsupportedCompression, h.method)}
		}
		if position+int64(h.size) > a.length {
			return &EntryError{Archive: a.name, Entry: h.name, Index: i,
				Err: fmt.Errorf("%w: data runs past end of archive", ErrCorruptDirectory)}
		}
		if strings.HasSuffix(h.name, "/") {
			continue
		}
		norm, ok := NormalizeName(h.name)
		if !ok {
			a.log.Warn("skipping entry with unusable name", zap.String("entry", h.name))
			continue
		}

		preloadIdx := noPreload
		if i < len(remap) && remap[i] != invalidPreloadEntry {
			preloadIdx = int(remap[i])
		}
		entries = append(entries, Entry{
			Name:         norm,
			Position:     position,
			Offset:       a.baseOffset + position,
			Length:       int64(h.size),
			PreloadIndex: preloadIdx,
		})
	}
	if err := d.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorruptDirectory, a.name, err)
	}

	a.buildDirectory(entries)
	return nil
}

func (a *Archive) buildDirectory(entries []Entry) {
	keys := make([]dirKey, len(entries))
	for i, e := range entries {
		keys[i] = dirKey{hash: hashName(e.Name), lower: strings.ToLower(e.Name)}
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	// Stable so the first of several identical names wins.
	sort.SliceStable(order, func(x, y int) bool {
		kx, ky := keys[order[x]], keys[order[y]]
		if kx.hash != ky.hash {
			return kx.hash < ky.hash
		}
		return kx.lower < ky.lower
	})

	a.keys = make([]dirKey, len(entries))
	a.dir = make([]Entry, len(entries))
	for pos, src := range order {
		a.keys[pos] = keys[src]
		e := entries[src]
		e.Index = pos
		a.dir[pos] = e
	}
}

type centralHeader struct {
	name        string
	extraLen    int
	commentLen  int
	size        uint32
	localOffset uint32
	method      uint16
}

func decodeCentralHeader(d *binary.Decoder) (centralHeader, error) {
	if d.Remaining() < centralHeaderSize {
		return centralHeader{}, fmt.Errorf("%w: truncated header", ErrCorruptDirectory)
	}
	sig := d.Uint32()
	d.Skip(6) // version made by, version needed, flags
	method := d.Uint16()
	d.Skip(8) // time, date, crc
	d.Skip(4) // compressed size
	size := d.Uint32()
	nameLen := int(d.Uint16())
	extraLen := int(d.Uint16())
	commentLen := int(d.Uint16())
	d.Skip(8) // disk start, internal attrs, external attrs
	localOffset := d.Uint32()

	if sig != sigCentralHeader {
		return centralHeader{}, fmt.Errorf("%w: bad signature 0x%08x", ErrCorruptDirectory, sig)
	}
	if nameLen > MaxNameLength {
		return centralHeader{}, fmt.Errorf("%w: name length %d", ErrCorruptDirectory, nameLen)
	}
	name := d.Bytes(nameLen)
	if err := d.Err(); err != nil {
		return centralHeader{}, fmt.Errorf("%w: %w", ErrCorruptDirectory, err)
	}

	return centralHeader{
		name:        strings.ReplaceAll(string(name), "\\", "/"),
		method:      method,
		size:        size,
		extraLen:    extraLen,
		commentLen:  commentLen,
		localOffset: localOffset,
	}, nil
}
