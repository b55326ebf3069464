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

package gamefs

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-gamefs/archive"
	"github.com/ZaparooProject/go-gamefs/chunked"
	"github.com/ZaparooProject/go-gamefs/integrity"
	"github.com/ZaparooProject/go-gamefs/packfile"
	"github.com/ZaparooProject/go-gamefs/searchpath"
)

// OpenFlags adjust a lookup.
type OpenFlags uint8

// Lookup flags.
const (
	// PackOnly serves the file from an archive only.
	PackOnly OpenFlags = 1 << iota
	// NoPack skips archives.
	NoPack
	// CullLocalized serves from non-localized archives only.
	CullLocalized
	// CullLocalizedAny skips localized search paths of any kind.
	CullLocalizedAny
	// NoIntegrity bypasses the integrity whitelist for this lookup.
	NoIntegrity
)

func (f OpenFlags) filter() searchpath.Filter {
	switch {
	case f&NoPack != 0:
		return searchpath.FilterNoPack
	case f&CullLocalized != 0:
		return searchpath.FilterCullLocalized
	case f&CullLocalizedAny != 0:
		return searchpath.FilterCullLocalizedAny
	case f&PackOnly != 0:
		return searchpath.FilterPackOnly
	default:
		return searchpath.FilterNone
	}
}

// Source is where a resolved file lives.
type Source int

// Sources.
const (
	SourceDisk Source = iota
	SourcePack
	SourceChunked
)

func (s Source) String() string {
	switch s {
	case SourceDisk:
		return "disk"
	case SourcePack:
		return "pack"
	case SourceChunked:
		return "chunked"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// FindResult describes a resolved file.
type FindResult struct {
	Name    string // Relative name that was resolved
	Path    string // Absolute path, inside the archive for archived files
	PathID  string // Path ID of the search path that served it
	Source  Source
	Archive string // Archive path for archived files
	Size    int64
}

// hit is a resolved file holding whatever resources opening it needs.
type hit struct {
	FindResult

	ref      *searchpath.Ref // Acquired for archived files
	entry    packfile.Entry
	chunk    *chunked.File
	lookupID string // Path ID the lookup asked for, keying integrity records
	trusted  bool
	forced   bool
	tracked  bool // Subject to integrity tracking
}

func (h *hit) release() {
	if h.chunk != nil {
		_ = h.chunk.Close()
		h.chunk = nil
	}
	if h.ref != nil {
		_ = h.ref.Release()
		h.ref = nil
	}
}

// resolve finds name and returns a hit owning one archive reference for
// archived files.
func (fs *FileSystem) resolve(name, pathID string, flags OpenFlags) (*hit, error) {
	if fs.shutdown.Load() {
		return nil, ErrShutdown
	}
	name = fs.symlinks.rewrite(name)
	rel, id := fs.splitPathID(name, pathID)
	if isAbsolute(rel) {
		return fs.resolveAbsolute(rel)
	}

	rel = cleanRelative(rel)
	if rel == "" {
		return nil, notFound(name, id)
	}
	if !fs.fitsPlatform(rel) {
		fs.log.Debug("name exceeds platform limit", zap.String("name", rel))
		return nil, notFound(rel, id)
	}

	key := missKey{name: strings.ToLower(rel), pathID: strings.ToLower(id), flags: flags}
	if fs.missing != nil && fs.missing.Contains(key) {
		fs.metrics.Miss()
		return nil, notFound(rel, id)
	}

	allowDisk := flags&NoIntegrity != 0 || fs.tracker.AllowFromDisk(rel)
	h, forced := fs.walk(rel, id, flags, allowDisk)
	if h != nil {
		h.Name = rel
		h.lookupID = id
		h.forced = forced
		h.tracked = flags&NoIntegrity == 0
		return h, nil
	}

	if forced {
		fs.tracker.RecordLoad(id, rel, integrity.LoadInfo{Forced: true, Failed: true})
	} else if fs.missing != nil {
		fs.missing.Add(key, struct{}{})
	}
	fs.metrics.Miss()
	return nil, notFound(rel, id)
}

// walk scans the search paths. forced reports that a disk copy was skipped
// because policy requires a trusted archive.
func (fs *FileSystem) walk(rel, pathID string, flags OpenFlags, allowDisk bool) (*hit, bool) {
	q := searchpath.Query{
		Name:    rel,
		PathID:  pathID,
		Filter:  flags.filter(),
		DVDDev:  fs.platform.SupportsFallbackMedium(),
		Exclude: fs.exclude,
	}

	if fs.platform.ExpensiveDirectoryScans() && flags&NoPack == 0 {
		it := fs.paths.Iterate(q)
		for e, ok := it.Next(); ok; e, ok = it.Next() {
			if !e.IsChunked() {
				continue
			}
			if h := fs.findChunked(e, rel); h != nil {
				return h, false
			}
		}
	}

	forced := false
	it := fs.paths.Iterate(q)
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		var h *hit
		switch {
		case e.IsPack():
			h = fs.findPack(e.Archive, rel)
		case e.IsChunked():
			h = fs.findChunked(e, rel)
		default:
			h = fs.findDisk(e, rel, flags)
			if h != nil && h.Source == SourceDisk && !allowDisk {
				fs.log.Debug("disk copy skipped by integrity policy", zap.String("path", h.Path))
				h.release()
				h, forced = nil, true
			}
		}
		if h != nil {
			h.PathID = fs.names.Text(e.PathID)
			return h, forced
		}
	}
	return nil, forced
}

func (fs *FileSystem) findPack(ref *searchpath.Ref, rel string) *hit {
	a := ref.Pack()
	pe, ok := a.Find(rel)
	if !ok {
		return nil
	}
	if err := ref.Acquire(); err != nil {
		return nil
	}
	return &hit{
		FindResult: FindResult{
			Path:    ref.Name() + "/" + pe.Name,
			Source:  SourcePack,
			Archive: ref.Name(),
			Size:    pe.Length,
		},
		ref:     ref,
		entry:   pe,
		trusted: true,
	}
}

func (fs *FileSystem) findChunked(e *searchpath.Entry, rel string) *hit {
	ref := e.Archive
	if err := ref.Acquire(); err != nil {
		return nil
	}
	f, err := ref.Chunked().Find(rel)
	if err != nil {
		if !errors.Is(err, chunked.ErrNotFound) {
			fs.log.Debug("chunked lookup failed", zap.String("archive", ref.Name()), zap.Error(err))
		}
		_ = ref.Release()
		return nil
	}
	return &hit{
		FindResult: FindResult{
			Path:    ref.Name() + "/" + rel,
			PathID:  fs.names.Text(e.PathID),
			Source:  SourceChunked,
			Archive: ref.Name(),
			Size:    f.Size(),
		},
		ref:     ref,
		chunk:   f,
		trusted: true,
	}
}

func (fs *FileSystem) findDisk(e *searchpath.Entry, rel string, flags OpenFlags) *hit {
	if level, inner, ok := splitLevel(rel); ok && flags&NoPack == 0 {
		if h := fs.findInLevel(e.Path+level, inner); h != nil {
			return h
		}
	}
	if flags&PackOnly != 0 {
		return nil
	}
	p := e.Path + rel
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	return &hit{FindResult: FindResult{Path: p, Source: SourceDisk, Size: info.Size()}}
}

// findInLevel serves inner from the pakfile lump of the level at p.
func (fs *FileSystem) findInLevel(p, inner string) *hit {
	if info, err := os.Stat(p); err != nil || !info.Mode().IsRegular() {
		return nil
	}
	ref, err := fs.pinned(p, archive.KindLevel)
	if err != nil {
		fs.warnMount(&MountError{Path: p, Err: err})
		return nil
	}
	return fs.findPack(ref, inner)
}

// splitLevel splits "maps/x.bsp/inner" into the level and the inner name.
func splitLevel(rel string) (level, inner string, ok bool) {
	const marker = ".bsp/"
	i := strings.Index(strings.ToLower(rel), marker)
	if i <= 0 || i+len(marker) == len(rel) {
		return "", "", false
	}
	return rel[:i+len(marker)-1], rel[i+len(marker):], true
}

// resolveAbsolute opens an absolute path, reaching inside a pack file, level
// or chunked archive named by an embedded marker.
func (fs *FileSystem) resolveAbsolute(name string) (*hit, error) {
	name = cleanPath(name)
	ap, err := archive.ParsePath(name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}
	if ap != nil && ap.InternalPath != "" {
		return fs.resolveInArchive(ap)
	}

	info, err := os.Stat(name)
	if err != nil || !info.Mode().IsRegular() {
		fs.metrics.Miss()
		return nil, notFound(name, "")
	}
	return &hit{FindResult: FindResult{Name: name, Path: name, Source: SourceDisk, Size: info.Size()}}, nil
}

func (fs *FileSystem) resolveInArchive(ap *archive.Path) (*hit, error) {
	switch ap.Kind {
	case archive.KindPack, archive.KindLevel, archive.KindChunked:
	default:
		return nil, &MountError{Path: ap.ArchivePath, Err: archive.FormatError{Format: ap.Kind.String(), Reason: "not mountable"}}
	}
	ref, err := fs.pinned(ap.ArchivePath, ap.Kind)
	if err != nil {
		me := &MountError{Path: ap.ArchivePath, Err: err}
		fs.warnMount(me)
		return nil, me
	}

	var h *hit
	if ref.Chunked() != nil {
		h = fs.findChunked(&searchpath.Entry{Archive: ref}, ap.InternalPath)
	} else {
		h = fs.findPack(ref, ap.InternalPath)
	}
	if h == nil {
		fs.metrics.Miss()
		return nil, notFound(ap.ArchivePath+"/"+ap.InternalPath, "")
	}
	h.Name = ap.InternalPath
	return h, nil
}

// Find resolves name without opening it.
func (fs *FileSystem) Find(name, pathID string, flags OpenFlags) (FindResult, error) {
	h, err := fs.resolve(name, pathID, flags)
	if err != nil {
		return FindResult{}, err
	}
	defer h.release()
	return h.FindResult, nil
}

// FullPath returns the absolute path of name, which is inside an archive for
// archived files.
func (fs *FileSystem) FullPath(name, pathID string) (string, error) {
	r, err := fs.Find(name, pathID, 0)
	if err != nil {
		return "", err
	}
	return r.Path, nil
}

// Exists reports whether name resolves.
func (fs *FileSystem) Exists(name, pathID string) bool {
	_, err := fs.Find(name, pathID, 0)
	return err == nil
}

// Size returns the length of name.
func (fs *FileSystem) Size(name, pathID string) (int64, error) {
	r, err := fs.Find(name, pathID, 0)
	if err != nil {
		return 0, err
	}
	return r.Size, nil
}
