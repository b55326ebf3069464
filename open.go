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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-gamefs/filehandle"
	"github.com/ZaparooProject/go-gamefs/integrity"
	"github.com/ZaparooProject/go-gamefs/prefetch"
)

// Mode is an open mode.
type Mode int

// Open modes.
const (
	ModeRead Mode = iota
	ModeWrite
	ModeAppend
	ModeReadWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	case ModeAppend:
		return "a"
	case ModeReadWrite:
		return "r+"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) writes() bool { return m != ModeRead }

// ParseMode accepts C stdio style modes such as "rb", "wb", "ab" and "r+b".
// "t" and "b" are ignored.
func ParseMode(s string) (Mode, error) {
	m := strings.NewReplacer("b", "", "t", "").Replace(strings.ToLower(s))
	switch m {
	case "r":
		return ModeRead, nil
	case "w", "w+":
		return ModeWrite, nil
	case "a", "a+":
		return ModeAppend, nil
	case "r+":
		return ModeReadWrite, nil
	default:
		return ModeRead, fmt.Errorf("unknown open mode %q", s)
	}
}

// Open resolves name for reading.
func (fs *FileSystem) Open(name, pathID string, flags OpenFlags) (*filehandle.Handle, error) {
	return fs.OpenFile(name, ModeRead, pathID, flags)
}

// OpenFile opens name in mode. Reads walk the search paths; writes go to the
// single directory chosen by WritePath.
func (fs *FileSystem) OpenFile(name string, mode Mode, pathID string, flags OpenFlags) (*filehandle.Handle, error) {
	if mode.writes() {
		return fs.openWrite(name, mode, pathID)
	}

	h, err := fs.resolve(name, pathID, flags)
	if err != nil {
		return nil, err
	}
	fh, err := fs.handleFor(h)
	if err != nil {
		h.release()
		return nil, err
	}
	if h.tracked {
		if err := fs.checkIntegrity(fh, h); err != nil {
			_ = fh.Close()
			return nil, err
		}
	}
	return fh, nil
}

// handleFor turns a hit into a tracked handle that takes over its resources.
func (fs *FileSystem) handleFor(h *hit) (*filehandle.Handle, error) {
	opts := []filehandle.Option{
		filehandle.WithName(h.Path),
		filehandle.WithReadObserver(fs.observeRead),
		filehandle.WithSeekObserver(fs.metrics.Seek),
	}

	var fh *filehandle.Handle
	switch h.Source {
	case SourceDisk:
		f, err := os.Open(h.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", h.Path, err)
		}
		fh, err = filehandle.FromFile(f, false, opts...)
		if err != nil {
			_ = f.Close()
			return nil, err //nolint:wrapcheck // Already carries the file name
		}
	case SourcePack:
		ref := h.ref
		fh = filehandle.FromPack(ref.Pack(), h.entry, append(opts, filehandle.WithRelease(func() { _ = ref.Release() }))...)
	case SourceChunked:
		ref := h.ref
		fh = filehandle.FromChunked(h.chunk, append(opts, filehandle.WithRelease(func() { _ = ref.Release() }))...)
	}
	h.ref, h.chunk = nil, nil

	fs.handles.Track(fh)
	fs.metrics.Open(fh.Kind().String())
	return fh, nil
}

func (fs *FileSystem) observeRead(kind filehandle.Kind, n int) {
	fs.metrics.Read(kind.String(), n)
}

// checkIntegrity fingerprints files the whitelist wants hashed, verifies them
// against earlier trusted loads from the same source and records the load.
func (fs *FileSystem) checkIntegrity(fh *filehandle.Handle, h *hit) error {
	var sum integrity.Sum
	if fs.tracker.WantHash(h.Name) {
		var err error
		sum, err = integrity.Fingerprint(io.NewSectionReader(fh, 0, fh.Size()))
		if err != nil {
			return fmt.Errorf("fingerprint %s: %w", h.Path, err)
		}
		if err := fs.tracker.Verify(h.lookupID, h.Name, h.Path, sum); err != nil {
			return err //nolint:wrapcheck // MismatchError is the caller-facing type
		}
	}
	fs.tracker.RecordLoad(h.lookupID, h.Name, integrity.LoadInfo{
		Source:      h.Path,
		Fingerprint: sum,
		Trusted:     h.trusted,
		Forced:      h.forced,
	})
	return nil
}

// WritePath returns the directory that takes writes for pathID: the first
// directory under pathID, else under the default write path ID, else the
// first mounted directory.
func (fs *FileSystem) WritePath(pathID string) (string, error) {
	entries := fs.paths.Entries()
	for _, id := range []string{pathID, fs.writePathID} {
		if id == "" {
			continue
		}
		sym := fs.paths.Intern(id)
		for _, e := range entries {
			if e.IsDirectory() && e.PathID == sym {
				return e.Path, nil
			}
		}
	}
	for _, e := range entries {
		if e.IsDirectory() {
			return e.Path, nil
		}
	}
	return "", ErrNoWritePath
}

func (fs *FileSystem) openWrite(name string, mode Mode, pathID string) (*filehandle.Handle, error) {
	if fs.shutdown.Load() {
		return nil, ErrShutdown
	}
	name = fs.symlinks.rewrite(name)
	rel, id := fs.splitPathID(name, pathID)

	var p string
	if isAbsolute(rel) {
		p = filepath.ToSlash(filepath.Clean(rel))
	} else {
		rel = cleanRelative(rel)
		if rel == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		dir, err := fs.WritePath(id)
		if err != nil {
			return nil, err
		}
		p = dir + rel
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return nil, fmt.Errorf("create parent of %s: %w", p, err)
	}
	flag := os.O_RDWR | os.O_CREATE
	switch mode {
	case ModeWrite:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case ModeAppend:
		flag = os.O_WRONLY | os.O_CREATE
	case ModeRead, ModeReadWrite:
	}
	f, err := os.OpenFile(p, flag, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %s for write: %w", p, err)
	}
	fh, err := filehandle.FromFile(f, true,
		filehandle.WithReadObserver(fs.observeRead),
		filehandle.WithSeekObserver(fs.metrics.Seek))
	if err != nil {
		_ = f.Close()
		return nil, err //nolint:wrapcheck // Already carries the file name
	}
	if mode == ModeAppend {
		if _, err := fh.Seek(0, io.SeekEnd); err != nil {
			_ = fh.Close()
			return nil, err //nolint:wrapcheck // Already carries the file name
		}
	}

	fs.purgeMissing()
	fs.handles.Track(fh)
	fs.metrics.Open(fh.Kind().String())
	fs.log.Debug("opened for write", zap.String("path", p), zap.Stringer("mode", mode))
	return fh, nil
}

// Prefetch reads name in the background so later opens find it in the OS
// cache. Duplicates and failures are harmless.
func (fs *FileSystem) Prefetch(ctx context.Context, name, pathID string, priority int) (*prefetch.Ticket, error) {
	if fs.prefetcher == nil {
		return nil, ErrNoPrefetcher
	}
	if fs.shutdown.Load() {
		return nil, ErrShutdown
	}
	return fs.prefetcher.Submit(ctx, prefetch.Request{
		Name:     name,
		PathID:   pathID,
		Priority: priority,
		Load: func(context.Context) error {
			fh, err := fs.Open(name, pathID, 0)
			if err != nil {
				return err
			}
			_, err = io.Copy(io.Discard, fh)
			if cerr := fh.Close(); err == nil {
				err = cerr
			}
			return err //nolint:wrapcheck // Reported through the ticket
		},
	}), nil
}
