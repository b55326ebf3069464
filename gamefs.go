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

// Package gamefs resolves logical asset names against a priority-ordered list
// of directories, pack files and chunked content archives.
//
// A FileSystem owns its search path list, the archives mounted on it, the
// integrity tracker and the open-handle table. Lookups and reads may run
// concurrently from many goroutines; search path mutation is expected from
// one goroutine and runs the FinishAsync barrier first.
package gamefs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/ZaparooProject/go-gamefs/archive"
	"github.com/ZaparooProject/go-gamefs/chunked"
	"github.com/ZaparooProject/go-gamefs/filehandle"
	"github.com/ZaparooProject/go-gamefs/integrity"
	"github.com/ZaparooProject/go-gamefs/metrics"
	"github.com/ZaparooProject/go-gamefs/nametable"
	"github.com/ZaparooProject/go-gamefs/packfile"
	"github.com/ZaparooProject/go-gamefs/prefetch"
	"github.com/ZaparooProject/go-gamefs/searchpath"
)

type missKey struct {
	name   string
	pathID string
	flags  OpenFlags
}

// FileSystem is the resolver context.
type FileSystem struct {
	log        *zap.Logger
	platform   Platform
	names      *nametable.Table
	paths      *searchpath.List
	tracker    *integrity.Tracker
	handles    *filehandle.Table
	metrics    metrics.Recorder
	prefetcher *prefetch.Prefetcher
	missing    *lru.Cache[missKey, struct{}]
	exclude    *searchpath.ExcludeList
	symlinks   symlinks
	finish     func()

	writePathID   string
	language      string
	preloadBudget int64

	mu        sync.Mutex
	archives  map[string]*searchpath.Ref
	pins      map[string]*searchpath.Ref
	warned    map[string]struct{}
	mapRef    *searchpath.Ref
	mapPin    *searchpath.Ref
	mapAccess int

	shutdown atomic.Bool
}

// New creates an empty filesystem.
func New(opts ...Option) (*FileSystem, error) {
	c := defaultCfg()
	for _, o := range opts {
		o(c)
	}

	fs := &FileSystem{
		log:      c.log,
		platform: c.platform,
		names:    c.names,
		paths: searchpath.NewList(
			searchpath.WithLogger(c.log),
			searchpath.WithNameTable(c.names)),
		tracker: integrity.NewTracker(
			integrity.WithLogger(c.log),
			integrity.WithNameTable(c.names),
			integrity.WithWhitelist(c.whitelist)),
		handles:       filehandle.NewTable(c.log),
		metrics:       c.metrics,
		prefetcher:    c.prefetcher,
		exclude:       c.exclude,
		symlinks:      newSymlinks(c.symlinks),
		finish:        c.finishAsync,
		writePathID:   c.writePathID,
		language:      c.language,
		preloadBudget: c.preloadBudget,
		archives:      make(map[string]*searchpath.Ref),
		pins:          make(map[string]*searchpath.Ref),
		warned:        make(map[string]struct{}),
	}
	if c.missingSize > 0 {
		cache, err := lru.New[missKey, struct{}](c.missingSize)
		if err != nil {
			return nil, fmt.Errorf("create missing file cache: %w", err)
		}
		fs.missing = cache
	}
	if fs.finish == nil {
		fs.finish = fs.waitPrefetch
	}

	fs.log.Debug("filesystem created",
		zap.String("platform", fs.platform.Name()),
		zap.Int("missing_cache", c.missingSize),
		zap.Int("excluded", c.exclude.Len()))
	return fs, nil
}

// Platform returns the platform strategy.
func (fs *FileSystem) Platform() Platform { return fs.platform }

// Tracker returns the integrity tracker.
func (fs *FileSystem) Tracker() *integrity.Tracker { return fs.tracker }

// OpenHandles returns the names of handles not yet closed.
func (fs *FileSystem) OpenHandles() []string { return fs.handles.Names() }

// FinishAsync runs the barrier that drains outstanding asynchronous work.
func (fs *FileSystem) FinishAsync() { fs.finish() }

func (fs *FileSystem) waitPrefetch() {
	if fs.prefetcher == nil {
		return
	}
	if err := fs.prefetcher.Wait(context.Background()); err != nil {
		fs.log.Warn("wait for prefetch", zap.Error(err))
	}
}

// beginMutation drains async work and forgets cached misses.
func (fs *FileSystem) beginMutation() {
	fs.finish()
	fs.purgeMissing()
}

func (fs *FileSystem) purgeMissing() {
	if fs.missing != nil {
		fs.missing.Purge()
	}
}

// warnMount reports a mount failure once per archive path.
func (fs *FileSystem) warnMount(err *MountError) {
	fs.metrics.MountFailure()
	key := strings.ToLower(err.Path)
	fs.mu.Lock()
	_, seen := fs.warned[key]
	fs.warned[key] = struct{}{}
	fs.mu.Unlock()
	if seen {
		fs.log.Debug("mount failed again", zap.String("path", err.Path), zap.Error(err.Err))
		return
	}
	fs.log.Warn("unable to mount search path", zap.String("path", err.Path), zap.Error(err.Err))
}

func (fs *FileSystem) packOptions() []packfile.Option {
	return []packfile.Option{
		packfile.WithLogger(fs.log),
		packfile.WithPreloadBudget(fs.preloadBudget),
		packfile.WithConsoleLayout(fs.platform.ConsoleArchives()),
		packfile.WithPreloadHitHook(fs.metrics.PreloadHit),
	}
}

func openArchive(fs *FileSystem, path string, kind archive.Kind) (*searchpath.Ref, error) {
	switch kind {
	case archive.KindPack:
		a, err := packfile.Open(path, fs.packOptions()...)
		if err != nil {
			return nil, err //nolint:wrapcheck // Wrapped in MountError by the caller
		}
		return searchpath.NewPackRef(a), nil
	case archive.KindLevel:
		a, err := packfile.OpenLevel(path, fs.packOptions()...)
		if err != nil {
			return nil, err //nolint:wrapcheck // Wrapped in MountError by the caller
		}
		return searchpath.NewPackRef(a), nil
	case archive.KindChunked:
		a, err := chunked.OpenVPK(path, chunked.WithLogger(fs.log))
		if err != nil {
			return nil, err //nolint:wrapcheck // Wrapped in MountError by the caller
		}
		return searchpath.NewChunkedRef(a), nil
	default:
		return nil, archive.FormatError{Format: kind.String(), Reason: "not mountable"}
	}
}

func archiveKey(path string) string {
	return strings.ToLower(cleanPath(path))
}

// acquire returns a reference to the archive at path, sharing an archive
// that is already open under any path ID.
func (fs *FileSystem) acquire(path string, kind archive.Kind) (*searchpath.Ref, error) {
	if kind == archive.KindChunked {
		path = chunked.BaseName(path)
	}
	key := archiveKey(path)

	if r := fs.shared(key); r != nil {
		return r, nil
	}
	ref, err := openArchive(fs, path, kind)
	if err != nil {
		return nil, err
	}
	ref.OnClose(func(r *searchpath.Ref) {
		fs.mu.Lock()
		if fs.archives[key] == r {
			delete(fs.archives, key)
		}
		fs.mu.Unlock()
		fs.log.Debug("archive closed", zap.String("archive", r.Name()))
	})

	fs.mu.Lock()
	if r, ok := fs.archives[key]; ok && r.Acquire() == nil {
		fs.mu.Unlock()
		_ = ref.Release()
		return r, nil
	}
	fs.archives[key] = ref
	fs.mu.Unlock()
	return ref, nil
}

func (fs *FileSystem) shared(key string) *searchpath.Ref {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if r, ok := fs.archives[key]; ok && r.Acquire() == nil {
		return r
	}
	return nil
}

// pinned returns an archive opened by absolute path, kept open until
// Shutdown. The caller does not own a reference.
func (fs *FileSystem) pinned(path string, kind archive.Kind) (*searchpath.Ref, error) {
	key := archiveKey(path)
	fs.mu.Lock()
	r, ok := fs.pins[key]
	fs.mu.Unlock()
	if ok {
		return r, nil
	}

	ref, err := fs.acquire(path, kind)
	if err != nil {
		return nil, err
	}
	fs.mu.Lock()
	if r, ok := fs.pins[key]; ok {
		fs.mu.Unlock()
		_ = ref.Release()
		return r, nil
	}
	fs.pins[key] = ref
	fs.mu.Unlock()
	return ref, nil
}

// Shutdown drains prefetching, unmounts every search path in reverse
// creation order, closes pinned archives and reports leaked handles. The
// filesystem must not be used afterwards.
func (fs *FileSystem) Shutdown(ctx context.Context) error {
	if fs.shutdown.Swap(true) {
		return ErrShutdown
	}

	var errs []error
	if fs.prefetcher != nil {
		if err := fs.prefetcher.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
		fs.prefetcher.Release()
	}

	fs.paths.Clear()

	fs.mu.Lock()
	pins := make([]*searchpath.Ref, 0, len(fs.pins)+1)
	for _, r := range fs.pins {
		pins = append(pins, r)
	}
	if fs.mapPin != nil {
		pins = append(pins, fs.mapPin)
	}
	fs.pins = make(map[string]*searchpath.Ref)
	fs.mapPin, fs.mapRef, fs.mapAccess = nil, nil, 0
	fs.mu.Unlock()
	for _, r := range pins {
		if err := r.Release(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", r.Name(), err))
		}
	}

	leaked := fs.handles.ReportLeaks()
	fs.log.Info("filesystem shut down", zap.Int("leaked_handles", leaked))
	return errors.Join(errs...)
}
