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
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-gamefs/archive"
	"github.com/ZaparooProject/go-gamefs/chunked"
	"github.com/ZaparooProject/go-gamefs/searchpath"
)

const (
	packFilePattern = "zip%d.zip"
	dirChunkedName  = "pak01_dir.vpk"
)

// SearchPathInfo describes one mounted search path.
type SearchPathInfo struct {
	Path    string
	PathID  string
	StoreID int
	Kind    archive.Kind
	Flags   searchpath.Flags
	Refs    int
}

// mountTarget maps a mount path to the path recorded in its entry and the
// kind of container behind it.
func mountTarget(p string) (string, archive.Kind) {
	if chunked.IsDirectoryFile(p) {
		return cleanPath(chunked.BaseName(p)), archive.KindChunked
	}
	switch kind := archive.KindOf(p); kind {
	case archive.KindPack, archive.KindLevel:
		return cleanPath(p), kind
	case archive.KindChunked:
		return cleanPath(chunked.BaseName(p)), kind
	default:
		return searchpath.NormalizePath(p), archive.KindNone
	}
}

func (fs *FileSystem) absMountPath(p string) (string, error) {
	p = fs.symlinks.rewrite(p)
	abs, err := filepath.Abs(filepath.FromSlash(slashes(p)))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return filepath.ToSlash(abs), nil
}

func (fs *FileSystem) entryFlags(p string) searchpath.Flags {
	if searchpath.IsLocalizedPath(p, fs.language) {
		return searchpath.FlagLocalized
	}
	return 0
}

// AddSearchPath mounts a directory, pack file (.zip), level (.bsp) or
// chunked archive (_dir.vpk) under pathID. Directories also mount their
// pak01_dir.vpk and zipN.zip pack files. A pack file that cannot be parsed
// is left out with a warning and a *MountError.
func (fs *FileSystem) AddSearchPath(p, pathID string, mode searchpath.InsertMode) error {
	return fs.addSearchPath(p, pathID, mode, 0)
}

// AddFallbackPath mounts the writable developer mirror of a read-only
// medium. It is consulted only for excluded files on platforms with a
// fallback medium.
func (fs *FileSystem) AddFallbackPath(p, pathID string, mode searchpath.InsertMode) error {
	return fs.addSearchPath(p, pathID, mode, searchpath.FlagDevFallback)
}

func (fs *FileSystem) addSearchPath(p, pathID string, mode searchpath.InsertMode, flags searchpath.Flags) error {
	if fs.shutdown.Load() {
		return ErrShutdown
	}
	fs.beginMutation()

	abs, err := fs.absMountPath(p)
	if err != nil {
		return err
	}
	target, kind := mountTarget(abs)
	flags |= fs.entryFlags(abs)
	if kind != archive.KindNone {
		return fs.mountArchive(target, pathID, kind, flags, mode)
	}
	return fs.mountDirectory(target, pathID, flags, mode)
}

// AddPackFile mounts a single pack file or level.
func (fs *FileSystem) AddPackFile(p, pathID string, mode searchpath.InsertMode) error {
	if fs.shutdown.Load() {
		return ErrShutdown
	}
	fs.beginMutation()

	abs, err := fs.absMountPath(p)
	if err != nil {
		return err
	}
	kind := archive.KindOf(abs)
	if kind != archive.KindPack && kind != archive.KindLevel {
		return &MountError{Path: abs, Err: archive.FormatError{Format: filepath.Ext(abs), Reason: "not a pack file"}}
	}
	return fs.mountArchive(cleanPath(abs), pathID, kind, fs.entryFlags(abs), mode)
}

// AddChunkedArchive mounts the chunked archive with the given base path or
// directory file.
func (fs *FileSystem) AddChunkedArchive(base, pathID string, mode searchpath.InsertMode) error {
	if fs.shutdown.Load() {
		return ErrShutdown
	}
	fs.beginMutation()

	abs, err := fs.absMountPath(base)
	if err != nil {
		return err
	}
	return fs.mountArchive(cleanPath(chunked.BaseName(abs)), pathID, archive.KindChunked, fs.entryFlags(abs), mode)
}

// AddPackFiles mounts dir/zip0.zip, dir/zip1.zip and so on up to the first
// missing number. Higher numbers take priority. It returns how many were
// mounted.
func (fs *FileSystem) AddPackFiles(dir, pathID string, mode searchpath.InsertMode) (int, error) {
	if fs.shutdown.Load() {
		return 0, ErrShutdown
	}
	fs.beginMutation()

	abs, err := fs.absMountPath(dir)
	if err != nil {
		return 0, err
	}
	group := fs.packGroup(searchpath.NormalizePath(abs), pathID, fs.entryFlags(abs))
	return fs.paths.AddGroup(group, mode), nil
}

func (fs *FileSystem) mountArchive(target, pathID string, kind archive.Kind, flags searchpath.Flags,
	mode searchpath.InsertMode,
) error {
	ref, err := fs.acquire(target, kind)
	if err != nil {
		me := &MountError{Path: target, Err: err}
		fs.warnMount(me)
		return me
	}
	fs.paths.Add(searchpath.Entry{
		Path:    target,
		PathID:  fs.paths.Intern(pathID),
		Archive: ref,
		Flags:   flags,
	}, mode)
	return nil
}

func (fs *FileSystem) mountDirectory(dir, pathID string, flags searchpath.Flags, mode searchpath.InsertMode) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fs.log.Debug("mounting missing directory", zap.String("path", dir))
	case err != nil:
		return &MountError{Path: dir, Err: err}
	case !info.IsDir():
		return &MountError{Path: dir, Err: archive.FormatError{Format: filepath.Ext(strings.TrimSuffix(dir, "/"))}}
	}

	e := searchpath.Entry{Path: dir, PathID: fs.paths.Intern(pathID), Flags: flags}
	var group []searchpath.Entry
	if ref := fs.dirChunked(dir); ref != nil {
		group = append(group, searchpath.Entry{
			Path:    cleanPath(chunked.BaseName(dir + dirChunkedName)),
			PathID:  e.PathID,
			Archive: ref,
			Flags:   flags,
		})
	}
	packs := fs.packGroup(dir, pathID, flags)
	if fs.platform.ConsoleArchives() {
		group = append(packs, append(group, e)...)
	} else {
		group = append(append(group, e), packs...)
	}
	fs.paths.AddGroup(group, mode)
	return nil
}

// dirChunked mounts the directory's own chunked archive when present.
func (fs *FileSystem) dirChunked(dir string) *searchpath.Ref {
	p := dir + dirChunkedName
	if _, err := os.Stat(p); err != nil {
		return nil
	}
	ref, err := fs.acquire(p, archive.KindChunked)
	if err != nil {
		fs.warnMount(&MountError{Path: p, Err: err})
		return nil
	}
	return ref
}

// packGroup opens zip0..zipN in dir and returns their entries with zipN
// first.
func (fs *FileSystem) packGroup(dir, pathID string, flags searchpath.Flags) []searchpath.Entry {
	sym := fs.paths.Intern(pathID)
	var group []searchpath.Entry
	for i := 0; ; i++ {
		p := dir + fmt.Sprintf(packFilePattern, i)
		if _, err := os.Stat(p); err != nil {
			break
		}
		ref, err := fs.acquire(p, archive.KindPack)
		if err != nil {
			fs.warnMount(&MountError{Path: p, Err: err})
			continue
		}
		group = append([]searchpath.Entry{{Path: p, PathID: sym, Archive: ref, Flags: flags}}, group...)
	}
	return group
}

// HasSearchPath reports whether p is mounted under pathID.
func (fs *FileSystem) HasSearchPath(p, pathID string) bool {
	abs, err := fs.absMountPath(p)
	if err != nil {
		return false
	}
	target, _ := mountTarget(abs)
	return fs.paths.Contains(target, pathID)
}

// SearchPathIndex returns the list position of the mount that added p under
// pathID, or -1 when p is not mounted. For a directory this is the position
// of the first archive mounted alongside it.
func (fs *FileSystem) SearchPathIndex(p, pathID string) int {
	abs, err := fs.absMountPath(p)
	if err != nil {
		return -1
	}
	target, _ := mountTarget(abs)
	return fs.paths.GroupIndex(target, pathID)
}

// RemoveSearchPath unmounts p from pathID and reports whether it was mounted.
func (fs *FileSystem) RemoveSearchPath(p, pathID string) bool {
	abs, err := fs.absMountPath(p)
	if err != nil {
		return false
	}
	fs.beginMutation()
	target, _ := mountTarget(abs)
	return fs.paths.Remove(target, pathID)
}

// RemoveSearchPaths unmounts every search path under pathID.
func (fs *FileSystem) RemoveSearchPaths(pathID string) int {
	fs.beginMutation()
	return fs.paths.RemovePathID(pathID)
}

// MarkPathIDByRequestOnly sets whether pathID is searched only by lookups
// that name it.
func (fs *FileSystem) MarkPathIDByRequestOnly(pathID string, requestOnly bool) {
	fs.beginMutation()
	fs.paths.MarkRequestOnly(pathID, requestOnly)
}

// SearchPaths lists the search paths under pathID in priority order, or all
// of them when pathID is empty.
func (fs *FileSystem) SearchPaths(pathID string) []SearchPathInfo {
	var out []SearchPathInfo
	for _, e := range fs.paths.Entries() {
		id := fs.names.Text(e.PathID)
		if pathID != "" && !strings.EqualFold(id, pathID) {
			continue
		}
		info := SearchPathInfo{Path: e.Path, PathID: id, StoreID: e.StoreID, Flags: e.Flags}
		if e.Archive != nil {
			info.Kind = archive.KindOf(e.Path)
			if e.IsChunked() {
				info.Kind = archive.KindChunked
			}
			info.Refs = e.Archive.Refs()
		}
		out = append(out, info)
	}
	return out
}
