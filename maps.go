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
	"go.uber.org/zap"

	"github.com/ZaparooProject/go-gamefs/archive"
	"github.com/ZaparooProject/go-gamefs/searchpath"
)

// MapPathID is the path ID the current level's pakfile is mounted under.
const MapPathID = "GAME"

// AddMapPack mounts the pakfile lump of the level at levelPath ahead of every
// other search path, replacing the previous level's.
func (fs *FileSystem) AddMapPack(levelPath string) error {
	if fs.shutdown.Load() {
		return ErrShutdown
	}
	fs.beginMutation()

	abs, err := fs.absMountPath(levelPath)
	if err != nil {
		return err
	}
	target := cleanPath(abs)
	fs.paths.RemoveIf(func(e *searchpath.Entry) bool { return e.Has(searchpath.FlagMapArchive) })

	ref, err := fs.acquire(target, archive.KindLevel)
	if err != nil {
		me := &MountError{Path: target, Err: err}
		fs.warnMount(me)
		fs.setMapRef(nil)
		return me
	}
	fs.setMapRef(ref)
	fs.paths.Add(searchpath.Entry{
		Path:    target,
		PathID:  fs.paths.Intern(MapPathID),
		Archive: ref,
		Flags:   searchpath.FlagMapArchive,
	}, searchpath.Head)
	fs.log.Info("map pack mounted", zap.String("level", target))
	return nil
}

// RemoveMapPack unmounts the current level's pakfile.
func (fs *FileSystem) RemoveMapPack() bool {
	fs.beginMutation()
	fs.setMapRef(nil)
	return fs.paths.RemoveIf(func(e *searchpath.Entry) bool { return e.Has(searchpath.FlagMapArchive) }) > 0
}

// MapPack returns the path of the mounted level, or "".
func (fs *FileSystem) MapPack() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.mapRef == nil {
		return ""
	}
	return fs.mapRef.Name()
}

// setMapRef records the current level. While map access is held the pin
// moves to a newly mounted level; an unmounted level stays pinned until
// EndMapAccess.
func (fs *FileSystem) setMapRef(ref *searchpath.Ref) {
	fs.mu.Lock()
	fs.mapRef = ref
	var old *searchpath.Ref
	if ref != nil && fs.mapAccess > 0 {
		old, fs.mapPin = fs.mapPin, nil
		if ref.Acquire() == nil {
			fs.mapPin = ref
		}
	}
	fs.mu.Unlock()
	if old != nil {
		_ = old.Release()
	}
}

// BeginMapAccess keeps the current level's backing file open until the
// matching EndMapAccess, even if the level is unmounted in between. Calls
// nest.
func (fs *FileSystem) BeginMapAccess() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.mapAccess++
	if fs.mapAccess == 1 && fs.mapRef != nil && fs.mapRef.Acquire() == nil {
		fs.mapPin = fs.mapRef
	}
}

// EndMapAccess ends one BeginMapAccess.
func (fs *FileSystem) EndMapAccess() {
	fs.mu.Lock()
	if fs.mapAccess == 0 {
		fs.mu.Unlock()
		fs.log.Warn("unbalanced map access")
		return
	}
	fs.mapAccess--
	var pin *searchpath.Ref
	if fs.mapAccess == 0 {
		pin, fs.mapPin = fs.mapPin, nil
	}
	fs.mu.Unlock()
	if pin != nil {
		_ = pin.Release()
	}
}
