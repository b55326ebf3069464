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

// Platform captures the behavior that differs between a desktop install and
// console distribution media.
type Platform interface {
	// Name identifies the platform in logs.
	Name() string

	// SupportsFallbackMedium reports whether a writable developer mirror
	// may stand in for files excluded from the read-only medium.
	SupportsFallbackMedium() bool

	// MaxFilenameLength bounds each path component; 0 means unbounded.
	MaxFilenameLength() int

	// ConsoleArchives reports whether pack files use the console layout:
	// bounded directory search and packs shadowing loose files.
	ConsoleArchives() bool

	// ExpensiveDirectoryScans reports whether chunked archives should be
	// searched before touching any directory.
	ExpensiveDirectoryScans() bool
}

// Limits of the supported media.
const (
	pcMaxFilenameLength      = 255
	consoleMaxFilenameLength = 42
)

type pcPlatform struct{}

// PC returns the desktop platform.
func PC() Platform { return pcPlatform{} }

func (pcPlatform) Name() string                  { return "pc" }
func (pcPlatform) SupportsFallbackMedium() bool  { return false }
func (pcPlatform) MaxFilenameLength() int        { return pcMaxFilenameLength }
func (pcPlatform) ConsoleArchives() bool         { return false }
func (pcPlatform) ExpensiveDirectoryScans() bool { return false }

type consolePlatform struct {
	dvd bool
}

// Console returns the console platform. With dvd set the content is read
// from optical media with a developer fallback mirror.
func Console(dvd bool) Platform { return consolePlatform{dvd: dvd} }

func (p consolePlatform) Name() string {
	if p.dvd {
		return "console-dvd"
	}
	return "console"
}

func (p consolePlatform) SupportsFallbackMedium() bool { return p.dvd }
func (consolePlatform) MaxFilenameLength() int         { return consoleMaxFilenameLength }
func (consolePlatform) ConsoleArchives() bool          { return true }
func (consolePlatform) ExpensiveDirectoryScans() bool  { return true }

// ParsePlatform maps a configuration name to a Platform: "pc", "console" or
// "console-dvd".
func ParsePlatform(name string) (Platform, bool) {
	switch name {
	case "", "pc":
		return PC(), true
	case "console":
		return Console(false), true
	case "console-dvd", "dvd":
		return Console(true), true
	default:
		return nil, false
	}
}
