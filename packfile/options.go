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

import "go.uber.org/zap"

type cfg struct {
	log           *zap.Logger
	name          string
	baseOffset    int64
	preloadBudget int64
	console       bool
	onPreloadHit  func()
}

// Option configures Prepare and Open.
type Option func(*cfg)

func defaultCfg() *cfg {
	return &cfg{
		log:           zap.NewNop(),
		name:          "<memory>",
		preloadBudget: DefaultPreloadBudget,
	}
}

// WithLogger returns an option to specify the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		if l != nil {
			c.log = l
		}
	}
}

// WithName returns an option naming the archive in logs and errors.
func WithName(name string) Option {
	return func(c *cfg) {
		c.name = name
	}
}

// WithBaseOffset returns an option for archives embedded inside a host file,
// such as the pakfile lump of a level. All archive-relative positions are
// biased by offset when reading the backing store.
func WithBaseOffset(offset int64) Option {
	return func(c *cfg) {
		c.baseOffset = offset
	}
}

// WithPreloadBudget returns an option limiting the preload section size kept
// in memory. Larger sections are skipped and reads use direct I/O.
func WithPreloadBudget(n int64) Option {
	return func(c *cfg) {
		c.preloadBudget = n
	}
}

// WithConsoleLayout returns an option for console-resident archives: the
// end-of-central-directory search is bounded to the XZip comment window and
// a missing preload section is reported.
func WithConsoleLayout(v bool) Option {
	return func(c *cfg) {
		c.console = v
	}
}

// WithPreloadHitHook returns an option calling fn for every read served from
// the preload section.
func WithPreloadHitHook(fn func()) Option {
	return func(c *cfg) {
		c.onPreloadHit = fn
	}
}
