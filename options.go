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

	"github.com/ZaparooProject/go-gamefs/integrity"
	"github.com/ZaparooProject/go-gamefs/metrics"
	"github.com/ZaparooProject/go-gamefs/nametable"
	"github.com/ZaparooProject/go-gamefs/packfile"
	"github.com/ZaparooProject/go-gamefs/prefetch"
	"github.com/ZaparooProject/go-gamefs/searchpath"
)

// DefaultWritePathID is the path ID writes resolve to when none is given.
const DefaultWritePathID = "DEFAULT_WRITE_PATH"

type cfg struct {
	log           *zap.Logger
	platform      Platform
	names         *nametable.Table
	whitelist     integrity.Whitelist
	exclude       *searchpath.ExcludeList
	metrics       metrics.Recorder
	prefetcher    *prefetch.Prefetcher
	finishAsync   func()
	symlinks      []SymlinkRule
	writePathID   string
	language      string
	missingSize   int
	preloadBudget int64
}

// Option configures a FileSystem.
type Option func(*cfg)

func defaultCfg() *cfg {
	return &cfg{
		log:           zap.NewNop(),
		platform:      PC(),
		names:         nametable.Default,
		whitelist:     integrity.AllowAll{},
		metrics:       metrics.Noop{},
		writePathID:   DefaultWritePathID,
		language:      "english",
		preloadBudget: packfile.DefaultPreloadBudget,
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

// WithPlatform returns an option to select the platform strategy.
func WithPlatform(p Platform) Option {
	return func(c *cfg) {
		if p != nil {
			c.platform = p
		}
	}
}

// WithNameTable returns an option to intern paths and path IDs in t instead
// of the process-wide table.
func WithNameTable(t *nametable.Table) Option {
	return func(c *cfg) {
		if t != nil {
			c.names = t
		}
	}
}

// WithWhitelist returns an option to set the integrity policy.
func WithWhitelist(w integrity.Whitelist) Option {
	return func(c *cfg) {
		if w != nil {
			c.whitelist = w
		}
	}
}

// WithExcludeList returns an option to set the files served from the
// developer fallback on platforms that support one.
func WithExcludeList(l *searchpath.ExcludeList) Option {
	return func(c *cfg) {
		c.exclude = l
	}
}

// WithSymlinks returns an option rewriting name prefixes before resolution.
func WithSymlinks(rules ...SymlinkRule) Option {
	return func(c *cfg) {
		c.symlinks = append(c.symlinks, rules...)
	}
}

// WithTrustMissing returns an option remembering up to size missing lookups
// so repeated misses skip the search. Any mount change forgets them.
func WithTrustMissing(size int) Option {
	return func(c *cfg) {
		c.missingSize = size
	}
}

// WithMetrics returns an option to record I/O statistics.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *cfg) {
		if r != nil {
			c.metrics = r
		}
	}
}

// WithPrefetcher returns an option enabling Prefetch. The filesystem takes
// ownership and releases p on Shutdown.
func WithPrefetcher(p *prefetch.Prefetcher) Option {
	return func(c *cfg) {
		c.prefetcher = p
	}
}

// WithFinishAsync returns an option registering the barrier run before every
// search path mutation. The default waits for outstanding prefetches.
func WithFinishAsync(fn func()) Option {
	return func(c *cfg) {
		c.finishAsync = fn
	}
}

// WithWritePathID returns an option to change the default write path ID.
func WithWritePathID(id string) Option {
	return func(c *cfg) {
		c.writePathID = id
	}
}

// WithPreloadBudget returns an option limiting each pack file's resident
// preload section.
func WithPreloadBudget(n int64) Option {
	return func(c *cfg) {
		c.preloadBudget = n
	}
}

// WithLanguage returns an option setting the content language used to flag
// localized search paths.
func WithLanguage(lang string) Option {
	return func(c *cfg) {
		c.language = lang
	}
}
