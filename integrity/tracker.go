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

package integrity

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-gamefs/nametable"
)

// Record is the load history of one (path ID, name) pair.
type Record struct {
	PathID            string
	Name              string
	Source            string // Path the last successful load was served from
	Fingerprint       Sum
	LoadedFromTrusted bool // Last load came from a trusted archive
	Forced            bool // Policy forced the trusted archive over disk
	FailedLastTime    bool // Last load attempt failed and had to fall back
	Loads             int
}

// LoadInfo describes one completed load.
type LoadInfo struct {
	Source      string // Path the file was served from
	Fingerprint Sum    // Zero when the file was not hashed
	Trusted     bool
	Forced      bool
	Failed      bool
}

type recordKey struct {
	pathID nametable.Symbol
	name   string
}

type trackerCfg struct {
	log       *zap.Logger
	names     *nametable.Table
	whitelist Whitelist
}

// TrackerOption configures NewTracker.
type TrackerOption func(*trackerCfg)

// WithLogger returns an option to specify the logger.
func WithLogger(l *zap.Logger) TrackerOption {
	return func(c *trackerCfg) {
		if l != nil {
			c.log = l
		}
	}
}

// WithNameTable returns an option to intern path IDs in t.
func WithNameTable(t *nametable.Table) TrackerOption {
	return func(c *trackerCfg) {
		if t != nil {
			c.names = t
		}
	}
}

// WithWhitelist returns an option to set the initial policy.
func WithWhitelist(w Whitelist) TrackerOption {
	return func(c *trackerCfg) {
		if w != nil {
			c.whitelist = w
		}
	}
}

// Tracker records per-file load provenance. It is safe for concurrent use.
type Tracker struct {
	log   *zap.Logger
	names *nametable.Table

	mu        sync.RWMutex
	whitelist Whitelist
	records   map[recordKey]*Record
	byName    map[string][]*Record
}

// NewTracker returns an empty tracker. The default policy is AllowAll.
func NewTracker(opts ...TrackerOption) *Tracker {
	c := &trackerCfg{log: zap.NewNop(), names: nametable.Default, whitelist: AllowAll{}}
	for _, o := range opts {
		o(c)
	}
	return &Tracker{
		log:       c.log,
		names:     c.names,
		whitelist: c.whitelist,
		records:   make(map[recordKey]*Record),
		byName:    make(map[string][]*Record),
	}
}

// Whitelist returns the current policy.
func (t *Tracker) Whitelist() Whitelist {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.whitelist
}

// SetWhitelist swaps the policy. Records are kept so MustReloadIfTrackedFile
// can compare them against the new policy.
func (t *Tracker) SetWhitelist(w Whitelist) {
	if w == nil {
		w = AllowAll{}
	}
	t.mu.Lock()
	t.whitelist = w
	t.mu.Unlock()
}

// WantHash reports whether the current policy verifies name.
func (t *Tracker) WantHash(name string) bool {
	return t.Whitelist().WantHash(name)
}

// AllowFromDisk reports whether the current policy lets name load from disk.
func (t *Tracker) AllowFromDisk(name string) bool {
	return t.Whitelist().AllowFromDisk(name)
}

func (t *Tracker) key(pathID, name string) recordKey {
	return recordKey{pathID: t.names.Intern(pathID), name: normalizeName(name)}
}

// RecordLoad creates or updates the record for (pathID, name).
func (t *Tracker) RecordLoad(pathID, name string, info LoadInfo) {
	k := t.key(pathID, name)

	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[k]
	if !ok {
		r = &Record{PathID: t.names.Text(k.pathID), Name: k.name}
		t.records[k] = r
		t.byName[k.name] = append(t.byName[k.name], r)
	}
	switch {
	case info.Failed:
	case info.Source != r.Source:
		// A different source replaces the fingerprint, hashed or not.
		r.Source = info.Source
		r.Fingerprint = info.Fingerprint
	case !info.Fingerprint.IsZero():
		r.Fingerprint = info.Fingerprint
	}
	r.LoadedFromTrusted = info.Trusted
	r.Forced = info.Forced
	r.FailedLastTime = info.Failed
	r.Loads++
}

// Verify checks sum against the fingerprint recorded by an earlier trusted
// load of (pathID, name) from the same source. Untracked files, files without
// a trusted fingerprint and files now served from a different source pass;
// RecordLoad then replaces the record.
func (t *Tracker) Verify(pathID, name, source string, sum Sum) error {
	k := t.key(pathID, name)

	t.mu.RLock()
	r, ok := t.records[k]
	var want Sum
	if ok && r.LoadedFromTrusted && r.Source == source {
		want = r.Fingerprint
	}
	t.mu.RUnlock()

	if want.IsZero() || want == sum {
		return nil
	}
	t.log.Error("integrity check failed",
		zap.String("path_id", pathID), zap.String("name", k.name), zap.String("source", source),
		zap.Stringer("want", want), zap.Stringer("got", sum))
	return &MismatchError{PathID: pathID, Name: k.name, Source: source, Want: want, Got: sum}
}

// Lookup returns a copy of the record for (pathID, name).
func (t *Tracker) Lookup(pathID, name string) (Record, bool) {
	k := t.key(pathID, name)
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[k]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// MustReloadIfTrackedFile reports whether name must be reloaded under the
// current policy. When records exist under several path IDs, any one of them
// requiring a reload is enough.
func (t *Tracker) MustReloadIfTrackedFile(name string) bool {
	n := normalizeName(name)

	t.mu.RLock()
	defer t.mu.RUnlock()

	allowDisk := t.whitelist.AllowFromDisk(n)
	for _, r := range t.byName[n] {
		if mustReload(r, allowDisk) {
			return true
		}
	}
	return false
}

func mustReload(r *Record, allowDisk bool) bool {
	switch {
	case allowDisk && r.FailedLastTime:
		return true
	case allowDisk && r.LoadedFromTrusted && r.Forced:
		// A disk copy may now be live.
		return true
	case !allowDisk && !r.LoadedFromTrusted:
		return true
	}
	return false
}

// MustReloadFiles lists every tracked name that must be reloaded under the
// current policy, sorted.
func (t *Tracker) MustReloadFiles() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for name, recs := range t.byName {
		allowDisk := t.whitelist.AllowFromDisk(name)
		for _, r := range recs {
			if mustReload(r, allowDisk) {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Records returns a snapshot of all records sorted by name then path ID.
func (t *Tracker) Records() []Record {
	t.mu.RLock()
	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, *r)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].PathID < out[j].PathID
	})
	return out
}

// Len returns the number of records.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Reset drops every record.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.records = make(map[recordKey]*Record)
	t.byName = make(map[string][]*Record)
	t.mu.Unlock()
}
