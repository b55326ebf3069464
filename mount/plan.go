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

// Package mount builds the ordered search path mutations that overlay
// patches, updates and downloadable content packages on a content root.
package mount

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-gamefs/searchpath"
)

// Content layout under a root.
const (
	PatchDir      = "patch"
	PatchPack     = "patch.zip"
	UpdateDir     = "update"
	UpdatePack    = "update.zip"
	PackagePrefix = "dlc"
	MaxPackages   = 99

	maxSubArchives = 99
)

// Step tags.
const (
	TagPatch   = "patch"
	TagUpdate  = "update"
	TagPackage = "dlc"
	TagBase    = "base"
)

// DefaultPathID is the path ID content is mounted under.
const DefaultPathID = "GAME"

// Capabilities are the platform facts discovery depends on.
type Capabilities struct {
	// SupportedDLC reports whether a package ID may be mounted. Nil accepts
	// DefaultSupportedDLC.
	SupportedDLC func(id uint32) bool
	// PathID overrides DefaultPathID.
	PathID string
}

func (c Capabilities) pathID() string {
	if c.PathID == "" {
		return DefaultPathID
	}
	return c.PathID
}

func (c Capabilities) supported() func(uint32) bool {
	if c.SupportedDLC == nil {
		return DefaultSupportedDLC
	}
	return c.SupportedDLC
}

// DefaultSupportedDLC accepts package IDs 1 through 30.
func DefaultSupportedDLC(id uint32) bool { return id >= 1 && id < 31 }

// Step is one search path mutation.
type Step struct {
	Path    string
	PathID  string
	Mode    searchpath.InsertMode
	Tag     string // TagPatch, TagUpdate, TagPackage or TagBase
	Package uint32 // Package number for TagPackage steps
	Chunked bool   // Path is a chunked archive directory file
}

// Package is a discovered downloadable content package.
type Package struct {
	Dir      string
	Number   uint32
	Manifest *Manifest
}

// CorruptPackage is a package left unmounted because it failed validation.
type CorruptPackage struct {
	Dir    string
	Reason string
}

// Plan is the result of discovery.
type Plan struct {
	Root     string
	Steps    []Step
	Packages []Package
	Corrupt  []CorruptPackage

	log *zap.Logger
}

type cfg struct {
	log *zap.Logger
}

// Option configures Discover and Install.
type Option func(*cfg)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		if l != nil {
			c.log = l
		}
	}
}

func newCfg(opts []Option) *cfg {
	c := &cfg{log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Target receives the plan's mutations. *gamefs.FileSystem implements it.
type Target interface {
	HasSearchPath(path, pathID string) bool
	// SearchPathIndex returns the position of the mounted path, or -1.
	SearchPathIndex(path, pathID string) int
	AddSearchPath(path, pathID string, mode searchpath.InsertMode) error
}

// Discover scans root and returns the mutations that mount it, highest
// priority first: the patch pack, the update directory and pack, packages
// from the highest number down with each package's pakNN_dir.vpk archives in
// ascending order, then root itself.
func Discover(root string, caps Capabilities, opts ...Option) (*Plan, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root %s is not a directory", abs)
	}

	p := &Plan{Root: abs, log: newCfg(opts).log}
	pathID := caps.pathID()
	supported := caps.supported()

	add := func(path, tag string, pkg uint32, chunked bool) {
		p.Steps = append(p.Steps, Step{
			Path:    filepath.ToSlash(path),
			PathID:  pathID,
			Mode:    searchpath.Tail,
			Tag:     tag,
			Package: pkg,
			Chunked: chunked,
		})
	}

	if patch := filepath.Join(abs, PatchDir, PatchPack); isFile(patch) {
		add(patch, TagPatch, 0, false)
	}
	if update := filepath.Join(abs, UpdateDir); isDir(update) {
		add(update, TagUpdate, 0, false)
		if pack := filepath.Join(update, UpdatePack); isFile(pack) {
			add(pack, TagUpdate, 0, false)
		}
	}

	p.discoverPackages(supported)
	for i := len(p.Packages) - 1; i >= 0; i-- {
		pkg := p.Packages[i]
		if pkg.Manifest.IsPresenceOnly() {
			p.log.Debug("presence-only package", zap.Uint32("package", pkg.Number))
			continue
		}
		add(pkg.Dir, TagPackage, pkg.Number, false)
		for _, vpk := range subArchives(pkg.Dir) {
			add(vpk, TagPackage, pkg.Number, true)
		}
	}

	add(abs, TagBase, 0, false)
	p.log.Info("mount plan built",
		zap.String("root", abs),
		zap.Int("steps", len(p.Steps)),
		zap.Int("packages", len(p.Packages)),
		zap.Int("corrupt", len(p.Corrupt)))
	return p, nil
}

// discoverPackages walks dlc1, dlc2 and so on, stopping at the first missing
// or disabled package.
func (p *Plan) discoverPackages(supported func(uint32) bool) {
	for n := uint32(1); n <= MaxPackages; n++ {
		dir := filepath.Join(p.Root, fmt.Sprintf("%s%d", PackagePrefix, n))
		if !isDir(dir) {
			break
		}
		if isFile(filepath.Join(dir, DisabledMarker)) {
			p.log.Info("package disabled", zap.String("dir", dir))
			break
		}

		m, err := LoadManifest(filepath.Join(dir, ManifestName))
		if err == nil {
			err = m.Validate(n, supported)
		}
		if err != nil {
			p.log.Warn("corrupt package", zap.String("dir", dir), zap.Error(err))
			p.Corrupt = append(p.Corrupt, CorruptPackage{Dir: filepath.ToSlash(dir), Reason: err.Error()})
			continue
		}
		p.Packages = append(p.Packages, Package{Dir: filepath.ToSlash(dir), Number: n, Manifest: m})
	}
}

// subArchives lists dir/pak01_dir.vpk, dir/pak02_dir.vpk and so on up to the
// first gap.
func subArchives(dir string) []string {
	var out []string
	for i := 1; i < maxSubArchives; i++ {
		p := filepath.Join(dir, fmt.Sprintf("pak%02d_dir.vpk", i))
		if !isFile(p) {
			break
		}
		out = append(out, p)
	}
	return out
}

// Apply performs every step not already mounted on target and returns how
// many it added. A failed step does not stop the rest.
//
// A step is inserted just before the next lower-priority step that is
// mounted, so the plan's order holds however the target was mutated before.
// When no such step is mounted it is appended.
func (p *Plan) Apply(target Target) (int, error) {
	var errs []error
	added := 0
	for i, s := range p.Steps {
		if target.HasSearchPath(s.Path, s.PathID) {
			p.log.Debug("step already mounted", zap.String("path", s.Path), zap.String("path_id", s.PathID))
			continue
		}
		mode := s.Mode
		for _, next := range p.Steps[i+1:] {
			if idx := target.SearchPathIndex(next.Path, next.PathID); idx >= 0 {
				mode = searchpath.TailAtIndex(idx)
				break
			}
		}
		if err := target.AddSearchPath(s.Path, s.PathID, mode); err != nil {
			errs = append(errs, fmt.Errorf("%s step %s: %w", s.Tag, s.Path, err))
			continue
		}
		added++
	}
	return added, errors.Join(errs...)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
