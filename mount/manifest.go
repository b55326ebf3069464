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

package mount

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestName is the file describing a downloadable content package.
const ManifestName = "dlc.yaml"

// DisabledMarker in a package directory disables it and every higher package.
const DisabledMarker = "dlc_disabled.txt"

// FlagPresenceOnly marks a package that unlocks content shipped elsewhere and
// has nothing to mount.
const FlagPresenceOnly = 0x0001

var (
	// ErrInvalidManifest indicates a package manifest that cannot be used.
	ErrInvalidManifest = errors.New("invalid package manifest")

	// ErrUnsupportedPackage indicates a package ID the platform does not
	// accept.
	ErrUnsupportedPackage = errors.New("unsupported package id")
)

// Manifest describes one downloadable content package.
type Manifest struct {
	ID           uint32 `yaml:"id"`
	Version      uint32 `yaml:"version"`
	Name         string `yaml:"name"`
	LicenseMask  uint32 `yaml:"license_mask"`
	Flags        uint32 `yaml:"flags"`
	PresenceOnly bool   `yaml:"presence_only"`
}

// LicenseID returns the package number encoded in the top byte of the
// license mask.
func (m *Manifest) LicenseID() uint32 {
	return (m.LicenseMask >> 24) & 0xFF
}

// IsPresenceOnly reports whether the package mounts nothing.
func (m *Manifest) IsPresenceOnly() bool {
	return m.PresenceOnly || m.LicenseMask&FlagPresenceOnly != 0 || m.Flags&FlagPresenceOnly != 0
}

// Validate checks the manifest against the package number n and the
// platform's supported set.
func (m *Manifest) Validate(n uint32, supported func(uint32) bool) error {
	if m.ID == 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidManifest)
	}
	if n != 0 && m.ID != n {
		return fmt.Errorf("%w: id %d in package %d", ErrInvalidManifest, m.ID, n)
	}
	if id := m.LicenseID(); id != m.ID {
		return fmt.Errorf("%w: license mask 0x%08x encodes package %d, want %d",
			ErrInvalidManifest, m.LicenseMask, id, m.ID)
	}
	if supported != nil && !supported(m.ID) {
		return fmt.Errorf("%w: %d", ErrUnsupportedPackage, m.ID)
	}
	return nil
}

// ParseManifest decodes a manifest.
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return &m, nil
}

// LoadManifest reads the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path) //nolint:gosec // Package paths come from discovery
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseManifest(f)
}
