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
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-gamefs/archive"
)

// ErrInstalled indicates a package whose directory already exists.
var ErrInstalled = errors.New("package already installed")

// Install unpacks a package distributed as a .zip, .7z or .rar archive into
// root/dlcN, N being the package number of its manifest. The archive may
// nest the package under a top-level directory; the shallowest dlc.yaml
// marks it.
func Install(pkgArchive, root string, caps Capabilities, opts ...Option) (*Package, error) {
	log := newCfg(opts).log

	arc, err := archive.Open(pkgArchive)
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	defer func() { _ = arc.Close() }()

	prefix, err := archive.FindRoot(arc, ManifestName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	m, err := readManifest(arc, prefix+ManifestName)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(0, caps.supported()); err != nil {
		return nil, err
	}

	dir := filepath.Join(root, fmt.Sprintf("%s%d", PackagePrefix, m.ID))
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrInstalled, dir)
	}

	tmp, err := os.MkdirTemp(root, ".install-")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	files, err := archive.Extract(arc, prefix, tmp)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return nil, fmt.Errorf("extract package: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, fmt.Errorf("move package into place: %w", err)
	}

	log.Info("package installed",
		zap.String("archive", pkgArchive),
		zap.String("dir", dir),
		zap.Uint32("package", m.ID),
		zap.Uint32("version", m.Version),
		zap.Int("files", len(files)))
	return &Package{Dir: filepath.ToSlash(dir), Number: m.ID, Manifest: m}, nil
}

func readManifest(arc archive.Archive, name string) (*Manifest, error) {
	rc, _, err := arc.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	defer func() { _ = rc.Close() }()
	return ParseManifest(rc)
}
