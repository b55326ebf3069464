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

package mount_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ZaparooProject/go-gamefs/mount"
)

func writeZip(t *testing.T, path string, files map[string][]byte) {
	t.Helper()
	f, err := os.Create(path) //nolint:gosec // Test path
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestInstall(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	pkg := filepath.Join(t.TempDir(), "pack.zip")
	writeZip(t, pkg, map[string][]byte{
		"pack/dlc.yaml":         manifest(2),
		"pack/models/crate.mdl": []byte("mdl"),
		"pack/materials/a.vmt":  []byte("vmt"),
		"readme.txt":            []byte("outside the package"),
	})

	got, err := mount.Install(pkg, root, mount.Capabilities{}, mount.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got.Number)
	assert.Equal(t, "Pack 2", got.Manifest.Name)

	dir := filepath.Join(root, "dlc2")
	assert.Equal(t, filepath.ToSlash(dir), got.Dir)
	b, err := os.ReadFile(filepath.Join(dir, "models", "crate.mdl")) //nolint:gosec // Test path
	require.NoError(t, err)
	assert.Equal(t, "mdl", string(b))
	assert.NoFileExists(t, filepath.Join(dir, "readme.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "pack", "dlc.yaml"))

	_, err = mount.Install(pkg, root, mount.Capabilities{})
	require.ErrorIs(t, err, mount.ErrInstalled)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging directories are cleaned up")
}

func TestInstallRejectsInvalidPackages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string][]byte
		want  error
	}{
		{"no manifest", map[string][]byte{"a.txt": []byte("a")}, mount.ErrInvalidManifest},
		{"bad license", map[string][]byte{"dlc.yaml": []byte("id: 2\nlicense_mask: 1\n")}, mount.ErrInvalidManifest},
		{"unsupported", map[string][]byte{"dlc.yaml": manifest(31)}, mount.ErrUnsupportedPackage},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			pkg := filepath.Join(t.TempDir(), "pack.zip")
			writeZip(t, pkg, tt.files)

			_, err := mount.Install(pkg, root, mount.Capabilities{})
			require.ErrorIs(t, err, tt.want)

			entries, err := os.ReadDir(root)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestInstalledPackageIsDiscovered(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	pkg := filepath.Join(t.TempDir(), "pack.zip")
	writeZip(t, pkg, map[string][]byte{"dlc.yaml": manifest(1), "maps/a.bsp": []byte("VBSP")})

	_, err := mount.Install(pkg, root, mount.Capabilities{})
	require.NoError(t, err)

	plan, err := mount.Discover(root, mount.Capabilities{})
	require.NoError(t, err)
	assert.Equal(t, []string{"dlc1", "."}, rel(t, plan.Root, plan.Steps))
}
