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

package archive_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZaparooProject/go-gamefs/archive"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	zipPath := createTestZIP(t, tmpDir, "pkg.zip", map[string][]byte{
		"Package/dlc.yaml":           []byte("id: 2\n"),
		"Package/maps/level.bsp":     []byte("VBSP"),
		"outside/readme.txt":         []byte("skip me"),
		"Package/sounds/ambient.wav": []byte("RIFF"),
	})
	arc, err := archive.OpenZIP(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = arc.Close() }()

	dst := filepath.Join(tmpDir, "dlc2")
	written, err := archive.Extract(arc, "package", dst)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(written) != 3 {
		t.Fatalf("wrote %v, want 3 files", written)
	}

	data, err := os.ReadFile(filepath.Join(dst, "maps", "level.bsp"))
	if err != nil || string(data) != "VBSP" {
		t.Errorf("extracted level = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dst, "readme.txt")); !os.IsNotExist(err) {
		t.Error("member outside the prefix was extracted")
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	zipPath := createTestZIP(t, tmpDir, "evil.zip", map[string][]byte{
		"../../etc/evil.cfg": []byte("owned"),
	})
	arc, err := archive.OpenZIP(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = arc.Close() }()

	dst := filepath.Join(tmpDir, "out")
	_, err = archive.Extract(arc, "", dst)
	var unsafe archive.UnsafePathError
	if !errors.As(err, &unsafe) {
		t.Fatalf("expected UnsafePathError, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "etc")); !os.IsNotExist(err) {
		t.Error("traversal member was written")
	}
}

func TestSafePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"maps/level.bsp", filepath.FromSlash("maps/level.bsp"), true},
		{`maps\sub\..\level.bsp`, filepath.FromSlash("maps/level.bsp"), true},
		{"./cfg/config.cfg", filepath.FromSlash("cfg/config.cfg"), true},
		{"../escape", "", false},
		{"a/../../escape", "", false},
		{"/etc/passwd", "", false},
		{"C:/Windows/win.ini", "", false},
		{"..", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := archive.SafePath(tt.name)
		if ok != tt.ok || got != tt.want {
			t.Errorf("SafePath(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFindRoot(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	nested := createTestZIP(t, tmpDir, "nested.zip", map[string][]byte{
		"bundle/extras/dlc.yaml": []byte("id: 9\n"),
		"bundle/DLC.yaml":        []byte("id: 4\n"),
	})
	flat := createTestZIP(t, tmpDir, "flat.zip", map[string][]byte{"dlc.yaml": []byte("id: 4\n")})
	none := createTestZIP(t, tmpDir, "none.zip", map[string][]byte{"readme.txt": nil})

	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{nested, "bundle/", false},
		{flat, "", false},
		{none, "", true},
	}
	for _, tt := range tests {
		arc, err := archive.OpenZIP(tt.path)
		if err != nil {
			t.Fatal(err)
		}
		got, err := archive.FindRoot(arc, "dlc.yaml")
		_ = arc.Close()
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("FindRoot(%s) = %q, %v", filepath.Base(tt.path), got, err)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	msgs := []string{
		archive.FormatError{Format: ".tar", Reason: "tape"}.Error(),
		archive.FormatError{Format: ".tar"}.Error(),
		archive.FileNotFoundError{Archive: "pkg.zip", InternalPath: "a.txt"}.Error(),
		archive.UnsafePathError{Archive: "pkg.zip", Name: "../x"}.Error(),
		archive.SizeMismatchError{Name: "a", Want: 2, Got: 1}.Error(),
	}
	wants := []string{"tape", "unsupported archive format: .tar", `"a.txt"`, `"../x"`, "1 bytes"}
	for i, msg := range msgs {
		if !strings.Contains(msg, wants[i]) {
			t.Errorf("message %q does not contain %q", msg, wants[i])
		}
	}
}
