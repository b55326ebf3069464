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
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ZaparooProject/go-gamefs/archive"
)

// createTestZIP creates a deflated ZIP archive in tmpDir with the given files.
//
//nolint:gosec // Test helper creates files in test temp directory
func createTestZIP(t *testing.T, tmpDir, name string, files map[string][]byte) string {
	t.Helper()

	zipPath := filepath.Join(tmpDir, name)
	file, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip file: %v", err)
	}
	defer func() { _ = file.Close() }()

	writer := zip.NewWriter(file)
	names := make([]string, 0, len(files))
	for filename := range files {
		names = append(names, filename)
	}
	sort.Strings(names)
	for _, filename := range names {
		fileWriter, err := writer.Create(filename)
		if err != nil {
			t.Fatalf("create file in zip: %v", err)
		}
		if _, err := fileWriter.Write(files[filename]); err != nil {
			t.Fatalf("write file content: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return zipPath
}

func TestOpen(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	zipPath := createTestZIP(t, tmpDir, "dlc1.zip", map[string][]byte{"dlc.yaml": []byte("id: 1\n")})

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "ZIP archive", path: zipPath},
		{name: "non-existent file", path: filepath.Join(tmpDir, "nonexistent.zip"), wantErr: true},
		{name: "non-existent 7z", path: filepath.Join(tmpDir, "nonexistent.7z"), wantErr: true},
		{name: "non-existent RAR", path: filepath.Join(tmpDir, "nonexistent.rar"), wantErr: true},
		{name: "unsupported format", path: filepath.Join(tmpDir, "test.tar"), wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			arc, err := archive.Open(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if arc.Name() != tt.path {
				t.Errorf("Name() = %q, want %q", arc.Name(), tt.path)
			}
			_ = arc.Close()
		})
	}
}

func TestOpen_UnsupportedFormatError(t *testing.T) {
	t.Parallel()

	_, err := archive.Open("/content/package.tar")
	var formatErr archive.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %T", err)
	}
	if formatErr.Format != ".tar" {
		t.Errorf("Format = %q, want .tar", formatErr.Format)
	}
}

func TestSevenZipRejectsNonArchive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.7z")
	if err := os.WriteFile(path, []byte("definitely not 7z"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Open(path); err == nil {
		t.Fatal("expected error for corrupt 7z")
	}
}

func TestRARRejectsNonArchive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.rar")
	if err := os.WriteFile(path, []byte("definitely not rar"), 0o600); err != nil {
		t.Fatal(err)
	}
	arc, err := archive.Open(path)
	if err != nil {
		t.Fatalf("OpenRAR defers parsing, got %v", err)
	}
	defer func() { _ = arc.Close() }()
	if _, err := arc.List(); err == nil {
		t.Fatal("expected error listing corrupt RAR")
	}
}

func TestZIPArchive_ListOpenWalk(t *testing.T) {
	t.Parallel()

	zipPath := createTestZIP(t, t.TempDir(), "pkg.zip", map[string][]byte{
		"dlc3/dlc.yaml":         []byte("id: 3\n"),
		"dlc3/pak01_dir.vpk":    []byte("vpk"),
		"dlc3/materials/":       nil,
		"dlc3/Scripts/Game.txt": []byte("scripts"),
	})
	arc, err := archive.OpenZIP(zipPath)
	if err != nil {
		t.Fatalf("OpenZIP: %v", err)
	}
	defer func() { _ = arc.Close() }()

	files, err := arc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("List returned %d files, want 3 (directories skipped)", len(files))
	}

	reader, size, err := arc.Open(`DLC3\scripts\game.txt`)
	if err != nil {
		t.Fatalf("case-insensitive Open: %v", err)
	}
	data, _ := io.ReadAll(reader)
	_ = reader.Close()
	if string(data) != "scripts" || size != 7 {
		t.Errorf("Open read %q size %d", data, size)
	}

	_, _, err = arc.Open("dlc3/missing.txt")
	var notFound archive.FileNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected FileNotFoundError, got %v", err)
	}

	var walked []string
	err = arc.Walk(func(info archive.FileInfo, r io.Reader) error {
		b, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		if int64(len(b)) != info.Size {
			t.Errorf("%s: read %d bytes, size %d", info.Name, len(b), info.Size)
		}
		walked = append(walked, info.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(walked) != 3 {
		t.Errorf("Walk visited %v", walked)
	}
}

func TestWalkStopsOnError(t *testing.T) {
	t.Parallel()

	zipPath := createTestZIP(t, t.TempDir(), "pkg.zip", map[string][]byte{"a": []byte("a"), "b": []byte("b")})
	arc, err := archive.OpenZIP(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = arc.Close() }()

	stop := errors.New("stop")
	calls := 0
	err = arc.Walk(func(archive.FileInfo, io.Reader) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("Walk returned %v after %d calls", err, calls)
	}
}

func TestIsArchiveExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want bool
	}{
		{".zip", true},
		{".ZIP", true},
		{".7z", true},
		{".rar", true},
		{".vpk", false},
		{".bsp", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := archive.IsArchiveExtension(tt.ext); got != tt.want {
			t.Errorf("IsArchiveExtension(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}
