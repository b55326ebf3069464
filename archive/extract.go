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

package archive

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SafePath validates an archive member name and returns it as a relative
// OS path. Absolute names, drive letters and names that climb out of the
// root are rejected.
func SafePath(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") || filepath.VolumeName(name) != "" {
		return "", false
	}
	if len(name) >= 2 && name[1] == ':' {
		return "", false
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return filepath.FromSlash(clean), true
}

// Extract writes every member under prefix into dst, stripping prefix from
// the names, and returns the relative paths written. Members that would
// escape dst fail the extraction with UnsafePathError.
func Extract(arc Archive, prefix, dst string) ([]string, error) {
	prefix = normalizeInternal(prefix)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var written []string
	err := arc.Walk(func(info FileInfo, r io.Reader) error {
		name := strings.ReplaceAll(info.Name, "\\", "/")
		if !strings.HasPrefix(strings.ToLower(name), prefix) {
			return nil
		}
		rel, ok := SafePath(name[len(prefix):])
		if !ok {
			return UnsafePathError{Archive: arc.Name(), Name: info.Name}
		}
		if err := extractFile(filepath.Join(dst, rel), info, r); err != nil {
			return err
		}
		written = append(written, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return written, err
	}
	return written, nil
}

func extractFile(target string, info FileInfo, r io.Reader) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", info.Name, err)
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // Target validated by SafePath
	if err != nil {
		return fmt.Errorf("create %s: %w", info.Name, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", info.Name, cerr)
		}
	}()

	src := r
	if info.Size >= 0 {
		// One extra byte detects members longer than recorded.
		src = io.LimitReader(r, info.Size+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		return fmt.Errorf("extract %s: %w", info.Name, err)
	}
	if info.Size >= 0 && n != info.Size {
		return SizeMismatchError{Name: info.Name, Want: info.Size, Got: n}
	}
	return nil
}
