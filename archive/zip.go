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

//nolint:dupl // Archive implementations are intentionally similar but use different types
package archive

import (
	"archive/zip"
	"fmt"
	"io"
)

// ZIPArchive provides access to files in a ZIP archive of any compression.
type ZIPArchive struct {
	reader *zip.ReadCloser
	path   string
	index  map[string]*zip.File
}

// OpenZIP opens a ZIP archive for reading.
func OpenZIP(path string) (*ZIPArchive, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open ZIP archive: %w", err)
	}

	za := &ZIPArchive{
		reader: reader,
		path:   path,
		index:  make(map[string]*zip.File, len(reader.File)),
	}
	for _, file := range reader.File {
		key := normalizeInternal(file.Name)
		if _, dup := za.index[key]; !dup && !file.FileInfo().IsDir() {
			za.index[key] = file
		}
	}
	return za, nil
}

// Name returns the archive path.
func (za *ZIPArchive) Name() string { return za.path }

// List returns all files in the ZIP archive.
func (za *ZIPArchive) List() ([]FileInfo, error) {
	files := make([]FileInfo, 0, len(za.reader.File))
	for _, file := range za.reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		files = append(files, zipInfo(file))
	}
	return files, nil
}

func zipInfo(file *zip.File) FileInfo {
	//nolint:gosec // Safe: file sizes don't exceed int64
	return FileInfo{Name: file.Name, Size: int64(file.UncompressedSize64)}
}

// Open opens a file within the ZIP archive. Names match case-insensitively.
func (za *ZIPArchive) Open(internalPath string) (io.ReadCloser, int64, error) {
	file, ok := za.index[normalizeInternal(internalPath)]
	if !ok {
		return nil, 0, FileNotFoundError{Archive: za.path, InternalPath: internalPath}
	}
	reader, err := file.Open()
	if err != nil {
		return nil, 0, fmt.Errorf("open file in ZIP: %w", err)
	}
	return reader, zipInfo(file).Size, nil
}

// Walk visits every file in directory order.
func (za *ZIPArchive) Walk(fn WalkFunc) error {
	for _, file := range za.reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		reader, err := file.Open()
		if err != nil {
			return fmt.Errorf("open %s in ZIP: %w", file.Name, err)
		}
		err = fn(zipInfo(file), reader)
		_ = reader.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// Close closes the ZIP archive.
func (za *ZIPArchive) Close() error {
	return za.reader.Close() //nolint:wrapcheck // Close error passthrough is intentional
}
