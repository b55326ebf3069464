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
	"fmt"
	"io"

	"github.com/bodgit/sevenzip"
)

// SevenZipArchive provides access to files in a 7z archive.
type SevenZipArchive struct {
	reader *sevenzip.ReadCloser
	path   string
	index  map[string]*sevenzip.File
}

// OpenSevenZip opens a 7z archive for reading.
func OpenSevenZip(path string) (*SevenZipArchive, error) {
	reader, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open 7z archive: %w", err)
	}

	sza := &SevenZipArchive{
		reader: reader,
		path:   path,
		index:  make(map[string]*sevenzip.File, len(reader.File)),
	}
	for _, file := range reader.File {
		key := normalizeInternal(file.Name)
		if _, dup := sza.index[key]; !dup && !file.FileInfo().IsDir() {
			sza.index[key] = file
		}
	}
	return sza, nil
}

// Name returns the archive path.
func (sza *SevenZipArchive) Name() string { return sza.path }

// List returns all files in the 7z archive.
func (sza *SevenZipArchive) List() ([]FileInfo, error) {
	files := make([]FileInfo, 0, len(sza.reader.File))
	for _, file := range sza.reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		files = append(files, sevenZipInfo(file))
	}
	return files, nil
}

func sevenZipInfo(file *sevenzip.File) FileInfo {
	//nolint:gosec // Safe: file sizes don't exceed int64
	return FileInfo{Name: file.Name, Size: int64(file.UncompressedSize)}
}

// Open opens a file within the 7z archive. Names match case-insensitively.
func (sza *SevenZipArchive) Open(internalPath string) (io.ReadCloser, int64, error) {
	file, ok := sza.index[normalizeInternal(internalPath)]
	if !ok {
		return nil, 0, FileNotFoundError{Archive: sza.path, InternalPath: internalPath}
	}
	reader, err := file.Open()
	if err != nil {
		return nil, 0, fmt.Errorf("open file in 7z: %w", err)
	}
	return reader, sevenZipInfo(file).Size, nil
}

// Walk visits every file in archive order, which keeps solid blocks decoding
// forward.
func (sza *SevenZipArchive) Walk(fn WalkFunc) error {
	for _, file := range sza.reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		reader, err := file.Open()
		if err != nil {
			return fmt.Errorf("open %s in 7z: %w", file.Name, err)
		}
		err = fn(sevenZipInfo(file), reader)
		_ = reader.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// Close closes the 7z archive.
func (sza *SevenZipArchive) Close() error {
	return sza.reader.Close() //nolint:wrapcheck // Close error passthrough is intentional
}
