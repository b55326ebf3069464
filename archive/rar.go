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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nwaples/rardecode/v2"
)

// RARArchive provides access to files in a RAR archive. RAR is read
// sequentially, so every Open rescans from the start; prefer Walk.
type RARArchive struct {
	file *os.File
	path string
}

// OpenRAR opens a RAR archive for reading.
func OpenRAR(path string) (*RARArchive, error) {
	file, err := os.Open(path) //nolint:gosec // User-provided path is expected
	if err != nil {
		return nil, fmt.Errorf("open RAR archive: %w", err)
	}
	return &RARArchive{file: file, path: path}, nil
}

// Name returns the archive path.
func (ra *RARArchive) Name() string { return ra.path }

// scan calls fn for each non-directory header until fn returns done or the
// archive ends.
func (ra *RARArchive) scan(fn func(h *rardecode.FileHeader, r *rardecode.Reader) (done bool, err error)) error {
	if _, err := ra.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek RAR archive: %w", err)
	}
	reader, err := rardecode.NewReader(ra.file)
	if err != nil {
		return fmt.Errorf("create RAR reader: %w", err)
	}
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read RAR header: %w", err)
		}
		if header.IsDir {
			continue
		}
		done, err := fn(header, reader)
		if err != nil || done {
			return err
		}
	}
}

// List returns all files in the RAR archive.
func (ra *RARArchive) List() ([]FileInfo, error) {
	var files []FileInfo //nolint:prealloc // RAR file count unknown until full scan
	err := ra.scan(func(h *rardecode.FileHeader, _ *rardecode.Reader) (bool, error) {
		files = append(files, FileInfo{Name: h.Name, Size: h.UnPackedSize})
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Open opens a file within the RAR archive. The reader is valid until the
// next call on the archive.
func (ra *RARArchive) Open(internalPath string) (io.ReadCloser, int64, error) {
	want := normalizeInternal(internalPath)
	var (
		found io.Reader
		size  int64
	)
	err := ra.scan(func(h *rardecode.FileHeader, r *rardecode.Reader) (bool, error) {
		if normalizeInternal(h.Name) != want {
			return false, nil
		}
		found, size = r, h.UnPackedSize
		return true, nil
	})
	if err != nil {
		return nil, 0, err
	}
	if found == nil {
		return nil, 0, FileNotFoundError{Archive: ra.path, InternalPath: internalPath}
	}
	return io.NopCloser(found), size, nil
}

// Walk streams every file in one pass.
func (ra *RARArchive) Walk(fn WalkFunc) error {
	return ra.scan(func(h *rardecode.FileHeader, r *rardecode.Reader) (bool, error) {
		return false, fn(FileInfo{Name: h.Name, Size: h.UnPackedSize}, r)
	})
}

// Close closes the RAR archive.
func (ra *RARArchive) Close() error {
	return ra.file.Close() //nolint:wrapcheck // Close error passthrough is intentional
}
