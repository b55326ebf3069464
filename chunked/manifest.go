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

package chunked

import (
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Manifest lists the expected chunk hashes of an archive.
type Manifest struct {
	Base         string      `cbor:"1,keyasint"`
	FractionSize int64       `cbor:"2,keyasint"`
	Chunks       []ChunkHash `cbor:"3,keyasint"`
}

var manifestEncMode cbor.EncMode

func init() {
	var err error
	manifestEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("chunked: CBOR encoder initialization failed: " + err.Error())
	}
}

// BuildManifest hashes the chunk files of a.
func BuildManifest(a Archive, fraction int64) (*Manifest, error) {
	hashes, err := a.ChunkHashes()
	if err != nil {
		return nil, err
	}
	return &Manifest{Base: a.Name(), FractionSize: fraction, Chunks: hashes}, nil
}

// WriteManifest encodes m to w.
func WriteManifest(w io.Writer, m *Manifest) error {
	if err := manifestEncMode.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}

// ReadManifest decodes a manifest from r.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := cbor.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// SaveManifest writes m to path.
func SaveManifest(path string, m *Manifest) (err error) {
	f, err := os.Create(path) //nolint:gosec // Caller-chosen output path
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close manifest: %w", cerr)
		}
	}()
	return WriteManifest(f, m)
}

// LoadManifest reads the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path) //nolint:gosec // Caller-chosen input path
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadManifest(f)
}
