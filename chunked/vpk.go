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
	"strings"
	"sync/atomic"

	vpk "github.com/galaco/vpk2"
	"go.uber.org/zap"
)

const (
	dirSuffix = "_dir.vpk"
	extVPK    = ".vpk"
)

type cfg struct {
	log      *zap.Logger
	fraction int64
}

// Option configures OpenVPK.
type Option func(*cfg)

// WithLogger returns an option to specify the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		if l != nil {
			c.log = l
		}
	}
}

// WithFractionSize returns an option setting the chunk hash span.
func WithFractionSize(n int64) Option {
	return func(c *cfg) {
		if n > 0 {
			c.fraction = n
		}
	}
}

// IsDirectoryFile reports whether path names the directory file of a chunked
// archive.
func IsDirectoryFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), dirSuffix)
}

// BaseName strips the directory file suffix: "pak01_dir.vpk" becomes "pak01".
func BaseName(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, dirSuffix):
		return path[:len(path)-len(dirSuffix)]
	case strings.HasSuffix(lower, extVPK):
		return path[:len(path)-len(extVPK)]
	}
	return path
}

// VPK is a chunked archive backed by the vpk2 reader.
type VPK struct {
	pak      *vpk.VPK
	index    index
	log      *zap.Logger
	base     string
	fraction int64
	closed   atomic.Bool
}

var _ Archive = (*VPK)(nil)

// OpenVPK opens the chunked archive at base, given either as the base path or
// as the path of its directory file.
func OpenVPK(base string, opts ...Option) (*VPK, error) {
	c := &cfg{log: zap.NewNop(), fraction: DefaultFractionSize}
	for _, o := range opts {
		o(c)
	}
	base = BaseName(base)

	pak, err := vpk.Open(vpk.MultiVPK(base))
	if err != nil {
		return nil, fmt.Errorf("open chunked archive %s: %w", base, err)
	}
	idx, err := readIndex(base + dirSuffix)
	if err != nil {
		return nil, fmt.Errorf("open chunked archive %s: %w", base, err)
	}
	c.log.Debug("mounted chunked archive", zap.String("base", base), zap.Int("entries", len(idx)))
	return &VPK{pak: pak, index: idx, log: c.log, base: base, fraction: c.fraction}, nil
}

// Name implements Archive.
func (v *VPK) Name() string { return v.base }

// Find implements Archive. Names match case-insensitively. The entry is
// not read until the returned File is.
func (v *VPK) Find(name string) (*File, error) {
	if v.closed.Load() {
		return nil, ErrClosed
	}
	norm := strings.ToLower(strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/"))
	size, ok := v.index[norm]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return newFile(norm, size, v.opener(norm)), nil
}

// List implements Archive.
func (v *VPK) List() []string { return v.index.names() }

func (v *VPK) opener(name string) opener {
	return func() (io.ReadCloser, error) {
		e := v.pak.Entry(name)
		if e == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return e.Open() //nolint:wrapcheck // Wrapped by File
	}
}

// ChunkHashes implements Archive.
func (v *VPK) ChunkHashes() ([]ChunkHash, error) {
	return HashChunks(v.base, v.fraction)
}

// VerifyChunk implements Archive.
func (v *VPK) VerifyChunk(h ChunkHash) error {
	err := VerifyChunkFile(v.base, h)
	if err != nil {
		v.log.Warn("chunk verification failed", zap.String("base", v.base), zap.Error(err))
	}
	return err
}

// Close implements Archive.
func (v *VPK) Close() error {
	if v.closed.Swap(true) {
		return nil
	}
	if c, ok := any(v.pak).(io.Closer); ok {
		return c.Close() //nolint:wrapcheck // Close error passthrough is intentional
	}
	return nil
}
