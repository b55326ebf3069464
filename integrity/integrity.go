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

// Package integrity tracks where files were loaded from and decides which of
// them must be reloaded when the trust policy changes.
package integrity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// ErrHashMismatch indicates a file's content differs from its trusted fingerprint.
var ErrHashMismatch = errors.New("hash mismatch")

// Sum is a BLAKE3-256 content fingerprint.
type Sum [32]byte

// IsZero reports whether the sum is unset.
func (s Sum) IsZero() bool { return s == Sum{} }

func (s Sum) String() string { return hex.EncodeToString(s[:]) }

// Fingerprint hashes everything read from r.
func Fingerprint(r io.Reader) (Sum, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return Sum{}, fmt.Errorf("fingerprint: %w", err)
	}
	var s Sum
	copy(s[:], h.Sum(nil))
	return s, nil
}

// FingerprintBytes hashes b.
func FingerprintBytes(b []byte) Sum {
	return blake3.Sum256(b)
}

// MismatchError reports a file whose fingerprint differs from the one recorded
// when it was last loaded from the same trusted source.
type MismatchError struct {
	PathID string
	Name   string
	Source string
	Want   Sum
	Got    Sum
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s (%s) from %s: %v: want %s, got %s", e.Name, e.PathID, e.Source, ErrHashMismatch, e.Want, e.Got)
}

func (e *MismatchError) Unwrap() error {
	return ErrHashMismatch
}
