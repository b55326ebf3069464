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

package codec

import "errors"

// MaxActualSize bounds the decompressed size a codec header may declare (256MB).
// Preload blobs are small; anything larger is treated as corrupt.
const MaxActualSize = 256 * 1024 * 1024

// Common codec errors.
var (
	// ErrUnsupportedCodec indicates the buffer carries no recognized codec magic.
	ErrUnsupportedCodec = errors.New("unsupported codec")

	// ErrDecompressFailed indicates decompression failed.
	ErrDecompressFailed = errors.New("decompression failed")

	// ErrInvalidHeader indicates a codec header is truncated or inconsistent.
	ErrInvalidHeader = errors.New("invalid codec header")

	// ErrShortDestination indicates dst is smaller than the declared actual size.
	ErrShortDestination = errors.New("destination buffer too small")
)
