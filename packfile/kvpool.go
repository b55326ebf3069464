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

package packfile

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"
)

// kv pool image layout: key u32 LE, then a CBOR array of strings.
const kvPoolHeaderSize = 4

// maxKVPoolSize bounds the pool image read into memory.
const maxKVPoolSize = 16 * 1024 * 1024

func (a *Archive) loadKVPool() {
	e, ok := a.Find(KVPoolName)
	if !ok {
		return
	}
	key, pool, err := a.readKVPool(e)
	if err != nil {
		a.log.Info("kv pool disabled", zap.Error(err))
		return
	}
	a.kvKey = key
	a.kvPool = pool
}

func (a *Archive) readKVPool(e Entry) (uint32, []string, error) {
	if e.Length < kvPoolHeaderSize || e.Length > maxKVPoolSize {
		return 0, nil, fmt.Errorf("pool image of %d bytes", e.Length)
	}
	buf := make([]byte, e.Length)
	n, err := a.ReadFromPack(e.Index, 0, buf)
	if err != nil {
		return 0, nil, err
	}
	if int64(n) != e.Length {
		return 0, nil, fmt.Errorf("short pool read (%d of %d bytes)", n, e.Length)
	}

	var pool []string
	if err := cbor.Unmarshal(buf[kvPoolHeaderSize:], &pool); err != nil {
		return 0, nil, fmt.Errorf("decode pool: %w", err)
	}
	return binary.LittleEndian.Uint32(buf[:kvPoolHeaderSize]), pool, nil
}

// KVPoolKey returns the key stored with the string pool, or 0 without a pool.
func (a *Archive) KVPoolKey() uint32 { return a.kvKey }

// KVPoolLen returns the number of pooled strings.
func (a *Archive) KVPoolLen() int { return len(a.kvPool) }

// KVPoolString returns pooled string i.
func (a *Archive) KVPoolString(i int) (string, bool) {
	if i < 0 || i >= len(a.kvPool) {
		return "", false
	}
	return a.kvPool[i], true
}

// EncodeKVPool builds a kv pool image for the reserved KVPoolName entry.
func EncodeKVPool(key uint32, pool []string) ([]byte, error) {
	body, err := cbor.Marshal(pool)
	if err != nil {
		return nil, fmt.Errorf("encode pool: %w", err)
	}
	out := make([]byte, kvPoolHeaderSize, kvPoolHeaderSize+len(body))
	binary.LittleEndian.PutUint32(out, key)
	return append(out, body...), nil
}
