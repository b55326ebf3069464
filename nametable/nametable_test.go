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

package nametable_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-gamefs/nametable"
)

func TestInternCaseInsensitive(t *testing.T) {
	t.Parallel()

	table := nametable.New()

	first := table.Intern("Maps/De_Dust.bsp")
	second := table.Intern("maps/de_dust.BSP")

	assert.Equal(t, first, second)
	assert.Equal(t, "Maps/De_Dust.bsp", table.Text(second), "first spelling is preserved")
	assert.NotEqual(t, first, table.Intern("maps/de_dust2.bsp"))
}

func TestEmptyString(t *testing.T) {
	t.Parallel()

	table := nametable.New()

	assert.Equal(t, nametable.Empty, table.Intern(""))
	assert.Empty(t, table.Text(nametable.Empty))
	assert.Equal(t, 1, table.Len())
}

func TestLookupDoesNotIntern(t *testing.T) {
	t.Parallel()

	table := nametable.New()

	_, ok := table.Lookup("GAME")
	require.False(t, ok)
	assert.Equal(t, 1, table.Len())

	sym := table.Intern("GAME")
	got, ok := table.Lookup("game")
	require.True(t, ok)
	assert.Equal(t, sym, got)
}

func TestUnknownSymbol(t *testing.T) {
	t.Parallel()

	table := nametable.New()
	assert.Empty(t, table.Text(nametable.Symbol(42)))
}

func TestConcurrentIntern(t *testing.T) {
	t.Parallel()

	table := nametable.New()

	const workers = 8
	const names = 200

	results := make([][]nametable.Symbol, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			syms := make([]nametable.Symbol, names)
			for i := 0; i < names; i++ {
				// Alternate casing between workers.
				name := fmt.Sprintf("materials/tex%03d.vtf", i)
				if w%2 == 1 {
					name = fmt.Sprintf("MATERIALS/TEX%03d.VTF", i)
				}
				syms[i] = table.Intern(name)
			}
			results[w] = syms
		}(w)
	}
	wg.Wait()

	for w := 1; w < workers; w++ {
		assert.Equal(t, results[0], results[w])
	}
	assert.Equal(t, names+1, table.Len())
}
