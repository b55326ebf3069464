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

package searchpath_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ZaparooProject/go-gamefs/internal/packtest"
	"github.com/ZaparooProject/go-gamefs/nametable"
	"github.com/ZaparooProject/go-gamefs/packfile"
	"github.com/ZaparooProject/go-gamefs/searchpath"
)

func newList(t *testing.T) *searchpath.List {
	t.Helper()
	return searchpath.NewList(searchpath.WithLogger(zaptest.NewLogger(t)), searchpath.WithNameTable(nametable.New()))
}

func packRef(t *testing.T, name string) *searchpath.Ref {
	t.Helper()
	image := packtest.New().Add("a.txt", []byte("a")).Bytes()
	a, err := packfile.Prepare(bytes.NewReader(image), int64(len(image)), packfile.WithName(name))
	require.NoError(t, err)
	return searchpath.NewPackRef(a)
}

func dir(l *searchpath.List, path, pathID string, flags ...searchpath.Flags) searchpath.Entry {
	e := searchpath.Entry{Path: searchpath.NormalizePath(path), PathID: l.Intern(pathID)}
	for _, f := range flags {
		e.Flags |= f
	}
	return e
}

func paths(entries []*searchpath.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestAddIdempotent(t *testing.T) {
	t.Parallel()

	l := newList(t)
	assert.True(t, l.Add(dir(l, "/game/csgo", "GAME"), searchpath.Tail))
	assert.False(t, l.Add(dir(l, "/game/csgo/", "game"), searchpath.Tail))
	assert.False(t, l.Add(dir(l, `\game\csgo`, "GAME"), searchpath.Head), "already at head")
	assert.Equal(t, 1, l.Len())

	assert.True(t, l.Add(dir(l, "/game/platform", "GAME"), searchpath.Head))
	assert.True(t, l.Add(dir(l, "/game/csgo", "GAME"), searchpath.Head), "moved to head")
	assert.Equal(t, []string{"/game/csgo/", "/game/platform/"}, paths(l.Entries()))
}

func TestInsertModes(t *testing.T) {
	t.Parallel()

	l := newList(t)
	l.Add(dir(l, "/b", "GAME"), searchpath.Tail)
	l.Add(dir(l, "/c", "GAME"), searchpath.Tail)
	l.Add(dir(l, "/a", "GAME"), searchpath.Head)
	l.Add(dir(l, "/bb", "GAME"), searchpath.TailAtIndex(2))
	l.Add(dir(l, "/z", "GAME"), searchpath.TailAtIndex(99))
	assert.Equal(t, []string{"/a/", "/b/", "/bb/", "/c/", "/z/"}, paths(l.Entries()))

	assert.Equal(t, 2, l.Index("/bb/", "game"))
	assert.Equal(t, -1, l.Index("/bb/", "MOD"))
}

func TestAddGroup(t *testing.T) {
	t.Parallel()

	group := func(l *searchpath.List, names ...string) []searchpath.Entry {
		out := make([]searchpath.Entry, len(names))
		for i, n := range names {
			out[i] = dir(l, n, "GAME")
		}
		return out
	}

	l := newList(t)
	assert.Equal(t, 2, l.AddGroup(group(l, "/x", "/y"), searchpath.Tail))
	assert.Equal(t, 2, l.AddGroup(group(l, "/a", "/b"), searchpath.Head))
	assert.Equal(t, 2, l.AddGroup(group(l, "/m", "/n"), searchpath.TailAtIndex(2)))
	assert.Equal(t, 0, l.AddGroup(group(l, "/x"), searchpath.Tail))
	assert.Equal(t, []string{"/a/", "/b/", "/m/", "/n/", "/x/", "/y/"}, paths(l.Entries()))
}

func TestGroupIndex(t *testing.T) {
	t.Parallel()

	l := newList(t)
	l.Add(dir(l, "/solo", "GAME"), searchpath.Tail)
	l.AddGroup([]searchpath.Entry{dir(l, "/root/pak01", "GAME"), dir(l, "/root", "GAME"), dir(l, "/root/zip0", "GAME")}, searchpath.Tail)

	assert.Equal(t, 0, l.GroupIndex("/solo/", "GAME"))
	assert.Equal(t, 1, l.GroupIndex("/root/", "GAME"), "group starts at its first member")
	assert.Equal(t, 2, l.Index("/root/", "GAME"))
	assert.Equal(t, 1, l.GroupIndex("/ROOT/ZIP0/", "GAME"))
	assert.Equal(t, -1, l.GroupIndex("/root/", "MOD"))
	assert.Equal(t, -1, l.GroupIndex("/missing/", "GAME"))
}

func TestStoreIDShared(t *testing.T) {
	t.Parallel()

	l := newList(t)
	l.Add(dir(l, "/game/csgo", "GAME"), searchpath.Tail)
	l.Add(dir(l, "/game/csgo", "MOD"), searchpath.Tail)
	l.Add(dir(l, "/game/other", "MOD"), searchpath.Tail)

	e := l.Entries()
	assert.Equal(t, e[0].StoreID, e[1].StoreID)
	assert.NotEqual(t, e[0].StoreID, e[2].StoreID)

	// A walk over every path ID visits a shared store once.
	assert.Equal(t, []string{"/game/csgo/", "/game/other/"}, paths(l.Collect(searchpath.Query{})))
	assert.Len(t, l.Collect(searchpath.Query{PathID: "MOD"}), 2)
}

func TestRefSharingAndRelease(t *testing.T) {
	t.Parallel()

	l := newList(t)
	ref := packRef(t, "/game/csgo/pak01.zip")
	require.NoError(t, ref.Acquire())
	l.Add(searchpath.Entry{Path: ref.Name(), PathID: l.Intern("GAME"), Archive: ref}, searchpath.Tail)
	l.Add(searchpath.Entry{Path: ref.Name(), PathID: l.Intern("MOD"), Archive: ref}, searchpath.Tail)
	assert.Equal(t, 2, ref.Refs())

	// Duplicate add hands back its reference.
	require.NoError(t, ref.Acquire())
	assert.False(t, l.Add(searchpath.Entry{Path: ref.Name(), PathID: l.Intern("GAME"), Archive: ref}, searchpath.Tail))
	assert.Equal(t, 2, ref.Refs())

	closed := 0
	ref.OnClose(func(*searchpath.Ref) { closed++ })

	assert.True(t, l.Remove(ref.Name(), "GAME"))
	assert.Equal(t, 1, ref.Refs())
	assert.Zero(t, closed)

	assert.Equal(t, 1, l.RemovePathID("mod"))
	assert.Equal(t, 1, closed)
	require.ErrorIs(t, ref.Acquire(), searchpath.ErrReleased)
	_, err := ref.Pack().ReadFromPack(0, 0, make([]byte, 1))
	require.ErrorIs(t, err, packfile.ErrClosed)
}

func TestClearReleasesInReverseCreationOrder(t *testing.T) {
	t.Parallel()

	l := newList(t)
	var order []string
	for _, name := range []string{"first.zip", "second.zip", "third.zip"} {
		ref := packRef(t, name)
		ref.OnClose(func(r *searchpath.Ref) { order = append(order, r.Name()) })
		l.Add(searchpath.Entry{Path: name, PathID: l.Intern("GAME"), Archive: ref}, searchpath.Head)
	}
	l.Clear()
	assert.Zero(t, l.Len())
	assert.Equal(t, []string{"third.zip", "second.zip", "first.zip"}, order)
}

func TestFilters(t *testing.T) {
	t.Parallel()

	l := newList(t)
	ref := packRef(t, "/game/pak01.zip")
	l.Add(searchpath.Entry{Path: ref.Name(), PathID: l.Intern("GAME"), Archive: ref}, searchpath.Tail)
	loc := packRef(t, "/game_french/pak01.zip")
	l.Add(searchpath.Entry{Path: loc.Name(), PathID: l.Intern("GAME"), Archive: loc, Flags: searchpath.FlagLocalized}, searchpath.Tail)
	l.Add(dir(l, "/game", "GAME"), searchpath.Tail)
	l.Add(dir(l, "/game_french", "GAME", searchpath.FlagLocalized), searchpath.Tail)

	tests := []struct {
		filter searchpath.Filter
		want   []string
	}{
		{searchpath.FilterNone, []string{"/game/pak01.zip", "/game_french/pak01.zip", "/game/", "/game_french/"}},
		{searchpath.FilterNoPack, []string{"/game/", "/game_french/"}},
		{searchpath.FilterPackOnly, []string{"/game/pak01.zip", "/game_french/pak01.zip"}},
		{searchpath.FilterCullLocalized, []string{"/game/pak01.zip"}},
		{searchpath.FilterCullLocalizedAny, []string{"/game/pak01.zip", "/game/"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, paths(l.Collect(searchpath.Query{Filter: tt.filter})), "filter %d", tt.filter)
	}
}

func TestRequestOnlyPathID(t *testing.T) {
	t.Parallel()

	l := newList(t)
	l.Add(dir(l, "/game", "GAME"), searchpath.Tail)
	l.Add(dir(l, "/cfg", "CONFIG"), searchpath.Tail)
	l.MarkRequestOnly("config", true)
	assert.True(t, l.IsRequestOnly("CONFIG"))

	assert.Equal(t, []string{"/game/"}, paths(l.Collect(searchpath.Query{})))
	assert.Equal(t, []string{"/cfg/"}, paths(l.Collect(searchpath.Query{PathID: "CONFIG"})))

	l.MarkRequestOnly("CONFIG", false)
	assert.Len(t, l.Collect(searchpath.Query{}), 2)
}

func TestDVDDevFallback(t *testing.T) {
	t.Parallel()

	l := newList(t)
	ref := packRef(t, "/dvd/pak01.zip")
	l.Add(searchpath.Entry{Path: ref.Name(), PathID: l.Intern("GAME"), Archive: ref}, searchpath.Tail)
	l.Add(dir(l, "/dvd", "GAME"), searchpath.Tail)
	l.Add(dir(l, "/devcache", "GAME", searchpath.FlagDevFallback), searchpath.Tail)

	excl, err := searchpath.ParseExcludeList(strings.NewReader("/dvd/scripts/items.txt\n  /DVD/cfg/config.cfg"))
	require.NoError(t, err)
	assert.Equal(t, 2, excl.Len())

	q := searchpath.Query{Name: "materials/a.vmt", DVDDev: true, Exclude: excl}
	assert.Equal(t, []string{"/dvd/pak01.zip", "/dvd/"}, paths(l.Collect(q)), "fallback ignored without exclusion")

	q.Name = "scripts/items.txt"
	assert.Equal(t, []string{"/devcache/"}, paths(l.Collect(q)), "excluded files only come from the fallback")

	q.Name = "cfg/config.cfg"
	it := l.Iterate(q)
	e, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "/devcache/", e.Path)
	assert.True(t, it.Excluded())

	q = searchpath.Query{Name: "materials/a.vmt", DVDDev: true, Exclude: excl, Filter: searchpath.FilterPackOnly}
	assert.Equal(t, []string{"/dvd/pak01.zip"}, paths(l.Collect(q)), "loose files skipped without an exclusion")
}

func TestDVDDevMapArchiveExempt(t *testing.T) {
	t.Parallel()

	l := newList(t)
	ref := packRef(t, "/dvd/maps/de_dust.bsp")
	l.Add(searchpath.Entry{Path: ref.Name(), PathID: l.Intern("GAME"), Archive: ref, Flags: searchpath.FlagMapArchive}, searchpath.Tail)
	l.Add(dir(l, "/devcache", "GAME", searchpath.FlagDevFallback), searchpath.Tail)

	excl := searchpath.NewExcludeList("/dvd/maps/materials/x.vmt")
	q := searchpath.Query{Name: "materials/x.vmt", DVDDev: true, Exclude: excl}
	assert.Equal(t, []string{"/dvd/maps/de_dust.bsp"}, paths(l.Collect(q)))
}

func TestIsLocalizedPath(t *testing.T) {
	t.Parallel()

	assert.True(t, searchpath.IsLocalizedPath("/game/csgo_french/", "french"))
	assert.True(t, searchpath.IsLocalizedPath(`d:\csgo_FRENCH`, "French"))
	assert.False(t, searchpath.IsLocalizedPath("/game/csgo_english/", "english"))
	assert.False(t, searchpath.IsLocalizedPath("/game/csgo/", "french"))
	assert.False(t, searchpath.IsLocalizedPath("french", "french"))
	assert.False(t, searchpath.IsLocalizedPath("/game/csgo_french/", ""))
}

func TestParseInsertMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]searchpath.InsertMode{
		"":       searchpath.Tail,
		"TAIL":   searchpath.Tail,
		"head":   searchpath.Head,
		"tail@3": searchpath.TailAtIndex(3),
	} {
		got, err := searchpath.ParseInsertMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := searchpath.ParseInsertMode("sideways")
	require.Error(t, err)
	assert.Equal(t, "tail@3", searchpath.TailAtIndex(3).String())
}
