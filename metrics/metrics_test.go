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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	t.Parallel()

	m := NewPrometheus("")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.Open("pack")
	m.Open("pack")
	m.Open("plain")
	m.Read("pack", 100)
	m.Read("pack", 28)
	m.Seek()
	m.PreloadHit()
	m.Miss()
	m.MountFailure()

	assert.InDelta(t, 2, testutil.ToFloat64(m.opens.WithLabelValues("pack")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.opens.WithLabelValues("plain")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.reads.WithLabelValues("pack")), 0)
	assert.InDelta(t, 128, testutil.ToFloat64(m.readBytes.WithLabelValues("pack")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.seeks), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.preloadHits), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.misses), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.mountFailures), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "gamefs_file_opens_total")
	assert.Contains(t, names, "gamefs_pack_preload_hits_total")
}

func TestRegisterTwiceFails(t *testing.T) {
	t.Parallel()

	m := NewPrometheus("test")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	require.Error(t, m.Register(reg))
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var r Recorder = Noop{}
	r.Open("plain")
	r.Read("plain", 1)
	r.Seek()
	r.PreloadHit()
	r.Miss()
	r.MountFailure()
}
