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

// Package metrics exports filesystem I/O statistics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the default metric namespace.
const Namespace = "gamefs"

const kindLabel = "kind"

// Recorder receives I/O events from the filesystem. Kind is the handle kind
// ("plain", "pack" or "chunked").
type Recorder interface {
	Open(kind string)
	Read(kind string, n int)
	Seek()
	PreloadHit()
	Miss()
	MountFailure()
}

// Noop discards every event.
type Noop struct{}

func (Noop) Open(string)      {}
func (Noop) Read(string, int) {}
func (Noop) Seek()            {}
func (Noop) PreloadHit()      {}
func (Noop) Miss()            {}
func (Noop) MountFailure()    {}

// Prometheus records events into prometheus collectors.
type Prometheus struct {
	opens     *prometheus.CounterVec
	reads     *prometheus.CounterVec
	readBytes *prometheus.CounterVec
	readSize  prometheus.Histogram

	seeks         prometheus.Counter
	preloadHits   prometheus.Counter
	misses        prometheus.Counter
	mountFailures prometheus.Counter
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates unregistered collectors under namespace, or
// Namespace when empty.
func NewPrometheus(namespace string) *Prometheus {
	if namespace == "" {
		namespace = Namespace
	}
	return &Prometheus{
		opens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "file",
			Name:      "opens_total",
			Help:      "Files opened, by handle kind",
		}, []string{kindLabel}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "file",
			Name:      "reads_total",
			Help:      "Read calls, by handle kind",
		}, []string{kindLabel}),
		readBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "file",
			Name:      "read_bytes_total",
			Help:      "Bytes read, by handle kind",
		}, []string{kindLabel}),
		readSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "file",
			Name:      "read_size_bytes",
			Help:      "Size of individual reads",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),
		seeks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "file",
			Name:      "seeks_total",
			Help:      "Seek calls",
		}),
		preloadHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pack",
			Name:      "preload_hits_total",
			Help:      "Pack reads served from the preload section",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "misses_total",
			Help:      "Lookups that found no file",
		}),
		mountFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "mount_failures_total",
			Help:      "Search paths that failed to mount",
		}),
	}
}

func (m *Prometheus) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.opens, m.reads, m.readBytes, m.readSize,
		m.seeks, m.preloadHits, m.misses, m.mountFailures,
	}
}

// Register registers every collector with reg.
func (m *Prometheus) Register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}
	return nil
}

func (m *Prometheus) Open(kind string) { m.opens.WithLabelValues(kind).Inc() }

func (m *Prometheus) Read(kind string, n int) {
	m.reads.WithLabelValues(kind).Inc()
	m.readBytes.WithLabelValues(kind).Add(float64(n))
	m.readSize.Observe(float64(n))
}

func (m *Prometheus) Seek()         { m.seeks.Inc() }
func (m *Prometheus) PreloadHit()   { m.preloadHits.Inc() }
func (m *Prometheus) Miss()         { m.misses.Inc() }
func (m *Prometheus) MountFailure() { m.mountFailures.Inc() }
