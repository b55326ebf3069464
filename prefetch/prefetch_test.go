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

package prefetch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ZaparooProject/go-gamefs/prefetch"
)

func newPrefetcher(t *testing.T, workers int) *prefetch.Prefetcher {
	t.Helper()
	p, err := prefetch.New(prefetch.WithLogger(zaptest.NewLogger(t)), prefetch.WithWorkers(workers))
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

// block occupies the only worker until the returned func is called.
func block(t *testing.T, p *prefetch.Prefetcher) func() {
	t.Helper()
	started := make(chan struct{})
	gate := make(chan struct{})
	p.Submit(context.Background(), prefetch.Request{Name: "blocker", Priority: 100, Load: func(context.Context) error {
		close(started)
		<-gate
		return nil
	}})
	<-started
	return func() { close(gate) }
}

func TestSubmitAndWait(t *testing.T) {
	t.Parallel()

	p := newPrefetcher(t, 4)
	var n atomic.Int32
	tickets := make([]*prefetch.Ticket, 16)
	for i := range tickets {
		tickets[i] = p.Submit(context.Background(), prefetch.Request{Name: "f", Load: func(context.Context) error {
			n.Add(1)
			return nil
		}})
	}
	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, int32(16), n.Load())
	for _, tk := range tickets {
		assert.Equal(t, prefetch.StateDone, tk.State())
		require.NoError(t, tk.Err())
		assert.False(t, tk.Cancel(), "completed tickets cannot be cancelled")
	}
}

func TestPriorityOrder(t *testing.T) {
	t.Parallel()

	p := newPrefetcher(t, 1)
	release := block(t, p)

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	p.Submit(context.Background(), prefetch.Request{Name: "low", Priority: 1, Load: record("low")})
	p.Submit(context.Background(), prefetch.Request{Name: "high", Priority: 5, Load: record("high")})
	p.Submit(context.Background(), prefetch.Request{Name: "mid", Priority: 3, Load: record("mid")})
	p.Submit(context.Background(), prefetch.Request{Name: "mid2", Priority: 3, Load: record("mid2")})

	release()
	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, []string{"high", "mid", "mid2", "low"}, order)
}

func TestCancelPending(t *testing.T) {
	t.Parallel()

	p := newPrefetcher(t, 1)
	release := block(t, p)

	var ran atomic.Bool
	tk := p.Submit(context.Background(), prefetch.Request{Name: "x", Load: func(context.Context) error {
		ran.Store(true)
		return nil
	}})
	assert.True(t, tk.Cancel())
	assert.False(t, tk.Cancel())
	assert.Equal(t, prefetch.StateCancelled, tk.State())
	<-tk.Done()

	release()
	require.NoError(t, p.Wait(context.Background()))
	assert.False(t, ran.Load())
}

func TestResubmit(t *testing.T) {
	t.Parallel()

	p := newPrefetcher(t, 1)
	release := block(t, p)

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	first := p.Submit(context.Background(), prefetch.Request{Name: "first", Load: record("first")})
	p.Submit(context.Background(), prefetch.Request{Name: "second", Priority: 2, Load: record("second")})

	moved, ok := p.Resubmit(first, 9)
	require.True(t, ok)
	assert.Equal(t, prefetch.StateCancelled, first.State())
	assert.Equal(t, 9, moved.Request().Priority)

	release()
	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, []string{"first", "second"}, order)

	same, ok := p.Resubmit(moved, 1)
	assert.False(t, ok)
	assert.Same(t, moved, same)
}

func TestCancelRacesCompletion(t *testing.T) {
	t.Parallel()

	p := newPrefetcher(t, 4)
	var loads atomic.Int32
	tickets := make([]*prefetch.Ticket, 200)
	for i := range tickets {
		tickets[i] = p.Submit(context.Background(), prefetch.Request{Name: "r", Load: func(context.Context) error {
			loads.Add(1)
			return nil
		}})
	}

	var cancelled atomic.Int32
	var wg sync.WaitGroup
	for _, tk := range tickets {
		tk := tk
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tk.Cancel() {
				cancelled.Add(1)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, p.Wait(context.Background()))

	done := int32(0)
	for _, tk := range tickets {
		<-tk.Done()
		switch tk.State() {
		case prefetch.StateDone:
			done++
		case prefetch.StateCancelled:
		default:
			t.Fatalf("unexpected state %s", tk.State())
		}
	}
	assert.Equal(t, loads.Load(), done)
	assert.Equal(t, int32(len(tickets)), done+cancelled.Load())
}

func TestContextCancelledBeforeRun(t *testing.T) {
	t.Parallel()

	p := newPrefetcher(t, 1)
	release := block(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	tk := p.Submit(ctx, prefetch.Request{Name: "x", Load: func(context.Context) error { return nil }})
	cancel()
	release()

	<-tk.Done()
	assert.Equal(t, prefetch.StateCancelled, tk.State())
	require.ErrorIs(t, tk.Err(), context.Canceled)
}

func TestLoadError(t *testing.T) {
	t.Parallel()

	p := newPrefetcher(t, 1)
	boom := errors.New("boom")
	tk := p.Submit(context.Background(), prefetch.Request{Name: "x", Load: func(context.Context) error { return boom }})
	<-tk.Done()
	require.ErrorIs(t, tk.Err(), boom)
}

func TestRelease(t *testing.T) {
	t.Parallel()

	p, err := prefetch.New(prefetch.WithWorkers(1))
	require.NoError(t, err)
	release := block(t, p)

	queued := p.Submit(context.Background(), prefetch.Request{Name: "queued"})
	released := make(chan struct{})
	go func() {
		p.Release()
		close(released)
	}()

	// The worker is still blocked, so only Release can finish the ticket.
	<-queued.Done()
	assert.Equal(t, prefetch.StateCancelled, queued.State())
	release()
	<-released

	late := p.Submit(context.Background(), prefetch.Request{Name: "late"})
	<-late.Done()
	require.ErrorIs(t, late.Err(), prefetch.ErrClosed)
	p.Release()
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "running", prefetch.StateRunning.String())
	assert.Equal(t, "State(7)", prefetch.State(7).String())
}
