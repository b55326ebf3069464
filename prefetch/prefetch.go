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

// Package prefetch runs best-effort background reads on a bounded worker
// pool. Requests are dispatched highest priority first and may be cancelled
// or reprioritized until a worker picks them up.
package prefetch

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 4

// ErrClosed indicates a submit after Release.
var ErrClosed = errors.New("prefetcher released")

// State is the lifecycle state of a ticket.
type State int32

// Ticket states.
const (
	StatePending State = iota
	StateRunning
	StateDone
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Request is one prefetch job.
type Request struct {
	Name     string
	PathID   string
	Priority int
	Load     func(ctx context.Context) error
}

// Ticket tracks a submitted request.
type Ticket struct {
	req   Request
	ctx   context.Context
	state atomic.Int32
	done  chan struct{}
	err   error
	seq   uint64
}

// Request returns the submitted request.
func (t *Ticket) Request() Request { return t.req }

// State returns the current state.
func (t *Ticket) State() State { return State(t.state.Load()) }

// Done is closed once the ticket finishes or is cancelled.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Err returns the load error after Done is closed.
func (t *Ticket) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Cancel withdraws a pending ticket and reports whether it did so. A ticket
// that is already running, done or cancelled is left alone.
func (t *Ticket) Cancel() bool {
	if !t.state.CompareAndSwap(int32(StatePending), int32(StateCancelled)) {
		return false
	}
	close(t.done)
	return true
}

type ticketQueue []*Ticket

func (q ticketQueue) Len() int { return len(q) }
func (q ticketQueue) Less(i, j int) bool {
	if q[i].req.Priority != q[j].req.Priority {
		return q[i].req.Priority > q[j].req.Priority
	}
	return q[i].seq < q[j].seq
}
func (q ticketQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *ticketQueue) Push(x any)   { *q = append(*q, x.(*Ticket)) } //nolint:forcetypeassert // heap only holds tickets
func (q *ticketQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

type cfg struct {
	log     *zap.Logger
	workers int
}

// Option configures a Prefetcher.
type Option func(*cfg)

// WithLogger returns an option to specify the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		if l != nil {
			c.log = l
		}
	}
}

// WithWorkers returns an option to set the pool size.
func WithWorkers(n int) Option {
	return func(c *cfg) {
		if n > 0 {
			c.workers = n
		}
	}
}

// Prefetcher dispatches requests to an ants pool.
type Prefetcher struct {
	log  *zap.Logger
	pool *ants.Pool

	mu      sync.Mutex
	queue   ticketQueue
	seq     uint64
	workers int
	active  int
	pending sync.WaitGroup
	closed  bool
}

// New starts a prefetcher.
func New(opts ...Option) (*Prefetcher, error) {
	c := &cfg{log: zap.NewNop(), workers: DefaultWorkers}
	for _, o := range opts {
		o(c)
	}
	p := &Prefetcher{log: c.log, workers: c.workers}
	pool, err := ants.NewPool(c.workers, ants.WithPanicHandler(func(r any) {
		p.log.Error("prefetch worker panicked", zap.Any("panic", r))
	}))
	if err != nil {
		return nil, fmt.Errorf("create prefetch pool: %w", err)
	}
	p.pool = pool
	return p, nil
}

// Submit queues req. The returned ticket is cancelled immediately when the
// prefetcher has been released.
func (p *Prefetcher) Submit(ctx context.Context, req Request) *Ticket {
	t := &Ticket{req: req, ctx: ctx, done: make(chan struct{})}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		t.err = ErrClosed
		t.Cancel()
		return t
	}
	t.seq = p.seq
	p.seq++
	heap.Push(&p.queue, t)
	p.pending.Add(1)
	spawn := p.active < p.workers
	if spawn {
		p.active++
	}
	p.mu.Unlock()

	if spawn {
		if err := p.pool.Submit(p.drain); err != nil {
			p.log.Debug("prefetch dispatch rejected", zap.String("name", req.Name), zap.Error(err))
			p.drain()
		}
	}
	return t
}

// Resubmit cancels t and submits its request again at priority. When t can
// no longer be cancelled it is returned unchanged with false.
func (p *Prefetcher) Resubmit(t *Ticket, priority int) (*Ticket, bool) {
	if !t.Cancel() {
		return t, false
	}
	req := t.req
	req.Priority = priority
	return p.Submit(t.ctx, req), true
}

// drain runs queued tickets, highest priority first, until the queue is
// empty. While the queue is non-empty at least one drain is active.
func (p *Prefetcher) drain() {
	for {
		p.mu.Lock()
		if p.queue.Len() == 0 {
			p.active--
			p.mu.Unlock()
			return
		}
		t := heap.Pop(&p.queue).(*Ticket) //nolint:forcetypeassert // heap only holds tickets
		p.mu.Unlock()

		p.run(t)
		p.pending.Done()
	}
}

func (p *Prefetcher) run(t *Ticket) {
	if !t.state.CompareAndSwap(int32(StatePending), int32(StateRunning)) {
		return
	}
	if err := t.ctx.Err(); err != nil {
		t.err = err
		t.state.Store(int32(StateCancelled))
		close(t.done)
		return
	}

	if t.req.Load != nil {
		t.err = t.req.Load(t.ctx)
	}
	if t.err != nil {
		p.log.Debug("prefetch failed", zap.String("name", t.req.Name), zap.String("path_id", t.req.PathID), zap.Error(t.err))
	}
	t.state.Store(int32(StateDone))
	close(t.done)
}

// Wait blocks until every submitted ticket has been dispatched or ctx ends.
func (p *Prefetcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for prefetch: %w", ctx.Err())
	}
}

// Running returns the number of busy workers.
func (p *Prefetcher) Running() int { return p.pool.Running() }

// Release cancels pending tickets, waits for running ones and stops the pool.
func (p *Prefetcher) Release() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	queued := append(ticketQueue(nil), p.queue...)
	p.mu.Unlock()

	for _, t := range queued {
		t.Cancel()
	}
	p.pending.Wait()
	p.pool.Release()
}
