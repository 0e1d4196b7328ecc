// The MIT License (MIT)
//
// # Copyright (c) 2024 rtlspec-collector authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package workerpool provides the reception worker pool's building block: a
// named, individually addressable worker handle carrying a cancellation
// signal, a single-slot work-assignment channel, and a join mechanism.
//
// It uses channel-native primitives throughout: a context.Context for
// cancellation, a one-shot "ready" channel for startup rendezvous, and a
// typed single-slot channel for handing off the accepted connection. No
// field on Handle is ever mutated under a mutex by two different owners.
package workerpool

import (
	"context"
	"net"
	"sync"
)

// Handle is one reception-worker slot in the acceptor's pool.
type Handle struct {
	// ID is a stable, human-readable identifier used in log tags
	// ("[RECP] ID: 3 ...").
	ID int

	ctx    context.Context
	cancel context.CancelFunc

	ready  chan struct{}
	assign chan net.Conn

	wg sync.WaitGroup
}

// NewHandle constructs a Handle in the ready state. The caller must call
// Start to actually run the worker body in a new goroutine.
func NewHandle(parent context.Context, id int) *Handle {
	ctx, cancel := context.WithCancel(parent)
	return &Handle{
		ID:     id,
		ctx:    ctx,
		cancel: cancel,
		ready:  make(chan struct{}),
		assign: make(chan net.Conn),
	}
}

// Start runs body in a new goroutine and returns immediately. Use Wait to
// join it. body is handed the worker's Context (canceled by RequestStop)
// and its Assignment channel.
func (h *Handle) Start(body func(ctx context.Context, assign <-chan net.Conn)) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		body(h.ctx, h.assign)
	}()
}

// SignalReady confirms to the acceptor that this worker is about to wait on
// its own assignment channel and is safe to insert into the pool: the
// assignment channel is unbuffered, so an Assign made before the worker
// reaches that wait blocks until it does. It may be called at most once;
// subsequent calls are no-ops.
func (h *Handle) SignalReady() {
	select {
	case <-h.ready:
	default:
		close(h.ready)
	}
}

// WaitReady blocks until the worker has signaled readiness. Called by the
// acceptor immediately after Start, so a worker is never inserted into the
// pool before it has signaled that it is about to wait for an assignment.
func (h *Handle) WaitReady() {
	<-h.ready
}

// Assign hands the accepted connection to the worker. It blocks until the
// worker is parked waiting for an assignment, or the worker's context is
// canceled.
func (h *Handle) Assign(conn net.Conn) bool {
	select {
	case h.assign <- conn:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Context returns the worker's cancellation context.
func (h *Handle) Context() context.Context {
	return h.ctx
}

// RequestStop cancels the worker's context. Workers observe this the next
// time they select on ctx.Done() (the reception worker does so while waiting
// for an assignment) without reacquiring any lock. Queue operations and
// socket reads do not observe it.
func (h *Handle) RequestStop() {
	h.cancel()
}

// Wait joins the worker goroutine started by Start.
func (h *Handle) Wait() {
	h.wg.Wait()
}
