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

// Package acceptor owns the listening socket and the fixed-size pool of
// reception workers. It checks out one idle worker per inbound connection
// and hands it the accepted net.Conn over the worker's own assignment
// channel, running a single-threaded accept loop.
package acceptor

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/pdamian/rtlspec-collector/internal/queue"
	"github.com/pdamian/rtlspec-collector/internal/reception"
	"github.com/pdamian/rtlspec-collector/internal/stats"
	"github.com/pdamian/rtlspec-collector/internal/workerpool"
)

var tag = color.New(color.FgGreen).SprintFunc()

// Config is the acceptor's process-lifetime configuration, populated by the
// caller from CLI flags and/or a JSON override file.
type Config struct {
	Port     uint16
	PoolSize int
	FileTime time.Duration
	RootPath string
	Quiet    bool
}

// Acceptor owns the listener and the pool of idle reception-worker handles
// for the lifetime of the process.
type Acceptor struct {
	cfg      Config
	counters *stats.Counters

	listener net.Listener
	pool     *queue.Queue[*workerpool.Handle]
	workers  []*workerpool.Handle

	connsMu sync.Mutex
	conns   map[int]net.Conn

	cancel context.CancelFunc
	loopWg sync.WaitGroup
}

// New constructs an Acceptor, spawns its pool of reception workers and
// blocks until every one of them has signaled readiness, then binds the
// listening socket. It does not start accepting connections; call Run for
// that.
func New(cfg Config, counters *stats.Counters) (*Acceptor, error) {
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Acceptor{
		cfg:      cfg,
		counters: counters,
		pool:     queue.New[*workerpool.Handle](cfg.PoolSize),
		workers:  make([]*workerpool.Handle, 0, cfg.PoolSize),
		conns:    make(map[int]net.Conn),
		cancel:   cancel,
	}

	recvParams := reception.Params{
		FileTime: cfg.FileTime,
		RootPath: cfg.RootPath,
		Quiet:    cfg.Quiet,
	}

	for i := 0; i < cfg.PoolSize; i++ {
		h := workerpool.NewHandle(ctx, i)
		a.workers = append(a.workers, h)
		h.Start(func(ctx context.Context, assign <-chan net.Conn) {
			reception.Run(ctx, assign, h.ID, recvParams, counters, a.returnWorker, h.SignalReady)
		})
		h.WaitReady()
		a.pool.Insert(h)
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		a.shutdownWorkers()
		return nil, errors.Wrap(err, "acceptor: listen")
	}
	a.listener = ln

	return a, nil
}

// returnWorker re-enqueues a reception worker into the pool once it has
// finished serving a connection. It blocks if the pool is momentarily full.
func (a *Acceptor) returnWorker(id int) {
	if id < 0 || id >= len(a.workers) {
		return
	}
	a.untrackConn(id)
	a.pool.Insert(a.workers[id])
}

// trackConn records the connection a worker is currently serving, so
// Shutdown can close it out from under a worker parked in a blocking read.
func (a *Acceptor) trackConn(id int, conn net.Conn) {
	a.connsMu.Lock()
	a.conns[id] = conn
	a.connsMu.Unlock()
}

// untrackConn drops the record of the connection a worker was serving,
// once that worker has returned to the pool.
func (a *Acceptor) untrackConn(id int) {
	a.connsMu.Lock()
	delete(a.conns, id)
	a.connsMu.Unlock()
}

// closeActiveConns closes every connection currently assigned to a worker,
// unblocking any worker parked in a socket read so Shutdown's join can
// complete without waiting on a peer to disconnect on its own.
func (a *Acceptor) closeActiveConns() {
	a.connsMu.Lock()
	conns := make([]net.Conn, 0, len(a.conns))
	for _, c := range a.conns {
		conns = append(conns, c)
	}
	a.connsMu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Run is the acceptor's single-threaded main loop: check out an idle
// worker, accept the next connection, hand it off. It returns when the
// listener is closed by Shutdown.
func (a *Acceptor) Run() {
	a.loopWg.Add(1)
	defer a.loopWg.Done()

	for {
		h, ok := a.pool.Remove()
		if !ok {
			return
		}

		conn, err := a.listener.Accept()
		if err != nil {
			// Listener closed under us during Shutdown; give the worker
			// back so teardown can still drain and join it cleanly.
			a.pool.Insert(h)
			return
		}

		a.trackConn(h.ID, conn)
		if !h.Assign(conn) {
			// Worker's context was canceled between checkout and handoff.
			a.untrackConn(h.ID)
			conn.Close()
			return
		}
	}
}

// Shutdown closes the listener, closes every connection currently being
// served, cancels every worker's context, and joins them. It is safe to
// call once; subsequent calls are no-ops beyond the listener already being
// closed.
func (a *Acceptor) Shutdown() {
	if a.listener != nil {
		a.listener.Close()
	}
	// Unblocks Run if it is parked waiting for an idle worker rather than
	// inside Accept; the loop then sees ok == false and exits.
	a.pool.Close()
	a.loopWg.Wait()

	a.cancel()
	// Unblocks any worker parked in a socket read so shutdownWorkers' join
	// doesn't wait on a peer that never disconnects on its own.
	a.closeActiveConns()
	a.shutdownWorkers()

	if !a.cfg.Quiet {
		fmt.Fprintf(os.Stderr, "%s shutdown complete\n", tag("[ACPT]"))
	}
}

func (a *Acceptor) shutdownWorkers() {
	for _, h := range a.workers {
		h.RequestStop()
	}
	for _, h := range a.workers {
		h.Wait()
	}
}

// Addr returns the bound listener address, useful for tests that bind to
// port 0.
func (a *Acceptor) Addr() net.Addr {
	return a.listener.Addr()
}
