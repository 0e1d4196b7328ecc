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

// Package reception implements the reception worker body: parked on its
// assignment channel until the acceptor hands it a connection, it spawns a
// private decompression worker and a private storing worker, reads framed
// records off the socket, and tears everything down on disconnect before
// returning itself to the acceptor's pool.
package reception

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"

	"github.com/pdamian/rtlspec-collector/internal/decompress"
	"github.com/pdamian/rtlspec-collector/internal/item"
	"github.com/pdamian/rtlspec-collector/internal/queue"
	"github.com/pdamian/rtlspec-collector/internal/stats"
	"github.com/pdamian/rtlspec-collector/internal/store"
	"github.com/pdamian/rtlspec-collector/internal/wire"
)

// queueCapacity is the fixed capacity of the private decompression and
// storing queues.
const queueCapacity = 1000

var tag = color.New(color.FgCyan).SprintFunc()

// Params are the settings a reception worker inherits from the acceptor.
type Params struct {
	FileTime time.Duration
	RootPath string
	Quiet    bool
}

// Return is how a reception worker returns itself to the acceptor's pool
// once a connection has been fully served.
type Return func(id int)

// Run is the reception worker body, passed to workerpool.Handle.Start. It
// loops: wait for an assignment or cancellation; if assigned, serve the
// connection to completion; then hand itself back via ret. It returns (and
// the goroutine exits) only when ctx is canceled while idle.
func Run(ctx context.Context, assign <-chan net.Conn, workerID int, params Params, counters *stats.Counters, ret Return, signalReady func()) {
	signalReady()
	for {
		select {
		case conn, ok := <-assign:
			if !ok {
				return
			}
			serve(workerID, conn, params, counters)
			ret(workerID)
		case <-ctx.Done():
			return
		}
	}
}

func serve(workerID int, conn net.Conn, params Params, counters *stats.Counters) {
	defer conn.Close()
	counters.IncActiveConns()
	defer counters.DecActiveConns()

	host, portStr, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
		portStr = "0"
	}
	port, _ := strconv.ParseUint(portStr, 10, 16)

	if !params.Quiet {
		fmt.Fprintf(os.Stderr, "%s ID:\t%d\t Request received from %s:%d\n", tag("[RECP]"), workerID, host, port)
	}

	qDecmpr := queue.New[*item.Item](queueCapacity)
	qStor := queue.New[*item.Item](queueCapacity)

	storeCtx := store.Context{
		FileTime: params.FileTime,
		RootPath: params.RootPath,
		HostAddr: host,
		Port:     uint16(port),
	}

	done := make(chan struct{}, 2)
	go func() {
		decompress.Run(workerID, qDecmpr, []*queue.Queue[*item.Item]{qStor}, counters)
		done <- struct{}{}
	}()
	go func() {
		store.Run(workerID, storeCtx, qStor, counters)
		done <- struct{}{}
	}()

	readLoop(workerID, conn, qDecmpr, counters)

	// Signal that no further items will appear; join the private workers.
	qDecmpr.Close()
	<-done
	<-done

	if !params.Quiet {
		fmt.Fprintf(os.Stderr, "%s ID:\t%d\t Request served\n", tag("[RECP]"), workerID)
	}
}

// readLoop reads framed records off conn and pushes them to qDecmpr until
// the peer's graceful end-of-stream marker (data_size == 0) or a partial
// read (treated as connection loss).
func readLoop(workerID int, conn net.Conn, qDecmpr *queue.Queue[*item.Item], counters *stats.Counters) {
	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			if err != wire.ErrEndOfStream {
				fmt.Fprintf(os.Stderr, "%s ID:\t%d\t connection lost: %v\n", tag("[RECP]"), workerID, err)
			}
			return
		}

		counters.IncAccepted()
		it := &item.Item{
			ReducedFFTSize: frame.ReducedFFTSize,
			DataSize:       frame.DataSize,
			Data:           frame.Payload,
		}
		if !qDecmpr.Insert(it) {
			return
		}
	}
}
