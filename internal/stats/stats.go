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

// Package stats tracks process-wide ingestion counters and, if configured,
// periodically snapshots them to a CSV file on a ticker, appending one row
// per snapshot with a header written on first use.
package stats

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Counters are the process-wide, atomically-updated ingestion counters.
type Counters struct {
	Accepted     int64 // records accepted off the wire
	Decompressed int64 // records successfully inflated and decoded
	DecodeErrors int64 // inflate/decode failures (record still forwarded)
	RowsWritten  int64 // CSV rows appended across all connections
	FilesRotated int64 // output files opened (including first-open)
	ActiveConns  int64 // connections currently being served
}

func (c *Counters) IncAccepted()     { atomic.AddInt64(&c.Accepted, 1) }
func (c *Counters) IncDecompressed() { atomic.AddInt64(&c.Decompressed, 1) }
func (c *Counters) IncDecodeErrors() { atomic.AddInt64(&c.DecodeErrors, 1) }
func (c *Counters) AddRowsWritten(n int64) {
	atomic.AddInt64(&c.RowsWritten, n)
}
func (c *Counters) IncFilesRotated() { atomic.AddInt64(&c.FilesRotated, 1) }
func (c *Counters) IncActiveConns()  { atomic.AddInt64(&c.ActiveConns, 1) }
func (c *Counters) DecActiveConns()  { atomic.AddInt64(&c.ActiveConns, -1) }

// Header names the CSV columns written by a snapshot, in order.
func (c *Counters) Header() []string {
	return []string{"accepted", "decompressed", "decode_errors", "rows_written", "files_rotated", "active_connections"}
}

// ToSlice snapshots the current counter values as strings, in Header order.
func (c *Counters) ToSlice() []string {
	return []string{
		fmt.Sprint(atomic.LoadInt64(&c.Accepted)),
		fmt.Sprint(atomic.LoadInt64(&c.Decompressed)),
		fmt.Sprint(atomic.LoadInt64(&c.DecodeErrors)),
		fmt.Sprint(atomic.LoadInt64(&c.RowsWritten)),
		fmt.Sprint(atomic.LoadInt64(&c.FilesRotated)),
		fmt.Sprint(atomic.LoadInt64(&c.ActiveConns)),
	}
}

// Reporter periodically appends a Counters snapshot to a CSV file.
func Reporter(ctx context.Context, counters *Counters, path string, period time.Duration) {
	if path == "" || period <= 0 {
		return
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writeSnapshot(path, counters); err != nil {
				log.Println("[STAT]", err)
			}
		}
	}
}

func writeSnapshot(path string, counters *Counters) error {
	logdir, logfile := filepath.Split(path)
	name := logdir + time.Now().Format(logfile)
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
		if err := w.Write(append([]string{"unix"}, counters.Header()...)); err != nil {
			return err
		}
	}
	if err := w.Write(append([]string{fmt.Sprint(time.Now().Unix())}, counters.ToSlice()...)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
