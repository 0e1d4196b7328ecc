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

// Package store implements the storing worker: it rotates output files by
// time window and sweep boundary, and appends one CSV row per decoded
// sample bin.
package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/pdamian/rtlspec-collector/internal/item"
	"github.com/pdamian/rtlspec-collector/internal/queue"
	"github.com/pdamian/rtlspec-collector/internal/stats"
)

var warnTag = color.New(color.FgRed).SprintFunc()

// Context carries the per-connection parameters the storing worker needs:
// the rotation period, the output root, and the peer's address.
type Context struct {
	FileTime time.Duration
	RootPath string
	HostAddr string
	Port     uint16
}

// Run pops decoded items from qin and appends CSV rows to the rotating
// output file for this connection. It returns once qin is closed and
// drained, after flushing and closing any open file.
//
// workerID tags log lines as "[STOR] ID: <id>".
func Run(workerID int, ctx Context, qin *queue.Queue[*item.Item], counters *stats.Counters) {
	dir := filepath.Join(ctx.RootPath, ctx.HostAddr)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		fmt.Fprintf(os.Stderr, "%s ID:\t%d\t %v\n", warnTag("[STOR]"), workerID, errors.Wrap(err, "mkdir"))
	}

	var file *os.File
	var writer *bufio.Writer
	var startT time.Time
	var prevCenterFreq uint32
	haveFile := false

	closeCurrent := func() {
		if writer != nil {
			writer.Flush()
		}
		if file != nil {
			file.Close()
		}
		writer = nil
		file = nil
	}
	defer closeCurrent()

	for {
		it, ok := qin.Remove()
		if !ok {
			return
		}

		now := time.Now()
		if !haveFile || (now.Sub(startT) > ctx.FileTime && it.CenterFreq < prevCenterFreq) {
			closeCurrent()
			path := filePath(ctx, now)
			f, err := os.Create(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s ID:\t%d\t %v\n", warnTag("[STOR]"), workerID,
					errors.Wrapf(err, "failed to open file %s", path))
				// Record-scoped failure: drop this record and retry opening
				// a file on the next one. haveFile must stay false -- no
				// file or writer is open -- or the next record would be
				// written through a nil writer.
				haveFile = false
				prevCenterFreq = it.CenterFreq
				continue
			}
			file = f
			writer = bufio.NewWriter(file)
			startT = now
			haveFile = true
			counters.IncFilesRotated()
		}

		writeRows(writer, it)
		counters.AddRowsWritten(int64(len(it.Samples)))
		prevCenterFreq = it.CenterFreq
	}
}

// filePath builds <root>/<hostaddr>/<YYYY-MM-DD_HH:MM:SS>_<hostaddr>:<port>.csv.
func filePath(ctx Context, at time.Time) string {
	datetime := at.Format("2006-01-02_15:04:05")
	name := fmt.Sprintf("%s_%s:%d.csv", datetime, ctx.HostAddr, ctx.Port)
	return filepath.Join(ctx.RootPath, ctx.HostAddr, name)
}

// writeRows appends one CSV line per sample bin:
// "<ts_sec>,<ts_usec>,<freq>,<sample_with_one_decimal>\n"
// freq = center_freq - (reduced_fft_size/2 - i) * freq_res. The bin offset
// (reduced_fft_size/2 - i) is integer arithmetic; it is then multiplied by
// the float freq_res and the result truncated to an integer frequency.
func writeRows(w *bufio.Writer, it *item.Item) {
	half := int64(it.ReducedFFTSize / 2)
	for i, sample := range it.Samples {
		offset := half - int64(i)
		freq := int64(float64(it.CenterFreq) - float64(offset)*float64(it.FreqRes))
		fmt.Fprintf(w, "%d,%d,%d,%.1f\n", it.TsSec, it.TsUsec, freq, sample)
	}
}
