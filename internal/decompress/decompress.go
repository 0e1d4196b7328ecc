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

// Package decompress implements the decompression worker: it inflates each
// record's zlib-wrapped payload, byte-swaps and IEEE-754-decodes its
// fields, and fans the decoded item out to one or more downstream queues.
package decompress

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/pdamian/rtlspec-collector/internal/item"
	"github.com/pdamian/rtlspec-collector/internal/queue"
	"github.com/pdamian/rtlspec-collector/internal/stats"
	"github.com/pdamian/rtlspec-collector/internal/wire"
)

var warnTag = color.New(color.FgYellow).SprintFunc()

// Run pops frame-carrying items from qin, inflates and decodes each, and
// pushes the decoded item to every queue in qsout. It returns once qin is
// closed and drained, after closing every output queue in turn -- the
// worker's own suspension point is the blocking Remove/Insert on those
// queues, so no separate cancellation signal is threaded through here: a
// stopped reception worker closes qin, which unwinds this loop.
//
// workerID tags log lines as "[DCMP] ID: <id>".
func Run(workerID int, qin *queue.Queue[*item.Item], qsout []*queue.Queue[*item.Item], counters *stats.Counters) {
	defer func() {
		for _, qout := range qsout {
			qout.Close()
		}
	}()

	var scratch []byte
	var prevReducedFFTSize uint32 = 0xFFFFFFFF // sentinel: no previous record yet

	for {
		it, ok := qin.Remove()
		if !ok {
			return
		}

		if it.ReducedFFTSize != prevReducedFFTSize {
			scratch = make([]byte, wire.InflatedSize(it.ReducedFFTSize))
			prevReducedFFTSize = it.ReducedFFTSize
		}

		if _, err := inflate(it.Data, scratch); err != nil {
			counters.IncDecodeErrors()
			fmt.Fprintf(os.Stderr, "%s ID:\t%d\t %v\n", warnTag("[DCMP]"), workerID, err)
			// Forward the item rather than dropping it -- whatever scratch
			// holds goes downstream as-is; no record is silently dropped.
		} else {
			counters.IncDecompressed()
		}

		it.Data = nil // release the compressed buffer

		h := wire.DecodeHeader(scratch)
		it.CenterFreq = h.CenterFreq
		it.TsSec = h.TsSec
		it.TsUsec = h.TsUsec
		it.FreqRes = h.FreqRes

		it.Samples = make([]float32, it.ReducedFFTSize)
		wire.DecodeSamples(scratch, it.ReducedFFTSize, it.Samples)

		fanOut(it, qsout)
	}
}

// fanOut delivers it to a single output queue by ownership transfer, or to
// N>1 output queues as independent deep copies.
func fanOut(it *item.Item, qsout []*queue.Queue[*item.Item]) {
	switch len(qsout) {
	case 0:
		return
	case 1:
		qsout[0].Insert(it)
	default:
		for _, qout := range qsout {
			qout.Insert(it.Clone())
		}
	}
}

// inflate decompresses a zlib-wrapped payload into dst, which is sized to
// the exact expected decompressed length. It returns the number of bytes
// actually produced -- which, on a corrupt-input error, may be less than
// len(dst), leaving the remainder of dst at its prior (zero or stale)
// contents.
func inflate(compressed []byte, dst []byte) (int, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return 0, fmt.Errorf("corrupt input: %w", err)
	}
	defer zr.Close()

	n, err := io.ReadFull(zr, dst)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return n, fmt.Errorf("inflate: %w", err)
	}
	if n < len(dst) {
		return n, fmt.Errorf("destination buffer too small: got %d of %d bytes", n, len(dst))
	}
	return n, nil
}
