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

// Package item defines the unit of data that flows through the ingestion
// pipeline, from the compressed bytes read off the wire to the decoded
// samples appended to a CSV file.
package item

// Item carries one spectrum-sensing record. Its payload evolves in place as
// it moves through the pipeline: Data is populated (and Samples is nil)
// between reception and decompression; Data is released and Samples is
// populated from decompression onward.
type Item struct {
	// ReducedFFTSize is the bin count of the record, present from reception
	// onward.
	ReducedFFTSize uint32

	// DataSize is the compressed payload length in bytes, as declared on
	// the wire (before round_up-to-4 padding).
	DataSize uint32

	// Data is the compressed payload. It is released (set to nil) exactly
	// once, at the end of decompression.
	Data []byte

	// CenterFreq, TsSec, TsUsec, FreqRes, and Samples are populated by
	// decompression and consumed by storing.
	CenterFreq uint32
	TsSec      uint32
	TsUsec     uint32
	FreqRes    float32

	// Samples has length ReducedFFTSize once decoded. It is released
	// exactly once, at the end of storing.
	Samples []float32
}

// Clone produces a deep copy of the item with its own Samples backing
// array, for the decompression stage's fan-out case (N>1 output queues).
// The compressed Data field is not copied: by the time fan-out happens
// decompression has already consumed and released it.
func (it *Item) Clone() *Item {
	clone := *it
	if it.Samples != nil {
		clone.Samples = make([]float32, len(it.Samples))
		copy(clone.Samples, it.Samples)
	}
	clone.Data = nil
	return &clone
}
