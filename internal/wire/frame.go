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

// Package wire implements the on-the-wire record framing that the reception
// worker reads off an accepted connection, and the big-endian word codec
// that the decompression worker applies to an inflated payload.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrEndOfStream is returned by ReadFrame when the peer sends the graceful
// data_size == 0 end-of-stream marker.
var ErrEndOfStream = io.EOF

// ErrDataSizeOverflow is returned by ReadFrame when a declared data_size is
// too large to round up to a multiple of 4 without overflowing uint32.
var ErrDataSizeOverflow = errors.New("wire: data_size too large")

// Frame is one still-compressed record read off the socket.
type Frame struct {
	ReducedFFTSize uint32
	DataSize       uint32
	Payload        []byte // length round_up(DataSize, 4)
}

// RoundUp4 rounds n up to the next multiple of 4, so downstream reads
// always byte-swap whole 32-bit words. n must be small enough that n+3
// does not overflow uint32; callers reading an untrusted data_size off
// the wire must check that first.
func RoundUp4(n uint32) uint32 {
	return (n + 3) &^ 3
}

// ReadFrame reads one record header and its padded payload from r.
//
// A data_size of zero is the peer's graceful end-of-stream marker, sent as
// just the 4-byte data_size field with nothing following it: ReadFrame
// returns (nil, ErrEndOfStream) without attempting to read a
// reduced_fft_size field. Any other read failure (including a short read)
// is connection-scoped: the caller should tear down the connection.
func ReadFrame(r io.Reader) (*Frame, error) {
	var dataSizeBuf [4]byte
	if _, err := io.ReadFull(r, dataSizeBuf[:]); err != nil {
		return nil, err
	}
	dataSize := binary.BigEndian.Uint32(dataSizeBuf[:])
	if dataSize == 0 {
		return nil, ErrEndOfStream
	}
	if dataSize > math.MaxUint32-3 {
		return nil, ErrDataSizeOverflow
	}

	var reducedFFTSizeBuf [4]byte
	if _, err := io.ReadFull(r, reducedFFTSizeBuf[:]); err != nil {
		return nil, err
	}
	reducedFFTSize := binary.BigEndian.Uint32(reducedFFTSizeBuf[:])

	payloadSize := RoundUp4(dataSize)
	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	return &Frame{
		ReducedFFTSize: reducedFFTSize,
		DataSize:       dataSize,
		Payload:        payload,
	}, nil
}
