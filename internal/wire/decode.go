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

package wire

import (
	"encoding/binary"
	"math"
)

// headerWords is the count of 32-bit words preceding the sample array in an
// inflated payload: center_freq, ts_sec, ts_usec, freq_res.
const headerWords = 4

// InflatedSize returns the expected decompressed length, in bytes, of a
// payload carrying reducedFFTSize samples.
func InflatedSize(reducedFFTSize uint32) int {
	return int(headerWords+reducedFFTSize) * 4
}

// Header is the fixed-size prefix of an inflated payload.
type Header struct {
	CenterFreq uint32
	TsSec      uint32
	TsUsec     uint32
	FreqRes    float32
}

// DecodeHeader reads the four leading big-endian words of an inflated
// payload. buf must be at least 16 bytes.
func DecodeHeader(buf []byte) Header {
	return Header{
		CenterFreq: binary.BigEndian.Uint32(buf[0:4]),
		TsSec:      binary.BigEndian.Uint32(buf[4:8]),
		TsUsec:     binary.BigEndian.Uint32(buf[8:12]),
		FreqRes:    unpack754(binary.BigEndian.Uint32(buf[12:16])),
	}
}

// DecodeSamples reads n big-endian binary32 samples starting right after
// the header (byte offset 4*headerWords) into dst, which must have length
// n.
func DecodeSamples(buf []byte, n uint32, dst []float32) {
	base := headerWords * 4
	for i := uint32(0); i < n; i++ {
		off := base + int(i)*4
		dst[i] = unpack754(binary.BigEndian.Uint32(buf[off : off+4]))
	}
}

// unpack754 interprets a byte-swapped 32-bit word as IEEE-754 binary32: one
// sign bit, eight biased exponent bits (bias 127), twenty-three mantissa
// bits. math.Float32frombits already implements exactly this layout, so no
// hand-rolled bit-twiddling is needed here.
func unpack754(word uint32) float32 {
	return math.Float32frombits(word)
}

// pack754 is the inverse of unpack754, used by tests exercising the
// encode/decode round trip.
func pack754(f float32) uint32 {
	return math.Float32bits(f)
}

// EncodePayload is the inverse of DecodeHeader+DecodeSamples: it serializes
// a header and sample set into the inflated big-endian byte layout. It
// exists so tests can construct wire-accurate fixtures and exercise the
// round-trip property without duplicating decode logic by hand.
func EncodePayload(h Header, samples []float32) []byte {
	buf := make([]byte, InflatedSize(uint32(len(samples))))
	binary.BigEndian.PutUint32(buf[0:4], h.CenterFreq)
	binary.BigEndian.PutUint32(buf[4:8], h.TsSec)
	binary.BigEndian.PutUint32(buf[8:12], h.TsUsec)
	binary.BigEndian.PutUint32(buf[12:16], pack754(h.FreqRes))
	base := headerWords * 4
	for i, s := range samples {
		binary.BigEndian.PutUint32(buf[base+i*4:base+i*4+4], pack754(s))
	}
	return buf
}
