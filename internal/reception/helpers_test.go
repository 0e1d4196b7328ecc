package reception

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"net"
	"testing"

	"github.com/pdamian/rtlspec-collector/internal/wire"
)

func sampleHeaderAndSamples() (wire.Header, []float32) {
	h := wire.Header{CenterFreq: 100_000_000, TsSec: 1000, TsUsec: 0, FreqRes: 1_000_000.0}
	return h, []float32{-10.0, -20.0, -30.0, -40.0}
}

// writeTestFrame writes one wire-format record to conn. If reducedFFTSize
// is 0 it writes only the 4-byte data_size == 0 end-of-stream marker.
func writeTestFrame(t *testing.T, conn net.Conn, reducedFFTSize uint32) {
	t.Helper()
	if reducedFFTSize == 0 {
		var dataSize [4]byte
		if _, err := conn.Write(dataSize[:]); err != nil {
			t.Fatalf("write end-of-stream marker: %v", err)
		}
		return
	}

	h, samples := sampleHeaderAndSamples()
	plain := wire.EncodePayload(h, samples)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(plain); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}

	dataSize := uint32(compressed.Len())
	padded := wire.RoundUp4(dataSize)
	payload := make([]byte, padded)
	copy(payload, compressed.Bytes())

	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], dataSize)
	binary.BigEndian.PutUint32(hdr[4:8], reducedFFTSize)

	if _, err := conn.Write(hdr[:]); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
}
