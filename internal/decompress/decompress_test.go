package decompress

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/pdamian/rtlspec-collector/internal/item"
	"github.com/pdamian/rtlspec-collector/internal/queue"
	"github.com/pdamian/rtlspec-collector/internal/stats"
	"github.com/pdamian/rtlspec-collector/internal/wire"
)

func compress(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(plain); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

func TestDecompressSingleOutputTransfersOwnership(t *testing.T) {
	samples := []float32{-10.0, -20.0, -30.0, -40.0}
	h := wire.Header{CenterFreq: 100_000_000, TsSec: 1000, TsUsec: 0, FreqRes: 1_000_000.0}
	plain := wire.EncodePayload(h, samples)
	compressed := compress(t, plain)

	qin := queue.New[*item.Item](4)
	qout := queue.New[*item.Item](4)
	counters := &stats.Counters{}

	qin.Insert(&item.Item{ReducedFFTSize: uint32(len(samples)), DataSize: uint32(len(compressed)), Data: compressed})
	qin.Close()

	Run(1, qin, []*queue.Queue[*item.Item]{qout}, counters)

	out, ok := qout.Remove()
	if !ok {
		t.Fatalf("expected one decoded item on the output queue")
	}
	if out.CenterFreq != h.CenterFreq || out.TsSec != h.TsSec || out.FreqRes != h.FreqRes {
		t.Fatalf("decoded header mismatch: %+v", out)
	}
	for i, want := range samples {
		if out.Samples[i] != want {
			t.Fatalf("sample %d: got %v want %v", i, out.Samples[i], want)
		}
	}
	if out.Data != nil {
		t.Fatalf("compressed buffer should be released after decompression")
	}
	if counters.Decompressed != 1 {
		t.Fatalf("expected Decompressed counter to be 1, got %d", counters.Decompressed)
	}

	if _, ok := qout.Remove(); ok {
		t.Fatalf("expected output queue to be closed after input drained")
	}
}

func TestDecompressFanOutProducesIndependentCopies(t *testing.T) {
	samples := []float32{1, 2, 3}
	h := wire.Header{CenterFreq: 1, TsSec: 2, TsUsec: 3, FreqRes: 4}
	compressed := compress(t, wire.EncodePayload(h, samples))

	qin := queue.New[*item.Item](1)
	qa := queue.New[*item.Item](1)
	qb := queue.New[*item.Item](1)
	counters := &stats.Counters{}

	qin.Insert(&item.Item{ReducedFFTSize: uint32(len(samples)), DataSize: uint32(len(compressed)), Data: compressed})
	qin.Close()

	Run(1, qin, []*queue.Queue[*item.Item]{qa, qb}, counters)

	a, _ := qa.Remove()
	b, _ := qb.Remove()
	if a == b {
		t.Fatalf("fan-out copies must not alias the same item")
	}
	if &a.Samples[0] == &b.Samples[0] {
		t.Fatalf("fan-out copies must not alias the same sample backing array")
	}
	if a.CenterFreq != b.CenterFreq || a.FreqRes != b.FreqRes {
		t.Fatalf("fan-out copies must carry equal decoded content")
	}
}

func TestCorruptPayloadLogsAndContinues(t *testing.T) {
	qin := queue.New[*item.Item](2)
	qout := queue.New[*item.Item](2)
	counters := &stats.Counters{}

	// Not a valid zlib stream.
	qin.Insert(&item.Item{ReducedFFTSize: 2, DataSize: 4, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}})

	samples := []float32{5, 6}
	h := wire.Header{CenterFreq: 10, TsSec: 20, TsUsec: 30, FreqRes: 1}
	good := compress(t, wire.EncodePayload(h, samples))
	qin.Insert(&item.Item{ReducedFFTSize: uint32(len(samples)), DataSize: uint32(len(good)), Data: good})
	qin.Close()

	Run(1, qin, []*queue.Queue[*item.Item]{qout}, counters)

	if counters.DecodeErrors != 1 {
		t.Fatalf("expected one decode error, got %d", counters.DecodeErrors)
	}

	// Corrupt record is still forwarded (garbage but present).
	first, ok := qout.Remove()
	if !ok || first == nil {
		t.Fatalf("corrupt record should still be forwarded downstream")
	}

	// The worker continues to accept the next, valid record.
	second, ok := qout.Remove()
	if !ok {
		t.Fatalf("expected the following valid record to be forwarded")
	}
	if second.CenterFreq != h.CenterFreq {
		t.Fatalf("decoder did not continue correctly after a corrupt record")
	}
}
