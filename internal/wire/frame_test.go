package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

func TestRoundUp4(t *testing.T) {
	cases := map[uint32]uint32{0: 0, 1: 4, 2: 4, 3: 4, 4: 4, 5: 8, 17: 20}
	for in, want := range cases {
		if got := RoundUp4(in); got != want {
			t.Fatalf("RoundUp4(%d) = %d, want %d", in, got, want)
		}
	}
}

func writeFrame(dataSize, reducedFFTSize uint32, payload []byte) []byte {
	var buf bytes.Buffer
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], dataSize)
	binary.BigEndian.PutUint32(hdr[4:8], reducedFFTSize)
	buf.Write(hdr[:])
	buf.Write(payload)
	return buf.Bytes()
}

func TestReadFrameAligns4ByteBoundaryOnOddSize(t *testing.T) {
	payload := make([]byte, RoundUp4(5))
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	wire := writeFrame(5, 4, payload)
	// Append a second, legitimate frame right after to prove alignment held.
	second := writeFrame(0, 0, nil)
	wire = append(wire, second...)

	r := bytes.NewReader(wire)
	f, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.DataSize != 5 || f.ReducedFFTSize != 4 {
		t.Fatalf("unexpected frame header: %+v", f)
	}
	if len(f.Payload) != 8 {
		t.Fatalf("expected payload padded to 8 bytes, got %d", len(f.Payload))
	}

	if _, err := ReadFrame(r); err != ErrEndOfStream {
		t.Fatalf("expected end-of-stream on the following zero-size frame, got %v", err)
	}
}

func TestReadFrameZeroSizeIsEndOfStream(t *testing.T) {
	wire := writeFrame(0, 0, nil)
	_, err := ReadFrame(bytes.NewReader(wire))
	if err != ErrEndOfStream {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
}

func TestReadFrameRejectsDataSizeOverflow(t *testing.T) {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], 0xFFFFFFFE)
	_, err := ReadFrame(bytes.NewReader(hdr[:]))
	if err != ErrDataSizeOverflow {
		t.Fatalf("expected ErrDataSizeOverflow, got %v", err)
	}
}

func TestReadFramePartialReadIsConnectionLoss(t *testing.T) {
	wire := writeFrame(8, 4, make([]byte, 8))
	truncated := wire[:len(wire)-3]
	_, err := ReadFrame(bytes.NewReader(truncated))
	if err == nil {
		t.Fatalf("expected an error on a truncated frame")
	}
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}
