package acceptor

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/pdamian/rtlspec-collector/internal/stats"
)

func TestAcceptorServesOneConnectionAndReturnsWorker(t *testing.T) {
	root := t.TempDir()
	counters := &stats.Counters{}

	a, err := New(Config{Port: 0, PoolSize: 1, FileTime: time.Hour, RootPath: root, Quiet: true}, counters)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	go a.Run()
	defer a.Shutdown()

	conn, err := net.Dial("tcp", a.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	// End-of-stream marker only: a zero-length record closes the
	// connection immediately without writing any CSV output.
	var zero [4]byte
	binary.BigEndian.PutUint32(zero[:], 0)
	if _, err := conn.Write(zero[:]); err != nil {
		t.Fatalf("write end-of-stream marker: %v", err)
	}
	conn.Close()

	// Dial again to exercise the pool a second time. With a pool of one,
	// the server only serves (and then closes) this second connection if
	// the worker went back to the pool after the first.
	conn2, err := net.Dial("tcp", a.Addr().String())
	if err != nil {
		t.Fatalf("second Dial: %v", err)
	}
	if _, err := conn2.Write(zero[:]); err != nil {
		t.Fatalf("write second end-of-stream marker: %v", err)
	}
	conn2.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, err := conn2.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("second connection was not served by the returned worker: %v", err)
	}
	conn2.Close()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for active connection count to settle")
		default:
		}
		if counters.ActiveConns == 0 && counters.Accepted == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAcceptorShutdownClosesListener(t *testing.T) {
	root := t.TempDir()
	a, err := New(Config{Port: 0, PoolSize: 1, FileTime: time.Hour, RootPath: root, Quiet: true}, &stats.Counters{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	go a.Run()

	addr := a.Addr().String()
	a.Shutdown()

	if _, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
		t.Fatalf("expected dial to fail after shutdown")
	}
}

func TestShutdownClosesInFlightConnection(t *testing.T) {
	root := t.TempDir()
	a, err := New(Config{Port: 0, PoolSize: 1, FileTime: time.Hour, RootPath: root, Quiet: true}, &stats.Counters{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	go a.Run()

	conn, err := net.Dial("tcp", a.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// The peer never sends anything and never disconnects, so the worker
	// serving this connection is parked in a blocking socket read. Shutdown
	// must still return -- it should close the connection out from under
	// the worker rather than wait on a peer that never hangs up.
	done := make(chan struct{})
	go func() {
		a.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("Shutdown did not return with a connection parked in a blocking read")
	}
}

func TestNewBindsOSAssignedPort(t *testing.T) {
	root := t.TempDir()
	a, err := New(Config{Port: 0, PoolSize: 1, RootPath: root}, &stats.Counters{})
	if err != nil {
		t.Fatalf("New with port 0 should succeed (OS-assigned port): %v", err)
	}
	defer a.Shutdown()
	if a.Addr() == nil {
		t.Fatalf("expected a bound address")
	}
}
