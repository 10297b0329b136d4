package network

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/trunkstat/trunkstat/pkg/config"
	"github.com/trunkstat/trunkstat/pkg/logger"
	"github.com/trunkstat/trunkstat/pkg/metrics"
	"github.com/trunkstat/trunkstat/pkg/protocol"
)

func startTestServer(t *testing.T, collector *metrics.Collector) (*Server, context.CancelFunc) {
	t.Helper()

	log := logger.New(logger.Config{Level: "error"})
	srv := NewServer(config.ListenConfig{Host: "127.0.0.1", Port: 0}, log)
	if collector != nil {
		srv.WithCollector(collector)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = srv.Start(ctx)
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := srv.WaitStarted(waitCtx); err != nil {
		cancel()
		t.Fatalf("server failed to start: %v", err)
	}

	return srv, cancel
}

func sendTo(t *testing.T, addr net.Addr, data []byte) {
	t.Helper()

	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestServer_ReceivesStatusPacket(t *testing.T) {
	collector := metrics.NewCollector()
	srv, cancel := startTestServer(t, collector)
	defer cancel()

	var mu sync.Mutex
	var received []*protocol.StatusPacket
	srv.OnStatus(func(pkt *protocol.StatusPacket, from *net.UDPAddr) {
		mu.Lock()
		received = append(received, pkt)
		mu.Unlock()
	})

	want := protocol.NewStatusPacket(protocol.EventPushToTalk, 3, 0xABCDE, 0x293, 100, 123456, 1700000000)
	data, err := want.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	sendTo(t, srv.LocalAddr(), data)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(received))
	}
	if *received[0] != *want {
		t.Errorf("received %+v, want %+v", received[0], want)
	}
	if got := collector.GetStatusReceived(); got != 1 {
		t.Errorf("received counter = %d, want 1", got)
	}
}

func TestServer_IgnoresMalformedDatagram(t *testing.T) {
	collector := metrics.NewCollector()
	srv, cancel := startTestServer(t, collector)
	defer cancel()

	called := make(chan struct{}, 1)
	srv.OnStatus(func(pkt *protocol.StatusPacket, from *net.UDPAddr) {
		called <- struct{}{}
	})

	sendTo(t, srv.LocalAddr(), []byte("XX garbage"))

	select {
	case <-called:
		t.Fatal("handler must not run for malformed input")
	case <-time.After(300 * time.Millisecond):
	}

	if got := collector.GetDecodeErrors(); got != 1 {
		t.Errorf("decode error counter = %d, want 1", got)
	}
}

func TestServer_SkipsUnknownExtensionFrame(t *testing.T) {
	srv, cancel := startTestServer(t, nil)
	defer cancel()

	received := make(chan *protocol.StatusPacket, 2)
	srv.OnStatus(func(pkt *protocol.StatusPacket, from *net.UDPAddr) {
		received <- pkt
	})

	// A future 6-word frame followed by a current frame in one datagram:
	// the unknown frame is skipped, the known one decoded.
	ext := make([]byte, 24)
	ext[0] = protocol.Magic0
	ext[1] = protocol.Magic1
	ext[2] = byte(protocol.EventRegistered)
	ext[3] = 6

	want := protocol.NewStatusPacket(protocol.EventAffiliated, 1, 2, 3, 4, 5, 6)
	known, err := want.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	sendTo(t, srv.LocalAddr(), append(ext, known...))

	select {
	case pkt := <-received:
		if *pkt != *want {
			t.Errorf("received %+v, want %+v", pkt, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the known frame")
	}
}

func TestServer_StopsOnContextCancel(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	srv := NewServer(config.ListenConfig{Host: "127.0.0.1", Port: 0}, log)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx)
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := srv.WaitStarted(waitCtx); err != nil {
		t.Fatalf("server failed to start: %v", err)
	}

	cancel()
	select {
	case err := <-errChan:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
