// Package testhelpers provides shared test infrastructure: a loopback UDP
// sink for asserting on transmitted telemetry datagrams.
package testhelpers

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// UDPSink is a loopback UDP listener that records every datagram it
// receives, in arrival order.
type UDPSink struct {
	conn *net.UDPConn

	mu        sync.Mutex
	datagrams [][]byte

	done chan struct{}
}

// NewUDPSink binds a sink to an ephemeral loopback port and starts
// recording.
func NewUDPSink() (*UDPSink, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, fmt.Errorf("bind sink: %w", err)
	}

	s := &UDPSink{
		conn: conn,
		done: make(chan struct{}),
	}
	go s.readLoop()

	return s, nil
}

func (s *UDPSink) readLoop() {
	defer close(s.done)
	buffer := make([]byte, 1024)
	for {
		n, _, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			return
		}
		data := make([]byte, n)
		copy(data, buffer[:n])

		s.mu.Lock()
		s.datagrams = append(s.datagrams, data)
		s.mu.Unlock()
	}
}

// Addr returns the sink's bound address.
func (s *UDPSink) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// URI returns the sink's address as a udp:// destination string.
func (s *UDPSink) URI() string {
	return fmt.Sprintf("udp://127.0.0.1:%d", s.Addr().Port)
}

// Datagrams returns a copy of the datagrams received so far.
func (s *UDPSink) Datagrams() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(s.datagrams))
	for i, d := range s.datagrams {
		out[i] = append([]byte(nil), d...)
	}
	return out
}

// WaitForDatagrams polls until at least n datagrams have arrived or the
// timeout expires.
func (s *UDPSink) WaitForDatagrams(n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		count := len(s.datagrams)
		s.mu.Unlock()
		if count >= n {
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.mu.Lock()
	count := len(s.datagrams)
	s.mu.Unlock()
	return fmt.Errorf("timed out waiting for %d datagrams, have %d", n, count)
}

// Close stops the sink.
func (s *UDPSink) Close() {
	s.conn.Close()
	<-s.done
}
