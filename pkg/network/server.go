package network

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/trunkstat/trunkstat/pkg/config"
	"github.com/trunkstat/trunkstat/pkg/logger"
	"github.com/trunkstat/trunkstat/pkg/metrics"
	"github.com/trunkstat/trunkstat/pkg/protocol"
)

// StatusHandler is invoked for each decoded status packet.
type StatusHandler func(pkt *protocol.StatusPacket, from *net.UDPAddr)

// Server is the UDP listener side of the telemetry stream: it receives
// datagrams from producers, decodes status packets, and hands them to a
// registered handler.
type Server struct {
	config    config.ListenConfig
	log       *logger.Logger
	collector *metrics.Collector

	conn      *net.UDPConn
	handler   StatusHandler
	handlerMu sync.RWMutex

	// started is closed once the UDP listener is bound and ready
	started chan struct{}
	addrMu  sync.RWMutex
	addr    net.Addr
}

// NewServer creates a new status telemetry listener.
func NewServer(cfg config.ListenConfig, log *logger.Logger) *Server {
	return &Server{
		config:  cfg,
		log:     log.WithComponent("network.server"),
		started: make(chan struct{}),
	}
}

// WithCollector injects a metrics collector for receive accounting.
func (s *Server) WithCollector(c *metrics.Collector) *Server {
	s.collector = c
	return s
}

// OnStatus sets the handler for decoded status packets.
func (s *Server) OnStatus(handler StatusHandler) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

// Start binds the listener and runs the receive loop until the context is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	host := s.config.Host
	if host == "" {
		host = "0.0.0.0"
	}

	addr := &net.UDPAddr{
		IP:   net.ParseIP(host),
		Port: s.config.Port,
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind UDP listener: %w", err)
	}
	s.conn = conn
	defer s.conn.Close()

	s.addrMu.Lock()
	s.addr = conn.LocalAddr()
	s.addrMu.Unlock()
	close(s.started)

	s.log.Info("Status listener started",
		logger.String("addr", conn.LocalAddr().String()))

	buffer := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Short read deadline so context cancellation is noticed
		s.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, from, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("read error: %w", err)
		}

		s.handleDatagram(buffer[:n], from)
	}
}

// WaitStarted blocks until the listener is bound or the context expires.
func (s *Server) WaitStarted(ctx context.Context) error {
	select {
	case <-s.started:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LocalAddr returns the bound listener address (nil before Start).
func (s *Server) LocalAddr() net.Addr {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	return s.addr
}

// handleDatagram decodes the frames in one received datagram. The protocol
// sends one packet per datagram, but unknown-revision frames are skipped by
// their declared length rather than rejected.
func (s *Server) handleDatagram(data []byte, from *net.UDPAddr) {
	for len(data) >= protocol.HeaderSize {
		pkt, n, err := protocol.ConsumeFrame(data)
		if err != nil {
			if s.collector != nil {
				s.collector.DecodeError()
			}
			s.log.Debug("Dropped malformed datagram",
				logger.String("from", from.String()),
				logger.Error(err))
			return
		}
		if n == 0 {
			return
		}

		if pkt == nil {
			s.log.Debug("Skipped unknown protocol extension",
				logger.String("from", from.String()),
				logger.Int("bytes", n))
		} else {
			if s.collector != nil {
				s.collector.StatusReceived(pkt.Kind.String(), n)
			}
			s.log.Debug("Received status packet",
				logger.String("from", from.String()),
				logger.String("kind", pkt.Kind.String()),
				logger.Uint32("radio_id", pkt.RadioID))

			s.handlerMu.RLock()
			handler := s.handler
			s.handlerMu.RUnlock()
			if handler != nil {
				handler(pkt, from)
			}
		}

		data = data[n:]
	}

	if len(data) > 0 {
		if s.collector != nil {
			s.collector.DecodeError()
		}
		s.log.Debug("Trailing bytes after last frame",
			logger.String("from", from.String()),
			logger.Int("bytes", len(data)))
	}
}
