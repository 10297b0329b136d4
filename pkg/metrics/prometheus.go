package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/trunkstat/trunkstat/pkg/logger"
)

// PrometheusConfig holds Prometheus server configuration
type PrometheusConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// PrometheusHandler handles Prometheus metrics HTTP requests
type PrometheusHandler struct {
	collector *Collector
}

// NewPrometheusHandler creates a new Prometheus handler
func NewPrometheusHandler(collector *Collector) *PrometheusHandler {
	return &PrometheusHandler{
		collector: collector,
	}
}

// ServeHTTP handles HTTP requests for metrics
func (h *PrometheusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	var output strings.Builder

	output.WriteString("# HELP trunkstat_packets_sent_total Total status packets transmitted\n")
	output.WriteString("# TYPE trunkstat_packets_sent_total counter\n")
	output.WriteString(fmt.Sprintf("trunkstat_packets_sent_total %d\n", h.collector.GetStatusSent()))

	output.WriteString("# HELP trunkstat_duplicates_suppressed_total Dispatches suppressed by the dedup memo\n")
	output.WriteString("# TYPE trunkstat_duplicates_suppressed_total counter\n")
	output.WriteString(fmt.Sprintf("trunkstat_duplicates_suppressed_total %d\n", h.collector.GetDuplicatesSuppressed()))

	output.WriteString("# HELP trunkstat_send_failures_total Failed datagram transmissions\n")
	output.WriteString("# TYPE trunkstat_send_failures_total counter\n")
	output.WriteString(fmt.Sprintf("trunkstat_send_failures_total %d\n", h.collector.GetSendFailures()))

	output.WriteString("# HELP trunkstat_bytes_sent_total Total bytes handed to the transport\n")
	output.WriteString("# TYPE trunkstat_bytes_sent_total counter\n")
	output.WriteString(fmt.Sprintf("trunkstat_bytes_sent_total %d\n", h.collector.GetBytesSent()))

	output.WriteString("# HELP trunkstat_packets_received_total Total status packets decoded\n")
	output.WriteString("# TYPE trunkstat_packets_received_total counter\n")
	output.WriteString(fmt.Sprintf("trunkstat_packets_received_total %d\n", h.collector.GetStatusReceived()))

	output.WriteString("# HELP trunkstat_decode_errors_total Inbound datagrams that failed to decode\n")
	output.WriteString("# TYPE trunkstat_decode_errors_total counter\n")
	output.WriteString(fmt.Sprintf("trunkstat_decode_errors_total %d\n", h.collector.GetDecodeErrors()))

	output.WriteString("# HELP trunkstat_bytes_received_total Total bytes received\n")
	output.WriteString("# TYPE trunkstat_bytes_received_total counter\n")
	output.WriteString(fmt.Sprintf("trunkstat_bytes_received_total %d\n", h.collector.GetBytesReceived()))

	output.WriteString("# HELP trunkstat_events_total Status events by kind and direction\n")
	output.WriteString("# TYPE trunkstat_events_total counter\n")
	writeKindCounts(&output, h.collector.GetSentByKind(), "sent")
	writeKindCounts(&output, h.collector.GetReceivedByKind(), "received")

	w.Write([]byte(output.String()))
}

func writeKindCounts(output *strings.Builder, counts map[string]uint64, direction string) {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, k := range kinds {
		output.WriteString(fmt.Sprintf("trunkstat_events_total{kind=%q,direction=%q} %d\n",
			k, direction, counts[k]))
	}
}

// PrometheusServer is an HTTP server for Prometheus metrics
type PrometheusServer struct {
	config    PrometheusConfig
	collector *Collector
	log       *logger.Logger
	server    *http.Server
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(config PrometheusConfig, collector *Collector, log *logger.Logger) *PrometheusServer {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &PrometheusServer{
		config:    config,
		collector: collector,
		log:       log.WithComponent("metrics"),
	}
}

// Start starts the Prometheus metrics server
func (s *PrometheusServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("Prometheus metrics server disabled")
		return nil
	}

	handler := NewPrometheusHandler(s.collector)
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, handler)

	// Use a listener to get the actual port (useful for testing with port 0)
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port

	s.server = &http.Server{
		Handler: mux,
	}

	s.log.Info("Starting Prometheus metrics server",
		logger.Int("port", actualPort),
		logger.String("path", s.config.Path))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down Prometheus metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown error: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Stop stops the Prometheus metrics server
func (s *PrometheusServer) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctx)
	}
}
