package metrics

import (
	"sync"
)

// Collector collects trunkstat telemetry pipeline metrics
type Collector struct {
	mu sync.RWMutex

	// Sender-side metrics
	statusSent           uint64
	duplicatesSuppressed uint64
	sendFailures         uint64
	bytesSent            uint64
	sentByKind           map[string]uint64

	// Receiver-side metrics
	statusReceived uint64
	decodeErrors   uint64
	bytesReceived  uint64
	receivedByKind map[string]uint64
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		sentByKind:     make(map[string]uint64),
		receivedByKind: make(map[string]uint64),
	}
}

// StatusSent records a transmitted status packet
func (c *Collector) StatusSent(kind string, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statusSent++
	c.bytesSent += uint64(bytes)
	c.sentByKind[kind]++
}

// DuplicateSuppressed records a dispatch suppressed by the dedup memo
func (c *Collector) DuplicateSuppressed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.duplicatesSuppressed++
}

// SendFailed records a failed datagram transmission
func (c *Collector) SendFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sendFailures++
}

// StatusReceived records a decoded inbound status packet
func (c *Collector) StatusReceived(kind string, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statusReceived++
	c.bytesReceived += uint64(bytes)
	c.receivedByKind[kind]++
}

// DecodeError records an inbound datagram that failed to decode
func (c *Collector) DecodeError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.decodeErrors++
}

// GetStatusSent returns the total transmitted packet count
func (c *Collector) GetStatusSent() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusSent
}

// GetDuplicatesSuppressed returns the suppressed dispatch count
func (c *Collector) GetDuplicatesSuppressed() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.duplicatesSuppressed
}

// GetSendFailures returns the failed transmission count
func (c *Collector) GetSendFailures() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sendFailures
}

// GetBytesSent returns the total bytes handed to the transport
func (c *Collector) GetBytesSent() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bytesSent
}

// GetStatusReceived returns the total decoded packet count
func (c *Collector) GetStatusReceived() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusReceived
}

// GetDecodeErrors returns the inbound decode failure count
func (c *Collector) GetDecodeErrors() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.decodeErrors
}

// GetBytesReceived returns the total bytes received
func (c *Collector) GetBytesReceived() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bytesReceived
}

// GetSentByKind returns a copy of per-kind transmitted counts
func (c *Collector) GetSentByKind() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]uint64, len(c.sentByKind))
	for k, v := range c.sentByKind {
		out[k] = v
	}
	return out
}

// GetReceivedByKind returns a copy of per-kind received counts
func (c *Collector) GetReceivedByKind() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]uint64, len(c.receivedByKind))
	for k, v := range c.receivedByKind {
		out[k] = v
	}
	return out
}
