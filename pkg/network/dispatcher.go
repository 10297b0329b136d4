package network

import (
	"errors"
	"fmt"
	"sync"

	"github.com/trunkstat/trunkstat/pkg/logger"
	"github.com/trunkstat/trunkstat/pkg/metrics"
	"github.com/trunkstat/trunkstat/pkg/protocol"
)

// RememberFailedSends controls whether the duplicate-suppression memo is
// updated when the transmit call itself fails. Keeping it on prevents
// retransmission storms against a persistently unreachable destination, at
// the cost of swallowing a later identical packet whose first copy was
// never delivered.
const RememberFailedSends = true

var (
	// ErrEndpointNotReady reports a dispatch attempted before a successful
	// Start, or after a failed resolution.
	ErrEndpointNotReady = errors.New("destination endpoint not ready")

	// ErrSendFailed reports an OS-level transmission error or a short
	// write.
	ErrSendFailed = errors.New("status packet send failed")
)

// Dispatcher owns one resolved destination endpoint and the single-slot
// "last packet" memo. It decides whether a candidate packet is transmitted,
// performs the transmission, and reports the outcome.
//
// Resolution happens once, in Start. A resolution failure leaves the
// dispatcher permanently unready: every subsequent Dispatch fails fast with
// ErrEndpointNotReady instead of re-resolving per event. A send failure
// never changes dispatcher state.
//
// All methods are safe for concurrent use; the memo check, the send, and
// the memo update form one critical section.
type Dispatcher struct {
	log       *logger.Logger
	collector *metrics.Collector

	mu          sync.Mutex
	destination string
	endpoint    *Endpoint
	last        *protocol.StatusPacket
}

// NewDispatcher creates an unready dispatcher.
func NewDispatcher(log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}
	return &Dispatcher{
		log: log.WithComponent("network.dispatcher"),
	}
}

// WithCollector injects a metrics collector for send accounting.
func (d *Dispatcher) WithCollector(c *metrics.Collector) *Dispatcher {
	d.collector = c
	return d
}

// Configure sets the destination URI. Must be called before Start.
func (d *Dispatcher) Configure(destination string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destination = destination
}

// Start resolves the configured destination and opens the endpoint. On
// failure the dispatcher stays unready and the error is returned; Start is
// not retried automatically.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.endpoint.Ready() {
		return nil
	}

	ep, err := ResolveDestination(d.destination)
	if err != nil {
		d.log.Error("Failed to open destination",
			logger.String("destination", d.destination),
			logger.Error(err))
		return err
	}

	d.endpoint = ep
	d.log.Info("Destination ready",
		logger.String("destination", d.destination),
		logger.String("resolved", ep.Addr().String()),
		logger.Bool("broadcast", ep.Broadcast()))

	return nil
}

// Stop closes the endpoint. The dispatcher returns to the unready state; a
// subsequent Start re-resolves.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.endpoint != nil {
		if err := d.endpoint.Close(); err != nil {
			d.log.Warn("Failed to close endpoint", logger.Error(err))
		}
		d.endpoint = nil
	}
	d.last = nil
}

// Ready reports whether the dispatcher holds an open endpoint.
func (d *Dispatcher) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.endpoint.Ready()
}

// Dispatch transmits the candidate packet as a single datagram unless it is
// field-equal to the last packet handled, in which case it returns nil
// without transmitting. The memo is updated regardless of the send outcome
// when RememberFailedSends is on.
func (d *Dispatcher) Dispatch(pkt *protocol.StatusPacket) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.endpoint.Ready() {
		return ErrEndpointNotReady
	}

	if d.last != nil && pkt.Equal(d.last) {
		if d.collector != nil {
			d.collector.DuplicateSuppressed()
		}
		d.log.Debug("Suppressed duplicate status",
			logger.String("kind", pkt.Kind.String()),
			logger.Uint32("radio_id", pkt.RadioID))
		return nil
	}

	data, err := pkt.Encode()
	if err != nil {
		return fmt.Errorf("encode status packet: %w", err)
	}

	memo := *pkt
	n, sendErr := d.endpoint.conn.WriteToUDP(data, d.endpoint.addr)

	if RememberFailedSends || sendErr == nil {
		d.last = &memo
	}

	if sendErr != nil {
		if d.collector != nil {
			d.collector.SendFailed()
		}
		return fmt.Errorf("%w: %v", ErrSendFailed, sendErr)
	}
	if n < len(data) {
		if d.collector != nil {
			d.collector.SendFailed()
		}
		return fmt.Errorf("%w: short write (%d of %d bytes)", ErrSendFailed, n, len(data))
	}

	if d.collector != nil {
		d.collector.StatusSent(pkt.Kind.String(), n)
	}
	d.log.Debug("Sent status packet",
		logger.String("kind", pkt.Kind.String()),
		logger.Uint32("radio_id", pkt.RadioID),
		logger.Int("talkgroup", int(pkt.TalkgroupID)))

	return nil
}
