// Package telemetry adapts host-application trunking events onto the status
// packet pipeline. The Reporter carries one method per host event; it does
// no packing beyond calling the protocol constructors, and forwards every
// packet to the dispatcher.
package telemetry

import (
	"time"

	"github.com/trunkstat/trunkstat/pkg/logger"
	"github.com/trunkstat/trunkstat/pkg/network"
	"github.com/trunkstat/trunkstat/pkg/protocol"
)

// System describes the trunked system an event occurred on.
type System interface {
	// SiteID returns the 12-bit system/site identifier.
	SiteID() uint16
	// WACN returns the 20-bit wide area communications network code.
	WACN() uint32
	// NAC returns the raw network access code; only the low 12 bits are
	// significant.
	NAC() uint32
}

// StaticSystem is a fixed-value System for configuration-driven producers
// and tests.
type StaticSystem struct {
	Site       uint16
	WideArea   uint32
	AccessCode uint32
}

func (s StaticSystem) SiteID() uint16 { return s.Site }
func (s StaticSystem) WACN() uint32   { return s.WideArea }
func (s StaticSystem) NAC() uint32    { return s.AccessCode }

// Reporter converts unit events into status packets and dispatches them.
//
// Lifecycle mirrors the host-plugin contract: Configure before Start, Start
// performs the one-time destination resolution, Stop releases the endpoint.
type Reporter struct {
	log        *logger.Logger
	dispatcher *network.Dispatcher
	enabled    bool
	now        func() time.Time
}

// NewReporter creates a reporter over the given dispatcher. Reporting is
// enabled by default.
func NewReporter(dispatcher *network.Dispatcher, log *logger.Logger) *Reporter {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}
	return &Reporter{
		log:        log.WithComponent("telemetry"),
		dispatcher: dispatcher,
		enabled:    true,
		now:        time.Now,
	}
}

// WithClock overrides the time source.
func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	r.now = now
	return r
}

// SetEnabled turns event reporting on or off. When disabled every report
// method is a silent no-op, matching the original plugin's behavior.
func (r *Reporter) SetEnabled(enabled bool) {
	r.enabled = enabled
}

// Configure sets the destination URI on the underlying dispatcher.
func (r *Reporter) Configure(destination string) {
	r.log.Info("Telemetry destination configured",
		logger.String("destination", destination))
	r.dispatcher.Configure(destination)
}

// Start resolves the destination and opens the endpoint.
func (r *Reporter) Start() error {
	return r.dispatcher.Start()
}

// Stop releases the endpoint.
func (r *Reporter) Stop() {
	r.dispatcher.Stop()
}

func (r *Reporter) report(kind protocol.EventKind, sys System, talkgroup uint16, radioID uint32) error {
	if !r.enabled {
		return nil
	}

	pkt := protocol.NewStatusPacket(kind, sys.SiteID(), sys.WACN(), sys.NAC(),
		talkgroup, radioID, uint32(r.now().Unix()))
	return r.dispatcher.Dispatch(pkt)
}

// CallStart reports a new call, attributed to the initiating unit.
func (r *Reporter) CallStart(sys System, talkgroup uint16, radioID uint32) error {
	return r.report(protocol.EventPushToTalk, sys, talkgroup, radioID)
}

// UnitRegistration reports a unit registering on a system.
func (r *Reporter) UnitRegistration(sys System, radioID uint32) error {
	return r.report(protocol.EventRegistered, sys, 0, radioID)
}

// UnitDeregistration reports a unit de-registering from a system.
func (r *Reporter) UnitDeregistration(sys System, radioID uint32) error {
	return r.report(protocol.EventDeregistered, sys, 0, radioID)
}

// UnitAcknowledgeResponse reports a unit acknowledge response.
func (r *Reporter) UnitAcknowledgeResponse(sys System, radioID uint32) error {
	return r.report(protocol.EventAcknowledgeResponse, sys, 0, radioID)
}

// UnitGroupAffiliation reports a unit affiliating with a talkgroup.
func (r *Reporter) UnitGroupAffiliation(sys System, radioID uint32, talkgroup uint16) error {
	return r.report(protocol.EventAffiliated, sys, talkgroup, radioID)
}

// UnitDataGrant reports a data channel grant for a unit.
func (r *Reporter) UnitDataGrant(sys System, radioID uint32) error {
	return r.report(protocol.EventDataGrant, sys, 0, radioID)
}

// UnitAnswerRequest reports a unit-to-unit answer request.
func (r *Reporter) UnitAnswerRequest(sys System, radioID uint32, talkgroup uint16) error {
	return r.report(protocol.EventAnswerRequest, sys, talkgroup, radioID)
}

// UnitLocation reports a unit location or roaming update.
func (r *Reporter) UnitLocation(sys System, radioID uint32, talkgroup uint16) error {
	return r.report(protocol.EventLocationUpdate, sys, talkgroup, radioID)
}
