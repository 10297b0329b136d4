package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/trunkstat/trunkstat/internal/testhelpers"
	"github.com/trunkstat/trunkstat/pkg/logger"
	"github.com/trunkstat/trunkstat/pkg/network"
	"github.com/trunkstat/trunkstat/pkg/protocol"
)

var testSystem = StaticSystem{Site: 3, WideArea: 0xABCDE, AccessCode: 0x293}

func startedReporter(t *testing.T, sink *testhelpers.UDPSink, ts int64) *Reporter {
	t.Helper()

	log := logger.New(logger.Config{Level: "error"})
	r := NewReporter(network.NewDispatcher(log), log).
		WithClock(func() time.Time { return time.Unix(ts, 0) })
	r.Configure(sink.URI())
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return r
}

func receiveOne(t *testing.T, sink *testhelpers.UDPSink, index int) *protocol.StatusPacket {
	t.Helper()

	if err := sink.WaitForDatagrams(index+1, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	pkt, err := protocol.ParseStatus(sink.Datagrams()[index])
	if err != nil {
		t.Fatalf("transmitted datagram did not decode: %v", err)
	}
	return pkt
}

func TestReporter_EventMapping(t *testing.T) {
	tests := []struct {
		name          string
		report        func(r *Reporter) error
		wantKind      protocol.EventKind
		wantTalkgroup uint16
	}{
		{
			"CallStart",
			func(r *Reporter) error { return r.CallStart(testSystem, 100, 123456) },
			protocol.EventPushToTalk, 100,
		},
		{
			"UnitRegistration",
			func(r *Reporter) error { return r.UnitRegistration(testSystem, 123456) },
			protocol.EventRegistered, 0,
		},
		{
			"UnitDeregistration",
			func(r *Reporter) error { return r.UnitDeregistration(testSystem, 123456) },
			protocol.EventDeregistered, 0,
		},
		{
			"UnitAcknowledgeResponse",
			func(r *Reporter) error { return r.UnitAcknowledgeResponse(testSystem, 123456) },
			protocol.EventAcknowledgeResponse, 0,
		},
		{
			"UnitGroupAffiliation",
			func(r *Reporter) error { return r.UnitGroupAffiliation(testSystem, 123456, 200) },
			protocol.EventAffiliated, 200,
		},
		{
			"UnitDataGrant",
			func(r *Reporter) error { return r.UnitDataGrant(testSystem, 123456) },
			protocol.EventDataGrant, 0,
		},
		{
			"UnitAnswerRequest",
			func(r *Reporter) error { return r.UnitAnswerRequest(testSystem, 123456, 300) },
			protocol.EventAnswerRequest, 300,
		},
		{
			"UnitLocation",
			func(r *Reporter) error { return r.UnitLocation(testSystem, 123456, 400) },
			protocol.EventLocationUpdate, 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, err := testhelpers.NewUDPSink()
			if err != nil {
				t.Fatalf("sink: %v", err)
			}
			defer sink.Close()

			r := startedReporter(t, sink, 1700000000)
			defer r.Stop()

			if err := tt.report(r); err != nil {
				t.Fatalf("report failed: %v", err)
			}

			pkt := receiveOne(t, sink, 0)
			if pkt.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", pkt.Kind, tt.wantKind)
			}
			if pkt.TalkgroupID != tt.wantTalkgroup {
				t.Errorf("talkgroup = %d, want %d", pkt.TalkgroupID, tt.wantTalkgroup)
			}
			if protocol.UnpackSystemID(pkt.P25ID) != testSystem.Site {
				t.Errorf("system ID = %d, want %d", protocol.UnpackSystemID(pkt.P25ID), testSystem.Site)
			}
			if protocol.UnpackWACN(pkt.P25ID) != testSystem.WideArea {
				t.Errorf("WACN = 0x%X, want 0x%X", protocol.UnpackWACN(pkt.P25ID), testSystem.WideArea)
			}
			if pkt.NAC != 0x293 {
				t.Errorf("NAC = 0x%X, want 0x293", pkt.NAC)
			}
			if pkt.RadioID != 123456 {
				t.Errorf("radio ID = %d, want 123456", pkt.RadioID)
			}
			if pkt.Timestamp != 1700000000 {
				t.Errorf("timestamp = %d, want 1700000000", pkt.Timestamp)
			}
		})
	}
}

func TestReporter_DisabledIsNoOp(t *testing.T) {
	sink, err := testhelpers.NewUDPSink()
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	defer sink.Close()

	r := startedReporter(t, sink, 1700000000)
	defer r.Stop()
	r.SetEnabled(false)

	if err := r.UnitRegistration(testSystem, 123456); err != nil {
		t.Fatalf("disabled report should succeed, got %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if n := len(sink.Datagrams()); n != 0 {
		t.Errorf("expected no datagrams from disabled reporter, got %d", n)
	}
}

func TestReporter_BeforeStartFailsFast(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	r := NewReporter(network.NewDispatcher(log), log)
	r.Configure("udp://127.0.0.1:7767")

	err := r.UnitRegistration(testSystem, 1)
	if !errors.Is(err, network.ErrEndpointNotReady) {
		t.Errorf("expected ErrEndpointNotReady before Start, got %v", err)
	}
}

func TestReporter_RepeatedEventSameSecondSuppressed(t *testing.T) {
	sink, err := testhelpers.NewUDPSink()
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	defer sink.Close()

	r := startedReporter(t, sink, 1700000000)
	defer r.Stop()

	if err := r.UnitRegistration(testSystem, 123456); err != nil {
		t.Fatalf("first report failed: %v", err)
	}
	if err := r.UnitRegistration(testSystem, 123456); err != nil {
		t.Fatalf("second report failed: %v", err)
	}

	if err := sink.WaitForDatagrams(1, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(sink.Datagrams()); n != 1 {
		t.Errorf("expected the repeat within one second suppressed, got %d datagrams", n)
	}
}
