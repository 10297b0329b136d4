// trunkstat-probe emits synthetic status packets, for exercising a receiver
// or checking connectivity to a dashboard without a live radio system.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/trunkstat/trunkstat/pkg/logger"
	"github.com/trunkstat/trunkstat/pkg/network"
	"github.com/trunkstat/trunkstat/pkg/telemetry"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	dest := flag.String("dest", "udp://127.0.0.1:7767", "Destination URI (udp://host[:port])")
	systemID := flag.Uint("system", 1, "P25 system ID (12 bits)")
	wacn := flag.Uint("wacn", 0xBEE00, "WACN (20 bits)")
	nac := flag.Uint("nac", 0x293, "Network access code (12 bits)")
	radioID := flag.Uint("radio", 1000001, "Radio/unit ID")
	talkgroup := flag.Uint("tg", 9000, "Talkgroup ID")
	event := flag.String("event", "push_to_talk", "Event kind: registered, deregistered, ack_response, affiliated, data_grant, answer_request, location, push_to_talk")
	unitEvents := flag.Bool("unit-events", true, "Report unit events (registration, affiliation, etc.)")
	count := flag.Int("count", 1, "Number of packets to send")
	interval := flag.Duration("interval", time.Second, "Delay between packets")
	logLevel := flag.String("log-level", "info", "Log level")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("trunkstat-probe %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	log := logger.New(logger.Config{Level: *logLevel, Format: "text"})

	dispatcher := network.NewDispatcher(log)
	reporter := telemetry.NewReporter(dispatcher, log)
	reporter.SetEnabled(*unitEvents)
	reporter.Configure(*dest)

	if err := reporter.Start(); err != nil {
		log.Error("Failed to start reporter", logger.Error(err))
		os.Exit(1)
	}
	defer reporter.Stop()

	sys := telemetry.StaticSystem{
		Site:       uint16(*systemID),
		WideArea:   uint32(*wacn),
		AccessCode: uint32(*nac),
	}

	send, err := eventSender(reporter, *event)
	if err != nil {
		log.Error("Unknown event kind", logger.String("event", *event))
		os.Exit(1)
	}

	for i := 0; i < *count; i++ {
		if i > 0 {
			time.Sleep(*interval)
		}
		if err := send(sys, uint16(*talkgroup), uint32(*radioID)); err != nil {
			log.Error("Send failed", logger.Error(err))
			os.Exit(1)
		}
		log.Info("Status sent",
			logger.String("event", *event),
			logger.Uint32("radio_id", uint32(*radioID)),
			logger.Int("seq", i+1))
	}
}

// eventSender maps an event name to the matching reporter method.
func eventSender(r *telemetry.Reporter, name string) (func(telemetry.System, uint16, uint32) error, error) {
	switch name {
	case "push_to_talk":
		return func(sys telemetry.System, tg uint16, radio uint32) error {
			return r.CallStart(sys, tg, radio)
		}, nil
	case "registered":
		return func(sys telemetry.System, _ uint16, radio uint32) error {
			return r.UnitRegistration(sys, radio)
		}, nil
	case "deregistered":
		return func(sys telemetry.System, _ uint16, radio uint32) error {
			return r.UnitDeregistration(sys, radio)
		}, nil
	case "ack_response":
		return func(sys telemetry.System, _ uint16, radio uint32) error {
			return r.UnitAcknowledgeResponse(sys, radio)
		}, nil
	case "affiliated":
		return func(sys telemetry.System, tg uint16, radio uint32) error {
			return r.UnitGroupAffiliation(sys, radio, tg)
		}, nil
	case "data_grant":
		return func(sys telemetry.System, _ uint16, radio uint32) error {
			return r.UnitDataGrant(sys, radio)
		}, nil
	case "answer_request":
		return func(sys telemetry.System, tg uint16, radio uint32) error {
			return r.UnitAnswerRequest(sys, radio, tg)
		}, nil
	case "location":
		return func(sys telemetry.System, tg uint16, radio uint32) error {
			return r.UnitLocation(sys, radio, tg)
		}, nil
	}
	return nil, fmt.Errorf("unknown event %q", name)
}
