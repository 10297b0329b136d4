package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/trunkstat/trunkstat/pkg/alias"
	"github.com/trunkstat/trunkstat/pkg/config"
	"github.com/trunkstat/trunkstat/pkg/database"
	"github.com/trunkstat/trunkstat/pkg/logger"
	"github.com/trunkstat/trunkstat/pkg/metrics"
	"github.com/trunkstat/trunkstat/pkg/mqtt"
	"github.com/trunkstat/trunkstat/pkg/network"
	"github.com/trunkstat/trunkstat/pkg/protocol"
	"github.com/trunkstat/trunkstat/pkg/web"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("trunkstatd %s (%s, built %s)\n", version, commit, buildTime)
		os.Exit(0)
	}

	log := logger.New(logger.Config{
		Level:  "info",
		Format: "text",
	})

	log.Info("Starting trunkstatd",
		logger.String("version", version),
		logger.String("build_time", buildTime))

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("Failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	if *validate {
		log.Info("Configuration is valid")
		os.Exit(0)
	}

	// Reinitialize logger with configured level and format
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	log.Info("Configuration loaded successfully",
		logger.String("config_file", *configFile))

	web.SetVersionInfo(version, commit, buildTime)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	metricsCollector := metrics.NewCollector()

	// Prometheus metrics server
	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metricsServer := metrics.NewPrometheusServer(
				metrics.PrometheusConfig{
					Enabled: cfg.Metrics.Prometheus.Enabled,
					Port:    cfg.Metrics.Prometheus.Port,
					Path:    cfg.Metrics.Prometheus.Path,
				},
				metricsCollector,
				log.WithComponent("metrics"),
			)
			if err := metricsServer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("Prometheus metrics server error", logger.Error(err))
			}
		}()
		log.Info("Prometheus metrics server started",
			logger.Int("port", cfg.Metrics.Prometheus.Port),
			logger.String("path", cfg.Metrics.Prometheus.Path))
	}

	// Event store
	db, err := database.NewDB(database.Config{Path: cfg.Database.Path}, log.WithComponent("database"))
	if err != nil {
		log.Error("Failed to open database", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	eventRepo := database.NewEventRepository(db.GetDB())
	talkgroupRepo := database.NewTalkgroupRepository(db.GetDB())

	// Talkgroup alias syncer
	if cfg.Alias.Enabled {
		syncer := alias.NewSyncer(
			talkgroupRepo,
			cfg.Alias.URL,
			time.Duration(cfg.Alias.SyncHours)*time.Hour,
			log.WithComponent("alias"),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			syncer.Start(ctx)
		}()
	}

	// MQTT mirror
	var mqttPublisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		mqttPublisher = mqtt.New(
			mqtt.Config{
				Enabled:     cfg.MQTT.Enabled,
				Broker:      cfg.MQTT.Broker,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				QoS:         cfg.MQTT.QoS,
				Retained:    cfg.MQTT.Retained,
			},
			log.WithComponent("mqtt"),
		)
		if err := mqttPublisher.Start(); err != nil {
			// Broker may come up later; auto-reconnect handles it
			log.Warn("MQTT connect failed, continuing without mirror", logger.Error(err))
		} else {
			log.Info("MQTT publisher started",
				logger.String("broker", cfg.MQTT.Broker),
				logger.String("topic_prefix", cfg.MQTT.TopicPrefix))
		}
	}

	// Web dashboard
	var webServer *web.Server
	if cfg.Web.Enabled {
		webServer = web.NewServer(cfg.Web, log.WithComponent("web"))
		webServer.API().
			WithRepositories(eventRepo, talkgroupRepo).
			WithCollector(metricsCollector)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := webServer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("Web server error", logger.Error(err))
			}
		}()
		log.Info("Web server started",
			logger.String("host", cfg.Web.Host),
			logger.Int("port", cfg.Web.Port))
	}

	// UDP status listener
	if cfg.Listen.Enabled {
		server := network.NewServer(cfg.Listen, log.WithComponent("listener")).
			WithCollector(metricsCollector)

		server.OnStatus(func(pkt *protocol.StatusPacket, from *net.UDPAddr) {
			source := from.String()

			event := database.StatusEventFromPacket(pkt, source)
			if err := eventRepo.Save(event); err != nil {
				log.Error("Failed to store status event", logger.Error(err))
			}

			label := ""
			if a, err := talkgroupRepo.Get(pkt.TalkgroupID); err == nil && a != nil {
				label = a.Display()
			}

			if webServer != nil {
				webServer.GetHub().BroadcastStatus(pkt, source, label)
			}
			if mqttPublisher != nil {
				if err := mqttPublisher.PublishStatus(pkt, source); err != nil {
					log.Warn("Failed to publish status to MQTT", logger.Error(err))
				}
			}
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(ctx); err != nil && err != context.Canceled {
				log.Error("UDP listener error", logger.Error(err))
			}
		}()
		log.Info("UDP status listener started",
			logger.String("host", cfg.Listen.Host),
			logger.Int("port", cfg.Listen.Port))
	}

	log.Info("trunkstatd initialized")

	sig := <-sigChan
	log.Info("Received shutdown signal", logger.String("signal", sig.String()))

	cancel()

	if mqttPublisher != nil {
		mqttPublisher.Stop()
	}

	wg.Wait()

	log.Info("trunkstatd stopped")
}
