package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_UsesDefaults_WhenNoFile(t *testing.T) {
	// Reset viper to avoid cross-test pollution
	viper.Reset()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	// Spot-check a few defaults
	if cfg.Destination != "udp://127.0.0.1:7767" {
		t.Errorf("expected default destination udp://127.0.0.1:7767, got %q", cfg.Destination)
	}
	if !cfg.UnitEvents.Enabled {
		t.Errorf("expected UnitEvents.Enabled default true")
	}
	if cfg.Listen.Port != 7767 {
		t.Errorf("expected Listen.Port default 7767, got %d", cfg.Listen.Port)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("expected Web.Port default 8080, got %d", cfg.Web.Port)
	}
	if cfg.MQTT.Enabled {
		t.Errorf("expected MQTT disabled by default")
	}
	if cfg.Database.Path != "trunkstat.db" {
		t.Errorf("expected Database.Path default trunkstat.db, got %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected Logging.Level default info, got %q", cfg.Logging.Level)
	}
	if cfg.Metrics.Prometheus.Port != 9090 {
		t.Errorf("expected Prometheus.Port default 9090, got %d", cfg.Metrics.Prometheus.Port)
	}
}

func TestValidate_Errors(t *testing.T) {
	base := func() *Config {
		return &Config{
			Destination: "udp://127.0.0.1:7767",
			Listen:      ListenConfig{Enabled: true, Port: 7767},
			Web:         WebConfig{Enabled: true, Port: 8080},
			Metrics: MetricsConfig{
				Enabled:    true,
				Prometheus: PrometheusConfig{Enabled: true, Port: 9090, Path: "/metrics"},
			},
		}
	}

	t.Run("valid baseline", func(t *testing.T) {
		if err := validate(base()); err != nil {
			t.Fatalf("expected valid config, got %v", err)
		}
	})

	t.Run("empty destination", func(t *testing.T) {
		cfg := base()
		cfg.Destination = ""
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for empty destination")
		}
	})

	t.Run("wrong destination scheme", func(t *testing.T) {
		cfg := base()
		cfg.Destination = "tcp://127.0.0.1:7767"
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for non-udp destination")
		}
	})

	t.Run("invalid web port", func(t *testing.T) {
		cfg := base()
		cfg.Web.Port = 70000
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for web.port out of range")
		}
	})

	t.Run("mqtt without broker", func(t *testing.T) {
		cfg := base()
		cfg.MQTT = MQTTConfig{Enabled: true}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for mqtt enabled without broker")
		}
	})

	t.Run("alias without url", func(t *testing.T) {
		cfg := base()
		cfg.Alias = AliasConfig{Enabled: true, SyncHours: 24}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for alias sync without url")
		}
	})

	t.Run("prometheus without path", func(t *testing.T) {
		cfg := base()
		cfg.Metrics.Prometheus.Path = ""
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for empty prometheus path")
		}
	})
}
