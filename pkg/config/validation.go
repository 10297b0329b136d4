package config

import (
	"fmt"
	"strings"
)

// validate validates the configuration
func validate(cfg *Config) error {
	// Destination format is fully checked when the dispatcher resolves it;
	// catch the obvious misconfigurations here so startup fails early.
	if cfg.Destination == "" {
		return fmt.Errorf("destination is required")
	}
	if !strings.HasPrefix(cfg.Destination, "udp://") {
		return fmt.Errorf("destination must start with udp://, got %q", cfg.Destination)
	}

	// Validate listener config
	if cfg.Listen.Enabled {
		if cfg.Listen.Port < 0 || cfg.Listen.Port > 65535 {
			return fmt.Errorf("listen.port must be between 0 and 65535")
		}
	}

	// Validate web config
	if cfg.Web.Enabled {
		if cfg.Web.Port < 0 || cfg.Web.Port > 65535 {
			return fmt.Errorf("web.port must be between 0 and 65535")
		}
	}

	// Validate MQTT config
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1, or 2")
		}
	}

	// Validate alias sync config
	if cfg.Alias.Enabled {
		if cfg.Alias.URL == "" {
			return fmt.Errorf("alias.url is required when alias sync is enabled")
		}
		if cfg.Alias.SyncHours <= 0 {
			return fmt.Errorf("alias.sync_hours must be positive")
		}
	}

	// Validate metrics config
	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port < 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 0 and 65535")
		}
		if cfg.Metrics.Prometheus.Path == "" {
			return fmt.Errorf("metrics.prometheus.path is required")
		}
	}

	return nil
}
