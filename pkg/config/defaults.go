package config

import (
	"strings"
	"time"

	"github.com/marmos91/flashaudit/internal/bytesize"
)

// Default values.
const (
	DefaultPageSize           = 2 * bytesize.KiB
	DefaultPageCount          = 16
	DefaultMetricsPort        = 9090
	DefaultCompactorInterval  = 30 * time.Second
	DefaultCompactorThreshold = 0.25
	DefaultShutdownTimeout    = 10 * time.Second
)

// ApplyDefaults replaces zero values with defaults. Explicit values are kept.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyFlashDefaults(&cfg.Flash)
	applyCompactorDefaults(&cfg.Compactor)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// Commands print results on stdout, so logs default to stderr.
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

func applyFlashDefaults(cfg *FlashConfig) {
	if cfg.Image == "" {
		cfg.Image = GetDefaultImagePath()
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageCount == 0 {
		cfg.PageCount = DefaultPageCount
	}
}

func applyCompactorDefaults(cfg *CompactorConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultCompactorInterval
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultCompactorThreshold
	}
}

// GetDefaultConfig returns a complete configuration with every default set.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Telemetry: TelemetryConfig{Insecure: true},
	}
	ApplyDefaults(cfg)
	return cfg
}
