package config

import (
	"testing"
	"time"

	"github.com/marmos91/flashaudit/internal/bytesize"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default log output 'stderr', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_NormalizesLevel(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_Flash(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/var/lib/test-state")
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Flash.PageSize != 2*bytesize.KiB {
		t.Errorf("Expected default page size 2Ki, got %s", cfg.Flash.PageSize)
	}
	if cfg.Flash.PageCount != 16 {
		t.Errorf("Expected default page count 16, got %d", cfg.Flash.PageCount)
	}
	if cfg.Flash.Image != "/var/lib/test-state/flashaudit/flash.img" {
		t.Errorf("Unexpected default image path %q", cfg.Flash.Image)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Flash: FlashConfig{
			Image:     "/tmp/custom.img",
			PageSize:  4 * bytesize.KiB,
			PageCount: 64,
		},
		Compactor:       CompactorConfig{Interval: time.Minute, Threshold: 0.5},
		Metrics:         MetricsConfig{Port: 9200},
		ShutdownTimeout: 3 * time.Second,
	}
	ApplyDefaults(cfg)

	if cfg.Flash.Image != "/tmp/custom.img" || cfg.Flash.PageSize != 4*bytesize.KiB || cfg.Flash.PageCount != 64 {
		t.Errorf("Flash settings overwritten: %+v", cfg.Flash)
	}
	if cfg.Compactor.Interval != time.Minute || cfg.Compactor.Threshold != 0.5 {
		t.Errorf("Compactor settings overwritten: %+v", cfg.Compactor)
	}
	if cfg.Metrics.Port != 9200 {
		t.Errorf("Metrics port overwritten: %d", cfg.Metrics.Port)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("Shutdown timeout overwritten: %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_CompactorAndServe(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Compactor.Interval != 30*time.Second {
		t.Errorf("Expected default compactor interval 30s, got %v", cfg.Compactor.Interval)
	}
	if cfg.Compactor.Threshold != 0.25 {
		t.Errorf("Expected default compactor threshold 0.25, got %v", cfg.Compactor.Threshold)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected default shutdown timeout 10s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_Telemetry(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Telemetry.Enabled {
		t.Error("Telemetry must be opt-in")
	}
	if cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Expected default OTLP endpoint, got %q", cfg.Telemetry.Endpoint)
	}
	if cfg.Telemetry.SampleRate != 1.0 {
		t.Errorf("Expected default sample rate 1.0, got %v", cfg.Telemetry.SampleRate)
	}
	if len(cfg.Telemetry.Profiling.ProfileTypes) != 6 {
		t.Errorf("Expected 6 default profile types, got %v", cfg.Telemetry.Profiling.ProfileTypes)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if !cfg.Telemetry.Insecure {
		t.Error("Expected insecure OTLP transport by default")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}
