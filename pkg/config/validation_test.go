package config

import (
	"strings"
	"testing"
	"time"

	"github.com/marmos91/flashaudit/internal/bytesize"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.Logging.Level = "TRACE" }, "oneof"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "Logging.Format"},
		{"sample rate", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "lte"},
		{"profile type", func(c *Config) { c.Telemetry.Profiling.ProfileTypes = []string{"cpu", "wall"} }, "ProfileTypes"},
		{"metrics port", func(c *Config) { c.Metrics.Port = 70000 }, "max"},
		{"page size not power of two", func(c *Config) { c.Flash.PageSize = 3000 }, "pagesize"},
		{"page size too small", func(c *Config) { c.Flash.PageSize = 32 }, "pagesize"},
		{"page size too large", func(c *Config) { c.Flash.PageSize = 256 * bytesize.KiB }, "pagesize"},
		{"page count", func(c *Config) { c.Flash.PageCount = 0 }, "Flash.PageCount"},
		{"image", func(c *Config) { c.Flash.Image = "" }, "Flash.Image is required"},
		{"threshold", func(c *Config) { c.Compactor.Threshold = 1.2 }, "Compactor.Threshold"},
		{"interval", func(c *Config) { c.Compactor.Interval = -time.Second }, "Compactor.Interval"},
		{"shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, "ShutdownTimeout"},
		{"telemetry endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}, "required_if"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_ReportsAllViolations(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"
	cfg.Flash.PageCount = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if lines := strings.Split(err.Error(), "\n"); len(lines) != 2 {
		t.Errorf("Expected 2 violations, got %d: %v", len(lines), err)
	}
}

func TestValidate_AcceptedPageSizes(t *testing.T) {
	for _, size := range []bytesize.ByteSize{64, 512, 2 * bytesize.KiB, 128 * bytesize.KiB} {
		cfg := GetDefaultConfig()
		cfg.Flash.PageSize = size
		if err := Validate(cfg); err != nil {
			t.Errorf("Page size %s rejected: %v", size, err)
		}
	}
}
