package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/internal/logger"
	"github.com/marmos91/flashaudit/internal/telemetry"
	"github.com/marmos91/flashaudit/pkg/audit"
	"github.com/marmos91/flashaudit/pkg/compactor"
	"github.com/marmos91/flashaudit/pkg/flash"
	"github.com/marmos91/flashaudit/pkg/metrics"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/flashaudit/pkg/metrics/prometheus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve metrics and compact the store in the background",
	Long: `Keep the flash image open, expose Prometheus metrics and run the
background compactor until interrupted.

The compactor checks usage every compactor.interval and flushes once the
reclaimable bytes reach compactor.threshold of the area capacity. Send
SIGHUP to request a check immediately.

Examples:
  # Serve with the default configuration
  flashaudit serve

  # Compact more eagerly
  FLASHAUDIT_COMPACTOR_THRESHOLD=0.1 flashaudit serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopTracing, err := initTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopTracing()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "flashaudit",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		reg := metrics.InitRegistry()
		metricsServer = metrics.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port), reg)
		if err := metricsServer.Start(); err != nil {
			return err
		}
	} else {
		logger.Info("Metrics collection disabled")
	}

	s, err := openSession(cfg, flash.AreaAudit, audit.WithMetrics(metrics.NewAuditMetrics()))
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("Failed to close flash image", logger.KeyError, err)
		}
	}()

	// Publish the initial occupancy.
	usage, err := s.store.Analyze()
	if err != nil {
		return err
	}
	logger.Info("Audit store ready",
		logger.KeyImage, cfg.Flash.Image,
		logger.KeyRecords, usage.LiveRecords,
		logger.KeyFree, usage.FreeBytes,
		logger.KeyReclaimable, usage.ReclaimableBytes)

	var comp *compactor.Compactor
	if cfg.Compactor.Enabled {
		comp = compactor.New(s.store, compactor.Config{
			Interval:  cfg.Compactor.Interval,
			Threshold: cfg.Compactor.Threshold,
		})
		comp.Start(ctx)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	var serveErr error
	var metricsDone <-chan error
	if metricsServer != nil {
		metricsDone = metricsServer.Done()
	}

loop:
	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if comp != nil {
					logger.Info("Compaction check requested")
					comp.Trigger()
				}
				continue
			}
			logger.Info("Shutdown signal received, initiating graceful shutdown")
			break loop
		case err := <-metricsDone:
			if err != nil {
				logger.Error("Metrics server error", logger.KeyError, err)
				serveErr = err
			}
			break loop
		}
	}

	cancel()

	if comp != nil {
		comp.Stop(cfg.ShutdownTimeout)
		st := comp.Stats()
		logger.Info("Compactor summary",
			"checks", st.Checks,
			"flushes", st.Flushes,
			"failures", st.Failures,
			logger.KeyPagesErased, st.PagesErased,
			logger.KeyBytesReclaimed, st.BytesReclaimed)
	}

	if metricsServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelShutdown()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", logger.KeyError, err)
		}
	}

	if err := s.image.Sync(); err != nil {
		logger.Error("Failed to sync flash image", logger.KeyError, err)
	}

	logger.Info("Server stopped")
	return serveErr
}
