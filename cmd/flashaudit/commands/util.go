package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/marmos91/flashaudit/internal/cli/output"
	"github.com/marmos91/flashaudit/internal/logger"
	"github.com/marmos91/flashaudit/internal/telemetry"
	"github.com/marmos91/flashaudit/pkg/audit"
	"github.com/marmos91/flashaudit/pkg/config"
	"github.com/marmos91/flashaudit/pkg/flash"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads the configuration file if one exists and applies the
// --image override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if imagePath != "" {
		cfg.Flash.Image = imagePath
	}
	return cfg, nil
}

// initTracing starts the OTLP exporter when telemetry is enabled.
func initTracing(ctx context.Context, cfg *config.Config) (func(), error) {
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "flashaudit",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}, nil
}

// geometry converts the flash section into a page geometry.
func geometry(cfg *config.Config) (flash.Geometry, error) {
	pageSize, err := cfg.Flash.PageSize.Uint32()
	if err != nil {
		return flash.Geometry{}, fmt.Errorf("flash.page_size: %w", err)
	}
	return flash.Geometry{PageSize: pageSize, PageCount: cfg.Flash.PageCount}, nil
}

// session is an open flash image and the audit store on its audit area.
type session struct {
	cfg   *config.Config
	image *flash.Image
	store *audit.Store
}

// openSession maps the image, creating it erased if it does not exist, and
// opens a store over the given area.
func openSession(cfg *config.Config, area flash.Area, opts ...audit.Option) (*session, error) {
	geo, err := geometry(cfg)
	if err != nil {
		return nil, err
	}

	img, err := flash.OpenImage(cfg.Flash.Image, geo)
	if err != nil {
		if errors.Is(err, flash.ErrGeometryMismatch) {
			return nil, fmt.Errorf("%w\n\nThe image was created with a different flash.page_size or "+
				"flash.page_count. Use matching settings or a new --image", err)
		}
		return nil, fmt.Errorf("failed to open flash image %s: %w", cfg.Flash.Image, err)
	}

	dev, err := img.Area(area)
	if err != nil {
		_ = img.Close()
		return nil, err
	}

	store, err := audit.New(dev, opts...)
	if err != nil {
		_ = img.Close()
		return nil, err
	}

	logger.Debug("Flash image opened",
		logger.KeyImage, cfg.Flash.Image,
		logger.KeyArea, area.String(),
		logger.KeyPageSize, geo.PageSize,
		logger.KeyPageCount, geo.PageCount)

	return &session{cfg: cfg, image: img, store: store}, nil
}

// Close syncs and unmaps the image.
func (s *session) Close() error {
	return s.image.Close()
}

// runStoreCommand runs fn against the audit store inside a command span.
// Errors are recorded on the span with their audit error kind.
func runStoreCommand(cmd *cobra.Command, fn func(ctx context.Context, s *session) error, attrs ...attribute.KeyValue) error {
	return runAreaCommand(cmd, flash.AreaAudit, fn, attrs...)
}

// runAreaCommand is runStoreCommand for an explicit flash area.
func runAreaCommand(cmd *cobra.Command, area flash.Area, fn func(ctx context.Context, s *session) error, attrs ...attribute.KeyValue) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stopTracing, err := initTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopTracing()

	name := cmd.Name()
	attrs = append(attrs, telemetry.Image(cfg.Flash.Image), telemetry.Area(area.String()))
	ctx, span := telemetry.StartCommandSpan(ctx, name, attrs...)
	defer span.End()

	lc := logger.NewLogContext(name).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	lc.Image = cfg.Flash.Image
	ctx = logger.WithContext(ctx, lc)

	s, err := openSession(cfg, area)
	if err == nil {
		err = fn(ctx, s)
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close flash image: %w", cerr)
		}
	}

	if err != nil {
		telemetry.RecordError(ctx, err)
		telemetry.SetAttributes(ctx, telemetry.ErrorKind(audit.ErrorKind(err)))
		logger.DebugCtx(ctx, "Command failed", logger.KeyError, err)
		return err
	}
	logger.DebugCtx(ctx, "Command completed", logger.KeyDurationMs, lc.DurationMs())
	return nil
}

// newPrinter builds a printer for the global --output and --no-color flags.
func newPrinter(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return nil, err
	}
	color := !noColor && os.Getenv("NO_COLOR") == ""
	return output.NewPrinter(cmd.OutOrStdout(), format, color), nil
}

// parseRecordID accepts decimal or 0x-prefixed hexadecimal ids.
func parseRecordID(s string) (audit.RecordID, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid record id %q: must be an integer between 1 and %d", s, audit.MaxRecordID)
	}
	if v == 0 {
		return 0, fmt.Errorf("%w: ids start at 1", audit.ErrInvalidID)
	}
	return audit.RecordID(v), nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
