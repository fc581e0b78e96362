package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/pkg/config"
	"github.com/marmos91/flashaudit/pkg/flash"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the flashaudit configuration file.

Checks for syntax errors, missing required fields, and invalid values. If the
flash image already exists, its geometry is compared with the configuration.

Examples:
  # Validate default config
  flashaudit config validate

  # Validate specific config file
  flashaudit config validate --config /etc/flashaudit/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}
	if image, _ := cmd.Flags().GetString("image"); image != "" {
		cfg.Flash.Image = image
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string

	if geo, err := flash.ReadImageGeometry(cfg.Flash.Image); err == nil {
		if uint64(geo.PageSize) != uint64(cfg.Flash.PageSize) || geo.PageCount != cfg.Flash.PageCount {
			warnings = append(warnings, fmt.Sprintf(
				"image %s has %d pages of %d bytes; configuration asks for %d pages of %s",
				cfg.Flash.Image, geo.PageCount, geo.PageSize, cfg.Flash.PageCount, cfg.Flash.PageSize))
		}
	}
	if cfg.Compactor.Enabled && !cfg.Metrics.Enabled {
		warnings = append(warnings, "Compactor runs without metrics; flushes are only visible in logs")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Image:       %s\n", cfg.Flash.Image)
	_, _ = fmt.Fprintf(out, "  Geometry:    %d x %s\n", cfg.Flash.PageCount, cfg.Flash.PageSize)
	_, _ = fmt.Fprintf(out, "  Compactor:   enabled=%t interval=%s threshold=%.2f\n",
		cfg.Compactor.Enabled, cfg.Compactor.Interval, cfg.Compactor.Threshold)
	_, _ = fmt.Fprintf(out, "  Log level:   %s\n", cfg.Logging.Level)

	return nil
}
