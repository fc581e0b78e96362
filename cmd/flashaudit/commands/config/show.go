package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/internal/cli/output"
	"github.com/marmos91/flashaudit/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective flashaudit configuration: file values merged with
FLASHAUDIT_* environment overrides and defaults.

Outputs YAML unless --output json is given.

Examples:
  # Show default config as YAML
  flashaudit config show

  # Show as JSON
  flashaudit config show --output json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	outputFlag, _ := cmd.Flags().GetString("output")
	format, err := output.ParseFormat(outputFlag)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	default:
		return output.PrintYAML(cmd.OutOrStdout(), cfg)
	}
}
