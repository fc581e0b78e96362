package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Long: `Write a configuration file holding every setting at its default value.

By default, the file is created at $XDG_CONFIG_HOME/flashaudit/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  flashaudit config init

  # Initialize with custom path
  flashaudit config init --config ./flashaudit.yaml

  # Force overwrite existing config
  flashaudit config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Adjust flash.page_size and flash.page_count before the image is created")
	_, _ = fmt.Fprintln(out, "  2. Erase the image with: flashaudit format")
	_, _ = fmt.Fprintf(out, "  3. Or specify custom config: flashaudit serve --config %s\n", configPath)
	return nil
}
