package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/internal/telemetry"
)

var getOut string

var getCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Write the payload of a record",
	Long: `Write the payload of a record to stdout, or to a file with --out.

The payload is written verbatim; no newline is appended.

Examples:
  flashaudit get 3
  flashaudit get 0x2a --out event.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVar(&getOut, "out", "", "Write the payload to a file instead of stdout")
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := parseRecordID(args[0])
	if err != nil {
		return err
	}

	return runStoreCommand(cmd, func(ctx context.Context, s *session) error {
		data, err := s.store.Retrieve(id)
		if err != nil {
			return err
		}
		telemetry.SetAttributes(ctx, telemetry.Size(len(data)))

		if getOut != "" {
			if err := os.WriteFile(getOut, data, 0644); err != nil {
				return fmt.Errorf("failed to write payload: %w", err)
			}
			return nil
		}

		_, err = cmd.OutOrStdout().Write(data)
		return err
	}, telemetry.RecordID(uint16(id)))
}
