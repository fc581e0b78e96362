package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/internal/logger"
	"github.com/marmos91/flashaudit/internal/telemetry"
	"github.com/marmos91/flashaudit/pkg/audit"
)

var disposeCmd = &cobra.Command{
	Use:   "dispose ID...",
	Short: "Dispose of one or more records",
	Long: `Dispose of records by id. Their space is reclaimed by the next flush.

Disposing an id that does not exist is not an error.

Examples:
  flashaudit dispose 3
  flashaudit dispose 4 5 6`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDispose,
}

func runDispose(cmd *cobra.Command, args []string) error {
	ids := make([]audit.RecordID, 0, len(args))
	for _, arg := range args {
		id, err := parseRecordID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	return runStoreCommand(cmd, func(ctx context.Context, s *session) error {
		for _, id := range ids {
			if err := s.store.Dispose(id); err != nil {
				return fmt.Errorf("dispose %d: %w", id, err)
			}
			logger.DebugCtx(ctx, "Disposed", logger.KeyRecordID, id)
		}

		p, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		if p.Structured() {
			return p.Print(map[string][]audit.RecordID{"disposed": ids})
		}
		p.Success(fmt.Sprintf("Disposed %d record(s)", len(ids)))
		return nil
	}, telemetry.Records(len(ids)))
}
