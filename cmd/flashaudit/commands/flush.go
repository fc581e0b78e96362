package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/internal/cli/output"
	"github.com/marmos91/flashaudit/internal/telemetry"
)

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Compact pages holding disposed records",
	Long: `Relocate the live parts of every page that holds disposed records and
erase it. Flushing a store with nothing to reclaim does nothing.`,
	Args: cobra.NoArgs,
	RunE: runFlush,
}

func runFlush(cmd *cobra.Command, args []string) error {
	return runStoreCommand(cmd, func(ctx context.Context, s *session) error {
		res, err := s.store.Flush()
		telemetry.SetAttributes(ctx,
			telemetry.PagesErased(res.PagesErased),
			telemetry.PartsMoved(res.PartsMoved),
			telemetry.BytesReclaimed(res.BytesReclaimed))
		if err != nil {
			return err
		}

		p, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		if p.Structured() {
			return p.Print(res)
		}
		if res.PagesErased == 0 {
			p.Printf("Nothing to reclaim\n")
			return nil
		}
		p.Success(fmt.Sprintf("Flushed %d page(s)", res.PagesErased))
		return output.PrintPairs(p.Writer(), [][2]string{
			{"Parts moved", strconv.Itoa(res.PartsMoved)},
			{"Bytes reclaimed", strconv.FormatUint(res.BytesReclaimed, 10)},
			{"Duration", res.Duration.String()},
		})
	})
}
