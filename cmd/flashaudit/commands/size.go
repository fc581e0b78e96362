package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/internal/telemetry"
)

var sizeCmd = &cobra.Command{
	Use:   "size ID",
	Short: "Print the payload size of a record",
	Args:  cobra.ExactArgs(1),
	RunE:  runSize,
}

func runSize(cmd *cobra.Command, args []string) error {
	id, err := parseRecordID(args[0])
	if err != nil {
		return err
	}

	return runStoreCommand(cmd, func(ctx context.Context, s *session) error {
		n, err := s.store.Size(id)
		if err != nil {
			return err
		}

		p, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		if p.Structured() {
			return p.Print(recordRef{ID: id, Size: n})
		}
		p.Printf("%d\n", n)
		return nil
	}, telemetry.RecordID(uint16(id)))
}
