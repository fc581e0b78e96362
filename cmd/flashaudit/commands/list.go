package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/internal/telemetry"
	"github.com/marmos91/flashaudit/pkg/audit"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List live records",
	Long: `List the ids and sizes of all live records in scan order.

Examples:
  flashaudit list
  flashaudit list -o json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// recordList renders as a table or as a list of {id, size}.
type recordList []recordRef

func (l recordList) Headers() []string { return []string{"ID", "SIZE"} }

func (l recordList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{strconv.Itoa(int(r.ID)), strconv.Itoa(r.Size)})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	return runStoreCommand(cmd, func(ctx context.Context, s *session) error {
		records, err := collectRecords(s.store)
		if err != nil {
			return err
		}
		telemetry.SetAttributes(ctx, telemetry.Records(len(records)))

		p, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		if len(records) == 0 && !p.Structured() {
			p.Printf("No records\n")
			return nil
		}
		return p.Print(records)
	})
}

// collectRecords walks the store with the iteration cursor.
func collectRecords(store *audit.Store) (recordList, error) {
	records := recordList{}

	id, err := store.IterBegin()
	for err == nil && id != 0 {
		var n int
		if n, err = store.Size(id); err != nil {
			break
		}
		records = append(records, recordRef{ID: id, Size: n})
		id, err = store.IterNext(id)
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}
