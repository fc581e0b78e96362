package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/pkg/audit"
	"github.com/marmos91/flashaudit/pkg/flash"
)

var dumpArea string

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Decode every page and part header",
	Long: `Print one row per part header in address order, plus one row per
erased page. Useful for inspecting fragmentation and tombstones.

The config area is laid out the same way and can be inspected with --area.

Examples:
  flashaudit dump
  flashaudit dump -o json
  flashaudit dump --area config`,
	Args: cobra.NoArgs,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dumpArea, "area", "audit", "Flash area to decode (audit|config)")
}

// pageDumps renders one row per part header.
type pageDumps []audit.PageDump

func (d pageDumps) Headers() []string {
	return []string{"PAGE", "STATE", "ADDRESS", "ID", "VALID", "SIZE", "OFFSET", "PART"}
}

func (d pageDumps) Rows() [][]string {
	var rows [][]string
	for _, pg := range d {
		page := strconv.Itoa(int(pg.Index))
		if len(pg.Parts) == 0 {
			rows = append(rows, []string{page, string(pg.State), fmt.Sprintf("0x%06x", pg.Tail), "-", "-", "-", "-", "-"})
			continue
		}
		for _, part := range pg.Parts {
			rows = append(rows, []string{
				page,
				string(pg.State),
				fmt.Sprintf("0x%06x", part.Address),
				strconv.Itoa(int(part.ID)),
				strconv.FormatBool(part.Valid),
				strconv.Itoa(int(part.Size)),
				strconv.Itoa(int(part.PartOffset)),
				strconv.Itoa(int(part.PartSize)),
			})
		}
	}
	return rows
}

func runDump(cmd *cobra.Command, args []string) error {
	area, err := flash.ParseArea(dumpArea)
	if err != nil {
		return err
	}

	return runAreaCommand(cmd, area, func(ctx context.Context, s *session) error {
		pages, err := s.store.Dump()
		if err != nil {
			return err
		}

		p, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		return p.Print(pageDumps(pages))
	})
}
