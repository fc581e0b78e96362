package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/internal/cli/output"
	"github.com/marmos91/flashaudit/internal/telemetry"
	"github.com/marmos91/flashaudit/pkg/audit"
	"github.com/marmos91/flashaudit/pkg/flash"
)

var (
	statsThreshold float64
	statsArea      string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show page occupancy",
	Long: `Scan the store and report valid, tombstoned and free bytes per page.

Reclaimable bytes are what a flush would return. With --threshold, the
output also says whether the background compactor would flush now.

Examples:
  flashaudit stats
  flashaudit stats -o yaml
  flashaudit stats --area config`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Float64Var(&statsThreshold, "threshold", 0, "Compactor threshold to evaluate (default: compactor.threshold)")
	statsCmd.Flags().StringVar(&statsArea, "area", "audit", "Flash area to analyze (audit|config)")
}

// usageReport renders per-page rows as a table and the full report otherwise.
type usageReport struct {
	audit.Usage `yaml:",inline"`

	Threshold  float64 `json:"threshold" yaml:"threshold"`
	NeedsFlush bool    `json:"needs_flush" yaml:"needs_flush"`
}

func (r usageReport) Headers() []string {
	return []string{"PAGE", "STATE", "VALID", "TOMBSTONED", "FREE", "PARTS", "DEAD PARTS"}
}

func (r usageReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		rows = append(rows, []string{
			strconv.Itoa(int(p.Index)),
			string(p.State),
			strconv.Itoa(int(p.ValidBytes)),
			strconv.Itoa(int(p.TombstonedBytes)),
			strconv.Itoa(int(p.FreeBytes)),
			strconv.Itoa(p.ValidParts),
			strconv.Itoa(p.TombstonedParts),
		})
	}
	return rows
}

func runStats(cmd *cobra.Command, args []string) error {
	area, err := flash.ParseArea(statsArea)
	if err != nil {
		return err
	}

	return runAreaCommand(cmd, area, func(ctx context.Context, s *session) error {
		u, err := s.store.Analyze()
		if err != nil {
			return err
		}
		telemetry.SetAttributes(ctx, telemetry.Records(u.LiveRecords))

		threshold := statsThreshold
		if threshold <= 0 {
			threshold = s.cfg.Compactor.Threshold
		}
		report := usageReport{Usage: *u, Threshold: threshold, NeedsFlush: u.NeedsFlush(threshold)}

		p, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		if p.Structured() {
			return p.Print(report)
		}

		if err := output.PrintPairs(p.Writer(), [][2]string{
			{"Geometry", fmt.Sprintf("%d x %d bytes (max part %d)", u.PageCount, u.PageSize, u.MaxPartSize)},
			{"Pages", fmt.Sprintf("%d used, %d unused", u.UsedPages, u.UnusedPages)},
			{"Live records", strconv.Itoa(u.LiveRecords)},
			{"Valid bytes", strconv.FormatUint(u.ValidBytes, 10)},
			{"Tombstoned bytes", strconv.FormatUint(u.TombstonedBytes, 10)},
			{"Free bytes", strconv.FormatUint(u.FreeBytes, 10)},
			{"Reclaimable bytes", strconv.FormatUint(u.ReclaimableBytes, 10)},
			{"Needs flush", fmt.Sprintf("%t (threshold %.2f)", report.NeedsFlush, threshold)},
		}); err != nil {
			return err
		}
		p.Printf("\n")
		return p.Print(report)
	})
}
