package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/internal/cli/prompt"
	"github.com/marmos91/flashaudit/internal/telemetry"
)

var formatForce bool

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Erase every page of the audit area",
	Long: `Erase every page of the audit area, destroying all records.

The image file is created if it does not exist. Without --force you are asked
to type 'format' to confirm.

Examples:
  flashaudit format
  flashaudit format --force --image /tmp/flash.img`,
	Args: cobra.NoArgs,
	RunE: runFormat,
}

func init() {
	formatCmd.Flags().BoolVar(&formatForce, "force", false, "Skip the confirmation prompt")
}

func runFormat(cmd *cobra.Command, args []string) error {
	return runStoreCommand(cmd, func(ctx context.Context, s *session) error {
		label := fmt.Sprintf("Erase all %d audit pages of %s?", s.store.PageCount(), s.image.Path())
		ok, err := prompt.ConfirmDangerWithForce(label, "format", formatForce)
		if err != nil {
			if prompt.IsAborted(err) {
				return fmt.Errorf("format aborted")
			}
			return err
		}
		if !ok {
			cmd.Println("Format cancelled")
			return nil
		}

		if err := s.store.Format(); err != nil {
			return err
		}
		if err := s.image.Sync(); err != nil {
			return err
		}
		telemetry.SetAttributes(ctx, telemetry.PagesErased(int(s.store.PageCount())))

		p, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		p.Success(fmt.Sprintf("Formatted %d pages of %d bytes", s.store.PageCount(), s.store.PageSize()))
		return nil
	})
}
