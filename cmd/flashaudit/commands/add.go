package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/flashaudit/internal/logger"
	"github.com/marmos91/flashaudit/internal/telemetry"
	"github.com/marmos91/flashaudit/pkg/audit"
)

var (
	addFile      string
	addAutoFlush bool
)

var addCmd = &cobra.Command{
	Use:   "add [TEXT]",
	Short: "Store a new audit record",
	Long: `Store a new audit record and print its id.

The payload is either the TEXT argument or the contents of --file ("-" reads
stdin). Payloads must be between 1 and 65535 bytes.

If the record only fits once disposed records are compacted, add fails
unless --auto-flush is given, in which case the store is flushed and the add
retried once.

Examples:
  # Store a text event
  flashaudit add "user=alice action=login"

  # Store a binary event from a file
  flashaudit add --file event.bin

  # Flush automatically when needed
  flashaudit add --auto-flush --file - < event.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addFile, "file", "f", "", `Read the payload from a file ("-" for stdin)`)
	addCmd.Flags().BoolVar(&addAutoFlush, "auto-flush", false, "Flush and retry once when the record only fits after compaction")
}

func runAdd(cmd *cobra.Command, args []string) error {
	data, err := readPayload(cmd, args)
	if err != nil {
		return err
	}

	return runStoreCommand(cmd, func(ctx context.Context, s *session) error {
		id, err := s.store.Add(data)
		if errors.Is(err, audit.ErrCtxCheck) && addAutoFlush {
			logger.InfoCtx(ctx, "Record needs a flush, compacting", logger.KeySize, len(data))
			res, ferr := s.store.Flush()
			if ferr != nil {
				return fmt.Errorf("auto-flush failed: %w", ferr)
			}
			telemetry.SetAttributes(ctx,
				telemetry.PagesErased(res.PagesErased),
				telemetry.BytesReclaimed(res.BytesReclaimed))
			id, err = s.store.Add(data)
		}
		if err != nil {
			if errors.Is(err, audit.ErrCtxCheck) {
				return fmt.Errorf("%w\n\nRun 'flashaudit flush' or retry with --auto-flush", err)
			}
			return err
		}

		telemetry.SetAttributes(ctx, telemetry.RecordID(uint16(id)))

		p, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		if p.Structured() {
			return p.Print(recordRef{ID: id, Size: len(data)})
		}
		p.Printf("%d\n", id)
		return nil
	}, telemetry.Size(len(data)))
}

// readPayload returns the add payload from --file or the TEXT argument.
func readPayload(cmd *cobra.Command, args []string) ([]byte, error) {
	switch {
	case addFile != "" && len(args) > 0:
		return nil, fmt.Errorf("pass either TEXT or --file, not both")
	case addFile == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	case addFile != "":
		data, err := os.ReadFile(addFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload: %w", err)
		}
		return data, nil
	case len(args) == 1:
		return []byte(args[0]), nil
	default:
		return nil, fmt.Errorf("no payload: pass TEXT or --file")
	}
}

// recordRef is the structured result of add and size.
type recordRef struct {
	ID   audit.RecordID `json:"id" yaml:"id"`
	Size int            `json:"size" yaml:"size"`
}
