package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/levelshelf/levelshelf/internal/corpus"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [corpus.json]",
	Short: "Ingest a corpus batch file",
	Long: `Reads a JSON corpus file and runs it through the ingestion pipeline.
Each entry is fingerprinted, embedded when necessary, and upserted into
the record store. Re-running on an unchanged corpus is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	entries, err := corpus.LoadFile(args[0])
	if err != nil {
		return err
	}

	summary, err := ingestService.Ingest(context.Background(), entries)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Batch %s\n", summary.BatchID)
	cmd.Printf("  inserted:  %d\n", summary.Inserted)
	cmd.Printf("  updated:   %d\n", summary.Updated)
	cmd.Printf("  unchanged: %d\n", summary.Unchanged)
	cmd.Printf("  failed:    %d\n", summary.FailedCount)
	for _, f := range summary.Failed {
		id := f.ID
		if id == "" {
			id = "(no id)"
		}
		cmd.Printf("    %s: %s\n", id, f.Reason)
	}
	return nil
}
