package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/levelshelf/levelshelf/internal/adapters/driving/httpapi"
	"github.com/levelshelf/levelshelf/internal/corpus"
	"github.com/levelshelf/levelshelf/internal/logger"
)

var (
	serveListen string
	serveCorpus string
	serveWatch  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the HTTP API. With --corpus the file is ingested on startup,
and with --watch it is re-ingested whenever it changes on disk.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", ":8002", "listen address")
	serveCmd.Flags().StringVar(&serveCorpus, "corpus", "", "corpus JSON file to ingest on startup")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "re-ingest the corpus file when it changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if searchService == nil || ingestService == nil {
		return errors.New("services not configured")
	}
	if serveWatch && serveCorpus == "" {
		return errors.New("--watch requires --corpus")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveCorpus != "" {
		entries, err := corpus.LoadFile(serveCorpus)
		if err != nil {
			return err
		}
		summary, err := ingestService.Ingest(ctx, entries)
		if err != nil {
			return err
		}
		logger.Info("startup ingest %s: %d inserted, %d updated, %d unchanged, %d failed",
			summary.BatchID, summary.Inserted, summary.Updated, summary.Unchanged, summary.FailedCount)
	}

	if serveWatch {
		watcher := corpus.NewWatcher(serveCorpus, ingestService)
		go func() {
			if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("corpus watcher stopped: %v", err)
			}
		}()
	}

	server := httpapi.NewServer(searchService, ingestService, provider, version)
	cmd.Printf("Listening on %s\n", serveListen)
	return server.Run(serveListen)
}
