// Package cli implements the levelshelf command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/levelshelf/levelshelf/internal/adapters/driven/config/file"
	"github.com/levelshelf/levelshelf/internal/adapters/driven/embedding/ollama"
	"github.com/levelshelf/levelshelf/internal/adapters/driven/embedding/openai"
	"github.com/levelshelf/levelshelf/internal/adapters/driven/storage/sqlite"
	"github.com/levelshelf/levelshelf/internal/core/ports/driven"
	"github.com/levelshelf/levelshelf/internal/core/ports/driving"
	"github.com/levelshelf/levelshelf/internal/core/services"
	"github.com/levelshelf/levelshelf/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	verbose   bool
	configDir string
	dataDir   string
)

// Wired services. Set by ensureServices, or directly by tests.
var (
	configStore   driven.ConfigStore
	searchService driving.Searcher
	ingestService driving.Ingestor
	provider      driven.EmbeddingProvider
	store         *sqlite.Store
)

var rootCmd = &cobra.Command{
	Use:   "levelshelf",
	Short: "Leveled-text retrieval engine",
	Long: `Levelshelf ingests leveled reading passages, embeds them through a
configurable provider, and answers similarity-ranked and metadata-filtered
retrieval queries from the command line or over HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.levelshelf)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.levelshelf/data)")
}

// Execute runs the root command.
func Execute() {
	defer closeServices()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ensureServices wires the storage, embedding and core services. Tests may
// install fakes beforehand, in which case wiring is skipped.
func ensureServices() error {
	if searchService != nil && ingestService != nil {
		return nil
	}

	cfg, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	configStore = cfg

	logger.Debug("config: %s", cfg.Path())

	s, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	store = s

	provider, err = buildProvider(cfg)
	if err != nil {
		return err
	}
	logger.Debug("embedding provider: %s", provider.ModelName())

	embedder := services.NewCachedEmbedder(s.EmbeddingCache(), provider)
	ingestService = services.NewIngestService(s.RecordStore(), embedder)
	searchService = services.NewSearchService(s.RecordStore(), embedder)
	return nil
}

// buildProvider selects the embedding provider from configuration.
// Defaults to a local Ollama server.
func buildProvider(cfg driven.ConfigStore) (driven.EmbeddingProvider, error) {
	switch name := cfg.GetString("embedding.provider"); name {
	case "", "ollama":
		return ollama.NewProvider(ollama.Config{
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		}), nil
	case "openai":
		apiKey := cfg.GetString("embedding.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return openai.NewProvider(openai.Config{
			APIKey:     apiKey,
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", name)
	}
}

func closeServices() {
	if provider != nil {
		_ = provider.Close()
	}
	if store != nil {
		_ = store.Close()
	}
}
