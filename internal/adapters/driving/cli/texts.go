package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/levelshelf/levelshelf/internal/core/domain"
)

var (
	textsLimit int
	textsJSON  bool
)

var textsCmd = &cobra.Command{
	Use:   "texts",
	Short: "List stored passages",
	Long: `Lists stored passages in insertion order, optionally restricted by
metadata filters. Passages without embeddings are included; listing
never consults the embedding provider.`,
	RunE: runTexts,
}

var textsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a single passage",
	Args:  cobra.ExactArgs(1),
	RunE:  runTextsShow,
}

func init() {
	textsCmd.Flags().IntVarP(&textsLimit, "limit", "n", 20, "maximum number of results")
	textsCmd.Flags().BoolVar(&textsJSON, "json", false, "output results as JSON")
	addFilterFlags(textsCmd)
	textsCmd.AddCommand(textsShowCmd)
	rootCmd.AddCommand(textsCmd)
}

// addFilterFlags registers the metadata filter flags shared by the texts
// and search commands.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Int("lexile-min", 0, "minimum lexile score (inclusive)")
	cmd.Flags().Int("lexile-max", 0, "maximum lexile score (inclusive)")
	cmd.Flags().String("grade-band", "", "grade band, e.g. K-1 or 9-10")
	cmd.Flags().String("phonics-focus", "", "phonics focus tag")
	cmd.Flags().String("theme", "", "theme tag")
}

// filterFromFlags builds a metadata filter from the shared flags. Lexile
// bounds are pointers so an explicit 0 differs from an absent flag.
func filterFromFlags(cmd *cobra.Command) domain.Filter {
	var f domain.Filter
	if cmd.Flags().Changed("lexile-min") {
		v, _ := cmd.Flags().GetInt("lexile-min")
		f.LexileMin = &v
	}
	if cmd.Flags().Changed("lexile-max") {
		v, _ := cmd.Flags().GetInt("lexile-max")
		f.LexileMax = &v
	}
	f.GradeBand, _ = cmd.Flags().GetString("grade-band")
	f.PhonicsFocus, _ = cmd.Flags().GetString("phonics-focus")
	f.Theme, _ = cmd.Flags().GetString("theme")
	return f
}

func runTexts(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if searchService == nil {
		return errors.New("search service not configured")
	}

	records, err := searchService.List(context.Background(), filterFromFlags(cmd), textsLimit)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if textsJSON {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(records) == 0 {
		cmd.Println("No texts found.")
		return nil
	}

	for i := range records {
		r := &records[i]
		embedded := " "
		if r.HasEmbedding() {
			embedded = "*"
		}
		cmd.Printf("%s %-12s lexile=%-5d %s\n", embedded, r.ID, r.Lexile, r.Title)
	}
	cmd.Println()
	cmd.Println("* = embedding present")
	return nil
}

func runTextsShow(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if searchService == nil {
		return errors.New("search service not configured")
	}

	record, err := searchService.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	cmd.Printf("ID:            %s\n", record.ID)
	cmd.Printf("Title:         %s\n", record.Title)
	cmd.Printf("Lexile:        %d\n", record.Lexile)
	if record.GradeBand != "" {
		cmd.Printf("Grade band:    %s\n", record.GradeBand)
	}
	if record.PhonicsFocus != "" {
		cmd.Printf("Phonics focus: %s\n", record.PhonicsFocus)
	}
	if record.Theme != "" {
		cmd.Printf("Theme:         %s\n", record.Theme)
	}
	if record.HasEmbedding() {
		cmd.Printf("Embedding:     %d dims (%s)\n", len(record.Embedding), record.EmbeddingModel)
	} else {
		cmd.Println("Embedding:     none")
	}
	cmd.Println()
	cmd.Println(record.Body)
	return nil
}
