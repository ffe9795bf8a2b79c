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
	searchK        int
	searchJSON     bool
	searchMinScore float64
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search passages by similarity",
	Long: `Embeds the query and returns the most similar passages by cosine
similarity, optionally restricted by the same metadata filters the
texts command accepts.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top", "k", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "drop results scoring below this similarity")
	addFilterFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		K:        searchK,
		Filter:   filterFromFlags(cmd),
		MinScore: searchMinScore,
	}

	results, err := searchService.Search(context.Background(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		r := &results[i].Record
		title := r.Title
		if title == "" {
			title = r.ID
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, results[i].Score)
		cmd.Printf("      id=%s lexile=%d", r.ID, r.Lexile)
		if r.GradeBand != "" {
			cmd.Printf(" grade=%s", r.GradeBand)
		}
		cmd.Println()
		cmd.Printf("      %s\n", snippet(r.Body, 100))
		cmd.Println()
	}
	return nil
}

// snippet truncates text to at most n runes for single-line display.
func snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
