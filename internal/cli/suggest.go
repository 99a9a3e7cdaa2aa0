package cli

import (
	"encoding/json"
	"fmt"

	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/Ayash-Bera/ticketconsole/internal/recommend"
	"github.com/spf13/cobra"
)

var (
	suggestTopK int
	suggestJSON bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [description]",
	Short: "Suggest knowledge articles for a description",
	Long: `Sends one relevance query for the description and prints the ranked
articles with their scores.`,
	Args: cobra.ExactArgs(1),
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().IntVarP(&suggestTopK, "top-k", "k", 3, "number of articles to return")
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	s := recommend.NewSuggester(newBackend(cfg, logger), logger, recommend.Options{TopK: cfg.Recommend.TopK})
	defer s.Close()

	result, err := s.Predict(cmd.Context(), args[0], suggestTopK)
	if err != nil {
		return fmt.Errorf("suggest failed: %w", err)
	}

	if suggestJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printSuggestions(cmd, result)
	return nil
}

func printSuggestions(cmd *cobra.Command, result models.RecommendationResult) {
	if len(result.Items) == 0 {
		cmd.Println("No suggestions found.")
		return
	}
	for i, item := range result.Items {
		title := item.Title
		if title == "" {
			title = "Article " + item.ArticleID.String()
		}
		cmd.Printf("[%d] %s (%.2f, %s)\n", i+1, title, item.Score, item.Relevance())
		if item.Snippet != "" {
			cmd.Printf("    %s\n", item.Snippet)
		}
	}
}
