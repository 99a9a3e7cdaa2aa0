package cli

import (
	"fmt"
	"strings"

	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/spf13/cobra"
)

var (
	articleContent string
	articleTags    []string
)

var addArticleCmd = &cobra.Command{
	Use:   "add-article [title]",
	Short: "Add an article to the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddArticle,
}

var triggerAlertCmd = &cobra.Command{
	Use:   "trigger-alert [message]",
	Short: "Raise a system alert on the backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runTriggerAlert,
}

func init() {
	addArticleCmd.Flags().StringVarP(&articleContent, "content", "c", "", "article body")
	addArticleCmd.Flags().StringSliceVarP(&articleTags, "tags", "t", nil, "comma separated tags")
	_ = addArticleCmd.MarkFlagRequired("content")

	rootCmd.AddCommand(addArticleCmd, triggerAlertCmd)
}

func runAddArticle(cmd *cobra.Command, args []string) error {
	title := strings.TrimSpace(args[0])
	if title == "" {
		return fmt.Errorf("title is required")
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	article, err := newBackend(cfg, logger).AddArticle(cmd.Context(), models.AddArticleRequest{
		Title:   title,
		Content: articleContent,
		Tags:    articleTags,
	})
	if err != nil {
		return fmt.Errorf("add article failed: %w", err)
	}
	cmd.Printf("Added article %s: %s\n", article.ID, article.Title)
	return nil
}

func runTriggerAlert(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := newBackend(cfg, logger).TriggerAlert(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("trigger alert failed: %w", err)
	}
	cmd.Println("Alert triggered")
	return nil
}
