package cli

import (
	"encoding/json"
	"fmt"

	"github.com/Ayash-Bera/ticketconsole/internal/analytics"
	"github.com/spf13/cobra"
)

var analyticsJSON bool

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Print the analytics summary",
	Long: `Fetches one analytics snapshot and prints coverage, resolution rate,
the low-CTR articles and any quality issues.`,
	Args: cobra.NoArgs,
	RunE: runAnalytics,
}

func init() {
	analyticsCmd.Flags().BoolVar(&analyticsJSON, "json", false, "output the snapshot as JSON")
	rootCmd.AddCommand(analyticsCmd)
}

func runAnalytics(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	poller := analytics.NewPoller(newBackend(cfg, logger), logger, analytics.Options{
		LowCTRThreshold: cfg.Analytics.LowCTRThreshold,
		MinCoverage:     cfg.Analytics.MinCoverage,
	})
	if err := poller.Refresh(cmd.Context()); err != nil {
		return err
	}
	snap := poller.State().Snapshot

	if analyticsJSON {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	s := snap.Summary
	cmd.Printf("Articles:   %d\n", s.TotalArticles)
	cmd.Printf("Tickets:    %d (%d with recommendations)\n", s.TotalTickets, s.TicketsWithRecommendations)
	cmd.Printf("Coverage:   %.2f%%\n", s.CoveragePercent)
	cmd.Printf("Resolution: %.2f%%\n", s.ResolutionRatePercent)
	cmd.Printf("Feedback:   %d\n", s.TotalFeedback)

	if len(snap.LowCTR) > 0 {
		cmd.Println()
		cmd.Printf("Low CTR (< %.0f%%):\n", cfg.Analytics.LowCTRThreshold)
		for _, a := range snap.LowCTR {
			cmd.Printf("  %s  %d/%d  %.2f%%\n", a.DisplayName(), a.Clicks, a.Impressions, a.CTR)
		}
	}
	for _, issue := range snap.Issues {
		cmd.Printf("! %s\n", issue)
	}
	return nil
}
