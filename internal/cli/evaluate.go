package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [dataset_path]",
	Short: "Evaluate the ranking model on a labelled dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	resp, err := newBackend(cfg, logger).EvaluateDataset(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	cmd.Printf("Dataset size: %d\n", resp.DatasetSize)
	printMetric(cmd, "Accuracy", resp.Accuracy)
	printMetric(cmd, "Precision", resp.Precision)
	printMetric(cmd, "Recall", resp.Recall)
	printMetric(cmd, "F1", resp.F1)
	return nil
}

func printMetric(cmd *cobra.Command, name string, v *float64) {
	if v == nil {
		return
	}
	cmd.Printf("%-10s %.4f\n", name+":", *v)
}
