package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	refreshMacro bool
	refreshData  bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload the dataset and/or refetch national indicators now",
	RunE:  runRefresh,
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background refresher until interrupted",
	RunE:  runWorker,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshMacro, "macro", false, "refetch national indicators")
	refreshCmd.Flags().BoolVar(&refreshData, "data", false, "reload the district dataset")
	rootCmd.AddCommand(refreshCmd, workerCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	if services == nil {
		return fmt.Errorf("refresh: %w", errNotConfigured)
	}
	ctx := commandContext(cmd)
	both := !refreshMacro && !refreshData

	if refreshData || both {
		if services.Market == nil {
			return fmt.Errorf("refresh data: %w", errNotConfigured)
		}
		report, err := services.Market.Reload(ctx)
		if err != nil {
			return fmt.Errorf("reload failed: %w", err)
		}
		cmd.Printf("dataset: %d rows from %s\n", report.Rows, report.Source.Name)
		if len(report.Synthesized) > 0 {
			cmd.Printf("  synthesized: %v\n", report.Synthesized)
		}
		if report.CoercedCells > 0 {
			cmd.Printf("  coerced cells: %d\n", report.CoercedCells)
		}
	}

	if refreshMacro || both {
		if services.Macro == nil {
			return fmt.Errorf("refresh macro: %w", errNotConfigured)
		}
		summary, err := services.Macro.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("macro refresh failed: %w", err)
		}
		cmd.Printf("macro: %d indicators\n", len(summary))
	}
	return nil
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Refresher == nil {
		return fmt.Errorf("worker: %w", errNotConfigured)
	}
	ctx := commandContext(cmd)
	services.Refresher.Start(ctx)
	cmd.Println("refresher running, press Ctrl+C to stop")
	<-ctx.Done()
	services.Refresher.Stop()
	return nil
}
