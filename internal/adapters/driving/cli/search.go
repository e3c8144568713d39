package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search district records by similarity",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 3, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if services == nil || services.Market == nil {
		return fmt.Errorf("search: %w", errNotConfigured)
	}

	result, err := services.Market.Search(commandContext(cmd), strings.Join(args, " "), searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, result)
	}
	if len(result.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	cmd.Printf("Results (%s):\n", result.Mode)
	for i, hit := range result.Results {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, hit.Record.String(), hit.Score)
	}
	return nil
}
