package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

var (
	queryIndustry string
	querySimulate bool
	queryFilters  string
	queryVisible  string
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question over macro and district data",
	Long: `Classifies the question, retrieves national indicators and/or matching
district records, and asks the generative model for a cited answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryIndustry, "industry", "", "industry to specialise the answer for")
	queryCmd.Flags().BoolVar(&querySimulate, "simulate", false, "answer as a what-if scenario with a projection table")
	queryCmd.Flags().StringVar(&queryFilters, "filters", "", "dashboard filters as a JSON object")
	queryCmd.Flags().StringVar(&queryVisible, "visible", "", "visible dashboard rows as a JSON array")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the full result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if services == nil || services.Query == nil {
		return fmt.Errorf("query: %w", errNotConfigured)
	}

	req := domain.QueryRequest{
		Text:           strings.Join(args, " "),
		SimulationMode: querySimulate,
		Industry:       queryIndustry,
	}
	if queryFilters != "" || queryVisible != "" {
		dc := &domain.DashboardContext{}
		if queryFilters != "" {
			if err := json.Unmarshal([]byte(queryFilters), &dc.Filters); err != nil {
				return fmt.Errorf("invalid --filters: %w", err)
			}
		}
		if queryVisible != "" {
			if err := json.Unmarshal([]byte(queryVisible), &dc.VisibleData); err != nil {
				return fmt.Errorf("invalid --visible: %w", err)
			}
		}
		req.DashboardContext = dc
	}

	result, err := services.Query.Query(commandContext(cmd), req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, result)
	}
	cmd.Println(result.Response)
	cmd.Println()
	cmd.Printf("intent: %s  request: %s  took: %s\n", result.Intent, result.RequestID, result.Took)
	for _, d := range result.Degradations {
		cmd.Printf("degraded: %s\n", d)
	}
	return nil
}
