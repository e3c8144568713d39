package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	insightFilters string
	insightSummary string
	exploreJSON    bool
)

var insightCmd = &cobra.Command{
	Use:   "insight",
	Short: "Generate a one-sentence insight for the current selection",
	RunE:  runInsight,
}

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "List the districts in the dataset",
	RunE:  runDistricts,
}

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy",
	Short: "Show the indicator tree for the data explorer",
	RunE:  runHierarchy,
}

func init() {
	insightCmd.Flags().StringVar(&insightFilters, "filters", "", "selection filters as a JSON object")
	insightCmd.Flags().StringVar(&insightSummary, "summary", "", "summary of the selected data")
	districtsCmd.Flags().BoolVar(&exploreJSON, "json", false, "output as JSON")
	hierarchyCmd.Flags().BoolVar(&exploreJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(insightCmd, districtsCmd, hierarchyCmd)
}

func runInsight(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Query == nil {
		return fmt.Errorf("insight: %w", errNotConfigured)
	}
	var filters map[string]any
	if insightFilters != "" {
		if err := json.Unmarshal([]byte(insightFilters), &filters); err != nil {
			return fmt.Errorf("invalid --filters: %w", err)
		}
	}
	cmd.Println(services.Query.ProactiveInsight(commandContext(cmd), filters, insightSummary))
	return nil
}

func runDistricts(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Market == nil {
		return fmt.Errorf("districts: %w", errNotConfigured)
	}
	districts, err := services.Market.Districts(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("districts failed: %w", err)
	}
	if exploreJSON {
		return printJSON(cmd, map[string][]string{"districts": districts})
	}
	for _, d := range districts {
		cmd.Println(d)
	}
	return nil
}

func runHierarchy(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Market == nil {
		return fmt.Errorf("hierarchy: %w", errNotConfigured)
	}
	nodes, err := services.Market.Hierarchy(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("hierarchy failed: %w", err)
	}
	if exploreJSON {
		return printJSON(cmd, nodes)
	}
	for _, n := range nodes {
		cmd.Println(n.Name)
		for _, item := range n.Items {
			cmd.Printf("  %-22s %s\n", item.Name, item.Label)
		}
	}
	return nil
}
