package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var macroJSON bool

var macroCmd = &cobra.Command{
	Use:   "macro",
	Short: "Show the latest national indicators",
	RunE:  runMacro,
}

var sectorsCmd = &cobra.Command{
	Use:   "sectors",
	Short: "Show sector shares of GDP over time",
	RunE:  runSectors,
}

func init() {
	macroCmd.Flags().BoolVar(&macroJSON, "json", false, "output as JSON")
	sectorsCmd.Flags().BoolVar(&macroJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(macroCmd, sectorsCmd)
}

func runMacro(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Macro == nil {
		return fmt.Errorf("macro: %w", errNotConfigured)
	}

	summary := services.Macro.Summary(commandContext(cmd))
	if macroJSON {
		return printJSON(cmd, summary)
	}
	if len(summary) == 0 {
		cmd.Println("No indicators available.")
		return nil
	}
	for _, name := range summary.Names() {
		s := summary[name]
		cmd.Printf("%-18s %8.2f  (%d)\n", name, s.LatestValue, s.LatestYear)
	}
	return nil
}

func runSectors(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Macro == nil {
		return fmt.Errorf("sectors: %w", errNotConfigured)
	}

	series := services.Macro.SectorSeries(commandContext(cmd))
	if macroJSON {
		return printJSON(cmd, series)
	}
	for _, s := range series {
		cmd.Printf("%s:", s.Label)
		for _, o := range s.Data {
			cmd.Printf(" %d=%.2f", o.Year, o.Value)
		}
		cmd.Println()
	}
	return nil
}
