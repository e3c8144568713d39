package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

var (
	dataDistricts  []string
	dataDensities  []string
	dataMinRent    float64
	dataMaxRent    float64
	dataMinTraffic float64
	dataMaxTraffic float64
	dataJSON       bool
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "List district records matching filters",
	RunE:  runData,
}

func init() {
	f := dataCmd.Flags()
	f.StringSliceVarP(&dataDistricts, "district", "d", nil, "keep only these districts (repeatable)")
	f.StringSliceVar(&dataDensities, "density", nil, "keep only these competitor densities (repeatable)")
	f.Float64Var(&dataMinRent, "min-rent", 0, "minimum average rent per sqm")
	f.Float64Var(&dataMaxRent, "max-rent", 0, "maximum average rent per sqm")
	f.Float64Var(&dataMinTraffic, "min-traffic", 0, "minimum foot traffic score")
	f.Float64Var(&dataMaxTraffic, "max-traffic", 0, "maximum foot traffic score")
	f.BoolVar(&dataJSON, "json", false, "output records as JSON")
	rootCmd.AddCommand(dataCmd)
}

func runData(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Market == nil {
		return fmt.Errorf("data: %w", errNotConfigured)
	}

	filters := domain.FilterSet{Districts: dataDistricts}
	for _, s := range dataDensities {
		d, ok := domain.ParseDensity(s)
		if !ok {
			return fmt.Errorf("invalid --density %q: %w", s, domain.ErrInvalidInput)
		}
		filters.CompetitorDensity = append(filters.CompetitorDensity, d)
	}
	flags := cmd.Flags()
	if flags.Changed("min-rent") {
		filters.MinRent = &dataMinRent
	}
	if flags.Changed("max-rent") {
		filters.MaxRent = &dataMaxRent
	}
	if flags.Changed("min-traffic") {
		filters.MinTraffic = &dataMinTraffic
	}
	if flags.Changed("max-traffic") {
		filters.MaxTraffic = &dataMaxTraffic
	}

	records, err := services.Market.Filter(commandContext(cmd), filters)
	if err != nil {
		return fmt.Errorf("filter failed: %w", err)
	}

	if dataJSON {
		if records == nil {
			records = []domain.Record{}
		}
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("No records match.")
		return nil
	}
	for _, r := range records {
		cmd.Println(r.String())
	}
	return nil
}
