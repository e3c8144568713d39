package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Observation is one (year, value) point of an indicator series.
type Observation struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// IndicatorSeries is an ascending-by-year sequence of observations.
type IndicatorSeries []Observation

// Sorted returns a copy ordered by ascending year.
func (s IndicatorSeries) Sorted() IndicatorSeries {
	out := make(IndicatorSeries, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// IndicatorSummary is the latest value of an indicator plus its trend.
type IndicatorSummary struct {
	LatestValue float64         `json:"latest_value"`
	LatestYear  int             `json:"latest_year"`
	Trend       IndicatorSeries `json:"trend"`
}

// NewIndicatorSummary builds a summary whose latest fields equal the last
// element of the sorted trend. Returns false for an empty series.
func NewIndicatorSummary(series IndicatorSeries) (IndicatorSummary, bool) {
	if len(series) == 0 {
		return IndicatorSummary{}, false
	}
	trend := series.Sorted()
	last := trend[len(trend)-1]
	return IndicatorSummary{
		LatestValue: last.Value,
		LatestYear:  last.Year,
		Trend:       trend,
	}, true
}

// MacroSummary maps indicator name to its summary.
type MacroSummary map[string]IndicatorSummary

// Names returns the indicator names in sorted order.
func (m MacroSummary) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MacroSnapshot is a summary together with the time it was fetched.
type MacroSnapshot struct {
	Summary   MacroSummary `json:"summary"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Age returns how long ago the snapshot was fetched.
func (s *MacroSnapshot) Age(now time.Time) time.Duration {
	if s == nil || s.FetchedAt.IsZero() {
		return time.Duration(math.MaxInt64)
	}
	return now.Sub(s.FetchedAt)
}

// Indicator is a tracked macro indicator and its statistical API code.
type Indicator struct {
	Name   string `toml:"name"`
	Code   string `toml:"code"`
	Sector bool   `toml:"sector"` // Sector share of GDP
}

// DefaultIndicators returns the tracked national indicators.
func DefaultIndicators() []Indicator {
	return []Indicator{
		{Name: "inflation", Code: "FP.CPI.TOTL.ZG"},
		{Name: "gdp_growth", Code: "NY.GDP.MKTP.KD.ZG"},
		{Name: "lending_rate", Code: "FR.INR.LEND"},
		{Name: "agriculture_gdp", Code: "NV.AGR.TOTL.ZS", Sector: true},
		{Name: "manufacturing_gdp", Code: "NV.IND.MANF.ZS", Sector: true},
		{Name: "services_gdp", Code: "NV.SRV.TOTL.ZS", Sector: true},
		{Name: "exports_gdp", Code: "NE.EXP.GNFS.ZS", Sector: true},
	}
}

// SectorSeries is a named sector-share series for charts.
type SectorSeries struct {
	Name  string          `json:"name"`
	Label string          `json:"label"`
	Data  IndicatorSeries `json:"data"`
}

// SectorLabel turns "agriculture_gdp" into "Agriculture (% GDP)".
func SectorLabel(name string) string {
	base := strings.TrimSuffix(name, "_gdp")
	words := strings.Split(base, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ") + " (% GDP)"
}
