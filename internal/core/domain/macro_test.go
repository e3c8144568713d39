package domain

import (
	"testing"
	"time"
)

func TestNewIndicatorSummary_LatestMatchesTrend(t *testing.T) {
	series := IndicatorSeries{
		{Year: 2023, Value: 33.9},
		{Year: 2020, Value: 5.04},
		{Year: 2022, Value: 13.9},
		{Year: 2021, Value: 4.5},
	}

	summary, ok := NewIndicatorSummary(series)
	if !ok {
		t.Fatal("expected summary for non-empty series")
	}
	if summary.LatestYear != 2023 || summary.LatestValue != 33.9 {
		t.Errorf("expected latest 2023=33.9, got %d=%v", summary.LatestYear, summary.LatestValue)
	}
	last := summary.Trend[len(summary.Trend)-1]
	if last.Year != summary.LatestYear || last.Value != summary.LatestValue {
		t.Error("expected latest fields to equal last trend element")
	}
	for i := 1; i < len(summary.Trend); i++ {
		if summary.Trend[i-1].Year > summary.Trend[i].Year {
			t.Fatalf("trend not ascending: %v", summary.Trend)
		}
	}
	if series[0].Year != 2023 {
		t.Error("expected input series to be left untouched")
	}
}

func TestNewIndicatorSummary_Empty(t *testing.T) {
	if _, ok := NewIndicatorSummary(nil); ok {
		t.Error("expected no summary for empty series")
	}
}

func TestMacroSummary_Names(t *testing.T) {
	m := MacroSummary{"inflation": {}, "exports_gdp": {}, "gdp_growth": {}}
	names := m.Names()
	expected := []string{"exports_gdp", "gdp_growth", "inflation"}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("expected %v, got %v", expected, names)
		}
	}
}

func TestMacroSnapshot_Age(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	var nilSnap *MacroSnapshot
	if nilSnap.Age(now) < 24*time.Hour*365 {
		t.Error("expected nil snapshot to be infinitely old")
	}

	snap := &MacroSnapshot{FetchedAt: now.Add(-time.Hour)}
	if snap.Age(now) != time.Hour {
		t.Errorf("expected age 1h, got %v", snap.Age(now))
	}
}

func TestDefaultIndicators(t *testing.T) {
	indicators := DefaultIndicators()
	if len(indicators) != 7 {
		t.Fatalf("expected 7 tracked indicators, got %d", len(indicators))
	}
	sectors := 0
	for _, ind := range indicators {
		if ind.Code == "" {
			t.Errorf("indicator %s has no code", ind.Name)
		}
		if ind.Sector {
			sectors++
		}
	}
	if sectors != 4 {
		t.Errorf("expected 4 sector indicators, got %d", sectors)
	}
}

func TestSectorLabel(t *testing.T) {
	tests := map[string]string{
		"agriculture_gdp":   "Agriculture (% GDP)",
		"manufacturing_gdp": "Manufacturing (% GDP)",
		"exports_gdp":       "Exports (% GDP)",
	}
	for name, expected := range tests {
		if got := SectorLabel(name); got != expected {
			t.Errorf("SectorLabel(%q) = %q, expected %q", name, got, expected)
		}
	}
}
