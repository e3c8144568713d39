package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

func TestRenderClassifyPrompt(t *testing.T) {
	prompt, err := renderClassifyPrompt(`rent in "Maadi"`)
	if err != nil {
		t.Fatalf("renderClassifyPrompt failed: %v", err)
	}
	if !strings.Contains(prompt, `Query: "rent in \"Maadi\""`) {
		t.Errorf("query not quoted in prompt:\n%s", prompt)
	}
	for _, label := range []domain.Intent{domain.IntentMacro, domain.IntentMicro, domain.IntentHybrid, domain.IntentGeneral} {
		if !strings.Contains(prompt, string(label)) {
			t.Errorf("prompt missing category %s", label)
		}
	}
}

func TestRenderComposePrompt_DefaultIndustryAndNoData(t *testing.T) {
	prompt, err := renderComposePrompt(domain.QueryRequest{Text: "hello"}, domain.DataContext{})
	if err != nil {
		t.Fatalf("renderComposePrompt failed: %v", err)
	}
	if !strings.Contains(prompt, "**General** sector") {
		t.Error("expected default industry")
	}
	if !strings.Contains(prompt, NoDataMessage) {
		t.Error("expected no-data message")
	}
	if strings.Contains(prompt, "[SYSTEM CONTEXT]\n") {
		t.Error("dashboard block should be absent")
	}
	if strings.Contains(prompt, "SIMULATION") {
		t.Error("simulation block should be absent")
	}
	if !strings.Contains(prompt, "Answer using **ONLY** the provided data") {
		t.Error("expected strict answering rule")
	}
}

func TestRenderComposePrompt_Evidence(t *testing.T) {
	data := domain.DataContext{
		Macro: domain.MacroSummary{
			"inflation": {LatestValue: 33.9, LatestYear: 2023, Trend: domain.IndicatorSeries{{Year: 2022, Value: 13.9}, {Year: 2023, Value: 33.9}}},
		},
		Micro: []domain.ScoredRecord{
			{Record: domain.Record{SourceID: "FS_CAI_001", District: "Maadi", AvgRent: 350, FootTraffic: 1500, CompetitorDensity: domain.DensityMedium}, Score: 0.8},
			{Record: domain.Record{District: "Zamalek"}, Score: 0.4},
		},
	}
	prompt, err := renderComposePrompt(domain.QueryRequest{Text: "q", Industry: " Retail "}, data)
	if err != nil {
		t.Fatalf("renderComposePrompt failed: %v", err)
	}

	for _, want := range []string{
		"**Retail** sector",
		"- inflation: 33.9 (2023), trend [2022: 13.9, 2023: 33.9] [Source: World Bank]",
		"[Source: FS_CAI_001]",
		"[Source: System]",
		`User Query: "q"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, NoDataMessage) {
		t.Error("no-data message should be absent when evidence exists")
	}
}

func TestRenderComposePrompt_DashboardRowsBounded(t *testing.T) {
	rows := make([]map[string]any, 0, 15)
	for i := 0; i < 15; i++ {
		rows = append(rows, map[string]any{"District": fmt.Sprintf("D%02d", i)})
	}
	req := domain.QueryRequest{
		Text: "q",
		DashboardContext: &domain.DashboardContext{
			Filters:     map[string]any{"district": "Maadi"},
			VisibleData: rows,
		},
	}
	prompt, err := renderComposePrompt(req, domain.DataContext{})
	if err != nil {
		t.Fatalf("renderComposePrompt failed: %v", err)
	}

	if !strings.Contains(prompt, `Current View: {"district":"Maadi"}`) {
		t.Error("filters not rendered")
	}
	if !strings.Contains(prompt, `- Row 10: {"District":"D09"}`) {
		t.Error("expected tenth row")
	}
	if strings.Contains(prompt, "D10") {
		t.Error("rows beyond the limit must be dropped")
	}
	if strings.Contains(prompt, NoDataMessage) {
		t.Error("dashboard context counts as data")
	}
}

func TestRenderInsightPrompt(t *testing.T) {
	prompt, err := renderInsightPrompt(nil, "   ")
	if err != nil {
		t.Fatalf("renderInsightPrompt failed: %v", err)
	}
	if !strings.Contains(prompt, "Data Summary: (empty)") {
		t.Error("blank summary should render as (empty)")
	}
	if !strings.Contains(prompt, EmptyInsight) {
		t.Error("expected empty-data instruction")
	}
}
