package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

const (
	// EmptyQueryMessage answers a blank question.
	EmptyQueryMessage = "Please ask a question about the Egyptian market, for example rents in a district or the inflation trend."

	// NoDataMessage stands in for evidence when nothing was retrieved.
	NoDataMessage = "No specific data found for this query."

	// EmptyInsight is what the generator is told to say when there is no data.
	EmptyInsight = "💡 Select a specific indicator to see detailed insights."

	// FallbackInsight is returned when the generator fails.
	FallbackInsight = "💡 Explore the data to uncover market trends."

	defaultIndustry = "General"
)

var classifyTemplate = template.Must(template.New("classify").Parse(`You are an AI router for an Egypt Market Intelligence platform.
Classify the following user query into exactly one of these categories:
- MACRO: Questions about national economic indicators (Inflation, GDP), investment climate, market trends, or "is it a good time to invest".
- MICRO: Questions about specific locations, rent prices, foot traffic, or local competitors in Cairo.
- HYBRID: Questions that combine both macro economic factors and specific local business feasibility (e.g., "feasibility of a cafe in Maadi given inflation").
- GENERAL: Greetings or out-of-scope questions.

Query: {{printf "%q" .Query}}

Return ONLY the category name (MACRO, MICRO, HYBRID, or GENERAL).
`))

var composeTemplate = template.Must(template.New("compose").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`You are an expert Egypt Market Intelligence Consultant specializing in the **{{.Industry}}** sector.
{{if .HasDashboard}}
[SYSTEM CONTEXT]
Current View: {{.Filters}}
Active Data Points (Top {{.MaxRows}}):
{{range $i, $row := .Rows}}- Row {{inc $i}}: {{$row}}
{{end}}[/SYSTEM CONTEXT]
{{end}}{{if .Simulation}}
MODE: SIMULATION / SCENARIO PLANNING
- The user is asking a "What-If" question.
- You must output a Markdown Table comparing "Current State" vs "Projected State".
- Make reasonable assumptions for the projection based on the user's input (e.g., "Inflation +5%").
- Explicitly state your assumptions.
{{end}}
Instructions:
1. Answer based on the data provided in [SYSTEM CONTEXT] or 'Context Data'.
{{if .Simulation}}2. You are allowed to calculate projections and estimate future values based on user parameters.
{{else}}2. Answer using **ONLY** the provided data. If data is missing, state it.
{{end}}3. **CITATION RULE**: When citing a number, you MUST append a source tag if available (e.g., [Source: FS_CAI_001]). If no ID is present, use [Source: System].
4. Be professional, concise, and helpful.

Context Data:
{{if .Macro}}
MACRO DATA (World Bank):
{{.Macro}}
{{end}}{{if .Micro}}
MICRO DATA (Local Survey):
{{range .Micro}}- {{.}}
{{end}}{{end}}{{if .NoData}}{{.NoData}}
{{end}}
User Query: {{printf "%q" .Query}}

Answer:
`))

var insightTemplate = template.Must(template.New("insight").Parse(`You are a Senior Market Analyst for Egypt.

Context:
- User is viewing data for: {{.Filters}}
- Data Summary: {{.Summary}}

Task:
Generate a single, punchy, 1-sentence insight about this data.
- Highlight a specific opportunity, risk, or trend.
- Use an emoji at the start (e.g., 🚀, ⚠️, 💡).
- Be specific (mention locations/sectors if possible).
- If data is empty, say: "{{.Empty}}"

Insight:
`))

type composeData struct {
	Industry     string
	HasDashboard bool
	Filters      string
	MaxRows      int
	Rows         []string
	Simulation   bool
	Macro        string
	Micro        []string
	NoData       string
	Query        string
}

func renderClassifyPrompt(query string) (string, error) {
	var b strings.Builder
	if err := classifyTemplate.Execute(&b, struct{ Query string }{query}); err != nil {
		return "", fmt.Errorf("render classify prompt: %w", err)
	}
	return b.String(), nil
}

// renderComposePrompt assembles the answer prompt. Evidence is bounded:
// at most domain.MaxVisibleRows dashboard rows are included.
func renderComposePrompt(req domain.QueryRequest, data domain.DataContext) (string, error) {
	d := composeData{
		Industry:   strings.TrimSpace(req.Industry),
		MaxRows:    domain.MaxVisibleRows,
		Simulation: req.SimulationMode,
		Query:      req.Text,
	}
	if d.Industry == "" {
		d.Industry = defaultIndustry
	}

	if dc := req.DashboardContext; dc != nil {
		d.HasDashboard = true
		d.Filters = compactJSON(dc.Filters)
		rows := dc.VisibleData
		if len(rows) > domain.MaxVisibleRows {
			rows = rows[:domain.MaxVisibleRows]
		}
		for _, row := range rows {
			d.Rows = append(d.Rows, compactJSON(row))
		}
	}

	if len(data.Macro) > 0 {
		d.Macro = formatMacro(data.Macro)
	}
	for _, hit := range data.Micro {
		d.Micro = append(d.Micro, hit.Record.String())
	}
	if d.Macro == "" && len(d.Micro) == 0 && !d.HasDashboard {
		d.NoData = NoDataMessage
	}

	var b strings.Builder
	if err := composeTemplate.Execute(&b, d); err != nil {
		return "", fmt.Errorf("render compose prompt: %w", err)
	}
	return b.String(), nil
}

func renderInsightPrompt(filters map[string]any, summary string) (string, error) {
	data := struct {
		Filters string
		Summary string
		Empty   string
	}{
		Filters: compactJSON(filters),
		Summary: strings.TrimSpace(summary),
		Empty:   EmptyInsight,
	}
	if data.Summary == "" {
		data.Summary = "(empty)"
	}

	var b strings.Builder
	if err := insightTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render insight prompt: %w", err)
	}
	return b.String(), nil
}

// formatMacro renders one line per indicator in name order.
func formatMacro(summary domain.MacroSummary) string {
	lines := make([]string, 0, len(summary))
	for _, name := range summary.Names() {
		s := summary[name]
		trend := make([]string, 0, len(s.Trend))
		for _, o := range s.Trend {
			trend = append(trend, fmt.Sprintf("%d: %s", o.Year, domain.FormatNumber(o.Value)))
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (%d), trend [%s] [Source: World Bank]",
			name, domain.FormatNumber(s.LatestValue), s.LatestYear, strings.Join(trend, ", ")))
	}
	return strings.Join(lines, "\n")
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
