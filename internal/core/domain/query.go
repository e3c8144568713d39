package domain

import (
	"strings"
	"time"
)

// Intent classifies which evidence domains a query needs
type Intent string

const (
	IntentMacro   Intent = "MACRO"
	IntentMicro   Intent = "MICRO"
	IntentHybrid  Intent = "HYBRID"
	IntentGeneral Intent = "GENERAL"
)

// intentPriority is the order labels are searched for in a response.
var intentPriority = []Intent{IntentMacro, IntentMicro, IntentHybrid, IntentGeneral}

// ParseIntent extracts an intent label from free text.
// The first label (in priority order) contained in the text wins;
// anything else is GENERAL.
func ParseIntent(text string) Intent {
	upper := strings.ToUpper(strings.TrimSpace(text))
	for _, intent := range intentPriority {
		if strings.Contains(upper, string(intent)) {
			return intent
		}
	}
	return IntentGeneral
}

// NeedsMacro returns true if the intent retrieves macro indicators.
func (i Intent) NeedsMacro() bool {
	return i == IntentMacro || i == IntentHybrid
}

// NeedsMicro returns true if the intent retrieves micro records.
func (i Intent) NeedsMicro() bool {
	return i == IntentMicro || i == IntentHybrid
}

// DashboardContext is the caller's current dashboard state.
type DashboardContext struct {
	Filters     map[string]any   `json:"filters,omitempty"`
	VisibleData []map[string]any `json:"visible_data,omitempty"`
}

// MaxVisibleRows is how many visible dashboard rows are injected into a prompt.
const MaxVisibleRows = 10

// QueryRequest is a user question plus the caller's context.
type QueryRequest struct {
	Text             string            `json:"text"`
	DashboardContext *DashboardContext `json:"dashboard_context,omitempty"`
	SimulationMode   bool              `json:"simulation_mode"`
	Industry         string            `json:"industry,omitempty"`
}

// DataContext mirrors the evidence retrieved for a query.
type DataContext struct {
	Macro MacroSummary   `json:"macro,omitempty"`
	Micro []ScoredRecord `json:"micro,omitempty"`
}

// IsEmpty returns true if nothing was retrieved.
func (c DataContext) IsEmpty() bool {
	return len(c.Macro) == 0 && len(c.Micro) == 0
}

// QueryResult is always well-formed, even when every collaborator failed.
type QueryResult struct {
	RequestID    string        `json:"request_id"`
	Intent       Intent        `json:"intent"`
	Response     string        `json:"response"`
	DataContext  DataContext   `json:"data_context"`
	Degradations []string      `json:"degradations,omitempty"`
	Took         time.Duration `json:"took"`
}
