package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

type fakeQuery struct {
	lastReq     domain.QueryRequest
	lastFilters map[string]any
	lastSummary string
}

func (f *fakeQuery) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	f.lastReq = req
	return &domain.QueryResult{
		RequestID:    "req-1",
		Intent:       domain.IntentMicro,
		Response:     "Maadi looks promising [Source: FS_LOC_001]",
		Degradations: []string{"classify: timeout"},
	}, nil
}

func (f *fakeQuery) ProactiveInsight(_ context.Context, filters map[string]any, summary string) string {
	f.lastFilters, f.lastSummary = filters, summary
	return "💡 Rents in Maadi are rising."
}

type fakeMarket struct {
	lastFilters domain.FilterSet
	reloadErr   error
}

func testRecords() []domain.Record {
	return []domain.Record{
		{SourceID: "FS_LOC_001", District: "Maadi", AvgRent: 450, FootTraffic: 1200, CompetitorDensity: domain.DensityMedium},
		{SourceID: "FS_LOC_002", District: "Zamalek", AvgRent: 900, FootTraffic: 3100, CompetitorDensity: domain.DensityVeryHigh},
	}
}

func (f *fakeMarket) Filter(_ context.Context, filters domain.FilterSet) ([]domain.Record, error) {
	f.lastFilters = filters
	var out []domain.Record
	for _, r := range testRecords() {
		if filters.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeMarket) Search(_ context.Context, query string, topK int) (*domain.SearchResult, error) {
	return &domain.SearchResult{
		Query:   query,
		Mode:    domain.SearchModeVector,
		Results: []domain.ScoredRecord{{Record: testRecords()[0], Score: 0.61}},
	}, nil
}

func (f *fakeMarket) Districts(context.Context) ([]string, error) {
	return []string{"Maadi", "Zamalek"}, nil
}

func (f *fakeMarket) Hierarchy(context.Context) ([]domain.HierarchyNode, error) {
	return []domain.HierarchyNode{domain.MacroSectorNode()}, nil
}

func (f *fakeMarket) Reload(context.Context) (*domain.NormaliseReport, error) {
	if f.reloadErr != nil {
		return nil, f.reloadErr
	}
	r := domain.NewNormaliseReport(domain.SourceInfo{Name: "builtin", Origin: domain.OriginFallback})
	r.Rows = 6
	r.Synthesized = []string{domain.FieldVacancyRate}
	return r, nil
}

type fakeMacro struct{ refreshed int }

func (f *fakeMacro) Summary(context.Context) domain.MacroSummary {
	return domain.MacroSummary{"inflation": {LatestValue: 33.88, LatestYear: 2023}}
}

func (f *fakeMacro) SectorSeries(context.Context) []domain.SectorSeries {
	return []domain.SectorSeries{{
		Name:  "agriculture_gdp",
		Label: domain.SectorLabel("agriculture_gdp"),
		Data:  domain.IndicatorSeries{{Year: 2022, Value: 11.2}, {Year: 2023, Value: 11.5}},
	}}
}

func (f *fakeMacro) Refresh(ctx context.Context) (domain.MacroSummary, error) {
	f.refreshed++
	return f.Summary(ctx), nil
}

type fakeRunner struct {
	mu             sync.Mutex
	started, stops int
}

func (f *fakeRunner) Start(context.Context) { f.mu.Lock(); f.started++; f.mu.Unlock() }
func (f *fakeRunner) Stop()                 { f.mu.Lock(); f.stops++; f.mu.Unlock() }

type fixture struct {
	query  *fakeQuery
	market *fakeMarket
	macro  *fakeMacro
	runner *fakeRunner
}

// setupTestServices installs fakes and resets flag state between tests.
func setupTestServices(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{query: &fakeQuery{}, market: &fakeMarket{}, macro: &fakeMacro{}, runner: &fakeRunner{}}
	SetServices(&Services{Query: f.query, Market: f.market, Macro: f.macro, Refresher: f.runner})
	t.Cleanup(func() {
		SetServices(nil)
		SetBootstrap(nil)
		queryIndustry, querySimulate, queryFilters, queryVisible, queryJSON = "", false, "", "", false
		dataDistricts, dataDensities, dataJSON = nil, nil, false
		refreshMacro, refreshData, macroJSON, exploreJSON = false, false, false, false
		insightFilters, insightSummary = "", ""
		searchLimit, searchJSON = 3, false
		opts = Options{}
		for _, c := range rootCmd.Commands() {
			c.Flags().Visit(func(fl *pflag.Flag) { fl.Changed = false })
		}
	})
	return f
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestQueryCmd(t *testing.T) {
	f := setupTestServices(t)

	out, err := run(t, "query", "--industry", "Retail", "--simulate",
		"--filters", `{"district":"Maadi"}`, "--visible", `[{"District":"Maadi"}]`,
		"where", "to", "open?")
	require.NoError(t, err)

	assert.Equal(t, "where to open?", f.query.lastReq.Text)
	assert.Equal(t, "Retail", f.query.lastReq.Industry)
	assert.True(t, f.query.lastReq.SimulationMode)
	require.NotNil(t, f.query.lastReq.DashboardContext)
	assert.Equal(t, "Maadi", f.query.lastReq.DashboardContext.Filters["district"])
	assert.Len(t, f.query.lastReq.DashboardContext.VisibleData, 1)

	assert.Contains(t, out, "[Source: FS_LOC_001]")
	assert.Contains(t, out, "intent: MICRO")
	assert.Contains(t, out, "degraded: classify: timeout")
}

func TestQueryCmd_BadFilters(t *testing.T) {
	setupTestServices(t)
	_, err := run(t, "query", "--filters", "{not json", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--filters")
}

func TestQueryCmd_RequiresArg(t *testing.T) {
	setupTestServices(t)
	_, err := run(t, "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestDataCmd_Filters(t *testing.T) {
	f := setupTestServices(t)

	out, err := run(t, "data", "--min-rent", "500", "--density", "very high")
	require.NoError(t, err)

	require.NotNil(t, f.market.lastFilters.MinRent)
	assert.Equal(t, 500.0, *f.market.lastFilters.MinRent)
	assert.Nil(t, f.market.lastFilters.MaxRent)
	assert.Equal(t, []domain.Density{domain.DensityVeryHigh}, f.market.lastFilters.CompetitorDensity)
	assert.Contains(t, out, "Zamalek")
	assert.NotContains(t, out, "Maadi")
}

func TestDataCmd_InvalidDensity(t *testing.T) {
	setupTestServices(t)
	_, err := run(t, "data", "--density", "crowded")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDataCmd_JSONEmpty(t *testing.T) {
	setupTestServices(t)
	out, err := run(t, "data", "--district", "Dokki", "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestSearchCmd(t *testing.T) {
	setupTestServices(t)
	out, err := run(t, "search", "cheap", "rent")
	require.NoError(t, err)
	assert.Contains(t, out, "Results (vector)")
	assert.Contains(t, out, "(0.61)")
}

func TestMacroAndSectorsCmd(t *testing.T) {
	setupTestServices(t)

	out, err := run(t, "macro")
	require.NoError(t, err)
	assert.Contains(t, out, "inflation")
	assert.Contains(t, out, "33.88")

	out, err = run(t, "sectors")
	require.NoError(t, err)
	assert.Contains(t, out, "Agriculture (% GDP): 2022=11.20 2023=11.50")
}

func TestInsightCmd(t *testing.T) {
	f := setupTestServices(t)
	out, err := run(t, "insight", "--filters", `{"indicator":"Avg_Rent_Sqm_EGP"}`, "--summary", "Maadi 450")
	require.NoError(t, err)
	assert.Contains(t, out, "💡")
	assert.Equal(t, "Maadi 450", f.query.lastSummary)
	assert.Equal(t, "Avg_Rent_Sqm_EGP", f.query.lastFilters["indicator"])
}

func TestDistrictsAndHierarchyCmd(t *testing.T) {
	setupTestServices(t)

	out, err := run(t, "districts")
	require.NoError(t, err)
	assert.Equal(t, "Maadi\nZamalek", strings.TrimSpace(out))

	out, err = run(t, "hierarchy")
	require.NoError(t, err)
	assert.Contains(t, out, "Macroeconomic Sectors")
	assert.Contains(t, out, "agriculture_gdp")
}

func TestRefreshCmd(t *testing.T) {
	f := setupTestServices(t)

	out, err := run(t, "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "dataset: 6 rows from builtin")
	assert.Contains(t, out, "synthesized: [Vacancy_Rate]")
	assert.Contains(t, out, "macro: 1 indicators")
	assert.Equal(t, 1, f.macro.refreshed)
}

func TestRefreshCmd_MacroOnly(t *testing.T) {
	f := setupTestServices(t)
	f.market.reloadErr = errors.New("should not be called")

	_, err := run(t, "refresh", "--macro")
	require.NoError(t, err)
	assert.Equal(t, 1, f.macro.refreshed)
}

func TestWorkerCmd(t *testing.T) {
	f := setupTestServices(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"worker"})
	defer rootCmd.SetArgs(nil)
	require.NoError(t, rootCmd.ExecuteContext(ctx))

	assert.Equal(t, 1, f.runner.started)
	assert.Equal(t, 1, f.runner.stops)
}

func TestBootstrap(t *testing.T) {
	setupTestServices(t)
	SetServices(nil)

	var got Options
	cleaned := false
	SetBootstrap(func(_ context.Context, o Options) (*Services, func(), error) {
		got = o
		return &Services{Market: &fakeMarket{}}, func() { cleaned = true }, nil
	})

	out, err := run(t, "--verbose", "districts")
	require.NoError(t, err)
	assert.Contains(t, out, "Maadi")
	assert.True(t, got.Verbose)
	assert.True(t, cleaned)
}

func TestBootstrap_Error(t *testing.T) {
	setupTestServices(t)
	SetServices(nil)
	SetBootstrap(func(context.Context, Options) (*Services, func(), error) {
		return nil, nil, domain.ErrConfigurationFatal
	})

	_, err := run(t, "districts")
	assert.ErrorIs(t, err, domain.ErrConfigurationFatal)
}

func TestNotConfigured(t *testing.T) {
	setupTestServices(t)
	SetServices(&Services{})

	_, err := run(t, "macro")
	assert.ErrorIs(t, err, errNotConfigured)
}
