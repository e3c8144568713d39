package normalisers

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

func newFrame(columns []string, rows [][]string, origin domain.SourceOrigin) *Frame {
	raw := domain.NewRawTable(columns, rows)
	info := domain.SourceInfo{Name: "frame", Origin: origin}
	return &Frame{
		Columns: raw.Columns,
		Rows:    raw.Rows,
		Info:    info,
		Report:  domain.NewNormaliseReport(info),
		rng:     rand.New(rand.NewPCG(1, 2)),
	}
}

func TestHeaderStage_PromotesPlaceholderHeader(t *testing.T) {
	f := newFrame(
		[]string{"Unnamed: 0", "", "Column 3", "Notes"},
		[][]string{
			{"District", "Avg Rent", "Traffic", "Notes"},
			{"Maadi", "300", "1500", ""},
		},
		domain.OriginRemote,
	)

	require.NoError(t, (&HeaderStage{}).Apply(f))
	assert.True(t, f.Report.HeaderPromoted)
	assert.Equal(t, []string{"District", "Avg Rent", "Traffic", "Notes"}, f.Columns)
	assert.Len(t, f.Rows, 1)
}

func TestHeaderStage_KeepsRealHeader(t *testing.T) {
	f := newFrame([]string{"District", "Unnamed: 1", "Rent"}, [][]string{{"a", "b", "c"}}, domain.OriginLocal)

	require.NoError(t, (&HeaderStage{}).Apply(f))
	assert.False(t, f.Report.HeaderPromoted)
	assert.Equal(t, "District", f.Columns[0])
}

func TestHeaderStage_NoRowsLeft(t *testing.T) {
	f := newFrame([]string{"", "Unnamed: 1"}, [][]string{{"District", "Rent"}}, domain.OriginLocal)

	err := (&HeaderStage{}).Apply(f)
	assert.ErrorIs(t, err, domain.ErrSchemaMismatch)
}

func TestHeaderStage_KeepsYearColumns(t *testing.T) {
	f := newFrame(
		[]string{"District", "Avg_Rent_Sqm_EGP", "2024", "2025"},
		[][]string{
			{"Maadi", "350", "1.2", "1.4"},
			{"Zamalek", "500", "2.0", "2.1"},
		},
		domain.OriginLocal,
	)

	require.NoError(t, (&HeaderStage{Rules: DefaultRegistry()}).Apply(f))
	assert.False(t, f.Report.HeaderPromoted)
	assert.Equal(t, []string{"District", "Avg_Rent_Sqm_EGP", "2024", "2025"}, f.Columns)
	assert.Len(t, f.Rows, 2)
}

func TestHeaderStage_KnownColumnBlocksPromotion(t *testing.T) {
	f := newFrame(
		[]string{"District", "", "Unnamed: 2", "Column 4"},
		[][]string{{"Maadi", "a", "b", "c"}},
		domain.OriginLocal,
	)

	require.NoError(t, (&HeaderStage{Rules: DefaultRegistry()}).Apply(f))
	assert.False(t, f.Report.HeaderPromoted)
	assert.Equal(t, "District", f.Columns[0])
}

func TestPivotStage_LongTable(t *testing.T) {
	f := newFrame(
		[]string{"Year", "Sector", "District", "Indicator", "Value", "Source_ID"},
		[][]string{
			{"2024", "Real Estate", "Maadi", "Avg Rent (Sqm)", "300", "SRC_1"},
			{"2024", "Real Estate", "Maadi", "Foot Traffic Score", "1500", ""},
			{"2024", "Real Estate", "Zamalek", "Avg Rent (Sqm)", "800", ""},
			{"2024", "Real Estate", "Zamalek", "Avg Rent (Sqm)", "900", "SRC_2"},
			{"2024", "Real Estate", "Zamalek", "Grade", "A", ""},
			{"2024", "Real Estate", "Zamalek", "Grade", "B", ""},
			{"2024", "Real Estate", "", "Grade", "C", ""},
		},
		domain.OriginLocal,
	)

	require.NoError(t, (&PivotStage{Rules: DefaultRegistry()}).Apply(f))
	assert.True(t, f.Report.Pivoted)
	assert.Equal(t, []string{"District", "Avg Rent (Sqm)", "Foot Traffic Score", "Grade", "Source_ID"}, f.Columns)
	require.Len(t, f.Rows, 2)
	assert.Equal(t, []string{"Maadi", "300", "1500", "", "SRC_1"}, f.Rows[0])
	assert.Equal(t, []string{"Zamalek", "850", "", "A", "SRC_2"}, f.Rows[1])
}

func TestPivotStage_SkipsWideTable(t *testing.T) {
	f := newFrame([]string{"District", "Value"}, [][]string{{"a", "1"}}, domain.OriginLocal)

	require.NoError(t, (&PivotStage{}).Apply(f))
	assert.False(t, f.Report.Pivoted)
	assert.Equal(t, []string{"District", "Value"}, f.Columns)
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, "", aggregate(nil))
	assert.Equal(t, "2.5", aggregate([]string{"2", "3"}))
	assert.Equal(t, "1500", aggregate([]string{"1,000", "2,000"}))
	assert.Equal(t, "x", aggregate([]string{"x", "1"}))
	assert.Equal(t, "1", aggregate([]string{"1", "x"}))
}

func TestColumnStage_RecordsMapping(t *testing.T) {
	f := newFrame(
		[]string{"Average_Rent_Per_Sqm", "Competitor_Count_Level", "Area"},
		[][]string{{"1", "Low", "x"}},
		domain.OriginLocal,
	)

	require.NoError(t, (&ColumnStage{}).Apply(f))
	assert.Equal(t, []string{domain.FieldAvgRent, domain.FieldCompetitorDensity, "Area"}, f.Columns)
	assert.Equal(t, domain.FieldAvgRent, f.Report.ColumnMapping["Average_Rent_Per_Sqm"])
	assert.Equal(t, domain.FieldCompetitorDensity, f.Report.ColumnMapping["Competitor_Count_Level"])
	assert.NotContains(t, f.Report.ColumnMapping, "Area")
}

func TestSynthesizeStage_OnlyMissing(t *testing.T) {
	f := newFrame([]string{domain.FieldAvgRent}, [][]string{{"5"}, {"6"}}, domain.OriginLocal)

	require.NoError(t, (&SynthesizeStage{}).Apply(f))
	assert.Equal(t, []string{domain.FieldFootTraffic, domain.FieldCompetitorDensity}, f.Report.Synthesized)
	assert.Equal(t, "5", f.Rows[0][0])
	assert.Len(t, f.Columns, 3)
	for _, row := range f.Rows {
		require.Len(t, row, 3)
	}
}

func TestCoerceStage(t *testing.T) {
	f := newFrame(
		[]string{domain.FieldAvgRent, domain.FieldFootTraffic, domain.FieldCompetitorDensity},
		[][]string{
			{"1,200.5", "3500", "unknown"},
			{"-4", "NaN", "VeryHigh"},
			{"abc", "1500", ""},
			{"+Inf", "2500", "medium"},
		},
		domain.OriginLocal,
	)

	require.NoError(t, (&CoerceStage{}).Apply(f))
	assert.Equal(t, []string{"1200.5", "3500", "Very High"}, f.Rows[0])
	assert.Equal(t, []string{"0", "0", "Very High"}, f.Rows[1])
	assert.Equal(t, []string{"0", "1500", "Medium"}, f.Rows[2])
	assert.Equal(t, []string{"0", "2500", "Medium"}, f.Rows[3])
	// rent x3, traffic x1, density x2
	assert.Equal(t, 6, f.Report.CoercedCells)
}

func TestCoerceStage_MissingColumn(t *testing.T) {
	f := newFrame([]string{"District"}, [][]string{{"a"}}, domain.OriginLocal)
	assert.ErrorIs(t, (&CoerceStage{}).Apply(f), domain.ErrSchemaMismatch)
}

func TestIdentityStage(t *testing.T) {
	t.Run("keeps unique ids", func(t *testing.T) {
		f := newFrame([]string{"Source_ID"}, [][]string{{"A"}, {"B"}}, domain.OriginRemote)
		require.NoError(t, (&IdentityStage{}).Apply(f))
		assert.False(t, f.Report.GeneratedIDs)
		assert.Equal(t, "A", f.Rows[0][0])
	})

	t.Run("replaces duplicate ids", func(t *testing.T) {
		f := newFrame([]string{"Source_ID"}, [][]string{{"A"}, {"A"}}, domain.OriginRemote)
		require.NoError(t, (&IdentityStage{}).Apply(f))
		assert.True(t, f.Report.GeneratedIDs)
		assert.Equal(t, "FS_CAI_001", f.Rows[0][0])
		assert.Equal(t, "FS_CAI_002", f.Rows[1][0])
	})

	t.Run("replaces blank ids", func(t *testing.T) {
		f := newFrame([]string{"Source_ID"}, [][]string{{"A"}, {""}}, domain.OriginFallback)
		require.NoError(t, (&IdentityStage{}).Apply(f))
		assert.Equal(t, "MOCK_002", f.Rows[1][0])
	})

	t.Run("adds column", func(t *testing.T) {
		f := newFrame([]string{"District"}, [][]string{{"x"}}, domain.OriginLocal)
		require.NoError(t, (&IdentityStage{}).Apply(f))
		assert.Equal(t, []string{"District", "Source_ID"}, f.Columns)
		assert.Equal(t, "FS_LOC_001", f.Rows[0][1])
	})
}

func TestTextStage(t *testing.T) {
	f := newFrame(
		[]string{domain.FieldDistrict, domain.FieldAvgRent, domain.FieldFootTraffic, domain.FieldCompetitorDensity, "Note"},
		[][]string{
			{"Maadi", "300", "1500", "Low", "quiet"},
			{"", "100", "50", "High", "edge"},
		},
		domain.OriginLocal,
	)

	require.NoError(t, (&TextStage{}).Apply(f))
	assert.Equal(t, "Maadi Maadi rent price 300 traffic 1500 competitors Low", f.Texts[0])
	assert.Equal(t, "100 50 High edge", f.Texts[1])
}

func TestParseFloat(t *testing.T) {
	v, ok := parseFloat(" 1,234.5 ")
	assert.True(t, ok)
	assert.Equal(t, 1234.5, v)

	for _, s := range []string{"", "abc", "NaN", "inf", "-Inf"} {
		_, ok := parseFloat(s)
		assert.False(t, ok, s)
	}
	assert.Equal(t, 0.0, parseNumber("-1"))
}
