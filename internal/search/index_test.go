package search

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

func rec(id, district string, traffic float64, text string) domain.Record {
	return domain.Record{SourceID: id, District: district, FootTraffic: traffic, Text: text}
}

func testDataset() *domain.Dataset {
	return &domain.Dataset{Records: []domain.Record{
		rec("A", "Maadi", 1500, "Maadi Maadi rent price 300 traffic 1500 competitors Low"),
		rec("B", "Zamalek", 2500, "Zamalek Zamalek rent price 850 traffic 2500 competitors High"),
		rec("C", "Dokki", 900, "Dokki Dokki rent price 420 traffic 900 competitors Medium"),
		rec("D", "New Cairo", 3100, "New Cairo New Cairo rent price 700 traffic 3100 competitors High"),
	}}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"maadi", "rent", "300"}, tokenize("The Maadi rent, a 300 x"))
	assert.Empty(t, tokenize("a I of"))
}

func TestBuild_Vector(t *testing.T) {
	ix := Build(testDataset())
	require.NoError(t, ix.Err())
	assert.Equal(t, 4, ix.Len())
	assert.Greater(t, ix.VocabularySize(), 0)

	res := ix.Query("shops in Zamalek", 3)
	assert.Equal(t, domain.SearchModeVector, res.Mode)
	require.NotEmpty(t, res.Results)
	assert.Equal(t, "B", res.Results[0].Record.SourceID)
	for _, hit := range res.Results {
		assert.Greater(t, hit.Score, domain.RelevanceThreshold)
	}
}

func TestQuery_TopKBound(t *testing.T) {
	ix := Build(testDataset())

	res := ix.Query("rent price traffic competitors", 2)
	assert.LessOrEqual(t, len(res.Results), 2)

	res = ix.Query("rent price traffic competitors", 0)
	assert.LessOrEqual(t, len(res.Results), domain.DefaultTopK)
}

func TestQuery_NothingAboveThreshold(t *testing.T) {
	ix := Build(testDataset())

	res := ix.Query("quantum chromodynamics", 3)
	assert.Equal(t, domain.SearchModeVector, res.Mode)
	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)
}

func TestQuery_Deterministic(t *testing.T) {
	a := Build(testDataset()).Query("high competitors rent", 3)
	b := Build(testDataset()).Query("high competitors rent", 3)

	require.Equal(t, len(a.Results), len(b.Results))
	for i := range a.Results {
		assert.Equal(t, a.Results[i].Record.SourceID, b.Results[i].Record.SourceID)
		assert.InDelta(t, a.Results[i].Score, b.Results[i].Score, 1e-12)
	}
}

func TestQuery_StableTies(t *testing.T) {
	ds := &domain.Dataset{Records: []domain.Record{
		rec("X1", "", 0, "cafe corner"),
		rec("X2", "", 0, "cafe corner"),
		rec("X3", "", 0, "cafe corner"),
	}}

	res := Build(ds).Query("cafe", 2)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "X1", res.Results[0].Record.SourceID)
	assert.Equal(t, "X2", res.Results[1].Record.SourceID)
}

func TestQuery_ReturnsCopies(t *testing.T) {
	ds := testDataset()
	ds.Records[1].Extra = map[string]string{"k": "v"}

	res := Build(ds).Query("Zamalek", 1)
	require.Len(t, res.Results, 1)
	res.Results[0].Record.Extra["k"] = "changed"
	assert.Equal(t, "v", ds.Records[1].Extra["k"])
}

func TestQuery_EmptyDataset(t *testing.T) {
	res := Build(&domain.Dataset{}).Query("anything", 3)
	assert.Empty(t, res.Results)

	ix := Build(nil)
	assert.True(t, errors.Is(ix.Err(), domain.ErrIndexUnavailable))
	assert.Empty(t, ix.Query("x", 3).Results)
}

func TestQuery_KeywordFallback(t *testing.T) {
	ds := &domain.Dataset{Records: []domain.Record{
		rec("A", "Maadi", 1500, "a"),
		rec("B", "Zamalek", 2500, "b"),
		rec("C", "Dokki", 900, ""),
	}}
	ix := Build(ds)
	require.ErrorIs(t, ix.Err(), domain.ErrIndexUnavailable)

	res := ix.Query("rent in zamalek", 3)
	assert.Equal(t, domain.SearchModeKeyword, res.Mode)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "B", res.Results[0].Record.SourceID)

	// query starts a district word
	res = ix.Query("dok", 3)
	assert.Equal(t, domain.SearchModeKeyword, res.Mode)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "C", res.Results[0].Record.SourceID)
}

func TestQuery_KeywordFallback_ShortOrInnerFragments(t *testing.T) {
	ds := &domain.Dataset{Records: []domain.Record{
		rec("A", "Maadi", 1500, ""),
		rec("B", "Zamalek", 2500, ""),
		rec("C", "New Cairo", 900, ""),
	}}
	ix := Build(ds)

	// too short to match inside names
	res := ix.Query("ma", 3)
	assert.Equal(t, domain.SearchModeSample, res.Mode)

	// inner fragment of Zamalek
	res = ix.Query("male", 3)
	assert.Equal(t, domain.SearchModeSample, res.Mode)

	res = ix.Query("cair", 3)
	assert.Equal(t, domain.SearchModeKeyword, res.Mode)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "C", res.Results[0].Record.SourceID)
}

func TestQuery_SampleFallback(t *testing.T) {
	ds := &domain.Dataset{Records: []domain.Record{
		rec("A", "Maadi", 1500, ""),
		rec("B", "Zamalek", 2500, ""),
		rec("C", "Dokki", 2500, ""),
		rec("D", "Giza", 100, ""),
	}}

	res := Build(ds).Query("somewhere else", 3)
	assert.Equal(t, domain.SearchModeSample, res.Mode)
	assert.True(t, res.Mode.Degraded())
	require.Len(t, res.Results, 3)
	assert.Equal(t, "B", res.Results[0].Record.SourceID)
	assert.Equal(t, "C", res.Results[1].Record.SourceID)
	assert.Equal(t, "A", res.Results[2].Record.SourceID)
	assert.Zero(t, res.Results[0].Score)
}
