package domain

import (
	"encoding/json"
	"time"
)

// SearchMode reports which strategy answered a search
type SearchMode string

const (
	SearchModeVector  SearchMode = "vector"  // TF-IDF cosine similarity
	SearchModeKeyword SearchMode = "keyword" // District name match (index unavailable)
	SearchModeSample  SearchMode = "sample"  // Top rows by traffic (no keyword match)
)

// Degraded returns true if the search did not use the vector index.
func (m SearchMode) Degraded() bool {
	return m != SearchModeVector
}

// DefaultTopK is the number of micro records retrieved per query.
const DefaultTopK = 3

// RelevanceThreshold is the minimum cosine score a vector hit must exceed.
const RelevanceThreshold = 0.1

// ScoredRecord represents a search hit with its relevance score
type ScoredRecord struct {
	Record Record  `json:"record"`
	Score  float64 `json:"relevance_score"`
}

// MarshalJSON flattens the record and appends relevance_score.
func (s ScoredRecord) MarshalJSON() ([]byte, error) {
	m := s.Record.Map()
	m["relevance_score"] = nullableFloat(s.Score)
	return json.Marshal(m)
}

// SearchResult represents the result of a search query
type SearchResult struct {
	Query   string         `json:"query"`
	Mode    SearchMode     `json:"mode"`
	Results []ScoredRecord `json:"results"`
	Took    time.Duration  `json:"took"`
}
