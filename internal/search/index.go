// Package search builds a TF-IDF index over a market Dataset and answers
// nearest-neighbour queries, falling back to keyword matching when the index
// cannot be built.
package search

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// Index is immutable once built and safe for concurrent queries.
type Index struct {
	records []domain.Record
	vec     *vectorizer
	vectors []vector
	err     error
}

// Build indexes every record of ds by its Text.
// A dataset whose texts yield no vocabulary produces an index in keyword mode.
func Build(ds *domain.Dataset) *Index {
	ix := &Index{}
	if ds == nil {
		ix.err = fmt.Errorf("no dataset: %w", domain.ErrIndexUnavailable)
		return ix
	}
	ix.records = ds.Records

	docs := make([][]string, len(ds.Records))
	for i, r := range ds.Records {
		docs[i] = tokenize(r.Text)
	}
	vec := fit(docs)
	if len(vec.vocab) == 0 {
		ix.err = fmt.Errorf("empty vocabulary: %w", domain.ErrIndexUnavailable)
		return ix
	}

	ix.vec = vec
	ix.vectors = make([]vector, len(docs))
	for i, doc := range docs {
		ix.vectors[i] = vec.transform(doc)
	}
	return ix
}

// Err returns domain.ErrIndexUnavailable (wrapped) when the index runs in keyword mode.
func (ix *Index) Err() error {
	return ix.err
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// VocabularySize returns the number of distinct indexed terms.
func (ix *Index) VocabularySize() int {
	if ix.vec == nil {
		return 0
	}
	return len(ix.vec.vocab)
}

// Query returns at most topK records scoring above domain.RelevanceThreshold,
// best first; ties keep dataset order. topK <= 0 means domain.DefaultTopK.
func (ix *Index) Query(text string, topK int) domain.SearchResult {
	start := time.Now()
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	result := domain.SearchResult{Query: text, Mode: domain.SearchModeVector}
	switch {
	case len(ix.records) == 0:
		result.Results = []domain.ScoredRecord{}
	case ix.err != nil:
		result.Mode, result.Results = ix.keyword(text, topK)
	default:
		result.Results = ix.vector(text, topK)
	}
	result.Took = time.Since(start)
	return result
}

func (ix *Index) vector(text string, topK int) []domain.ScoredRecord {
	q := ix.vec.transform(tokenize(text))
	hits := make([]domain.ScoredRecord, 0, topK)
	if q == nil {
		return hits
	}

	for i, v := range ix.vectors {
		if score := q.dot(v); score > domain.RelevanceThreshold {
			hits = append(hits, domain.ScoredRecord{Record: ix.records[i].Clone(), Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// minPrefixLen is the shortest query that may match the start of a district word.
const minPrefixLen = 3

// keyword matches districts named in the query, or whose words start with
// the query, then falls back to the busiest rows.
func (ix *Index) keyword(text string, topK int) (domain.SearchMode, []domain.ScoredRecord) {
	q := strings.ToLower(strings.TrimSpace(text))
	hits := make([]domain.ScoredRecord, 0, topK)
	if q != "" {
		for _, r := range ix.records {
			d := strings.ToLower(strings.TrimSpace(r.District))
			if d == "" {
				continue
			}
			if strings.Contains(q, d) || prefixOfWord(d, q) {
				hits = append(hits, domain.ScoredRecord{Record: r.Clone(), Score: 1})
				if len(hits) == topK {
					break
				}
			}
		}
	}
	if len(hits) > 0 {
		return domain.SearchModeKeyword, hits
	}

	order := make([]int, len(ix.records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ix.records[order[a]].FootTraffic > ix.records[order[b]].FootTraffic
	})
	for _, i := range order {
		if len(hits) == topK {
			break
		}
		hits = append(hits, domain.ScoredRecord{Record: ix.records[i].Clone()})
	}
	return domain.SearchModeSample, hits
}

func prefixOfWord(district, q string) bool {
	if len([]rune(q)) < minPrefixLen {
		return false
	}
	for _, w := range strings.Fields(district) {
		if strings.HasPrefix(w, q) {
			return true
		}
	}
	return false
}
