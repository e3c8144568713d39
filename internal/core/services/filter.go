package services

import "github.com/custodia-labs/marketlens/internal/core/domain"

// FilterRecords returns copies of the records matching every predicate in
// filters, in dataset order. An empty FilterSet returns every record.
func FilterRecords(ds *domain.Dataset, filters domain.FilterSet) []domain.Record {
	out := make([]domain.Record, 0, ds.Len())
	if ds == nil {
		return out
	}
	for _, r := range ds.Records {
		if filters.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}
