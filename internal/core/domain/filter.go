package domain

// FilterSet is a conjunction of optional predicates over a Dataset.
// Nil or empty fields impose no constraint.
type FilterSet struct {
	Districts         []string  `json:"districts,omitempty"`
	MinRent           *float64  `json:"min_rent,omitempty"`
	MaxRent           *float64  `json:"max_rent,omitempty"`
	MinTraffic        *float64  `json:"min_traffic,omitempty"`
	MaxTraffic        *float64  `json:"max_traffic,omitempty"`
	CompetitorDensity []Density `json:"competitor_density,omitempty"`
}

// IsEmpty returns true if no predicate is set.
func (f FilterSet) IsEmpty() bool {
	return len(f.Districts) == 0 &&
		f.MinRent == nil && f.MaxRent == nil &&
		f.MinTraffic == nil && f.MaxTraffic == nil &&
		len(f.CompetitorDensity) == 0
}

// Matches reports whether the record satisfies every set predicate.
func (f FilterSet) Matches(r Record) bool {
	if len(f.Districts) > 0 && !containsString(f.Districts, r.District) {
		return false
	}
	if f.MinRent != nil && r.AvgRent < *f.MinRent {
		return false
	}
	if f.MaxRent != nil && r.AvgRent > *f.MaxRent {
		return false
	}
	if f.MinTraffic != nil && r.FootTraffic < *f.MinTraffic {
		return false
	}
	if f.MaxTraffic != nil && r.FootTraffic > *f.MaxTraffic {
		return false
	}
	if len(f.CompetitorDensity) > 0 {
		found := false
		for _, d := range f.CompetitorDensity {
			if d == r.CompetitorDensity {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
