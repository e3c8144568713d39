package normalisers

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// ColumnRule maps source column names onto a canonical field.
type ColumnRule struct {
	// Name identifies the rule in reports and logs
	Name string

	// Target is the canonical field the column becomes
	Target string

	// Priority decides conflicts (higher = preferred). Rules are also
	// tried in this order, so the first match for a column is the best one.
	Priority int

	// Match receives the lower-cased, trimmed column name
	Match func(column string) bool
}

// Registry holds column rules with priority-based selection.
// When multiple rules match a column, the highest priority one is used.
type Registry struct {
	mu    sync.RWMutex
	rules []ColumnRule
}

// NewRegistry creates a new, empty rule registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make([]ColumnRule, 0),
	}
}

// Register registers a rule.
func (r *Registry) Register(rule ColumnRule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule)
	sort.SliceStable(r.rules, func(i, j int) bool {
		return r.rules[i].Priority > r.rules[j].Priority
	})
}

// Match returns the best rule for a column name, or false.
func (r *Registry) Match(column string) (ColumnRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(column))
	for _, rule := range r.rules {
		if rule.Match(key) {
			return rule, true
		}
	}
	return ColumnRule{}, false
}

// Resolve assigns canonical fields to columns. The result maps column index
// to canonical field. When two columns claim the same field, the one matched
// by the higher-priority rule wins; ties go to the earlier column. Losing
// columns are absent from the result and pass through unchanged.
func (r *Registry) Resolve(columns []string) map[int]string {
	type claim struct {
		index    int
		priority int
	}
	winners := make(map[string]claim)
	for i, col := range columns {
		rule, ok := r.Match(col)
		if !ok {
			continue
		}
		current, taken := winners[rule.Target]
		if !taken || rule.Priority > current.priority {
			winners[rule.Target] = claim{index: i, priority: rule.Priority}
		}
	}

	out := make(map[int]string, len(winners))
	for target, c := range winners {
		out[c.index] = target
	}
	return out
}

// List returns registered rule names, highest priority first.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name
	}
	return names
}

// DefaultRegistry creates a registry with the market column rules pre-registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(ColumnRule{
		Name:     "rent",
		Target:   domain.FieldAvgRent,
		Priority: 100,
		Match: func(c string) bool {
			return rentWord.MatchString(c) && (strings.Contains(c, "avg") || strings.Contains(c, "average"))
		},
	})
	r.Register(ColumnRule{
		Name:     "traffic",
		Target:   domain.FieldFootTraffic,
		Priority: 90,
		Match:    containsAny("traffic"),
	})
	r.Register(ColumnRule{
		Name:     "competitor",
		Target:   domain.FieldCompetitorDensity,
		Priority: 80,
		Match:    containsAny("competitor"),
	})
	r.Register(ColumnRule{
		Name:     "district",
		Target:   domain.FieldDistrict,
		Priority: 70,
		Match:    containsAny("district", "neighbourhood", "neighborhood"),
	})
	r.Register(ColumnRule{
		Name:     "source_id",
		Target:   domain.FieldSourceID,
		Priority: 60,
		Match:    containsAny("source_id", "source id"),
	})
	// Sale price stands in for rent only when no rent column exists
	r.Register(ColumnRule{
		Name:     "sale_price_proxy",
		Target:   domain.FieldAvgRent,
		Priority: 10,
		Match:    containsAny("shop_sale_price"),
	})

	return r
}

// rentWord matches "rent" as a word or glued to avg/average, never inside
// words like "current" or "parent".
var rentWord = regexp.MustCompile(`(^|[^a-z]|avg|average)rent`)

func containsAny(subs ...string) func(string) bool {
	return func(c string) bool {
		for _, s := range subs {
			if strings.Contains(c, s) {
				return true
			}
		}
		return false
	}
}
