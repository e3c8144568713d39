package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Canonical column names used in record-oriented payloads and prompts.
const (
	FieldDistrict          = "District"
	FieldAvgRent           = "Avg_Rent_Sqm_EGP"
	FieldFootTraffic       = "Foot_Traffic_Score"
	FieldCompetitorDensity = "Competitor_Density"
	FieldSourceID          = "Source_ID"
)

// RequiredFields are the canonical fields every Record must expose.
var RequiredFields = []string{FieldAvgRent, FieldFootTraffic, FieldCompetitorDensity}

// IsCanonicalField reports whether name is one of the canonical column names.
func IsCanonicalField(name string) bool {
	switch name {
	case FieldDistrict, FieldAvgRent, FieldFootTraffic, FieldCompetitorDensity, FieldSourceID:
		return true
	}
	return false
}

// Density is the competitor density category.
type Density string

const (
	DensityLow      Density = "Low"
	DensityMedium   Density = "Medium"
	DensityHigh     Density = "High"
	DensityVeryHigh Density = "Very High"
)

// AllDensities lists every category in ascending order.
var AllDensities = []Density{DensityLow, DensityMedium, DensityHigh, DensityVeryHigh}

// ParseDensity parses a density label leniently ("very high", "VeryHigh", "very_high").
func ParseDensity(s string) (Density, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	switch key {
	case "low":
		return DensityLow, true
	case "medium", "med":
		return DensityMedium, true
	case "high":
		return DensityHigh, true
	case "veryhigh":
		return DensityVeryHigh, true
	}
	return "", false
}

// DensityFromTraffic derives a density category from a foot traffic score.
// Higher traffic implies more competition.
func DensityFromTraffic(traffic float64) Density {
	switch {
	case traffic > 3000:
		return DensityVeryHigh
	case traffic > 2000:
		return DensityHigh
	case traffic > 1000:
		return DensityMedium
	default:
		return DensityLow
	}
}

// Record is one normalized row of the micro dataset.
type Record struct {
	SourceID          string
	District          string
	AvgRent           float64
	FootTraffic       float64
	CompetitorDensity Density

	// Extra holds passthrough columns that matched no canonical field
	Extra map[string]string

	// Text is the representation used for indexing
	Text string
}

// SourceTag returns the citation tag for the record.
func (r Record) SourceTag() string {
	if r.SourceID == "" {
		return "[Source: System]"
	}
	return "[Source: " + r.SourceID + "]"
}

// Clone returns a copy that shares no mutable state with r.
func (r Record) Clone() Record {
	c := r
	if r.Extra != nil {
		c.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Map returns the record as a record-oriented map.
// Missing or non-finite values become nil so they serialize as null.
func (r Record) Map() map[string]any {
	m := make(map[string]any, 5+len(r.Extra))
	m[FieldDistrict] = nullableString(r.District)
	m[FieldAvgRent] = nullableFloat(r.AvgRent)
	m[FieldFootTraffic] = nullableFloat(r.FootTraffic)
	m[FieldCompetitorDensity] = nullableString(string(r.CompetitorDensity))
	m[FieldSourceID] = nullableString(r.SourceID)
	for k, v := range r.Extra {
		m[k] = passthroughValue(v)
	}
	return m
}

// MarshalJSON serializes the record as a flat object keyed by column name.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// String renders the record on one line, ending with its source tag.
func (r Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s; %s=%s; %s=%s; %s=%s",
		FieldDistrict, r.District,
		FieldAvgRent, FormatNumber(r.AvgRent),
		FieldFootTraffic, FormatNumber(r.FootTraffic),
		FieldCompetitorDensity, r.CompetitorDensity,
	)
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := r.Extra[k]; v != "" {
			fmt.Fprintf(&b, "; %s=%s", k, v)
		}
	}
	b.WriteString(" ")
	b.WriteString(r.SourceTag())
	return b.String()
}

// FormatNumber renders a float without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func passthroughValue(v string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return nullableFloat(f)
	}
	switch strings.ToLower(v) {
	case "nan", "none", "null", "n/a":
		return nil
	}
	return v
}

// Dataset is an immutable, ordered set of Records sharing one schema.
// It is rebuilt, never mutated in place.
type Dataset struct {
	Records []Record

	// ExtraColumns lists passthrough columns in source order
	ExtraColumns []string

	Source      string
	Origin      SourceOrigin
	Synthesized []string // Required fields filled with synthetic values
	BuiltAt     time.Time
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// HasColumn reports whether the dataset exposes a column with real data.
// Canonical fields count only when they were not synthesized.
func (d *Dataset) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	if IsCanonicalField(name) {
		for _, s := range d.Synthesized {
			if s == name {
				return false
			}
		}
		return len(d.Records) > 0
	}
	for _, c := range d.ExtraColumns {
		if c == name {
			return true
		}
	}
	return false
}
