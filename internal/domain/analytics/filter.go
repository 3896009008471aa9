// Package analytics derives the dashboard views (filtered records, KPIs,
// monthly series, rankings and the sales/suppliers cross summary) from a
// collection of normalized records. Everything here is pure.
package analytics

import (
	"fmt"
	"slices"
	"strings"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/normalizer"
)

// SortKey names a record field the result list can be ordered by.
type SortKey string

const (
	SortByDate        SortKey = "date"
	SortByTotal       SortKey = "total"
	SortByQuantity    SortKey = "quantity"
	SortByDescription SortKey = "description"
	SortBySKU         SortKey = "sku"
	SortBySupplier    SortKey = "supplier"
)

// Metric selects the ranking value of the top-N breakdown.
type Metric string

const (
	MetricTotal    Metric = "total"
	MetricQuantity Metric = "quantity"
)

// ParseMetric defaults to MetricTotal on empty input.
func ParseMetric(raw string) (Metric, error) {
	switch m := Metric(strings.ToLower(raw)); m {
	case "":
		return MetricTotal, nil
	case MetricTotal, MetricQuantity:
		return m, nil
	}
	return "", fmt.Errorf("unknown metric %q", raw)
}

// FilterState is the full set of user-controlled view parameters.
//
// The description multi-select and the SKU filter are mutually exclusive
// facets, so they are only reachable through SetDescriptions and SetSKU.
type FilterState struct {
	Start      string // inclusive lower bound, empty for open
	End        string // inclusive upper bound, empty for open
	DrillMonth string // overrides Start and End when set
	Search     string
	SortKey    SortKey
	SortDesc   bool

	descriptions []string
	sku          string
}

// NewFilterState returns the default view: everything, newest first.
func NewFilterState() FilterState {
	return FilterState{SortKey: SortByDate, SortDesc: true}
}

// SetDescriptions selects entities by name and clears the SKU filter.
func (f *FilterState) SetDescriptions(names []string) {
	f.descriptions = slices.Clone(names)
	if len(names) > 0 {
		f.sku = ""
	}
}

// SetSKU filters by product code and clears the description selection.
func (f *FilterState) SetSKU(sku string) {
	f.sku = strings.TrimSpace(sku)
	if f.sku != "" {
		f.descriptions = nil
	}
}

func (f FilterState) Descriptions() []string { return slices.Clone(f.descriptions) }
func (f FilterState) SKU() string            { return f.sku }

// HasSelection reports whether an explicit entity multi-select is active.
func (f FilterState) HasSelection() bool { return len(f.descriptions) > 0 }

// ToggleSort switches to key ascending, or flips to descending when key is
// already the ascending sort.
func (f *FilterState) ToggleSort(key SortKey) {
	if f.SortKey == key && !f.SortDesc {
		f.SortDesc = true
		return
	}
	f.SortKey = key
	f.SortDesc = false
}

// Bounds returns the effective inclusive month range. A drill-down month is
// both bounds.
func (f FilterState) Bounds() (start, end string) {
	if f.DrillMonth != "" {
		return f.DrillMonth, f.DrillMonth
	}
	return f.Start, f.End
}

// inPeriod applies the drill-down month or the date range.
func (f FilterState) inPeriod(r dataset.Record) bool {
	if f.DrillMonth != "" {
		return sameMonth(r.Date, f.DrillMonth)
	}

	if f.Start == "" && f.End == "" {
		return true
	}
	c := normalizer.ComparableDate(r.Date)
	if f.Start != "" && c < normalizer.ComparableDate(f.Start) {
		return false
	}
	if f.End != "" && c > normalizer.ComparableDate(f.End) {
		return false
	}
	return true
}

func (f FilterState) matchesEntity(r dataset.Record, t dataset.Type) bool {
	if len(f.descriptions) > 0 && !slices.Contains(f.descriptions, r.EntityName(t)) {
		return false
	}
	if f.sku != "" && r.SKU != f.sku {
		return false
	}
	return true
}

func (f FilterState) matchesSearch(r dataset.Record) bool {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Description), q) ||
		strings.Contains(strings.ToLower(r.SKU), q) ||
		strings.Contains(strings.ToLower(r.Supplier), q)
}

func sameMonth(a, b string) bool {
	if a == b {
		return true
	}
	ca := normalizer.ComparableDate(a)
	return ca != 0 && ca == normalizer.ComparableDate(b)
}
