package analytics

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/normalizer"
)

// View is everything the dashboard renders for one collection and filter.
type View struct {
	Records []dataset.Record `json:"records"`
	KPIs    KPIs             `json:"kpis"`
	Monthly []MonthPoint     `json:"monthly"`
	Top     []EntityTotal    `json:"top"`
}

// Filter applies period, entity and search filters, then sorts. The input
// slice is never modified.
func Filter(records []dataset.Record, t dataset.Type, f FilterState) []dataset.Record {
	out := make([]dataset.Record, 0, len(records))
	for _, r := range records {
		if f.inPeriod(r) && f.matchesEntity(r, t) && f.matchesSearch(r) {
			out = append(out, r)
		}
	}
	Sort(out, f.SortKey, f.SortDesc)
	return out
}

// Sort orders records in place by key. The sort is stable. Keys without a
// typed comparison order by the field's raw string value; a key naming no
// field compares "" to "" and leaves the order untouched.
func Sort(records []dataset.Record, key SortKey, desc bool) {
	cmpFn := comparator(key)
	slices.SortStableFunc(records, func(a, b dataset.Record) int {
		if desc {
			return cmpFn(b, a)
		}
		return cmpFn(a, b)
	})
}

func comparator(key SortKey) func(a, b dataset.Record) int {
	switch key {
	case SortByDate:
		return func(a, b dataset.Record) int {
			return cmp.Compare(normalizer.ComparableDate(a.Date), normalizer.ComparableDate(b.Date))
		}
	case SortByTotal:
		return func(a, b dataset.Record) int { return cmp.Compare(a.Total, b.Total) }
	case SortByQuantity:
		return func(a, b dataset.Record) int { return cmp.Compare(a.Quantity, b.Quantity) }
	case SortByDescription:
		return func(a, b dataset.Record) int { return strings.Compare(a.Description, b.Description) }
	case SortBySKU:
		return func(a, b dataset.Record) int { return strings.Compare(a.SKU, b.SKU) }
	case SortBySupplier:
		return func(a, b dataset.Record) int { return strings.Compare(a.Supplier, b.Supplier) }
	}
	return func(a, b dataset.Record) int { return strings.Compare(rawField(a, key), rawField(b, key)) }
}

// rawField reads a record field by its serialized name.
func rawField(r dataset.Record, key SortKey) string {
	switch strings.ToLower(string(key)) {
	case "id":
		return r.ID
	case "unit":
		return r.Unit
	case "date":
		return r.Date
	case "sku":
		return r.SKU
	case "description":
		return r.Description
	case "supplier":
		return r.Supplier
	case "quantity":
		return strconv.FormatFloat(r.Quantity, 'f', -1, 64)
	case "total":
		return strconv.FormatFloat(r.Total, 'f', -1, 64)
	}
	return ""
}

// Derive computes the full view. all is the unfiltered collection; it seeds
// the month span when the filter leaves the range open.
func Derive(all []dataset.Record, t dataset.Type, f FilterState, metric Metric) View {
	filtered := Filter(all, t, f)
	return View{
		Records: filtered,
		KPIs:    ComputeKPIs(filtered, t, f, AvailableDates(all)),
		Monthly: MonthlySeries(filtered, t, f),
		Top:     TopEntities(filtered, t, f, metric),
	}
}
