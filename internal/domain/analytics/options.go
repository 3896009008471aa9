package analytics

import (
	"cmp"
	"slices"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/normalizer"
)

// Options are the distinct values a filter can choose from.
type Options struct {
	Descriptions []string `json:"descriptions"`
	SKUs         []string `json:"skus"`
	Suppliers    []string `json:"suppliers"`
	Dates        []string `json:"dates"`
}

func FilterOptions(records []dataset.Record) Options {
	return Options{
		Descriptions: distinctSorted(records, func(r dataset.Record) string { return r.Description }),
		SKUs:         distinctSorted(records, func(r dataset.Record) string { return r.SKU }),
		Suppliers:    distinctSorted(records, func(r dataset.Record) string { return r.Supplier }),
		Dates:        AvailableDates(records),
	}
}

// AvailableDates lists distinct non-empty month tokens in calendar order.
func AvailableDates(records []dataset.Record) []string {
	dates := distinctSorted(records, func(r dataset.Record) string { return r.Date })
	slices.SortStableFunc(dates, func(a, b string) int {
		return cmp.Compare(normalizer.ComparableDate(a), normalizer.ComparableDate(b))
	})
	return dates
}

// ResetFilters returns the default state spanning every available month.
func ResetFilters(opts Options) FilterState {
	f := NewFilterState()
	if len(opts.Dates) > 0 {
		f.Start = opts.Dates[0]
		f.End = opts.Dates[len(opts.Dates)-1]
	}
	return f
}

func distinctSorted(records []dataset.Record, field func(dataset.Record) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		v := field(r)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
