package analytics

import (
	"slices"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/normalizer"
)

// KPIs are the scalar summary of a filtered collection.
type KPIs struct {
	TotalAmount      float64 `json:"totalAmount"`
	TotalQuantity    float64 `json:"totalQuantity"`
	DistinctEntities int     `json:"distinctEntities"`
	MonthSpan        int     `json:"monthSpan"`
	AvgAmount        float64 `json:"avgAmount"`
	AvgQuantity      float64 `json:"avgQuantity"`
	Trend            float64 `json:"trend"`
}

// ComputeKPIs summarizes records. available lists the dates of the whole
// collection in order and stands in for an open range bound.
func ComputeKPIs(records []dataset.Record, t dataset.Type, f FilterState, available []string) KPIs {
	var k KPIs
	distinct := make(map[string]struct{})
	for _, r := range records {
		k.TotalAmount += r.Total
		k.TotalQuantity += r.Quantity

		key := r.SKU
		if t == dataset.Suppliers {
			key = r.Supplier
		}
		if key != "" {
			distinct[key] = struct{}{}
		}
	}
	k.DistinctEntities = len(distinct)

	start, end := f.Bounds()
	if len(available) > 0 {
		if start == "" {
			start = available[0]
		}
		if end == "" {
			end = available[len(available)-1]
		}
	}
	k.MonthSpan = normalizer.MonthSpan(start, end)
	if k.MonthSpan > 0 {
		k.AvgAmount = k.TotalAmount / float64(k.MonthSpan)
		k.AvgQuantity = k.TotalQuantity / float64(k.MonthSpan)
	}

	k.Trend = Trend(records)
	return k
}

// Trend compares the latest month against the one before it, in percent.
// With fewer than two dated months the trend is 0. A previous total of
// exactly 0 yields 100, even when the latest month is 0 as well.
func Trend(records []dataset.Record) float64 {
	totals := make(map[int]float64)
	for _, r := range records {
		if r.Date == "" {
			continue
		}
		totals[normalizer.ComparableDate(r.Date)] += r.Total
	}
	if len(totals) < 2 {
		return 0
	}

	months := make([]int, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	slices.Sort(months)

	last := totals[months[len(months)-1]]
	prev := totals[months[len(months)-2]]
	if prev == 0 {
		return 100
	}
	return (last - prev) / prev * 100
}
