package analytics

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/normalizer"
)

// CrossRow is income against expense for one month.
type CrossRow struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Profit  float64 `json:"profit"`
	Margin  float64 `json:"margin"`
}

// CrossSummary merges sales (income) and suppliers (expense) per month.
type CrossSummary struct {
	Rows   []CrossRow `json:"rows"`
	Totals CrossRow   `json:"totals"`
}

// Cross builds the merged monthly summary. Only the period part of f applies;
// a month present on one side only gets 0 for the other.
func Cross(sales, suppliers []dataset.Record, f FilterState) CrossSummary {
	index := make(map[string]int)
	var rows []CrossRow

	add := func(r dataset.Record, income bool) {
		if !f.inPeriod(r) {
			return
		}
		i, ok := index[r.Date]
		if !ok {
			i = len(rows)
			index[r.Date] = i
			rows = append(rows, CrossRow{Month: r.Date})
		}
		if income {
			rows[i].Income += r.Total
		} else {
			rows[i].Expense += r.Total
		}
	}
	for _, r := range sales {
		add(r, true)
	}
	for _, r := range suppliers {
		add(r, false)
	}

	slices.SortStableFunc(rows, func(a, b CrossRow) int {
		return cmp.Compare(normalizer.ComparableDate(a.Month), normalizer.ComparableDate(b.Month))
	})

	var totals CrossRow
	for i := range rows {
		rows[i].finish()
		totals.Income += rows[i].Income
		totals.Expense += rows[i].Expense
	}
	totals.finish()

	return CrossSummary{Rows: rows, Totals: totals}
}

func (c *CrossRow) finish() {
	c.Profit = c.Income - c.Expense
	c.Margin = margin(c.Profit, c.Income)
}

// margin is profit over income in percent, rounded to two places. Zero
// income has no meaningful margin and reports 0.
func margin(profit, income float64) float64 {
	if income == 0 {
		return 0
	}
	return decimal.NewFromFloat(profit).
		Div(decimal.NewFromFloat(income)).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}
