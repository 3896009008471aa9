package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
)

// ExportRecords flattens records into an export table. Amounts are rounded to
// cents.
func ExportRecords(records []dataset.Record, t dataset.Type) dataset.Table {
	table := dataset.Table{
		Columns: []string{"date", "sku", "description", "quantity", "unit", "total"},
		Rows:    make([][]any, 0, len(records)),
	}
	if t == dataset.Suppliers {
		table.Columns = append(table.Columns, "supplier")
	}

	for _, r := range records {
		row := []any{r.Date, r.SKU, r.Description, r.Quantity, r.Unit, roundCents(r.Total)}
		if t == dataset.Suppliers {
			row = append(row, r.Supplier)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// ExportCrossSummary flattens the summary with a trailing totals row.
func ExportCrossSummary(cs CrossSummary) dataset.Table {
	table := dataset.Table{
		Columns: []string{"month", "income", "expense", "profit", "margin"},
		Rows:    make([][]any, 0, len(cs.Rows)+1),
	}
	for _, r := range cs.Rows {
		table.Rows = append(table.Rows, crossRowValues(r.Month, r))
	}
	table.Rows = append(table.Rows, crossRowValues("Total", cs.Totals))
	return table
}

func crossRowValues(label string, r CrossRow) []any {
	return []any{label, roundCents(r.Income), roundCents(r.Expense), roundCents(r.Profit), r.Margin}
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
