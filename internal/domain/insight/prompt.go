package insight

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/analytics"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
)

// BuildPrompt renders the summary as a compact plain-text brief. language is
// the natural language the answer should be written in.
func BuildPrompt(s analytics.InsightSummary, language string) string {
	if language == "" {
		language = "Hebrew"
	}

	subject := "sales"
	entity := "products"
	if s.Dataset == dataset.Suppliers {
		subject = "supplier expenses"
		entity = "suppliers"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a business analyst. Write a short commentary in %s about the following %s data.\n", language, subject)
	b.WriteString("Point out notable months, the leading entries and the recent trend. Do not invent numbers.\n\n")

	b.WriteString("Period: ")
	switch {
	case s.DrillMonth != "":
		b.WriteString(s.DrillMonth)
	case s.Start != "" || s.End != "":
		fmt.Fprintf(&b, "%s to %s", orOpen(s.Start), orOpen(s.End))
	default:
		b.WriteString("all available months")
	}
	b.WriteString("\n")
	if s.Search != "" {
		fmt.Fprintf(&b, "Search filter: %q\n", s.Search)
	}
	if len(s.Selected) > 0 {
		fmt.Fprintf(&b, "Selected %s: %s\n", entity, strings.Join(s.Selected, ", "))
	}

	k := s.KPIs
	fmt.Fprintf(&b, "Records: %d\n", s.RecordCount)
	fmt.Fprintf(&b, "Total amount: %s\n", money(k.TotalAmount))
	fmt.Fprintf(&b, "Total quantity: %s\n", money(k.TotalQuantity))
	fmt.Fprintf(&b, "Distinct %s: %d\n", entity, k.DistinctEntities)
	fmt.Fprintf(&b, "Months in range: %d\n", k.MonthSpan)
	fmt.Fprintf(&b, "Monthly average amount: %s\n", money(k.AvgAmount))
	fmt.Fprintf(&b, "Month over month trend: %s%%\n", money(k.Trend))

	if len(s.Monthly) > 0 {
		b.WriteString("\nMonthly totals:\n")
		for _, p := range s.Monthly {
			month := p.Month
			if month == "" {
				month = "undated"
			}
			fmt.Fprintf(&b, "- %s: %s (quantity %s)\n", month, money(p.Total), money(p.Quantity))
		}
	}

	if len(s.TopEntities) > 0 {
		fmt.Fprintf(&b, "\nTop %s:\n", entity)
		for i, e := range s.TopEntities {
			fmt.Fprintf(&b, "%d. %s: %s (quantity %s)\n", i+1, e.Name, money(e.Total), money(e.Quantity))
		}
	}

	return b.String()
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func orOpen(s string) string {
	if s == "" {
		return "open"
	}
	return s
}
