package normalizer

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
)

// Column aliases per canonical field, tried in order. Exports from different
// tools escape the quote in "סה"כ" differently, hence the variants.
var (
	totalAliases = []string{
		`סה"כ סכום`,
		`סה""כ סכום`,
		"סה״כ סכום",
		"סהכ סכום",
		"הכנסה בשקלים",
		"הכנסה",
		`סה"כ`,
		"הוצאה משוערת",
		`הוצאה כולל מע"מ`,
		`סה"כ כולל מע"מ`,
		"Total Amount",
		"Revenue",
		"Total",
	}

	quantityAliases = []string{"כמות", "Quantity"}
	dateAliases     = []string{"תאריך", "Date"}
	monthAliases    = []string{"חודש", "Month"}
	yearAliases     = []string{"שנה", "Year"}
	unitAliases     = []string{"יחידה", "יח'", "Unit"}

	salesSKUAliases         = []string{"מקט מוצר", "מק'ט", "מקט", `מק"ט`, "SKU"}
	supplierSKUAliases      = []string{"מספר ספק", "מס' ספק", "Supplier No"}
	salesDescriptionAliases = []string{"תיאור מוצר", "תאור מוצר", "תיאור", "Description"}
	supplierNameAliases     = []string{"שם ספק", "ספק", "Supplier"}
)

var spacePattern = regexp.MustCompile(`\s+`)

// NormalizeRow maps a raw row onto the canonical record shape for the given
// dataset type. ok is false when the row has neither a description nor a
// nonzero total.
func NormalizeRow(row map[string]string, t dataset.Type) (dataset.Record, bool) {
	skuAliases, descAliases := salesSKUAliases, salesDescriptionAliases
	if t == dataset.Suppliers {
		skuAliases, descAliases = supplierSKUAliases, supplierNameAliases
	}

	rec := dataset.Record{
		ID:          uuid.NewString(),
		Date:        resolveDate(row),
		SKU:         lookup(row, skuAliases),
		Description: CleanText(lookup(row, descAliases)),
		Quantity:    ParseNumber(lookup(row, quantityAliases)),
		Total:       ParseNumber(lookup(row, totalAliases)),
		Unit:        lookup(row, unitAliases),
		Supplier:    CleanText(lookup(row, supplierNameAliases)),
	}

	if rec.Quantity < 0 {
		rec.Quantity = 0
	}
	if t == dataset.Suppliers && rec.Supplier == "" {
		rec.Supplier = dataset.GeneralSupplier
	}

	if rec.Description == "" && rec.Total == 0 {
		return dataset.Record{}, false
	}
	return rec, true
}

// resolveDate prefers explicit year and month columns, then a date column,
// then a month column.
func resolveDate(row map[string]string) string {
	year := lookup(row, yearAliases)
	month := lookup(row, monthAliases)
	if year != "" && month != "" {
		if token, ok := FromYearMonth(year, month); ok {
			return token
		}
	}

	if d := lookup(row, dateAliases); d != "" {
		return NormalizeDate(d)
	}
	return NormalizeDate(month)
}

// lookup returns the first non-empty value among the aliases.
func lookup(row map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v := strings.TrimSpace(row[alias]); v != "" {
			return v
		}
	}
	return ""
}

// CleanText trims and collapses internal whitespace runs to a single space.
func CleanText(raw string) string {
	return spacePattern.ReplaceAllString(strings.TrimSpace(raw), " ")
}
