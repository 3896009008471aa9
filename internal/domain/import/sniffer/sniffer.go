// Package sniffer locates the header row of loosely structured tabular exports,
// classifies the document as sales or suppliers and splits the remaining lines into rows.
package sniffer

import (
	"errors"
	"strings"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
)

// maxHeaderScanLines bounds the header search; exports rarely carry more preamble than this.
const maxHeaderScanLines = 30

// minHeaderMatches is the number of cells that must look like known headers.
const minHeaderMatches = 2

// Header fragments seen in sales exports (Hebrew first, then English).
var salesFragments = []string{
	"תאריך", "חודש", "מקט", `מק"ט`, "מק'ט", "תיאור", "תאור", "כמות", "סכום", "הכנסה", "מחיר", "יחידה", "יח'",
	"date", "month", "sku", "description", "quantity", "amount", "revenue", "total", "price", "unit",
}

// Header fragments that only appear in supplier / expense exports.
var supplierFragments = []string{
	"ספק", "הוצאה", `מע"מ`, "מע״מ",
	"supplier", "vendor", "expense",
}

var ErrEmptyFile = errors.New("file is empty")

// Document is a delimited text export split into keyed rows.
type Document struct {
	HeaderIndex int                 // line index of the header row
	Headers     []string            // cleaned header cells, empty names included
	Type        dataset.Type        // decided once from the header row
	Degraded    bool                // true when no line qualified and the first non-blank line was used
	Rows        []map[string]string // data rows keyed by header name
}

// Parse locates the header row of text and returns the rows that follow it.
func Parse(text string) (*Document, error) {
	lines := strings.Split(text, "\n")

	headerIdx, headers, degraded := findHeaderRow(lines)
	if headerIdx < 0 {
		return nil, ErrEmptyFile
	}

	doc := &Document{
		HeaderIndex: headerIdx,
		Headers:     headers,
		Type:        ClassifyHeaders(headers),
		Degraded:    degraded,
	}

	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if row, ok := rowFromValues(headers, SplitLine(line)); ok {
			doc.Rows = append(doc.Rows, row)
		}
	}

	return doc, nil
}

// findHeaderRow returns the header line index, its cleaned cells and whether the fallback was used.
// The index is -1 when every line is blank.
func findHeaderRow(lines []string) (int, []string, bool) {
	for i, line := range lines {
		if i >= maxHeaderScanLines {
			break
		}

		// Cheap pre-filter before tokenizing.
		if !containsFragment(line) {
			continue
		}

		cells := cleanCells(SplitLine(line))
		matches := 0
		for _, cell := range cells {
			if containsFragment(cell) {
				matches++
			}
		}
		if matches >= minHeaderMatches {
			return i, cells, false
		}
	}

	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			return i, cleanCells(SplitLine(line)), true
		}
	}

	return -1, nil, false
}

// rowFromValues maps values positionally onto headers, skipping unnamed columns.
// ok is false when the row carries no non-empty value.
func rowFromValues(headers, values []string) (map[string]string, bool) {
	row := make(map[string]string, len(headers))
	hasData := false
	for i, header := range headers {
		if header == "" || i >= len(values) {
			continue
		}
		row[header] = values[i]
		if strings.TrimSpace(values[i]) != "" {
			hasData = true
		}
	}
	return row, hasData
}

// ClassifyHeaders decides the dataset type from the header row of a delimited document.
func ClassifyHeaders(headers []string) dataset.Type {
	for _, h := range headers {
		if containsAny(h, supplierFragments) {
			return dataset.Suppliers
		}
	}
	return dataset.Sales
}

// ClassifyRow decides the dataset type from the key set of the first row of
// an already-tabular document such as a spreadsheet sheet.
func ClassifyRow(row map[string]string) dataset.Type {
	for key := range row {
		if containsAny(key, supplierFragments) {
			return dataset.Suppliers
		}
	}
	return dataset.Sales
}

func containsFragment(s string) bool {
	return containsAny(s, salesFragments) || containsAny(s, supplierFragments)
}

func containsAny(s string, fragments []string) bool {
	lower := strings.ToLower(s)
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func cleanCells(cells []string) []string {
	for i, c := range cells {
		cells[i] = cleanCell(c)
	}
	return cells
}
