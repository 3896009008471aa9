package sniffer

import "strings"

// SplitLine splits one comma-separated line into trimmed fields.
// A comma inside an open quote is literal and a doubled quote is an escaped quote.
// Unbalanced quoting never fails: whatever was collected so far becomes the last field.
func SplitLine(line string) []string {
	var (
		fields      []string
		current     strings.Builder
		insideQuote bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			insideQuote = !insideQuote
		case r == ',' && !insideQuote:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))

	return fields
}

// cleanCell strips one pair of wrapping quotes and collapses escaped quotes.
func cleanCell(cell string) string {
	cell = strings.TrimPrefix(cell, `"`)
	cell = strings.TrimSuffix(cell, `"`)
	cell = strings.ReplaceAll(cell, `""`, `"`)
	return strings.TrimSpace(cell)
}
