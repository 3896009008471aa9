// Package sheet reads spreadsheet workbooks into keyed rows and writes export tables back out.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheets = errors.New("workbook has no sheets")
	ErrNoHeader = errors.New("sheet has no header row")
)

// ReadXLSX returns the first sheet of an .xlsx workbook as keyed rows.
// Cells are read raw so date cells arrive as serial numbers.
func ReadXLSX(data []byte) ([]map[string]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	grid, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return keyRows(grid)
}

// ReadXLS returns the first sheet of a legacy .xls workbook as keyed rows.
func ReadXLS(data []byte) ([]map[string]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrNoSheets
	}

	sh := wb.GetSheet(0)
	if sh == nil {
		return nil, ErrNoSheets
	}

	var grid [][]string
	for r := 0; r <= int(sh.MaxRow); r++ {
		row := sh.Row(r)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for i := range cells {
			cells[i] = row.Col(i)
		}
		grid = append(grid, cells)
	}

	return keyRows(grid)
}

// keyRows turns a grid into maps keyed by the first non-blank row.
// Repeated header names get _1, _2 suffixes and unnamed columns are dropped.
func keyRows(grid [][]string) ([]map[string]string, error) {
	headerIdx := -1
	for i, cells := range grid {
		if !blank(cells) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrNoHeader
	}

	headers := uniqueHeaders(grid[headerIdx])

	var rows []map[string]string
	for _, cells := range grid[headerIdx+1:] {
		if blank(cells) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(cells) {
				continue
			}
			row[h] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func uniqueHeaders(cells []string) []string {
	seen := make(map[string]int, len(cells))
	headers := make([]string, len(cells))
	for i, c := range cells {
		name := strings.TrimSpace(c)
		if name == "" {
			continue
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			headers[i] = fmt.Sprintf("%s_%d", name, n+1)
			continue
		}
		seen[name] = 0
		headers[i] = name
	}
	return headers
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
