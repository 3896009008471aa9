package sheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
)

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"תאריך", "תיאור", "כמות", "תיאור"},
		{45858, "כיסא", 2, "dup"},
		{nil, nil, nil, nil},
		{45870, "שולחן", 1, ""},
	})

	rows, err := ReadXLSX(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "45858", rows[0]["תאריך"])
	assert.Equal(t, "כיסא", rows[0]["תיאור"])
	assert.Equal(t, "dup", rows[0]["תיאור_1"])
	assert.Equal(t, "2", rows[0]["כמות"])
	assert.Equal(t, "שולחן", rows[1]["תיאור"])
}

func TestReadXLSX_Empty(t *testing.T) {
	data := buildWorkbook(t, nil)

	_, err := ReadXLSX(data)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadXLSX_NotAWorkbook(t *testing.T) {
	_, err := ReadXLSX([]byte("not a zip"))
	assert.Error(t, err)
}

func TestKeyRows_SkipsLeadingBlankRows(t *testing.T) {
	rows, err := keyRows([][]string{
		nil,
		{"", " "},
		{"a", "", "b", "a", "a"},
		{"1", "x", "2", "3", "4"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, map[string]string{"a": "1", "b": "2", "a_1": "3", "a_2": "4"}, rows[0])
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	table := dataset.Table{
		Columns: []string{"date", "description", "total"},
		Rows: [][]any{
			{"Jul-25", "כיסא", 1234.5},
			{"Aug-25", "שולחן", 800.0},
		},
	}

	data, err := WriteXLSX(table, "sales")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"sales"}, f.GetSheetList())

	grid, err := f.GetRows("sales")
	require.NoError(t, err)
	require.Len(t, grid, 3)
	assert.Equal(t, []string{"date", "description", "total"}, grid[0])
	assert.Equal(t, []string{"Jul-25", "כיסא", "1234.5"}, grid[1])
	assert.Equal(t, []string{"Aug-25", "שולחן", "800"}, grid[2])
}
