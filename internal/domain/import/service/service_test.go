package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/analytics"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	storesvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/service"
)

const hebrewSalesCSV = "תאריך,מקט,תיאור,כמות,\"סה\"\"כ סכום\"\n" +
	"45858,A-100,כיסא,2,\"1,234.50\"\n" +
	"45870,A-200,שולחן,1,800\n"

const suppliersCSV = "חודש,מספר ספק,שם ספק,הוצאה משוערת\n" +
	"Jul-25,17,חברת חשמל,5000\n" +
	"Aug-25,18,,1200\n" +
	",,,\n" +
	"Sep-25,19,,n/a\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService() (*ImportService, *storesvc.Store) {
	store := storesvc.NewStore(nil, testLogger())
	return NewImportService(store, testLogger()), store
}

func TestImportDocuments_HebrewSalesScenario(t *testing.T) {
	svc, store := newTestService()

	result, err := svc.ImportDocuments(context.Background(), []Source{
		{Name: "sales.csv", Data: []byte(hebrewSalesCSV)},
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, dataset.Sales, result.Files[0].Type)
	assert.Equal(t, 2, result.Imported)
	assert.Zero(t, result.Failed)

	records := store.Records(dataset.Sales)
	require.Len(t, records, 2)
	assert.Equal(t, "כיסא", records[0].Description)
	assert.Equal(t, "Jul-25", records[0].Date)
	assert.InDelta(t, 1234.5, records[0].Total, 1e-9)
	assert.Equal(t, "Aug-25", records[1].Date)

	view := analytics.Derive(records, dataset.Sales, analytics.NewFilterState(), analytics.MetricTotal)
	assert.InDelta(t, 2034.5, view.KPIs.TotalAmount, 1e-9)
	assert.InDelta(t, 3.0, view.KPIs.TotalQuantity, 1e-9)
	require.Len(t, view.Monthly, 2)
	assert.Equal(t, "Jul-25", view.Monthly[0].Month)
	assert.Equal(t, "Aug-25", view.Monthly[1].Month)

	assert.Equal(t, []string{"sales.csv"}, store.Snapshot().SalesFileNames)
}

func TestImportDocuments_MixedSourcesKeepSourceOrder(t *testing.T) {
	svc, store := newTestService()

	result, err := svc.ImportDocuments(context.Background(), []Source{
		{Name: "suppliers.csv", Data: []byte(suppliersCSV)},
		{Name: "broken.csv", Data: nil},
		{Name: "sales.csv", Data: []byte(hebrewSalesCSV)},
		{Name: "rows", Rows: []map[string]string{
			{"תאריך": "45900", "תיאור": "מנורה", `סה"כ סכום`: "40"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "broken.csv", result.Files[1].FileName)
	assert.NotEmpty(t, result.Files[1].Error)

	supplierOutcome := result.Files[0]
	assert.Equal(t, dataset.Suppliers, supplierOutcome.Type)
	assert.Equal(t, 3, supplierOutcome.Rows)
	assert.Equal(t, 2, supplierOutcome.Imported)
	assert.Equal(t, 1, supplierOutcome.Dropped)

	suppliers := store.Records(dataset.Suppliers)
	require.Len(t, suppliers, 2)
	assert.Equal(t, "חברת חשמל", suppliers[0].Supplier)
	assert.Equal(t, dataset.GeneralSupplier, suppliers[1].Supplier)

	sales := store.Records(dataset.Sales)
	require.Len(t, sales, 3)
	assert.Equal(t, "כיסא", sales[0].Description)
	assert.Equal(t, "מנורה", sales[2].Description)

	snap := store.Snapshot()
	assert.Equal(t, []string{"sales.csv", "rows"}, snap.SalesFileNames)
	assert.Equal(t, []string{"suppliers.csv"}, snap.SuppliersFileNames)
}

func TestImportDocuments_Workbook(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"חודש", "שנה", "שם ספק", "הוצאה כולל מע\"מ"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{3, 2025, "מים", 450.5}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	svc, store := newTestService()
	result, err := svc.ImportDocuments(context.Background(), []Source{{Name: "Expenses.XLSX", Data: buf.Bytes()}})
	require.NoError(t, err)
	assert.Equal(t, dataset.Suppliers, result.Files[0].Type)

	suppliers := store.Records(dataset.Suppliers)
	require.Len(t, suppliers, 1)
	assert.Equal(t, "Mar-25", suppliers[0].Date)
	assert.InDelta(t, 450.5, suppliers[0].Total, 1e-9)
}

func TestImportDocuments_DegradedHeader(t *testing.T) {
	svc, store := newTestService()

	result, err := svc.ImportDocuments(context.Background(), []Source{
		{Name: "odd.csv", Data: []byte("foo,bar\n1,2\n")},
	})
	require.NoError(t, err)
	assert.True(t, result.Files[0].Degraded)
	// No recognizable columns: every row is dropped, nothing fails.
	assert.Equal(t, 1, result.Files[0].Dropped)
	assert.Empty(t, store.Records(dataset.Sales))
}

type failingStore struct{}

func (failingStore) Import(context.Context, ...storesvc.Batch) error {
	return errors.New("store unavailable")
}

func TestImportDocuments_StoreError(t *testing.T) {
	svc := NewImportService(failingStore{}, testLogger())

	_, err := svc.ImportDocuments(context.Background(), []Source{{Name: "sales.csv", Data: []byte(hebrewSalesCSV)}})
	assert.EqualError(t, err, "store unavailable")
}

func TestImportDocuments_CanceledContext(t *testing.T) {
	svc, store := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ImportDocuments(ctx, []Source{{Name: "sales.csv", Data: []byte(hebrewSalesCSV)}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.Records(dataset.Sales))
}

func TestDocumentFromFile(t *testing.T) {
	_, err := DocumentFromFile("empty.csv", nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = DocumentFromFile("blank.csv", []byte("\n \n"))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = DocumentFromFile("image.png", []byte{0x89, 'P', 'N', 'G', 0x00, 0x01})
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = DocumentFromFile("fake.xlsx", []byte("not a workbook"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	doc, err := DocumentFromFile("bom.csv", append([]byte{0xEF, 0xBB, 0xBF}, []byte(hebrewSalesCSV)...))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.HeaderIndex)
	assert.Len(t, doc.Rows, 2)
}

func TestDocumentFromRows(t *testing.T) {
	_, err := DocumentFromRows("none", nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	doc, err := DocumentFromRows("vendors", []map[string]string{{"Vendor": "x", "Expense": "1"}})
	require.NoError(t, err)
	assert.Equal(t, dataset.Suppliers, doc.Type)
}

func TestNormalizeDocument_PreservesRowOrder(t *testing.T) {
	doc, err := DocumentFromFile("sales.csv", []byte(benchmarkCSV(50)))
	require.NoError(t, err)

	records, dropped := NormalizeDocument(doc)
	assert.Zero(t, dropped)
	require.Len(t, records, 50)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("item-%d", i), r.Description)
	}
}

// recordingStore captures the batches handed to Import.
type recordingStore struct {
	mu      sync.Mutex
	batches []storesvc.Batch
	calls   int
}

func (r *recordingStore) Import(_ context.Context, batches ...storesvc.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.batches = append(r.batches, batches...)
	return nil
}

func TestImportDocuments_SingleAppendPass(t *testing.T) {
	rec := &recordingStore{}
	svc := NewImportService(rec, testLogger())

	var sources []Source
	for i := 0; i < 20; i++ {
		sources = append(sources, Source{Name: fmt.Sprintf("f%02d.csv", i), Data: []byte(benchmarkCSV(10))})
	}

	_, err := svc.ImportDocuments(context.Background(), sources)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.calls)
	require.Len(t, rec.batches, 20)
	for i, b := range rec.batches {
		assert.Equal(t, fmt.Sprintf("f%02d.csv", i), b.FileName)
	}
}

func BenchmarkImportSequential(b *testing.B) {
	sources := benchmarkSources(16, 2000)
	svc := NewImportService(&recordingStore{}, testLogger())
	svc.workers = 1

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.ImportDocuments(context.Background(), sources); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkImportConcurrent(b *testing.B) {
	sources := benchmarkSources(16, 2000)
	svc := NewImportService(&recordingStore{}, testLogger())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.ImportDocuments(context.Background(), sources); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkSources(files, rows int) []Source {
	data := []byte(benchmarkCSV(rows))
	sources := make([]Source, files)
	for i := range sources {
		sources[i] = Source{Name: fmt.Sprintf("bench-%d.csv", i), Data: data}
	}
	return sources
}

func benchmarkCSV(rows int) string {
	var b strings.Builder
	b.WriteString("דוח מכירות\n")
	b.WriteString("תאריך,מקט,תיאור,כמות,\"סה\"\"כ סכום\"\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%d,SKU-%d,item-%d,%d,\"%d.50\"\n", 45658+i%365, i%40, i, i%7, 1000+i)
	}
	return b.String()
}
