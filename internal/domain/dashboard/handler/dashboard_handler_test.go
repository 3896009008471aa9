package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/analytics"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	storesvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/service"
	importsvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/insight"
)

const salesCSV = "תאריך,מקט,תיאור,כמות,\"סה\"\"כ סכום\"\n" +
	"45858,A-100,כיסא,2,\"1,234.50\"\n" +
	"45870,A-200,שולחן,1,800\n" +
	"45870,A-100,כיסא,1,600\n"

const suppliersCSV = "חודש,מספר ספק,שם ספק,הוצאה משוערת\n" +
	"Jul-25,17,חברת חשמל,500\n" +
	"Aug-25,18,,1000\n"

// MockInsights is a mock implementation of InsightService
type MockInsights struct {
	mock.Mock
}

func (m *MockInsights) Request(ctx context.Context, summary analytics.InsightSummary) (string, error) {
	args := m.Called(ctx, summary)
	return args.String(0), args.Error(1)
}

func (m *MockInsights) Get(id string) (insight.Result, error) {
	args := m.Called(id)
	return args.Get(0).(insight.Result), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupHandlerTest(t *testing.T) (*DashboardHandler, *MockInsights) {
	t.Helper()

	store := storesvc.NewStore(nil, testLogger())
	importer := importsvc.NewImportService(store, testLogger())
	insights := new(MockInsights)
	return NewDashboardHandler(store, importer, insights, testLogger()), insights
}

func seed(t *testing.T, h *DashboardHandler) {
	t.Helper()

	resp, err := h.ImportDocuments(context.Background(), connect.NewRequest(&ImportDocumentsRequest{
		Files: []ImportFile{
			{Name: "sales.csv", Data: []byte(salesCSV)},
			{Name: "suppliers.csv", Data: []byte(suppliersCSV)},
		},
	}))
	require.NoError(t, err)
	require.Equal(t, 5, resp.Msg.Result.Imported)
}

func connectCode(t *testing.T, err error) connect.Code {
	t.Helper()
	require.Error(t, err)
	return connect.CodeOf(err)
}

func TestImportDocuments(t *testing.T) {
	h, _ := setupHandlerTest(t)

	resp, err := h.ImportDocuments(context.Background(), connect.NewRequest(&ImportDocumentsRequest{
		Files: []ImportFile{
			{Name: "sales.csv", Data: []byte(salesCSV)},
			{Name: "rows", Rows: []map[string]string{{"תיאור": "מנורה", `סה"כ סכום`: "40"}}},
			{Name: "empty.csv"},
		},
	}))
	require.NoError(t, err)

	assert.Equal(t, 4, resp.Msg.Result.Imported)
	assert.Equal(t, 1, resp.Msg.Result.Failed)
	assert.Equal(t, 4, resp.Msg.Status.SalesRecords)
	assert.Equal(t, []string{"sales.csv", "rows"}, resp.Msg.Status.SalesFileNames)
}

func TestImportDocuments_InvalidRequest(t *testing.T) {
	h, _ := setupHandlerTest(t)

	_, err := h.ImportDocuments(context.Background(), connect.NewRequest(&ImportDocumentsRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connectCode(t, err))

	_, err = h.ImportDocuments(context.Background(), connect.NewRequest(&ImportDocumentsRequest{
		Files: []ImportFile{{Data: []byte(salesCSV)}},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connectCode(t, err))
}

func TestQueryDataset(t *testing.T) {
	h, _ := setupHandlerTest(t)
	seed(t, h)

	resp, err := h.QueryDataset(context.Background(), connect.NewRequest(&QueryDatasetRequest{
		Dataset: "sales",
	}))
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Msg.Matched)
	assert.InDelta(t, 2634.5, resp.Msg.KPIs.TotalAmount, 1e-9)
	require.Len(t, resp.Msg.Monthly, 2)
	assert.Equal(t, "Aug-25", resp.Msg.Records[0].Date, "default sort is newest first")
	require.NotEmpty(t, resp.Msg.Top)
	assert.Equal(t, "כיסא", resp.Msg.Top[0].Name)
}

func TestQueryDataset_FilterAndLimit(t *testing.T) {
	h, _ := setupHandlerTest(t)
	seed(t, h)

	asc := false
	resp, err := h.QueryDataset(context.Background(), connect.NewRequest(&QueryDatasetRequest{
		Dataset: "sales",
		Filter:  FilterParams{SKU: "A-100", SortKey: "total", SortDesc: &asc},
		Limit:   1,
	}))
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Msg.Matched)
	require.Len(t, resp.Msg.Records, 1)
	assert.InDelta(t, 600.0, resp.Msg.Records[0].Total, 1e-9)
	assert.InDelta(t, 1834.5, resp.Msg.KPIs.TotalAmount, 1e-9, "KPIs cover every match")

	resp, err = h.QueryDataset(context.Background(), connect.NewRequest(&QueryDatasetRequest{
		Dataset: "sales",
		Filter:  FilterParams{DrillMonth: "Jul-25"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Msg.Matched)
}

func TestQueryDataset_InvalidArguments(t *testing.T) {
	h, _ := setupHandlerTest(t)

	tests := []struct {
		name string
		req  *QueryDatasetRequest
	}{
		{"unknown dataset", &QueryDatasetRequest{Dataset: "inventory"}},
		{"unknown metric", &QueryDatasetRequest{Dataset: "sales", Metric: "margin"}},
		{"negative limit", &QueryDatasetRequest{Dataset: "sales", Limit: -1}},
		{"both facets", &QueryDatasetRequest{Dataset: "sales", Filter: FilterParams{
			Descriptions: []string{"כיסא"},
			SKU:          "A-100",
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.QueryDataset(context.Background(), connect.NewRequest(tt.req))
			assert.Equal(t, connect.CodeInvalidArgument, connectCode(t, err))
		})
	}
}

func TestFilterOptions(t *testing.T) {
	h, _ := setupHandlerTest(t)
	seed(t, h)

	resp, err := h.FilterOptions(context.Background(), connect.NewRequest(&FilterOptionsRequest{Dataset: "suppliers"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"Jul-25", "Aug-25"}, resp.Msg.Options.Dates)
	assert.Equal(t, []string{"General", "חברת חשמל"}, resp.Msg.Options.Suppliers)
	assert.Equal(t, "Jul-25", resp.Msg.Defaults.Start)
	assert.Equal(t, "Aug-25", resp.Msg.Defaults.End)
	assert.Equal(t, "date", resp.Msg.Defaults.SortKey)
	require.NotNil(t, resp.Msg.Defaults.SortDesc)
	assert.True(t, *resp.Msg.Defaults.SortDesc)
}

func TestCrossSummary(t *testing.T) {
	h, _ := setupHandlerTest(t)
	seed(t, h)

	resp, err := h.CrossSummary(context.Background(), connect.NewRequest(&CrossSummaryRequest{}))
	require.NoError(t, err)

	require.Len(t, resp.Msg.Summary.Rows, 2)
	jul := resp.Msg.Summary.Rows[0]
	assert.Equal(t, "Jul-25", jul.Month)
	assert.InDelta(t, 1234.5, jul.Income, 1e-9)
	assert.InDelta(t, 500.0, jul.Expense, 1e-9)
	assert.InDelta(t, 734.5, jul.Profit, 1e-9)
	assert.InDelta(t, 2634.5-1500, resp.Msg.Summary.Totals.Profit, 1e-9)
}

func TestExportDataset(t *testing.T) {
	h, _ := setupHandlerTest(t)
	seed(t, h)

	for _, name := range []string{"sales", "suppliers", "cross"} {
		t.Run(name, func(t *testing.T) {
			resp, err := h.ExportDataset(context.Background(), connect.NewRequest(&ExportDatasetRequest{Dataset: name}))
			require.NoError(t, err)
			assert.Equal(t, xlsxContentType, resp.Msg.ContentType)
			assert.Contains(t, resp.Msg.FileName, name)

			f, err := excelize.OpenReader(bytes.NewReader(resp.Msg.Data))
			require.NoError(t, err)
			defer func() { _ = f.Close() }()
			assert.Equal(t, []string{name}, f.GetSheetList())
		})
	}

	_, err := h.ExportDataset(context.Background(), connect.NewRequest(&ExportDatasetRequest{Dataset: "all"}))
	assert.Equal(t, connect.CodeInvalidArgument, connectCode(t, err))
}

func TestClearDatasets(t *testing.T) {
	h, _ := setupHandlerTest(t)
	seed(t, h)

	resp, err := h.ClearDatasets(context.Background(), connect.NewRequest(&ClearDatasetsRequest{Scope: "sales"}))
	require.NoError(t, err)
	assert.Zero(t, resp.Msg.Status.SalesRecords)
	assert.Equal(t, 2, resp.Msg.Status.SupplierRecords)

	_, err = h.ClearDatasets(context.Background(), connect.NewRequest(&ClearDatasetsRequest{Scope: "everything"}))
	assert.Equal(t, connect.CodeInvalidArgument, connectCode(t, err))
}

func TestRequestInsight(t *testing.T) {
	h, insights := setupHandlerTest(t)
	seed(t, h)

	insights.On("Request", mock.Anything, mock.MatchedBy(func(s analytics.InsightSummary) bool {
		return s.Dataset == dataset.Sales && s.RecordCount == 3
	})).Return("req-1", nil).Once()

	resp, err := h.RequestInsight(context.Background(), connect.NewRequest(&RequestInsightRequest{Dataset: "sales"}))
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.Msg.ID)

	insights.On("Request", mock.Anything, mock.Anything).Return("", insight.ErrInsightUnavailable).Once()
	_, err = h.RequestInsight(context.Background(), connect.NewRequest(&RequestInsightRequest{Dataset: "sales"}))
	assert.Equal(t, connect.CodeUnavailable, connectCode(t, err))

	insights.AssertExpectations(t)
}

func TestGetInsight(t *testing.T) {
	h, insights := setupHandlerTest(t)

	insights.On("Get", "req-1").Return(insight.Result{ID: "req-1", Status: insight.StatusDone, Text: "ok"}, nil)
	insights.On("Get", "missing").Return(insight.Result{}, insight.ErrInsightNotFound)

	resp, err := h.GetInsight(context.Background(), connect.NewRequest(&GetInsightRequest{ID: "req-1"}))
	require.NoError(t, err)
	assert.Equal(t, insight.StatusDone, resp.Msg.Status)

	_, err = h.GetInsight(context.Background(), connect.NewRequest(&GetInsightRequest{ID: "missing"}))
	assert.Equal(t, connect.CodeNotFound, connectCode(t, err))

	_, err = h.GetInsight(context.Background(), connect.NewRequest(&GetInsightRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connectCode(t, err))
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		err  error
		code connect.Code
	}{
		{context.Canceled, connect.CodeCanceled},
		{context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{dataset.ErrUnknownType, connect.CodeInvalidArgument},
		{storesvc.ErrUnknownScope, connect.CodeInvalidArgument},
		{insight.ErrInsightNotFound, connect.CodeNotFound},
		{errors.New("boom"), connect.CodeInternal},
		{connect.NewError(connect.CodeAborted, errors.New("x")), connect.CodeAborted},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, connect.CodeOf(toConnectError(tt.err)), tt.err.Error())
	}
}

func TestDashboardService_OverHTTP(t *testing.T) {
	h, _ := setupHandlerTest(t)

	path, handler := NewDashboardServiceHandler(h)
	assert.Equal(t, "/dashboard.v1.DashboardService/", path)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	importClient := connect.NewClient[ImportDocumentsRequest, ImportDocumentsResponse](
		server.Client(), server.URL+ImportDocumentsProcedure, connect.WithCodec(jsonCodec{}),
	)
	importResp, err := importClient.CallUnary(context.Background(), connect.NewRequest(&ImportDocumentsRequest{
		Files: []ImportFile{{Name: "sales.csv", Data: []byte(salesCSV)}},
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, importResp.Msg.Result.Imported)

	statusClient := connect.NewClient[StoreStatusRequest, storesvc.Status](
		server.Client(), server.URL+StoreStatusProcedure, connect.WithCodec(jsonCodec{}),
	)
	statusResp, err := statusClient.CallUnary(context.Background(), connect.NewRequest(&StoreStatusRequest{}))
	require.NoError(t, err)
	assert.Equal(t, 3, statusResp.Msg.SalesRecords)

	queryClient := connect.NewClient[QueryDatasetRequest, QueryDatasetResponse](
		server.Client(), server.URL+QueryDatasetProcedure, connect.WithCodec(jsonCodec{}),
	)
	_, err = queryClient.CallUnary(context.Background(), connect.NewRequest(&QueryDatasetRequest{Dataset: "nope"}))
	assert.Equal(t, connect.CodeInvalidArgument, connectCode(t, err))
}
