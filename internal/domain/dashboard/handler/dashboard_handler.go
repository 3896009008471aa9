// Package handler implements the DashboardService Connect RPC handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/analytics"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/common"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	storesvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/service"
	importsvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/sheet"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/insight"
	"github.com/FACorreiaa/smart-sales-tracker/pkg/observability"
)

const (
	ServiceName = "dashboard.v1.DashboardService"

	ImportDocumentsProcedure = "/" + ServiceName + "/ImportDocuments"
	ClearDatasetsProcedure   = "/" + ServiceName + "/ClearDatasets"
	QueryDatasetProcedure    = "/" + ServiceName + "/QueryDataset"
	FilterOptionsProcedure   = "/" + ServiceName + "/FilterOptions"
	CrossSummaryProcedure    = "/" + ServiceName + "/CrossSummary"
	ExportDatasetProcedure   = "/" + ServiceName + "/ExportDataset"
	RequestInsightProcedure  = "/" + ServiceName + "/RequestInsight"
	GetInsightProcedure      = "/" + ServiceName + "/GetInsight"
	StoreStatusProcedure     = "/" + ServiceName + "/StoreStatus"
)

const (
	exportCross       = "cross"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxFilesPerImport = 64
)

// DatasetStore is the part of the dataset store the handlers read and clear.
type DatasetStore interface {
	Records(t dataset.Type) []dataset.Record
	Clear(ctx context.Context, scope storesvc.Scope) error
	Status() storesvc.Status
}

type Importer interface {
	ImportDocuments(ctx context.Context, sources []importsvc.Source) (*importsvc.ImportResult, error)
}

type InsightService interface {
	Request(ctx context.Context, summary analytics.InsightSummary) (string, error)
	Get(id string) (insight.Result, error)
}

// DashboardHandler implements the DashboardService Connect handlers.
type DashboardHandler struct {
	store    DatasetStore
	importer Importer
	insights InsightService
	logger   *slog.Logger
}

// NewDashboardHandler constructs a new handler.
func NewDashboardHandler(store DatasetStore, importer Importer, insights InsightService, logger *slog.Logger) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		store:    store,
		importer: importer,
		insights: insights,
		logger:   logger,
	}
}

// NewDashboardServiceHandler builds an http.Handler serving every procedure
// and returns the path to mount it on.
func NewDashboardServiceHandler(h *DashboardHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ImportDocumentsProcedure, connect.NewUnaryHandler(ImportDocumentsProcedure, h.ImportDocuments, opts...))
	mux.Handle(ClearDatasetsProcedure, connect.NewUnaryHandler(ClearDatasetsProcedure, h.ClearDatasets, opts...))
	mux.Handle(QueryDatasetProcedure, connect.NewUnaryHandler(QueryDatasetProcedure, h.QueryDataset, opts...))
	mux.Handle(FilterOptionsProcedure, connect.NewUnaryHandler(FilterOptionsProcedure, h.FilterOptions, opts...))
	mux.Handle(CrossSummaryProcedure, connect.NewUnaryHandler(CrossSummaryProcedure, h.CrossSummary, opts...))
	mux.Handle(ExportDatasetProcedure, connect.NewUnaryHandler(ExportDatasetProcedure, h.ExportDataset, opts...))
	mux.Handle(RequestInsightProcedure, connect.NewUnaryHandler(RequestInsightProcedure, h.RequestInsight, opts...))
	mux.Handle(GetInsightProcedure, connect.NewUnaryHandler(GetInsightProcedure, h.GetInsight, opts...))
	mux.Handle(StoreStatusProcedure, connect.NewUnaryHandler(StoreStatusProcedure, h.StoreStatus, opts...))

	return "/" + ServiceName + "/", mux
}

// ImportDocuments parses and appends a batch of uploaded documents.
func (h *DashboardHandler) ImportDocuments(
	ctx context.Context,
	req *connect.Request[ImportDocumentsRequest],
) (*connect.Response[ImportDocumentsResponse], error) {
	files := req.Msg.Files
	if len(files) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("files is required"))
	}
	if len(files) > maxFilesPerImport {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("at most %d files per import", maxFilesPerImport))
	}

	sources := make([]importsvc.Source, len(files))
	for i, f := range files {
		if f.Name == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("files[%d].name is required", i))
		}
		sources[i] = importsvc.Source{Name: f.Name, Data: f.Data, Rows: f.Rows}
	}

	result, err := h.importer.ImportDocuments(ctx, sources)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&ImportDocumentsResponse{
		Result: result,
		Status: h.store.Status(),
	}), nil
}

// ClearDatasets empties the requested collections.
func (h *DashboardHandler) ClearDatasets(
	ctx context.Context,
	req *connect.Request[ClearDatasetsRequest],
) (*connect.Response[ClearDatasetsResponse], error) {
	scope, err := storesvc.ParseScope(req.Msg.Scope)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := h.store.Clear(ctx, scope); err != nil {
		return nil, toConnectError(err)
	}
	h.logger.Info("Datasets cleared", "scope", scope)

	return connect.NewResponse(&ClearDatasetsResponse{Status: h.store.Status()}), nil
}

// QueryDataset returns the filtered records with their KPIs, monthly series
// and top entities.
func (h *DashboardHandler) QueryDataset(
	_ context.Context,
	req *connect.Request[QueryDatasetRequest],
) (*connect.Response[QueryDatasetResponse], error) {
	t, f, metric, err := parseView(req.Msg.Dataset, req.Msg.Filter, req.Msg.Metric)
	if err != nil {
		return nil, err
	}
	if req.Msg.Limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("limit must not be negative"))
	}

	start := time.Now()
	view := analytics.Derive(h.store.Records(t), t, f, metric)
	observability.AggregationDuration.WithLabelValues("query").Observe(time.Since(start).Seconds())

	matched := len(view.Records)
	if req.Msg.Limit > 0 && matched > req.Msg.Limit {
		view.Records = view.Records[:req.Msg.Limit]
	}

	return connect.NewResponse(&QueryDatasetResponse{View: view, Matched: matched}), nil
}

// FilterOptions lists the facet values of a collection and the filter that
// resets the view to its full span.
func (h *DashboardHandler) FilterOptions(
	_ context.Context,
	req *connect.Request[FilterOptionsRequest],
) (*connect.Response[FilterOptionsResponse], error) {
	t, err := parseDataset(req.Msg.Dataset)
	if err != nil {
		return nil, err
	}

	opts := analytics.FilterOptions(h.store.Records(t))
	return connect.NewResponse(&FilterOptionsResponse{
		Options:  opts,
		Defaults: filterParamsFrom(analytics.ResetFilters(opts)),
	}), nil
}

// CrossSummary joins income and expense per month.
func (h *DashboardHandler) CrossSummary(
	_ context.Context,
	req *connect.Request[CrossSummaryRequest],
) (*connect.Response[CrossSummaryResponse], error) {
	f, err := filterStateFrom(req.Msg.Filter)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	summary := analytics.Cross(h.store.Records(dataset.Sales), h.store.Records(dataset.Suppliers), f)
	observability.AggregationDuration.WithLabelValues("cross").Observe(time.Since(start).Seconds())

	return connect.NewResponse(&CrossSummaryResponse{Summary: summary}), nil
}

// ExportDataset renders the filtered records, or the cross summary, as an
// .xlsx workbook.
func (h *DashboardHandler) ExportDataset(
	_ context.Context,
	req *connect.Request[ExportDatasetRequest],
) (*connect.Response[ExportDatasetResponse], error) {
	f, err := filterStateFrom(req.Msg.Filter)
	if err != nil {
		return nil, err
	}

	var (
		table dataset.Table
		name  string
	)
	if req.Msg.Dataset == exportCross {
		table = analytics.ExportCrossSummary(
			analytics.Cross(h.store.Records(dataset.Sales), h.store.Records(dataset.Suppliers), f),
		)
		name = exportCross
	} else {
		t, err := parseDataset(req.Msg.Dataset)
		if err != nil {
			return nil, err
		}
		table = analytics.ExportRecords(analytics.Filter(h.store.Records(t), t, f), t)
		name = string(t)
	}

	data, err := sheet.WriteXLSX(table, name)
	if err != nil {
		h.logger.Error("Failed to render export", "dataset", name, "error", err)
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to render export"))
	}

	return connect.NewResponse(&ExportDatasetResponse{
		FileName:    fmt.Sprintf("%s-%s.xlsx", name, time.Now().Format("2006-01-02")),
		ContentType: xlsxContentType,
		Data:        data,
	}), nil
}

// RequestInsight starts a text generation for the current view and returns
// its id without waiting.
func (h *DashboardHandler) RequestInsight(
	ctx context.Context,
	req *connect.Request[RequestInsightRequest],
) (*connect.Response[RequestInsightResponse], error) {
	t, f, metric, err := parseView(req.Msg.Dataset, req.Msg.Filter, req.Msg.Metric)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	view := analytics.Derive(h.store.Records(t), t, f, metric)
	observability.AggregationDuration.WithLabelValues("insight").Observe(time.Since(start).Seconds())

	id, err := h.insights.Request(ctx, analytics.SummaryForInsight(view, t, f))
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&RequestInsightResponse{ID: id}), nil
}

// GetInsight reports the state of an insight request.
func (h *DashboardHandler) GetInsight(
	_ context.Context,
	req *connect.Request[GetInsightRequest],
) (*connect.Response[insight.Result], error) {
	if req.Msg.ID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("id is required"))
	}

	result, err := h.insights.Get(req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&result), nil
}

// StoreStatus returns record counts, source files and the last persistence warning.
func (h *DashboardHandler) StoreStatus(
	_ context.Context,
	_ *connect.Request[StoreStatusRequest],
) (*connect.Response[storesvc.Status], error) {
	status := h.store.Status()
	return connect.NewResponse(&status), nil
}

func parseDataset(raw string) (dataset.Type, error) {
	t, err := dataset.ParseType(raw)
	if err != nil {
		return "", connect.NewError(connect.CodeInvalidArgument, err)
	}
	return t, nil
}

func parseView(rawType string, p FilterParams, rawMetric string) (dataset.Type, analytics.FilterState, analytics.Metric, error) {
	t, err := parseDataset(rawType)
	if err != nil {
		return "", analytics.FilterState{}, "", err
	}
	f, err := filterStateFrom(p)
	if err != nil {
		return "", analytics.FilterState{}, "", err
	}
	metric, err := analytics.ParseMetric(rawMetric)
	if err != nil {
		return "", analytics.FilterState{}, "", connect.NewError(connect.CodeInvalidArgument, err)
	}
	return t, f, metric, nil
}

func filterStateFrom(p FilterParams) (analytics.FilterState, error) {
	if len(p.Descriptions) > 0 && p.SKU != "" {
		return analytics.FilterState{}, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("%w: descriptions and sku are mutually exclusive", common.ErrBadRequest))
	}

	f := analytics.NewFilterState()
	f.Start = p.Start
	f.End = p.End
	f.DrillMonth = p.DrillMonth
	f.Search = p.Search
	if p.SortKey != "" {
		f.SortKey = analytics.SortKey(p.SortKey)
	}
	if p.SortDesc != nil {
		f.SortDesc = *p.SortDesc
	}
	f.SetDescriptions(p.Descriptions)
	f.SetSKU(p.SKU)
	return f, nil
}

func filterParamsFrom(f analytics.FilterState) FilterParams {
	desc := f.SortDesc
	return FilterParams{
		Start:        f.Start,
		End:          f.End,
		DrillMonth:   f.DrillMonth,
		Search:       f.Search,
		Descriptions: f.Descriptions(),
		SKU:          f.SKU(),
		SortKey:      string(f.SortKey),
		SortDesc:     &desc,
	}
}

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) error {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return err
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, insight.ErrInsightNotFound), errors.Is(err, common.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, insight.ErrInsightUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, dataset.ErrUnknownType), errors.Is(err, storesvc.ErrUnknownScope),
		errors.Is(err, common.ErrBadRequest):
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
