package handler

import (
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/analytics"
	storesvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/service"
	importsvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/service"
)

// ImportFile is one uploaded document. Data is base64 in JSON.
type ImportFile struct {
	Name string              `json:"name"`
	Data []byte              `json:"data,omitempty"`
	Rows []map[string]string `json:"rows,omitempty"`
}

type ImportDocumentsRequest struct {
	Files []ImportFile `json:"files"`
}

type ImportDocumentsResponse struct {
	Result *importsvc.ImportResult `json:"result"`
	Status storesvc.Status         `json:"status"`
}

type ClearDatasetsRequest struct {
	Scope string `json:"scope"`
}

type ClearDatasetsResponse struct {
	Status storesvc.Status `json:"status"`
}

// FilterParams is the wire form of analytics.FilterState. Descriptions and
// SKU are mutually exclusive. A nil SortDesc keeps the default direction.
type FilterParams struct {
	Start        string   `json:"start,omitempty"`
	End          string   `json:"end,omitempty"`
	DrillMonth   string   `json:"drillMonth,omitempty"`
	Search       string   `json:"search,omitempty"`
	Descriptions []string `json:"descriptions,omitempty"`
	SKU          string   `json:"sku,omitempty"`
	SortKey      string   `json:"sortKey,omitempty"`
	SortDesc     *bool    `json:"sortDesc,omitempty"`
}

type QueryDatasetRequest struct {
	Dataset string       `json:"dataset"`
	Filter  FilterParams `json:"filter"`
	Metric  string       `json:"metric,omitempty"`
	// Limit caps the returned records; KPIs and series always cover the full match.
	Limit int `json:"limit,omitempty"`
}

type QueryDatasetResponse struct {
	analytics.View
	Matched int `json:"matched"`
}

type FilterOptionsRequest struct {
	Dataset string `json:"dataset"`
}

type FilterOptionsResponse struct {
	Options  analytics.Options `json:"options"`
	Defaults FilterParams      `json:"defaults"`
}

type CrossSummaryRequest struct {
	Filter FilterParams `json:"filter"`
}

type CrossSummaryResponse struct {
	Summary analytics.CrossSummary `json:"summary"`
}

// ExportDatasetRequest exports "sales", "suppliers" or "cross".
type ExportDatasetRequest struct {
	Dataset string       `json:"dataset"`
	Filter  FilterParams `json:"filter"`
}

type ExportDatasetResponse struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

type RequestInsightRequest struct {
	Dataset string       `json:"dataset"`
	Filter  FilterParams `json:"filter"`
	Metric  string       `json:"metric,omitempty"`
}

type RequestInsightResponse struct {
	ID string `json:"id"`
}

type GetInsightRequest struct {
	ID string `json:"id"`
}

type StoreStatusRequest struct{}
