package analytics

import "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"

// InsightSummary is the plain numeric digest handed to a text-generation
// collaborator. Nothing flows back from it.
type InsightSummary struct {
	Dataset     dataset.Type  `json:"dataset"`
	Start       string        `json:"start,omitempty"`
	End         string        `json:"end,omitempty"`
	DrillMonth  string        `json:"drillMonth,omitempty"`
	Search      string        `json:"search,omitempty"`
	Selected    []string      `json:"selected,omitempty"`
	RecordCount int           `json:"recordCount"`
	KPIs        KPIs          `json:"kpis"`
	Monthly     []MonthPoint  `json:"monthly"`
	TopEntities []EntityTotal `json:"topEntities"`
}

// SummaryForInsight digests an already derived view.
func SummaryForInsight(v View, t dataset.Type, f FilterState) InsightSummary {
	return InsightSummary{
		Dataset:     t,
		Start:       f.Start,
		End:         f.End,
		DrillMonth:  f.DrillMonth,
		Search:      f.Search,
		Selected:    f.Descriptions(),
		RecordCount: len(v.Records),
		KPIs:        v.KPIs,
		Monthly:     v.Monthly,
		TopEntities: v.Top,
	}
}
