package analytics

import (
	"cmp"
	"slices"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/normalizer"
)

// QuantitySuffix tags the per-entity quantity series.
const QuantitySuffix = "_quantity"

// MonthPoint is one month of the series. Entities holds a total per selected
// entity and a quantity under the entity name plus QuantitySuffix.
type MonthPoint struct {
	Month    string             `json:"month"`
	Total    float64            `json:"total"`
	Quantity float64            `json:"quantity"`
	Entities map[string]float64 `json:"entities,omitempty"`
}

// MonthlySeries groups records by month token in calendar order. Undated
// records form a leading bucket with an empty month so the series always
// sums to the KPI total.
func MonthlySeries(records []dataset.Record, t dataset.Type, f FilterState) []MonthPoint {
	selected := f.Descriptions()

	index := make(map[string]int)
	points := []MonthPoint{}
	for _, r := range records {
		i, ok := index[r.Date]
		if !ok {
			p := MonthPoint{Month: r.Date}
			if len(selected) > 0 {
				p.Entities = make(map[string]float64, 2*len(selected))
				for _, name := range selected {
					p.Entities[name] = 0
					p.Entities[name+QuantitySuffix] = 0
				}
			}
			i = len(points)
			index[r.Date] = i
			points = append(points, p)
		}

		points[i].Total += r.Total
		points[i].Quantity += r.Quantity
		if points[i].Entities != nil {
			name := r.EntityName(t)
			if _, tracked := points[i].Entities[name]; tracked {
				points[i].Entities[name] += r.Total
				points[i].Entities[name+QuantitySuffix] += r.Quantity
			}
		}
	}

	slices.SortStableFunc(points, func(a, b MonthPoint) int {
		return cmp.Compare(normalizer.ComparableDate(a.Month), normalizer.ComparableDate(b.Month))
	})
	return points
}
