package analytics

import (
	"cmp"
	"slices"
	"strings"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
)

// DefaultTopN bounds the ranking when no entity selection is active.
const DefaultTopN = 5

// EntityTotal is one entry of the top-N ranking.
type EntityTotal struct {
	Name     string  `json:"name"`
	Total    float64 `json:"total"`
	Quantity float64 `json:"quantity"`
	Value    float64 `json:"value"`
}

// TopEntities ranks entities by metric, descending. Without a selection the
// ranking is cut to DefaultTopN; with one, every selected entity is returned,
// including those with no matching records.
func TopEntities(records []dataset.Record, t dataset.Type, f FilterState, metric Metric) []EntityTotal {
	selected := f.Descriptions()

	groups := make(map[string]*EntityTotal)
	for _, name := range selected {
		groups[name] = &EntityTotal{Name: name}
	}
	for _, r := range records {
		name := r.EntityName(t)
		g, ok := groups[name]
		if !ok {
			if len(selected) > 0 {
				continue
			}
			g = &EntityTotal{Name: name}
			groups[name] = g
		}
		g.Total += r.Total
		g.Quantity += r.Quantity
	}

	out := make([]EntityTotal, 0, len(groups))
	for _, g := range groups {
		g.Value = g.Total
		if metric == MetricQuantity {
			g.Value = g.Quantity
		}
		out = append(out, *g)
	}

	slices.SortFunc(out, func(a, b EntityTotal) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	if len(selected) == 0 && len(out) > DefaultTopN {
		out = out[:DefaultTopN]
	}
	return out
}
