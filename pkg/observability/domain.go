package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DocumentsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_documents_total",
			Help:      "Imported documents by dataset type and outcome",
		},
		[]string{"dataset", "outcome"},
	)

	RecordsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_records_total",
			Help:      "Normalized records appended to the store",
		},
		[]string{"dataset"},
	)

	// RowsDropped counts rows discarded for carrying neither a description nor a total.
	RowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_dropped_total",
			Help:      "Rows dropped during normalization",
		},
		[]string{"dataset"},
	)

	HeaderFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_header_fallbacks_total",
			Help:      "Documents whose header row could not be matched and fell back to the first non-blank line",
		},
	)

	SnapshotFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_failures_total",
			Help:      "Snapshot persistence failures by operation",
		},
		[]string{"operation"},
	)

	StoredRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_records",
			Help:      "Records currently held per dataset",
		},
		[]string{"dataset"},
	)

	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Time spent deriving dashboard views",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"view"},
	)

	InsightRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insight_requests_total",
			Help:      "Insight generations by outcome",
		},
		[]string{"outcome"},
	)
)
