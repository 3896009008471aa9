// Package service provides the import orchestration logic.
package service

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	storesvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/service"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/smart-sales-tracker/pkg/observability"
)

// Store receives the normalized batches of one import in a single append.
type Store interface {
	Import(ctx context.Context, batches ...storesvc.Batch) error
}

// FileOutcome reports what happened to one source.
type FileOutcome struct {
	FileName string       `json:"fileName"`
	Type     dataset.Type `json:"type,omitempty"`
	Rows     int          `json:"rows"`
	Imported int          `json:"imported"`
	Dropped  int          `json:"dropped"`
	Degraded bool         `json:"degraded,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// ImportResult contains the result of an import operation
type ImportResult struct {
	Files    []FileOutcome `json:"files"`
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// ImportService parses sources concurrently and appends them to the store.
type ImportService struct {
	store   Store
	logger  *slog.Logger
	tracer  trace.Tracer
	workers int
}

func NewImportService(store Store, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	return &ImportService{
		store:   store,
		logger:  logger,
		tracer:  otel.Tracer("sales-dashboard/import"),
		workers: workers,
	}
}

type parseJob struct {
	index int
	src   Source
}

type parseResult struct {
	index   int
	outcome FileOutcome
	batch   storesvc.Batch
	err     error
}

// ImportDocuments parses every source, then appends all successful ones to
// the store in source order. A source that fails is reported in its outcome
// and does not stop the others.
func (s *ImportService) ImportDocuments(ctx context.Context, sources []Source) (*ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "ImportDocuments")
	defer span.End()
	span.SetAttributes(attribute.Int("import.sources", len(sources)))

	start := time.Now()
	parsed := make([]parseResult, len(sources))
	for res := range s.parseStream(ctx, sources) {
		parsed[res.index] = res
	}
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &ImportResult{Files: make([]FileOutcome, len(sources))}
	var batches []storesvc.Batch
	for i, res := range parsed {
		result.Files[i] = res.outcome
		if res.err != nil {
			result.Failed++
			observability.DocumentsImported.WithLabelValues("unknown", "failed").Inc()
			s.logger.Warn("Failed to parse document", "file", res.outcome.FileName, "error", res.err)
			continue
		}

		t := string(res.batch.Type)
		observability.DocumentsImported.WithLabelValues(t, "ok").Inc()
		observability.RecordsImported.WithLabelValues(t).Add(float64(res.outcome.Imported))
		observability.RowsDropped.WithLabelValues(t).Add(float64(res.outcome.Dropped))
		if res.outcome.Degraded {
			observability.HeaderFallbacks.Inc()
			s.logger.Warn("No header row matched, using first non-blank line", "file", res.outcome.FileName)
		}

		result.Imported += res.outcome.Imported
		batches = append(batches, res.batch)
	}

	if err := s.store.Import(ctx, batches...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("import.records", result.Imported),
		attribute.Int("import.failed", result.Failed),
	)
	s.logger.Info("Import complete",
		"files", len(sources),
		"records", result.Imported,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}

// parseStream fans sources out to a fixed worker pool. Results arrive in
// completion order and carry their source index.
func (s *ImportService) parseStream(ctx context.Context, sources []Source) <-chan parseResult {
	workerCount := min(s.workers, len(sources))
	if workerCount < 1 {
		workerCount = 1
	}

	results := make(chan parseResult, workerCount*4)
	jobs := make(chan parseJob, workerCount*4)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					return
				}
				res := s.parseSource(job.src)
				res.index = job.index
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, src := range sources {
			select {
			case jobs <- parseJob{index: i, src: src}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// parseSource runs header detection and row normalization for one source.
func (s *ImportService) parseSource(src Source) parseResult {
	res := parseResult{outcome: FileOutcome{FileName: src.Name}}

	doc, err := DocumentFromSource(src)
	if err != nil {
		res.err = err
		res.outcome.Error = err.Error()
		return res
	}

	records, dropped := NormalizeDocument(doc)
	res.outcome.Type = doc.Type
	res.outcome.Rows = len(doc.Rows)
	res.outcome.Imported = len(records)
	res.outcome.Dropped = dropped
	res.outcome.Degraded = doc.Degraded
	res.batch = storesvc.Batch{Type: doc.Type, FileName: src.Name, Records: records}
	return res
}

// NormalizeDocument maps every row of doc to a record, preserving row order.
// dropped counts rows that carried no information.
func NormalizeDocument(doc *Document) (records []dataset.Record, dropped int) {
	records = make([]dataset.Record, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		rec, ok := normalizer.NormalizeRow(row, doc.Type)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped
}
