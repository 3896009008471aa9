package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/analytics"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/common"
	"github.com/FACorreiaa/smart-sales-tracker/pkg/observability"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxResults = 256
)

var (
	ErrInsightNotFound    = fmt.Errorf("insight: %w", common.ErrNotFound)
	ErrInsightUnavailable = errors.New("insight generation is not configured")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Result is the state of one request.
type Result struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	Text        string    `json:"text,omitempty"`
	Error       string    `json:"error,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
}

// Service runs generations in the background and keeps their results in
// memory, evicting the oldest once maxResults is exceeded.
type Service struct {
	gen        Generator
	language   string
	timeout    time.Duration
	maxResults int
	logger     *slog.Logger

	mu      sync.RWMutex
	results map[string]*Result
	order   []string

	wg sync.WaitGroup
}

// NewService creates a service. gen may be nil, in which case every request
// fails with ErrInsightUnavailable.
func NewService(gen Generator, language string, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gen:        gen,
		language:   language,
		timeout:    timeout,
		maxResults: defaultMaxResults,
		logger:     logger,
		results:    make(map[string]*Result),
	}
}

// Request starts a generation for summary and returns its id immediately.
// The generation outlives ctx cancellation but not the service timeout.
func (s *Service) Request(ctx context.Context, summary analytics.InsightSummary) (string, error) {
	if s.gen == nil {
		return "", ErrInsightUnavailable
	}

	id := uuid.NewString()
	prompt := BuildPrompt(summary, s.language)

	s.mu.Lock()
	s.results[id] = &Result{ID: id, Status: StatusPending, RequestedAt: time.Now()}
	s.order = append(s.order, id)
	s.evictLocked()
	s.mu.Unlock()

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(runCtx, id, prompt)
	}()

	return id, nil
}

func (s *Service) run(ctx context.Context, id, prompt string) {
	text, err := s.gen.Generate(ctx, prompt)

	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.results[id]
	if !ok {
		return // evicted while running
	}
	res.CompletedAt = time.Now()
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		observability.InsightRequests.WithLabelValues(string(StatusFailed)).Inc()
		s.logger.Warn("Insight generation failed", "id", id, "error", err)
		return
	}
	res.Status = StatusDone
	res.Text = text
	observability.InsightRequests.WithLabelValues(string(StatusDone)).Inc()
}

// Get returns a copy of the result for id.
func (s *Service) Get(id string) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.results[id]
	if !ok {
		return Result{}, ErrInsightNotFound
	}
	return *res, nil
}

// Wait blocks until every in-flight generation has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) evictLocked() {
	for len(s.order) > s.maxResults {
		delete(s.results, s.order[0])
		s.order = s.order[1:]
	}
}
