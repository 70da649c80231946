package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

type storedRun struct {
	run       domain.IndexRun
	files     []driven.FileResult
	summaries []domain.StudySummary
	stats     *domain.StudyStats
	order     int
}

// IndexStore is an in-memory implementation of driven.IndexStore.
// Used for tests and for runs that are not persisted.
type IndexStore struct {
	mu      sync.RWMutex
	runs    map[string]*storedRun
	created int
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{runs: make(map[string]*storedRun)}
}

// CreateRun stores a new run.
func (s *IndexStore) CreateRun(_ context.Context, run domain.IndexRun) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required: %w", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists: %w", run.ID, domain.ErrInvalidInput)
	}
	s.created++
	s.runs[run.ID] = &storedRun{run: run, order: s.created}
	return nil
}

// AppendFile stores one file result.
func (s *IndexStore) AppendFile(_ context.Context, runID string, result driven.FileResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return domain.ErrNotFound
	}
	r.files = append(r.files, result)
	r.run.Processed++
	if result.Row.Failed {
		r.run.Failed++
	}
	return nil
}

// FinishRun stores the final run state with its summaries and statistics.
func (s *IndexStore) FinishRun(_ context.Context, run domain.IndexRun, summaries []domain.StudySummary, stats domain.StudyStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[run.ID]
	if !ok {
		return domain.ErrNotFound
	}
	r.run = run
	r.summaries = summaries
	r.stats = &stats
	return nil
}

// GetRun returns a run by ID.
func (s *IndexStore) GetRun(_ context.Context, runID string) (*domain.IndexRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	run := r.run
	return &run, nil
}

// LatestRun returns the most recently created run.
func (s *IndexStore) LatestRun(ctx context.Context) (*domain.IndexRun, error) {
	runs, err := s.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &runs[0], nil
}

// ListRuns returns runs, newest first.
func (s *IndexStore) ListRuns(_ context.Context) ([]domain.IndexRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := make([]*storedRun, 0, len(s.runs))
	for _, r := range s.runs {
		stored = append(stored, r)
	}
	sort.Slice(stored, func(i, j int) bool {
		return stored[i].order > stored[j].order
	})
	runs := make([]domain.IndexRun, len(stored))
	for i, r := range stored {
		runs[i] = r.run
	}
	return runs, nil
}

// ListFiles returns the rows of a run in discovery order.
func (s *IndexStore) ListFiles(_ context.Context, runID string, filter driven.FileFilter) ([]domain.CohortRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var rows []domain.CohortRow
	for _, f := range r.files {
		if filter.FailedOnly && !f.Row.Failed {
			continue
		}
		rows = append(rows, f.Row)
		if filter.Limit > 0 && len(rows) == filter.Limit {
			break
		}
	}
	return rows, nil
}

// ListIntervals returns the stored measurements of a run.
func (s *IndexStore) ListIntervals(_ context.Context, runID string) ([]domain.IntervalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var out []domain.IntervalRecord
	for _, f := range r.files {
		out = append(out, f.Records...)
	}
	return out, nil
}

// ListReport returns the parse report entries of one file.
func (s *IndexStore) ListReport(_ context.Context, runID string, origin domain.Origin) ([]domain.ReportEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, f := range r.files {
		if f.Row.Origin == origin {
			return f.Report, nil
		}
	}
	return nil, domain.ErrNotFound
}

// GetSummary returns summaries and statistics. Stats is nil until the run
// is finished.
func (s *IndexStore) GetSummary(_ context.Context, runID string) ([]domain.StudySummary, *domain.StudyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	return r.summaries, r.stats, nil
}

// Close is a no-op.
func (s *IndexStore) Close() error {
	return nil
}
