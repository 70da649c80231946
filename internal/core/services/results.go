package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

// Ensure ResultsService implements the interface.
var _ driving.ResultsService = (*ResultsService)(nil)

// ResultsService reads stored index runs.
type ResultsService struct {
	store driven.IndexStore
}

// NewResultsService creates a results service.
func NewResultsService(store driven.IndexStore) *ResultsService {
	return &ResultsService{store: store}
}

// ListRuns returns all runs, newest first.
func (s *ResultsService) ListRuns(ctx context.Context) ([]domain.IndexRun, error) {
	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run, or the latest when runID is empty.
func (s *ResultsService) GetRun(ctx context.Context, runID string) (*domain.IndexRun, error) {
	if runID == "" {
		run, err := s.store.LatestRun(ctx)
		if err != nil {
			return nil, fmt.Errorf("latest run: %w", err)
		}
		return run, nil
	}
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ListFiles returns the rows of a run.
func (s *ResultsService) ListFiles(ctx context.Context, runID string, failedOnly bool) ([]domain.CohortRow, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListFiles(ctx, run.ID, driven.FileFilter{FailedOnly: failedOnly})
	if err != nil {
		return nil, fmt.Errorf("list files of run %s: %w", run.ID, err)
	}
	return rows, nil
}

// Summary returns the summaries and statistics of a run. Stats is nil
// while the run has not finished.
func (s *ResultsService) Summary(ctx context.Context, runID string) (*driving.RunSummary, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	summaries, stats, err := s.store.GetSummary(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("summary of run %s: %w", run.ID, err)
	}
	return &driving.RunSummary{Run: *run, Summaries: summaries, Stats: stats}, nil
}
