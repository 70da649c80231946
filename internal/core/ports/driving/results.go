package driving

import (
	"context"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// ResultsService reads stored index runs.
// An empty run ID selects the latest run.
type ResultsService interface {
	// ListRuns returns all runs, newest first.
	ListRuns(ctx context.Context) ([]domain.IndexRun, error)

	// GetRun returns one run.
	GetRun(ctx context.Context, runID string) (*domain.IndexRun, error)

	// ListFiles returns the rows of a run.
	ListFiles(ctx context.Context, runID string, failedOnly bool) ([]domain.CohortRow, error)

	// Summary returns the study summaries and statistics of a run.
	Summary(ctx context.Context, runID string) (*RunSummary, error)
}

// RunSummary is the stored outcome of a run.
type RunSummary struct {
	Run       domain.IndexRun
	Summaries []domain.StudySummary
	Stats     *domain.StudyStats
}
