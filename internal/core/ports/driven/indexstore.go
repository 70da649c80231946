package driven

import (
	"context"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// FileResult is everything recorded for one file of a run.
type FileResult struct {
	Row     domain.CohortRow
	Report  []domain.ReportEntry
	Records []domain.IntervalRecord
}

// FileFilter narrows ListFiles.
type FileFilter struct {
	FailedOnly bool
	Limit      int
}

// IndexStore persists index runs. AppendFile is atomic per file so rows
// written before a cancellation remain valid.
type IndexStore interface {
	// CreateRun stores a new run in running state.
	CreateRun(ctx context.Context, run domain.IndexRun) error

	// AppendFile stores one file result for a run.
	AppendFile(ctx context.Context, runID string, result FileResult) error

	// FinishRun stores the final state, summaries and statistics.
	FinishRun(ctx context.Context, run domain.IndexRun, summaries []domain.StudySummary, stats domain.StudyStats) error

	// GetRun returns a run. Returns domain.ErrNotFound when absent.
	GetRun(ctx context.Context, runID string) (*domain.IndexRun, error)

	// LatestRun returns the most recently started run.
	LatestRun(ctx context.Context) (*domain.IndexRun, error)

	// ListRuns returns runs, newest first.
	ListRuns(ctx context.Context) ([]domain.IndexRun, error)

	// ListFiles returns the rows of a run in discovery order.
	ListFiles(ctx context.Context, runID string, filter FileFilter) ([]domain.CohortRow, error)

	// ListIntervals returns the stored measurements of a run.
	ListIntervals(ctx context.Context, runID string) ([]domain.IntervalRecord, error)

	// ListReport returns the stored parse report entries of one file.
	ListReport(ctx context.Context, runID string, origin domain.Origin) ([]domain.ReportEntry, error)

	// GetSummary returns summaries and statistics of a finished run.
	GetSummary(ctx context.Context, runID string) ([]domain.StudySummary, *domain.StudyStats, error)

	// Close releases resources.
	Close() error
}
