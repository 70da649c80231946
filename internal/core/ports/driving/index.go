package driving

import (
	"context"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// IndexService builds a cohort index over a study directory.
type IndexService interface {
	// Index discovers, decodes and measures every file under the request
	// directory. Returns domain.ErrIndexInProgress if a run is active.
	Index(ctx context.Context, req IndexRequest) (*domain.CohortIndex, error)

	// Status returns the progress of the current or last run.
	Status() domain.IndexStatus
}

// IndexRequest configures an index run.
type IndexRequest struct {
	// Dir is the study directory.
	Dir string

	// Info describes the study. Info.StudyDir is set from Dir.
	Info domain.StudyInfo

	// Workers is the number of files decoded in parallel.
	Workers int

	// AllIntervals keeps every measurement, not only aggregates.
	AllIntervals bool

	// Stddev selects the summary estimator.
	Stddev domain.StddevMode

	// OutputXLSX writes the index workbook when set.
	OutputXLSX string
}
