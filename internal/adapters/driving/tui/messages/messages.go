// Package messages defines Bubbletea message types for the progress view.
// Messages represent events that flow through the Elm architecture.
package messages

import (
	"time"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// StatusPolled carries a snapshot of the indexer status.
type StatusPolled struct {
	Status domain.IndexStatus
	At     time.Time
}

// IndexCompleted carries the outcome of the run.
// Index may be set together with Err when the run was cancelled.
type IndexCompleted struct {
	Index *domain.CohortIndex
	Err   error
}

// CancelRequested signals the user asked to stop the run.
type CancelRequested struct{}

// Phase identifies where the run is.
type Phase int

const (
	// PhaseStarting is before the first status with a total arrives.
	PhaseStarting Phase = iota
	// PhaseIndexing is while files are being decoded.
	PhaseIndexing
	// PhaseCancelling is after a cancel until the run returns.
	PhaseCancelling
	// PhaseDone is after the run returned.
	PhaseDone
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseIndexing:
		return "indexing"
	case PhaseCancelling:
		return "cancelling"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}
