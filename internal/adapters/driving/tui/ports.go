// Package tui provides the interactive progress view of aecg index runs.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Index runs the cohort index and reports its progress.
	Index driving.IndexService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(index driving.IndexService) *Ports {
	return &Ports{Index: index}
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p == nil || p.Index == nil {
		return ErrMissingIndexService
	}
	return nil
}
