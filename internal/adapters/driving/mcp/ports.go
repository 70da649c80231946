package mcp

import (
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Inspect decodes single aECG files.
	Inspect driving.InspectService

	// Results reads stored index runs.
	Results driving.ResultsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p == nil || p.Inspect == nil {
		return ErrMissingInspectService
	}
	// Results is optional: without a store only inspect_aecg is useful
	return nil
}
