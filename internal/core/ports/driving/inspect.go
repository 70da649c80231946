package driving

import (
	"context"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// InspectService decodes and measures a single aECG file.
type InspectService interface {
	// Inspect reads, decodes and measures one document.
	// A decoding failure still returns the partial result with its report.
	Inspect(ctx context.Context, req InspectRequest) (*InspectResult, error)
}

// InspectRequest identifies the file to inspect.
type InspectRequest struct {
	// XMLPath is the XML file, or the member name when ZipPath is set.
	XMLPath string

	// ZipPath is the containing archive, empty for plain files.
	ZipPath string
}

// InspectResult is a decoded document with its interval measurements.
type InspectResult struct {
	Document     *domain.Document
	Measurements []domain.IntervalMeasurement
	Aggregates   []domain.IntervalAggregate
}
