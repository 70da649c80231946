package aecg

import (
	"context"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser adapts the Builder to the driven.Normaliser port.
type Normaliser struct {
	builder *Builder
}

// New creates a normaliser. validator may be nil.
func New(validator driven.SchemaValidator) *Normaliser {
	return &Normaliser{builder: NewBuilder(validator)}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "aecg"
}

// Normalise decodes an aECG document. The result is returned alongside
// fatal errors so callers can record the parse report.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	doc, err := n.builder.Build(ctx, raw)
	if doc == nil {
		return nil, err
	}
	return &driven.NormaliseResult{Document: doc}, err
}
