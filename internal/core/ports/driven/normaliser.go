package driven

import (
	"context"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// Normaliser decodes raw aECG XML into a Document.
type Normaliser interface {
	// Name identifies the normaliser in logs.
	Name() string

	// Normalise decodes a raw document. The result always carries a
	// Document with its origin and parse report, even when an error is
	// returned for a fatal decoding failure.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of decoding.
type NormaliseResult struct {
	// Document is the decoded aECG.
	Document *domain.Document
}

// SchemaValidator checks document structure before extraction.
type SchemaValidator interface {
	// Validate returns an error wrapping domain.ErrSchemaViolation when
	// content is rejected.
	Validate(ctx context.Context, content []byte) error
}
