package driven

import (
	"context"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// Connector discovers and reads aECG documents from a study location.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// Root returns the study location the connector reads from.
	Root() string

	// Capabilities returns what this connector supports.
	Capabilities() ConnectorCapabilities

	// Validate checks that the study location exists and is readable.
	Validate(ctx context.Context) error

	// List returns the origins of every XML document in discovery order:
	// sorted by (ZipPath, XMLPath) with plain files first.
	List(ctx context.Context) ([]domain.Origin, error)

	// FullSync streams every document in List order. Read failures are
	// carried on the RawDocument rather than the error channel, which is
	// reserved for failures that stop discovery.
	FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Open reads a single document.
	Open(ctx context.Context, origin domain.Origin) (*domain.RawDocument, error)

	// Watch listens for changes to XML and zip files.
	// Only available if SupportsWatch is true.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close releases resources.
	Close() error
}

// ConnectorCapabilities describes what a connector supports.
type ConnectorCapabilities struct {
	// SupportsWatch indicates the connector can push change events.
	SupportsWatch bool

	// SupportsArchives indicates zip members are discovered.
	SupportsArchives bool

	// SupportsValidation indicates Validate() performs an actual check.
	SupportsValidation bool
}

// ConnectorFactory creates connectors for study locations.
type ConnectorFactory interface {
	// Create returns a connector rooted at the given location.
	Create(ctx context.Context, root string) (Connector, error)
}
