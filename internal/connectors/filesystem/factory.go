package filesystem

import (
	"context"
	"fmt"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

// Factory creates filesystem connectors.
type Factory struct{}

// NewFactory creates a connector factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create returns a connector rooted at root.
func (f *Factory) Create(_ context.Context, root string) (driven.Connector, error) {
	if root == "" {
		return nil, fmt.Errorf("study directory is required: %w", domain.ErrInvalidInput)
	}
	return New(root), nil
}
