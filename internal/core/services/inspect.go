package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

// Ensure InspectService implements the interface.
var _ driving.InspectService = (*InspectService)(nil)

// InspectService decodes and measures single files.
type InspectService struct {
	factory    driven.ConnectorFactory
	normaliser driven.Normaliser
}

// NewInspectService creates an inspect service.
func NewInspectService(factory driven.ConnectorFactory, normaliser driven.Normaliser) *InspectService {
	return &InspectService{factory: factory, normaliser: normaliser}
}

// Inspect reads one document, plain or zipped, and measures its intervals.
// A fatal decoding failure returns the partial document with the error.
func (s *InspectService) Inspect(ctx context.Context, req driving.InspectRequest) (*driving.InspectResult, error) {
	if req.XMLPath == "" {
		return nil, fmt.Errorf("xml path is required: %w", domain.ErrInvalidInput)
	}

	root := filepath.Dir(req.XMLPath)
	if req.ZipPath != "" {
		root = filepath.Dir(req.ZipPath)
	}
	conn, err := s.factory.Create(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	defer conn.Close()

	origin := domain.Origin{StudyDir: root, XMLPath: req.XMLPath, ZipPath: req.ZipPath}
	raw, err := conn.Open(ctx, origin)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", origin.Location(), err)
	}

	res, err := s.normaliser.Normalise(ctx, raw)
	if res == nil || res.Document == nil {
		return nil, err
	}

	result := &driving.InspectResult{Document: res.Document}
	if err != nil {
		return result, err
	}
	result.Measurements = MeasureDocument(res.Document)
	result.Aggregates = Aggregate(result.Measurements)
	return result, nil
}
