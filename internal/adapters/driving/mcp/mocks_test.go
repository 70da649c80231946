package mcp

import (
	"context"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

// mockInspectService is a mock implementation of driving.InspectService.
type mockInspectService struct {
	result *driving.InspectResult
	err    error
	gotReq driving.InspectRequest
}

func (m *mockInspectService) Inspect(_ context.Context, req driving.InspectRequest) (*driving.InspectResult, error) {
	m.gotReq = req
	return m.result, m.err
}

// mockResultsService is a mock implementation of driving.ResultsService.
type mockResultsService struct {
	runs    []domain.IndexRun
	files   []domain.CohortRow
	summary *driving.RunSummary
	err     error

	gotRunID      string
	gotFailedOnly bool
}

func (m *mockResultsService) ListRuns(_ context.Context) ([]domain.IndexRun, error) {
	return m.runs, m.err
}

func (m *mockResultsService) GetRun(_ context.Context, runID string) (*domain.IndexRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	if runID == "" && len(m.runs) > 0 {
		return &m.runs[0], nil
	}
	for i := range m.runs {
		if m.runs[i].ID == runID {
			return &m.runs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockResultsService) ListFiles(_ context.Context, runID string, failedOnly bool) ([]domain.CohortRow, error) {
	m.gotRunID = runID
	m.gotFailedOnly = failedOnly
	if m.err != nil {
		return nil, m.err
	}
	if failedOnly {
		var out []domain.CohortRow
		for _, f := range m.files {
			if f.Failed {
				out = append(out, f)
			}
		}
		return out, nil
	}
	return m.files, nil
}

func (m *mockResultsService) Summary(_ context.Context, runID string) (*driving.RunSummary, error) {
	m.gotRunID = runID
	return m.summary, m.err
}
