package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

func TestExtractRunID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid run files URI",
			uri:      "aecg://runs/run-123/files",
			expected: "run-123",
		},
		{
			name:     "invalid prefix",
			uri:      "file://runs/run-123/files",
			expected: "",
		},
		{
			name:     "missing files suffix",
			uri:      "aecg://runs/run-123",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractRunID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleRunsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil results service returns empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Inspect: &mockInspectService{}})
		require.NoError(t, err)

		result, err := server.handleRunsResource(ctx, makeReadResourceRequest("aecg://runs"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns runs successfully", func(t *testing.T) {
		mockResults := &mockResultsService{
			runs: []domain.IndexRun{
				{ID: "run-2", StudyDir: "/study", Status: domain.RunCompleted, Total: 3, Processed: 3},
				{ID: "run-1", StudyDir: "/study", Status: domain.RunCancelled, Total: 3, Processed: 1},
			},
		}
		server, err := NewServer(&Ports{Inspect: &mockInspectService{}, Results: mockResults})
		require.NoError(t, err)

		result, err := server.handleRunsResource(ctx, makeReadResourceRequest("aecg://runs"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var runs []RunOutput
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &runs))
		require.Len(t, runs, 2)
		assert.Equal(t, "run-2", runs[0].ID)
		assert.Equal(t, "cancelled", runs[1].Status)
		assert.Empty(t, runs[1].FinishedAt)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Inspect: &mockInspectService{},
			Results: &mockResultsService{err: errors.New("database locked")},
		})
		require.NoError(t, err)

		_, err = server.handleRunsResource(ctx, makeReadResourceRequest("aecg://runs"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing runs")
	})
}

func TestServer_handleRunFilesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil results service returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Inspect: &mockInspectService{}})
		require.NoError(t, err)

		_, err = server.handleRunFilesResource(ctx, makeReadResourceRequest("aecg://runs/run-1/files"))

		assert.Error(t, err)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Inspect: &mockInspectService{}, Results: &mockResultsService{}})
		require.NoError(t, err)

		_, err = server.handleRunFilesResource(ctx, makeReadResourceRequest("aecg://runs/run-1"))

		assert.Error(t, err)
	})

	t.Run("unknown run returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Inspect: &mockInspectService{},
			Results: &mockResultsService{err: domain.ErrNotFound},
		})
		require.NoError(t, err)

		_, err = server.handleRunFilesResource(ctx, makeReadResourceRequest("aecg://runs/run-9/files"))

		require.Error(t, err)
		assert.NotContains(t, err.Error(), "listing files")
	})

	t.Run("returns files successfully", func(t *testing.T) {
		mockResults := &mockResultsService{
			files: []domain.CohortRow{
				{Origin: domain.Origin{XMLPath: "a.xml", ZipPath: "s.zip"}, UUID: "u-1", SubjectID: "S1"},
			},
		}
		server, err := NewServer(&Ports{Inspect: &mockInspectService{}, Results: mockResults})
		require.NoError(t, err)

		result, err := server.handleRunFilesResource(ctx, makeReadResourceRequest("aecg://runs/run-1/files"))

		require.NoError(t, err)
		assert.Equal(t, "run-1", mockResults.gotRunID)

		var files []FileOutput
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &files))
		require.Len(t, files, 1)
		assert.Equal(t, "s.zip!a.xml", files[0].Location)
		assert.Equal(t, "S1", files[0].SubjectID)
	})
}
