package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for aecg resources.
	uriScheme = "aecg://"

	timeFormat = time.RFC3339
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing runs.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "runs",
		Name:        "runs",
		Description: "Stored cohort index runs, newest first",
		MIMEType:    "application/json",
	}, s.handleRunsResource)

	// Template for the files of a run.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "runs/{runId}/files",
		Name:        "run-files",
		Description: "Files indexed by a specific run",
		MIMEType:    "application/json",
	}, s.handleRunFilesResource)
}

// handleRunsResource returns a list of all stored runs.
func (s *Server) handleRunsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Results == nil {
		return jsonResource(req.Params.URI, []byte("[]")), nil
	}

	runs, err := s.ports.Results.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	infos := make([]RunOutput, len(runs))
	for i := range runs {
		infos[i] = runOutput(runs[i])
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling runs: %w", err)
	}

	return jsonResource(req.Params.URI, data), nil
}

// handleRunFilesResource returns the files of a specific run.
func (s *Server) handleRunFilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Results == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract runId from URI: aecg://runs/{runId}/files
	runID := extractRunID(req.Params.URI)
	if runID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	rows, err := s.ports.Results.ListFiles(ctx, runID, false)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	data, err := json.MarshalIndent(filesOutput(rows), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling files: %w", err)
	}

	return jsonResource(req.Params.URI, data), nil
}

func jsonResource(uri string, data []byte) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}
}

// extractRunID extracts the run ID from a URI like aecg://runs/{runId}/files.
func extractRunID(uri string) string {
	const prefix = uriScheme + "runs/"
	const suffix = "/files"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
