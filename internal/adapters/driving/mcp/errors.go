// Package mcp provides an MCP (Model Context Protocol) server adapter for aecg.
// It lets AI assistants inspect aECG files and read stored cohort indexes.
package mcp

import "errors"

// ErrMissingInspectService is returned when the inspect service is not provided.
var ErrMissingInspectService = errors.New("mcp: inspect service is required")

// ErrMissingResultsService is returned by run tools when no store is configured.
var ErrMissingResultsService = errors.New("mcp: results service is not configured")
