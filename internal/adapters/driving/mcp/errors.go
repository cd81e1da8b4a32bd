// Package mcp provides an MCP (Model Context Protocol) server adapter for
// policycite. It lets assistants cite the local policy corpus.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrImportUnavailable is returned by the import and remove tools when no
// import service is configured.
var ErrImportUnavailable = errors.New("mcp: import service is not configured")

// ErrCorpusUnavailable is returned by the status tool when no corpus service
// is configured.
var ErrCorpusUnavailable = errors.New("mcp: corpus service is not configured")
