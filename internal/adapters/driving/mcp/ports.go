package mcp

import (
	"github.com/custodia-labs/policycite/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search answers query and lookup.
	Search driving.SearchService

	// Import adds and removes documents.
	Import driving.ImportService

	// Corpus reports status and serves document resources.
	Corpus driving.CorpusService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	// Import and Corpus are optional; their tools report the missing service.
	return nil
}
