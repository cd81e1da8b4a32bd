package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/policycite/internal/connectors/filesystem"
	"github.com/custodia-labs/policycite/internal/core/domain"
)

// Notice accompanies every citation result.
const Notice = "Citations are suggestions for review. They are not compliance findings."

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Sentence string `json:"sentence" jsonschema:"the summary sentence to find supporting policy passages for"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of citations (default retrieval.top_k)"`
}

// LookupInput is the input schema for the lookup tool.
type LookupInput struct {
	Text  string `json:"text" jsonschema:"a summary whose lines starting with '- ' are queried one by one"`
	Limit int    `json:"limit,omitempty" jsonschema:"citations per bullet (default retrieval.top_k)"`
}

// CitationsOutput is the output schema for the query and lookup tools.
type CitationsOutput struct {
	Citations []CitationOutput `json:"citations"`
	Count     int              `json:"count"`
	Notice    string           `json:"notice"`
}

// CitationOutput represents a single citation.
type CitationOutput struct {
	DocumentID   int64   `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Path         string  `json:"path"`
	PassageID    string  `json:"passage_id"`
	Page         int     `json:"page,omitempty"`
	Section      string  `json:"section,omitempty"`
	Snippet      string  `json:"snippet"`
	Score        float64 `json:"score"`
	Query        string  `json:"query,omitempty"`
}

// StatusInput is the input schema for the status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the status tool.
type StatusOutput struct {
	DocumentCount  int    `json:"document_count"`
	PassageCount   int    `json:"passage_count"`
	StaleCount     int    `json:"stale_count"`
	LastImportTime string `json:"last_import_time,omitempty"`
	IndexVersion   uint64 `json:"index_version"`
	Terms          int    `json:"terms"`
	Fingerprint    string `json:"fingerprint,omitempty"`
}

// ImportInput is the input schema for the import tool.
type ImportInput struct {
	Paths []string `json:"paths" jsonschema:"files or directories to import"`
}

// RemoveInput is the input schema for the remove tool.
type RemoveInput struct {
	DocumentID int64  `json:"document_id,omitempty" jsonschema:"ID of the document to remove"`
	Path       string `json:"path,omitempty" jsonschema:"path the document was imported from, used when document_id is not set"`
}

// RemoveOutput is the output schema for the remove tool.
type RemoveOutput struct {
	Removed bool `json:"removed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Find policy passages that support a summary sentence",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lookup",
		Description: "Find policy passages for each bullet of a summary",
	}, s.handleLookup)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "status",
		Description: "Report document, passage and index counts",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "import",
		Description: "Import policy files (PDF, DOCX, plain text) into the corpus",
	}, s.handleImport)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove",
		Description: "Remove a document and its passages from the corpus",
	}, s.handleRemove)
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, CitationsOutput, error) {
	citations, err := s.ports.Search.Query(ctx, input.Sentence, input.Limit)
	if err != nil {
		return nil, CitationsOutput{}, err
	}
	return nil, toCitationsOutput(citations), nil
}

// handleLookup handles the lookup tool invocation.
func (s *Server) handleLookup(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LookupInput,
) (*mcp.CallToolResult, CitationsOutput, error) {
	citations, err := s.ports.Search.Lookup(ctx, input.Text, input.Limit)
	if err != nil {
		return nil, CitationsOutput{}, err
	}
	return nil, toCitationsOutput(citations), nil
}

// handleStatus handles the status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if s.ports.Corpus == nil {
		return nil, StatusOutput{}, ErrCorpusUnavailable
	}
	status, err := s.ports.Corpus.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	output := StatusOutput{
		DocumentCount: status.DocumentCount,
		PassageCount:  status.PassageCount,
		StaleCount:    status.StaleCount,
		IndexVersion:  status.IndexVersion,
		Terms:         status.Terms,
		Fingerprint:   status.Fingerprint,
	}
	if !status.LastImportTime.IsZero() {
		output.LastImportTime = status.LastImportTime.UTC().Format(time.RFC3339)
	}
	return nil, output, nil
}

// handleImport handles the import tool invocation.
func (s *Server) handleImport(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ImportInput,
) (*mcp.CallToolResult, domain.ImportReport, error) {
	if s.ports.Import == nil {
		return nil, domain.ImportReport{}, ErrImportUnavailable
	}
	if len(input.Paths) == 0 {
		return nil, domain.ImportReport{}, fmt.Errorf("%w: no paths given", domain.ErrInvalidInput)
	}

	paths, err := filesystem.Expand(input.Paths)
	if err != nil {
		return nil, domain.ImportReport{}, err
	}

	report, err := s.ports.Import.Import(ctx, paths)
	if err != nil {
		return nil, domain.ImportReport{}, err
	}
	return nil, *report, nil
}

// handleRemove handles the remove tool invocation.
func (s *Server) handleRemove(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RemoveInput,
) (*mcp.CallToolResult, RemoveOutput, error) {
	if s.ports.Import == nil {
		return nil, RemoveOutput{}, ErrImportUnavailable
	}

	var (
		removed bool
		err     error
	)
	switch {
	case input.DocumentID > 0:
		removed, err = s.ports.Import.Remove(ctx, input.DocumentID)
	case input.Path != "":
		path, absErr := filepath.Abs(filesystem.ResolvePath(input.Path))
		if absErr != nil {
			return nil, RemoveOutput{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, absErr)
		}
		removed, err = s.ports.Import.RemovePath(ctx, path)
	default:
		return nil, RemoveOutput{}, fmt.Errorf("%w: document_id or path is required", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, RemoveOutput{}, err
	}
	return nil, RemoveOutput{Removed: removed}, nil
}

func toCitationsOutput(citations []domain.Citation) CitationsOutput {
	output := CitationsOutput{
		Citations: make([]CitationOutput, len(citations)),
		Count:     len(citations),
		Notice:    Notice,
	}
	for i := range citations {
		c := &citations[i]
		output.Citations[i] = CitationOutput{
			DocumentID:   c.DocumentID,
			DocumentName: c.DocumentName,
			Path:         c.Path,
			PassageID:    c.PassageID,
			Page:         c.Position.Page,
			Section:      c.Position.Section,
			Snippet:      c.Snippet,
			Score:        c.Score,
			Query:        c.Query,
		}
	}
	return output
}
