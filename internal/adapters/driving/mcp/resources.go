package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for policycite resources.
	uriScheme = "policycite://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing documents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "List of all imported policy documents",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Template for a document's passages.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-passages",
		Description: "Passages of a specific document with page and section",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

// handleDocumentsResource returns a list of all imported documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Corpus == nil {
		return jsonResult(req.Params.URI, "[]"), nil
	}

	docs, err := s.ports.Corpus.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Path   string `json:"path"`
		Format string `json:"format"`
		Status string `json:"status"`
	}

	infos := make([]docInfo, len(docs))
	for i := range docs {
		infos[i] = docInfo{
			ID:     docs[i].ID,
			Name:   docs[i].Name(),
			Path:   docs[i].Path,
			Format: docs[i].Format.String(),
			Status: string(docs[i].Status),
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}
	return jsonResult(req.Params.URI, string(data)), nil
}

// handleDocumentResource returns the passages of a specific document.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Corpus == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	id, ok := extractDocumentID(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Corpus.GetDocument(ctx, id)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	passages, err := s.ports.Corpus.ListPassages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing passages: %w", err)
	}

	type passageInfo struct {
		ID      string `json:"id"`
		Ordinal int    `json:"ordinal"`
		Page    int    `json:"page,omitempty"`
		Section string `json:"section,omitempty"`
		Text    string `json:"text"`
	}
	type documentInfo struct {
		ID       int64         `json:"id"`
		Name     string        `json:"name"`
		Path     string        `json:"path"`
		Passages []passageInfo `json:"passages"`
	}

	info := documentInfo{
		ID:       doc.ID,
		Name:     doc.Name(),
		Path:     doc.Path,
		Passages: make([]passageInfo, len(passages)),
	}
	for i := range passages {
		info.Passages[i] = passageInfo{
			ID:      passages[i].ID,
			Ordinal: passages[i].Ordinal,
			Page:    passages[i].Position.Page,
			Section: passages[i].Position.Section,
			Text:    passages[i].Core(),
		}
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling document: %w", err)
	}
	return jsonResult(req.Params.URI, string(data)), nil
}

func jsonResult(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		}},
	}
}

// extractDocumentID extracts the document ID from a URI like policycite://documents/{documentId}.
func extractDocumentID(uri string) (int64, bool) {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return 0, false
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(uri, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
