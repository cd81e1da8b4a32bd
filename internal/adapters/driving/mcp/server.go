package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/policycite/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Instructions tells a connected assistant how the citation tools fit
// together.
const Instructions = `policycite cites passages from a local corpus of policy documents.
Use "lookup" with a summary whose points are "- " bullet lines to get citations for every point,
or "query" for a single sentence. Each citation names the document, page and section.
Citations are suggestions to confirm against the source, not compliance findings.
Use "status" to see what is imported and "import" or "remove" to change the corpus.`

// shutdownTimeout bounds how long open HTTP sessions may finish after cancellation.
const shutdownTimeout = 5 * time.Second

// Server exposes the citation services to assistants over MCP.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer registers the citation tools and corpus resources.
// Ports must carry at least the search service.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "policycite",
			Title:   "Policy citations",
			Version: Version,
		}, &mcp.ServerOptions{Instructions: Instructions}),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves one assistant over stdin and stdout until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("MCP server on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves streamable HTTP sessions on addr until ctx is done.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr: addr,
		Handler: mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return s.server
		}, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("MCP HTTP shutdown: %v", err)
		}
	}()

	logger.Debug("MCP server on http://%s", addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}
