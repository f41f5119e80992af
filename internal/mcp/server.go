package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/docsynth/internal/audit"
	"github.com/ziadkadry99/docsynth/internal/documents"
	"github.com/ziadkadry99/docsynth/internal/research"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the research pipeline as tools.
type Server struct {
	research *research.Service
	store    *documents.Store
	activity *audit.Store
	logger   *slog.Logger
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies. activity
// may be nil, in which case tool calls are not recorded.
func NewServer(svc *research.Service, store *documents.Store, activity *audit.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		research: svc,
		store:    store,
		activity: activity,
		logger:   logger,
	}

	s.mcp = server.NewMCPServer(
		"docsynth",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(queryDocumentsTool, s.handleQueryDocuments)
	s.mcp.AddTool(identifyThemesTool, s.handleIdentifyThemes)
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
