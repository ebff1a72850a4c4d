package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/devwiki/wikitools/internal/geo"
	"github.com/devwiki/wikitools/internal/history"
	"github.com/devwiki/wikitools/internal/lookup"
	"github.com/devwiki/wikitools/internal/mediawiki"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Deps are the read-only services exposed as tools. A nil service leaves
// its tools unregistered.
type Deps struct {
	Geo     *geo.Client
	Lookup  *lookup.Service
	History *history.Store
	Titles  *mediawiki.TitleValidator
}

// Server wraps an MCP server that exposes wiki lookup tools.
type Server struct {
	deps Deps
	mcp  *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(deps Deps) *Server {
	if deps.Titles == nil {
		deps.Titles = mediawiki.DefaultTitleValidator()
	}
	s := &Server{deps: deps}

	s.mcp = server.NewMCPServer(
		"wikitools",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(validateTitlesTool, s.handleValidateTitles)
	if s.deps.Geo != nil {
		s.mcp.AddTool(lookupIPTool, s.handleLookupIP)
	}
	if s.deps.Lookup != nil {
		s.mcp.AddTool(accountAgeTool, s.handleAccountAge)
		s.mcp.AddTool(pageCreatorTool, s.handlePageCreator)
		s.mcp.AddTool(usernameAvailableTool, s.handleUsernameAvailable)
	}
	if s.deps.History != nil {
		s.mcp.AddTool(listRunsTool, s.handleListRuns)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
