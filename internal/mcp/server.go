// Package mcp serves one open vault session to AI agents over the Model
// Context Protocol. The tools are read-only and never return secret values.
package mcp

import (
	"context"
	"errors"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/forest6511/pman/pkg/audit"
	"github.com/forest6511/pman/pkg/session"
)

// ErrSessionNotOpen is returned by NewServer for a session that is not open.
var ErrSessionNotOpen = errors.New("mcp: vault session is not open")

// Server is the MCP server for pman.
type Server struct {
	server  *mcp.Server
	version string
	policy  *Policy
	log     *zap.Logger
	auditor session.Auditor

	// mu serializes tool calls; a VaultSession is single-threaded.
	mu sync.Mutex
	vs *session.VaultSession
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPolicy restricts the exposed groups. Without a policy every group is visible.
func WithPolicy(p *Policy) Option {
	return func(s *Server) { s.policy = p }
}

// WithAuditor records every tool call.
func WithAuditor(a session.Auditor) Option {
	return func(s *Server) { s.auditor = a }
}

// WithVersion sets the version reported to clients.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a server over vs, which must be open.
func NewServer(vs *session.VaultSession, opts ...Option) (*Server, error) {
	if vs == nil || vs.State() != session.StateOpen {
		return nil, ErrSessionNotOpen
	}

	s := &Server{
		vs:      vs,
		version: "dev",
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = mcp.NewServer(
		&mcp.Implementation{
			Name:    "pman",
			Version: s.version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "vault_info",
		Description: "Describe the open vault: name, number of groups and entries, user names and whether there are unsaved changes.",
	}, s.handleVaultInfo)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "group_list",
		Description: "List the groups of the vault with their entry counts.",
	}, s.handleGroupList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "entry_list",
		Description: "List entry names, optionally restricted to one group and to names matching a glob pattern. Does NOT return secret values.",
	}, s.handleEntryList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "entry_search",
		Description: "Find entries whose name contains the given text, ignoring case.",
	}, s.handleEntrySearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "entry_properties",
		Description: "List the property names of an entry. Does NOT return property values.",
	}, s.handleEntryProperties)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "entry_describe",
		Description: "Describe an entry: owner, masked password with its strength, URL presence, property names and version count. Does NOT return secret values.",
	}, s.handleEntryDescribe)
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("mcp server started", zap.String("vault", s.vs.Name()))
	defer s.log.Info("mcp server stopped")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close closes the vault session.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vs.Close()
	return nil
}

func (s *Server) recordCall(tool string, err error) {
	if err != nil {
		s.log.Warn("mcp tool failed", zap.String("tool", tool), zap.Error(err))
	} else {
		s.log.Debug("mcp tool call", zap.String("tool", tool))
	}
	if s.auditor != nil {
		s.auditor.Record(audit.OpMCPToolCall, tool, err)
	}
}
