// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only ledger tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/catdog/internal/dataset"
	"github.com/starford/catdog/internal/ledger"
	"github.com/starford/catdog/internal/models"
	"github.com/starford/catdog/internal/reconcile"
)

const ledgerFormatURI = "catdog://ledger-format"

// LedgerLoader loads the current ledger.
type LedgerLoader interface {
	Load() (*ledger.Snapshot, error)
}

// Verifier checks ledger and bucket agreement.
type Verifier interface {
	Verify(ctx context.Context) (*reconcile.Report, error)
}

// Server wraps the MCP server with catdog tools.
type Server struct {
	mcp      *server.MCPServer
	ledger   LedgerLoader
	verifier Verifier
}

// New creates a new MCP server with all tools registered. verifier may be
// nil, in which case verify_buckets is not offered.
func New(l LedgerLoader, verifier Verifier, version string) *Server {
	s := &Server{ledger: l, verifier: verifier}

	s.mcp = server.NewMCPServer(
		"catdog",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("ledger_stats",
		mcp.WithDescription("Count labeled images per label and per day."),
	), s.ledgerStats)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List live ledger entries in ledger order."),
		mcp.WithString("label", mcp.Description("Optional label filter"), mcp.Enum("cat", "dog")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("get_ledger_format",
		mcp.WithDescription("Returns the ledger file format contract."),
	), s.getLedgerFormat)

	if verifier != nil {
		s.mcp.AddTool(mcp.NewTool("verify_buckets",
			mcp.WithDescription("Compare the ledger with the bucket directories without changing anything."),
		), s.verifyBuckets)
	}

	s.mcp.AddResource(
		mcp.NewResource(ledgerFormatURI, "Ledger Format",
			mcp.WithResourceDescription("CSV format of the labeling ledger."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLedgerFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) ledgerStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.ledger.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(dataset.ComputeStats(snap.Entries))
}

func (s *Server) listEntries(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var filter models.Label
	if v, err := req.RequireString("label"); err == nil && v != "" {
		l, err := models.ParseLabel(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter = l
	}

	snap, err := s.ledger.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries := make([]models.LedgerEntry, 0, snap.Len())
	for _, e := range snap.Entries {
		if filter == "" || e.Label == filter {
			entries = append(entries, e)
		}
	}
	return jsonResult(entries)
}

func (s *Server) verifyBuckets(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.verifier.Verify(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("verify: %v", err)), nil
	}
	return jsonResult(rep)
}

func (s *Server) getLedgerFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LedgerFormatContract), nil
}

func (s *Server) readLedgerFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ledgerFormatURI,
			MIMEType: "text/markdown",
			Text:     LedgerFormatContract,
		},
	}, nil
}
