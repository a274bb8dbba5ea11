// Package fsmcp is the embedded MCP server (component C8): a separate
// process, spawned per session by the backend conversation engine, that
// exposes four filesystem tools backed by the loopback bridge (C7) over
// stdio JSON-RPC 2.0. The modelcontextprotocol/go-sdk handles the
// protocol plumbing (initialize, ping, tools/list, tools/call, and the
// notifications/initialized notification); this package only supplies the
// tool set.
package fsmcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codex-acp/codex-acp/internal/logging"
)

const (
	serverName    = "codex-acp-fs"
	serverVersion = "1.0.0"
)

// Server wraps the generic mcp.Server with the four acp_fs tools bound to
// a bridge client and this process's staged-edits state.
type Server struct {
	mcpSrv  *mcp.Server
	bridge  BridgeClient
	staging *stagingStore
	log     *slog.Logger
}

// NewServer builds a Server that reaches the filesystem through bridge.
func NewServer(bridge BridgeClient) *Server {
	s := &Server{
		mcpSrv:  mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
		bridge:  bridge,
		staging: newStagingStore(),
		log:     logging.FSMCP(),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpSrv, &mcp.Tool{
		Name: "read_text_file",
		Description: "Read a text file, optionally starting at a given line and capped to a line limit. " +
			"Large or long files are returned as a paged snippet with a <file-read-info> tag telling you " +
			"how to continue reading.",
	}, s.handleReadTextFile)

	mcp.AddTool(s.mcpSrv, &mcp.Tool{
		Name:        "write_text_file",
		Description: "Overwrite a text file with the given content, creating parent directories as needed.",
	}, s.handleWriteTextFile)

	mcp.AddTool(s.mcpSrv, &mcp.Tool{
		Name:        "edit_text_file",
		Description: "Replace one exact occurrence of old_string with new_string in a text file.",
	}, s.handleEditTextFile)

	mcp.AddTool(s.mcpSrv, &mcp.Tool{
		Name: "multi_edit_text_file",
		Description: "Apply a sequence of old_string/new_string edits to a text file, each applied against " +
			"the result of the previous one.",
	}, s.handleMultiEditTextFile)
}

// Run connects the server to stdio and blocks until the session ends.
func (s *Server) Run(ctx context.Context) error {
	transport := &mcp.StdioTransport{}
	session, err := s.mcpSrv.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("fsmcp: connect stdio transport: %w", err)
	}
	s.log.Info("fs mcp server started", "mode", "stdio")
	defer s.log.Info("fs mcp server stopped")
	return session.Wait()
}
