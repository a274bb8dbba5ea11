// Package agentconfig builds per-session backend configuration (component
// C6): it folds the client's requested MCP servers together with our own
// always-on filesystem bridge server, and makes sure the FS-usage guidance
// paragraph is injected into the model's instructions exactly once.
package agentconfig

import (
	"fmt"
	"strings"

	"github.com/codex-acp/codex-acp/internal/backend"
)

// fsGuidanceSentinel is the dedup token: if it already appears anywhere in
// the instructions, guidance is not injected again.
const fsGuidanceSentinel = "acp_fs"

const fsGuidanceParagraph = `You have access to filesystem tools under the "acp_fs" MCP server: ` +
	`read_text_file, write_text_file, edit_text_file, and multi_edit_text_file. ` +
	`Prefer these over shell redirection for reading or changing files, since the ` +
	`editor may have unsaved buffers these tools account for.`

// FsBridgeServerName is the reserved MCP server name always injected by
// BuildSessionConfig.
const FsBridgeServerName = "acp_fs"

// ClientCapabilities is the subset of the client's advertised fs
// capabilities that determines which acp_fs tools are enabled.
type ClientCapabilities struct {
	ReadTextFile  bool
	WriteTextFile bool
}

// RequestedMcpServer is one MCP server the client asked to have available
// for the session, before it is translated into a backend.McpServerConfig.
type RequestedMcpServer struct {
	Name    string
	Kind    backend.McpServerTransportKind
	URL     string
	Command string
	Args    []string
	Env     map[string]string
}

const (
	defaultStartupTimeoutSec = 5
	defaultToolTimeoutSec    = 30
)

// BuildOptions carries everything BuildSessionConfig needs beyond the base
// config and the client's requested servers.
type BuildOptions struct {
	BridgeAddr   string // host:port of the running FS bridge (C7)
	FsSessionID  string
	SelfBinary   string // path to this process's own binary, for re-exec
	Capabilities ClientCapabilities
}

// BuildSessionConfig produces the backend.SessionConfig for a new session:
// base with the FS guidance paragraph injected and every requested server
// plus the always-on acp_fs bridge server wired in.
func BuildSessionConfig(base backend.SessionConfig, requested []RequestedMcpServer, opts BuildOptions) backend.SessionConfig {
	cfg := base
	cfg.BaseInstructions = injectGuidance(base.BaseInstructions, base.UserInstructions)

	servers := make(map[string]backend.McpServerConfig, len(requested)+1)
	for _, r := range requested {
		servers[r.Name] = backend.McpServerConfig{
			Transport:         r.Kind,
			URL:               r.URL,
			Command:           r.Command,
			Args:              r.Args,
			Env:               r.Env,
			StartupTimeoutSec: defaultStartupTimeoutSec,
			ToolTimeoutSec:    defaultToolTimeoutSec,
		}
	}
	servers[FsBridgeServerName] = fsBridgeServer(opts)
	cfg.McpServers = servers

	return cfg
}

// injectGuidance appends fsGuidanceParagraph to baseInstructions, unless
// the sentinel token already appears in either instructions field (the
// caller already injected it, e.g. across a /new that reuses the base).
func injectGuidance(baseInstructions, userInstructions string) string {
	if strings.Contains(baseInstructions, fsGuidanceSentinel) || strings.Contains(userInstructions, fsGuidanceSentinel) {
		return baseInstructions
	}
	if baseInstructions == "" {
		return fsGuidanceParagraph
	}
	return baseInstructions + "\n\n" + fsGuidanceParagraph
}

// fsBridgeServer builds the always-on "acp_fs" stdio MCP server: our own
// binary re-invoked with --acp-fs-mcp, pointed at the running bridge via
// environment variables, with the write tools disabled when the client
// can't support them.
func fsBridgeServer(opts BuildOptions) backend.McpServerConfig {
	var disabled []string
	if !opts.Capabilities.ReadTextFile {
		disabled = append(disabled, "read_text_file")
	}
	if !opts.Capabilities.WriteTextFile {
		disabled = append(disabled, "write_text_file", "edit_text_file", "multi_edit_text_file")
	}

	return backend.McpServerConfig{
		Transport: backend.McpTransportStdio,
		Command:   opts.SelfBinary,
		Args:      []string{"--acp-fs-mcp"},
		Env: map[string]string{
			"ACP_FS_BRIDGE_ADDR": opts.BridgeAddr,
			"ACP_FS_SESSION_ID":  opts.FsSessionID,
		},
		DisabledTools:     disabled,
		StartupTimeoutSec: defaultStartupTimeoutSec,
		ToolTimeoutSec:    defaultToolTimeoutSec,
	}
}

// ValidateRequestedServer rejects a requested server whose Kind doesn't
// carry the fields that kind requires, surfaced as an invalid-params error
// by C10's new_session.
func ValidateRequestedServer(r RequestedMcpServer) error {
	switch r.Kind {
	case backend.McpTransportHTTP, backend.McpTransportSSE:
		if r.URL == "" {
			return fmt.Errorf("agentconfig: mcp server %q: url is required for %s transport", r.Name, r.Kind)
		}
	case backend.McpTransportStdio:
		if r.Command == "" {
			return fmt.Errorf("agentconfig: mcp server %q: command is required for stdio transport", r.Name)
		}
	default:
		return fmt.Errorf("agentconfig: mcp server %q: unknown transport %q", r.Name, r.Kind)
	}
	return nil
}
