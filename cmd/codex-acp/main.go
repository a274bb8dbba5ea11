// Command codex-acp is the Agent-Client Protocol adapter binary. With no
// arguments it runs the parent agent over stdio; with --acp-fs-mcp it runs
// the embedded filesystem MCP server instead, reading its bridge address
// and session id from the environment (spec.md §6).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	acpsdk "github.com/coder/acp-go-sdk"
	"github.com/spf13/cobra"

	"github.com/codex-acp/codex-acp/internal/agent"
	"github.com/codex-acp/codex-acp/internal/agentconfig"
	"github.com/codex-acp/codex-acp/internal/engine"
	"github.com/codex-acp/codex-acp/internal/fsbridge"
	"github.com/codex-acp/codex-acp/internal/fsmcp"
	"github.com/codex-acp/codex-acp/internal/logging"
	"github.com/codex-acp/codex-acp/internal/sessionstore"
)

var (
	acpFsMcp   bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "codex-acp",
	Short:         "Agent-Client Protocol adapter for a Codex-like coding assistant",
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if acpFsMcp {
			return runFsMcp(cmd.Context())
		}
		return runAgent(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().BoolVar(&acpFsMcp, "acp-fs-mcp", false, "run the embedded filesystem MCP server instead of the parent agent")
	rootCmd.Flags().StringVar(&configPath, "config", "", "agent settings YAML path (defaults to $CODEX_ACP_HOME/config.yaml)")
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "codex-acp: %v\n", err)
		os.Exit(1)
	}
}

// runFsMcp runs the embedded MCP server (C8) over stdio, talking back to
// the parent's FS bridge (C7) over the loopback address the parent set in
// the environment.
func runFsMcp(ctx context.Context) error {
	if err := logging.Initialize(logging.FromEnv()); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer logging.Close()

	addr := os.Getenv("ACP_FS_BRIDGE_ADDR")
	sessionID := os.Getenv("ACP_FS_SESSION_ID")
	if addr == "" || sessionID == "" {
		return fmt.Errorf("ACP_FS_BRIDGE_ADDR and ACP_FS_SESSION_ID must both be set")
	}

	client := fsbridge.NewClient(addr, sessionID)
	srv := fsmcp.NewServer(client)
	return srv.Run(ctx)
}

// runAgent runs the parent agent: it starts the FS bridge, wires the
// session store, the conversation engine, the dispatcher, and finally the
// ACP connection over stdio.
func runAgent(ctx context.Context) error {
	if err := logging.Initialize(logging.FromEnv()); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer logging.Close()

	path := configPath
	if path == "" {
		path = agentconfig.DefaultSettingsPath()
	}
	settings, err := agentconfig.LoadSettings(path)
	if err != nil {
		return fmt.Errorf("load agent settings: %w", err)
	}

	selfBinary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own binary path: %w", err)
	}

	manager := &engine.Manager{Command: settings.EngineCommand, Logger: logging.Agent()}
	store := sessionstore.New(manager)

	wd, err := os.Getwd()
	if err != nil {
		wd = "/"
	}

	// Breaking the construction cycle: the dispatcher needs a Conn, the
	// Conn needs the Agent (to route incoming ACP calls), and the Agent
	// needs the dispatcher. connProxy lets the dispatcher be built first,
	// with the real connection plugged in once it exists, before anything
	// can observe the gap (nothing calls into the dispatcher until its Run
	// goroutine starts, below).
	proxy := &connProxy{}
	dispatcher := agent.NewDispatcher(proxy, store.Lookup())

	// The dispatcher is also the bridge's AcpFileClient: every outbound
	// read/write, whether it originates from the prompt loop or from the
	// MCP child's bridge traffic, passes through the same read-only gate
	// (see agent.NewDispatcher's doc comment).
	bridge := fsbridge.New(wd, dispatcher, store.Lookup())
	bridgeAddr, err := bridge.Start()
	if err != nil {
		return fmt.Errorf("start fs bridge: %w", err)
	}
	defer bridge.Close()

	ag := agent.NewAgent(store, manager, dispatcher, agent.Options{
		Settings:   settings,
		BridgeAddr: bridgeAddr,
		SelfBinary: selfBinary,
	})

	conn := acpsdk.NewAgentSideConnection(ag, os.Stdout, os.Stdin)
	conn.SetLogger(logging.ACP())
	proxy.set(conn)

	go dispatcher.Run(ctx)

	<-ctx.Done()
	return nil
}

// connProxy defers resolving the live *acpsdk.AgentSideConnection until
// after it exists: see runAgent's comment on the construction cycle.
type connProxy struct {
	mu   sync.RWMutex
	conn agent.Conn
}

func (p *connProxy) set(conn agent.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn = conn
}

func (p *connProxy) get() agent.Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn
}

func (p *connProxy) SessionUpdate(ctx context.Context, n acpsdk.SessionNotification) error {
	return p.get().SessionUpdate(ctx, n)
}

func (p *connProxy) RequestPermission(ctx context.Context, req acpsdk.RequestPermissionRequest) (acpsdk.RequestPermissionResponse, error) {
	return p.get().RequestPermission(ctx, req)
}

func (p *connProxy) ReadTextFile(ctx context.Context, req acpsdk.ReadTextFileRequest) (acpsdk.ReadTextFileResponse, error) {
	return p.get().ReadTextFile(ctx, req)
}

func (p *connProxy) WriteTextFile(ctx context.Context, req acpsdk.WriteTextFileRequest) (acpsdk.WriteTextFileResponse, error) {
	return p.get().WriteTextFile(ctx, req)
}
