// Package fsbridge is the localhost-loopback TCP bridge (component C7)
// standing between the embedded MCP server (C8, a separate process with
// no ACP connection of its own) and the ACP client's filesystem: every
// read or write attempts the client first, through the AcpFileClient
// passed to New, and falls back to the local disk otherwise. It also
// provides the Client half of the same wire protocol, imported by fsmcp.
package fsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	acp "github.com/coder/acp-go-sdk"

	"github.com/codex-acp/codex-acp/internal/logging"
)

// AcpFileClient is the subset of acp.AgentSideConnection's reverse-call
// surface the bridge needs. Satisfied by the real connection in
// production, and by a fake in tests.
type AcpFileClient interface {
	ReadTextFile(ctx context.Context, req acp.ReadTextFileRequest) (acp.ReadTextFileResponse, error)
	WriteTextFile(ctx context.Context, req acp.WriteTextFileRequest) (acp.WriteTextFileResponse, error)
}

// SessionResolver resolves a fs_session_id to its owning ACP session id.
// Implemented by sessionstore.SessionModeLookup in production.
type SessionResolver interface {
	ResolveAcpSessionID(id string) (string, bool)
}

// Bridge is one running loopback listener. Callers hold onto it to read
// its Addr and to Close it at shutdown.
type Bridge struct {
	root     string
	client   AcpFileClient
	sessions SessionResolver
	log      *slog.Logger

	listener net.Listener
}

// New builds a Bridge rooted at root (the directory relative request paths
// resolve against), not yet listening.
func New(root string, client AcpFileClient, sessions SessionResolver) *Bridge {
	return &Bridge{
		root:     root,
		client:   client,
		sessions: sessions,
		log:      logging.FSBridge(),
	}
}

// Start binds a TCP listener on 127.0.0.1 with an OS-chosen port and
// begins accepting connections in the background. The returned address is
// suitable for ACP_FS_BRIDGE_ADDR.
func (b *Bridge) Start() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("fsbridge: listen: %w", err)
	}
	b.listener = ln
	go b.acceptLoop()
	return ln.Addr().String(), nil
}

// Addr returns the bound address, or "" if Start has not been called.
func (b *Bridge) Addr() string {
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Close stops accepting new connections.
func (b *Bridge) Close() error {
	if b.listener == nil {
		return nil
	}
	return b.listener.Close()
}

// acceptLoop is the listener's accept loop. A per-connection error is
// logged and only closes that connection; an Accept error on the listener
// itself is fatal to the bridge and ends the loop.
func (b *Bridge) acceptLoop() {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			b.log.Error("listener accept failed, bridge shutting down", "error", err)
			return
		}
		go b.handleConn(conn)
	}
}

func (b *Bridge) handleConn(conn net.Conn) {
	defer conn.Close()

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if err != io.EOF {
				b.log.Warn("connection decode error", "error", err, "remote", conn.RemoteAddr())
			}
			return
		}
		resp := b.handle(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			b.log.Warn("connection encode error", "error", err, "remote", conn.RemoteAddr())
			return
		}
	}
}

func (b *Bridge) handle(ctx context.Context, req Request) Response {
	acpID, ok := b.sessions.ResolveAcpSessionID(req.SessionID)
	if !ok {
		return errResponse(req.ID, fmt.Errorf("fsbridge: unknown session %q", req.SessionID))
	}

	path, err := resolvePath(b.root, req.Path)
	if err != nil {
		return errResponse(req.ID, err)
	}

	switch req.Op {
	case opRead:
		return b.handleRead(ctx, acpID, path, req)
	case opWrite:
		return b.handleWrite(ctx, acpID, path, req)
	default:
		return errResponse(req.ID, fmt.Errorf("fsbridge: unknown op %q", req.Op))
	}
}

// handleRead attempts read_text_file via the ACP client first, so an
// editor's unsaved buffer wins over what's on disk, and only falls back to
// a local read when the client call fails.
func (b *Bridge) handleRead(ctx context.Context, acpSessionID, path string, req Request) Response {
	resp, err := b.client.ReadTextFile(ctx, acp.ReadTextFileRequest{
		SessionId: acp.SessionId(acpSessionID),
		Path:      path,
		Line:      req.Line,
		Limit:     req.Limit,
	})
	if err == nil {
		return Response{ID: req.ID, OK: true, Content: resp.Content}
	}
	b.log.Debug("client read_text_file failed, falling back to local disk", "path", path, "error", err)

	content, ferr := readLocal(path, req.Line, req.Limit)
	if ferr != nil {
		return errResponse(req.ID, ferr)
	}
	return Response{ID: req.ID, OK: true, Content: content}
}

// handleWrite attempts write_text_file via the ACP client first, and only
// falls back to a local write (creating parent directories) when the
// client call fails. C12 is the one responsible for never letting a write
// op reach here for a read-only session; the bridge does not re-check that
// policy itself.
func (b *Bridge) handleWrite(ctx context.Context, acpSessionID, path string, req Request) Response {
	_, err := b.client.WriteTextFile(ctx, acp.WriteTextFileRequest{
		SessionId: acp.SessionId(acpSessionID),
		Path:      path,
		Content:   req.Content,
	})
	if err == nil {
		return Response{ID: req.ID, OK: true}
	}
	b.log.Debug("client write_text_file failed, falling back to local disk", "path", path, "error", err)

	if ferr := writeLocal(path, req.Content); ferr != nil {
		return errResponse(req.ID, ferr)
	}
	return Response{ID: req.ID, OK: true}
}

func errResponse(id int64, err error) Response {
	return Response{ID: id, OK: false, Error: err.Error()}
}

// readLocal reads path from disk. When both line and limit are set, it
// returns the byte-identical line slice [line-1, line-1+limit); lines past
// EOF yield empty output rather than an error.
func readLocal(path string, line, limit *int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if line == nil && limit == nil {
		return string(data), nil
	}

	lines := strings.Split(string(data), "\n")
	start := 0
	if line != nil && *line > 1 {
		start = *line - 1
	}
	if start > len(lines) {
		start = len(lines)
	}

	end := len(lines)
	if limit != nil {
		end = start + *limit
		if end > len(lines) {
			end = len(lines)
		}
	}
	if start >= len(lines) {
		return "", nil
	}
	return strings.Join(lines[start:end], "\n"), nil
}

func writeLocal(path, content string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("fsbridge: mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("fsbridge: write %s: %w", path, err)
	}
	return nil
}
