package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/shlex"
	"github.com/google/uuid"

	"github.com/codex-acp/codex-acp/internal/backend"
)

// Manager spawns one subprocess per conversation, all running the same
// configured command. Command is split with shlex, matching the teacher's
// own space-separated server-command convention.
type Manager struct {
	Command string
	Logger  *slog.Logger
}

var _ backend.ConversationManager = (*Manager)(nil)

func (m *Manager) NewConversation(ctx context.Context, cfg backend.SessionConfig) (backend.Conversation, string, error) {
	args, err := shlex.Split(m.Command)
	if err != nil || len(args) == 0 {
		return nil, "", fmt.Errorf("engine: invalid engine command %q: %w", m.Command, err)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = cfg.Cwd
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), sessionConfigEnv(cfg)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, "", fmt.Errorf("engine: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, "", fmt.Errorf("engine: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, "", fmt.Errorf("engine: start engine process: %w", err)
	}

	conversationID := uuid.New().String()
	conv := &conversation{
		cmd:     cmd,
		stdin:   stdin,
		scanner: bufio.NewScanner(stdout),
		events:  make(chan backend.Event, 64),
		errc:    make(chan error, 1),
		logger:  m.Logger,
	}
	conv.scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	go conv.readLoop()

	return conv, conversationID, nil
}

// sessionConfigEnv flattens the per-session config the child process needs
// at startup into environment variables, mirroring how C7's child (fsmcp)
// already receives its own session context via ACP_FS_BRIDGE_ADDR/
// ACP_FS_SESSION_ID.
func sessionConfigEnv(cfg backend.SessionConfig) []string {
	env := []string{
		"CODEX_ACP_MODEL=" + cfg.Model,
		"CODEX_ACP_EFFORT=" + cfg.Effort,
		"CODEX_ACP_APPROVAL_POLICY=" + cfg.ApprovalPolicy,
		"CODEX_ACP_SANDBOX_POLICY=" + cfg.SandboxPolicy,
	}
	if cfg.BaseInstructions != "" {
		env = append(env, "CODEX_ACP_BASE_INSTRUCTIONS="+cfg.BaseInstructions)
	}
	if cfg.UserInstructions != "" {
		env = append(env, "CODEX_ACP_USER_INSTRUCTIONS="+cfg.UserInstructions)
	}
	return env
}

// conversation is a backend.Conversation backed by one running engine
// subprocess: writes go to its stdin as one JSON line per submission, reads
// come from its stdout, one JSON line per event.
type conversation struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner
	logger  *slog.Logger

	writeMu sync.Mutex

	events chan backend.Event
	errc   chan error
}

var _ backend.Conversation = (*conversation)(nil)

func (c *conversation) Submit(ctx context.Context, op backend.Op) (string, error) {
	raw, err := marshalOp(op)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	env := wireEnvelope{ID: id, Op: raw}
	line, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("engine: encode submission: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.stdin.Write(append(line, '\n')); err != nil {
		return "", fmt.Errorf("engine: write submission: %w", err)
	}
	return id, nil
}

func (c *conversation) NextEvent(ctx context.Context) (backend.Event, error) {
	select {
	case ev, ok := <-c.events:
		if !ok {
			select {
			case err := <-c.errc:
				return backend.Event{}, err
			default:
				return backend.Event{}, io.EOF
			}
		}
		return ev, nil
	case <-ctx.Done():
		return backend.Event{}, ctx.Err()
	}
}

// readLoop decodes one JSON line at a time from the child's stdout and
// pushes decoded events onto c.events, preserving arrival order (spec.md
// P9's single in-order stream per conversation).
func (c *conversation) readLoop() {
	defer close(c.events)
	for c.scanner.Scan() {
		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}
		var env wireEnvelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			if c.logger != nil {
				c.logger.Error("engine: malformed event line", "error", err)
			}
			continue
		}
		msg, err := unmarshalEventMsg(env.Msg)
		if err != nil {
			if c.logger != nil {
				c.logger.Error("engine: undecodable event", "error", err)
			}
			continue
		}
		c.events <- backend.Event{ID: env.ID, Msg: msg}
	}
	if err := c.scanner.Err(); err != nil {
		c.errc <- fmt.Errorf("engine: read engine stdout: %w", err)
		return
	}
	c.errc <- fmt.Errorf("engine: process exited: %w", c.cmd.Wait())
}
