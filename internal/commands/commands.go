// Package commands implements the slash-command handler (component C9):
// parsing a leading "/name rest" prompt line and either answering it
// inline or handing back a backend.Op for the prompt loop (C11) to submit
// through the normal event-draining pipeline.
//
// Ground truth for the richer-than-spec.md behavior of /init and /status
// is the original Rust implementation's agent/commands.rs; the wire shape
// of session updates (message chunks, available-commands, current-mode)
// follows the same acp-go-sdk constructors the rest of the adapter uses.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	acpsdk "github.com/coder/acp-go-sdk"

	"github.com/codex-acp/codex-acp/internal/backend"
	"github.com/codex-acp/codex-acp/internal/logging"
	"github.com/codex-acp/codex-acp/internal/modes"
	"github.com/codex-acp/codex-acp/internal/sessionstore"
)

// Result is what dispatching a slash command produces.
type Result struct {
	// Handled is false when name isn't a known command; the caller should
	// fall through to normal prompt processing in that case.
	Handled bool

	// Updates are session updates (message chunks, mode changes, ...) the
	// caller emits immediately, in order, through the same channel C11
	// uses for streamed output.
	Updates []acpsdk.SessionUpdate

	// Op is set for "background" commands (/compact, /review, /quit):
	// the caller submits it in place of the translated UserInput op and
	// continues draining events as usual. Nil for inline commands, which
	// are fully resolved by the time Dispatch returns.
	Op backend.Op
}

// ClientFileReader probes whether path exists from the client's point of
// view (its possibly-unsaved editor buffers), used by /status and /init
// to detect AGENTS* files before falling back to a local os.Stat. A nil
// ClientFileReader (no read_text_file capability) skips straight to the
// local check.
type ClientFileReader func(ctx context.Context, path string) (string, error)

// Dispatcher resolves slash commands against one session's state.
type Dispatcher struct {
	Store      *sessionstore.Store
	Manager    backend.ConversationManager
	ClientRead ClientFileReader

	log *slog.Logger
}

// New builds a Dispatcher. manager and clientRead may be nil in contexts
// that never exercise /new or client-side AGENTS probing (e.g. unit tests
// of the other commands).
func New(store *sessionstore.Store, manager backend.ConversationManager, clientRead ClientFileReader) *Dispatcher {
	return &Dispatcher{Store: store, Manager: manager, ClientRead: clientRead, log: logging.Commands()}
}

// agentsFileCandidates mirrors the original's find_agents_files: the three
// casings it actually checks for, in this fixed order.
var agentsFileCandidates = []string{"AGENTS.md", "Agents.md", "agents.md"}

// Dispatch parses "/name rest" (name without the slash) and resolves it
// against sessionID's state. sessionID must already exist in d.Store.
func Dispatch(ctx context.Context, d *Dispatcher, sessionID, name, rest string) (Result, error) {
	d.log.Debug("dispatching slash command", "session_id", sessionID, "name", name)
	switch name {
	case "new":
		return d.handleNew(ctx, sessionID)
	case "init":
		return d.handleInit(ctx, sessionID, rest)
	case "status":
		return d.handleStatus(ctx, sessionID)
	case "model":
		return d.handleModel(ctx, sessionID, rest)
	case "approvals":
		return d.handleApprovals(ctx, sessionID, rest)
	case "compact":
		if err := d.clearTokenUsage(sessionID); err != nil {
			return Result{}, err
		}
		return Result{Handled: true, Op: backend.OpCompact{}}, nil
	case "review":
		return Result{Handled: true, Op: backend.OpReview{
			Prompt:         "review current changes",
			UserFacingHint: "current changes",
		}}, nil
	case "quit":
		return Result{Handled: true, Op: backend.OpShutdown{}}, nil
	default:
		return Result{Handled: false}, nil
	}
}

// Parse splits a prompt's first text block into (name, rest) if it starts
// with "/", e.g. "/model gpt-5" -> ("model", "gpt-5"). ok is false for text
// that isn't a slash command at all.
func Parse(text string) (name, rest string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	body := strings.TrimPrefix(text, "/")
	if body == "" {
		return "", "", false
	}
	if i := strings.IndexAny(body, " \t"); i >= 0 {
		return body[:i], strings.TrimSpace(body[i+1:]), true
	}
	return body, "", true
}

func chunk(text string) acpsdk.SessionUpdate {
	return acpsdk.UpdateAgentMessageText(text)
}

func (d *Dispatcher) clearTokenUsage(sessionID string) error {
	return d.Store.WithSessionStateMut(sessionID, func(st *sessionstore.SessionState) {
		st.HasTokenUsage = false
		st.TokenUsage = backend.TokenUsage{}
	})
}

// handleNew starts a fresh backend conversation within the same ACP
// session, keeping the session id stable (spec.md §4.9, confirmed exact
// mechanics by the original's /new handler).
func (d *Dispatcher) handleNew(ctx context.Context, sessionID string) (Result, error) {
	snap, ok := d.Store.Snapshot(sessionID)
	if !ok {
		return Result{}, fmt.Errorf("commands: unknown session %q", sessionID)
	}

	conv, _, err := d.Manager.NewConversation(ctx, snap.Config)
	if err != nil {
		return Result{
			Handled: true,
			Updates: []acpsdk.SessionUpdate{chunk(fmt.Sprintf("Failed to start new conversation: %v", err))},
		}, nil
	}

	if err := d.Store.SetConversation(sessionID, conv); err != nil {
		return Result{}, err
	}

	return Result{
		Handled: true,
		Updates: []acpsdk.SessionUpdate{chunk("Started a new conversation")},
	}, nil
}

// handleInit creates AGENTS.md in the session's workspace, refusing to
// overwrite an existing AGENTS* file unless forced.
func (d *Dispatcher) handleInit(ctx context.Context, sessionID, rest string) (Result, error) {
	snap, ok := d.Store.Snapshot(sessionID)
	if !ok {
		return Result{}, fmt.Errorf("commands: unknown session %q", sessionID)
	}
	cwd := snap.Config.Cwd

	force := isForceArg(rest)
	existing := d.findAgentsFiles(ctx, cwd)
	if len(existing) > 0 && !force {
		msg := fmt.Sprintf("AGENTS file already exists: %s\nUse /init --force to overwrite.", strings.Join(existing, ", "))
		return Result{Handled: true, Updates: []acpsdk.SessionUpdate{chunk(msg)}}, nil
	}

	target := filepath.Join(cwd, "AGENTS.md")
	err := os.MkdirAll(filepath.Dir(target), 0o755)
	if err == nil {
		err = os.WriteFile(target, []byte(agentsTemplate), 0o644)
	}

	var msg string
	if err != nil {
		msg = fmt.Sprintf("Failed to create AGENTS.md: %v\nPath: %s", err, shortenHome(target))
	} else {
		msg = fmt.Sprintf("Initialized AGENTS.md at %s\nEdit it to customize agent behavior.", shortenHome(target))
	}
	return Result{Handled: true, Updates: []acpsdk.SessionUpdate{chunk(msg)}}, nil
}

func isForceArg(rest string) bool {
	switch strings.TrimSpace(rest) {
	case "--force", "-f", "force":
		return true
	default:
		return false
	}
}

const agentsTemplate = `# AGENTS.md

This file gives the agent instructions for working in this repository. Place
project-specific tips here so it acts consistently with your workflows.

Scope
- The scope of this file is the entire repository (from this folder down).
- Add more AGENTS.md files in subdirectories for overrides; deeper files take precedence.

Coding Conventions
- Keep changes minimal and focused on the task.
- Match the existing code style and structure; avoid wholesale refactors.
- Don't add licenses or headers unless requested.

Workflow
- How to run and test: describe commands (e.g., go test ./...).
- Any environment variables or secrets required for local runs.
- Where to place new modules, configs, or scripts.

Reviews and Safety
- Point out risky or destructive actions before performing them.
- Prefer root-cause fixes over band-aids.
- When in doubt, ask for confirmation.

Notes for Agents
- Follow instructions in this file for all edits within its scope.
- Files in deeper directories with their own AGENTS.md override these rules.
`

// handleStatus renders the multi-section status block (spec.md §4.9,
// extended with the detected-files list and shortened paths per
// agent/commands.rs's render_status).
func (d *Dispatcher) handleStatus(ctx context.Context, sessionID string) (Result, error) {
	snap, ok := d.Store.Snapshot(sessionID)
	if !ok {
		return Result{}, fmt.Errorf("commands: unknown session %q", sessionID)
	}

	cwd := shortenHome(snap.Config.Cwd)
	agentsFiles := d.findAgentsFiles(ctx, snap.Config.Cwd)
	agentsLine := "(none)"
	if len(agentsFiles) > 0 {
		agentsLine = strings.Join(agentsFiles, ", ")
	}

	var input, output, total int64
	if snap.HasTokenUsage {
		input, output, total = snap.TokenUsage.InputTokens, snap.TokenUsage.OutputTokens, snap.TokenUsage.TotalTokens
	}

	text := fmt.Sprintf(
		"Workspace\n  Path: %s\n  Approval Mode: %s\n  Sandbox: %s\n  AGENTS files: %s\n\n"+
			"Model\n  Name: %s\n  Effort: %s\n\n"+
			"Token Usage\n  Session ID: %s\n  Input: %d\n  Output: %d\n  Total: %d",
		cwd, snap.CurrentApproval, snap.CurrentSandbox, agentsLine,
		snap.CurrentModel, snap.CurrentEffort,
		sessionID, input, output, total,
	)
	return Result{Handled: true, Updates: []acpsdk.SessionUpdate{chunk(text)}}, nil
}

// handleModel issues an override-turn-context op carrying only the model
// field (spec.md §4.9's Open Question (b): unlike set_session_model, this
// deliberately leaves effort untouched).
func (d *Dispatcher) handleModel(ctx context.Context, sessionID, rest string) (Result, error) {
	rest = strings.TrimSpace(rest)
	snap, ok := d.Store.Snapshot(sessionID)
	if !ok {
		return Result{}, fmt.Errorf("commands: unknown session %q", sessionID)
	}

	if rest == "" {
		msg := fmt.Sprintf("Current model: %s\nUsage: /model <model-slug>", snap.CurrentModel)
		return Result{Handled: true, Updates: []acpsdk.SessionUpdate{chunk(msg)}}, nil
	}

	conv, err := d.Store.GetConversation(sessionID)
	if err != nil {
		return Result{}, err
	}
	model := rest
	if _, err := conv.Submit(ctx, backend.OpOverrideTurnContext{Model: &model}); err != nil {
		return Result{}, fmt.Errorf("commands: submit model override: %w", err)
	}

	ack := fmt.Sprintf("Requested model change to: %s", rest)
	return Result{Handled: true, Updates: []acpsdk.SessionUpdate{chunk(ack)}}, nil
}

// handleApprovals looks up rest as a preset id from the same table C1 uses
// for session modes, applies the (approval, sandbox) override, updates
// session state, and emits a current-mode-update notification (spec.md
// §4.9 - a generalization of the original's raw AskForApproval values to
// the shared preset table).
func (d *Dispatcher) handleApprovals(ctx context.Context, sessionID, rest string) (Result, error) {
	value := strings.ToLower(strings.TrimSpace(rest))
	if value == "" || value == "show" {
		msg := "Current approval policy is configured per session. Use /approvals <mode> to set it."
		return Result{Handled: true, Updates: []acpsdk.SessionUpdate{chunk(msg)}}, nil
	}

	preset, ok := modes.FindByModeID(acpsdk.SessionModeId(value))
	if !ok {
		msg := "Usage: /approvals <mode>, one of: read-only, auto, auto-edit, full-access"
		return Result{Handled: true, Updates: []acpsdk.SessionUpdate{chunk(msg)}}, nil
	}

	conv, err := d.Store.GetConversation(sessionID)
	if err != nil {
		return Result{}, err
	}
	approval, sandbox := string(preset.Approval), string(preset.Sandbox)
	if _, err := conv.Submit(ctx, backend.OpOverrideTurnContext{
		ApprovalPolicy: &approval,
		SandboxPolicy:  &sandbox,
	}); err != nil {
		return Result{}, fmt.Errorf("commands: submit approvals override: %w", err)
	}

	if err := d.Store.WithSessionStateMut(sessionID, func(st *sessionstore.SessionState) {
		st.CurrentMode = acpsdk.SessionModeId(preset.ID)
		st.CurrentApproval = preset.Approval
		st.CurrentSandbox = preset.Sandbox
	}); err != nil {
		return Result{}, err
	}

	modeUpdate := acpsdk.SessionUpdate{
		CurrentModeUpdate: &acpsdk.SessionCurrentModeUpdate{
			SessionUpdate: "current_mode_update",
			CurrentModeId: acpsdk.SessionModeId(preset.ID),
		},
	}
	ack := fmt.Sprintf("Approval policy set to: %s", preset.ID)
	return Result{Handled: true, Updates: []acpsdk.SessionUpdate{chunk(ack), modeUpdate}}, nil
}

// findAgentsFiles probes the client's FS view first (so an unsaved editor
// buffer counts), falling back to a local os.Stat for any candidate the
// client couldn't resolve or when no client reader is wired at all.
func (d *Dispatcher) findAgentsFiles(ctx context.Context, cwd string) []string {
	var found []string
	for _, name := range agentsFileCandidates {
		path := filepath.Join(cwd, name)
		if d.clientHasFile(ctx, path) || localExists(path) {
			found = append(found, name)
		}
	}
	return found
}

func (d *Dispatcher) clientHasFile(ctx context.Context, path string) bool {
	if d.ClientRead == nil {
		return false
	}
	_, err := d.ClientRead(ctx, path)
	return err == nil
}

func localExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// shortenHome replaces a leading $HOME with "~", matching the original's
// shorten_home used throughout render_status.
func shortenHome(p string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return p
	}
	if strings.HasPrefix(p, home) {
		return "~" + strings.TrimPrefix(p, home)
	}
	return p
}

// AvailableCommands is the fixed AvailableCommandsUpdate payload pushed
// out of band right after new_session (C10), matching built_in_commands
// in the original.
func AvailableCommands() acpsdk.SessionUpdate {
	return acpsdk.SessionUpdate{
		AvailableCommandsUpdate: &acpsdk.SessionAvailableCommandsUpdate{
			SessionUpdate: "available_commands_update",
			AvailableCommands: []acpsdk.AvailableCommand{
				{Name: "new", Description: "start a new chat during a conversation"},
				{Name: "init", Description: "create an AGENTS.md file with instructions for the agent"},
				{Name: "compact", Description: "summarize conversation to prevent hitting the context limit"},
				{Name: "review", Description: "review my current changes and find issues"},
				{Name: "model", Description: "choose what model to use"},
				{Name: "approvals", Description: "choose what the agent can do without approval"},
				{Name: "status", Description: "show current session configuration and token usage"},
				{Name: "quit", Description: "exit"},
			},
		},
	}
}
