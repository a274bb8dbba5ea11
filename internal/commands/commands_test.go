package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	acpsdk "github.com/coder/acp-go-sdk"

	"github.com/codex-acp/codex-acp/internal/backend"
	"github.com/codex-acp/codex-acp/internal/backend/backendtest"
	"github.com/codex-acp/codex-acp/internal/modes"
	"github.com/codex-acp/codex-acp/internal/sessionstore"
)

func newTestDispatcher(t *testing.T, cwd string) (*Dispatcher, *sessionstore.Store, *backendtest.Conversation) {
	t.Helper()
	conv := backendtest.NewConversation(nil)
	manager := backendtest.NewManager(func(cfg backend.SessionConfig) *backendtest.Conversation {
		return backendtest.NewConversation(nil)
	})
	store := sessionstore.New(manager)
	store.Insert("sess-1", &sessionstore.SessionState{
		FsSessionID:     "fs-1",
		Config:          backend.SessionConfig{Cwd: cwd, Model: "gpt-test"},
		CurrentMode:     modes.ReadOnlyModeID,
		CurrentApproval: modes.ApprovalNever,
		CurrentSandbox:  modes.SandboxReadOnly,
		CurrentModel:    "gpt-test",
	})
	if err := store.SetConversation("sess-1", conv); err != nil {
		t.Fatalf("SetConversation: %v", err)
	}
	return New(store, manager, nil), store, conv
}

func textOf(t *testing.T, u acpsdk.SessionUpdate) string {
	t.Helper()
	if u.AgentMessageChunk == nil {
		t.Fatalf("expected an AgentMessageChunk update, got %+v", u)
	}
	if u.AgentMessageChunk.Content.Text == nil {
		t.Fatalf("expected text content, got %+v", u.AgentMessageChunk.Content)
	}
	return u.AgentMessageChunk.Content.Text.Text
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		name string
		rest string
		ok   bool
	}{
		{"/model gpt-5", "model", "gpt-5", true},
		{"/status", "status", "", true},
		{"/approvals  auto ", "approvals", "auto", true},
		{"hello", "", "", false},
		{"/", "", "", false},
	}
	for _, c := range cases {
		name, rest, ok := Parse(c.in)
		if name != c.name || rest != c.rest || ok != c.ok {
			t.Errorf("Parse(%q) = (%q, %q, %v), want (%q, %q, %v)", c.in, name, rest, ok, c.name, c.rest, c.ok)
		}
	}
}

func TestDispatch_UnknownCommandNotHandled(t *testing.T) {
	d, _, _ := newTestDispatcher(t, t.TempDir())
	res, err := Dispatch(context.Background(), d, "sess-1", "bogus", "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Handled {
		t.Error("expected an unknown command to be unhandled")
	}
}

func TestDispatch_CompactReturnsBackgroundOp(t *testing.T) {
	d, store, _ := newTestDispatcher(t, t.TempDir())
	if err := store.WithSessionStateMut("sess-1", func(st *sessionstore.SessionState) {
		st.HasTokenUsage = true
		st.TokenUsage = backend.TokenUsage{TotalTokens: 42}
	}); err != nil {
		t.Fatalf("seed token usage: %v", err)
	}

	res, err := Dispatch(context.Background(), d, "sess-1", "compact", "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.Handled {
		t.Fatal("expected /compact to be handled")
	}
	if _, ok := res.Op.(backend.OpCompact); !ok {
		t.Fatalf("expected OpCompact, got %#v", res.Op)
	}
	snap, _ := store.Snapshot("sess-1")
	if snap.HasTokenUsage {
		t.Error("expected token usage to be cleared")
	}
}

func TestDispatch_ReviewReturnsBackgroundOp(t *testing.T) {
	d, _, _ := newTestDispatcher(t, t.TempDir())
	res, err := Dispatch(context.Background(), d, "sess-1", "review", "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	op, ok := res.Op.(backend.OpReview)
	if !ok {
		t.Fatalf("expected OpReview, got %#v", res.Op)
	}
	if op.Prompt == "" || op.UserFacingHint == "" {
		t.Errorf("expected non-empty review op fields, got %+v", op)
	}
}

func TestDispatch_QuitReturnsShutdownOp(t *testing.T) {
	d, _, _ := newTestDispatcher(t, t.TempDir())
	res, err := Dispatch(context.Background(), d, "sess-1", "quit", "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if _, ok := res.Op.(backend.OpShutdown); !ok {
		t.Fatalf("expected OpShutdown, got %#v", res.Op)
	}
}

func TestHandleNew_SwapsConversation(t *testing.T) {
	d, store, oldConv := newTestDispatcher(t, t.TempDir())
	res, err := Dispatch(context.Background(), d, "sess-1", "new", "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.Handled || len(res.Updates) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	got, err := store.GetConversation("sess-1")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got == oldConv {
		t.Error("expected the conversation handle to be replaced")
	}
}

func TestHandleInit_CreatesFileWhenAbsent(t *testing.T) {
	cwd := t.TempDir()
	d, _, _ := newTestDispatcher(t, cwd)
	res, err := Dispatch(context.Background(), d, "sess-1", "init", "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	text := textOf(t, res.Updates[0])
	if !strings.Contains(text, "Initialized AGENTS.md") {
		t.Errorf("unexpected message: %q", text)
	}
	if _, err := os.Stat(filepath.Join(cwd, "AGENTS.md")); err != nil {
		t.Errorf("expected AGENTS.md to exist: %v", err)
	}
}

func TestHandleInit_RefusesOverwriteWithoutForce(t *testing.T) {
	cwd := t.TempDir()
	if err := os.WriteFile(filepath.Join(cwd, "AGENTS.md"), []byte("existing"), 0o644); err != nil {
		t.Fatalf("seed AGENTS.md: %v", err)
	}
	d, _, _ := newTestDispatcher(t, cwd)
	res, err := Dispatch(context.Background(), d, "sess-1", "init", "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	text := textOf(t, res.Updates[0])
	if !strings.Contains(text, "already exists") {
		t.Errorf("unexpected message: %q", text)
	}
	body, _ := os.ReadFile(filepath.Join(cwd, "AGENTS.md"))
	if string(body) != "existing" {
		t.Errorf("expected file to be untouched, got %q", body)
	}
}

func TestHandleInit_ForceOverwrites(t *testing.T) {
	cwd := t.TempDir()
	if err := os.WriteFile(filepath.Join(cwd, "AGENTS.md"), []byte("existing"), 0o644); err != nil {
		t.Fatalf("seed AGENTS.md: %v", err)
	}
	d, _, _ := newTestDispatcher(t, cwd)
	res, err := Dispatch(context.Background(), d, "sess-1", "init", "--force")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	text := textOf(t, res.Updates[0])
	if !strings.Contains(text, "Initialized AGENTS.md") {
		t.Errorf("unexpected message: %q", text)
	}
	body, _ := os.ReadFile(filepath.Join(cwd, "AGENTS.md"))
	if string(body) == "existing" {
		t.Errorf("expected file to be overwritten")
	}
}

func TestHandleStatus_ReportsAgentsFilesAndTokens(t *testing.T) {
	cwd := t.TempDir()
	if err := os.WriteFile(filepath.Join(cwd, "AGENTS.md"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed AGENTS.md: %v", err)
	}
	d, store, _ := newTestDispatcher(t, cwd)
	if err := store.WithSessionStateMut("sess-1", func(st *sessionstore.SessionState) {
		st.HasTokenUsage = true
		st.TokenUsage = backend.TokenUsage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}
	}); err != nil {
		t.Fatalf("seed token usage: %v", err)
	}

	res, err := Dispatch(context.Background(), d, "sess-1", "status", "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	text := textOf(t, res.Updates[0])
	if !strings.Contains(text, "AGENTS.md") {
		t.Errorf("expected AGENTS.md to be listed: %q", text)
	}
	if !strings.Contains(text, "Total: 3") {
		t.Errorf("expected token totals: %q", text)
	}
}

func TestHandleStatus_NoAgentsFiles(t *testing.T) {
	d, _, _ := newTestDispatcher(t, t.TempDir())
	res, err := Dispatch(context.Background(), d, "sess-1", "status", "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	text := textOf(t, res.Updates[0])
	if !strings.Contains(text, "(none)") {
		t.Errorf("expected no AGENTS files to be reported: %q", text)
	}
}

func TestHandleModel_NoArgReportsCurrent(t *testing.T) {
	d, _, conv := newTestDispatcher(t, t.TempDir())
	res, err := Dispatch(context.Background(), d, "sess-1", "model", "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	text := textOf(t, res.Updates[0])
	if !strings.Contains(text, "Current model: gpt-test") {
		t.Errorf("unexpected message: %q", text)
	}
	if len(conv.Submitted()) != 0 {
		t.Error("expected no op submitted for a bare /model")
	}
}

func TestHandleModel_WithArgSubmitsOverride(t *testing.T) {
	d, _, conv := newTestDispatcher(t, t.TempDir())
	res, err := Dispatch(context.Background(), d, "sess-1", "model", "gpt-5")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	text := textOf(t, res.Updates[0])
	if !strings.Contains(text, "gpt-5") {
		t.Errorf("unexpected message: %q", text)
	}
	submitted := conv.Submitted()
	if len(submitted) != 1 {
		t.Fatalf("expected one submitted op, got %d", len(submitted))
	}
	op, ok := submitted[0].(backend.OpOverrideTurnContext)
	if !ok {
		t.Fatalf("expected OpOverrideTurnContext, got %#v", submitted[0])
	}
	if op.Model == nil || *op.Model != "gpt-5" {
		t.Errorf("expected model override, got %+v", op)
	}
	if op.Effort != nil {
		t.Error("expected /model to leave effort untouched")
	}
}

func TestHandleApprovals_NoArgShowsCurrent(t *testing.T) {
	d, _, conv := newTestDispatcher(t, t.TempDir())
	res, err := Dispatch(context.Background(), d, "sess-1", "approvals", "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	text := textOf(t, res.Updates[0])
	if !strings.Contains(text, "configured per session") {
		t.Errorf("unexpected message: %q", text)
	}
	if len(conv.Submitted()) != 0 {
		t.Error("expected no op submitted")
	}
}

func TestHandleApprovals_UnknownModeIsUsageMessage(t *testing.T) {
	d, _, _ := newTestDispatcher(t, t.TempDir())
	res, err := Dispatch(context.Background(), d, "sess-1", "approvals", "bogus-mode")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	text := textOf(t, res.Updates[0])
	if !strings.Contains(text, "Usage:") {
		t.Errorf("unexpected message: %q", text)
	}
}

func TestHandleApprovals_ValidPresetUpdatesStateAndSubmits(t *testing.T) {
	d, store, conv := newTestDispatcher(t, t.TempDir())
	res, err := Dispatch(context.Background(), d, "sess-1", "approvals", "full-access")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(res.Updates) != 2 {
		t.Fatalf("expected an ack chunk and a mode-update, got %d updates", len(res.Updates))
	}
	if res.Updates[1].CurrentModeUpdate == nil {
		t.Fatalf("expected a CurrentModeUpdate, got %+v", res.Updates[1])
	}
	if res.Updates[1].CurrentModeUpdate.CurrentModeId != "full-access" {
		t.Errorf("CurrentModeId = %q", res.Updates[1].CurrentModeUpdate.CurrentModeId)
	}

	snap, _ := store.Snapshot("sess-1")
	if snap.CurrentApproval != modes.ApprovalUnlessTrusted || snap.CurrentSandbox != modes.SandboxFullAccess {
		t.Errorf("session state not updated: %+v", snap)
	}

	submitted := conv.Submitted()
	if len(submitted) != 1 {
		t.Fatalf("expected one submitted op, got %d", len(submitted))
	}
	if _, ok := submitted[0].(backend.OpOverrideTurnContext); !ok {
		t.Fatalf("expected OpOverrideTurnContext, got %#v", submitted[0])
	}
}

func TestFindAgentsFiles_PrefersClientReadOverLocal(t *testing.T) {
	cwd := t.TempDir()
	store := sessionstore.New(nil)
	conv := backendtest.NewConversation(nil)
	store.Insert("sess-1", &sessionstore.SessionState{
		FsSessionID: "fs-1",
		Config:      backend.SessionConfig{Cwd: cwd},
	})
	if err := store.SetConversation("sess-1", conv); err != nil {
		t.Fatalf("SetConversation: %v", err)
	}

	var probed []string
	reader := func(ctx context.Context, path string) (string, error) {
		probed = append(probed, path)
		if filepath.Base(path) == "AGENTS.md" {
			return "content", nil
		}
		return "", errors.New("not found")
	}
	d := New(store, nil, reader)

	found := d.findAgentsFiles(context.Background(), cwd)
	if len(found) != 1 || found[0] != "AGENTS.md" {
		t.Errorf("found = %v", found)
	}
	if len(probed) != 3 {
		t.Errorf("expected all 3 candidates to be probed via the client reader, got %v", probed)
	}
}
