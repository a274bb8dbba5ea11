package translate

import (
	"testing"

	acpsdk "github.com/coder/acp-go-sdk"

	"github.com/codex-acp/codex-acp/internal/backend"
)

func TestAgentMessageDelta(t *testing.T) {
	u := AgentMessageDelta("hello")
	if u.AgentMessageChunk == nil {
		t.Fatal("expected AgentMessageChunk to be set")
	}
	if u.AgentMessageChunk.Content.Text == nil || u.AgentMessageChunk.Content.Text.Text != "hello" {
		t.Errorf("unexpected content: %+v", u.AgentMessageChunk.Content)
	}
}

func TestAgentThoughtDelta(t *testing.T) {
	u := AgentThoughtDelta("thinking")
	if u.AgentThoughtChunk == nil {
		t.Fatal("expected AgentThoughtChunk to be set")
	}
	if u.AgentThoughtChunk.Content.Text == nil || u.AgentThoughtChunk.Content.Text.Text != "thinking" {
		t.Errorf("unexpected content: %+v", u.AgentThoughtChunk.Content)
	}
}

func TestExecCommandBegin(t *testing.T) {
	ev := backend.ExecCommandBegin{
		CallID:  "call-1",
		Cwd:     "/work",
		Command: []string{"cat", "main.go"},
		ParsedCmd: []backend.ParsedCommand{
			{Kind: backend.ParsedCommandRead, Name: "main.go", Path: "main.go"},
		},
	}
	u := ExecCommandBegin(ev)
	if u.ToolCall == nil {
		t.Fatal("expected ToolCall to be set")
	}
	if string(u.ToolCall.ToolCallId) != "call-1" {
		t.Errorf("ToolCallId = %q", u.ToolCall.ToolCallId)
	}
	if u.ToolCall.Title != "Read main.go" {
		t.Errorf("Title = %q", u.ToolCall.Title)
	}
	if u.ToolCall.Status != acpsdk.ToolCallStatusPending {
		t.Errorf("Status = %v", u.ToolCall.Status)
	}
}

func TestExecCommandEnd_Success(t *testing.T) {
	ev := backend.ExecCommandEnd{CallID: "call-1", ExitCode: 0, FormattedOutput: "ok"}
	u := ExecCommandEnd(ev)
	if u.ToolCallUpdate == nil {
		t.Fatal("expected ToolCallUpdate to be set")
	}
	if u.ToolCallUpdate.Status == nil || *u.ToolCallUpdate.Status != acpsdk.ToolCallStatusCompleted {
		t.Errorf("Status = %v", u.ToolCallUpdate.Status)
	}
}

func TestExecCommandEnd_Failure(t *testing.T) {
	ev := backend.ExecCommandEnd{CallID: "call-1", ExitCode: 1, AggregatedOutput: "boom"}
	u := ExecCommandEnd(ev)
	if u.ToolCallUpdate.Status == nil || *u.ToolCallUpdate.Status != acpsdk.ToolCallStatusFailed {
		t.Errorf("Status = %v", u.ToolCallUpdate.Status)
	}
}

func TestExecApprovalRequest(t *testing.T) {
	ev := backend.ExecApprovalRequest{
		CallID: "call-2",
		Cwd:    "/work",
		ParsedCmd: []backend.ParsedCommand{
			{Kind: backend.ParsedCommandUnknown, Cmd: "make test"},
		},
	}
	req := ExecApprovalRequest("sess-1", ev)
	if string(req.SessionId) != "sess-1" {
		t.Errorf("SessionId = %q", req.SessionId)
	}
	if string(req.ToolCall.ToolCallId) != "call-2" {
		t.Errorf("ToolCallId = %q", req.ToolCall.ToolCallId)
	}
	if req.ToolCall.Title == nil || *req.ToolCall.Title != "Run make test" {
		t.Errorf("Title = %v", req.ToolCall.Title)
	}
	if len(req.Options) != 3 {
		t.Errorf("expected 3 options, got %d", len(req.Options))
	}
}

func TestPatchApprovalRequest_SingleFile(t *testing.T) {
	ev := backend.ApplyPatchApprovalRequest{
		CallID: "call-3",
		Changes: []backend.FileChangeEntry{
			{Path: "/work/a.go", Change: backend.FileChange{Kind: backend.FileChangeAdd, Content: "package a\n"}},
		},
	}
	req := PatchApprovalRequest("/work", "sess-1", ev)
	if req.ToolCall.Title == nil || *req.ToolCall.Title != "Edit /work/a.go" {
		t.Errorf("Title = %v", req.ToolCall.Title)
	}
	if len(req.ToolCall.Content) != 1 {
		t.Fatalf("expected 1 content block, got %d", len(req.ToolCall.Content))
	}
	if len(req.ToolCall.Locations) != 1 || req.ToolCall.Locations[0].Path != "/work/a.go" {
		t.Errorf("Locations = %+v", req.ToolCall.Locations)
	}
}

func TestPatchApprovalRequest_MultiFileTitle(t *testing.T) {
	ev := backend.ApplyPatchApprovalRequest{
		CallID: "call-4",
		Changes: []backend.FileChangeEntry{
			{Path: "a.go", Change: backend.FileChange{Kind: backend.FileChangeAdd, Content: "x"}},
			{Path: "b.go", Change: backend.FileChange{Kind: backend.FileChangeDelete, Content: "y"}},
		},
	}
	req := PatchApprovalRequest("/work", "sess-1", ev)
	if req.ToolCall.Title == nil || *req.ToolCall.Title != "Edit 2 files" {
		t.Errorf("Title = %v", req.ToolCall.Title)
	}
}

func TestPatchApplyEnd(t *testing.T) {
	u := PatchApplyEnd(backend.PatchApplyEnd{CallID: "call-3", Success: true, Stdout: "applied"})
	if u.ToolCallUpdate.Status == nil || *u.ToolCallUpdate.Status != acpsdk.ToolCallStatusCompleted {
		t.Errorf("Status = %v", u.ToolCallUpdate.Status)
	}
}

func TestPlanUpdate(t *testing.T) {
	u := PlanUpdate(backend.PlanUpdate{Plan: []backend.PlanItem{
		{Step: "one", Status: backend.PlanStepCompleted},
		{Step: "two", Status: backend.PlanStepInProgress},
	}})
	if u.Plan == nil {
		t.Fatal("expected Plan to be set")
	}
	if len(u.Plan.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(u.Plan.Entries))
	}
	if u.Plan.Entries[0].Status != acpsdk.PlanEntryStatusCompleted {
		t.Errorf("Entries[0].Status = %v", u.Plan.Entries[0].Status)
	}
	if u.Plan.Entries[1].Status != acpsdk.PlanEntryStatusInProgress {
		t.Errorf("Entries[1].Status = %v", u.Plan.Entries[1].Status)
	}
}

func TestMcpToolCallBegin_FsTool(t *testing.T) {
	ev := backend.McpToolCallBegin{
		CallID: "call-5",
		Invocation: backend.McpInvocation{
			Server:    "acp_fs",
			Tool:      "write_text_file",
			Arguments: []byte(`{"path":"/work/b.go"}`),
		},
	}
	u := McpToolCallBegin("/work", ev)
	if u.ToolCall == nil {
		t.Fatal("expected ToolCall to be set")
	}
	if u.ToolCall.Kind != acpsdk.ToolKindEdit {
		t.Errorf("Kind = %v", u.ToolCall.Kind)
	}
	if u.ToolCall.Title != "acp_fs.write_text_file (b.go)" {
		t.Errorf("Title = %q", u.ToolCall.Title)
	}
}

func TestMcpToolCallEnd_Failure(t *testing.T) {
	u := McpToolCallEnd(backend.McpToolCallEnd{CallID: "call-5", Success: false, Result: "denied"})
	if u.ToolCallUpdate.Status == nil || *u.ToolCallUpdate.Status != acpsdk.ToolCallStatusFailed {
		t.Errorf("Status = %v", u.ToolCallUpdate.Status)
	}
}
