package translate

import (
	"encoding/json"
	"fmt"

	acpsdk "github.com/coder/acp-go-sdk"

	"github.com/codex-acp/codex-acp/internal/acp"
	"github.com/codex-acp/codex-acp/internal/backend"
)

// AgentMessageDelta turns a streamed assistant text delta into a session
// update. Empty deltas are dropped by the caller, not here.
func AgentMessageDelta(delta string) acpsdk.SessionUpdate {
	return acpsdk.UpdateAgentMessageText(delta)
}

// AgentThoughtDelta turns one chunk of already-aggregated reasoning text
// into a session update.
func AgentThoughtDelta(text string) acpsdk.SessionUpdate {
	return acpsdk.UpdateAgentThoughtText(text)
}

// McpToolCallBegin builds the tool_call session update announcing the start
// of an MCP invocation, with its title and locations resolved via
// DescribeMcpTool.
func McpToolCallBegin(cwd string, ev backend.McpToolCallBegin) acpsdk.SessionUpdate {
	title, locations := DescribeMcpTool(cwd, ev.Invocation)
	opts := []acpsdk.ToolCallStartOpt{
		acpsdk.WithStartStatus(acpsdk.ToolCallStatusPending),
		acpsdk.WithStartKind(mcpToolKind(ev.Invocation)),
	}
	if len(locations) > 0 {
		opts = append(opts, acpsdk.WithStartLocations(locations))
	}
	if raw, ok := rawInputOf(ev.Invocation); ok {
		opts = append(opts, acpsdk.WithStartRawInput(raw))
	}
	return acpsdk.StartToolCall(acpsdk.ToolCallId(ev.CallID), title, opts...)
}

// McpToolCallEnd builds the tool_call_update reporting an MCP invocation's
// outcome.
func McpToolCallEnd(ev backend.McpToolCallEnd) acpsdk.SessionUpdate {
	status := acpsdk.ToolCallStatusCompleted
	if !ev.Success {
		status = acpsdk.ToolCallStatusFailed
	}
	opts := []acpsdk.ToolCallUpdateOpt{
		acpsdk.WithUpdateStatus(status),
	}
	if text, ok := resultText(ev.Result); ok {
		opts = append(opts, acpsdk.WithUpdateContent([]acpsdk.ToolCallContent{
			acpsdk.ToolContent(acpsdk.TextBlock(text)),
		}))
	}
	return acpsdk.UpdateToolCall(acpsdk.ToolCallId(ev.CallID), opts...)
}

// ExecCommandBegin builds the tool_call session update announcing the start
// of a shell command execution.
func ExecCommandBegin(ev backend.ExecCommandBegin) acpsdk.SessionUpdate {
	formatted := FormatCommand(ev.Cwd, ev.ParsedCmd)
	opts := []acpsdk.ToolCallStartOpt{
		acpsdk.WithStartStatus(acpsdk.ToolCallStatusPending),
		acpsdk.WithStartKind(formatted.Kind),
		acpsdk.WithStartRawInput(map[string]any{"command": ev.Command, "cwd": ev.Cwd}),
	}
	if len(formatted.Locations) > 0 {
		opts = append(opts, acpsdk.WithStartLocations(formatted.Locations))
	}
	return acpsdk.StartToolCall(acpsdk.ToolCallId(ev.CallID), formatted.Title, opts...)
}

// ExecCommandEnd builds the tool_call_update reporting a shell command's
// outcome. The rendered output prefers FormattedOutput (already truncated
// and labelled by the backend) and falls back to AggregatedOutput.
func ExecCommandEnd(ev backend.ExecCommandEnd) acpsdk.SessionUpdate {
	status := acpsdk.ToolCallStatusCompleted
	if ev.ExitCode != 0 {
		status = acpsdk.ToolCallStatusFailed
	}
	output := ev.FormattedOutput
	if output == "" {
		output = ev.AggregatedOutput
	}
	opts := []acpsdk.ToolCallUpdateOpt{
		acpsdk.WithUpdateStatus(status),
		acpsdk.WithUpdateRawOutput(map[string]any{
				"exit_code":   ev.ExitCode,
				"duration_ms": ev.DurationMs,
		}),
	}
	if output != "" {
		opts = append(opts, acpsdk.WithUpdateContent([]acpsdk.ToolCallContent{
			acpsdk.ToolContent(acpsdk.TextBlock(output)),
		}))
	}
	return acpsdk.UpdateToolCall(acpsdk.ToolCallId(ev.CallID), opts...)
}

// ExecApprovalRequest builds the permission request asking the client to
// approve or reject a pending shell command.
func ExecApprovalRequest(sessionID string, ev backend.ExecApprovalRequest) acpsdk.RequestPermissionRequest {
	formatted := FormatCommand(ev.Cwd, ev.ParsedCmd)
	return acpsdk.RequestPermissionRequest{
		SessionId: acpsdk.SessionId(sessionID),
		ToolCall: acpsdk.RequestPermissionToolCall{
			ToolCallId: acpsdk.ToolCallId(ev.CallID),
			Title:      acpsdk.Ptr(formatted.Title),
			Kind:       acpsdk.Ptr(formatted.Kind),
			Status:     acpsdk.Ptr(acpsdk.ToolCallStatusPending),
			Locations:  formatted.Locations,
		},
		Options: acp.DefaultPermissionOptions(),
	}
}

// PatchApprovalRequest builds the permission request asking the client to
// approve or reject a pending file patch, with one diff content block per
// changed file.
func PatchApprovalRequest(cwd, sessionID string, ev backend.ApplyPatchApprovalRequest) acpsdk.RequestPermissionRequest {
	content := make([]acpsdk.ToolCallContent, 0, len(ev.Changes))
	locations := make([]acpsdk.ToolCallLocation, 0, len(ev.Changes))

	for _, entry := range ev.Changes {
		content = append(content, diffContentFor(entry))
		locations = append(locations, acpsdk.ToolCallLocation{Path: entry.Path})
	}

	return acpsdk.RequestPermissionRequest{
		SessionId: acpsdk.SessionId(sessionID),
		ToolCall: acpsdk.RequestPermissionToolCall{
			ToolCallId: acpsdk.ToolCallId(ev.CallID),
			Title:      acpsdk.Ptr(patchTitle(ev.Changes)),
			Kind:       acpsdk.Ptr(acpsdk.ToolKindEdit),
			Status:     acpsdk.Ptr(acpsdk.ToolCallStatusPending),
			Locations:  locations,
			Content:    content,
		},
		Options: acp.DefaultPermissionOptions(),
	}
}

// PatchApplyEnd builds the tool_call_update reporting a patch application's
// outcome.
func PatchApplyEnd(ev backend.PatchApplyEnd) acpsdk.SessionUpdate {
	status := acpsdk.ToolCallStatusCompleted
	if !ev.Success {
		status = acpsdk.ToolCallStatusFailed
	}
	output := ev.Stdout
	if !ev.Success && ev.Stderr != "" {
		output = ev.Stderr
	}
	opts := []acpsdk.ToolCallUpdateOpt{acpsdk.WithUpdateStatus(status)}
	if output != "" {
		opts = append(opts, acpsdk.WithUpdateContent([]acpsdk.ToolCallContent{
			acpsdk.ToolContent(acpsdk.TextBlock(output)),
		}))
	}
	return acpsdk.UpdateToolCall(acpsdk.ToolCallId(ev.CallID), opts...)
}

// PlanUpdate builds the plan session update from a backend plan snapshot.
func PlanUpdate(ev backend.PlanUpdate) acpsdk.SessionUpdate {
	entries := make([]acpsdk.PlanEntry, 0, len(ev.Plan))
	for _, item := range ev.Plan {
		entries = append(entries, acpsdk.PlanEntry{
			Content:  item.Step,
			Status:   planEntryStatus(item.Status),
			Priority: acpsdk.PlanEntryPriorityMedium,
		})
	}
	return acpsdk.UpdatePlan(entries...)
}

func planEntryStatus(s backend.PlanStepStatus) acpsdk.PlanEntryStatus {
	switch s {
	case backend.PlanStepInProgress:
		return acpsdk.PlanEntryStatusInProgress
	case backend.PlanStepCompleted:
		return acpsdk.PlanEntryStatusCompleted
	default:
		return acpsdk.PlanEntryStatusPending
	}
}

func diffContentFor(entry backend.FileChangeEntry) acpsdk.ToolCallContent {
	switch entry.Change.Kind {
	case backend.FileChangeAdd:
		return acpsdk.ToolDiffContent(entry.Path, entry.Change.Content)
	case backend.FileChangeDelete:
		return acpsdk.ToolDiffContent(entry.Path, "", entry.Change.Content)
	default: // FileChangeUpdate
		// The unified diff is placed in both old and new text: the client
		// renders it as pre-formatted diff text rather than a side-by-side
		// comparison either way.
		return acpsdk.ToolDiffContent(entry.Path, entry.Change.UnifiedDiff, entry.Change.UnifiedDiff)
	}
}

func patchTitle(changes []backend.FileChangeEntry) string {
	if len(changes) == 1 {
		return fmt.Sprintf("Edit %s", changes[0].Path)
	}
	return fmt.Sprintf("Edit %d files", len(changes))
}

func mcpToolKind(invocation backend.McpInvocation) acpsdk.ToolKind {
	if invocation.Server == "acp_fs" {
		switch invocation.Tool {
		case "read_text_file":
			return acpsdk.ToolKindRead
		case "write_text_file", "edit_text_file", "multi_edit_text_file":
			return acpsdk.ToolKindEdit
		}
	}
	return acpsdk.ToolKindOther
}

func rawInputOf(invocation backend.McpInvocation) (map[string]any, bool) {
	if len(invocation.Arguments) == 0 {
		return nil, false
	}
	var raw map[string]any
	if err := json.Unmarshal(invocation.Arguments, &raw); err != nil {
		return nil, false
	}
	return raw, true
}

// resultText renders an MCP tool result as display text, when it is a
// string or something JSON-serializable; returns false for a nil result.
func resultText(result any) (string, bool) {
	if result == nil {
		return "", false
	}
	if s, ok := result.(string); ok {
		return s, true
	}
	b, err := json.Marshal(result)
	if err != nil {
		return "", false
	}
	return string(b), true
}
