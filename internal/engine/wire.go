// Package engine is the one concrete backend.ConversationManager this repo
// ships: it spawns a configured external process and speaks newline-
// delimited JSON submissions/events over its stdin/stdout, the same shape
// as the conversation engine's own internal queue (id + typed payload).
// The engine process itself is the "underlying conversation engine" spec.md
// §1 calls out as an external collaborator; this package only owns the
// subprocess plumbing and wire encoding, grounded on the teacher's
// internal/acp.Connection subprocess pattern.
package engine

import (
	"encoding/json"
	"fmt"

	"github.com/codex-acp/codex-acp/internal/backend"
)

// wireEnvelope is the on-the-wire shape of one Submission: {"id", "op": {"type", ...}}.
type wireEnvelope struct {
	ID  string          `json:"id"`
	Op  json.RawMessage `json:"op,omitempty"`
	Msg json.RawMessage `json:"msg,omitempty"`
}

type typed struct {
	Type string `json:"type"`
}

func marshalOp(op backend.Op) (json.RawMessage, error) {
	switch o := op.(type) {
	case backend.OpUserInput:
		return marshalTyped("user_input", struct {
			Type  string                   `json:"type"`
			Items []backend.UserInputItem `json:"items"`
		}{"user_input", o.Items})
	case backend.OpOverrideTurnContext:
		return marshalTyped("override_turn_context", struct {
			Type           string  `json:"type"`
			Model          *string `json:"model,omitempty"`
			Effort         *string `json:"effort,omitempty"`
			ApprovalPolicy *string `json:"approval_policy,omitempty"`
			SandboxPolicy  *string `json:"sandbox_policy,omitempty"`
		}{"override_turn_context", o.Model, o.Effort, o.ApprovalPolicy, o.SandboxPolicy})
	case backend.OpCompact:
		return marshalTyped("compact", typed{"compact"})
	case backend.OpReview:
		return marshalTyped("review", struct {
			Type           string `json:"type"`
			Prompt         string `json:"prompt"`
			UserFacingHint string `json:"user_facing_hint"`
		}{"review", o.Prompt, o.UserFacingHint})
	case backend.OpInterrupt:
		return marshalTyped("interrupt", typed{"interrupt"})
	case backend.OpShutdown:
		return marshalTyped("shutdown", typed{"shutdown"})
	case backend.OpExecApproval:
		return marshalTyped("exec_approval", struct {
			Type     string                 `json:"type"`
			ID       string                 `json:"id"`
			Decision backend.ReviewDecision `json:"decision"`
		}{"exec_approval", o.ID, o.Decision})
	case backend.OpPatchApproval:
		return marshalTyped("patch_approval", struct {
			Type     string                 `json:"type"`
			ID       string                 `json:"id"`
			Decision backend.ReviewDecision `json:"decision"`
		}{"patch_approval", o.ID, o.Decision})
	default:
		return nil, fmt.Errorf("engine: unknown op type %T", op)
	}
}

func marshalTyped(_ string, v any) (json.RawMessage, error) {
	return json.Marshal(v)
}

// unmarshalEventMsg decodes raw into the concrete EventMsg its "type"
// discriminator names.
func unmarshalEventMsg(raw json.RawMessage) (backend.EventMsg, error) {
	var t typed
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("engine: decode event envelope: %w", err)
	}

	switch t.Type {
	case "agent_message_delta":
		var v struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.AgentMessageDelta{Delta: v.Delta}, nil
	case "agent_message":
		var v struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.AgentMessage{Message: v.Message}, nil
	case "agent_reasoning_delta":
		var v struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.AgentReasoningDelta{Delta: v.Delta}, nil
	case "agent_reasoning_raw_content_delta":
		var v struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.AgentReasoningRawContentDelta{Delta: v.Delta}, nil
	case "agent_reasoning":
		var v struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.AgentReasoning{Text: v.Text}, nil
	case "agent_reasoning_raw_content":
		var v struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.AgentReasoningRawContent{Text: v.Text}, nil
	case "agent_reasoning_section_break":
		return backend.AgentReasoningSectionBreak{}, nil
	case "mcp_tool_call_begin":
		var v struct {
			CallID     string               `json:"call_id"`
			Invocation backend.McpInvocation `json:"invocation"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.McpToolCallBegin{CallID: v.CallID, Invocation: v.Invocation}, nil
	case "mcp_tool_call_end":
		var v struct {
			CallID     string               `json:"call_id"`
			Invocation backend.McpInvocation `json:"invocation"`
			Result     any                  `json:"result"`
			Success    bool                 `json:"success"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.McpToolCallEnd{CallID: v.CallID, Invocation: v.Invocation, Result: v.Result, Success: v.Success}, nil
	case "exec_command_begin":
		var v struct {
			CallID    string                  `json:"call_id"`
			Cwd       string                  `json:"cwd"`
			Command   []string                `json:"command"`
			ParsedCmd []backend.ParsedCommand `json:"parsed_cmd"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.ExecCommandBegin{CallID: v.CallID, Cwd: v.Cwd, Command: v.Command, ParsedCmd: v.ParsedCmd}, nil
	case "exec_command_end":
		var v struct {
			CallID           string `json:"call_id"`
			ExitCode         int    `json:"exit_code"`
			AggregatedOutput string `json:"aggregated_output"`
			Stdout           string `json:"stdout"`
			Stderr           string `json:"stderr"`
			DurationMs       int64  `json:"duration_ms"`
			FormattedOutput  string `json:"formatted_output"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.ExecCommandEnd{
			CallID: v.CallID, ExitCode: v.ExitCode, AggregatedOutput: v.AggregatedOutput,
			Stdout: v.Stdout, Stderr: v.Stderr, DurationMs: v.DurationMs, FormattedOutput: v.FormattedOutput,
		}, nil
	case "exec_approval_request":
		var v struct {
			CallID    string                  `json:"call_id"`
			Cwd       string                  `json:"cwd"`
			ParsedCmd []backend.ParsedCommand `json:"parsed_cmd"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.ExecApprovalRequest{CallID: v.CallID, Cwd: v.Cwd, ParsedCmd: v.ParsedCmd}, nil
	case "apply_patch_approval_request":
		var v struct {
			CallID  string                    `json:"call_id"`
			Changes []backend.FileChangeEntry `json:"changes"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.ApplyPatchApprovalRequest{CallID: v.CallID, Changes: v.Changes}, nil
	case "patch_apply_end":
		var v struct {
			CallID  string `json:"call_id"`
			Success bool   `json:"success"`
			Stdout  string `json:"stdout"`
			Stderr  string `json:"stderr"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.PatchApplyEnd{CallID: v.CallID, Success: v.Success, Stdout: v.Stdout, Stderr: v.Stderr}, nil
	case "token_count":
		var v struct {
			Info *backend.TokenUsage `json:"info"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if v.Info == nil {
			return backend.TokenCount{}, nil
		}
		return backend.TokenCount{HasInfo: true, Info: *v.Info}, nil
	case "plan_update":
		var v struct {
			Explanation *string            `json:"explanation"`
			Plan        []backend.PlanItem `json:"plan"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		pu := backend.PlanUpdate{Plan: v.Plan}
		if v.Explanation != nil {
			pu.HasExplanation = true
			pu.Explanation = *v.Explanation
		}
		return pu, nil
	case "task_complete":
		return backend.TaskComplete{}, nil
	case "error":
		var v struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.ErrorEvent{Message: v.Message}, nil
	case "stream_error":
		var v struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return backend.StreamErrorEvent{Message: v.Message}, nil
	case "shutdown_complete":
		return backend.ShutdownComplete{}, nil
	case "turn_aborted":
		return backend.TurnAborted{}, nil
	default:
		return nil, fmt.Errorf("engine: unknown event type %q", t.Type)
	}
}
