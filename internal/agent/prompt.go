package agent

import (
	"context"

	acpsdk "github.com/coder/acp-go-sdk"

	"github.com/codex-acp/codex-acp/internal/acp"
	"github.com/codex-acp/codex-acp/internal/acperr"
	"github.com/codex-acp/codex-acp/internal/backend"
	"github.com/codex-acp/codex-acp/internal/commands"
	"github.com/codex-acp/codex-acp/internal/sessionstore"
	"github.com/codex-acp/codex-acp/internal/translate"
)

// Prompt implements acp.Agent: the per-turn event loop (C11), spec.md
// §4.11's six steps in order.
func (a *Agent) Prompt(ctx context.Context, req acpsdk.PromptRequest) (acpsdk.PromptResponse, error) {
	sessionID := string(req.SessionId)
	conv, err := a.store.GetConversation(sessionID)
	if err != nil {
		return acpsdk.PromptResponse{}, acperr.InvalidParams(err.Error())
	}

	// Step 1: slash-command interception.
	var backgroundOp backend.Op
	if name, rest, ok := leadingCommand(req.Prompt); ok {
		result, err := commands.Dispatch(ctx, a.commandDispatcher(sessionID), sessionID, name, rest)
		if err != nil {
			return acpsdk.PromptResponse{}, acperr.Internal(err.Error())
		}
		if result.Handled {
			for _, u := range result.Updates {
				if err := a.dispatcher.PushUpdate(ctx, sessionID, u); err != nil {
					return acpsdk.PromptResponse{}, err
				}
			}
			if result.Op == nil {
				return acpsdk.PromptResponse{StopReason: acpsdk.StopReasonEndTurn}, nil
			}
			backgroundOp = result.Op
		}
	}

	// Step 2: reset the reasoning aggregator.
	aggregator := a.reasoningAggregator(sessionID)
	aggregator.Reset()

	// Step 3/4: translate content (unless a background command supplied its
	// own op) and submit.
	op := backgroundOp
	if op == nil {
		op = backend.OpUserInput{Items: translate.UserInputItems(req.Prompt)}
	}
	submitID, err := conv.Submit(ctx, op)
	if err != nil {
		return acpsdk.PromptResponse{}, acperr.Internal(err.Error())
	}

	sawMessageDelta := false

	// Step 5: drain events belonging to this submission.
	for {
		ev, err := conv.NextEvent(ctx)
		if err != nil {
			return acpsdk.PromptResponse{}, acperr.Internal(err.Error())
		}
		if ev.ID != submitID {
			continue
		}

		switch msg := ev.Msg.(type) {
		case backend.AgentMessageDelta:
			sawMessageDelta = true
			if err := a.dispatcher.PushUpdate(ctx, sessionID, translate.AgentMessageDelta(msg.Delta)); err != nil {
				return acpsdk.PromptResponse{}, err
			}

		case backend.AgentMessage:
			if sawMessageDelta {
				continue
			}
			if err := a.dispatcher.PushUpdate(ctx, sessionID, translate.AgentMessageDelta(msg.Message)); err != nil {
				return acpsdk.PromptResponse{}, err
			}

		case backend.AgentReasoningDelta:
			aggregator.AppendDelta(msg.Delta)

		case backend.AgentReasoningRawContentDelta:
			aggregator.AppendDelta(msg.Delta)

		case backend.AgentReasoning:
			aggregator.SectionBreak()
			if text, ok := aggregator.ChooseFinalText(msg.Text, true); ok {
				if err := a.dispatcher.PushUpdate(ctx, sessionID, translate.AgentThoughtDelta(text)); err != nil {
					return acpsdk.PromptResponse{}, err
				}
			}

		case backend.AgentReasoningRawContent:
			aggregator.SectionBreak()
			aggregator.AppendDelta(msg.Text)

		case backend.AgentReasoningSectionBreak:
			aggregator.SectionBreak()

		case backend.McpToolCallBegin:
			cwd, _ := a.sessionCwd(sessionID)
			if err := a.dispatcher.PushUpdate(ctx, sessionID, translate.McpToolCallBegin(cwd, msg)); err != nil {
				return acpsdk.PromptResponse{}, err
			}

		case backend.McpToolCallEnd:
			if err := a.dispatcher.PushUpdate(ctx, sessionID, translate.McpToolCallEnd(msg)); err != nil {
				return acpsdk.PromptResponse{}, err
			}

		case backend.ExecCommandBegin:
			if err := a.dispatcher.PushUpdate(ctx, sessionID, translate.ExecCommandBegin(msg)); err != nil {
				return acpsdk.PromptResponse{}, err
			}

		case backend.ExecCommandEnd:
			if err := a.dispatcher.PushUpdate(ctx, sessionID, translate.ExecCommandEnd(msg)); err != nil {
				return acpsdk.PromptResponse{}, err
			}

		case backend.ExecApprovalRequest:
			decision, err := a.requestApproval(ctx, sessionID, translate.ExecApprovalRequest(sessionID, msg))
			if err != nil {
				return acpsdk.PromptResponse{}, err
			}
			if _, err := conv.Submit(ctx, backend.OpExecApproval{ID: msg.CallID, Decision: decision}); err != nil {
				return acpsdk.PromptResponse{}, acperr.Internal(err.Error())
			}

		case backend.ApplyPatchApprovalRequest:
			cwd, _ := a.sessionCwd(sessionID)
			decision, err := a.requestApproval(ctx, sessionID, translate.PatchApprovalRequest(cwd, sessionID, msg))
			if err != nil {
				return acpsdk.PromptResponse{}, err
			}
			if _, err := conv.Submit(ctx, backend.OpPatchApproval{ID: msg.CallID, Decision: decision}); err != nil {
				return acpsdk.PromptResponse{}, acperr.Internal(err.Error())
			}

		case backend.PatchApplyEnd:
			if err := a.dispatcher.PushUpdate(ctx, sessionID, translate.PatchApplyEnd(msg)); err != nil {
				return acpsdk.PromptResponse{}, err
			}

		case backend.TokenCount:
			if msg.HasInfo {
				_ = a.store.WithSessionStateMut(sessionID, func(st *sessionstore.SessionState) {
					st.HasTokenUsage = true
					st.TokenUsage = msg.Info
				})
			}

		case backend.PlanUpdate:
			if msg.HasExplanation && msg.Explanation != "" {
				if err := a.dispatcher.PushUpdate(ctx, sessionID, translate.AgentMessageDelta(msg.Explanation)); err != nil {
					return acpsdk.PromptResponse{}, err
				}
			}
			if err := a.dispatcher.PushUpdate(ctx, sessionID, translate.PlanUpdate(msg)); err != nil {
				return acpsdk.PromptResponse{}, err
			}

		case backend.TaskComplete:
			a.flushReasoning(ctx, sessionID, aggregator)
			return acpsdk.PromptResponse{StopReason: acpsdk.StopReasonEndTurn}, nil

		case backend.ErrorEvent:
			if err := a.dispatcher.PushUpdate(ctx, sessionID, translate.AgentMessageDelta(msg.Message+"\n\n")); err != nil {
				return acpsdk.PromptResponse{}, err
			}

		case backend.StreamErrorEvent:
			if err := a.dispatcher.PushUpdate(ctx, sessionID, translate.AgentMessageDelta(msg.Message+"\n\n")); err != nil {
				return acpsdk.PromptResponse{}, err
			}

		case backend.ShutdownComplete:
			a.flushReasoning(ctx, sessionID, aggregator)
			return acpsdk.PromptResponse{StopReason: acpsdk.StopReasonCancelled}, nil

		case backend.TurnAborted:
			a.flushReasoning(ctx, sessionID, aggregator)
			return acpsdk.PromptResponse{StopReason: acpsdk.StopReasonCancelled}, nil
		}
	}
}

// leadingCommand reports whether prompt's first content block is slash-
// command text, per spec.md §4.11 step 1.
func leadingCommand(prompt []acpsdk.ContentBlock) (name, rest string, ok bool) {
	if len(prompt) == 0 || prompt[0].Text == nil {
		return "", "", false
	}
	return commands.Parse(prompt[0].Text.Text)
}

// requestApproval sends req through the dispatcher's client-op channel and
// maps the reply to a backend.ReviewDecision. A channel/transport error is
// treated as an abort, per spec.md §4.11.
func (a *Agent) requestApproval(ctx context.Context, sessionID string, req acpsdk.RequestPermissionRequest) (backend.ReviewDecision, error) {
	resp, err := a.dispatcher.RequestPermission(ctx, req)
	if err != nil {
		return backend.ReviewAbort, nil
	}
	switch acp.DecideFromResponse(resp) {
	case acp.Approved:
		return backend.ReviewApproved, nil
	case acp.ApprovedForSession:
		return backend.ReviewApprovedForSession, nil
	default:
		return backend.ReviewAbort, nil
	}
}

// flushReasoning implements step 6: emit any reasoning text still buffered
// in the aggregator as a final thought chunk.
func (a *Agent) flushReasoning(ctx context.Context, sessionID string, aggregator interface{ TakeText() (string, bool) }) {
	if text, ok := aggregator.TakeText(); ok {
		_ = a.dispatcher.PushUpdate(ctx, sessionID, translate.AgentThoughtDelta(text))
	}
}

func (a *Agent) sessionCwd(sessionID string) (string, bool) {
	snap, ok := a.store.Snapshot(sessionID)
	if !ok {
		return "", false
	}
	return snap.Config.Cwd, true
}
