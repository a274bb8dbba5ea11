package engine

import (
	"encoding/json"
	"testing"

	"github.com/codex-acp/codex-acp/internal/backend"
)

func TestMarshalOp_UserInput(t *testing.T) {
	raw, err := marshalOp(backend.OpUserInput{Items: []backend.UserInputItem{{Kind: "text", Text: "hi"}}})
	if err != nil {
		t.Fatalf("marshalOp: %v", err)
	}
	var decoded struct {
		Type  string `json:"type"`
		Items []backend.UserInputItem
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != "user_input" || len(decoded.Items) != 1 || decoded.Items[0].Text != "hi" {
		t.Errorf("unexpected decode: %+v", decoded)
	}
}

func TestMarshalOp_UnknownType(t *testing.T) {
	if _, err := marshalOp(nil); err == nil {
		t.Fatal("expected an error for a nil op")
	}
}

func TestUnmarshalEventMsg_AgentMessageDelta(t *testing.T) {
	msg, err := unmarshalEventMsg(json.RawMessage(`{"type":"agent_message_delta","delta":"hello"}`))
	if err != nil {
		t.Fatalf("unmarshalEventMsg: %v", err)
	}
	delta, ok := msg.(backend.AgentMessageDelta)
	if !ok || delta.Delta != "hello" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestUnmarshalEventMsg_TaskComplete(t *testing.T) {
	msg, err := unmarshalEventMsg(json.RawMessage(`{"type":"task_complete"}`))
	if err != nil {
		t.Fatalf("unmarshalEventMsg: %v", err)
	}
	if _, ok := msg.(backend.TaskComplete); !ok {
		t.Errorf("expected TaskComplete, got %T", msg)
	}
}

func TestUnmarshalEventMsg_TokenCountAbsent(t *testing.T) {
	msg, err := unmarshalEventMsg(json.RawMessage(`{"type":"token_count"}`))
	if err != nil {
		t.Fatalf("unmarshalEventMsg: %v", err)
	}
	tc, ok := msg.(backend.TokenCount)
	if !ok || tc.HasInfo {
		t.Errorf("expected HasInfo=false, got %+v", msg)
	}
}

func TestUnmarshalEventMsg_TokenCountPresent(t *testing.T) {
	msg, err := unmarshalEventMsg(json.RawMessage(`{"type":"token_count","info":{"InputTokens":10,"OutputTokens":5,"TotalTokens":15}}`))
	if err != nil {
		t.Fatalf("unmarshalEventMsg: %v", err)
	}
	tc, ok := msg.(backend.TokenCount)
	if !ok || !tc.HasInfo || tc.Info.TotalTokens != 15 {
		t.Errorf("unexpected token count: %+v", msg)
	}
}

func TestUnmarshalEventMsg_UnknownType(t *testing.T) {
	if _, err := unmarshalEventMsg(json.RawMessage(`{"type":"not_a_real_event"}`)); err == nil {
		t.Fatal("expected an error for an unknown event type")
	}
}

func TestUnmarshalEventMsg_ExecApprovalRequest(t *testing.T) {
	msg, err := unmarshalEventMsg(json.RawMessage(`{"type":"exec_approval_request","call_id":"c1","cwd":"/w","parsed_cmd":[]}`))
	if err != nil {
		t.Fatalf("unmarshalEventMsg: %v", err)
	}
	req, ok := msg.(backend.ExecApprovalRequest)
	if !ok || req.CallID != "c1" || req.Cwd != "/w" {
		t.Errorf("unexpected request: %+v", msg)
	}
}
