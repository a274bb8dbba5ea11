package fsmcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fakeBridgeClient struct {
	readErr  error
	readResp string

	writeErr      error
	lastWritePath string
	lastWriteBody string
}

func (f *fakeBridgeClient) Read(path string, line, limit *int) (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	return f.readResp, nil
}

func (f *fakeBridgeClient) Write(path, content string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.lastWritePath = path
	f.lastWriteBody = content
	return nil
}

func newTestServer(bridge BridgeClient) *Server {
	return &Server{bridge: bridge, staging: newStagingStore()}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected 1 content block, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected *mcp.TextContent, got %T", res.Content[0])
	}
	return tc.Text
}

func TestHandleReadTextFile_NoTruncationHasNoMeta(t *testing.T) {
	bridge := &fakeBridgeClient{readResp: "one\ntwo\nthree"}
	s := newTestServer(bridge)

	res, _, err := s.handleReadTextFile(context.Background(), nil, ReadTextFileInput{Path: "f.txt"})
	if err != nil {
		t.Fatalf("handleReadTextFile: %v", err)
	}
	if resultText(t, res) != "one\ntwo\nthree" {
		t.Errorf("text = %q", resultText(t, res))
	}
	if res.Meta != nil {
		t.Errorf("expected no meta, got %+v", res.Meta)
	}
}

func TestHandleReadTextFile_TruncationAttachesMeta(t *testing.T) {
	bridge := &fakeBridgeClient{readResp: "1\n2\n3\n4\n5"}
	s := newTestServer(bridge)

	limit := 2
	res, _, err := s.handleReadTextFile(context.Background(), nil, ReadTextFileInput{Path: "f.txt", Limit: &limit})
	if err != nil {
		t.Fatalf("handleReadTextFile: %v", err)
	}
	if res.Meta == nil {
		t.Fatal("expected meta for a truncated read")
	}
	if _, ok := res.Meta[metaReadKey]; !ok {
		t.Errorf("expected %q key in meta, got %+v", metaReadKey, res.Meta)
	}
}

func TestHandleReadTextFile_BridgeErrorIsErrorResult(t *testing.T) {
	bridge := &fakeBridgeClient{readErr: errors.New("boom")}
	s := newTestServer(bridge)

	res, _, err := s.handleReadTextFile(context.Background(), nil, ReadTextFileInput{Path: "f.txt"})
	if err != nil {
		t.Fatalf("handleReadTextFile returned a Go error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected IsError result")
	}
}

func TestHandleWriteTextFile_WritesThroughBridge(t *testing.T) {
	bridge := &fakeBridgeClient{}
	s := newTestServer(bridge)

	res, _, err := s.handleWriteTextFile(context.Background(), nil, WriteTextFileInput{Path: "f.txt", Content: "hi"})
	if err != nil {
		t.Fatalf("handleWriteTextFile: %v", err)
	}
	if bridge.lastWritePath != "f.txt" || bridge.lastWriteBody != "hi" {
		t.Errorf("bridge write = %q, %q", bridge.lastWritePath, bridge.lastWriteBody)
	}
	if staged, ok := s.staging.get("f.txt"); !ok || staged != "hi" {
		t.Errorf("staging = %q, %v", staged, ok)
	}
	if strings.Contains(resultText(t, res), "Staged edits") {
		t.Errorf("did not expect staged-edits note: %q", resultText(t, res))
	}
}

func TestHandleWriteTextFile_PrefersStagedContentWhenContentEmpty(t *testing.T) {
	bridge := &fakeBridgeClient{}
	s := newTestServer(bridge)
	s.staging.set("f.txt", "staged body")

	res, _, err := s.handleWriteTextFile(context.Background(), nil, WriteTextFileInput{Path: "f.txt"})
	if err != nil {
		t.Fatalf("handleWriteTextFile: %v", err)
	}
	if bridge.lastWriteBody != "staged body" {
		t.Errorf("bridge wrote %q, want staged body", bridge.lastWriteBody)
	}
	if !strings.Contains(resultText(t, res), "Staged edits") {
		t.Errorf("expected staged-edits note: %q", resultText(t, res))
	}
}

func TestHandleEditTextFile_AppliesEditAndReturnsDiff(t *testing.T) {
	bridge := &fakeBridgeClient{readResp: "hello world"}
	s := newTestServer(bridge)

	res, _, err := s.handleEditTextFile(context.Background(), nil, EditTextFileInput{
		Path: "f.txt", OldString: "world", NewString: "there",
	})
	if err != nil {
		t.Fatalf("handleEditTextFile: %v", err)
	}
	if bridge.lastWriteBody != "hello there" {
		t.Errorf("bridge wrote %q", bridge.lastWriteBody)
	}
	if res.Meta == nil {
		t.Fatal("expected diff meta to be attached")
	}
	if _, ok := res.Meta[metaDiffKey]; !ok {
		t.Errorf("expected %q in meta", metaDiffKey)
	}
	if !strings.Contains(resultText(t, res), "Applied edits to f.txt.") {
		t.Errorf("expected completion line, got %q", resultText(t, res))
	}
}

func TestHandleEditTextFile_NoChangesShortCircuitsWithoutWrite(t *testing.T) {
	bridge := &fakeBridgeClient{readResp: "same same"}
	s := newTestServer(bridge)

	res, _, err := s.handleEditTextFile(context.Background(), nil, EditTextFileInput{
		Path: "f.txt", OldString: "same", NewString: "same",
	})
	if err != nil {
		t.Fatalf("handleEditTextFile: %v", err)
	}
	if bridge.lastWritePath != "" {
		t.Errorf("expected no write, got write to %q", bridge.lastWritePath)
	}
	if resultText(t, res) != "No changes detected" {
		t.Errorf("text = %q", resultText(t, res))
	}
}

func TestHandleEditTextFile_MissingOccurrenceIsErrorResult(t *testing.T) {
	bridge := &fakeBridgeClient{readResp: "hello world"}
	s := newTestServer(bridge)

	res, _, err := s.handleEditTextFile(context.Background(), nil, EditTextFileInput{
		Path: "f.txt", OldString: "nope", NewString: "x",
	})
	if err != nil {
		t.Fatalf("handleEditTextFile returned a Go error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected IsError result")
	}
}

func TestHandleEditTextFile_UsesStagedBaseOverBridgeRead(t *testing.T) {
	bridge := &fakeBridgeClient{readResp: "on disk"}
	s := newTestServer(bridge)
	s.staging.set("f.txt", "staged content")

	_, _, err := s.handleEditTextFile(context.Background(), nil, EditTextFileInput{
		Path: "f.txt", OldString: "staged", NewString: "STAGED",
	})
	if err != nil {
		t.Fatalf("handleEditTextFile: %v", err)
	}
	if bridge.lastWriteBody != "STAGED content" {
		t.Errorf("bridge wrote %q", bridge.lastWriteBody)
	}
}

func TestHandleEditTextFile_MissingFileYieldsEmptyBase(t *testing.T) {
	bridge := &fakeBridgeClient{readErr: errors.New("not found")}
	s := newTestServer(bridge)

	res, _, err := s.handleEditTextFile(context.Background(), nil, EditTextFileInput{
		Path: "new.txt", OldString: "x", NewString: "y",
	})
	if err != nil {
		t.Fatalf("handleEditTextFile: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected an error result since old_string can't match an empty base, got %q", resultText(t, res))
	}
}

func TestHandleMultiEditTextFile_AppliesInOrder(t *testing.T) {
	bridge := &fakeBridgeClient{readResp: "one two three"}
	s := newTestServer(bridge)

	res, _, err := s.handleMultiEditTextFile(context.Background(), nil, MultiEditTextFileInput{
		Path: "f.txt",
		Edits: []EditInstruction{
			{OldString: "one", NewString: "1"},
			{OldString: "three", NewString: "3"},
		},
	})
	if err != nil {
		t.Fatalf("handleMultiEditTextFile: %v", err)
	}
	if bridge.lastWriteBody != "1 two 3" {
		t.Errorf("bridge wrote %q", bridge.lastWriteBody)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %q", resultText(t, res))
	}
}
