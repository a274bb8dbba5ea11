package fsmcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const metaReadKey = "codex_fs_read"
const metaDiffKey = "codex_fs_diff"

// BridgeClient is the wire client a Server talks to the bridge (C7)
// through. Satisfied by *fsbridge.Client.
type BridgeClient interface {
	Read(path string, line, limit *int) (string, error)
	Write(path, content string) error
}

func (s *Server) handleReadTextFile(ctx context.Context, req *mcp.CallToolRequest, input ReadTextFileInput) (*mcp.CallToolResult, any, error) {
	startLine := 1
	if input.Line != nil {
		startLine = *input.Line
	}
	limit := defaultLineLimit
	if input.Limit != nil {
		limit = *input.Limit
	}

	bridgeLimit := limit + 1
	raw, err := s.bridge.Read(input.Path, &startLine, &bridgeLimit)
	if err != nil {
		return errResult(err), nil, nil
	}

	text, meta := pagedRead(raw, startLine, limit)
	result := &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
	if meta != nil {
		result.Meta = map[string]any{metaReadKey: meta}
	}
	return result, nil, nil
}

func (s *Server) handleWriteTextFile(ctx context.Context, req *mcp.CallToolRequest, input WriteTextFileInput) (*mcp.CallToolResult, any, error) {
	content := input.Content
	usedStaged := false
	if staged, ok := s.staging.get(input.Path); ok && (input.Content == "" || input.Content == staged) {
		content = staged
		usedStaged = true
	}

	if err := s.bridge.Write(input.Path, content); err != nil {
		return errResult(err), nil, nil
	}
	s.staging.set(input.Path, content)

	text := fmt.Sprintf("Wrote %d bytes to %s.", len(content), input.Path)
	if usedStaged {
		text += " Staged edits were applied."
	}
	return textResult(text), nil, nil
}

func (s *Server) handleEditTextFile(ctx context.Context, req *mcp.CallToolRequest, input EditTextFileInput) (*mcp.CallToolResult, any, error) {
	return s.applyEditsAndRespond(input.Path, []EditInstruction{
		{OldString: input.OldString, NewString: input.NewString},
	})
}

func (s *Server) handleMultiEditTextFile(ctx context.Context, req *mcp.CallToolRequest, input MultiEditTextFileInput) (*mcp.CallToolResult, any, error) {
	return s.applyEditsAndRespond(input.Path, input.Edits)
}

// applyEditsAndRespond implements the shared staging algorithm for both
// edit_text_file and multi_edit_text_file: resolve a base (staged content,
// else a fresh bridge read, else empty on a missing file), apply every
// instruction in order, and either report "no changes" or write the result
// back and stage it.
func (s *Server) applyEditsAndRespond(path string, edits []EditInstruction) (*mcp.CallToolResult, any, error) {
	base, ok := s.staging.get(path)
	if !ok {
		content, err := s.bridge.Read(path, nil, nil)
		if err != nil {
			base = ""
		} else {
			base = content
		}
	}

	updated, err := applyEdits(base, edits)
	if err != nil {
		return errResult(err), nil, nil
	}

	if updated == base {
		return textResult("No changes detected"), nil, nil
	}

	diff, err := unifiedDiff(path, base, updated)
	if err != nil {
		return errResult(fmt.Errorf("fsmcp: compute diff: %w", err)), nil, nil
	}

	if err := s.bridge.Write(path, updated); err != nil {
		return errResult(err), nil, nil
	}
	s.staging.set(path, updated)

	meta := parseDiffRanges(diff)
	text := diff + "\n" + completionLine(path)
	result := textResult(text)
	result.Meta = map[string]any{metaDiffKey: meta}
	return result, nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}
