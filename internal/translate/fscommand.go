// Package translate implements the pure-function layer that turns backend
// events into ACP updates and permission requests (C3), plus the shell
// command / MCP invocation formatting helpers that back it (C4).
package translate

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/coder/acp-go-sdk"

	"github.com/codex-acp/codex-acp/internal/backend"
)

// FormatCommandCall is the formatted summary of a sequence of parsed shell
// commands: a title, the set of locations they touch, whether raw terminal
// output should be rendered, and the ACP tool kind.
type FormatCommandCall struct {
	Title          string
	Locations      []acp.ToolCallLocation
	TerminalOutput bool
	Kind           acp.ToolKind
}

// FormatCommand summarizes parsed into one FormatCommandCall, resolving any
// relative command paths against cwd.
func FormatCommand(cwd string, parsed []backend.ParsedCommand) FormatCommandCall {
	var titles []string
	var locations []acp.ToolCallLocation
	terminalOutput := false
	kind := acp.ToolKindExecute

	for _, cmd := range parsed {
		var cmdPath string
		hasPath := false

		switch cmd.Kind {
		case backend.ParsedCommandRead:
			titles = append(titles, fmt.Sprintf("Read %s", cmd.Name))
			cmdPath, hasPath = cmd.Path, true
			kind = acp.ToolKindRead
		case backend.ParsedCommandListFiles:
			dir := cwd
			if cmd.HasPath {
				dir = joinWorkspace(cwd, cmd.Path)
			}
			titles = append(titles, fmt.Sprintf("List %s", dir))
			if cmd.HasPath {
				cmdPath, hasPath = cmd.Path, true
			}
			kind = acp.ToolKindSearch
		case backend.ParsedCommandSearch:
			titles = append(titles, searchLabel(cmd))
			if cmd.HasPath {
				cmdPath, hasPath = cmd.Path, true
			}
			kind = acp.ToolKindSearch
		default: // ParsedCommandUnknown
			titles = append(titles, fmt.Sprintf("Run %s", cmd.Cmd))
			terminalOutput = true
		}

		if hasPath {
			locations = append(locations, acp.ToolCallLocation{
				Path: joinWorkspace(cwd, cmdPath),
			})
		}
	}

	return FormatCommandCall{
		Title:          strings.Join(titles, ", "),
		Locations:      locations,
		TerminalOutput: terminalOutput,
		Kind:           kind,
	}
}

func searchLabel(cmd backend.ParsedCommand) string {
	switch {
	case cmd.HasQuery && cmd.HasPath:
		return fmt.Sprintf("Search %s in %s", cmd.Query, cmd.Path)
	case cmd.HasQuery:
		return fmt.Sprintf("Search %s", cmd.Query)
	default:
		return fmt.Sprintf("Search %s", cmd.Cmd)
	}
}

func joinWorkspace(cwd, p string) string {
	if path.IsAbs(p) {
		return p
	}
	return path.Join(cwd, p)
}

// DisplayFSPath returns a user-facing display path for raw: a
// workspace-relative path when raw is under cwd, else just the file name,
// else raw itself unchanged.
func DisplayFSPath(cwd, raw string) string {
	if rel, ok := relativeTo(cwd, raw); ok && rel != "" {
		return rel
	}
	if name := path.Base(raw); name != "" && name != "." && name != "/" {
		return name
	}
	return raw
}

// relativeTo mimics Path::strip_prefix: raw must literally begin with cwd
// followed by a path separator (or equal cwd) to count as "under" it.
func relativeTo(cwd, raw string) (string, bool) {
	if cwd == "" {
		return "", false
	}
	cwdClean := strings.TrimRight(cwd, "/")
	switch {
	case raw == cwdClean:
		return "", true
	case strings.HasPrefix(raw, cwdClean+"/"):
		return strings.TrimPrefix(raw, cwdClean+"/"), true
	default:
		return "", false
	}
}

// FsToolMetadata is metadata extracted from an MCP invocation that targets
// one of our own FS tools, used to augment a tool call's title with a
// display path and a deep-linkable location.
type FsToolMetadata struct {
	DisplayPath  string
	LocationPath string
	Line         *int
}

// fsToolArgs is the subset of an acp_fs tool call's arguments we read for
// display purposes; unknown/extra fields are ignored.
type fsToolArgs struct {
	Path string `json:"path"`
	Line *int   `json:"line"`
}

// FsToolMetadataFor extracts FsToolMetadata from invocation, when it targets
// the "acp_fs" MCP server and a known FS tool name. Returns false otherwise.
func FsToolMetadataFor(cwd string, invocation backend.McpInvocation, unmarshalArgs func(backend.McpInvocation) (fsToolArgs, bool)) (FsToolMetadata, bool) {
	if invocation.Server != "acp_fs" {
		return FsToolMetadata{}, false
	}
	switch invocation.Tool {
	case "read_text_file", "write_text_file", "edit_text_file":
	default:
		return FsToolMetadata{}, false
	}
	args, ok := unmarshalArgs(invocation)
	if !ok || args.Path == "" {
		return FsToolMetadata{}, false
	}
	return FsToolMetadata{
		DisplayPath:  DisplayFSPath(cwd, args.Path),
		LocationPath: args.Path,
		Line:         args.Line,
	}, true
}

// DescribeMcpTool builds a human-friendly title and zero-or-one
// ToolCallLocation entries for an MCP invocation. FS-tool invocations get
// the display path folded into the title and a location entry; everything
// else just gets "<server>.<tool>".
func DescribeMcpTool(cwd string, invocation backend.McpInvocation) (string, []acp.ToolCallLocation) {
	meta, ok := FsToolMetadataFor(cwd, invocation, decodeFsToolArgs)
	if !ok {
		return fmt.Sprintf("%s.%s", invocation.Server, invocation.Tool), nil
	}
	loc := acp.ToolCallLocation{Path: meta.LocationPath}
	if meta.Line != nil {
		line := *meta.Line
		loc.Line = &line
	}
	return fmt.Sprintf("%s.%s (%s)", invocation.Server, invocation.Tool, meta.DisplayPath), []acp.ToolCallLocation{loc}
}

// decodeFsToolArgs unmarshals an MCP invocation's raw arguments into the
// fields DescribeMcpTool cares about. A malformed or absent arguments blob
// is not fatal: it simply fails to resolve, same as the upstream engine's
// best-effort metadata extraction.
func decodeFsToolArgs(invocation backend.McpInvocation) (fsToolArgs, bool) {
	if len(invocation.Arguments) == 0 {
		return fsToolArgs{}, false
	}
	var args fsToolArgs
	if err := json.Unmarshal(invocation.Arguments, &args); err != nil {
		return fsToolArgs{}, false
	}
	if args.Path == "" {
		return fsToolArgs{}, false
	}
	return args, true
}
