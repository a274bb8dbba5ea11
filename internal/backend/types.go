// Package backend models the interface consumed from the underlying
// conversation engine: the typed operations the agent submits and the typed
// events it streams back. The engine itself is an external collaborator
// (out of scope, per the adapter's design); this package only pins down the
// shapes the rest of the agent needs to compile and test against, plus (in
// the backendtest subpackage) a minimal in-memory double for exercising the
// prompt loop without a real backend.
package backend

import "encoding/json"

// McpInvocation describes one MCP tool call as reported by the backend
// inside McpToolCallBegin/End events.
type McpInvocation struct {
	Server    string
	Tool      string
	Arguments json.RawMessage
}

// ParsedCommandKind classifies a single shell command the backend parsed out
// of an exec request.
type ParsedCommandKind string

const (
	ParsedCommandRead      ParsedCommandKind = "read"
	ParsedCommandListFiles ParsedCommandKind = "list_files"
	ParsedCommandSearch    ParsedCommandKind = "search"
	ParsedCommandUnknown   ParsedCommandKind = "unknown"
)

// ParsedCommand is one shell command already classified by the backend.
// Fields not meaningful for a given Kind are left zero; Path/Query use the
// "Has" flags to distinguish "absent" from "empty string", mirroring the
// Option<...> fields of the upstream engine's own parsed-command type.
type ParsedCommand struct {
	Kind ParsedCommandKind
	Cmd  string

	// Name is set for ParsedCommandRead.
	Name string
	// Path is set for ParsedCommandRead (always), ParsedCommandListFiles and
	// ParsedCommandSearch (optionally, see HasPath).
	Path    string
	HasPath bool

	// Query is set for ParsedCommandSearch (optionally, see HasQuery).
	Query    string
	HasQuery bool
}

// FileChangeKind is the shape of one file change in a patch-apply approval
// request.
type FileChangeKind int

const (
	FileChangeAdd FileChangeKind = iota
	FileChangeDelete
	FileChangeUpdate
)

// FileChange is one entry of an ApplyPatchApprovalRequest's change set.
type FileChange struct {
	Kind FileChangeKind
	// Content holds the new file body for Add, or the removed file body for
	// Delete.
	Content string
	// UnifiedDiff holds the "--- / +++ / @@" hunks for Update.
	UnifiedDiff string
}

// FileChangeEntry pairs a workspace-relative or absolute path with its
// FileChange.
type FileChangeEntry struct {
	Path   string
	Change FileChange
}

// ReviewDecision is the decision carried on an ExecApproval/PatchApproval op,
// derived from the client's permission response via
// github.com/codex-acp/codex-acp/internal/acp.DecideFromResponse.
type ReviewDecision string

const (
	ReviewApproved           ReviewDecision = "approved"
	ReviewApprovedForSession ReviewDecision = "approved_for_session"
	ReviewAbort              ReviewDecision = "abort"
)

// TokenUsage is the last-observed token totals for a session.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// PlanStepStatus is the status of one entry in a PlanUpdate event.
type PlanStepStatus string

const (
	PlanStepPending    PlanStepStatus = "pending"
	PlanStepInProgress PlanStepStatus = "in_progress"
	PlanStepCompleted  PlanStepStatus = "completed"
)

// PlanItem is one step of a PlanUpdate event.
type PlanItem struct {
	Step   string
	Status PlanStepStatus
}
