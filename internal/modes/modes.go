// Package modes holds the static table of approval/sandbox presets that
// back ACP session modes (component C1 of the agent).
//
// The table is immutable and its ids are a compatibility contract: "read-only"
// in particular is relied on elsewhere (the FS bridge's write gate, C12) to
// detect the privileged read-only mode, so ids are never renamed once
// published.
package modes

import (
	"github.com/coder/acp-go-sdk"
)

// Approval is one of the four approval policies a backend conversation can
// run under.
type Approval string

const (
	ApprovalNever         Approval = "never"
	ApprovalOnRequest     Approval = "on-request"
	ApprovalOnFailure     Approval = "on-failure"
	ApprovalUnlessTrusted Approval = "unless-trusted"
)

// Sandbox is one of the three filesystem/execution sandbox policies.
type Sandbox string

const (
	SandboxReadOnly      Sandbox = "read-only"
	SandboxWorkspaceWrite Sandbox = "workspace-write"
	SandboxFullAccess    Sandbox = "full-access"
)

// ReadOnlyModeID is the reserved, privileged mode id. Any component that
// needs to know "is this session forbidden from writing" checks against
// this id rather than inspecting the (approval, sandbox) pair directly.
const ReadOnlyModeID = "read-only"

// Preset is a named (approval, sandbox) pair presented to the client as one
// selectable ACP session mode.
type Preset struct {
	ID          string
	Label       string
	Description string
	Approval    Approval
	Sandbox     Sandbox
}

// Presets is the full, immutable set of built-in approval presets, ordered
// from least to most permissive. It is the sole source of truth for
// session-mode enumeration; nothing here is derived from per-session state.
var Presets = []Preset{
	{
		ID:          ReadOnlyModeID,
		Label:       "Read Only",
		Description: "Codex can read files and answer questions, but cannot edit files or run commands that change the workspace.",
		Approval:    ApprovalNever,
		Sandbox:     SandboxReadOnly,
	},
	{
		ID:          "auto",
		Label:       "Auto",
		Description: "Codex can read and write files in the workspace and run sandboxed commands; you'll be asked before anything that needs to escape the sandbox.",
		Approval:    ApprovalOnRequest,
		Sandbox:     SandboxWorkspaceWrite,
	},
	{
		ID:          "auto-edit",
		Label:       "Auto Edit",
		Description: "Codex can read and write files in the workspace; you'll only be asked when a sandboxed command fails.",
		Approval:    ApprovalOnFailure,
		Sandbox:     SandboxWorkspaceWrite,
	},
	{
		ID:          "full-access",
		Label:       "Full Access",
		Description: "Codex can read, write, and run commands with full access to your system; you'll only be asked before running a command it doesn't already trust.",
		Approval:    ApprovalUnlessTrusted,
		Sandbox:     SandboxFullAccess,
	},
}

// FindByModeID finds the preset with the given ACP session mode id.
func FindByModeID(id acp.SessionModeId) (Preset, bool) {
	for _, p := range Presets {
		if p.ID == string(id) {
			return p, true
		}
	}
	return Preset{}, false
}

// FindByPolicies finds the preset matching the exact (approval, sandbox)
// pair, used to recover a mode id after a config carries explicit policies
// rather than a mode selection.
func FindByPolicies(approval Approval, sandbox Sandbox) (Preset, bool) {
	for _, p := range Presets {
		if p.Approval == approval && p.Sandbox == sandbox {
			return p, true
		}
	}
	return Preset{}, false
}

// IsReadOnly reports whether mode id names the reserved read-only preset.
func IsReadOnly(id acp.SessionModeId) bool {
	return string(id) == ReadOnlyModeID
}

// Available renders the full preset table as ACP SessionMode entries, in
// table order, for inclusion in a SessionModeState.
func Available() []acp.SessionMode {
	out := make([]acp.SessionMode, 0, len(Presets))
	for _, p := range Presets {
		desc := p.Description
		out = append(out, acp.SessionMode{
			Id:          acp.SessionModeId(p.ID),
			Name:        p.Label,
			Description: &desc,
		})
	}
	return out
}

// StateFor builds a SessionModeState for the given current mode id. It
// returns false if id does not match any known preset.
func StateFor(id acp.SessionModeId) (acp.SessionModeState, bool) {
	if _, ok := FindByModeID(id); !ok {
		return acp.SessionModeState{}, false
	}
	return acp.SessionModeState{
		CurrentModeId:  id,
		AvailableModes: Available(),
	}, true
}
