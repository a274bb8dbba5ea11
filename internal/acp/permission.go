// Package acp holds small helpers shared by the agent-side ACP plumbing:
// permission-option construction/interpretation and shell command parsing.
package acp

import (
	"github.com/coder/acp-go-sdk"
)

// Decision is the outcome of a permission round-trip with the client, folded
// down to the three things the rest of the agent cares about.
type Decision int

const (
	// Abort means the turn must stop: the client rejected, cancelled, or
	// returned an option id we don't recognize.
	Abort Decision = iota
	// Approved means proceed with this one call only.
	Approved
	// ApprovedForSession means proceed with this call and skip future
	// prompts of the same kind for the rest of the session.
	ApprovedForSession
)

// Option ids used by DefaultPermissionOptions and recognized by
// DecideFromResponse. Any other id returned by the client is treated as
// Abort (see spec Open Question (a)).
const (
	OptionApprovedForSession = "approved-for-session"
	OptionApproved           = "approved"
	OptionAbort              = "abort"
)

// DefaultPermissionOptions builds the three-option set offered for exec and
// patch-apply approval requests: approve always, approve once, reject.
func DefaultPermissionOptions() []acp.PermissionOption {
	return []acp.PermissionOption{
		{
			OptionId: OptionApprovedForSession,
			Name:     "Approved Always",
			Kind:     acp.PermissionOptionKindAllowAlways,
		},
		{
			OptionId: OptionApproved,
			Name:     "Approved",
			Kind:     acp.PermissionOptionKindAllowOnce,
		},
		{
			OptionId: OptionAbort,
			Name:     "Reject",
			Kind:     acp.PermissionOptionKindRejectOnce,
		},
	}
}

// DecideFromResponse maps a RequestPermissionResponse to a Decision.
//
// The option id on a Selected outcome, not its Kind, drives the mapping: the
// backend's approval op takes a string decision, and it must be built from
// the same option id the approval request was keyed on. A Cancelled outcome,
// or a Selected outcome with an id outside the known set, both resolve to
// Abort.
func DecideFromResponse(resp acp.RequestPermissionResponse) Decision {
	sel := resp.Outcome.Selected
	if sel == nil {
		return Abort
	}
	switch sel.OptionId {
	case OptionApprovedForSession:
		return ApprovedForSession
	case OptionApproved:
		return Approved
	default:
		return Abort
	}
}
