package modes

import (
	"testing"

	"github.com/coder/acp-go-sdk"
)

func TestReadOnlyModeIsPrivileged(t *testing.T) {
	p, ok := FindByModeID(acp.SessionModeId(ReadOnlyModeID))
	if !ok {
		t.Fatal("read-only preset must exist")
	}
	if p.Sandbox != SandboxReadOnly {
		t.Errorf("read-only preset sandbox = %v, want %v", p.Sandbox, SandboxReadOnly)
	}
	if !IsReadOnly(acp.SessionModeId(ReadOnlyModeID)) {
		t.Error("IsReadOnly should be true for the read-only mode id")
	}
	if IsReadOnly(acp.SessionModeId("auto")) {
		t.Error("IsReadOnly should be false for any other mode id")
	}
}

func TestFindByModeID_Unknown(t *testing.T) {
	if _, ok := FindByModeID(acp.SessionModeId("does-not-exist")); ok {
		t.Error("unknown mode id should not resolve")
	}
}

func TestFindByPolicies(t *testing.T) {
	p, ok := FindByPolicies(ApprovalOnRequest, SandboxWorkspaceWrite)
	if !ok {
		t.Fatal("expected a preset for (on-request, workspace-write)")
	}
	if p.ID != "auto" {
		t.Errorf("preset id = %q, want %q", p.ID, "auto")
	}

	if _, ok := FindByPolicies(ApprovalNever, SandboxWorkspaceWrite); ok {
		t.Error("(never, workspace-write) should not match any preset")
	}
}

func TestAvailable_MatchesPresetCount(t *testing.T) {
	modes := Available()
	if len(modes) != len(Presets) {
		t.Fatalf("len(Available()) = %d, want %d", len(modes), len(Presets))
	}
	for i, m := range modes {
		if string(m.Id) != Presets[i].ID {
			t.Errorf("modes[%d].Id = %q, want %q", i, m.Id, Presets[i].ID)
		}
		if m.Description == nil || *m.Description != Presets[i].Description {
			t.Errorf("modes[%d].Description mismatch", i)
		}
	}
}

func TestStateFor(t *testing.T) {
	state, ok := StateFor(acp.SessionModeId("auto"))
	if !ok {
		t.Fatal("expected auto mode to resolve")
	}
	if state.CurrentModeId != "auto" {
		t.Errorf("CurrentModeId = %q, want %q", state.CurrentModeId, "auto")
	}
	if len(state.AvailableModes) != len(Presets) {
		t.Errorf("AvailableModes length = %d, want %d", len(state.AvailableModes), len(Presets))
	}

	if _, ok := StateFor(acp.SessionModeId("bogus")); ok {
		t.Error("StateFor should fail for an unknown mode id")
	}
}

func TestPresetIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range Presets {
		if seen[p.ID] {
			t.Errorf("duplicate preset id %q", p.ID)
		}
		seen[p.ID] = true
	}
}
