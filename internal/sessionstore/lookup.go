package sessionstore

import (
	"github.com/coder/acp-go-sdk"

	"github.com/codex-acp/codex-acp/internal/modes"
)

// SessionModeLookup is the read-only view of Store shared with C12: it
// answers the two questions the dispatcher's write gate needs without
// exposing mutation access to the session map.
type SessionModeLookup struct {
	store *Store
}

// CurrentMode returns the active mode id for sessionID, or "" if unknown.
func (l SessionModeLookup) CurrentMode(sessionID string) (acp.SessionModeId, bool) {
	st, ok := l.store.Snapshot(sessionID)
	if !ok {
		return "", false
	}
	return st.CurrentMode, true
}

// IsReadOnly reports whether sessionID is currently in the privileged
// read-only mode. Unknown sessions are not read-only (callers must check
// existence separately via ResolveAcpSessionID).
func (l SessionModeLookup) IsReadOnly(sessionID string) bool {
	mode, ok := l.CurrentMode(sessionID)
	return ok && modes.IsReadOnly(mode)
}

// ResolveAcpSessionID implements P10: id may be either the canonical ACP
// session id or the session's fs_session_id. Returns the canonical ACP id
// and true in either case, or "", false when id names neither.
func (l SessionModeLookup) ResolveAcpSessionID(id string) (string, bool) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	if _, ok := l.store.sessions[id]; ok {
		return id, true
	}
	if acpID, ok := l.store.byFsID[id]; ok {
		return acpID, true
	}
	return "", false
}
