// Package sessionstore holds the single process-wide map from ACP session
// id to SessionState (component C5): the conversation handle cache, the
// active mode/model policy, and the last-observed token usage for every
// live session.
//
// The protocol this adapter speaks is single-threaded-cooperative (spec
// §5/§9): in a genuinely single-threaded runtime the map would need no
// lock at all. Go's goroutine scheduler does not give us that guarantee
// for free, so Store guards its map with a mutex and follows the same
// discipline the spec calls out for multi-threaded ports: the lock is
// never held across a call that can block (a conversation-manager dial,
// a channel send). WithSessionStateMut enforces this by construction -
// the mutation closure it runs must not itself block.
package sessionstore

import (
	"fmt"
	"sync"

	"github.com/codex-acp/codex-acp/internal/backend"
	"github.com/codex-acp/codex-acp/internal/modes"

	"github.com/coder/acp-go-sdk"
)

// SessionState is the per-session record described in spec.md §3.
type SessionState struct {
	FsSessionID string

	// Config is the SessionConfig the conversation was last built from,
	// kept around so /new (C9) can ask the conversation manager for a
	// fresh conversation without losing cwd/instructions/MCP wiring.
	Config backend.SessionConfig

	conversation    backend.Conversation
	CurrentMode     acp.SessionModeId
	CurrentApproval modes.Approval
	CurrentSandbox  modes.Sandbox
	CurrentModel    string
	CurrentEffort   string
	TokenUsage      backend.TokenUsage
	HasTokenUsage   bool
}

// NewState builds a SessionState ready for Insert. conv is the backend
// conversation created for this session; the conversation field stays
// unexported (only this package and WithSessionStateMut/SetConversation
// touch it) so C10 cannot accidentally bypass the store's bookkeeping when
// wiring up a fresh session.
func NewState(fsSessionID string, conv backend.Conversation, cfg backend.SessionConfig, mode acp.SessionModeId, approval modes.Approval, sandbox modes.Sandbox, model, effort string) *SessionState {
	return &SessionState{
		FsSessionID:     fsSessionID,
		Config:          cfg,
		conversation:    conv,
		CurrentMode:     mode,
		CurrentApproval: approval,
		CurrentSandbox:  sandbox,
		CurrentModel:    model,
		CurrentEffort:   effort,
	}
}

// Store is the process-wide session map.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*SessionState
	byFsID   map[string]string // fs_session_id -> acp session id
	manager  backend.ConversationManager
}

// New returns an empty Store backed by manager for conversation resolution.
func New(manager backend.ConversationManager) *Store {
	return &Store{
		sessions: make(map[string]*SessionState),
		byFsID:   make(map[string]string),
		manager:  manager,
	}
}

// Insert registers a freshly created session. Called once by new_session
// (C10), after the conversation has already been created.
func (s *Store) Insert(sessionID string, state *SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = state
	s.byFsID[state.FsSessionID] = sessionID
}

// Remove drops a session entirely (used by tests; the production process
// never calls this since sessions live for the process lifetime per
// spec.md §3).
func (s *Store) Remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[sessionID]; ok {
		delete(s.byFsID, st.FsSessionID)
	}
	delete(s.sessions, sessionID)
}

// GetConversation returns the cached conversation handle for sessionID, or
// an error if the session is unknown. The handle is attached at Insert
// time by C10 (new_session always creates the conversation up front), so
// this never needs to call back into the conversation manager itself -
// "lazily resolved" in spec.md §3 describes C10's allocation order, not a
// second resolution path here.
func (s *Store) GetConversation(sessionID string) (backend.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("sessionstore: unknown session %q", sessionID)
	}
	return st.conversation, nil
}

// SetConversation replaces the cached conversation handle, used by /new
// (C9) to swap in a fresh backend conversation without changing the ACP
// session id.
func (s *Store) SetConversation(sessionID string, conv backend.Conversation) error {
	return s.WithSessionStateMut(sessionID, func(st *SessionState) {
		st.conversation = conv
		st.HasTokenUsage = false
		st.TokenUsage = backend.TokenUsage{}
	})
}

// WithSessionStateMut runs f with exclusive access to sessionID's state.
// f must not block: it runs while the store's lock is held, and any
// suspension there would stall every other session.
func (s *Store) WithSessionStateMut(sessionID string, f func(*SessionState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("sessionstore: unknown session %q", sessionID)
	}
	f(st)
	return nil
}

// Snapshot returns a copy of sessionID's state, for read-only callers that
// don't need WithSessionStateMut's mutation hook.
func (s *Store) Snapshot(sessionID string) (SessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return SessionState{}, false
	}
	return *st, true
}

// Lookup returns the read-only SessionModeLookup view backed by this
// store, shared with C12 for the write-gate enforcement check.
func (s *Store) Lookup() SessionModeLookup {
	return SessionModeLookup{store: s}
}
