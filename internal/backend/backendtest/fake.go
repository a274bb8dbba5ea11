// Package backendtest provides a minimal in-memory double for
// internal/backend's Conversation/ConversationManager, driven entirely by
// a scripted event queue. It exists so the prompt loop (C11) and session
// lifecycle (C10) can be exercised in tests without a real conversation
// engine, which is out of scope for this adapter.
package backendtest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/codex-acp/codex-acp/internal/backend"
)

// Conversation is a scripted backend.Conversation. Submit assigns a new
// submit id to every call and records it; NextEvent drains a fixed queue of
// pre-built events, each already tagged with the submit id it belongs to.
type Conversation struct {
	mu        sync.Mutex
	submitSeq int64
	submitted []backend.Op
	events    []backend.Event
	idx       int
}

var _ backend.Conversation = (*Conversation)(nil)

// NewConversation builds a Conversation that will replay events in order.
// Events keep the IDs they are given: stamp them with the submit id the
// test's Submit call will return (the first is "submit-1"; NextSubmitID
// previews the next one), or use other ids when the test wants to exercise
// stale-event filtering (P8).
func NewConversation(events []backend.Event) *Conversation {
	return &Conversation{events: events}
}

// Submit records op and returns a fresh, monotonically increasing submit id.
func (c *Conversation) Submit(ctx context.Context, op backend.Op) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := atomic.AddInt64(&c.submitSeq, 1)
	c.submitted = append(c.submitted, op)
	return fmt.Sprintf("submit-%d", id), nil
}

// NextSubmitID previews the id the next Submit call will return, for tests
// that need to pre-stamp a script's event ids before submitting.
func (c *Conversation) NextSubmitID() string {
	return fmt.Sprintf("submit-%d", atomic.LoadInt64(&c.submitSeq)+1)
}

// Submitted returns every op submitted so far, in order.
func (c *Conversation) Submitted() []backend.Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]backend.Op, len(c.submitted))
	copy(out, c.submitted)
	return out
}

// NextEvent returns the next scripted event, or an error once the script is
// exhausted (a real conversation would instead block; tests should script
// exactly as many events as they intend to consume).
func (c *Conversation) NextEvent(ctx context.Context) (backend.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idx >= len(c.events) {
		return backend.Event{}, fmt.Errorf("backendtest: event script exhausted")
	}
	ev := c.events[c.idx]
	c.idx++
	return ev, nil
}

// Manager is a backend.ConversationManager that builds every Conversation
// with its Factory function, or hands out an empty Conversation when
// Factory is nil.
type Manager struct {
	mu      sync.Mutex
	seq     int64
	Factory func(cfg backend.SessionConfig) *Conversation
}

var _ backend.ConversationManager = (*Manager)(nil)

// NewManager returns a Manager that calls factory for every NewConversation
// call.
func NewManager(factory func(cfg backend.SessionConfig) *Conversation) *Manager {
	return &Manager{Factory: factory}
}

func (m *Manager) NewConversation(ctx context.Context, cfg backend.SessionConfig) (backend.Conversation, string, error) {
	m.mu.Lock()
	m.seq++
	id := fmt.Sprintf("conv-%d", m.seq)
	m.mu.Unlock()

	if m.Factory == nil {
		return NewConversation(nil), id, nil
	}
	return m.Factory(cfg), id, nil
}
