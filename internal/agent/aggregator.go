package agent

import (
	"sync"

	"github.com/codex-acp/codex-acp/internal/reasoning"
)

// aggregatorSet holds one reasoning.Aggregator per session. A session's
// prompt loop never runs two prompts concurrently (ACP serializes prompt
// calls per session), so the aggregator only needs to survive across the
// one reset-at-start/drain-at-end cycle spec.md §5 describes; the set just
// avoids re-allocating one per prompt.
type aggregatorSet struct {
	mu   sync.Mutex
	byID map[string]*reasoning.Aggregator
}

func newAggregatorSet() *aggregatorSet {
	return &aggregatorSet{byID: make(map[string]*reasoning.Aggregator)}
}

func (s *aggregatorSet) get(sessionID string) *reasoning.Aggregator {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.byID[sessionID]
	if !ok {
		agg = reasoning.New()
		s.byID[sessionID] = agg
	}
	return agg
}
