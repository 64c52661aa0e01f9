// Package state persists the set of giveaway URLs already relayed.
package state

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Store loads and saves the seen state.
type Store interface {
	// Load returns the persisted state. A store with nothing usable yields an
	// empty state.
	Load(ctx context.Context) (*SeenState, error)
	// Save persists every entry of s.
	Save(ctx context.Context, s *SeenState) error
}

// SeenState maps a giveaway URL to the epoch milliseconds it was first seen.
// Entries are never removed or overwritten.
type SeenState struct {
	mu   sync.RWMutex
	seen map[string]int64
}

// New returns an empty state
func New() *SeenState {
	return &SeenState{seen: make(map[string]int64)}
}

// Has reports whether rawURL was already seen.
func (s *SeenState) Has(rawURL string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[rawURL]
	return ok
}

// Add records rawURL as first seen at the given time. It returns false and
// keeps the original timestamp when the URL is already present.
func (s *SeenState) Add(rawURL string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[rawURL]; ok {
		return false
	}
	s.seen[rawURL] = at.UnixMilli()
	return true
}

// SeenAt returns the epoch milliseconds rawURL was first seen.
func (s *SeenState) SeenAt(rawURL string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms, ok := s.seen[rawURL]
	return ms, ok
}

// Len returns the number of seen URLs.
func (s *SeenState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// Entries returns a copy of the underlying map.
func (s *SeenState) Entries() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.seen))
	for k, v := range s.seen {
		out[k] = v
	}
	return out
}

type document struct {
	Seen map[string]int64 `json:"seen"`
}

// MarshalJSON encodes the state as {"seen": {"<url>": <ms>}}.
func (s *SeenState) MarshalJSON() ([]byte, error) {
	return json.Marshal(document{Seen: s.Entries()})
}

// UnmarshalJSON decodes the {"seen": {...}} document.
func (s *SeenState) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Seen == nil {
		doc.Seen = make(map[string]int64)
	}
	s.mu.Lock()
	s.seen = doc.Seen
	s.mu.Unlock()
	return nil
}
