// Package selection tracks which guests are chosen for a group action.
package selection

import (
	"slices"
	"sync"
)

// Set is an unordered set of guest ids scoped to one view session.
type Set struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// New returns an empty set
func New() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// Toggle inserts id if absent and removes it if present.
// It reports whether id is selected afterwards.
func (s *Set) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// SelectAll replaces the set with exactly the given visible ids.
func (s *Set) SelectAll(visible []string) {
	ids := make(map[string]struct{}, len(visible))
	for _, id := range visible {
		ids[id] = struct{}{}
	}

	s.mu.Lock()
	s.ids = ids
	s.mu.Unlock()
}

// Deselect removes ids from the set, leaving any others selected.
func (s *Set) Deselect(ids ...string) {
	s.mu.Lock()
	for _, id := range ids {
		delete(s.ids, id)
	}
	s.mu.Unlock()
}

// Clear empties the set
func (s *Set) Clear() {
	s.mu.Lock()
	s.ids = make(map[string]struct{})
	s.mu.Unlock()
}

func (s *Set) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns the selected ids in the order they appear in order.
// Ids selected but absent from order are appended last, sorted.
func (s *Set) IDs(order []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.ids))
	seen := make(map[string]struct{}, len(s.ids))
	for _, id := range order {
		if _, ok := s.ids[id]; ok {
			if _, dup := seen[id]; !dup {
				out = append(out, id)
				seen[id] = struct{}{}
			}
		}
	}
	var rest []string
	for id := range s.ids {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}
