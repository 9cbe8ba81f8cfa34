package message

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrDuplicateID is returned when two messages share an arbitration ID
var ErrDuplicateID = errors.New("duplicate arbitration id")

// Set is the registry of messages a simulator transmits, keyed by ID
type Set struct {
	mu   sync.RWMutex
	byID map[uint32]*Periodic
}

// NewSet creates an empty set
func NewSet() *Set {
	return &Set{byID: make(map[uint32]*Periodic)}
}

// Add registers messages, rejecting accidental duplicates
func (s *Set) Add(msgs ...*Periodic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		if existing, ok := s.byID[m.ID]; ok {
			return fmt.Errorf("%w %#x (%s and %s)", ErrDuplicateID, m.ID, existing.Name, m.Name)
		}
		s.byID[m.ID] = m
	}
	return nil
}

// Lookup returns the message with the given ID
func (s *Set) Lookup(id uint32) (*Periodic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	return m, ok
}

// Len returns the number of registered messages
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// IDs returns all registered IDs in ascending order
func (s *Set) IDs() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint32, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Sorted returns all messages ordered by ID
func (s *Set) Sorted() []*Periodic {
	ids := s.IDs()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Periodic, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out
}

// SetAllEnabled enables or disables every message
func (s *Set) SetAllEnabled(v bool) {
	for _, m := range s.Sorted() {
		m.SetEnabled(v)
	}
}
