package slots

import (
	"errors"
	"fmt"
	"sync"
)

// ErrOutOfRange is returned for an index outside [0, Len()).
var ErrOutOfRange = errors.New("slot index out of range")

// Store holds exactly Len() slots. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	slots []Slot
}

// NewStore creates a board of n free slots. n < 1 falls back to DefaultCount.
func NewStore(n int) *Store {
	if n < 1 {
		n = DefaultCount
	}
	s := &Store{slots: make([]Slot, n)}
	for i := range s.slots {
		s.slots[i] = Free()
	}
	return s
}

// Len returns the fixed number of slots.
func (s *Store) Len() int {
	return len(s.slots)
}

// Get returns a copy of the slot at index.
func (s *Store) Get(index int) (Slot, error) {
	if err := s.check(index); err != nil {
		return Slot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[index].clone(), nil
}

// GetAll returns a copy of every slot in index order.
func (s *Store) GetAll() []Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Slot, len(s.slots))
	for i, slot := range s.slots {
		out[i] = slot.clone()
	}
	return out
}

// Set replaces the slot at index with the materialized update and returns
// the stored record.
func (s *Store) Set(index int, u Update) (Slot, error) {
	if err := s.check(index); err != nil {
		return Slot{}, err
	}
	next := u.Slot()

	s.mu.Lock()
	s.slots[index] = next
	s.mu.Unlock()

	return next.clone(), nil
}

func (s *Store) check(index int) error {
	if index < 0 || index >= len(s.slots) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, len(s.slots))
	}
	return nil
}
