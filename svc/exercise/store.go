package exercise

import (
	"sync"
	"time"

	"github.com/dmitrymomot/fittrack/pkg/collection"
)

// Filters narrow what the exercises page loads and shows.
type Filters struct {
	From time.Time
	To   time.Time
	Name string
	Type Type
}

// Match reports whether e passes every set filter.
func (f Filters) Match(e Exercise) bool {
	if !f.From.IsZero() && e.Date.Before(Day(f.From)) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(Day(f.To)) {
		return false
	}
	if f.Name != "" && e.Name != f.Name {
		return false
	}
	if (f.Type == TypeMachine || f.Type == TypeFree) && e.Type != f.Type {
		return false
	}
	return true
}

// Store is the in-memory exercise list, newest first.
type Store struct {
	*collection.List[Exercise]

	mu      sync.RWMutex
	filters Filters
}

func NewStore() *Store {
	return &Store{List: collection.NewList[Exercise]()}
}

func (s *Store) SetFilters(f Filters) {
	s.mu.Lock()
	s.filters = f
	s.mu.Unlock()
}

func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// Visible returns the items that pass the current filters.
func (s *Store) Visible() []Exercise {
	f := s.Filters()
	items := s.Items()
	out := items[:0]
	for _, e := range items {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
