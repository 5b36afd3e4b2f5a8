package group

import (
	"sync"

	"github.com/dmitrymomot/fittrack/pkg/collection"
)

// Store is the in-memory state behind the groups pages.
type Store struct {
	Groups      *collection.List[Group]
	Members     *collection.List[Member]
	Invitations *collection.List[Invitation]

	mu      sync.RWMutex
	current *Group
}

func NewStore() *Store {
	return &Store{
		Groups:      collection.NewList[Group](),
		Members:     collection.NewList[Member](),
		Invitations: collection.NewList[Invitation](),
	}
}

// AddGroup appends g; groups are listed oldest first.
func (s *Store) AddGroup(g Group) {
	s.Groups.Append(g)
}

// UpdateGroup replaces g in the list and as the current group.
func (s *Store) UpdateGroup(g Group) {
	s.Groups.Replace(g)
	s.mu.Lock()
	if s.current != nil && s.current.ID == g.ID {
		s.current = &g
	}
	s.mu.Unlock()
}

// DeleteGroup removes the group and clears it as current.
func (s *Store) DeleteGroup(id string) {
	s.Groups.Remove(id)
	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.current = nil
		s.Members.Reset()
	}
	s.mu.Unlock()
}

// SetCurrent selects the group whose detail page is open. nil deselects.
func (s *Store) SetCurrent(g *Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g == nil {
		s.current = nil
		return
	}
	cp := *g
	s.current = &cp
}

func (s *Store) Current() *Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// UpdateInvitation replaces a known invitation; unknown ids are ignored.
func (s *Store) UpdateInvitation(inv Invitation) bool {
	return s.Invitations.Replace(inv)
}

// Pending returns the invitations still awaiting an answer.
func (s *Store) Pending() []Invitation {
	return PendingInvitations(s.Invitations.Items())
}

// Reset forgets everything, on sign-out.
func (s *Store) Reset() {
	s.Groups.Reset()
	s.Members.Reset()
	s.Invitations.Reset()
	s.SetCurrent(nil)
}
