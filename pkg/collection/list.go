// Package collection provides an id-keyed list with loading and error
// flags, the state behind every list page.
package collection

import (
	"slices"
	"sync"
)

// Identifiable is anything with a stable string id.
type Identifiable interface {
	GetID() string
}

// List holds items in display order. Ids are unique: adding an item whose
// id is already present drops the older entry. Safe for concurrent use.
type List[T Identifiable] struct {
	mu      sync.RWMutex
	items   []T
	loading bool
	err     error
}

func NewList[T Identifiable]() *List[T] {
	return &List[T]{}
}

// Load replaces the contents and clears the loading and error flags.
func (l *List[T]) Load(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = dedupe(items)
	l.loading = false
	l.err = nil
}

// Prepend puts item first.
func (l *List[T]) Prepend(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]T{item}, l.without(item.GetID())...)
}

// Append puts item last.
func (l *List[T]) Append(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.without(item.GetID()), item)
}

// Replace swaps the item with the same id in place. It reports false and
// changes nothing when the id is absent.
func (l *List[T]) Replace(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(item.GetID())
	if i < 0 {
		return false
	}
	l.items[i] = item
	return true
}

// Remove deletes the item with id and reports whether it was present.
func (l *List[T]) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	return true
}

func (l *List[T]) Get(id string) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// Items returns a copy of the items in order.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *List[T]) SetLoading(loading bool) {
	l.mu.Lock()
	l.loading = loading
	l.mu.Unlock()
}

// SetError records a failed operation and ends loading.
func (l *List[T]) SetError(err error) {
	l.mu.Lock()
	l.err = err
	l.loading = false
	l.mu.Unlock()
}

func (l *List[T]) Loading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

func (l *List[T]) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Reset empties the list and clears both flags.
func (l *List[T]) Reset() {
	l.mu.Lock()
	l.items = nil
	l.loading = false
	l.err = nil
	l.mu.Unlock()
}

func (l *List[T]) index(id string) int {
	return slices.IndexFunc(l.items, func(it T) bool { return it.GetID() == id })
}

func (l *List[T]) without(id string) []T {
	return slices.DeleteFunc(slices.Clone(l.items), func(it T) bool { return it.GetID() == id })
}

// dedupe keeps the last occurrence of each id at the position of that
// occurrence.
func dedupe[T Identifiable](items []T) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		id := items[i].GetID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, items[i])
	}
	slices.Reverse(out)
	return out
}
