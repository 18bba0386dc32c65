package set

import (
	"iter"
)

type Set[T comparable] map[T]struct{}

func New[T comparable](items ...T) Set[T] {
	s := make(Set[T])
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add adds an item to the set
func (s Set[T]) Add(items ...T) {
	for _, item := range items {
		s[item] = struct{}{}
	}
}

// Contains checks if an item exists in the set
func (s Set[T]) Contains(item T) bool {
	_, exists := s[item]
	return exists
}

// Size returns the number of items in the set
func (s Set[T]) Size() int {
	return len(s)
}

// Items returns all items in the set as a sequence, in no particular order.
func (s Set[T]) Items() iter.Seq[T] {
	return func(yield func(T) bool) {
		for item := range s {
			if !yield(item) {
				return
			}
		}
	}
}

// Ordered is a set that remembers insertion order. Identity is decided by
// the key function, so values that are not comparable can still be
// deduplicated. The zero value is not usable; call NewOrdered.
type Ordered[T any, K comparable] struct {
	key   func(T) K
	index map[K]int
	items []T
}

func NewOrdered[T any, K comparable](key func(T) K, items ...T) *Ordered[T, K] {
	s := &Ordered[T, K]{
		key:   key,
		index: make(map[K]int, len(items)),
		items: make([]T, 0, len(items)),
	}
	s.Add(items...)
	return s
}

// Strings returns an insertion-ordered set of strings.
func Strings(items ...string) *Ordered[string, string] {
	return NewOrdered(func(s string) string { return s }, items...)
}

// Add appends items not already present and reports how many were new.
func (s *Ordered[T, K]) Add(items ...T) int {
	added := 0
	for _, item := range items {
		k := s.key(item)
		if _, ok := s.index[k]; ok {
			continue
		}
		s.index[k] = len(s.items)
		s.items = append(s.items, item)
		added++
	}
	return added
}

func (s *Ordered[T, K]) Contains(item T) bool {
	_, ok := s.index[s.key(item)]
	return ok
}

// At returns the item inserted at position i.
func (s *Ordered[T, K]) At(i int) T {
	return s.items[i]
}

func (s *Ordered[T, K]) Size() int {
	return len(s.items)
}

// Items yields items in insertion order.
func (s *Ordered[T, K]) Items() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range s.items {
			if !yield(item) {
				return
			}
		}
	}
}

// Slice returns a copy of the items in insertion order.
func (s *Ordered[T, K]) Slice() []T {
	return append([]T(nil), s.items...)
}
