package entity

import "sort"

// Store is a typed collection keyed by ID. Iteration is always in ascending
// ID order so every pass over a collection is deterministic.
type Store[T any] struct {
	data  map[ID]*T
	order []ID
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data:  make(map[ID]*T, 64),
		order: make([]ID, 0, 64),
	}
}

// Set inserts or replaces the value for id.
func (s *Store[T]) Set(id ID, v *T) {
	if _, ok := s.data[id]; !ok {
		n := len(s.order)
		if n == 0 || s.order[n-1] < id {
			s.order = append(s.order, id)
		} else {
			i := sort.Search(n, func(i int) bool { return s.order[i] >= id })
			s.order = append(s.order, 0)
			copy(s.order[i+1:], s.order[i:])
			s.order[i] = id
		}
	}
	s.data[id] = v
}

func (s *Store[T]) Get(id ID) (*T, bool) {
	v, ok := s.data[id]
	return v, ok
}

func (s *Store[T]) Has(id ID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Remove(id ID) bool {
	if _, ok := s.data[id]; !ok {
		return false
	}
	delete(s.data, id)
	i := sort.Search(len(s.order), func(i int) bool { return s.order[i] >= id })
	s.order = append(s.order[:i], s.order[i+1:]...)
	return true
}

func (s *Store[T]) Len() int { return len(s.order) }

// IDs returns a copy of the live IDs in ascending order.
func (s *Store[T]) IDs() []ID {
	out := make([]ID, len(s.order))
	copy(out, s.order)
	return out
}

// MaxID returns the highest live ID, or zero when empty.
func (s *Store[T]) MaxID() ID {
	if len(s.order) == 0 {
		return 0
	}
	return s.order[len(s.order)-1]
}

// Each visits entries in ascending ID order. fn must not add or remove.
func (s *Store[T]) Each(fn func(ID, *T)) {
	for _, id := range s.order {
		fn(id, s.data[id])
	}
}

// Reset drops every entry.
func (s *Store[T]) Reset() {
	s.data = make(map[ID]*T, 64)
	s.order = s.order[:0]
}
