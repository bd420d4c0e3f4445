package entity

// ID identifies an entity within one collection. Zero means "none".
type ID uint64

func (id ID) IsZero() bool { return id == 0 }

// Sequence hands out monotonically increasing IDs. An ID is never handed
// out twice, even after the entity that held it is removed.
type Sequence struct {
	next ID
}

func NewSequence() *Sequence {
	return &Sequence{next: 1}
}

func (s *Sequence) Next() ID {
	id := s.next
	s.next++
	return id
}

// Peek returns the ID the next call to Next will return.
func (s *Sequence) Peek() ID { return s.next }

// Restore resets the sequence after a load. next is clamped so it stays
// above every live ID.
func (s *Sequence) Restore(next ID, maxLive ID) {
	if next <= maxLive {
		next = maxLive + 1
	}
	if next == 0 {
		next = 1
	}
	s.next = next
}
