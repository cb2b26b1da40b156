// Package idgen supplies an injectable ID generator (SPEC_FULL.md §9:
// "inject an id generator so tests are deterministic") wrapping
// github.com/google/uuid, the teacher's already-declared (indirect) UUID
// dependency, promoted here to a direct one.
package idgen

import "github.com/google/uuid"

// Generator produces fresh identifiers.
type Generator interface {
	NewID() string
}

// UUIDGenerator generates random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Sequence is a test generator yielding the given ids in order, each once,
// then falling back to random v4 UUIDs once the list is exhausted.
type Sequence struct {
	ids []string
	pos int
}

// NewSequence creates a Sequence generator over ids.
func NewSequence(ids ...string) *Sequence {
	return &Sequence{ids: ids}
}

func (s *Sequence) NewID() string {
	if s.pos < len(s.ids) {
		id := s.ids[s.pos]
		s.pos++
		return id
	}
	s.pos++
	return uuid.NewString()
}
