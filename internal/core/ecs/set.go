package ecs

import "github.com/willf/bitset"

// EntitySet is a set of entity ids backed by a bitset. Iteration is always in
// ascending id order, which is the ordering systems observe.
// Not safe for concurrent use.
type EntitySet struct {
	bits bitset.BitSet
}

// NewEntitySet returns a set holding the given entities.
func NewEntitySet(entities ...Entity) *EntitySet {
	s := &EntitySet{}
	for _, e := range entities {
		s.Add(e)
	}
	return s
}

func (s *EntitySet) Add(e Entity) { s.bits.Set(uint(e)) }

func (s *EntitySet) Remove(e Entity) { s.bits.Clear(uint(e)) }

func (s *EntitySet) Has(e Entity) bool { return s.bits.Test(uint(e)) }

func (s *EntitySet) Len() int { return int(s.bits.Count()) }

func (s *EntitySet) Clear() { s.bits.ClearAll() }

// Each calls fn for every member in ascending order until fn returns false.
// Members may be added or removed by fn; removals ahead of the cursor are
// observed, additions ahead of the cursor may be.
func (s *EntitySet) Each(fn func(Entity) bool) {
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		if !fn(Entity(i)) {
			return
		}
	}
}

// Slice returns the members in ascending order.
func (s *EntitySet) Slice() []Entity {
	out := make([]Entity, 0, s.Len())
	s.Each(func(e Entity) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Equal reports whether both sets hold the same members.
func (s *EntitySet) Equal(o *EntitySet) bool {
	if o == nil {
		return s.Len() == 0
	}
	// bitset.Equal also compares allocated lengths, which differ with history
	return s.bits.Count() == o.bits.Count() && s.bits.DifferenceCardinality(&o.bits) == 0
}
