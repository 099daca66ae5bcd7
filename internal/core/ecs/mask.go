package ecs

import "github.com/willf/bitset"

// TypeID is the bit index assigned to a registered component type.
type TypeID uint

// Mask records which component types an entity holds. It grows on demand, so
// there is no fixed ceiling on the number of registered types.
type Mask struct {
	bits bitset.BitSet
}

func (m *Mask) Set(id TypeID) { m.bits.Set(uint(id)) }

func (m *Mask) Clear(id TypeID) { m.bits.Clear(uint(id)) }

func (m *Mask) Has(id TypeID) bool { return m.bits.Test(uint(id)) }

// HasAll reports whether every bit of other is set in m.
func (m *Mask) HasAll(other *Mask) bool { return m.bits.IsSuperSet(&other.bits) }

// Len returns the number of set bits.
func (m *Mask) Len() int { return int(m.bits.Count()) }

// Empty reports whether no bit is set.
func (m *Mask) Empty() bool { return m.bits.None() }

// Each calls fn for every set bit in ascending order.
func (m *Mask) Each(fn func(TypeID)) {
	for i, ok := m.bits.NextSet(0); ok; i, ok = m.bits.NextSet(i + 1) {
		fn(TypeID(i))
	}
}

// Clone returns an independent copy.
func (m *Mask) Clone() Mask {
	return Mask{bits: *m.bits.Clone()}
}

// AddBit returns a copy of m with id set.
func AddBit(m Mask, id TypeID) Mask {
	c := m.Clone()
	c.Set(id)
	return c
}

// RemoveBit returns a copy of m with id cleared.
func RemoveBit(m Mask, id TypeID) Mask {
	c := m.Clone()
	c.Clear(id)
	return c
}

// HasBit reports whether id is set in m.
func HasBit(m Mask, id TypeID) bool {
	return m.Has(id)
}

// MaskOf builds a mask with the given bits set.
func MaskOf(ids ...TypeID) Mask {
	var m Mask
	for _, id := range ids {
		m.Set(id)
	}
	return m
}
