package ecs

import (
	"testing"

	"github.com/rotisserie/eris"
)

func TestTypeRegistryAssignsDistinctBits(t *testing.T) {
	r := NewTypeRegistry()
	a, err := r.Register("A")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Register("B")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("expected distinct ids, both %d", a)
	}
	if _, err := r.Register("A"); !eris.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if id, _ := r.Lookup("A"); id != a {
		t.Fatal("failed registration must not rebind the name")
	}
}

func TestTypeRegistryDoesNotReuseBits(t *testing.T) {
	r := NewTypeRegistry()
	a, _ := r.Register("A")
	if err := r.Unregister("A"); err != nil {
		t.Fatal(err)
	}
	if err := r.Unregister("A"); !eris.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	again, _ := r.Register("A")
	if again == a {
		t.Fatalf("bit %d was reused", a)
	}
	if _, ok := r.Name(a); ok {
		t.Fatal("retired bit should have no name")
	}
}

func TestTypeRegistryHasNoFixedCeiling(t *testing.T) {
	r := NewTypeRegistry()
	var m Mask
	for i := 0; i < 200; i++ {
		id, err := r.Register(string(rune('A'+i%26)) + string(rune('a'+i/26)))
		if err != nil {
			t.Fatal(err)
		}
		m.Set(id)
	}
	if m.Len() != 200 {
		t.Fatalf("expected 200 bits, got %d", m.Len())
	}
}

func TestMaskBitOps(t *testing.T) {
	m := MaskOf(1, 70)
	added := AddBit(m, 3)
	if HasBit(m, 3) {
		t.Fatal("AddBit must not modify its input")
	}
	if !HasBit(added, 1) || !HasBit(added, 3) || !HasBit(added, 70) {
		t.Fatal("AddBit result missing bits")
	}
	removed := RemoveBit(added, 70)
	if HasBit(removed, 70) || !HasBit(added, 70) {
		t.Fatal("RemoveBit must clear only in the copy")
	}
	want := MaskOf(1, 3)
	if !added.HasAll(&want) {
		t.Fatal("expected superset")
	}
	if removed.HasAll(&m) {
		t.Fatal("removed lacks bit 70, should not be a superset of m")
	}
	var empty Mask
	if !empty.Empty() || !m.HasAll(&empty) {
		t.Fatal("every mask contains the empty mask")
	}
}

func TestEntitySetOrderAndEquality(t *testing.T) {
	s := NewEntitySet(9, 2, 5)
	got := s.Slice()
	if len(got) != 3 || got[0] != 2 || got[1] != 5 || got[2] != 9 {
		t.Fatalf("expected ascending order, got %v", got)
	}
	other := NewEntitySet(2, 5, 9, 1000)
	other.Remove(1000)
	if !s.Equal(other) {
		t.Fatal("sets with equal members must compare equal regardless of capacity")
	}
}
