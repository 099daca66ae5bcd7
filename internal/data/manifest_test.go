package data

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/ecs/internal/core/ecs"
	"github.com/l1jgo/ecs/internal/system"
)

const sample = `
components:
  - name: Position
    defaults: {x: 0.0, y: 0.0}
  - name: Velocity
    defaults: {x: 0.0, y: 0.0}
  - name: Health
    defaults: {hp: 10}
prefabs:
  - name: mover
    components:
      Position: {}
      Velocity: {x: 1.0}
  - name: rock
    components:
      Position: {x: 5.0}
spawns:
  - prefab: mover
    count: 3
  - prefab: rock
    label: boulder
    overrides:
      Position: {y: 2.0}
systems:
  - name: Movement
    query: [Position, Velocity]
    builtin: move
`

func TestParseManifestValidates(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown prefab":  "spawns: [{prefab: ghost}]",
		"dup component":   "components: [{name: A}, {name: A}]",
		"label and count": "prefabs: [{name: p}]\nspawns: [{prefab: p, count: 2, label: x}]",
		"empty query":     "systems: [{name: S, builtin: b}]",
		"bad yaml":        "components: [",
	} {
		if _, err := ParseManifest([]byte(doc)); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

func TestApplyManifest(t *testing.T) {
	m, err := ParseManifest([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	w := ecs.NewWorld()
	var seen int
	builtins := map[string]ecs.UpdateFunc{
		"move": func(set *ecs.EntitySet, _, _ time.Duration) { seen = set.Len() },
	}

	st, err := m.Apply(w, builtins)
	if err != nil {
		t.Fatal(err)
	}
	if st.Components != 3 || st.Entities != 4 || st.Systems != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}

	boulder, ok := w.Entity("boulder")
	if !ok {
		t.Fatal("boulder label missing")
	}
	pos := w.GetComponent(boulder, "Position")
	if pos.Float("x") != 5 || pos.Float("y") != 2 {
		t.Fatalf("expected prefab field and spawn override, got %v", pos)
	}
	vel := w.GetComponent(0, "Velocity")
	if vel.Float("x") != 1 || vel.Float("y") != 0 {
		t.Fatalf("expected prefab over defaults, got %v", vel)
	}

	w.Tick(16 * time.Millisecond)
	if seen != 3 {
		t.Fatalf("expected the movement system to see 3 movers, got %d", seen)
	}
}

func TestApplyUnknownBuiltin(t *testing.T) {
	m, err := ParseManifest([]byte("components: [{name: A}]\nsystems: [{name: S, query: [A], builtin: nope}]"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Apply(ecs.NewWorld(), nil); err == nil {
		t.Fatal("expected an unknown builtin error")
	}
}

func TestInstantiate(t *testing.T) {
	m, _ := ParseManifest([]byte(sample))
	w := ecs.NewWorld()
	if _, err := m.Apply(w, map[string]ecs.UpdateFunc{"move": func(*ecs.EntitySet, time.Duration, time.Duration) {}}); err != nil {
		t.Fatal(err)
	}
	e, err := m.Instantiate(w, "rock")
	if err != nil {
		t.Fatal(err)
	}
	if !w.HasComponent(e, "Position") || w.HasComponent(e, "Velocity") {
		t.Fatal("rock has only a Position")
	}
	if _, err := m.Instantiate(w, "ghost"); err == nil {
		t.Fatal("expected unknown prefab error")
	}
}

func TestShippedManifest(t *testing.T) {
	m, err := LoadManifest(filepath.Join("..", "..", "data", "world.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	w := ecs.NewWorld()
	st, err := m.Apply(w, system.Builtins(w))
	if err != nil {
		t.Fatal(err)
	}
	if st.Entities != 13 || st.Systems != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}

	statue, _ := w.Entity("statue")
	for i := 0; i < 10; i++ {
		w.Tick(100 * time.Millisecond)
	}
	if x := w.GetComponent(statue, "Position").Float("x"); x != 10 {
		t.Fatalf("frozen statue moved to %v", x)
	}
	// sparks live two seconds; their destruction lands one tick later
	w.Tick(1100 * time.Millisecond)
	w.Tick(time.Millisecond)
	if w.Len() != 9 {
		t.Fatalf("expected sparks to expire, %d entities left", w.Len())
	}
}

func TestInstantiateLeavesNothingOnFailure(t *testing.T) {
	m, err := ParseManifest([]byte(`
components: [{name: Position}]
prefabs:
  - name: broken
    components: {Position: {}, Missing: {}}
spawns:
  - prefab: broken
    label: wreck
`))
	if err != nil {
		t.Fatal(err)
	}
	w := ecs.NewWorld()
	if _, err := m.Apply(w, nil); err == nil {
		t.Fatal("expected an unregistered component error")
	}
	if w.Len() != 0 {
		t.Fatalf("failed spawn left %d entities", w.Len())
	}
	if _, ok := w.Entity("wreck"); ok {
		t.Fatal("failed spawn kept its label")
	}

	before := w.Len()
	if e, err := m.Instantiate(w, "broken"); err == nil || e != 0 {
		t.Fatalf("expected (0, error), got (%d, %v)", e, err)
	}
	if w.Len() != before {
		t.Fatalf("entity count changed from %d to %d", before, w.Len())
	}
}

func TestInstantiateRollsBackRejectedAdd(t *testing.T) {
	m, _ := ParseManifest([]byte(`
components: [{name: A}, {name: B}]
prefabs: [{name: pair, components: {A: {}, B: {}}}]
`))
	w := ecs.NewWorld()
	if _, err := m.Apply(w, nil); err != nil {
		t.Fatal(err)
	}
	// attaching A also attaches B, so the prefab's own B is rejected
	added, _ := w.Components().OnAdded("A")
	added.Subscribe(func(e ecs.Entity) { _, _ = w.AddComponent(e, "B", nil) })

	if _, err := m.Instantiate(w, "pair"); err == nil {
		t.Fatal("expected the duplicate add to fail")
	}
	if w.Len() != 0 {
		t.Fatalf("expected the entity destroyed immediately, %d alive", w.Len())
	}
}
