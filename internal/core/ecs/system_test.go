package ecs

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
)

type updateCall struct {
	entities []Entity
	dt       time.Duration
	now      time.Duration
}

type updateSpy struct {
	calls []updateCall
	panic bool
}

func (s *updateSpy) update(entities *EntitySet, dt, now time.Duration) {
	s.calls = append(s.calls, updateCall{entities: entities.Slice(), dt: dt, now: now})
	if s.panic {
		panic("system error")
	}
}

func newSystemsFixture(t *testing.T) (*Components, *Systems) {
	t.Helper()
	c, q := newQueryFixture(t)
	log, _ := observedLogger()
	return c, NewSystems(q, log)
}

func TestSystemsRunInRegistrationOrder(t *testing.T) {
	c, s := newSystemsFixture(t)
	_, _ = c.Add(0, "Position", nil)
	var order []string
	for _, name := range []string{"b", "a", "c"} {
		name := name
		_ = s.Register(name, Names("Position"), func(*EntitySet, time.Duration, time.Duration) {
			order = append(order, name)
		})
	}

	s.Run(time.Millisecond, time.Millisecond)

	if len(order) != 3 || order[0] != "b" || order[1] != "a" || order[2] != "c" {
		t.Fatalf("expected [b a c], got %v", order)
	}
	names := s.Names()
	if len(names) != 3 || names[0] != "b" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestSystemSkippedWhenResultEmpty(t *testing.T) {
	_, s := newSystemsFixture(t)
	spy := &updateSpy{}
	_ = s.Register("Movement", Names("Position"), spy.update)

	stats := s.Run(time.Millisecond, 0)

	if len(spy.calls) != 0 {
		t.Fatal("system must not be called with an empty result")
	}
	if stats.Skipped != 1 || stats.Systems != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPanickingSystemDoesNotStopOthers(t *testing.T) {
	c, s := newSystemsFixture(t)
	_, _ = c.Add(0, "Position", nil)
	bad := &updateSpy{panic: true}
	good := &updateSpy{}
	_ = s.Register("bad", Names("Position"), bad.update)
	_ = s.Register("good", Names("Position"), good.update)

	stats := s.Run(time.Millisecond, 0)

	if len(good.calls) != 1 {
		t.Fatal("second system should still run")
	}
	if stats.Failed != 1 || stats.Systems != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestSystemRegisterErrors(t *testing.T) {
	_, s := newSystemsFixture(t)
	spy := &updateSpy{}
	if err := s.Register("Movement", Names("Position"), spy.update); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("Movement", Names("Position"), spy.update); !eris.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if err := s.Register("Nil", Names("Position"), nil); !eris.Is(err, ErrNilUpdate) {
		t.Fatalf("expected ErrNilUpdate, got %v", err)
	}
	if err := s.Register("Ghost", Names("Ghost"), spy.update); !eris.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if s.Registered("Ghost") || s.queries.Registered("Ghost") {
		t.Fatal("a failed registration must leave nothing behind")
	}
	if err := s.Unregister("Ghost"); !eris.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestUnregisterSystemDuringRun(t *testing.T) {
	c, s := newSystemsFixture(t)
	_, _ = c.Add(0, "Position", nil)
	later := &updateSpy{}
	_ = s.Register("first", Names("Position"), func(*EntitySet, time.Duration, time.Duration) {
		_ = s.Unregister("later")
	})
	_ = s.Register("later", Names("Position"), later.update)

	s.Run(time.Millisecond, 0)

	if len(later.calls) != 0 {
		t.Fatal("a system removed earlier in the run must not be called")
	}
	if s.Len() != 1 || s.queries.Registered("later") {
		t.Fatal("system and its query should be gone")
	}
}
