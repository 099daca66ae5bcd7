package ecs

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// UpdateFunc is a system body. entities is the system's current query result;
// it must not be modified. dt is the frame delta and now the frame timestamp.
type UpdateFunc func(entities *EntitySet, dt time.Duration, now time.Duration)

type systemEntry struct {
	name    string
	update  UpdateFunc
	removed bool
}

// RunStats summarises one pass over the registered systems.
type RunStats struct {
	Systems  int // systems invoked
	Skipped  int // systems with an empty result
	Failed   int // systems that panicked
	Entities int // sum of result sizes passed to invoked systems
}

// Systems runs registered update functions in registration order, each
// against its own cached query.
type Systems struct {
	queries *Queries
	order   []*systemEntry
	byName  map[string]*systemEntry
	log     *zap.Logger
}

func NewSystems(queries *Queries, log *zap.Logger) *Systems {
	if log == nil {
		log = zap.NewNop()
	}
	return &Systems{
		queries: queries,
		order:   make([]*systemEntry, 0, 16),
		byName:  make(map[string]*systemEntry, 16),
		log:     log,
	}
}

// Register adds a system and its query. On any error nothing is registered.
func (s *Systems) Register(name string, q Query, fn UpdateFunc) error {
	if _, ok := s.byName[name]; ok {
		return eris.Wrapf(ErrAlreadyRegistered, "system %q", name)
	}
	if fn == nil {
		return eris.Wrapf(ErrNilUpdate, "system %q", name)
	}
	if err := s.queries.Register(name, q); err != nil {
		return eris.Wrapf(err, "system %q", name)
	}
	e := &systemEntry{name: name, update: fn}
	s.order = append(s.order, e)
	s.byName[name] = e
	return nil
}

// Unregister removes a system and its query.
func (s *Systems) Unregister(name string) error {
	e, ok := s.byName[name]
	if !ok {
		return eris.Wrapf(ErrNotRegistered, "system %q", name)
	}
	e.removed = true
	delete(s.byName, name)
	for i, o := range s.order {
		if o == e {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return s.queries.Unregister(name)
}

// Registered reports whether name is a registered system.
func (s *Systems) Registered(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Names returns system names in registration order.
func (s *Systems) Names() []string {
	out := make([]string, len(s.order))
	for i, e := range s.order {
		out[i] = e.name
	}
	return out
}

// Len returns the number of registered systems.
func (s *Systems) Len() int { return len(s.order) }

// Run evaluates every system once. Systems with an empty result are not
// called. A panicking system is logged and the run continues.
func (s *Systems) Run(dt, now time.Duration) RunStats {
	var stats RunStats
	order := s.order
	for _, e := range order {
		if e.removed {
			continue
		}
		entities, err := s.queries.Execute(e.name)
		if err != nil {
			s.log.Error("system query failed", zap.String("system", e.name), zap.Error(err))
			stats.Failed++
			continue
		}
		if entities.Len() == 0 {
			stats.Skipped++
			continue
		}
		stats.Systems++
		stats.Entities += entities.Len()
		if !s.invoke(e, entities, dt, now) {
			stats.Failed++
		}
	}
	return stats
}

func (s *Systems) invoke(e *systemEntry, entities *EntitySet, dt, now time.Duration) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("system update panicked",
				zap.String("system", e.name),
				zap.Any("panic", r))
			ok = false
		}
	}()
	e.update(entities, dt, now)
	return true
}
