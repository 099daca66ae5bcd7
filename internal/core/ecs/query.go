package ecs

import (
	"strings"

	"github.com/l1jgo/ecs/internal/core/event"
	"github.com/rotisserie/eris"
)

// Term is one predicate of a query: the component must be present, or
// absent when Exclude is set.
type Term struct {
	Component string
	Exclude   bool
}

func (t Term) String() string {
	if t.Exclude {
		return "!" + t.Component
	}
	return t.Component
}

// Require matches entities holding component.
func Require(component string) Term { return Term{Component: component} }

// Exclude matches entities lacking component.
func Exclude(component string) Term { return Term{Component: component, Exclude: true} }

// Query is a flat conjunction of terms.
type Query []Term

// NewQuery builds a query from terms.
func NewQuery(terms ...Term) Query { return Query(terms) }

// Names is shorthand for a query of required components.
func Names(components ...string) Query {
	q := make(Query, len(components))
	for i, c := range components {
		q[i] = Require(c)
	}
	return q
}

// ParseQuery reads "Name" as required and "!Name" as excluded.
func ParseQuery(items []string) Query {
	q := make(Query, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if name, ok := strings.CutPrefix(item, "!"); ok {
			q = append(q, Exclude(strings.TrimSpace(name)))
			continue
		}
		q = append(q, Require(item))
	}
	return q
}

func (q Query) String() string {
	parts := make([]string, len(q))
	for i, t := range q {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

type compiledTerm struct {
	id      TypeID
	exclude bool
}

type queryState struct {
	query       Query
	terms       []compiledTerm
	result      EntitySet
	dirty       EntitySet
	subs        []*event.Subscription
	markDirty   func(Entity)
	evaluations uint64
}

// Queries caches the result of each registered query and keeps it current
// by re-testing only the entities whose relevant components changed.
type Queries struct {
	components *Components
	states     map[string]*queryState
}

func NewQueries(components *Components) *Queries {
	m := &Queries{
		components: components,
		states:     make(map[string]*queryState, 16),
	}
	components.OnRegistered().Subscribe(m.rebind)
	return m
}

// Register compiles q under key and subscribes to add/remove of every
// component it references. Entities that already hold a referenced
// component are queued for their first evaluation.
func (m *Queries) Register(key string, q Query) error {
	if _, ok := m.states[key]; ok {
		return eris.Wrapf(ErrAlreadyRegistered, "query %q", key)
	}
	if len(q) == 0 {
		return eris.Wrapf(ErrEmptyQuery, "query %q", key)
	}
	terms := make([]compiledTerm, len(q))
	for i, t := range q {
		id, ok := m.components.Lookup(t.Component)
		if !ok {
			return eris.Wrapf(ErrNotRegistered, "query %q references component %q", key, t.Component)
		}
		terms[i] = compiledTerm{id: id, exclude: t.Exclude}
	}

	st := &queryState{
		query: append(Query(nil), q...),
		terms: terms,
	}
	st.markDirty = func(e Entity) { st.dirty.Add(e) }
	seen := make(map[string]bool, len(q))
	for _, t := range q {
		if seen[t.Component] {
			continue
		}
		seen[t.Component] = true
		m.subscribe(st, t.Component)
	}

	// seed with current holders; an all-exclude query has no holders to
	// seed from and only picks up entities as they change
	for _, t := range q {
		if !t.Exclude {
			m.seed(st, t.Component)
		}
	}

	m.states[key] = st
	return nil
}

// Unregister drops the query and its subscriptions.
func (m *Queries) Unregister(key string) error {
	st, ok := m.states[key]
	if !ok {
		return eris.Wrapf(ErrNotRegistered, "query %q", key)
	}
	for _, sub := range st.subs {
		sub.Unsubscribe()
	}
	delete(m.states, key)
	return nil
}

// Registered reports whether key has a query.
func (m *Queries) Registered(key string) bool {
	_, ok := m.states[key]
	return ok
}

// Query returns the query registered under key.
func (m *Queries) Query(key string) (Query, bool) {
	st, ok := m.states[key]
	if !ok {
		return nil, false
	}
	return st.query, true
}

// Execute brings the cached result up to date and returns it. The set is
// owned by the manager and stays valid until the query is unregistered.
func (m *Queries) Execute(key string) (*EntitySet, error) {
	st, ok := m.states[key]
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "query %q", key)
	}
	if st.dirty.Len() == 0 {
		return &st.result, nil
	}
	st.dirty.Each(func(e Entity) bool {
		if m.matches(st, e) {
			st.result.Add(e)
		} else {
			st.result.Remove(e)
		}
		return true
	})
	st.dirty.Clear()
	return &st.result, nil
}

// Evaluations returns how many predicate evaluations key has performed.
func (m *Queries) Evaluations(key string) uint64 {
	st, ok := m.states[key]
	if !ok {
		return 0
	}
	return st.evaluations
}

// Pending returns how many entities are waiting for re-evaluation.
func (m *Queries) Pending(key string) int {
	st, ok := m.states[key]
	if !ok {
		return 0
	}
	return st.dirty.Len()
}

// Forget drops a destroyed entity from every result. Needed for queries made
// only of exclusions, which an entity can match while holding nothing.
func (m *Queries) Forget(e Entity) {
	for _, st := range m.states {
		st.result.Remove(e)
		st.dirty.Remove(e)
	}
}

// rebind points the terms naming a component registered again after
// Unregister at its new bit and listens to the new type's signals. The old
// subscriptions died with the old type.
func (m *Queries) rebind(name string) {
	id, ok := m.components.Lookup(name)
	if !ok {
		return
	}
	for _, st := range m.states {
		bound := false
		for i, t := range st.query {
			if t.Component == name {
				st.terms[i].id = id
				bound = true
			}
		}
		if !bound {
			continue
		}
		live := st.subs[:0]
		for _, sub := range st.subs {
			if sub.Active() {
				live = append(live, sub)
			}
		}
		clear(st.subs[len(live):])
		st.subs = live
		m.subscribe(st, name)
		m.seed(st, name)
	}
}

func (m *Queries) subscribe(st *queryState, name string) {
	added, _ := m.components.OnAdded(name)
	removed, _ := m.components.OnRemoved(name)
	st.subs = append(st.subs, added.Subscribe(st.markDirty), removed.Subscribe(st.markDirty))
}

func (m *Queries) seed(st *queryState, name string) {
	holders, err := m.components.Entities(name)
	if err != nil {
		return
	}
	holders.Each(func(e Entity) bool {
		st.dirty.Add(e)
		return true
	})
}

func (m *Queries) matches(st *queryState, e Entity) bool {
	for _, t := range st.terms {
		st.evaluations++
		if m.components.HasID(e, t.id) == t.exclude {
			return false
		}
	}
	return true
}
