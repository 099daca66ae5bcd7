package ecs

import (
	"github.com/l1jgo/ecs/internal/core/event"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TypeField is the reserved key holding a component's type name.
const TypeField = "type"

// Component is one instance attached to one entity. It is handed out by
// reference: systems mutate it in place. The field set is fixed when the
// component is attached.
type Component map[string]any

// Type returns the component's type name.
func (c Component) Type() string {
	s, _ := c[TypeField].(string)
	return s
}

// Set updates an existing field. Unknown fields and the type field are
// rejected.
func (c Component) Set(field string, v any) bool {
	if field == TypeField {
		return false
	}
	if _, ok := c[field]; !ok {
		return false
	}
	c[field] = v
	return true
}

// Float reads a numeric field as float64.
func (c Component) Float(field string) float64 {
	switch v := c[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return 0
}

// Int reads a numeric field as int, truncating floats.
func (c Component) Int(field string) int {
	switch v := c[field].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	}
	return 0
}

// Text reads a string field.
func (c Component) Text(field string) string {
	s, _ := c[field].(string)
	return s
}

// Bool reads a boolean field.
func (c Component) Bool(field string) bool {
	b, _ := c[field].(bool)
	return b
}

type componentType struct {
	id        TypeID
	name      string
	defaults  map[string]any
	instances map[Entity]Component
	entities  EntitySet
	onAdded   *event.Signal[Entity]
	onRemoved *event.Signal[Entity]
}

// Components stores component schemas and per-entity instances, and keeps a
// mask per entity for constant-time membership tests.
type Components struct {
	types     *TypeRegistry
	byName    map[string]*componentType
	byID      map[TypeID]*componentType
	masks     map[Entity]*Mask
	log       *zap.Logger
	warnAbove int

	onRegistered *event.Signal[string]
}

func NewComponents(types *TypeRegistry, log *zap.Logger, warnAbove int) *Components {
	if log == nil {
		log = zap.NewNop()
	}
	return &Components{
		types:     types,
		byName:    make(map[string]*componentType, 16),
		byID:      make(map[TypeID]*componentType, 16),
		masks:     make(map[Entity]*Mask, 256),
		log:       log,
		warnAbove: warnAbove,

		onRegistered: event.NewSignal[string]("component.registered", log, warnAbove),
	}
}

// Register declares a component type with its default field values.
func (c *Components) Register(name string, defaults map[string]any) error {
	id, err := c.types.Register(name)
	if err != nil {
		return eris.Wrapf(err, "register component %q", name)
	}
	d := make(map[string]any, len(defaults))
	for k, v := range defaults {
		if k == TypeField {
			continue
		}
		d[k] = v
	}
	ct := &componentType{
		id:        id,
		name:      name,
		defaults:  d,
		instances: make(map[Entity]Component),
		onAdded:   event.NewSignal[Entity]("component.added:"+name, c.log, c.warnAbove),
		onRemoved: event.NewSignal[Entity]("component.removed:"+name, c.log, c.warnAbove),
	}
	c.byName[name] = ct
	c.byID[id] = ct
	c.onRegistered.Emit(name)
	return nil
}

// Unregister detaches the component from every holder, emitting one remove
// notification per entity, then frees the type.
func (c *Components) Unregister(name string) error {
	ct, ok := c.byName[name]
	if !ok {
		return eris.Wrapf(ErrNotRegistered, "unregister component %q", name)
	}
	for _, e := range ct.entities.Slice() {
		c.detach(ct, e)
		ct.onRemoved.Emit(e)
	}
	delete(c.byName, name)
	delete(c.byID, ct.id)
	ct.onAdded.Clear()
	ct.onRemoved.Clear()
	return c.types.Unregister(name)
}

// Registered reports whether name is a live component type.
func (c *Components) Registered(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Lookup returns the type id bound to name.
func (c *Components) Lookup(name string) (TypeID, bool) {
	ct, ok := c.byName[name]
	if !ok {
		return 0, false
	}
	return ct.id, true
}

// Add attaches a new instance built from the type defaults overlaid with
// partial. Attaching twice is an error; the first instance is kept.
func (c *Components) Add(e Entity, name string, partial map[string]any) (Component, error) {
	ct, ok := c.byName[name]
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "add component %q", name)
	}
	if _, ok := ct.instances[e]; ok {
		return nil, eris.Wrapf(ErrAlreadyAttached, "add component %q to entity %d", name, e)
	}

	inst := make(Component, len(ct.defaults)+len(partial)+1)
	for k, v := range ct.defaults {
		inst[k] = v
	}
	for k, v := range partial {
		inst[k] = v
	}
	inst[TypeField] = name

	ct.instances[e] = inst
	ct.entities.Add(e)
	m, ok := c.masks[e]
	if !ok {
		m = &Mask{}
		c.masks[e] = m
	}
	m.Set(ct.id)

	ct.onAdded.Emit(e)
	return inst, nil
}

// Get returns e's instance of name, or nil if it has none.
func (c *Components) Get(e Entity, name string) (Component, error) {
	ct, ok := c.byName[name]
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "get component %q", name)
	}
	return ct.instances[e], nil
}

// GetMany looks up several components at once; missing entries are nil.
func (c *Components) GetMany(e Entity, names []string) ([]Component, error) {
	out := make([]Component, len(names))
	var firstErr error
	for i, name := range names {
		inst, err := c.Get(e, name)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		out[i] = inst
	}
	return out, firstErr
}

// Has reports whether e holds name. Unregistered names are never held.
func (c *Components) Has(e Entity, name string) bool {
	ct, ok := c.byName[name]
	if !ok {
		return false
	}
	return c.HasID(e, ct.id)
}

// HasID tests a type bit directly.
func (c *Components) HasID(e Entity, id TypeID) bool {
	m, ok := c.masks[e]
	return ok && m.Has(id)
}

// HasAll reports whether e holds every one of names.
func (c *Components) HasAll(e Entity, names []string) bool {
	for _, name := range names {
		if !c.Has(e, name) {
			return false
		}
	}
	return true
}

// Mask returns a copy of e's component mask.
func (c *Components) Mask(e Entity) Mask {
	m, ok := c.masks[e]
	if !ok {
		return Mask{}
	}
	return m.Clone()
}

// Remove detaches name from e.
func (c *Components) Remove(e Entity, name string) error {
	ct, ok := c.byName[name]
	if !ok {
		return eris.Wrapf(ErrNotRegistered, "remove component %q", name)
	}
	if _, ok := ct.instances[e]; !ok {
		return eris.Wrapf(ErrNotAttached, "remove component %q from entity %d", name, e)
	}
	c.detach(ct, e)
	ct.onRemoved.Emit(e)
	return nil
}

// RemoveAll detaches every component of e in type id order.
func (c *Components) RemoveAll(e Entity) {
	m, ok := c.masks[e]
	if !ok {
		return
	}
	snapshot := m.Clone()
	snapshot.Each(func(id TypeID) {
		ct, ok := c.byID[id]
		if !ok {
			return
		}
		if _, ok := ct.instances[e]; !ok {
			return
		}
		c.detach(ct, e)
		ct.onRemoved.Emit(e)
	})
}

// Entities returns the live set of holders of name. Callers must not modify it.
func (c *Components) Entities(name string) (*EntitySet, error) {
	ct, ok := c.byName[name]
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "entities of component %q", name)
	}
	return &ct.entities, nil
}

// OnRegistered is emitted with the name of every newly registered type,
// including a name registered again after Unregister.
func (c *Components) OnRegistered() *event.Signal[string] { return c.onRegistered }

// OnAdded returns the signal emitted after name is attached to an entity.
func (c *Components) OnAdded(name string) (*event.Signal[Entity], error) {
	ct, ok := c.byName[name]
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "added listener for component %q", name)
	}
	return ct.onAdded, nil
}

// OnRemoved returns the signal emitted after name is detached from an entity.
func (c *Components) OnRemoved(name string) (*event.Signal[Entity], error) {
	ct, ok := c.byName[name]
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "removed listener for component %q", name)
	}
	return ct.onRemoved, nil
}

func (c *Components) detach(ct *componentType, e Entity) {
	delete(ct.instances, e)
	ct.entities.Remove(e)
	if m, ok := c.masks[e]; ok {
		m.Clear(ct.id)
		if m.Empty() {
			delete(c.masks, e)
		}
	}
}
