package ecs

import "github.com/rotisserie/eris"

// TypeRegistry assigns each component name a unique bit index. Indices are
// handed out monotonically and never reused after Unregister.
type TypeRegistry struct {
	ids   map[string]TypeID
	names map[TypeID]string
	next  TypeID
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		ids:   make(map[string]TypeID, 16),
		names: make(map[TypeID]string, 16),
	}
}

// Register binds name to the next free bit.
func (r *TypeRegistry) Register(name string) (TypeID, error) {
	if _, ok := r.ids[name]; ok {
		return 0, eris.Wrapf(ErrAlreadyRegistered, "type %q", name)
	}
	id := r.next
	r.next++
	r.ids[name] = id
	r.names[id] = name
	return id, nil
}

// Unregister frees the name. Its bit stays retired.
func (r *TypeRegistry) Unregister(name string) error {
	id, ok := r.ids[name]
	if !ok {
		return eris.Wrapf(ErrNotRegistered, "type %q", name)
	}
	delete(r.ids, name)
	delete(r.names, id)
	return nil
}

func (r *TypeRegistry) Lookup(name string) (TypeID, bool) {
	id, ok := r.ids[name]
	return id, ok
}

func (r *TypeRegistry) Name(id TypeID) (string, bool) {
	name, ok := r.names[id]
	return name, ok
}

// Len returns the number of live registrations.
func (r *TypeRegistry) Len() int { return len(r.ids) }
