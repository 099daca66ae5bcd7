package ecs

import (
	"time"

	"github.com/l1jgo/ecs/internal/core/event"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultListenerWarnLimit is the subscriber count above which a signal logs
// a warning.
const DefaultListenerWarnLimit = 10

// World is the top-level ECS container. It owns the entity pool, component
// store, query cache and system list.
//
// Additive operations apply immediately. Destructive ones (DestroyEntity,
// DestroyAllEntities, UnregisterComponent, UnregisterSystem) are queued and
// applied at the start of the next Tick, before any system runs.
//
// Misuse never panics: the offending call is logged, returns its error and
// leaves the world unchanged. A World is not safe for concurrent use.
type World struct {
	log       *zap.Logger
	warnAbove int

	types      *TypeRegistry
	components *Components
	pool       *EntityPool
	queries    *Queries
	systems    *Systems

	destroyQueue    *event.Buffer[Entity]
	componentQueue  *event.Buffer[string]
	systemQueue     *event.Buffer[string]
	destroyAllQueue bool
	pendingDestroy  EntitySet
	flushing        bool

	clock   time.Duration
	ticks   uint64
	context any
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the logger used for diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(w *World) { w.log = log }
}

// WithListenerWarnLimit sets the soft subscriber cap per signal. Zero
// disables the warning.
func WithListenerWarnLimit(n int) Option {
	return func(w *World) { w.warnAbove = n }
}

func NewWorld(opts ...Option) *World {
	w := &World{
		log:       zap.NewNop(),
		warnAbove: DefaultListenerWarnLimit,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}
	w.types = NewTypeRegistry()
	w.components = NewComponents(w.types, w.log, w.warnAbove)
	w.pool = NewEntityPool(w.components, w.log, w.warnAbove)
	w.queries = NewQueries(w.components)
	w.systems = NewSystems(w.queries, w.log)
	w.destroyQueue = event.NewBuffer[Entity](64)
	w.componentQueue = event.NewBuffer[string](4)
	w.systemQueue = event.NewBuffer[string](4)

	w.pool.OnDestroy().Subscribe(w.queries.Forget)
	return w
}

func (w *World) Logger() *zap.Logger { return w.log }
func (w *World) Pool() *EntityPool { return w.pool }
func (w *World) Components() *Components { return w.components }
func (w *World) Queries() *Queries { return w.queries }
func (w *World) Systems() *Systems { return w.systems }
func (w *World) Types() *TypeRegistry { return w.types }
func (w *World) Clock() time.Duration { return w.clock }
func (w *World) Ticks() uint64 { return w.ticks }
func (w *World) Alive(e Entity) bool { return w.pool.Alive(e) }
func (w *World) Len() int { return w.pool.Len() }
func (w *World) Entity(label string) (Entity, bool) { return w.pool.Lookup(label) }

// CreateEntity allocates a new entity.
func (w *World) CreateEntity() Entity {
	return w.pool.Create()
}

// CreateLabeledEntity allocates a new entity reachable through Entity(label).
// If the label is taken the entity is created without it and an error is logged.
func (w *World) CreateLabeledEntity(label string) Entity {
	e, err := w.pool.CreateLabeled(label)
	if err != nil {
		w.fail("create entity", err, zap.String("label", label), zap.Uint32("entity", uint32(e)))
	}
	return e
}

// DestroyEntity queues e for destruction at the start of the next tick.
// Queuing an already queued entity is a no-op.
func (w *World) DestroyEntity(e Entity) error {
	if !w.pool.Alive(e) {
		return w.fail("destroy entity", eris.Wrapf(ErrEntityNotAlive, "entity %d", e), zap.Uint32("entity", uint32(e)))
	}
	if w.pendingDestroy.Has(e) {
		return nil
	}
	w.pendingDestroy.Add(e)
	w.destroyQueue.Push(e)
	return nil
}

// DestroyAllEntities queues destruction of every entity alive at the start
// of the next tick.
func (w *World) DestroyAllEntities() {
	w.destroyAllQueue = true
}

// OnDestroy registers a one-shot hook run when e is destroyed.
func (w *World) OnDestroy(e Entity, fn func()) error {
	if err := w.pool.OnDestroyEntity(e, fn); err != nil {
		return w.fail("on destroy", err, zap.Uint32("entity", uint32(e)))
	}
	return nil
}

// RegisterComponent declares a component type and its defaults.
func (w *World) RegisterComponent(name string, defaults map[string]any) error {
	if err := w.components.Register(name, defaults); err != nil {
		return w.fail("register component", err, zap.String("component", name))
	}
	return nil
}

// UnregisterComponent queues removal of a component type.
func (w *World) UnregisterComponent(name string) error {
	if !w.components.Registered(name) {
		return w.fail("unregister component", eris.Wrapf(ErrNotRegistered, "component %q", name), zap.String("component", name))
	}
	w.componentQueue.Push(name)
	return nil
}

// AddComponent attaches name to e, overlaying partial on the defaults.
func (w *World) AddComponent(e Entity, name string, partial map[string]any) (Component, error) {
	if !w.pool.Alive(e) {
		return nil, w.fail("add component", eris.Wrapf(ErrEntityNotAlive, "entity %d", e),
			zap.String("component", name), zap.Uint32("entity", uint32(e)))
	}
	c, err := w.components.Add(e, name, partial)
	if err != nil {
		return nil, w.fail("add component", err, zap.String("component", name), zap.Uint32("entity", uint32(e)))
	}
	return c, nil
}

// GetComponent returns e's instance of name, or nil.
func (w *World) GetComponent(e Entity, name string) Component {
	c, err := w.components.Get(e, name)
	if err != nil {
		w.fail("get component", err, zap.String("component", name), zap.Uint32("entity", uint32(e)))
	}
	return c
}

// GetComponents returns e's instances of names, nil where absent.
func (w *World) GetComponents(e Entity, names []string) []Component {
	out := make([]Component, len(names))
	for i, name := range names {
		out[i] = w.GetComponent(e, name)
	}
	return out
}

// HasComponent reports whether e holds name.
func (w *World) HasComponent(e Entity, name string) bool {
	if !w.components.Registered(name) {
		w.fail("has component", eris.Wrapf(ErrNotRegistered, "component %q", name), zap.String("component", name))
		return false
	}
	return w.components.Has(e, name)
}

// HasComponents reports whether e holds all of names.
func (w *World) HasComponents(e Entity, names []string) bool {
	for _, name := range names {
		if !w.HasComponent(e, name) {
			return false
		}
	}
	return true
}

// RemoveComponent detaches name from e.
func (w *World) RemoveComponent(e Entity, name string) error {
	if err := w.components.Remove(e, name); err != nil {
		return w.fail("remove component", err, zap.String("component", name), zap.Uint32("entity", uint32(e)))
	}
	return nil
}

// RegisterSystem adds a named update function with its query.
func (w *World) RegisterSystem(name string, q Query, fn UpdateFunc) error {
	if err := w.systems.Register(name, q, fn); err != nil {
		return w.fail("register system", err, zap.String("system", name), zap.Stringer("query", q))
	}
	return nil
}

// UnregisterSystem queues removal of a system.
func (w *World) UnregisterSystem(name string) error {
	if !w.systems.Registered(name) {
		return w.fail("unregister system", eris.Wrapf(ErrNotRegistered, "system %q", name), zap.String("system", name))
	}
	w.systemQueue.Push(name)
	return nil
}

// Execute returns the current result of the named system's query.
func (w *World) Execute(system string) (*EntitySet, error) {
	set, err := w.queries.Execute(system)
	if err != nil {
		return nil, w.fail("execute query", err, zap.String("system", system))
	}
	return set, nil
}

// SetContext stores a world-wide payload for systems to share and returns it.
func (w *World) SetContext(v any) any {
	w.context = v
	return v
}

// Context returns the payload set by SetContext.
func (w *World) Context() any { return w.context }

// PendingStats counts operations applied by Flush.
type PendingStats struct {
	Systems    int
	Components int
	Entities   int
}

// Flush applies queued destructive operations now: systems first, then
// components, then entities. A Flush called from a listener or hook while
// another Flush runs does nothing; what it would apply waits for the next one.
func (w *World) Flush() PendingStats {
	var st PendingStats
	if w.flushing {
		w.log.Debug("nested flush ignored")
		return st
	}
	w.flushing = true
	defer func() { w.flushing = false }()

	for _, name := range w.systemQueue.Swap() {
		if err := w.systems.Unregister(name); err != nil {
			w.fail("unregister system", err, zap.String("system", name))
			continue
		}
		st.Systems++
	}
	for _, name := range w.componentQueue.Swap() {
		if err := w.components.Unregister(name); err != nil {
			w.fail("unregister component", err, zap.String("component", name))
			continue
		}
		st.Components++
	}
	queued := w.destroyQueue.Swap()
	if w.destroyAllQueue {
		w.destroyAllQueue = false
		w.pendingDestroy.Clear()
		st.Entities = w.pool.Len()
		w.pool.DestroyAll()
		return st
	}
	for _, e := range queued {
		w.pendingDestroy.Remove(e)
		if err := w.pool.Destroy(e); err != nil {
			w.fail("destroy entity", err, zap.Uint32("entity", uint32(e)))
			continue
		}
		st.Entities++
	}
	return st
}

// TickStats describes one Tick.
type TickStats struct {
	Tick     uint64
	Delta    time.Duration
	Now      time.Duration
	Entities int
	Applied  PendingStats
	Run      RunStats
	Elapsed  time.Duration
}

// Tick advances the world clock by dt and runs one frame.
func (w *World) Tick(dt time.Duration) TickStats {
	return w.TickAt(dt, w.clock+dt)
}

// TickAt runs one frame with an explicit timestamp: pending destructive
// operations are applied, then every system is evaluated once in
// registration order.
func (w *World) TickAt(dt, now time.Duration) TickStats {
	start := time.Now()
	w.ticks++
	w.clock = now
	st := TickStats{Tick: w.ticks, Delta: dt, Now: now}
	st.Applied = w.Flush()
	st.Run = w.systems.Run(dt, now)
	st.Entities = w.pool.Len()
	st.Elapsed = time.Since(start)
	return st
}

func (w *World) fail(op string, err error, fields ...zap.Field) error {
	w.log.Error(op+" failed", append(fields, zap.Error(err))...)
	return err
}
