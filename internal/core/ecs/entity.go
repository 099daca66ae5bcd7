package ecs

import (
	"github.com/l1jgo/ecs/internal/core/event"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Entity is an opaque id. It carries no data of its own.
type Entity uint32

// Removable is implemented by the component store so the pool can strip an
// entity's data on destroy.
type Removable interface {
	RemoveAll(e Entity)
}

// EntityPool allocates entity ids. Destroyed ids are recycled first-in
// first-out before the counter advances.
type EntityPool struct {
	next     Entity
	freeList []Entity
	freeHead int
	alive    EntitySet

	labels  map[string]Entity
	labelOf map[Entity]string
	hooks   map[Entity][]func()

	remover   Removable
	onCreate  *event.Signal[Entity]
	onDestroy *event.Signal[Entity]
	log       *zap.Logger
}

// NewEntityPool creates a pool. remover may be nil.
func NewEntityPool(remover Removable, log *zap.Logger, warnAbove int) *EntityPool {
	if log == nil {
		log = zap.NewNop()
	}
	return &EntityPool{
		freeList:  make([]Entity, 0, 256),
		labels:    make(map[string]Entity),
		labelOf:   make(map[Entity]string),
		hooks:     make(map[Entity][]func()),
		remover:   remover,
		onCreate:  event.NewSignal[Entity]("entity.create", log, warnAbove),
		onDestroy: event.NewSignal[Entity]("entity.destroy", log, warnAbove),
		log:       log,
	}
}

// Create returns the oldest recycled id, or a fresh one.
func (p *EntityPool) Create() Entity {
	e := p.allocate()
	p.onCreate.Emit(e)
	return e
}

// CreateLabeled creates an entity and binds label to it. If the label is
// taken the entity is still created, unlabeled, and ErrLabelInUse is returned.
func (p *EntityPool) CreateLabeled(label string) (Entity, error) {
	if owner, ok := p.labels[label]; ok {
		e := p.Create()
		return e, eris.Wrapf(ErrLabelInUse, "label %q held by entity %d", label, owner)
	}
	e := p.allocate()
	p.labels[label] = e
	p.labelOf[e] = label
	p.onCreate.Emit(e)
	return e, nil
}

// Lookup returns the entity bound to label.
func (p *EntityPool) Lookup(label string) (Entity, bool) {
	e, ok := p.labels[label]
	return e, ok
}

// Label returns the label bound to e, if any.
func (p *EntityPool) Label(e Entity) (string, bool) {
	l, ok := p.labelOf[e]
	return l, ok
}

func (p *EntityPool) Alive(e Entity) bool { return p.alive.Has(e) }

// Len returns the number of alive entities.
func (p *EntityPool) Len() int { return p.alive.Len() }

// Each iterates alive entities in ascending order.
func (p *EntityPool) Each(fn func(Entity) bool) { p.alive.Each(fn) }

// OnDestroyEntity registers a one-shot hook run when e is destroyed.
func (p *EntityPool) OnDestroyEntity(e Entity, fn func()) error {
	if !p.alive.Has(e) {
		return eris.Wrapf(ErrEntityNotAlive, "entity %d", e)
	}
	p.hooks[e] = append(p.hooks[e], fn)
	return nil
}

// Destroy strips e's components, notifies listeners, and makes the id
// available for reuse.
func (p *EntityPool) Destroy(e Entity) error {
	if !p.alive.Has(e) {
		return eris.Wrapf(ErrEntityNotAlive, "entity %d", e)
	}
	p.alive.Remove(e)
	if label, ok := p.labelOf[e]; ok {
		delete(p.labels, label)
		delete(p.labelOf, e)
	}
	if p.remover != nil {
		p.remover.RemoveAll(e)
	}
	p.onDestroy.Emit(e)
	p.runHooks(e)
	// enqueue last so listeners above can never be handed this id while it
	// is still being torn down
	p.freeList = append(p.freeList, e)
	return nil
}

// DestroyAll destroys every alive entity, one notification each, then
// resets the counter and the recycle queue.
func (p *EntityPool) DestroyAll() {
	const maxRounds = 8
	for round := 0; p.alive.Len() > 0 && round < maxRounds; round++ {
		for _, e := range p.alive.Slice() {
			_ = p.Destroy(e)
		}
	}
	if p.alive.Len() > 0 {
		// listeners keep spawning; resetting now would reissue live ids
		p.log.Warn("destroy all: entities still alive, id counter not reset",
			zap.Int("alive", p.alive.Len()))
		return
	}
	p.next = 0
	clear(p.freeList)
	p.freeList = p.freeList[:0]
	p.freeHead = 0
}

// OnCreate is emitted after an entity becomes alive.
func (p *EntityPool) OnCreate() *event.Signal[Entity] { return p.onCreate }

// OnDestroy is emitted after an entity's components have been removed.
func (p *EntityPool) OnDestroy() *event.Signal[Entity] { return p.onDestroy }

func (p *EntityPool) allocate() Entity {
	e, ok := p.dequeue()
	if !ok {
		e = p.next
		p.next++
	}
	p.alive.Add(e)
	return e
}

func (p *EntityPool) dequeue() (Entity, bool) {
	if p.freeHead >= len(p.freeList) {
		return 0, false
	}
	e := p.freeList[p.freeHead]
	p.freeHead++
	if p.freeHead == len(p.freeList) {
		p.freeList = p.freeList[:0]
		p.freeHead = 0
	} else if p.freeHead > 1024 && p.freeHead*2 > len(p.freeList) {
		n := copy(p.freeList, p.freeList[p.freeHead:])
		p.freeList = p.freeList[:n]
		p.freeHead = 0
	}
	return e, true
}

func (p *EntityPool) runHooks(e Entity) {
	hooks, ok := p.hooks[e]
	if !ok {
		return
	}
	delete(p.hooks, e)
	for _, fn := range hooks {
		p.runHook(e, fn)
	}
}

func (p *EntityPool) runHook(e Entity, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("entity destroy hook panicked",
				zap.Uint32("entity", uint32(e)),
				zap.Any("panic", r))
		}
	}()
	fn()
}
