package ecs

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/gammazero/deque"
	"github.com/kamstrup/intmap"
)

type lifecycleEvent uint8

const (
	eventCreated lifecycleEvent = iota
	eventRemoved
)

func (e lifecycleEvent) String() string {
	if e == eventCreated {
		return "created"
	}
	return "removed"
}

type queuedOp struct {
	eid EntityId
	seq uint64
}

type lifecycleCallback struct {
	id    uint32
	event lifecycleEvent
	fn    func(EntityRef)
	aids  *roaring.Bitmap // shared with the matcher
}

// World owns archetypes, the archetype matcher, entity lifecycle callbacks
// and the queues of delayed creations and kills.
//
// A World is not safe for concurrent use. Separate worlds may be used from
// separate goroutines.
type World struct {
	archetypes  []*Archetype
	bySignature map[Signature]*Archetype
	matcher     *matcher
	logger      *slog.Logger

	nextCallbackId uint32
	callbacks      *intmap.Map[uint32, *lifecycleCallback]
	// callbackTable[event][archetypeId] lists callbacks in registration order.
	callbackTable [2][][]*lifecycleCallback

	// Delayed operations in call order. Entries whose seq no longer matches
	// the archetype's pending op are skipped.
	delaySeq uint64
	toBorn   deque.Deque[queuedOp]
	toKill   deque.Deque[queuedOp]

	// Entity whose components are being constructed; read by field indexes
	// to insert initial values.
	constructing    EntityId
	constructingSet bool

	singletons map[*ComponentType]any
}

// NewWorld creates an empty world.
func NewWorld(opts ...Option) *World {
	w := &World{
		bySignature: make(map[Signature]*Archetype),
		matcher:     newMatcher(),
		logger:      slog.New(slog.DiscardHandler),
		callbacks:   intmap.New[uint32, *lifecycleCallback](16),
		singletons:  make(map[*ComponentType]any),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Logger returns the world's logger.
func (w *World) Logger() *slog.Logger {
	return w.logger
}

// NewArchetype creates the archetype for the given component set.
//
// All archetypes should be created before queries are pre-matched and
// callbacks are registered; those only see archetypes that existed at the
// time.
func (w *World) NewArchetype(types ...*ComponentType) (*Archetype, error) {
	if len(types) == 0 {
		return nil, ErrNoComponents
	}

	var sig Signature
	for _, ct := range types {
		if sig.Has(ct.id) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateComponent, ct.Name())
		}
		sig.Set(ct.id)
	}
	if existing, ok := w.bySignature[sig]; ok {
		return nil, fmt.Errorf("%w: archetype %d", ErrArchetypeExists, existing.id)
	}
	if len(w.archetypes) >= MaxNumArchetypesPerWorld {
		return nil, fmt.Errorf("%w: max %d", ErrTooManyArchetypes, MaxNumArchetypesPerWorld)
	}

	aid := ArchetypeId(len(w.archetypes))
	a := newArchetype(aid, w, types)
	w.archetypes = append(w.archetypes, a)
	w.bySignature[sig] = a
	w.matcher.PutArchetypeId(sig, aid)
	for ev := range w.callbackTable {
		w.callbackTable[ev] = append(w.callbackTable[ev], nil)
	}

	w.logger.Debug("archetype created",
		"archetype", aid,
		"components", componentNames(a.types),
		"cellSize", a.cellSize)
	return a, nil
}

// MustNewArchetype is like NewArchetype but panics on error.
func (w *World) MustNewArchetype(types ...*ComponentType) *Archetype {
	a, err := w.NewArchetype(types...)
	if err != nil {
		panic(err)
	}
	return a
}

// Archetype returns the archetype with the given id, or nil.
func (w *World) Archetype(aid ArchetypeId) *Archetype {
	if int(aid) >= len(w.archetypes) {
		return nil
	}
	return w.archetypes[aid]
}

// ArchetypeOf returns the archetype with exactly the given components, or nil.
func (w *World) ArchetypeOf(types ...*ComponentType) *Archetype {
	return w.bySignature[SignatureOf(types...)]
}

// Archetypes iterates archetypes in ascending id order.
func (w *World) Archetypes() iter.Seq[*Archetype] {
	return slices.Values(w.archetypes)
}

// NumArchetypes returns the number of archetypes.
func (w *World) NumArchetypes() int {
	return len(w.archetypes)
}

// NumEntities returns the number of alive entities across all archetypes.
func (w *World) NumEntities() int {
	n := 0
	for _, a := range w.archetypes {
		n += a.NumEntities()
	}
	return n
}

// IsAlive reports whether the entity exists and is alive.
func (w *World) IsAlive(eid EntityId) bool {
	a := w.Archetype(eid.ArchetypeId())
	return a != nil && a.IsAlive(eid.ShortId())
}

// Kill destroys an entity at once. Unknown or dead entities are ignored.
func (w *World) Kill(eid EntityId) {
	if a := w.Archetype(eid.ArchetypeId()); a != nil {
		a.Kill(eid.ShortId(), nil)
	}
}

// DelayedKill marks an entity to be killed on the next ApplyDelayedKills.
// The optional callback runs right before the entity is destroyed.
func (w *World) DelayedKill(eid EntityId, beforeKill func(EntityRef)) {
	if a := w.Archetype(eid.ArchetypeId()); a != nil {
		a.DelayedKill(eid.ShortId(), beforeKill)
	}
}

// Get returns a reference to an alive entity, or the null reference.
func (w *World) Get(eid EntityId) EntityRef {
	a := w.Archetype(eid.ArchetypeId())
	if a == nil {
		return NullEntityRef
	}
	return a.Get(eid.ShortId())
}

// UncheckedGet returns a reference without checking liveness. The entity's
// archetype must exist.
func (w *World) UncheckedGet(eid EntityId) EntityRef {
	return w.archetypes[eid.ArchetypeId()].UncheckedGet(eid.ShortId())
}

// OnEntityCreated registers fn to run right after an entity of any archetype
// containing all the given components is created. No components means all
// archetypes. It returns the callback id for RemoveCallback.
func (w *World) OnEntityCreated(fn func(EntityRef), types ...*ComponentType) (uint32, error) {
	return w.pushCallbackByComponents(eventCreated, fn, types)
}

// OnEntityRemoved registers fn to run right before an entity of any archetype
// containing all the given components is removed.
func (w *World) OnEntityRemoved(fn func(EntityRef), types ...*ComponentType) (uint32, error) {
	return w.pushCallbackByComponents(eventRemoved, fn, types)
}

func (w *World) pushCallbackByComponents(ev lifecycleEvent, fn func(EntityRef), types []*ComponentType) (uint32, error) {
	if len(w.archetypes) == 0 {
		return 0, fmt.Errorf("register %s callback: %w", ev, ErrNoArchetypes)
	}
	aids := w.matcher.MatchAndStore(MatchAll, SignatureOf(types...))
	return w.pushCallback(ev, aids, fn), nil
}

func (w *World) pushCallback(ev lifecycleEvent, aids *roaring.Bitmap, fn func(EntityRef)) uint32 {
	cb := &lifecycleCallback{
		id:    w.nextCallbackId,
		event: ev,
		fn:    fn,
		aids:  aids,
	}
	w.nextCallbackId++
	w.callbacks.Put(cb.id, cb)

	table := w.callbackTable[ev]
	aids.Iterate(func(aid uint32) bool {
		table[aid] = append(table[aid], cb)
		return true
	})

	w.logger.Debug("callback registered", "id", cb.id, "event", ev, "archetypes", aids.GetCardinality())
	return cb.id
}

// RemoveCallback unregisters a lifecycle callback. Unknown ids are ignored.
func (w *World) RemoveCallback(id uint32) {
	cb, ok := w.callbacks.Get(id)
	if !ok {
		return
	}
	w.callbacks.Del(id)

	table := w.callbackTable[cb.event]
	cb.aids.Iterate(func(aid uint32) bool {
		// Copy so an in-flight trigger keeps iterating the old slice.
		table[aid] = slices.DeleteFunc(slices.Clone(table[aid]), func(c *lifecycleCallback) bool {
			return c.id == id
		})
		return true
	})

	w.logger.Debug("callback removed", "id", id, "event", cb.event)
}

// NumCallbacks returns the number of registered lifecycle callbacks.
func (w *World) NumCallbacks() int {
	return w.callbacks.Len()
}

// ApplyDelayedKills kills every entity marked by DelayedKill, in call order.
func (w *World) ApplyDelayedKills() {
	n := 0
	for w.toKill.Len() > 0 {
		op := w.toKill.PopFront()
		if w.archetypes[op.eid.ArchetypeId()].applyQueuedKill(op.eid.ShortId(), op.seq) {
			n++
		}
	}
	if n > 0 {
		w.logger.Debug("applied delayed kills", "count", n)
	}
}

// ApplyDelayedNewEntities constructs every entity created by
// DelayedNewEntity, in call order.
func (w *World) ApplyDelayedNewEntities() {
	n := 0
	for w.toBorn.Len() > 0 {
		op := w.toBorn.PopFront()
		if w.archetypes[op.eid.ArchetypeId()].applyQueuedNewEntity(op.eid.ShortId(), op.seq) {
			n++
		}
	}
	if n > 0 {
		w.logger.Debug("applied delayed new entities", "count", n)
	}
}

// NumDelayedKills returns the number of entities waiting for a delayed kill.
func (w *World) NumDelayedKills() int {
	n := 0
	for _, a := range w.archetypes {
		n += a.toKill.Len()
	}
	return n
}

// NumDelayedNewEntities returns the number of entities waiting to be born.
func (w *World) NumDelayedNewEntities() int {
	n := 0
	for _, a := range w.archetypes {
		n += a.toBorn.Len()
	}
	return n
}

func (w *World) trigger(ev lifecycleEvent, ref EntityRef) {
	table := w.callbackTable[ev]
	aid := int(ref.id.ArchetypeId())
	if aid >= len(table) {
		return
	}
	for _, cb := range table[aid] {
		cb.fn(ref)
	}
}

func (w *World) afterEntityCreated(ref EntityRef) {
	w.trigger(eventCreated, ref)
}

func (w *World) beforeEntityRemoved(ref EntityRef) {
	w.trigger(eventRemoved, ref)
}

func (w *World) addDelayedNewEntity(eid EntityId) uint64 {
	w.delaySeq++
	w.toBorn.PushBack(queuedOp{eid: eid, seq: w.delaySeq})
	return w.delaySeq
}

func (w *World) addDelayedKill(eid EntityId) uint64 {
	w.delaySeq++
	w.toKill.PushBack(queuedOp{eid: eid, seq: w.delaySeq})
	return w.delaySeq
}

func (w *World) setConstructing(eid EntityId) {
	w.constructing = eid
	w.constructingSet = true
}

func (w *World) clearConstructing() {
	w.constructing = 0
	w.constructingSet = false
}

func (w *World) constructingEntity() (EntityId, bool) {
	return w.constructing, w.constructingSet
}

func componentNames(types []*ComponentType) []string {
	names := make([]string, len(types))
	for i, ct := range types {
		names[i] = ct.Name()
	}
	return names
}
