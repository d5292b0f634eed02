package ecs

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/kamstrup/intmap"
)

// Archetype stores all entities sharing one exact set of component types.
//
// Rows live in blocks of MaxNumEntitiesPerBlock. Each row has one metadata
// cell holding its EntityId plus one cell per component column. A short id
// is in exactly one state: never allocated (>= cursor), pending birth
// (toBorn), alive, pending death (toKill, a subset of alive) or dead
// (cemetery).
//
//	           DelayedNew       Apply         DelayedKill       Apply
//	allocate ------------> toBorn ----> alive ------------> toKill ----> cemetery
//	    ^                                ^  |                               |
//	    |              New               |  +------------ Kill ------------>|
//	    +--------------------------------+----------- recycle --------------+
type Archetype struct {
	id        ArchetypeId
	world     *World
	signature Signature
	types     []*ComponentType

	// cols[componentId] is the column index, -1 if absent.
	cols     [MaxNumComponents]int16
	columns  []column
	metas    []*[MaxNumEntitiesPerBlock]EntityId
	cellSize uintptr

	cursor   EntityShortId
	alives   *roaring.Bitmap
	cemetery *Cemetery
	toBorn   *intmap.Map[EntityShortId, pendingOp]
	toKill   *intmap.Map[EntityShortId, pendingOp]
}

// pendingOp is a delayed birth or kill. seq matches the world queue entry
// that applies it; entries left behind by direct applies or kills never match.
type pendingOp struct {
	seq uint64
	fn  func(EntityRef)
}

func newArchetype(id ArchetypeId, w *World, types []*ComponentType) *Archetype {
	types = slices.Clone(types)
	slices.SortFunc(types, func(x, y *ComponentType) int { return cmp.Compare(x.id, y.id) })

	a := &Archetype{
		id:        id,
		world:     w,
		signature: SignatureOf(types...),
		types:     types,
		columns:   make([]column, len(types)),
		cellSize:  unsafe.Sizeof(EntityId(0)),
		alives:    roaring.New(),
		cemetery:  NewCemetery(),
		toBorn:    intmap.New[EntityShortId, pendingOp](16),
		toKill:    intmap.New[EntityShortId, pendingOp](16),
	}

	for i := range a.cols {
		a.cols[i] = -1
	}
	for idx, ct := range types {
		a.cols[ct.id] = int16(idx)
		a.columns[idx] = ct.newColumn()
		a.cellSize = max(a.cellSize, ct.Size())
	}
	return a
}

// ID returns the archetype id.
func (a *Archetype) ID() ArchetypeId {
	return a.id
}

// World returns the owning world.
func (a *Archetype) World() *World {
	return a.world
}

// Signature returns the component signature.
func (a *Archetype) Signature() Signature {
	return a.signature
}

// Components returns the component types in ascending id order.
func (a *Archetype) Components() []*ComponentType {
	return slices.Clone(a.types)
}

// Has reports whether the archetype contains the component type.
func (a *Archetype) Has(ct *ComponentType) bool {
	return a.cols[ct.id] >= 0
}

// NumEntities returns the number of alive entities.
func (a *Archetype) NumEntities() int {
	return int(a.cursor) - a.cemetery.Size() - a.toBorn.Len()
}

// NumBlocks returns the number of allocated blocks.
func (a *Archetype) NumBlocks() int {
	return len(a.metas)
}

// CellSize returns the size of the widest cell in a row.
func (a *Archetype) CellSize() int {
	return int(a.cellSize)
}

// BlockSize returns the byte size of one block of rows.
func (a *Archetype) BlockSize() int {
	return MaxNumEntitiesPerBlock * (len(a.columns) + 1) * int(a.cellSize)
}

// IsAlive reports whether the short id names an alive entity.
func (a *Archetype) IsAlive(e EntityShortId) bool {
	return e < a.cursor && !a.cemetery.Contains(e) && !a.toBorn.Has(e)
}

// Get returns a reference to the entity, or the null reference if it is not alive.
func (a *Archetype) Get(e EntityShortId) EntityRef {
	if !a.IsAlive(e) {
		return NullEntityRef
	}
	return a.UncheckedGet(e)
}

// UncheckedGet returns a reference to the row without checking liveness.
func (a *Archetype) UncheckedGet(e EntityShortId) EntityRef {
	return EntityRef{
		archetype: a,
		meta:      &a.metas[e/MaxNumEntitiesPerBlock][e%MaxNumEntitiesPerBlock],
		id:        NewEntityId(a.id, e),
	}
}

// NewEntity creates an entity at once and returns a reference to it.
//
// Freed short ids are reused before the cursor grows. A nil init runs the
// default constructor of each component; otherwise init is responsible for
// constructing the components it needs (see Construct) and the rest stay
// zero.
func (a *Archetype) NewEntity(init func(EntityRef)) EntityRef {
	ref := a.allocate()
	a.construct(ref, init)
	a.alives.Add(uint32(ref.id.ShortId()))
	a.world.afterEntityCreated(ref)
	return ref
}

// DelayedNewEntity reserves an entity id and zeroed row now, and constructs
// the entity on World.ApplyDelayedNewEntities. Until then the entity is not
// alive.
func (a *Archetype) DelayedNewEntity(init func(EntityRef)) EntityId {
	ref := a.allocate()
	seq := a.world.addDelayedNewEntity(ref.id)
	a.toBorn.Put(ref.id.ShortId(), pendingOp{seq: seq, fn: init})
	return ref.id
}

// ApplyDelayedNewEntity constructs a pending entity. It is a no-op if the
// short id is not pending birth.
func (a *Archetype) ApplyDelayedNewEntity(e EntityShortId) {
	if op, ok := a.toBorn.Get(e); ok {
		a.applyDelayedNewEntity(e, op)
	}
}

func (a *Archetype) applyDelayedNewEntity(e EntityShortId, op pendingOp) {
	a.toBorn.Del(e)
	ref := a.UncheckedGet(e)
	a.construct(ref, op.fn)
	a.alives.Add(uint32(e))
	a.world.afterEntityCreated(ref)
}

// Kill destroys an alive entity at once. The optional callback runs first,
// while the reference is still valid. Dead or unknown short ids are ignored.
func (a *Archetype) Kill(e EntityShortId, beforeKill func(EntityRef)) {
	if !a.IsAlive(e) {
		return
	}
	ref := a.UncheckedGet(e)
	if beforeKill != nil {
		beforeKill(ref)
	}
	a.world.beforeEntityRemoved(ref)
	for _, c := range a.columns {
		c.destruct(e)
	}
	*ref.meta = 0
	a.cemetery.Add(e)
	a.alives.Remove(uint32(e))
	a.toKill.Del(e)
}

// DelayedKill marks an alive entity to be killed on World.ApplyDelayedKills.
// The entity stays alive and visible until then. Marking twice keeps the
// first callback.
func (a *Archetype) DelayedKill(e EntityShortId, beforeKill func(EntityRef)) {
	if !a.IsAlive(e) || a.toKill.Has(e) {
		return
	}
	seq := a.world.addDelayedKill(NewEntityId(a.id, e))
	a.toKill.Put(e, pendingOp{seq: seq, fn: beforeKill})
}

// ApplyDelayedKill kills a pending entity. It is a no-op if the short id is
// not pending death.
func (a *Archetype) ApplyDelayedKill(e EntityShortId) {
	if op, ok := a.toKill.Get(e); ok {
		a.Kill(e, op.fn)
	}
}

// applyQueuedKill kills e if its pending kill was queued as seq.
func (a *Archetype) applyQueuedKill(e EntityShortId, seq uint64) bool {
	op, ok := a.toKill.Get(e)
	if !ok || op.seq != seq {
		return false
	}
	a.Kill(e, op.fn)
	return true
}

// applyQueuedNewEntity constructs e if its pending birth was queued as seq.
func (a *Archetype) applyQueuedNewEntity(e EntityShortId, seq uint64) bool {
	op, ok := a.toBorn.Get(e)
	if !ok || op.seq != seq {
		return false
	}
	a.applyDelayedNewEntity(e, op)
	return true
}

// ForEach calls fn for every alive entity in ascending short id order, or
// descending if reversed. Creating or killing entities of this archetype
// inside fn is undefined behavior; use Collect or the delayed operations.
func (a *Archetype) ForEach(fn func(EntityRef), reversed bool) {
	a.forEachUntil(func(ref EntityRef) bool {
		fn(ref)
		return false
	}, reversed)
}

// ForEachUntil is ForEach that stops once fn returns true.
func (a *Archetype) ForEachUntil(fn func(EntityRef) bool, reversed bool) {
	a.forEachUntil(fn, reversed)
}

// All iterates alive entities in ascending order.
func (a *Archetype) All() iter.Seq[EntityRef] {
	return func(yield func(EntityRef) bool) {
		a.forEachUntil(func(ref EntityRef) bool { return !yield(ref) }, false)
	}
}

// Backward iterates alive entities in descending order.
func (a *Archetype) Backward() iter.Seq[EntityRef] {
	return func(yield func(EntityRef) bool) {
		a.forEachUntil(func(ref EntityRef) bool { return !yield(ref) }, true)
	}
}

// forEachUntil reports whether fn stopped the iteration.
func (a *Archetype) forEachUntil(fn func(EntityRef) bool, reversed bool) bool {
	var it roaring.IntIterable
	if reversed {
		it = a.alives.ReverseIterator()
	} else {
		it = a.alives.Iterator()
	}
	for it.HasNext() {
		e := EntityShortId(it.Next())
		if a.cemetery.Contains(e) || a.toBorn.Has(e) {
			continue
		}
		if fn(a.UncheckedGet(e)) {
			return true
		}
	}
	return false
}

// Reserve preallocates storage for n entities.
func (a *Archetype) Reserve(n int) {
	nBlocks := (n + MaxNumEntitiesPerBlock - 1) / MaxNumEntitiesPerBlock
	a.grow(nBlocks)
	a.cemetery.Reserve(nBlocks)
	if a.toBorn.Len() == 0 {
		a.toBorn = intmap.New[EntityShortId, pendingOp](n)
	}
	if a.toKill.Len() == 0 {
		a.toKill = intmap.New[EntityShortId, pendingOp](n)
	}
}

func (a *Archetype) grow(nBlocks int) {
	for len(a.metas) < nBlocks {
		a.metas = append(a.metas, new([MaxNumEntitiesPerBlock]EntityId))
	}
	for _, c := range a.columns {
		c.grow(nBlocks)
	}
}

// allocate takes a recycled short id or bumps the cursor, and returns a
// reference to the zeroed row with its metadata written.
func (a *Archetype) allocate() EntityRef {
	var e EntityShortId
	if !a.cemetery.Empty() {
		e = a.cemetery.Pop()
		for _, c := range a.columns {
			c.zero(e)
		}
	} else {
		if a.cursor >= MaxNumEntitiesPerArchetype {
			panic(fmt.Sprintf("archetype %d is full: %d entities", a.id, MaxNumEntitiesPerArchetype))
		}
		e = a.cursor
		a.cursor++
		if int(e) >= len(a.metas)*MaxNumEntitiesPerBlock {
			a.grow(len(a.metas) + 1)
		}
	}
	ref := a.UncheckedGet(e)
	*ref.meta = ref.id
	return ref
}

func (a *Archetype) construct(ref EntityRef, init func(EntityRef)) {
	prev, nested := a.world.constructingEntity()
	a.world.setConstructing(ref.id)
	if init == nil {
		e := ref.id.ShortId()
		for _, c := range a.columns {
			c.construct(e)
		}
	} else {
		init(ref)
	}
	// init may create entities of its own.
	if nested {
		a.world.setConstructing(prev)
	} else {
		a.world.clearConstructing()
	}
}
