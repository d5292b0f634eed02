package ecs

import (
	"cmp"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// IndexRoot is the value-type independent part of a field index.
type IndexRoot interface {
	// Bind attaches the index to the world whose entities it tracks.
	Bind(w *World)
	IsBound() bool
	// OnValueUpdated registers fn to run after an indexed value changes.
	OnValueUpdated(fn func(EntityId)) uint32
	RemoveOnValueUpdated(id uint32)
	NumCallbacks() int
	Len() int
	Clear()
}

// FieldIndex is an index a Field[V] can bind to.
type FieldIndex[V comparable] interface {
	IndexRoot
	insert(v V) (EntityId, bool)
	erase(v V, eid EntityId)
	update(old, v V, eid EntityId)
}

// EqualityFilterable indexes answer equality and membership predicates.
// Enumeration stops once fn returns true.
type EqualityFilterable[V comparable] interface {
	IndexRoot
	FilterEqual(fn func(EntityId) bool, v V)
	FilterNotEqual(fn func(EntityId) bool, v V)
	FilterIn(fn func(EntityId) bool, set map[V]struct{})
}

// OrderedFilterable indexes also answer range predicates.
type OrderedFilterable[V cmp.Ordered] interface {
	EqualityFilterable[V]
	FilterLess(fn func(EntityId) bool, v V)
	FilterLessEqual(fn func(EntityId) bool, v V)
	FilterGreater(fn func(EntityId) bool, v V)
	FilterGreaterEqual(fn func(EntityId) bool, v V)
	// FilterBetween enumerates values in the closed range [lo, hi].
	FilterBetween(fn func(EntityId) bool, lo, hi V)
}

type valueUpdatedCallback struct {
	id uint32
	fn func(EntityId)
}

// indexBase holds the world binding and update subscriptions of an index.
type indexBase struct {
	world          *World
	nextCallbackId uint32
	callbacks      []valueUpdatedCallback
}

func (b *indexBase) Bind(w *World) {
	b.world = w
}

func (b *indexBase) IsBound() bool {
	return b.world != nil
}

// World returns the bound world, or nil.
func (b *indexBase) World() *World {
	return b.world
}

func (b *indexBase) OnValueUpdated(fn func(EntityId)) uint32 {
	id := b.nextCallbackId
	b.nextCallbackId++
	b.callbacks = append(b.callbacks, valueUpdatedCallback{id: id, fn: fn})
	return id
}

func (b *indexBase) RemoveOnValueUpdated(id uint32) {
	b.callbacks = slices.DeleteFunc(slices.Clone(b.callbacks), func(c valueUpdatedCallback) bool {
		return c.id == id
	})
}

func (b *indexBase) NumCallbacks() int {
	return len(b.callbacks)
}

func (b *indexBase) notify(eid EntityId) {
	for _, cb := range b.callbacks {
		cb.fn(eid)
	}
}

// constructingEntity returns the entity the bound world is constructing.
func (b *indexBase) constructingEntity() (EntityId, bool) {
	if b.world == nil {
		return 0, false
	}
	return b.world.constructingEntity()
}

// iterateUntil reports whether fn stopped the iteration.
func iterateUntil(bm *roaring.Bitmap, fn func(EntityId) bool) bool {
	stopped := false
	bm.Iterate(func(x uint32) bool {
		if fn(EntityId(x)) {
			stopped = true
			return false
		}
		return true
	})
	return stopped
}
