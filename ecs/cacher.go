package ecs

import (
	"iter"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/btree"
)

const cacherDegree = 32

type indexSubscription struct {
	idx IndexRoot
	id  uint32
}

// Cacher is a query result kept up to date by world and index callbacks.
//
// Entities created in a matched archetype are added if they pass the query's
// filters, removed entities are dropped, and value updates on a filter index
// re-test the updated entity. Close must be called to unsubscribe.
type Cacher struct {
	world   *World
	aids    *roaring.Bitmap
	filters []Filter
	tree    *btree.BTreeG[EntityRef]

	entityCallbacks []uint32
	indexCallbacks  []indexSubscription
}

func newCacher(q *Query, less func(a, b EntityId) bool) *Cacher {
	c := &Cacher{
		world:   q.world,
		aids:    q.aids,
		filters: slices.Clone(q.filters),
		tree: btree.NewG(cacherDegree, func(a, b EntityRef) bool {
			return less(a.id, b.id)
		}),
	}
	if c.aids.IsEmpty() {
		return c
	}

	q.forEachUntil(func(ref EntityRef) bool {
		c.tree.ReplaceOrInsert(ref)
		return false
	}, false)
	c.watchEntities()
	c.watchIndexes()

	c.world.logger.Debug("cacher created",
		"entries", c.tree.Len(),
		"entityCallbacks", len(c.entityCallbacks),
		"indexCallbacks", len(c.indexCallbacks))
	return c
}

func (c *Cacher) watchEntities() {
	c.entityCallbacks = append(c.entityCallbacks,
		c.world.pushCallback(eventCreated, c.aids, c.onEntityCreated),
		c.world.pushCallback(eventRemoved, c.aids, c.onEntityRemoved),
	)
}

// watchIndexes subscribes once per distinct filter index. Inserts and erases
// caused by births and deaths arrive through the entity callbacks instead.
func (c *Cacher) watchIndexes() {
	for _, idx := range distinctIndexes(c.filters) {
		c.indexCallbacks = append(c.indexCallbacks, indexSubscription{
			idx: idx,
			id:  idx.OnValueUpdated(c.onIndexValueUpdated),
		})
	}
}

func (c *Cacher) onEntityCreated(ref EntityRef) {
	// Subscriptions are scoped to the matched archetypes already.
	if len(c.filters) > 0 && !passFilters(c.filters, ref.id) {
		return
	}
	c.tree.ReplaceOrInsert(ref)
}

func (c *Cacher) onEntityRemoved(ref EntityRef) {
	c.tree.Delete(ref)
}

func (c *Cacher) onIndexValueUpdated(eid EntityId) {
	if !c.aids.Contains(uint32(eid.ArchetypeId())) {
		return
	}
	// Writes during construction are handled by onEntityCreated.
	if ceid, ok := c.world.constructingEntity(); ok && ceid == eid {
		return
	}
	// Every filter is re-tested, not just the ones on the updated index.
	if passFilters(c.filters, eid) {
		c.tree.ReplaceOrInsert(c.world.UncheckedGet(eid))
	} else {
		c.tree.Delete(EntityRef{id: eid})
	}
}

// Close removes every subscription. The cached entries stay readable but are
// no longer maintained.
func (c *Cacher) Close() {
	for _, id := range c.entityCallbacks {
		c.world.RemoveCallback(id)
	}
	for _, sub := range c.indexCallbacks {
		sub.idx.RemoveOnValueUpdated(sub.id)
	}
	if len(c.entityCallbacks)+len(c.indexCallbacks) > 0 {
		c.world.logger.Debug("cacher closed",
			"entityCallbacks", len(c.entityCallbacks),
			"indexCallbacks", len(c.indexCallbacks))
	}
	c.entityCallbacks = nil
	c.indexCallbacks = nil
}

// Len returns the number of cached entities.
func (c *Cacher) Len() int {
	return c.tree.Len()
}

// Contains reports whether the entity is cached.
func (c *Cacher) Contains(eid EntityId) bool {
	return c.tree.Has(EntityRef{id: eid})
}

// ForEach calls fn for each cached entity in cache order, or reversed.
// Callbacks must not create, kill or update entities watched by this cacher.
func (c *Cacher) ForEach(fn func(EntityRef), reversed bool) {
	c.forEachUntil(func(ref EntityRef) bool {
		fn(ref)
		return false
	}, reversed)
}

// ForEachUntil is ForEach that stops once fn returns true.
func (c *Cacher) ForEachUntil(fn func(EntityRef) bool, reversed bool) {
	c.forEachUntil(fn, reversed)
}

// All iterates cached entities in cache order.
func (c *Cacher) All() iter.Seq[EntityRef] {
	return func(yield func(EntityRef) bool) {
		c.forEachUntil(func(ref EntityRef) bool { return !yield(ref) }, false)
	}
}

// Backward iterates cached entities in reverse cache order.
func (c *Cacher) Backward() iter.Seq[EntityRef] {
	return func(yield func(EntityRef) bool) {
		c.forEachUntil(func(ref EntityRef) bool { return !yield(ref) }, true)
	}
}

// Collect appends every cached entity to dst.
func (c *Cacher) Collect(dst []EntityRef, reversed bool) []EntityRef {
	c.forEachUntil(func(ref EntityRef) bool {
		dst = append(dst, ref)
		return false
	}, reversed)
	return dst
}

// CollectUntil appends cached entities to dst until tester returns true.
// The entity that stops the collection is not appended.
func (c *Cacher) CollectUntil(dst []EntityRef, tester func(EntityRef) bool, reversed bool) []EntityRef {
	c.forEachUntil(func(ref EntityRef) bool {
		if tester(ref) {
			return true
		}
		dst = append(dst, ref)
		return false
	}, reversed)
	return dst
}

func (c *Cacher) forEachUntil(fn func(EntityRef) bool, reversed bool) {
	visit := func(ref EntityRef) bool { return !fn(ref) }
	if reversed {
		c.tree.Descend(visit)
		return
	}
	c.tree.Ascend(visit)
}
