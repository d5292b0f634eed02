package ecs

import (
	"cmp"

	"github.com/google/btree"
)

const orderedIndexDegree = 32

type orderedEntry[V cmp.Ordered] struct {
	v  V
	id EntityId
	// n counts the bound fields of the entity holding v.
	n int
}

func lessOrderedEntry[V cmp.Ordered](a, b orderedEntry[V]) bool {
	if c := cmp.Compare(a.v, b.v); c != 0 {
		return c < 0
	}
	return a.id < b.id
}

// OrderedIndex is a sorted field index backed by a B-tree keyed by
// (value, entity id). Several fields of one entity may hold the same value;
// each counts as its own entry. Besides equality filters it supports Lt, Le,
// Gt, Ge and the closed range Between.
type OrderedIndex[V cmp.Ordered] struct {
	indexBase
	tree *btree.BTreeG[orderedEntry[V]]
	size int
}

// NewOrderedIndex creates an empty, unbound index.
func NewOrderedIndex[V cmp.Ordered]() *OrderedIndex[V] {
	return &OrderedIndex[V]{
		tree: btree.NewG(orderedIndexDegree, lessOrderedEntry[V]),
	}
}

// Len returns the number of indexed fields.
func (x *OrderedIndex[V]) Len() int {
	return x.size
}

// Clear removes every entry. Subscriptions are kept.
func (x *OrderedIndex[V]) Clear() {
	x.tree.Clear(false)
	x.size = 0
}

func (x *OrderedIndex[V]) insert(v V) (EntityId, bool) {
	eid, ok := x.constructingEntity()
	if !ok {
		return 0, false
	}
	x.add(v, eid)
	return eid, true
}

func (x *OrderedIndex[V]) add(v V, eid EntityId) {
	e, ok := x.tree.Get(orderedEntry[V]{v: v, id: eid})
	if !ok {
		e = orderedEntry[V]{v: v, id: eid}
	}
	e.n++
	x.tree.ReplaceOrInsert(e)
	x.size++
}

func (x *OrderedIndex[V]) erase(v V, eid EntityId) {
	e, ok := x.tree.Get(orderedEntry[V]{v: v, id: eid})
	if !ok {
		return
	}
	x.size--
	if e.n > 1 {
		e.n--
		x.tree.ReplaceOrInsert(e)
		return
	}
	x.tree.Delete(e)
}

func (x *OrderedIndex[V]) update(old, v V, eid EntityId) {
	x.erase(old, eid)
	x.add(v, eid)
	x.notify(eid)
}

func (x *OrderedIndex[V]) FilterEqual(fn func(EntityId) bool, v V) {
	x.tree.AscendGreaterOrEqual(orderedEntry[V]{v: v}, func(e orderedEntry[V]) bool {
		if cmp.Compare(e.v, v) != 0 {
			return false
		}
		return !fn(e.id)
	})
}

func (x *OrderedIndex[V]) FilterNotEqual(fn func(EntityId) bool, v V) {
	x.tree.Ascend(func(e orderedEntry[V]) bool {
		if cmp.Compare(e.v, v) == 0 {
			return true
		}
		return !fn(e.id)
	})
}

func (x *OrderedIndex[V]) FilterIn(fn func(EntityId) bool, set map[V]struct{}) {
	stopped := false
	stop := func(eid EntityId) bool {
		stopped = fn(eid)
		return stopped
	}
	for v := range set {
		x.FilterEqual(stop, v)
		if stopped {
			return
		}
	}
}

func (x *OrderedIndex[V]) FilterLess(fn func(EntityId) bool, v V) {
	x.tree.Ascend(func(e orderedEntry[V]) bool {
		if cmp.Compare(e.v, v) >= 0 {
			return false
		}
		return !fn(e.id)
	})
}

func (x *OrderedIndex[V]) FilterLessEqual(fn func(EntityId) bool, v V) {
	x.tree.Ascend(func(e orderedEntry[V]) bool {
		if cmp.Compare(e.v, v) > 0 {
			return false
		}
		return !fn(e.id)
	})
}

func (x *OrderedIndex[V]) FilterGreater(fn func(EntityId) bool, v V) {
	// (v, max id) sorts after every other entry holding v.
	x.tree.AscendGreaterOrEqual(orderedEntry[V]{v: v, id: ^EntityId(0)}, func(e orderedEntry[V]) bool {
		if cmp.Compare(e.v, v) == 0 {
			return true
		}
		return !fn(e.id)
	})
}

func (x *OrderedIndex[V]) FilterGreaterEqual(fn func(EntityId) bool, v V) {
	x.tree.AscendGreaterOrEqual(orderedEntry[V]{v: v}, func(e orderedEntry[V]) bool {
		return !fn(e.id)
	})
}

func (x *OrderedIndex[V]) FilterBetween(fn func(EntityId) bool, lo, hi V) {
	if cmp.Compare(lo, hi) > 0 {
		return
	}
	x.tree.AscendGreaterOrEqual(orderedEntry[V]{v: lo}, func(e orderedEntry[V]) bool {
		if cmp.Compare(e.v, hi) > 0 {
			return false
		}
		return !fn(e.id)
	})
}

// Eq matches entities whose value equals v.
func (x *OrderedIndex[V]) Eq(v V) Filter { return newSimpleFilter[V](x, OpEq, v) }

// Ne matches entities whose value differs from v.
func (x *OrderedIndex[V]) Ne(v V) Filter { return newSimpleFilter[V](x, OpNe, v) }

// In matches entities whose value is one of vs.
func (x *OrderedIndex[V]) In(vs ...V) Filter { return newInFilter[V](x, vs) }

// Lt matches entities whose value is less than v.
func (x *OrderedIndex[V]) Lt(v V) Filter { return newOrderedFilter[V](x, OpLt, v) }

// Le matches entities whose value is at most v.
func (x *OrderedIndex[V]) Le(v V) Filter { return newOrderedFilter[V](x, OpLe, v) }

// Gt matches entities whose value is greater than v.
func (x *OrderedIndex[V]) Gt(v V) Filter { return newOrderedFilter[V](x, OpGt, v) }

// Ge matches entities whose value is at least v.
func (x *OrderedIndex[V]) Ge(v V) Filter { return newOrderedFilter[V](x, OpGe, v) }

// Between matches entities whose value lies in [lo, hi].
func (x *OrderedIndex[V]) Between(lo, hi V) Filter { return newBetweenFilter[V](x, lo, hi) }
