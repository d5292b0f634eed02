package ecs

import (
	"github.com/RoaringBitmap/roaring/v2"
)

type valueEntity[V comparable] struct {
	v  V
	id EntityId
}

// UnorderedIndex is a hash based field index. Each distinct value maps to a
// bitmap of entity ids. Several fields of one entity may hold the same
// value; each counts as its own entry. It supports Eq, Ne and In filters.
type UnorderedIndex[V comparable] struct {
	indexBase
	buckets map[V]*roaring.Bitmap
	// dups counts fields beyond the first for a (value, entity) pair.
	dups map[valueEntity[V]]int
	size int
}

// NewUnorderedIndex creates an empty, unbound index.
func NewUnorderedIndex[V comparable]() *UnorderedIndex[V] {
	return &UnorderedIndex[V]{
		buckets: make(map[V]*roaring.Bitmap),
		dups:    make(map[valueEntity[V]]int),
	}
}

// Len returns the number of indexed fields.
func (x *UnorderedIndex[V]) Len() int {
	return x.size
}

// Clear removes every entry. Subscriptions are kept.
func (x *UnorderedIndex[V]) Clear() {
	clear(x.buckets)
	clear(x.dups)
	x.size = 0
}

func (x *UnorderedIndex[V]) insert(v V) (EntityId, bool) {
	eid, ok := x.constructingEntity()
	if !ok {
		return 0, false
	}
	x.add(v, eid)
	return eid, true
}

func (x *UnorderedIndex[V]) add(v V, eid EntityId) {
	bm := x.buckets[v]
	if bm == nil {
		bm = roaring.New()
		x.buckets[v] = bm
	}
	if !bm.CheckedAdd(uint32(eid)) {
		x.dups[valueEntity[V]{v, eid}]++
	}
	x.size++
}

func (x *UnorderedIndex[V]) erase(v V, eid EntityId) {
	bm := x.buckets[v]
	if bm == nil || !bm.Contains(uint32(eid)) {
		return
	}
	x.size--
	k := valueEntity[V]{v, eid}
	if n := x.dups[k]; n > 0 {
		if n == 1 {
			delete(x.dups, k)
		} else {
			x.dups[k] = n - 1
		}
		return
	}
	bm.Remove(uint32(eid))
	if bm.IsEmpty() {
		delete(x.buckets, v)
	}
}

func (x *UnorderedIndex[V]) update(old, v V, eid EntityId) {
	x.erase(old, eid)
	x.add(v, eid)
	x.notify(eid)
}

func (x *UnorderedIndex[V]) FilterEqual(fn func(EntityId) bool, v V) {
	if bm := x.buckets[v]; bm != nil {
		iterateUntil(bm, fn)
	}
}

func (x *UnorderedIndex[V]) FilterNotEqual(fn func(EntityId) bool, v V) {
	for k, bm := range x.buckets {
		if k == v {
			continue
		}
		if iterateUntil(bm, fn) {
			return
		}
	}
}

func (x *UnorderedIndex[V]) FilterIn(fn func(EntityId) bool, set map[V]struct{}) {
	for v := range set {
		if bm := x.buckets[v]; bm != nil && iterateUntil(bm, fn) {
			return
		}
	}
}

// Eq matches entities whose value equals v.
func (x *UnorderedIndex[V]) Eq(v V) Filter {
	return newSimpleFilter[V](x, OpEq, v)
}

// Ne matches entities whose value differs from v.
func (x *UnorderedIndex[V]) Ne(v V) Filter {
	return newSimpleFilter[V](x, OpNe, v)
}

// In matches entities whose value is one of vs.
func (x *UnorderedIndex[V]) In(vs ...V) Filter {
	return newInFilter[V](x, vs)
}
