package ecs

import (
	"cmp"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Op is a filter operator.
type Op uint8

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIn
	OpBetween
)

func (op Op) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpIn:
		return "in"
	case OpBetween:
		return "between"
	default:
		return "?"
	}
}

// Filter is an immutable predicate over one field index.
type Filter interface {
	// Index returns the index the filter reads.
	Index() IndexRoot
	Op() Op
	// Execute enumerates matching entity ids until fn returns true.
	Execute(fn func(EntityId) bool)
}

type simpleFilter[V comparable] struct {
	idx EqualityFilterable[V]
	op  Op
	rhs V
}

func newSimpleFilter[V comparable](idx EqualityFilterable[V], op Op, rhs V) Filter {
	return &simpleFilter[V]{idx: idx, op: op, rhs: rhs}
}

func (f *simpleFilter[V]) Index() IndexRoot { return f.idx }
func (f *simpleFilter[V]) Op() Op           { return f.op }

func (f *simpleFilter[V]) Execute(fn func(EntityId) bool) {
	if f.op == OpNe {
		f.idx.FilterNotEqual(fn, f.rhs)
		return
	}
	f.idx.FilterEqual(fn, f.rhs)
}

func (f *simpleFilter[V]) String() string { return fmt.Sprintf("%s %v", f.op, f.rhs) }

type inFilter[V comparable] struct {
	idx EqualityFilterable[V]
	rhs map[V]struct{}
}

func newInFilter[V comparable](idx EqualityFilterable[V], vs []V) Filter {
	set := make(map[V]struct{}, len(vs))
	for _, v := range vs {
		set[v] = struct{}{}
	}
	return &inFilter[V]{idx: idx, rhs: set}
}

func (f *inFilter[V]) Index() IndexRoot               { return f.idx }
func (f *inFilter[V]) Op() Op                         { return OpIn }
func (f *inFilter[V]) Execute(fn func(EntityId) bool) { f.idx.FilterIn(fn, f.rhs) }

type orderedFilter[V cmp.Ordered] struct {
	idx OrderedFilterable[V]
	op  Op
	rhs V
}

func newOrderedFilter[V cmp.Ordered](idx OrderedFilterable[V], op Op, rhs V) Filter {
	return &orderedFilter[V]{idx: idx, op: op, rhs: rhs}
}

func (f *orderedFilter[V]) Index() IndexRoot { return f.idx }
func (f *orderedFilter[V]) Op() Op           { return f.op }

func (f *orderedFilter[V]) Execute(fn func(EntityId) bool) {
	switch f.op {
	case OpLt:
		f.idx.FilterLess(fn, f.rhs)
	case OpLe:
		f.idx.FilterLessEqual(fn, f.rhs)
	case OpGt:
		f.idx.FilterGreater(fn, f.rhs)
	case OpGe:
		f.idx.FilterGreaterEqual(fn, f.rhs)
	}
}

func (f *orderedFilter[V]) String() string { return fmt.Sprintf("%s %v", f.op, f.rhs) }

type betweenFilter[V cmp.Ordered] struct {
	idx    OrderedFilterable[V]
	lo, hi V
}

func newBetweenFilter[V cmp.Ordered](idx OrderedFilterable[V], lo, hi V) Filter {
	return &betweenFilter[V]{idx: idx, lo: lo, hi: hi}
}

func (f *betweenFilter[V]) Index() IndexRoot               { return f.idx }
func (f *betweenFilter[V]) Op() Op                         { return OpBetween }
func (f *betweenFilter[V]) Execute(fn func(EntityId) bool) { f.idx.FilterBetween(fn, f.lo, f.hi) }

func (f *betweenFilter[V]) String() string { return fmt.Sprintf("between [%v, %v]", f.lo, f.hi) }

// applyFilters collects the ids of the first filter accepted by accept, then
// narrows them through the remaining filters.
func applyFilters(filters []Filter, accept func(EntityId) bool) *roaring.Bitmap {
	ans := roaring.New()
	filters[0].Execute(func(eid EntityId) bool {
		if accept(eid) {
			ans.Add(uint32(eid))
		}
		return false
	})
	return applyFiltersFrom(filters, ans, 1)
}

// applyFiltersFrom keeps the candidates in ans that pass filters[start:].
// Each filter stops enumerating once every candidate is confirmed.
func applyFiltersFrom(filters []Filter, ans *roaring.Bitmap, start int) *roaring.Bitmap {
	for i := start; i < len(filters) && !ans.IsEmpty(); i++ {
		tmp := roaring.New()
		want := ans.GetCardinality()
		var found uint64
		filters[i].Execute(func(eid EntityId) bool {
			if ans.Contains(uint32(eid)) && tmp.CheckedAdd(uint32(eid)) {
				found++
			}
			return found == want
		})
		ans = tmp
	}
	return ans
}

// passFilters reports whether a single entity satisfies every filter.
func passFilters(filters []Filter, eid EntityId) bool {
	return !applyFiltersFrom(filters, roaring.BitmapOf(uint32(eid)), 0).IsEmpty()
}

// distinctIndexes returns each filter index once, in first-use order.
func distinctIndexes(filters []Filter) []IndexRoot {
	var out []IndexRoot
	seen := make(map[IndexRoot]struct{}, len(filters))
	for _, f := range filters {
		idx := f.Index()
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	return out
}
