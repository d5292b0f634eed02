package ecs

import (
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// Query selects entities of the archetypes matching a component signature,
// optionally narrowed by field index filters.
//
// A query must be pre-matched once, after every archetype of the world has
// been created. Matched archetypes are visited in ascending id order; without
// filters each archetype is walked in ascending short id order, which is
// ascending entity id order overall.
type Query struct {
	world     *World
	relation  MatchRelation
	signature Signature
	filters   []Filter

	ready      bool
	aids       *roaring.Bitmap // shared with the matcher
	archetypes []*Archetype
}

// NewQuery creates an unmatched query.
func NewQuery(w *World, relation MatchRelation, types ...*ComponentType) *Query {
	return &Query{
		world:     w,
		relation:  relation,
		signature: SignatureOf(types...),
	}
}

// Where appends filters. Filters are applied left to right, so the most
// selective one should come first.
func (q *Query) Where(filters ...Filter) *Query {
	q.filters = append(q.filters, filters...)
	return q
}

// ClearFilters removes every filter.
func (q *Query) ClearFilters() *Query {
	q.filters = nil
	return q
}

// Filters returns the query's filters.
func (q *Query) Filters() []Filter {
	return q.filters
}

// World returns the queried world.
func (q *Query) World() *World {
	return q.world
}

// Relation returns the match relation.
func (q *Query) Relation() MatchRelation {
	return q.relation
}

// PreMatch resolves the signature against the world's archetypes. Calling
// it again is a no-op.
func (q *Query) PreMatch() error {
	if q.ready {
		return nil
	}
	if len(q.world.archetypes) == 0 {
		return fmt.Errorf("pre-match query: %w", ErrNoArchetypes)
	}
	q.aids = q.world.matcher.MatchAndStore(q.relation, q.signature)
	q.archetypes = make([]*Archetype, 0, q.aids.GetCardinality())
	q.aids.Iterate(func(aid uint32) bool {
		q.archetypes = append(q.archetypes, q.world.archetypes[aid])
		return true
	})
	q.ready = true

	q.world.logger.Debug("query matched",
		"relation", q.relation,
		"components", q.signature.Count(),
		"archetypes", len(q.archetypes))
	return nil
}

// MustPreMatch is like PreMatch but panics on error.
func (q *Query) MustPreMatch() *Query {
	if err := q.PreMatch(); err != nil {
		panic(err)
	}
	return q
}

// IsReady reports whether PreMatch has run.
func (q *Query) IsReady() bool {
	return q.ready
}

// Archetypes returns the matched archetypes in ascending id order.
func (q *Query) Archetypes() []*Archetype {
	return q.archetypes
}

// ForEach calls fn for each matched entity. Creating or killing entities
// inside fn is undefined behavior; use Collect or the delayed operations.
// It panics if the query is not pre-matched.
func (q *Query) ForEach(fn func(EntityRef), reversed bool) {
	q.forEachUntil(func(ref EntityRef) bool {
		fn(ref)
		return false
	}, reversed)
}

// ForEachUntil is ForEach that stops once fn returns true.
func (q *Query) ForEachUntil(fn func(EntityRef) bool, reversed bool) {
	q.forEachUntil(fn, reversed)
}

// All iterates matched entities in ascending order.
func (q *Query) All() iter.Seq[EntityRef] {
	return func(yield func(EntityRef) bool) {
		q.forEachUntil(func(ref EntityRef) bool { return !yield(ref) }, false)
	}
}

// Backward iterates matched entities in descending order.
func (q *Query) Backward() iter.Seq[EntityRef] {
	return func(yield func(EntityRef) bool) {
		q.forEachUntil(func(ref EntityRef) bool { return !yield(ref) }, true)
	}
}

// Collect appends every matched entity to dst.
func (q *Query) Collect(dst []EntityRef, reversed bool) []EntityRef {
	q.forEachUntil(func(ref EntityRef) bool {
		dst = append(dst, ref)
		return false
	}, reversed)
	return dst
}

// CollectUntil appends matched entities to dst until tester returns true.
// The entity that stops the collection is not appended.
func (q *Query) CollectUntil(dst []EntityRef, tester func(EntityRef) bool, reversed bool) []EntityRef {
	q.forEachUntil(func(ref EntityRef) bool {
		if tester(ref) {
			return true
		}
		dst = append(dst, ref)
		return false
	}, reversed)
	return dst
}

// Count returns the number of matched entities.
func (q *Query) Count() int {
	if !q.ready {
		panic(ErrQueryNotReady)
	}
	if len(q.filters) > 0 {
		n := 0
		q.forEachUntil(func(EntityRef) bool { n++; return false }, false)
		return n
	}
	n := 0
	for _, a := range q.archetypes {
		n += a.NumEntities()
	}
	return n
}

// Cache runs the query and returns a Cacher that keeps the result up to
// date, ordered by ascending entity id.
func (q *Query) Cache() (*Cacher, error) {
	return q.CacheFunc(nil)
}

// CacheFunc is Cache with a custom order. less must order distinct ids
// strictly; nil means ascending.
func (q *Query) CacheFunc(less func(a, b EntityId) bool) (*Cacher, error) {
	if !q.ready {
		return nil, ErrQueryNotReady
	}
	if less == nil {
		less = func(a, b EntityId) bool { return a < b }
	}
	return newCacher(q, less), nil
}

func (q *Query) forEachUntil(fn func(EntityRef) bool, reversed bool) {
	if !q.ready {
		panic(ErrQueryNotReady)
	}
	if len(q.archetypes) == 0 {
		return
	}
	if len(q.filters) == 0 {
		q.executeForAll(fn, reversed)
		return
	}
	q.executeWithFilters(fn, reversed)
}

func (q *Query) executeForAll(fn func(EntityRef) bool, reversed bool) {
	if reversed {
		for i := len(q.archetypes) - 1; i >= 0; i-- {
			if q.archetypes[i].forEachUntil(fn, true) {
				return
			}
		}
		return
	}
	for _, a := range q.archetypes {
		if a.forEachUntil(fn, false) {
			return
		}
	}
}

// executeWithFilters walks the filtered candidates in entity id order, which
// groups them by archetype. Entities killed by an earlier callback are skipped.
func (q *Query) executeWithFilters(fn func(EntityRef) bool, reversed bool) {
	ans := applyFilters(q.filters, func(eid EntityId) bool {
		return q.aids.Contains(uint32(eid.ArchetypeId()))
	})

	var it roaring.IntIterable
	if reversed {
		it = ans.ReverseIterator()
	} else {
		it = ans.Iterator()
	}
	for it.HasNext() {
		ref := q.world.Get(EntityId(it.Next()))
		if ref.IsNull() {
			continue
		}
		if fn(ref) {
			return
		}
	}
}
