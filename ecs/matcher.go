package ecs

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// MatchRelation selects how a signature is matched against archetypes.
type MatchRelation uint8

const (
	// MatchAll matches archetypes containing every named component.
	MatchAll MatchRelation = iota
	// MatchAny matches archetypes containing at least one named component.
	// An empty signature matches every archetype.
	MatchAny
	// MatchNone matches archetypes containing none of the named components.
	MatchNone
)

func (r MatchRelation) String() string {
	switch r {
	case MatchAll:
		return "all"
	case MatchAny:
		return "any"
	case MatchNone:
		return "none"
	default:
		return "unknown"
	}
}

type matchKey struct {
	relation  MatchRelation
	signature Signature
}

// matcher resolves (relation, signature) pairs to sets of archetype ids.
type matcher struct {
	all        *roaring.Bitmap
	components [MaxNumComponents]*roaring.Bitmap
	store      map[matchKey]*roaring.Bitmap
}

func newMatcher() *matcher {
	return &matcher{
		all:   roaring.New(),
		store: make(map[matchKey]*roaring.Bitmap),
	}
}

// PutArchetypeId registers an archetype id with its signature. Stored
// results stay valid for their holders; later lookups recompute.
func (m *matcher) PutArchetypeId(signature Signature, aid ArchetypeId) {
	m.all.Add(uint32(aid))
	for cid := range signature.Ids() {
		b := m.components[cid]
		if b == nil {
			b = roaring.New()
			m.components[cid] = b
		}
		b.Add(uint32(aid))
	}
	clear(m.store)
}

// Match computes a fresh result.
func (m *matcher) Match(relation MatchRelation, signature Signature) *roaring.Bitmap {
	switch relation {
	case MatchAll:
		return m.matchAll(signature)
	case MatchAny:
		if signature.IsEmpty() {
			return m.all.Clone()
		}
		return m.matchAny(signature)
	case MatchNone:
		return m.matchNone(signature)
	default:
		return roaring.New()
	}
}

// MatchAndStore returns a shared result, computing it on first request.
// The returned bitmap must not be modified.
func (m *matcher) MatchAndStore(relation MatchRelation, signature Signature) *roaring.Bitmap {
	k := matchKey{relation: relation, signature: signature}
	if b, ok := m.store[k]; ok {
		return b
	}
	b := m.Match(relation, signature)
	b.RunOptimize()
	m.store[k] = b
	return b
}

func (m *matcher) matchAll(signature Signature) *roaring.Bitmap {
	ans := m.all.Clone()
	for cid := range signature.Ids() {
		b := m.components[cid]
		if b == nil {
			return roaring.New()
		}
		ans.And(b)
	}
	return ans
}

func (m *matcher) matchAny(signature Signature) *roaring.Bitmap {
	ans := roaring.New()
	for cid := range signature.Ids() {
		if b := m.components[cid]; b != nil {
			ans.Or(b)
		}
	}
	return ans
}

func (m *matcher) matchNone(signature Signature) *roaring.Bitmap {
	ans := m.all.Clone()
	ans.AndNot(m.matchAny(signature))
	return ans
}
