package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sig(ids ...ComponentId) Signature {
	var s Signature
	for _, id := range ids {
		s.Set(id)
	}
	return s
}

func newTestMatcher() *matcher {
	m := newMatcher()
	m.PutArchetypeId(sig(0, 1), 0)
	m.PutArchetypeId(sig(0, 2), 1)
	m.PutArchetypeId(sig(1, 2, 100), 2)
	m.PutArchetypeId(sig(3), 3)
	return m
}

func TestMatcher(t *testing.T) {
	m := newTestMatcher()

	tests := []struct {
		name     string
		relation MatchRelation
		sig      Signature
		want     []uint32
	}{
		{"all single", MatchAll, sig(0), []uint32{0, 1}},
		{"all pair", MatchAll, sig(1, 2), []uint32{2}},
		{"all high id", MatchAll, sig(100), []uint32{2}},
		{"all unknown component", MatchAll, sig(7), nil},
		{"all empty", MatchAll, sig(), []uint32{0, 1, 2, 3}},
		{"any", MatchAny, sig(1, 3), []uint32{0, 2, 3}},
		{"any empty", MatchAny, sig(), []uint32{0, 1, 2, 3}},
		{"none", MatchNone, sig(0), []uint32{2, 3}},
		{"none empty", MatchNone, sig(), []uint32{0, 1, 2, 3}},
		{"none all", MatchNone, sig(0, 1, 2, 3), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.relation, tt.sig)
			if tt.want == nil {
				assert.True(t, got.IsEmpty())
				return
			}
			assert.Equal(t, tt.want, got.ToArray())
		})
	}
}

func TestMatcherStore(t *testing.T) {
	m := newTestMatcher()

	first := m.MatchAndStore(MatchAll, sig(0))
	assert.Same(t, first, m.MatchAndStore(MatchAll, sig(0)))
	assert.NotSame(t, first, m.MatchAndStore(MatchAny, sig(0)))

	// A new archetype invalidates the memo but not results already handed out.
	m.PutArchetypeId(sig(0, 5), 4)
	second := m.MatchAndStore(MatchAll, sig(0))
	assert.NotSame(t, first, second)
	assert.Equal(t, []uint32{0, 1}, first.ToArray())
	assert.Equal(t, []uint32{0, 1, 4}, second.ToArray())
}

func TestMatchRelationString(t *testing.T) {
	assert.Equal(t, "all", MatchAll.String())
	assert.Equal(t, "any", MatchAny.String())
	assert.Equal(t, "none", MatchNone.String())
}

func TestSignature(t *testing.T) {
	s := sig(0, 63, 64, 127)
	assert.Equal(t, 4, s.Count())
	assert.True(t, s.Has(64))
	assert.False(t, s.Has(65))
	assert.False(t, s.IsEmpty())
	assert.True(t, sig().IsEmpty())

	var got []ComponentId
	for id := range s.Ids() {
		got = append(got, id)
	}
	assert.Equal(t, []ComponentId{0, 63, 64, 127}, got)
}
