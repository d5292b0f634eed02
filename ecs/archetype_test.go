package ecs_test

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/plus3/archecs/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchetypeNewEntityDefaultConstructor(t *testing.T) {
	w := ecs.NewWorld()
	a := w.MustNewArchetype(positionType, counterType)

	before := countersConstructed
	ref := a.NewEntity(nil)

	assert.Equal(t, before+1, countersConstructed)
	assert.Equal(t, 1, ecs.MustGet[Counter](ref).Value)
	assert.Equal(t, Position{}, *ecs.MustGet[Position](ref))
	assert.Equal(t, 1, a.NumEntities())
}

func TestArchetypeNewEntityCustomInit(t *testing.T) {
	w := ecs.NewWorld()
	a := w.MustNewArchetype(positionType, counterType)

	before := countersConstructed
	ref := a.NewEntity(func(ref ecs.EntityRef) {
		_, err := ecs.Construct(ref, func(p *Position) { *p = Position{X: 1, Y: 2} })
		require.NoError(t, err)
	})

	// Components the initializer does not construct stay zero.
	assert.Equal(t, before, countersConstructed)
	assert.Equal(t, 0, ecs.MustGet[Counter](ref).Value)
	assert.Equal(t, Position{X: 1, Y: 2}, *ecs.MustGet[Position](ref))

	a.NewEntity(func(ref ecs.EntityRef) {
		c, err := ecs.Construct[Counter](ref, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, c.Value)
	})
	assert.Equal(t, before+1, countersConstructed)
}

func TestArchetypeComponentAccess(t *testing.T) {
	w := ecs.NewWorld()
	a := w.MustNewArchetype(positionType)
	ref := a.NewEntity(nil)

	assert.True(t, ecs.Has[Position](ref))
	assert.False(t, ecs.Has[Velocity](ref))
	assert.False(t, ecs.Has[Position](ecs.NullEntityRef))

	_, err := ecs.Get[Velocity](ref)
	var notFound *ecs.ComponentNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, a.ID(), notFound.Archetype)
	assert.Equal(t, "ecs_test.Velocity", notFound.Component)
	assert.ErrorIs(t, err, ecs.ErrComponentNotFound)

	_, err = ecs.Get[Position](ecs.NullEntityRef)
	assert.ErrorIs(t, err, ecs.ErrNullEntityRef)

	_, err = ecs.Construct(ref, func(v *Velocity) {})
	assert.ErrorIs(t, err, ecs.ErrComponentNotFound)

	assert.Panics(t, func() { ecs.MustGet[Velocity](ref) })

	ecs.UncheckedGet[Position](ref).X = 4
	assert.Equal(t, float32(4), ecs.MustGet[Position](ref).X)
}

func TestArchetypeKillRecyclesInFIFOOrder(t *testing.T) {
	w := ecs.NewWorld()
	a := w.MustNewArchetype(positionType, counterType)

	refs := make([]ecs.EntityRef, 5)
	for i := range refs {
		refs[i] = a.NewEntity(nil)
		ecs.MustGet[Position](refs[i]).X = float32(i + 1)
	}

	before := countersDestructed
	a.Kill(3, nil)
	a.Kill(1, nil)
	a.Kill(1, nil) // already dead
	assert.Equal(t, before+2, countersDestructed)
	assert.Equal(t, 3, a.NumEntities())
	assert.False(t, a.IsAlive(1))
	assert.True(t, a.Get(1).IsNull())

	// Freed ids come back oldest first, before the cursor grows.
	r1 := a.NewEntity(func(ecs.EntityRef) {})
	r2 := a.NewEntity(func(ecs.EntityRef) {})
	r3 := a.NewEntity(func(ecs.EntityRef) {})
	assert.Equal(t, ecs.EntityShortId(3), r1.ShortId())
	assert.Equal(t, ecs.EntityShortId(1), r2.ShortId())
	assert.Equal(t, ecs.EntityShortId(5), r3.ShortId())

	// Recycled rows are zeroed.
	assert.Equal(t, Position{}, *ecs.MustGet[Position](r1))
	assert.Equal(t, Counter{}, *ecs.MustGet[Counter](r2))
	assert.Equal(t, 6, a.NumEntities())
}

func TestArchetypeDelayedNewEntity(t *testing.T) {
	w := ecs.NewWorld()
	a := w.MustNewArchetype(positionType)

	var order []ecs.EntityShortId
	init := func(ref ecs.EntityRef) {
		order = append(order, ref.ShortId())
	}

	e0 := a.DelayedNewEntity(init)
	e1 := a.DelayedNewEntity(init)
	assert.Equal(t, 0, a.NumEntities())
	assert.False(t, w.IsAlive(e0))
	assert.True(t, w.Get(e0).IsNull())
	assert.Equal(t, 2, w.NumDelayedNewEntities())
	assert.Empty(t, slices.Collect(a.All()))

	// Applying an id that is not pending is a no-op.
	a.ApplyDelayedNewEntity(42)

	w.ApplyDelayedNewEntities()
	assert.Equal(t, []ecs.EntityShortId{e0.ShortId(), e1.ShortId()}, order)
	assert.True(t, w.IsAlive(e0))
	assert.True(t, w.IsAlive(e1))
	assert.Equal(t, 2, a.NumEntities())
	assert.Equal(t, 0, w.NumDelayedNewEntities())
}

func TestArchetypeDelayedKill(t *testing.T) {
	w := ecs.NewWorld()
	a := w.MustNewArchetype(positionType)
	ref := a.NewEntity(nil)
	other := a.NewEntity(nil)

	var calls []string
	ref.DelayedKill(func(r ecs.EntityRef) {
		assert.True(t, r.IsAlive())
		calls = append(calls, "first")
	})
	ref.DelayedKill(func(ecs.EntityRef) { calls = append(calls, "second") })
	w.DelayedKill(other.ID(), nil)

	assert.True(t, ref.IsAlive())
	assert.Equal(t, 2, a.NumEntities())
	assert.Equal(t, 2, w.NumDelayedKills())

	w.ApplyDelayedKills()
	assert.Equal(t, []string{"first"}, calls)
	assert.False(t, ref.IsAlive())
	assert.False(t, other.IsAlive())
	assert.Equal(t, 0, a.NumEntities())
	assert.Equal(t, 0, w.NumDelayedKills())
}

func TestArchetypeKillCancelsDelayedKill(t *testing.T) {
	w := ecs.NewWorld()
	a := w.MustNewArchetype(positionType)
	ref := a.NewEntity(nil)

	called := false
	ref.DelayedKill(func(ecs.EntityRef) { called = true })
	ref.Kill()

	// The recycled row must not be killed by the stale request.
	reused := a.NewEntity(nil)
	require.Equal(t, ref.ShortId(), reused.ShortId())
	w.ApplyDelayedKills()

	assert.False(t, called)
	assert.True(t, reused.IsAlive())
}

func TestArchetypeIterationOrder(t *testing.T) {
	w := ecs.NewWorld()
	a := w.MustNewArchetype(positionType)
	for range 6 {
		a.NewEntity(nil)
	}
	a.Kill(2, nil)
	a.Kill(4, nil)

	var fwd, bwd []ecs.EntityShortId
	a.ForEach(func(ref ecs.EntityRef) { fwd = append(fwd, ref.ShortId()) }, false)
	a.ForEach(func(ref ecs.EntityRef) { bwd = append(bwd, ref.ShortId()) }, true)
	assert.Equal(t, []ecs.EntityShortId{0, 1, 3, 5}, fwd)
	assert.Equal(t, []ecs.EntityShortId{5, 3, 1, 0}, bwd)

	var seq []ecs.EntityShortId
	for ref := range a.Backward() {
		seq = append(seq, ref.ShortId())
	}
	assert.Equal(t, bwd, seq)

	var until []ecs.EntityShortId
	a.ForEachUntil(func(ref ecs.EntityRef) bool {
		until = append(until, ref.ShortId())
		return ref.ShortId() == 1
	}, false)
	assert.Equal(t, []ecs.EntityShortId{0, 1}, until)
}

func TestArchetypeBlocks(t *testing.T) {
	w := ecs.NewWorld()
	a := w.MustNewArchetype(positionType, nameType)

	assert.Equal(t, 0, a.NumBlocks())
	assert.Equal(t, 16, a.CellSize()) // string header
	assert.Equal(t, ecs.MaxNumEntitiesPerBlock*3*16, a.BlockSize())

	for range ecs.MaxNumEntitiesPerBlock {
		a.NewEntity(nil)
	}
	assert.Equal(t, 1, a.NumBlocks())
	last := a.NewEntity(nil)
	assert.Equal(t, 2, a.NumBlocks())
	assert.Equal(t, ecs.EntityShortId(ecs.MaxNumEntitiesPerBlock), last.ShortId())

	b := w.MustNewArchetype(velocityType)
	b.Reserve(3000)
	assert.Equal(t, 3, b.NumBlocks())
	assert.Equal(t, 0, b.NumEntities())
}

func TestArchetypeAccessors(t *testing.T) {
	w := ecs.NewWorld()
	a := w.MustNewArchetype(velocityType, positionType)

	assert.Same(t, w, a.World())
	assert.Equal(t, ecs.SignatureOf(positionType, velocityType), a.Signature())
	assert.True(t, a.Has(positionType))
	assert.False(t, a.Has(nameType))

	// Components are sorted by component id.
	cts := a.Components()
	require.Len(t, cts, 2)
	assert.Less(t, cts[0].ID(), cts[1].ID())
}

// TestArchetypeRandomOps checks the row states against a model under a
// random mix of immediate and delayed operations.
func TestArchetypeRandomOps(t *testing.T) {
	w := ecs.NewWorld()
	a := w.MustNewArchetype(positionType, counterType)
	rng := rand.New(rand.NewPCG(1, 2))

	alive := map[ecs.EntityShortId]bool{}
	pending := map[ecs.EntityShortId]bool{}

	pick := func(set map[ecs.EntityShortId]bool) (ecs.EntityShortId, bool) {
		if len(set) == 0 {
			return 0, false
		}
		keys := make([]ecs.EntityShortId, 0, len(set))
		for k := range set {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return keys[rng.IntN(len(keys))], true
	}

	for step := range 5000 {
		switch rng.IntN(6) {
		case 0, 1:
			alive[a.NewEntity(nil).ShortId()] = true
		case 2:
			pending[a.DelayedNewEntity(nil).ShortId()] = true
		case 3:
			if e, ok := pick(alive); ok {
				a.Kill(e, nil)
				delete(alive, e)
			}
		case 4:
			if e, ok := pick(alive); ok {
				a.DelayedKill(e, nil)
			}
		case 5:
			w.ApplyDelayedKills()
			for e := range alive {
				if !a.IsAlive(e) {
					delete(alive, e)
				}
			}
			w.ApplyDelayedNewEntities()
			for e := range pending {
				alive[e] = true
			}
			clear(pending)
		}

		require.Equal(t, len(alive), a.NumEntities(), "step %d", step)
		for e := range pending {
			require.False(t, a.IsAlive(e), "step %d", step)
		}
	}

	var want []ecs.EntityShortId
	for e := range alive {
		want = append(want, e)
	}
	slices.Sort(want)

	var got []ecs.EntityShortId
	for ref := range a.All() {
		got = append(got, ref.ShortId())
		assert.Equal(t, 1, ecs.MustGet[Counter](ref).Value)
	}
	assert.Equal(t, want, got)
}
