package ecs_test

import (
	"testing"

	"github.com/plus3/archecs/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldStats(t *testing.T) {
	w := ecs.NewWorld()

	stats := w.CollectStats()
	assert.Equal(t, 0, stats.ArchetypeCount)
	assert.Equal(t, 0, stats.TotalEntityCount)
	assert.Empty(t, stats.ArchetypeBreakdown)

	pv := w.MustNewArchetype(positionType, velocityType)
	n := w.MustNewArchetype(nameType)
	for range 3 {
		pv.NewEntity(nil)
	}
	pv.Kill(1, nil)
	n.NewEntity(nil)
	n.DelayedNewEntity(nil)
	w.DelayedKill(ecs.NewEntityId(pv.ID(), 0), nil)
	_, err := w.OnEntityCreated(func(ecs.EntityRef) {})
	require.NoError(t, err)
	ecs.NewSingleton(w, Name{Value: "config"})

	stats = w.CollectStats()
	assert.Equal(t, 2, stats.ArchetypeCount)
	assert.Equal(t, 3, stats.TotalEntityCount)
	assert.Equal(t, 1, stats.SingletonCount)
	assert.Equal(t, 1, stats.CallbackCount)
	assert.Equal(t, 1, stats.PendingBirths)
	assert.Equal(t, 1, stats.PendingKills)

	require.Len(t, stats.ArchetypeBreakdown, 2)
	first := stats.ArchetypeBreakdown[0]
	assert.Equal(t, pv.ID(), first.Id)
	assert.Equal(t, []string{"ecs_test.Position", "ecs_test.Velocity"}, first.Components)
	assert.Equal(t, 2, first.EntityCount)
	assert.Equal(t, 1, first.NumBlocks)
	assert.Equal(t, 1, first.CemeterySize)
	assert.Equal(t, pv.BlockSize(), first.BlockSize)
	assert.Equal(t, 8, first.CellSize)
	assert.Equal(t, 1, stats.ArchetypeBreakdown[1].EntityCount)
}
