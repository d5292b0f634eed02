package ecs_test

import (
	"context"
	"testing"
	"time"

	"github.com/plus3/archecs/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSystem struct {
	Positions *ecs.Query
	Unset     *ecs.Query
	hidden    *ecs.Query
	frames    int
	seen      int
}

func (s *countingSystem) Execute(frame *ecs.UpdateFrame) {
	s.frames++
	s.seen = s.Positions.Count() + s.hidden.Count()
}

func TestSchedulerRegisterPreMatchesQueries(t *testing.T) {
	w := ecs.NewWorld()
	a := w.MustNewArchetype(positionType)
	a.NewEntity(nil)

	sys := &countingSystem{
		Positions: ecs.NewQuery(w, ecs.MatchAll, positionType),
		hidden:    ecs.NewQuery(w, ecs.MatchAll, positionType),
	}
	s := ecs.NewScheduler(w)
	require.NoError(t, s.Register(sys))
	assert.True(t, sys.Positions.IsReady())
	assert.True(t, sys.hidden.IsReady())

	s.Once(0.5)
	assert.Equal(t, 1, sys.frames)
	assert.Equal(t, 2, sys.seen)
}

func TestSchedulerRegisterErrors(t *testing.T) {
	empty := ecs.NewWorld()
	s := ecs.NewScheduler(empty)
	err := s.Register(&countingSystem{Positions: ecs.NewQuery(empty, ecs.MatchAll, positionType)})
	assert.ErrorIs(t, err, ecs.ErrNoArchetypes)
	assert.Contains(t, err.Error(), "countingSystem")
	assert.Equal(t, 0, s.GetStats().SystemCount)

	w := ecs.NewWorld()
	w.MustNewArchetype(positionType)
	other := ecs.NewWorld()
	other.MustNewArchetype(positionType)
	s = ecs.NewScheduler(w)
	err = s.Register(&countingSystem{Positions: ecs.NewQuery(other, ecs.MatchAll, positionType)})
	assert.ErrorContains(t, err, "another world")
	assert.Panics(t, func() {
		s.MustRegister(&countingSystem{Positions: ecs.NewQuery(other, ecs.MatchAll, positionType)})
	})
}

func TestSchedulerStats(t *testing.T) {
	w := ecs.NewWorld()
	s := ecs.NewScheduler(w)
	s.MustRegister(systemFunc(func(*ecs.UpdateFrame) { time.Sleep(time.Millisecond) }))

	stats := s.GetStats()
	assert.Equal(t, 1, stats.SystemCount)
	assert.Equal(t, int64(0), stats.TotalExecutions)
	assert.Equal(t, time.Duration(0), stats.Systems[0].AvgDuration)

	for range 3 {
		s.Once(0.016)
	}
	stats = s.GetStats()
	assert.Equal(t, int64(3), stats.TotalExecutions)

	sys := stats.Systems[0]
	assert.Equal(t, "systemFunc", sys.Name)
	assert.Equal(t, int64(3), sys.ExecutionCount)
	assert.GreaterOrEqual(t, sys.MinDuration, time.Millisecond)
	assert.GreaterOrEqual(t, sys.MaxDuration, sys.MinDuration)
	assert.Equal(t, sys.TotalDuration/3, sys.AvgDuration)
	assert.Greater(t, sys.LastDuration, time.Duration(0))
}

func TestSchedulerRun(t *testing.T) {
	w := ecs.NewWorld()
	s := ecs.NewScheduler(w)

	var dts []float64
	s.MustRegister(systemFunc(func(frame *ecs.UpdateFrame) { dts = append(dts, frame.DeltaTime) }))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Run(ctx, 5*time.Millisecond)

	require.NotEmpty(t, dts)
	for _, dt := range dts {
		assert.Greater(t, dt, 0.0)
	}
}
