package ecs

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// SchedulerStats summarizes the execution of all registered systems.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats holds the timings of one system, in registration order.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

func (st *SystemStats) record(d time.Duration) {
	if st.ExecutionCount == 0 || d < st.MinDuration {
		st.MinDuration = d
	}
	st.MaxDuration = max(st.MaxDuration, d)
	st.ExecutionCount++
	st.LastDuration = d
	st.TotalDuration += d
	st.AvgDuration = st.TotalDuration / time.Duration(st.ExecutionCount)
}

type scheduledSystem struct {
	system System
	stats  SystemStats
}

var queryPtrType = reflect.TypeFor[*Query]()

// Scheduler manages and executes systems in order.
type Scheduler struct {
	world   *World
	systems []scheduledSystem
}

// NewScheduler creates a new scheduler for the given world.
func NewScheduler(w *World) *Scheduler {
	return &Scheduler{world: w}
}

// Register adds a system to the scheduler and pre-matches its non-nil
// *Query fields. The system is not added if a query fails to match.
func (s *Scheduler) Register(system System) error {
	name := systemName(system)
	n, err := s.prepareQueries(system)
	if err != nil {
		return fmt.Errorf("register system %s: %w", name, err)
	}
	s.systems = append(s.systems, scheduledSystem{
		system: system,
		stats:  SystemStats{Name: name},
	})

	s.world.logger.Debug("system registered", "name", name, "queries", n)
	return nil
}

// MustRegister is like Register but panics on error.
func (s *Scheduler) MustRegister(system System) {
	if err := s.Register(system); err != nil {
		panic(err)
	}
}

func systemName(system System) string {
	systemType := reflect.TypeOf(system)
	if systemType.Kind() == reflect.Pointer {
		systemType = systemType.Elem()
	}
	return systemType.Name()
}

func (s *Scheduler) prepareQueries(system System) (int, error) {
	systemValue := reflect.ValueOf(system)
	if systemValue.Kind() == reflect.Pointer {
		systemValue = systemValue.Elem()
	}
	if systemValue.Kind() != reflect.Struct {
		return 0, nil
	}

	systemType := systemValue.Type()
	n := 0
	for i := 0; i < systemValue.NumField(); i++ {
		field := systemValue.Field(i)
		if field.Type() != queryPtrType || field.IsNil() {
			continue
		}
		// Unexported fields are readable but not callable through reflect.
		q := (*Query)(field.UnsafePointer())
		if q.world != s.world {
			return n, fmt.Errorf("query field %s belongs to another world", systemType.Field(i).Name)
		}
		if err := q.PreMatch(); err != nil {
			return n, fmt.Errorf("query field %s: %w", systemType.Field(i).Name, err)
		}
		n++
	}
	return n, nil
}

// Once executes all registered systems once with the given delta time, then
// flushes the frame's commands.
func (s *Scheduler) Once(dt float64) {
	frame := newUpdateFrame(dt, s.world)
	for i := range s.systems {
		entry := &s.systems[i]
		start := time.Now()
		entry.system.Execute(frame)
		entry.stats.record(time.Since(start))
	}
	frame.Commands.Flush()
}

// Run executes all systems repeatedly at the given interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			s.Once(dt)
		}
	}
}

// GetStats returns a copy of the execution statistics.
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		Systems:     make([]SystemStats, 0, len(s.systems)),
	}
	for _, entry := range s.systems {
		stats.Systems = append(stats.Systems, entry.stats)
		stats.TotalExecutions += entry.stats.ExecutionCount
	}
	return stats
}
