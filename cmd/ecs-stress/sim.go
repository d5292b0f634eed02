package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/plus3/archecs/ecs"
)

type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	HP ecs.Field[int]
}

type Poison struct {
	Damage int
}

var (
	positionType = ecs.ComponentOf[Position]()
	velocityType = ecs.ComponentOf[Velocity]()
	healthType   = ecs.ComponentOf[Health]()
	poisonType   = ecs.ComponentOf[Poison]()
)

const maxHP = 100

type config struct {
	entities  int
	lowHP     int
	healEvery int
}

// simulation is one world with its systems. Each runs on its own goroutine.
type simulation struct {
	id        int
	world     *ecs.World
	scheduler *ecs.Scheduler
	hp        *ecs.OrderedIndex[int]
	movers    *ecs.Archetype
	poisoned  *ecs.Archetype
	low       *ecs.Cacher
	rng       *rand.Rand

	spawned int64
	killed  int64
	samples []time.Duration
}

func newSimulation(id int, cfg config, logger *slog.Logger) (*simulation, error) {
	w := ecs.NewWorld(ecs.WithLogger(logger.With("world", id)))
	s := &simulation{
		id:    id,
		world: w,
		hp:    ecs.NewOrderedIndex[int](),
		rng:   rand.New(rand.NewPCG(uint64(id), 0x5eed)),
	}
	s.hp.Bind(w)

	var err error
	if s.movers, err = w.NewArchetype(positionType, velocityType, healthType); err != nil {
		return nil, err
	}
	if s.poisoned, err = w.NewArchetype(positionType, velocityType, healthType, poisonType); err != nil {
		return nil, err
	}
	s.movers.Reserve(cfg.entities)
	s.poisoned.Reserve(cfg.entities / 2)
	for i := range cfg.entities {
		s.spawnIn(s.archetypeFor(i))
	}

	low := ecs.NewQuery(w, ecs.MatchAll, healthType).Where(s.hp.Lt(cfg.lowHP))
	if err := low.PreMatch(); err != nil {
		return nil, fmt.Errorf("world %d: %w", id, err)
	}
	if s.low, err = low.Cache(); err != nil {
		return nil, fmt.Errorf("world %d: %w", id, err)
	}

	s.scheduler = ecs.NewScheduler(w)
	systems := []ecs.System{
		&MotionSystem{Movers: ecs.NewQuery(w, ecs.MatchAll, positionType, velocityType)},
		&PoisonSystem{Poisoned: ecs.NewQuery(w, ecs.MatchAll, poisonType)},
		&HealSystem{sim: s, every: cfg.healEvery},
		&ReaperSystem{Dead: ecs.NewQuery(w, ecs.MatchAll, healthType).Where(s.hp.Le(0)), sim: s},
	}
	for _, sys := range systems {
		if err := s.scheduler.Register(sys); err != nil {
			return nil, fmt.Errorf("world %d: %w", id, err)
		}
	}
	return s, nil
}

func (s *simulation) archetypeFor(i int) *ecs.Archetype {
	if i%3 == 0 {
		return s.poisoned
	}
	return s.movers
}

func (s *simulation) spawnIn(a *ecs.Archetype) ecs.EntityRef {
	return a.NewEntity(s.initEntity)
}

func (s *simulation) initEntity(ref ecs.EntityRef) {
	ecs.MustConstruct(ref, func(p *Position) {
		p.X = s.rng.Float32() * 1000
		p.Y = s.rng.Float32() * 1000
	})
	ecs.MustConstruct(ref, func(v *Velocity) {
		v.DX = s.rng.Float32()*2 - 1
		v.DY = s.rng.Float32()*2 - 1
	})
	if ref.Archetype().Has(poisonType) {
		ecs.MustConstruct(ref, func(p *Poison) { p.Damage = 1 + s.rng.IntN(5) })
	}
	h := ecs.MustConstruct(ref, func(h *Health) { h.HP = ecs.MakeField(maxHP/2 + s.rng.IntN(maxHP/2)) })
	h.HP.MustBind(s.hp)
}

// run steps the world until ctx is done.
func (s *simulation) run(ctx context.Context) {
	last := time.Now()
	for ctx.Err() == nil {
		now := time.Now()
		dt := now.Sub(last).Seconds()
		last = now

		s.scheduler.Once(dt)
		s.samples = append(s.samples, time.Since(now))
	}
	s.low.Close()
}

type MotionSystem struct {
	Movers *ecs.Query
}

func (m *MotionSystem) Execute(frame *ecs.UpdateFrame) {
	dt := float32(frame.DeltaTime)
	m.Movers.ForEach(func(ref ecs.EntityRef) {
		p := ecs.UncheckedGet[Position](ref)
		v := ecs.UncheckedGet[Velocity](ref)
		p.X += v.DX * dt
		p.Y += v.DY * dt
	}, false)
}

type PoisonSystem struct {
	Poisoned *ecs.Query
}

func (p *PoisonSystem) Execute(frame *ecs.UpdateFrame) {
	for ref := range p.Poisoned.All() {
		hp := &ecs.UncheckedGet[Health](ref).HP
		hp.MustSet(hp.Get() - ecs.UncheckedGet[Poison](ref).Damage)
	}
}

// HealSystem tops up part of the cached low-health set every few frames.
type HealSystem struct {
	sim   *simulation
	every int
	frame int
	buf   []ecs.EntityRef
}

func (h *HealSystem) Execute(frame *ecs.UpdateFrame) {
	h.frame++
	if h.every <= 0 || h.frame%h.every != 0 {
		return
	}
	// Healing moves entities out of the cache, so collect first.
	h.buf = h.sim.low.Collect(h.buf[:0], false)
	for i, ref := range h.buf {
		if i%2 == 0 {
			ecs.UncheckedGet[Health](ref).HP.MustSet(maxHP)
		}
	}
}

// ReaperSystem kills entities out of HP and queues a replacement for each.
type ReaperSystem struct {
	Dead *ecs.Query
	sim  *simulation
}

func (r *ReaperSystem) Execute(frame *ecs.UpdateFrame) {
	for ref := range r.Dead.All() {
		a := ref.Archetype()
		frame.Commands.Kill(ref.ID(), func(ecs.EntityRef) { r.sim.killed++ })
		frame.Commands.Spawn(a, r.sim.initEntity)
		r.sim.spawned++
	}
}
