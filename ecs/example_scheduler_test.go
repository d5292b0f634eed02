package ecs_test

import (
	"fmt"

	"github.com/plus3/archecs/ecs"
)

type Transform struct {
	X, Y float32
}

type Speed struct {
	DX, DY float32
}

type Hitpoints struct {
	Current ecs.Field[int]
}

type PhysicsSystem struct {
	Movers *ecs.Query
}

func (s *PhysicsSystem) Execute(frame *ecs.UpdateFrame) {
	for ref := range s.Movers.All() {
		t := ecs.UncheckedGet[Transform](ref)
		sp := ecs.UncheckedGet[Speed](ref)
		t.X += sp.DX * float32(frame.DeltaTime)
		t.Y += sp.DY * float32(frame.DeltaTime)
	}
}

type DecaySystem struct {
	Living *ecs.Query
	Amount int
}

func (s *DecaySystem) Execute(frame *ecs.UpdateFrame) {
	for ref := range s.Living.All() {
		hp := &ecs.UncheckedGet[Hitpoints](ref).Current
		hp.MustSet(hp.Get() - s.Amount)
	}
}

type ReaperSystem struct {
	Dying *ecs.Query
}

func (s *ReaperSystem) Execute(frame *ecs.UpdateFrame) {
	for ref := range s.Dying.All() {
		frame.Commands.Kill(ref.ID(), nil)
	}
}

// ExampleScheduler demonstrates building a game loop with multiple systems.
// The Scheduler pre-matches the *ecs.Query fields of each system on
// registration, runs systems in registration order and flushes the frame's
// commands once every system ran.
func ExampleScheduler() {
	transformType := ecs.ComponentOf[Transform]()
	speedType := ecs.ComponentOf[Speed]()
	hitpointsType := ecs.ComponentOf[Hitpoints]()

	w := ecs.NewWorld()
	movers := w.MustNewArchetype(transformType, speedType, hitpointsType)
	hp := ecs.NewOrderedIndex[int]()
	hp.Bind(w)

	spawn := func(x, dx float32, h int) {
		movers.NewEntity(func(ref ecs.EntityRef) {
			ecs.Construct(ref, func(t *Transform) { t.X = x })
			ecs.Construct(ref, func(s *Speed) { s.DX = dx })
			c, _ := ecs.Construct(ref, func(c *Hitpoints) { c.Current = ecs.MakeField(h) })
			c.Current.MustBind(hp)
		})
	}
	spawn(0, 10, 30)
	spawn(100, -5, 15)

	scheduler := ecs.NewScheduler(w)
	scheduler.MustRegister(&PhysicsSystem{Movers: ecs.NewQuery(w, ecs.MatchAll, transformType, speedType)})
	scheduler.MustRegister(&DecaySystem{Living: ecs.NewQuery(w, ecs.MatchAll, hitpointsType), Amount: 10})
	scheduler.MustRegister(&ReaperSystem{Dying: ecs.NewQuery(w, ecs.MatchAll, hitpointsType).Where(hp.Le(0))})

	for frame := 1; frame <= 3; frame++ {
		scheduler.Once(1.0)
		fmt.Printf("frame %d: %d alive\n", frame, w.NumEntities())
	}

	for _, sys := range scheduler.GetStats().Systems {
		fmt.Printf("%s ran %d times\n", sys.Name, sys.ExecutionCount)
	}

	// Output:
	// frame 1: 2 alive
	// frame 2: 1 alive
	// frame 3: 0 alive
	// PhysicsSystem ran 3 times
	// DecaySystem ran 3 times
	// ReaperSystem ran 3 times
}
