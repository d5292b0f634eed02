package ecs_test

import "github.com/plus3/archecs/ecs"

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	HP ecs.Field[int]
}

type Team struct {
	Color ecs.Field[string]
}

type Frozen struct{}

// Stats holds two indexed fields usually bound to one index.
type Stats struct {
	Str, Dex ecs.Field[int]
}

type Slots struct {
	Items [3]ecs.Field[string]
}

// Counter counts its hook calls in package level variables.
type Counter struct {
	Value int
}

var (
	countersConstructed int
	countersDestructed  int
)

func (c *Counter) Construct() {
	c.Value = 1
	countersConstructed++
}

func (c *Counter) Destruct() {
	countersDestructed++
}

var (
	positionType = ecs.ComponentOf[Position]()
	velocityType = ecs.ComponentOf[Velocity]()
	nameType     = ecs.ComponentOf[Name]()
	healthType   = ecs.ComponentOf[Health]()
	teamType     = ecs.ComponentOf[Team]()
	frozenType   = ecs.ComponentOf[Frozen]()
	counterType  = ecs.ComponentOf[Counter]()
	statsType    = ecs.ComponentOf[Stats]()
	slotsType    = ecs.ComponentOf[Slots]()
)

// spawnHealth creates an entity whose HP field is bound to idx.
func spawnHealth(a *ecs.Archetype, idx ecs.FieldIndex[int], hp int) ecs.EntityRef {
	return a.NewEntity(func(ref ecs.EntityRef) {
		h, err := ecs.Construct(ref, func(h *Health) { h.HP = ecs.MakeField(hp) })
		if err != nil {
			panic(err)
		}
		h.HP.MustBind(idx)
	})
}

func hpOf(ref ecs.EntityRef) int {
	return ecs.MustGet[Health](ref).HP.Get()
}

func ids(refs []ecs.EntityRef) []ecs.EntityId {
	out := make([]ecs.EntityId, len(refs))
	for i, ref := range refs {
		out[i] = ref.ID()
	}
	return out
}
