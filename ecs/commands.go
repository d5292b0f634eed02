package ecs

// Commands buffers structural changes made during system execution. Spawns
// and kills go through the world's delayed operations, so entities stay
// stable while queries iterate. They are executed at the end of a frame.
type Commands struct {
	world  *World
	spawns int
	kills  int
	defers []func()
}

func newCommands(w *World) *Commands {
	return &Commands{world: w}
}

// Defer queues a function to run after the delayed kills and births are
// applied.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, fn)
}

// Spawn reserves an entity in a and returns its id. The entity is
// constructed with init on Flush.
func (c *Commands) Spawn(a *Archetype, init func(EntityRef)) EntityId {
	c.spawns++
	return a.DelayedNewEntity(init)
}

// Kill queues an entity kill. The optional callback runs right before the
// entity is destroyed.
func (c *Commands) Kill(eid EntityId, beforeKill func(EntityRef)) {
	c.kills++
	c.world.DelayedKill(eid, beforeKill)
}

// Len returns the number of operations queued since the last Flush.
func (c *Commands) Len() int {
	return c.spawns + c.kills + len(c.defers)
}

// Flush applies delayed kills, then delayed births, then deferred functions,
// resetting the buffer state.
func (c *Commands) Flush() {
	c.world.ApplyDelayedKills()
	c.world.ApplyDelayedNewEntities()

	// A deferred function may queue more.
	for i := 0; i < len(c.defers); i++ {
		c.defers[i]()
	}

	c.spawns = 0
	c.kills = 0
	c.defers = c.defers[:0]
}
