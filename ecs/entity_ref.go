package ecs

// EntityRef is a lightweight handle to an entity row.
//
// A reference aliases the archetype's storage, it does not own the row. Once
// the entity is killed and its short id recycled the reference points at
// whatever entity lives in that row next. The zero value is the null
// reference.
type EntityRef struct {
	archetype *Archetype
	meta      *EntityId
	id        EntityId
}

// NullEntityRef is returned by checked lookups of entities that are not alive.
var NullEntityRef EntityRef

// ID returns the entity id of the reference.
func (r EntityRef) ID() EntityId {
	return r.id
}

// ShortId returns the row id of the reference inside its archetype.
func (r EntityRef) ShortId() EntityShortId {
	return r.id.ShortId()
}

// ArchetypeId returns the id of the owning archetype.
func (r EntityRef) ArchetypeId() ArchetypeId {
	return r.id.ArchetypeId()
}

// Archetype returns the owning archetype, nil for the null reference.
func (r EntityRef) Archetype() *Archetype {
	return r.archetype
}

// IsNull reports whether r is the null reference.
func (r EntityRef) IsNull() bool {
	return r.archetype == nil
}

// Equal reports whether both references address the same row.
func (r EntityRef) Equal(o EntityRef) bool {
	return r.meta == o.meta
}

// IsAlive reports whether the referenced entity is currently alive.
func (r EntityRef) IsAlive() bool {
	if r.archetype == nil {
		return false
	}
	return r.archetype.IsAlive(r.id.ShortId())
}

// Kill destroys the entity immediately.
func (r EntityRef) Kill() {
	if r.archetype != nil {
		r.archetype.Kill(r.id.ShortId(), nil)
	}
}

// DelayedKill marks the entity to be killed on the next World.ApplyDelayedKills.
// The optional callback runs right before the entity is destroyed.
func (r EntityRef) DelayedKill(beforeKill func(EntityRef)) {
	if r.archetype != nil {
		r.archetype.DelayedKill(r.id.ShortId(), beforeKill)
	}
}

func (r EntityRef) String() string {
	if r.archetype == nil {
		return "EntityRef(null)"
	}
	return "EntityRef(" + r.id.String() + ")"
}
