package ecs

import "strconv"

const (
	// MaxNumArchetypesPerWorld bounds archetype ids to 13 bits.
	MaxNumArchetypesPerWorld = 1 << 13
	// MaxNumEntitiesPerArchetype bounds short ids to 19 bits.
	MaxNumEntitiesPerArchetype = 1 << 19
	// MaxNumEntitiesPerBlock is the number of rows in one storage block.
	MaxNumEntitiesPerBlock = 1024
	// MaxNumComponents is the number of component types a process may register.
	MaxNumComponents = 128

	shortIdBits = 19
	shortIdMask = MaxNumEntitiesPerArchetype - 1
	aidMask     = MaxNumArchetypesPerWorld - 1
)

// ArchetypeId identifies an archetype inside its World.
type ArchetypeId uint16

// EntityShortId identifies a row inside its archetype.
type EntityShortId uint32

// EntityId encodes the archetype id (upper 13 bits) and the short id (lower 19 bits).
// Sorting entity ids groups entities by archetype first, then by row.
type EntityId uint32

// NewEntityId packs an archetype id and a short id into an EntityId.
func NewEntityId(archetypeId ArchetypeId, shortId EntityShortId) EntityId {
	return EntityId(uint32(archetypeId&aidMask)<<shortIdBits | uint32(shortId&shortIdMask))
}

// ArchetypeId extracts the archetype id from the entity id.
func (e EntityId) ArchetypeId() ArchetypeId {
	return ArchetypeId(uint32(e) >> shortIdBits)
}

// ShortId extracts the row id from the entity id.
func (e EntityId) ShortId() EntityShortId {
	return EntityShortId(uint32(e) & shortIdMask)
}

func (e EntityId) String() string {
	return strconv.Itoa(int(e.ArchetypeId())) + ":" + strconv.Itoa(int(e.ShortId()))
}
