package ecs

// WorldStats is a snapshot of a world's storage.
type WorldStats struct {
	ArchetypeCount     int
	TotalEntityCount   int
	SingletonCount     int
	CallbackCount      int
	PendingBirths      int
	PendingKills       int
	ArchetypeBreakdown []ArchetypeStats
}

// ArchetypeStats describes one archetype.
type ArchetypeStats struct {
	Id           ArchetypeId
	Components   []string
	EntityCount  int
	NumBlocks    int
	BlockSize    int
	CellSize     int
	CemeterySize int
}

// CollectStats gathers counts over every archetype, in ascending id order.
func (w *World) CollectStats() *WorldStats {
	stats := &WorldStats{
		ArchetypeCount:     len(w.archetypes),
		SingletonCount:     len(w.singletons),
		CallbackCount:      w.callbacks.Len(),
		PendingBirths:      w.NumDelayedNewEntities(),
		PendingKills:       w.NumDelayedKills(),
		ArchetypeBreakdown: make([]ArchetypeStats, 0, len(w.archetypes)),
	}
	for _, a := range w.archetypes {
		n := a.NumEntities()
		stats.TotalEntityCount += n
		stats.ArchetypeBreakdown = append(stats.ArchetypeBreakdown, ArchetypeStats{
			Id:           a.id,
			Components:   componentNames(a.types),
			EntityCount:  n,
			NumBlocks:    a.NumBlocks(),
			BlockSize:    a.BlockSize(),
			CellSize:     a.CellSize(),
			CemeterySize: a.cemetery.Size(),
		})
	}
	return stats
}
