package ecs

import "log/slog"

// Option configures a World.
type Option func(*World)

// WithLogger sets the structured logger used for debug events. The default
// discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithArchetypeCapacity preallocates room for n archetypes.
func WithArchetypeCapacity(n int) Option {
	return func(w *World) {
		w.archetypes = make([]*Archetype, 0, n)
	}
}
