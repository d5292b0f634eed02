package ecs

// Singleton gives access to a single component instance owned by the world
// rather than by an entity. Use it for global state such as configuration or
// frame counters.
type Singleton[T any] struct {
	world *World
	value *T
}

// NewSingleton returns the world's singleton of type T, creating it if
// needed. A new singleton takes the initializer value if one is given, and
// otherwise runs the type's Constructor hook on a zero value. Every
// Singleton of the same type and world points at the same data.
func NewSingleton[T any](w *World, initializer ...T) *Singleton[T] {
	ct := ComponentOf[T]()
	if v, ok := w.singletons[ct]; ok {
		return &Singleton[T]{world: w, value: v.(*T)}
	}

	value := new(T)
	if len(initializer) > 0 {
		*value = initializer[0]
	} else if c, ok := any(value).(Constructor); ok {
		c.Construct()
	}
	w.singletons[ct] = value
	w.logger.Debug("singleton created", "component", ct.Name())
	return &Singleton[T]{world: w, value: value}
}

// Get returns a pointer to the singleton component.
func (s *Singleton[T]) Get() *T {
	return s.value
}

// World returns the owning world.
func (s *Singleton[T]) World() *World {
	return s.world
}

// HasSingleton reports whether the world holds a singleton of type T.
func HasSingleton[T any](w *World) bool {
	_, ok := w.singletons[ComponentOf[T]()]
	return ok
}
