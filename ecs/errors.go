package ecs

import (
	"errors"
	"fmt"
)

var (
	// ErrNoArchetypes is returned by setup calls that need the world's
	// archetypes to exist first, like Query.PreMatch and callback registration.
	ErrNoArchetypes = errors.New("no archetypes created yet")
	// ErrQueryNotReady is returned (or panicked with) when a query is used before PreMatch.
	ErrQueryNotReady = errors.New("query used before PreMatch")
	// ErrNoComponents is returned when creating an archetype without components.
	ErrNoComponents = errors.New("archetype needs at least one component")
	// ErrDuplicateComponent is returned when an archetype lists a component twice.
	ErrDuplicateComponent = errors.New("duplicate component in archetype")
	// ErrArchetypeExists is returned when an archetype with the same signature exists.
	ErrArchetypeExists = errors.New("archetype already exists")
	// ErrTooManyArchetypes is returned when a world runs out of archetype ids.
	ErrTooManyArchetypes = errors.New("too many archetypes")
	// ErrNilIndex is returned when binding a field to a nil index.
	ErrNilIndex = errors.New("cannot bind nil index to field")
	// ErrFieldNotBound is returned when writing a field whose Bind never ran.
	ErrFieldNotBound = errors.New("field written before Bind")
	// ErrNullEntityRef is returned when accessing components through the null reference.
	ErrNullEntityRef = errors.New("null entity reference")
	// ErrComponentNotFound is wrapped by ComponentNotFoundError.
	ErrComponentNotFound = errors.New("component not found")
)

// ComponentNotFoundError indicates a component lookup on an archetype that
// does not contain the component.
type ComponentNotFoundError struct {
	Archetype ArchetypeId
	Component string
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component %s not found in archetype %d", e.Component, e.Archetype)
}

func (e *ComponentNotFoundError) Unwrap() error { return ErrComponentNotFound }
