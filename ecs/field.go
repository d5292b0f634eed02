package ecs

import (
	"fmt"
	"reflect"
)

// indexedField is implemented by *Field. Archetypes use it to erase a
// field's index entry when its component is destructed.
type indexedField interface {
	release()
}

// Field wraps a component field whose value is tracked by a FieldIndex.
//
// A field must be bound exactly once, from the owning component's
// constructor or the entity initializer, to an index that is itself bound to
// the entity's World:
//
//	func (h *Health) Construct() {
//		h.HP = ecs.MakeField(100)
//		h.HP.Bind(hpIndex)
//	}
//
// If the index's world is not constructing an entity at Bind time the field
// stays unindexed and later writes are ignored. Components holding bound
// fields must not be copied.
type Field[V comparable] struct {
	value V
	index FieldIndex[V]
	eid   EntityId
	live  bool
}

// MakeField returns an unbound field holding v.
func MakeField[V comparable](v V) Field[V] {
	return Field[V]{value: v}
}

// Bind attaches the field to idx and inserts its current value for the
// entity under construction. Only the first call has an effect.
func (f *Field[V]) Bind(idx FieldIndex[V]) error {
	if idx == nil {
		return ErrNilIndex
	}
	if v := reflect.ValueOf(idx); v.Kind() == reflect.Pointer && v.IsNil() {
		return ErrNilIndex
	}
	if f.index != nil {
		return nil
	}
	f.index = idx
	if eid, ok := idx.insert(f.value); ok {
		f.eid = eid
		f.live = true
	}
	return nil
}

// MustBind is like Bind but panics on error.
func (f *Field[V]) MustBind(idx FieldIndex[V]) {
	if err := f.Bind(idx); err != nil {
		panic(err)
	}
}

// Get returns the current value.
func (f *Field[V]) Get() V {
	return f.value
}

// Set updates the value and its index entry, then notifies the index's
// subscribers. It fails if Bind never ran, and does nothing if the field was
// bound outside of an entity construction.
func (f *Field[V]) Set(v V) error {
	if f.index == nil {
		return ErrFieldNotBound
	}
	if !f.live {
		return nil
	}
	old := f.value
	f.value = v
	f.index.update(old, v, f.eid)
	return nil
}

// MustSet is like Set but panics on error.
func (f *Field[V]) MustSet(v V) {
	if err := f.Set(v); err != nil {
		panic(err)
	}
}

// IsBound reports whether the field has a live index entry.
func (f *Field[V]) IsBound() bool {
	return f.index != nil && f.live
}

// Entity returns the id of the entity the field was indexed for.
func (f *Field[V]) Entity() (EntityId, bool) {
	return f.eid, f.live
}

func (f *Field[V]) release() {
	if f.index != nil && f.live {
		f.index.erase(f.value, f.eid)
		f.live = false
	}
}

func (f Field[V]) String() string {
	return fmt.Sprint(f.value)
}
