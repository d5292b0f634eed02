package ecs

import (
	"iter"
	"reflect"
	"unsafe"
)

// View fills a struct of component pointers from an entity.
// The type T should be a struct whose fields are pointers to component types.
// Named fields can be marked as optional using the `ecs:"optional"` struct tag;
// embedded fields are always required.
type View[T any] struct {
	types       []*ComponentType
	optional    []bool
	fieldOffset []uintptr
}

// NewView creates a view for the struct type T. It panics if T is not a
// struct of component pointers.
func NewView[T any]() *View[T] {
	var zero T
	structType := reflect.TypeOf(zero)

	if structType == nil || structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	v := &View[T]{
		types:       make([]*ComponentType, 0, structType.NumField()),
		optional:    make([]bool, 0, structType.NumField()),
		fieldOffset: make([]uintptr, 0, structType.NumField()),
	}

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if field.Type.Kind() != reflect.Pointer {
			panic("View struct fields must be pointer types")
		}

		isOptional := false
		if !field.Anonymous {
			switch tag := field.Tag.Get("ecs"); tag {
			case "":
			case "optional":
				isOptional = true
			default:
				panic("invalid ecs tag value: \"" + tag + "\" (only \"optional\" is supported)")
			}
		}

		ct := ComponentByType(field.Type.Elem())
		if ct == nil {
			panic("View field type is not a registered component: " + field.Type.Elem().String())
		}
		v.types = append(v.types, ct)
		v.optional = append(v.optional, isOptional)
		v.fieldOffset = append(v.fieldOffset, field.Offset)
	}
	return v
}

// Types returns the required component types.
func (v *View[T]) Types() []*ComponentType {
	required := make([]*ComponentType, 0, len(v.types))
	for i, ct := range v.types {
		if !v.optional[i] {
			required = append(required, ct)
		}
	}
	return required
}

// Query returns an unmatched MatchAll query over the required components.
func (v *View[T]) Query(w *World) *Query {
	return NewQuery(w, MatchAll, v.Types()...)
}

// Fill populates ptr with component pointers of the entity.
// Returns false if the ref is null or misses a required component.
// Optional components are set to nil if not present.
func (v *View[T]) Fill(ref EntityRef, ptr *T) bool {
	if ref.IsNull() {
		return false
	}
	a := ref.archetype
	sid := ref.id.ShortId()
	structPtr := unsafe.Pointer(ptr)

	for i, ct := range v.types {
		fieldPtr := unsafe.Add(structPtr, v.fieldOffset[i])
		col := a.cols[ct.id]
		if col < 0 {
			if !v.optional[i] {
				return false
			}
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}
		*(*unsafe.Pointer)(fieldPtr) = a.columns[col].pointer(sid)
	}
	return true
}

// Get returns a populated view struct for the entity, or nil if the entity
// doesn't have all the required components.
func (v *View[T]) Get(ref EntityRef) *T {
	var result T
	if !v.Fill(ref, &result) {
		return nil
	}
	return &result
}

// Iter yields the view of every entity matched by q. Entities missing a
// required component are skipped, so q may use any relation.
func (v *View[T]) Iter(q *Query) iter.Seq2[EntityRef, T] {
	return func(yield func(EntityRef, T) bool) {
		var result T
		q.forEachUntil(func(ref EntityRef) bool {
			if !v.Fill(ref, &result) {
				return false
			}
			return !yield(ref, result)
		}, false)
	}
}

// Values is Iter without the entity refs.
func (v *View[T]) Values(q *Query) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter(q) {
			if !yield(value) {
				return
			}
		}
	}
}
