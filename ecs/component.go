package ecs

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// Constructor is implemented by components with a default constructor.
// Construct runs in place on the zeroed cell when an entity is created
// without a custom initializer.
type Constructor interface {
	Construct()
}

// Destructor is implemented by components that need cleanup before their
// cell is zeroed and recycled.
type Destructor interface {
	Destruct()
}

// ComponentType describes a registered component type.
type ComponentType struct {
	id        ComponentId
	typ       reflect.Type
	fields    []fieldSlot
	newColumn func() column
}

// fieldSlot locates an indexed Field inside a component value.
type fieldSlot struct {
	offset uintptr
	typ    reflect.Type
}

// ID returns the process-wide id of the component type.
func (c *ComponentType) ID() ComponentId { return c.id }

// Type returns the reflected Go type.
func (c *ComponentType) Type() reflect.Type { return c.typ }

// Size returns the size in bytes of one component value.
func (c *ComponentType) Size() uintptr { return c.typ.Size() }

// Name returns the Go type name.
func (c *ComponentType) Name() string { return c.typ.String() }

func (c *ComponentType) String() string { return c.typ.String() }

// releaseFields erases every indexed field of the component at p from its index.
func (c *ComponentType) releaseFields(p unsafe.Pointer) {
	for _, fs := range c.fields {
		reflect.NewAt(fs.typ, unsafe.Add(p, fs.offset)).Interface().(indexedField).release()
	}
}

// componentRegistry assigns ids to component types on first use. Ids are
// stable for the process lifetime and never reused.
type componentRegistry struct {
	mu     sync.Mutex
	byType sync.Map // reflect.Type -> *ComponentType
	types  []*ComponentType
}

var registry componentRegistry

// ComponentOf returns the component type for T, registering it on first use.
// It panics when more than MaxNumComponents types are registered or when T is
// not a value type.
func ComponentOf[T any]() *ComponentType {
	t := reflect.TypeFor[T]()
	if ct, ok := registry.byType.Load(t); ok {
		return ct.(*ComponentType)
	}
	return registerComponent[T](t)
}

func registerComponent[T any](t reflect.Type) *ComponentType {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if ct, ok := registry.byType.Load(t); ok {
		return ct.(*ComponentType)
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		panic("components cannot be pointers, maps, channels, functions or interfaces: " + t.String())
	}
	if len(registry.types) >= MaxNumComponents {
		panic(fmt.Sprintf("too many component types, max %d", MaxNumComponents))
	}

	ct := &ComponentType{
		id:     ComponentId(len(registry.types)),
		typ:    t,
		fields: indexedFieldSlots(t, 0, nil),
	}
	ct.newColumn = func() column {
		return newGenericColumn[T](ct)
	}

	registry.types = append(registry.types, ct)
	registry.byType.Store(t, ct)
	return ct
}

// ComponentByType returns the registered component type for t, or nil.
func ComponentByType(t reflect.Type) *ComponentType {
	if ct, ok := registry.byType.Load(t); ok {
		return ct.(*ComponentType)
	}
	return nil
}

var indexedFieldType = reflect.TypeFor[indexedField]()

func indexedFieldSlots(t reflect.Type, base uintptr, out []fieldSlot) []fieldSlot {
	if reflect.PointerTo(t).Implements(indexedFieldType) {
		return append(out, fieldSlot{offset: base, typ: t})
	}
	switch t.Kind() {
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			out = indexedFieldSlots(f.Type, base+f.Offset, out)
		}
	case reflect.Array:
		elem := t.Elem()
		if n := len(indexedFieldSlots(elem, 0, nil)); n == 0 {
			return out
		}
		for i := range t.Len() {
			out = indexedFieldSlots(elem, base+uintptr(i)*elem.Size(), out)
		}
	}
	return out
}

func columnOf[T any](ref EntityRef) (*genericColumn[T], error) {
	if ref.archetype == nil {
		return nil, ErrNullEntityRef
	}
	ct := ComponentOf[T]()
	col := ref.archetype.cols[ct.id]
	if col < 0 {
		return nil, &ComponentNotFoundError{Archetype: ref.archetype.id, Component: ct.Name()}
	}
	return ref.archetype.columns[col].(*genericColumn[T]), nil
}

// Construct builds the T component of the referenced entity in place. A nil
// init runs the default constructor, if T has one.
//
// Construct is meant to be called from an entity initializer.
func Construct[T any](ref EntityRef, init func(*T)) (*T, error) {
	c, err := columnOf[T](ref)
	if err != nil {
		return nil, err
	}
	sid := ref.id.ShortId()
	if init == nil {
		c.construct(sid)
		return c.at(sid), nil
	}
	p := c.at(sid)
	init(p)
	return p, nil
}

// MustConstruct is like Construct but panics if the archetype has no T column.
func MustConstruct[T any](ref EntityRef, init func(*T)) *T {
	p, err := Construct(ref, init)
	if err != nil {
		panic(err)
	}
	return p
}

// Get returns the T component of the referenced entity.
func Get[T any](ref EntityRef) (*T, error) {
	c, err := columnOf[T](ref)
	if err != nil {
		return nil, err
	}
	return c.at(ref.id.ShortId()), nil
}

// MustGet is like Get but panics if the archetype has no T column.
func MustGet[T any](ref EntityRef) *T {
	p, err := Get[T](ref)
	if err != nil {
		panic(err)
	}
	return p
}

// UncheckedGet returns the T component without checking the archetype's
// column table. The caller guarantees T belongs to the archetype.
func UncheckedGet[T any](ref EntityRef) *T {
	ct := ComponentOf[T]()
	return ref.archetype.columns[ref.archetype.cols[ct.id]].(*genericColumn[T]).at(ref.id.ShortId())
}

// Has reports whether the referenced entity's archetype contains T.
func Has[T any](ref EntityRef) bool {
	_, err := columnOf[T](ref)
	return err == nil
}
