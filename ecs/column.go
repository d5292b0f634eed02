package ecs

import "unsafe"

// column is the type-erased storage of one component type in an archetype.
// Cells are addressed by short id: block sid/1024, row sid%1024.
type column interface {
	componentType() *ComponentType
	grow(nBlocks int)
	numBlocks() int
	// construct runs the default constructor on the cell.
	construct(sid EntityShortId)
	// destruct runs the destructor, releases indexed fields and zeroes the cell.
	destruct(sid EntityShortId)
	zero(sid EntityShortId)
	pointer(sid EntityShortId) unsafe.Pointer
}

// genericColumn stores components of type T in fixed-size blocks. Blocks are
// allocated individually so growing never moves existing cells.
type genericColumn[T any] struct {
	ct     *ComponentType
	blocks []*[MaxNumEntitiesPerBlock]T
}

func newGenericColumn[T any](ct *ComponentType) *genericColumn[T] {
	return &genericColumn[T]{ct: ct}
}

func (c *genericColumn[T]) componentType() *ComponentType {
	return c.ct
}

func (c *genericColumn[T]) at(sid EntityShortId) *T {
	return &c.blocks[sid/MaxNumEntitiesPerBlock][sid%MaxNumEntitiesPerBlock]
}

func (c *genericColumn[T]) grow(nBlocks int) {
	for len(c.blocks) < nBlocks {
		c.blocks = append(c.blocks, new([MaxNumEntitiesPerBlock]T))
	}
}

func (c *genericColumn[T]) numBlocks() int {
	return len(c.blocks)
}

func (c *genericColumn[T]) construct(sid EntityShortId) {
	if h, ok := any(c.at(sid)).(Constructor); ok {
		h.Construct()
	}
}

func (c *genericColumn[T]) destruct(sid EntityShortId) {
	p := c.at(sid)
	if h, ok := any(p).(Destructor); ok {
		h.Destruct()
	}
	if len(c.ct.fields) > 0 {
		c.ct.releaseFields(unsafe.Pointer(p))
	}
	var zero T
	*p = zero
}

func (c *genericColumn[T]) zero(sid EntityShortId) {
	var zero T
	*c.at(sid) = zero
}

func (c *genericColumn[T]) pointer(sid EntityShortId) unsafe.Pointer {
	return unsafe.Pointer(c.at(sid))
}
