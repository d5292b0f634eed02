package ecs

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/gammazero/deque"
)

// CemeteryBlockSize is the number of short ids covered by one existence block.
const CemeteryBlockSize = MaxNumEntitiesPerBlock

// Cemetery recycles freed short ids of one archetype. Ids are handed out
// again oldest-freed first; membership tests are a single bit lookup.
type Cemetery struct {
	queue  deque.Deque[EntityShortId]
	blocks []*bitset.BitSet
}

// NewCemetery creates an empty cemetery.
func NewCemetery() *Cemetery {
	return &Cemetery{}
}

// Add buries a short id.
func (c *Cemetery) Add(e EntityShortId) {
	b := int(e / CemeteryBlockSize)
	c.ensure(b + 1)
	c.blocks[b].Set(uint(e % CemeteryBlockSize))
	c.queue.PushBack(e)
}

// Pop removes and returns the oldest buried short id. The cemetery must not be empty.
func (c *Cemetery) Pop() EntityShortId {
	if c.queue.Len() == 0 {
		panic("Cemetery.Pop() called on an empty cemetery")
	}
	e := c.queue.PopFront()
	c.blocks[e/CemeteryBlockSize].Clear(uint(e % CemeteryBlockSize))
	return e
}

// Contains reports whether the short id is buried.
func (c *Cemetery) Contains(e EntityShortId) bool {
	b := int(e / CemeteryBlockSize)
	if b >= len(c.blocks) {
		return false
	}
	return c.blocks[b].Test(uint(e % CemeteryBlockSize))
}

// Size returns the number of buried ids.
func (c *Cemetery) Size() int {
	return c.queue.Len()
}

// Empty reports whether no ids are buried.
func (c *Cemetery) Empty() bool {
	return c.queue.Len() == 0
}

// NumBlocks returns the number of allocated existence blocks.
func (c *Cemetery) NumBlocks() int {
	return len(c.blocks)
}

// Reserve makes sure at least nBlocks existence blocks are allocated.
func (c *Cemetery) Reserve(nBlocks int) {
	c.ensure(nBlocks)
	c.queue.Grow(nBlocks * CemeteryBlockSize)
}

func (c *Cemetery) ensure(nBlocks int) {
	for len(c.blocks) < nBlocks {
		c.blocks = append(c.blocks, bitset.New(CemeteryBlockSize))
	}
}
