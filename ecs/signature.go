package ecs

import (
	"iter"
	"math/bits"
)

// ComponentId is the process-wide id of a registered component type.
type ComponentId uint8

// Signature is a bitset over component ids, one bit per component type present.
type Signature [MaxNumComponents / 64]uint64

// SignatureOf returns the signature containing the given component types.
func SignatureOf(types ...*ComponentType) Signature {
	var s Signature
	for _, ct := range types {
		s.Set(ct.id)
	}
	return s
}

// Set marks the component id as present.
func (s *Signature) Set(id ComponentId) {
	s[id/64] |= 1 << (id % 64)
}

// Has reports whether the component id is present.
func (s Signature) Has(id ComponentId) bool {
	return s[id/64]&(1<<(id%64)) != 0
}

// Count returns the number of component ids present.
func (s Signature) Count() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsEmpty reports whether no component id is present.
func (s Signature) IsEmpty() bool {
	return s == Signature{}
}

// Ids iterates the present component ids in ascending order.
func (s Signature) Ids() iter.Seq[ComponentId] {
	return func(yield func(ComponentId) bool) {
		for i, w := range s {
			for w != 0 {
				b := bits.TrailingZeros64(w)
				if !yield(ComponentId(i*64 + b)) {
					return
				}
				w &= w - 1
			}
		}
	}
}
