package ffi

import (
	"sync"

	faxnative "github.com/Luvion1/fax-native"
	"github.com/Luvion1/fax-native/errors"
)

// pageSize is the wasm linear memory page size.
const pageSize = 64 * 1024

// arenaAlign is the minimum alignment and size granule. Every block the
// arena hands out is a multiple of this, which keeps the free list from
// fragmenting into unusable slivers.
const arenaAlign = 8

type freeBlock struct {
	off  uint32
	size uint32
}

// Arena is a first-fit allocator over a region of linear memory. It
// claims whole pages past the guest's current size, so it never
// clobbers guest data, and grows the memory as demand requires.
//
// The arena remembers the size of every live block, so blocks can be
// released by pointer alone. That is what lets the C-shaped surface
// expose free functions that take only an address.
type Arena struct {
	mu    sync.Mutex
	mem   faxnative.GrowableMemory
	base  uint32
	next  uint32
	end   uint32
	free  []freeBlock
	sizes map[uint32]uint32
}

var _ faxnative.Allocator = (*Arena)(nil)

// NewArena claims one fresh page of mem and returns an arena over it.
func NewArena(mem faxnative.GrowableMemory) (*Arena, error) {
	prevPages, ok := mem.Grow(1)
	if !ok {
		return nil, errors.Exhausted(pageSize, 0)
	}
	base := prevPages * pageSize
	if base == 0 {
		// Offset 0 is reserved; callers treat it as null.
		base = arenaAlign
	}
	return &Arena{
		mem:   mem,
		base:  base,
		next:  base,
		end:   (prevPages + 1) * pageSize,
		sizes: make(map[uint32]uint32),
	}, nil
}

// Alloc reserves at least size bytes with the given alignment and
// returns their offset. The offset is never 0.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if align < arenaAlign {
		align = arenaAlign
	}
	if size == 0 {
		size = 1
	}
	size = roundUp(size, arenaAlign)

	for i, b := range a.free {
		if b.size >= size && b.off%align == 0 {
			a.free = append(a.free[:i], a.free[i+1:]...)
			if rem := b.size - size; rem >= arenaAlign {
				a.free = append(a.free, freeBlock{off: b.off + size, size: rem})
			} else {
				size = b.size
			}
			a.sizes[b.off] = size
			return b.off, nil
		}
	}

	off := roundUp(a.next, align)
	for uint64(off)+uint64(size) > uint64(a.end) {
		pages := uint32((uint64(off) + uint64(size) - uint64(a.end) + pageSize - 1) / pageSize)
		prev, ok := a.mem.Grow(pages)
		if !ok {
			return 0, errors.Exhausted(uint64(size), uint64(a.end-a.base))
		}
		if grown := prev * pageSize; grown != a.end {
			// The guest grew the memory itself since the arena's last
			// claim: the pages between a.end and grown are guest-owned,
			// and the fresh pages start at grown, not at a.end. Rebase
			// onto the claimed pages and recycle the stranded tail.
			if tail := a.end - a.next; tail >= arenaAlign {
				a.free = append(a.free, freeBlock{off: a.next, size: tail})
			}
			a.next = grown
			a.end = grown
			off = roundUp(a.next, align)
		}
		a.end += pages * pageSize
	}
	a.next = off + size
	a.sizes[off] = size
	return off, nil
}

// Free releases a block by offset. The size and align arguments are
// accepted for the Allocator interface but the arena's own record wins.
func (a *Arena) Free(ptr, size, align uint32) {
	a.FreePtr(ptr)
}

// FreePtr releases the block at ptr, if the arena owns one there.
// Freeing 0 or an unknown offset is a no-op.
func (a *Arena) FreePtr(ptr uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	size, ok := a.sizes[ptr]
	if !ok {
		return false
	}
	delete(a.sizes, ptr)
	if ptr+size == a.next {
		// Rewind the bump pointer rather than grow the free list.
		a.next = ptr
		return true
	}
	a.free = append(a.free, freeBlock{off: ptr, size: size})
	return true
}

// Live returns the number of outstanding blocks.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sizes)
}

func roundUp(v, to uint32) uint32 {
	return (v + to - 1) &^ (to - 1)
}
