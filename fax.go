package faxnative

// Memory is a linear address space shared with compiled Fax code.
// Offsets are 32-bit; offset 0 is reserved and never handed out.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, value uint32) error
}

// MemorySizer provides the current size of a Memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// GrowableMemory extends Memory with page-granular growth.
// Grow returns the previous size in pages and false if the limit is hit.
type GrowableMemory interface {
	Memory
	Grow(deltaPages uint32) (uint32, bool)
}

// Allocator carves allocations out of a Memory.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
