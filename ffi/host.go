package ffi

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	faxnative "github.com/Luvion1/fax-native"
	"github.com/Luvion1/fax-native/bridge"
	"github.com/Luvion1/fax-native/errors"
	"github.com/Luvion1/fax-native/gc"
)

// Status codes returned by the fallible bridge calls. Generated code
// checks for StatusOK and asks the context for the error text otherwise.
const (
	StatusOK    uint32 = 0
	StatusError uint32 = 1
)

// Host exposes the serialization bridge and the allocation runtime to
// compiled Fax code through a flat, C-shaped call surface over linear
// memory. One Host serves one guest memory.
//
// Out-parameters are u32 offsets the guest passes in; pointer results
// land in the arena region the host claims past the guest's data, so
// guest and host allocations never overlap.
type Host struct {
	mu    sync.Mutex
	mem   faxnative.GrowableMemory
	arena *Arena
	gcrt  *gc.Runtime
	table *bridge.Table

	// Per-handle blocks the host owns in guest memory: the serialized
	// buffer, the last error text, and the token text scratch. Each is
	// replaced in place on the next call that produces one.
	blocks map[bridge.Handle]*handleBlocks

	// out receives guest print output, stdout unless redirected.
	out io.Writer

	versionPtr uint32
	gcConfig   gc.Config
}

type handleBlocks struct {
	errPtr  uint32
	bufPtr  uint32
	textPtr uint32
}

// NewHost returns a Host bound to mem. The gc runtime's objects live in
// the same memory, managed through the host's arena.
func NewHost(mem faxnative.GrowableMemory, gcCfg gc.Config) (*Host, error) {
	arena, err := NewArena(mem)
	if err != nil {
		return nil, err
	}
	h := &Host{
		mem:      mem,
		arena:    arena,
		table:    bridge.NewTable(),
		blocks:   make(map[bridge.Handle]*handleBlocks),
		out:      os.Stdout,
		gcConfig: gcCfg,
	}
	h.gcrt = gc.NewRuntimeWith(gcCfg, &arenaBacking{arena: arena, mem: mem})
	return h, nil
}

// Close releases every live context and the host's bookkeeping.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.table.Close()
	h.blocks = make(map[bridge.Handle]*handleBlocks)
	h.gcrt.Shutdown()
}

// ContextNew creates a serialization context and returns its handle.
// 0 means failure.
func (h *Host) ContextNew() uint32 {
	handle := h.table.Insert(bridge.NewContext())
	if handle != 0 {
		h.mu.Lock()
		h.blocks[handle] = &handleBlocks{}
		h.mu.Unlock()
	}
	return uint32(handle)
}

// ContextFree destroys a context and the guest blocks it owns. Invalid
// handles are tolerated.
func (h *Host) ContextFree(handle uint32) {
	hd := bridge.Handle(handle)
	if !h.table.Remove(hd) {
		return
	}
	h.mu.Lock()
	if b, ok := h.blocks[hd]; ok {
		h.releaseBlocks(b)
		delete(h.blocks, hd)
	}
	h.mu.Unlock()
}

// context resolves a guest-supplied handle, logging dead ones so stale
// handles in generated code are visible without a debugger.
func (h *Host) context(handle uint32) (*bridge.Context, bool) {
	ctx, ok := h.table.Get(bridge.Handle(handle))
	if !ok {
		Logger().Debug("ffi: rejected call",
			zap.Error(errors.InvalidHandle(errors.PhaseFFI, handle)))
	}
	return ctx, ok
}

func (h *Host) releaseBlocks(b *handleBlocks) {
	h.arena.FreePtr(b.errPtr)
	h.arena.FreePtr(b.bufPtr)
	h.arena.FreePtr(b.textPtr)
	b.errPtr, b.bufPtr, b.textPtr = 0, 0, 0
}

// GetError returns the offset of a NUL-terminated copy of the context's
// last error message, or 0 when there is none. The string is owned by
// the context and is replaced on the next failing call.
func (h *Host) GetError(handle uint32) uint32 {
	ctx, ok := h.context(handle)
	if !ok {
		return 0
	}
	msg, ok := ctx.LastError()
	if !ok {
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.blocks[bridge.Handle(handle)]
	if b == nil {
		return 0
	}
	ptr, err := h.placeCString(&b.errPtr, msg)
	if err != nil {
		Logger().Error("ffi: writing error string", zap.Error(err))
		return 0
	}
	return ptr
}

// placeCString replaces *slot with a fresh NUL-terminated copy of s.
func (h *Host) placeCString(slot *uint32, s string) (uint32, error) {
	h.arena.FreePtr(*slot)
	*slot = 0
	ptr, err := h.arena.Alloc(uint32(len(s))+1, 1)
	if err != nil {
		return 0, err
	}
	if err := h.mem.Write(ptr, append([]byte(s), 0)); err != nil {
		h.arena.FreePtr(ptr)
		return 0, err
	}
	*slot = ptr
	return ptr, nil
}

// placeBytes replaces *slot with a fresh copy of data.
func (h *Host) placeBytes(slot *uint32, data []byte) (uint32, error) {
	h.arena.FreePtr(*slot)
	*slot = 0
	ptr, err := h.arena.Alloc(uint32(len(data)), 1)
	if err != nil {
		return 0, err
	}
	if err := h.mem.Write(ptr, data); err != nil {
		h.arena.FreePtr(ptr)
		return 0, err
	}
	*slot = ptr
	return ptr, nil
}

// SerializeTokens lexes the source text at srcPtr and writes the
// serialized stream's offset and length through the two out-pointers.
// The buffer belongs to the context until the next serialize call.
func (h *Host) SerializeTokens(handle, srcPtr, srcLen, outPtrPtr, outLenPtr uint32) uint32 {
	ctx, ok := h.context(handle)
	if !ok {
		return StatusError
	}
	src, err := h.mem.Read(srcPtr, srcLen)
	if err != nil {
		Logger().Error("ffi: reading source", zap.Error(err))
		return StatusError
	}
	view, err := ctx.EncodeTokens(string(src))
	if err != nil {
		return StatusError
	}
	return h.emitBuffer(bridge.Handle(handle), view.Bytes(), outPtrPtr, outLenPtr)
}

// SerializeModule encodes the module JSON at jsonPtr. Same buffer
// ownership as SerializeTokens.
func (h *Host) SerializeModule(handle, jsonPtr, jsonLen, outPtrPtr, outLenPtr uint32) uint32 {
	ctx, ok := h.context(handle)
	if !ok {
		return StatusError
	}
	src, err := h.mem.Read(jsonPtr, jsonLen)
	if err != nil {
		Logger().Error("ffi: reading module json", zap.Error(err))
		return StatusError
	}
	view, err := ctx.EncodeModule(string(src))
	if err != nil {
		return StatusError
	}
	return h.emitBuffer(bridge.Handle(handle), view.Bytes(), outPtrPtr, outLenPtr)
}

func (h *Host) emitBuffer(handle bridge.Handle, data []byte, outPtrPtr, outLenPtr uint32) uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.blocks[handle]
	if b == nil {
		return StatusError
	}
	ptr, err := h.placeBytes(&b.bufPtr, data)
	if err != nil {
		Logger().Error("ffi: writing serialized buffer", zap.Error(err))
		return StatusError
	}
	if err := h.mem.WriteU32(outPtrPtr, ptr); err != nil {
		return StatusError
	}
	if err := h.mem.WriteU32(outLenPtr, uint32(len(data))); err != nil {
		return StatusError
	}
	return StatusOK
}

// BytesFree matches the C surface's fax_bytes_free. Serialized buffers
// are context-owned, so this is a documented no-op.
func (h *Host) BytesFree(ptr uint32) {}

// DeserializeTokens decodes the buffer at bufPtr into the context's
// token view, replacing any previous view.
func (h *Host) DeserializeTokens(handle, bufPtr, bufLen uint32) uint32 {
	ctx, ok := h.context(handle)
	if !ok {
		return StatusError
	}
	data, err := h.mem.Read(bufPtr, bufLen)
	if err != nil {
		Logger().Error("ffi: reading token buffer", zap.Error(err))
		return StatusError
	}
	if err := ctx.DecodeTokens(data); err != nil {
		return StatusError
	}
	return StatusOK
}

// TokenCount returns the number of decoded tokens, 0 when nothing has
// been decoded.
func (h *Host) TokenCount(handle uint32) uint32 {
	ctx, ok := h.context(handle)
	if !ok {
		return 0
	}
	return uint32(ctx.TokenCount())
}

// TokenInfo writes the kind, line, column, and text of token index
// through the five out-pointers. An out-of-range index is not an
// error: the sentinel token (kind 0, empty text, position 0) is
// written instead, so generated code can walk past the end safely.
//
// The text block is owned by the context and replaced on the next call.
func (h *Host) TokenInfo(handle, index, kindPtr, linePtr, colPtr, textPtrPtr, textLenPtr uint32) uint32 {
	ctx, ok := h.context(handle)
	if !ok {
		return StatusError
	}
	tok := ctx.TokenAt(int(index))

	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.blocks[bridge.Handle(handle)]
	if b == nil {
		return StatusError
	}
	textPtr, err := h.placeCString(&b.textPtr, tok.Text)
	if err != nil {
		Logger().Error("ffi: writing token text", zap.Error(err))
		return StatusError
	}
	for _, w := range []struct{ at, v uint32 }{
		{kindPtr, uint32(tok.Kind)},
		{linePtr, tok.Line},
		{colPtr, tok.Column},
		{textPtrPtr, textPtr},
		{textLenPtr, uint32(len(tok.Text))},
	} {
		if err := h.mem.WriteU32(w.at, w.v); err != nil {
			return StatusError
		}
	}
	return StatusOK
}

// DeserializeModule decodes the buffer at bufPtr and writes the offset
// and length of a NUL-terminated JSON string through the out-pointers.
// Unlike serialized buffers, the string is caller-owned: the guest must
// release it with StringFree.
func (h *Host) DeserializeModule(handle, bufPtr, bufLen, outStrPtr, outLenPtr uint32) uint32 {
	ctx, ok := h.context(handle)
	if !ok {
		return StatusError
	}
	data, err := h.mem.Read(bufPtr, bufLen)
	if err != nil {
		Logger().Error("ffi: reading module buffer", zap.Error(err))
		return StatusError
	}
	text, err := ctx.DecodeModule(data)
	if err != nil {
		return StatusError
	}
	ptr, err := h.arena.Alloc(uint32(len(text))+1, 1)
	if err != nil {
		Logger().Error("ffi: allocating module string", zap.Error(err))
		return StatusError
	}
	if err := h.mem.Write(ptr, append([]byte(text), 0)); err != nil {
		h.arena.FreePtr(ptr)
		return StatusError
	}
	if err := h.mem.WriteU32(outStrPtr, ptr); err != nil {
		h.arena.FreePtr(ptr)
		return StatusError
	}
	if err := h.mem.WriteU32(outLenPtr, uint32(len(text))); err != nil {
		h.arena.FreePtr(ptr)
		return StatusError
	}
	return StatusOK
}

// StringFree releases a caller-owned string from DeserializeModule.
// Freeing 0 or an unknown pointer is a no-op.
func (h *Host) StringFree(ptr uint32) {
	h.arena.FreePtr(ptr)
}

// Version returns the offset of the NUL-terminated bridge version
// string. The block is written once and lives for the host's lifetime.
func (h *Host) Version() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.versionPtr != 0 {
		return h.versionPtr
	}
	ptr, err := h.placeCString(&h.versionPtr, bridge.Version)
	if err != nil {
		Logger().Error("ffi: writing version string", zap.Error(err))
		return 0
	}
	return ptr
}

// GCInit brings the allocation runtime up. Idempotent; always 1.
func (h *Host) GCInit() uint32 {
	if h.gcrt.Init() {
		return 1
	}
	return 0
}

// GCAlloc allocates size bytes from the Fax heap, 0 on exhaustion.
func (h *Host) GCAlloc(size uint32) uint32 {
	return uint32(h.gcrt.Alloc(uint64(size)))
}

// GCAllocZeroed is GCAlloc with zero-filled contents.
func (h *Host) GCAllocZeroed(size uint32) uint32 {
	return uint32(h.gcrt.AllocZeroed(uint64(size)))
}

// GCRegisterRoot marks addr as reachable.
func (h *Host) GCRegisterRoot(addr uint32) uint32 {
	if h.gcrt.RegisterRoot(uintptr(addr)) {
		return 1
	}
	return 0
}

// GCUnregisterRoot removes addr from the root set.
func (h *Host) GCUnregisterRoot(addr uint32) uint32 {
	if h.gcrt.UnregisterRoot(uintptr(addr)) {
		return 1
	}
	return 0
}

// GCCollect runs a full collection.
func (h *Host) GCCollect() { h.gcrt.Collect() }

// GCCollectYoung runs a minor collection.
func (h *Host) GCCollectYoung() { h.gcrt.CollectYoung() }

// GCShutdown resets the allocation runtime; a later GCAlloc
// re-initializes it.
func (h *Host) GCShutdown() { h.gcrt.Shutdown() }

// GC exposes the underlying runtime, mainly for stats.
func (h *Host) GC() *gc.Runtime { return h.gcrt }

// arenaBacking places gc objects in the host's arena.
type arenaBacking struct {
	arena *Arena
	mem   faxnative.GrowableMemory
}

func (b *arenaBacking) Alloc(size uint64) (uint64, error) {
	ptr, err := b.arena.Alloc(uint32(size), arenaAlign)
	return uint64(ptr), err
}

func (b *arenaBacking) Free(addr, size uint64) {
	b.arena.FreePtr(uint32(addr))
}

func (b *arenaBacking) Bytes(addr, size uint64) ([]byte, bool) {
	view, err := b.mem.Read(uint32(addr), uint32(size))
	if err != nil {
		return nil, false
	}
	return view, true
}
