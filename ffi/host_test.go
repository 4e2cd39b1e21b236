package ffi

import (
	"strings"
	"testing"

	faxnative "github.com/Luvion1/fax-native"
	"github.com/Luvion1/fax-native/bridge"
	"github.com/Luvion1/fax-native/gc"
	"github.com/Luvion1/fax-native/lex"
)

// Guest-side scratch offsets. Page 0 belongs to the "guest"; the host's
// arena starts at page 1.
const (
	guestScratch = 64
	outA         = 16
	outB         = 20
)

func newTestHost(t *testing.T) (*Host, faxnative.GrowableMemory) {
	t.Helper()
	mem := NewSliceMemory(1, 0)
	h, err := NewHost(mem, gc.Config{HeapLimit: 1 << 20, YoungBudget: 1 << 20, TenureThreshold: 2})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	return h, mem
}

func writeGuest(t *testing.T, mem faxnative.GrowableMemory, off uint32, data string) uint32 {
	t.Helper()
	if err := mem.Write(off, []byte(data)); err != nil {
		t.Fatalf("writing guest data: %v", err)
	}
	return uint32(len(data))
}

func readOut(t *testing.T, mem faxnative.GrowableMemory, off uint32) uint32 {
	t.Helper()
	v, err := mem.ReadU32(off)
	if err != nil {
		t.Fatalf("reading out-param at %d: %v", off, err)
	}
	return v
}

func readCString(t *testing.T, mem faxnative.GrowableMemory, ptr uint32) string {
	t.Helper()
	var sb strings.Builder
	for {
		b, err := mem.Read(ptr, 1)
		if err != nil {
			t.Fatalf("reading c string at %d: %v", ptr, err)
		}
		if b[0] == 0 {
			return sb.String()
		}
		sb.WriteByte(b[0])
		ptr++
	}
}

func TestHost_ContextLifecycle(t *testing.T) {
	h, _ := newTestHost(t)

	handle := h.ContextNew()
	if handle == 0 {
		t.Fatal("ContextNew returned the null handle")
	}
	h.ContextFree(handle)
	// Freed and unknown handles are tolerated.
	h.ContextFree(handle)
	h.ContextFree(9999)

	if got := h.TokenCount(handle); got != 0 {
		t.Fatalf("TokenCount on freed handle = %d, want 0", got)
	}
}

func TestHost_TokenRoundTrip(t *testing.T) {
	h, mem := newTestHost(t)
	handle := h.ContextNew()

	srcLen := writeGuest(t, mem, guestScratch, "let x = 42;")
	if st := h.SerializeTokens(handle, guestScratch, srcLen, outA, outB); st != StatusOK {
		t.Fatalf("SerializeTokens status = %d", st)
	}
	bufPtr, bufLen := readOut(t, mem, outA), readOut(t, mem, outB)
	if bufPtr == 0 || bufLen == 0 {
		t.Fatalf("serialized buffer ptr=%d len=%d", bufPtr, bufLen)
	}

	if st := h.DeserializeTokens(handle, bufPtr, bufLen); st != StatusOK {
		t.Fatalf("DeserializeTokens status = %d", st)
	}
	if got := h.TokenCount(handle); got != 6 {
		t.Fatalf("TokenCount = %d, want 6", got)
	}

	const kindPtr, linePtr, colPtr, textPtrPtr, textLenPtr = 24, 28, 32, 36, 40
	if st := h.TokenInfo(handle, 1, kindPtr, linePtr, colPtr, textPtrPtr, textLenPtr); st != StatusOK {
		t.Fatal("TokenInfo failed for index 1")
	}
	if got := lex.Kind(readOut(t, mem, kindPtr)); got != lex.KindIdent {
		t.Fatalf("token 1 kind = %v, want identifier", got)
	}
	if got := readOut(t, mem, linePtr); got != 1 {
		t.Fatalf("token 1 line = %d, want 1", got)
	}
	textPtr := readOut(t, mem, textPtrPtr)
	if got := readCString(t, mem, textPtr); got != "x" {
		t.Fatalf("token 1 text = %q, want %q", got, "x")
	}
	if got := readOut(t, mem, textLenPtr); got != 1 {
		t.Fatalf("token 1 text len = %d, want 1", got)
	}

	if st := h.TokenInfo(handle, 6, kindPtr, linePtr, colPtr, textPtrPtr, textLenPtr); st != StatusOK {
		t.Fatalf("TokenInfo past the end status = %d", st)
	}
}

func TestHost_TokenInfoOutOfRangeSentinel(t *testing.T) {
	h, mem := newTestHost(t)
	handle := h.ContextNew()

	srcLen := writeGuest(t, mem, guestScratch, "let x = 42;")
	h.SerializeTokens(handle, guestScratch, srcLen, outA, outB)
	bufPtr, bufLen := readOut(t, mem, outA), readOut(t, mem, outB)
	h.DeserializeTokens(handle, bufPtr, bufLen)
	count := h.TokenCount(handle)

	// Stale garbage in the out-params must be overwritten, not left behind.
	const kindPtr, linePtr, colPtr, textPtrPtr, textLenPtr = 24, 28, 32, 36, 40
	for _, at := range []uint32{kindPtr, linePtr, colPtr, textPtrPtr, textLenPtr} {
		if err := mem.WriteU32(at, 0xDEADBEEF); err != nil {
			t.Fatalf("seeding out-param at %d: %v", at, err)
		}
	}

	if st := h.TokenInfo(handle, count+5, kindPtr, linePtr, colPtr, textPtrPtr, textLenPtr); st != StatusOK {
		t.Fatalf("TokenInfo out of range status = %d", st)
	}
	for _, c := range []struct {
		name string
		at   uint32
	}{
		{"kind", kindPtr},
		{"line", linePtr},
		{"column", colPtr},
		{"text len", textLenPtr},
	} {
		if got := readOut(t, mem, c.at); got != 0 {
			t.Fatalf("sentinel %s = %d, want 0", c.name, got)
		}
	}
	textPtr := readOut(t, mem, textPtrPtr)
	if textPtr == 0 {
		t.Fatal("sentinel text pointer is null")
	}
	if got := readCString(t, mem, textPtr); got != "" {
		t.Fatalf("sentinel text = %q, want empty", got)
	}

	if st := h.TokenInfo(9999, 0, kindPtr, linePtr, colPtr, textPtrPtr, textLenPtr); st != StatusError {
		t.Fatal("TokenInfo accepted a dead handle")
	}
}

func TestHost_GetError(t *testing.T) {
	h, mem := newTestHost(t)
	handle := h.ContextNew()

	if got := h.GetError(handle); got != 0 {
		t.Fatalf("GetError before any failure = %d, want 0", got)
	}

	garbage := writeGuest(t, mem, guestScratch, "\xff\xff\xff\xff")
	if st := h.DeserializeTokens(handle, guestScratch, garbage); st != StatusError {
		t.Fatal("DeserializeTokens accepted garbage")
	}
	errPtr := h.GetError(handle)
	if errPtr == 0 {
		t.Fatal("GetError returned null after a failure")
	}
	if msg := readCString(t, mem, errPtr); msg == "" {
		t.Fatal("error message is empty")
	}

	if got := h.GetError(9999); got != 0 {
		t.Fatalf("GetError for unknown handle = %d, want 0", got)
	}
}

func TestHost_ModuleRoundTrip(t *testing.T) {
	h, mem := newTestHost(t)
	handle := h.ContextNew()

	const moduleJSON = `{"name":"core","items":[1,2,3]}`
	srcLen := writeGuest(t, mem, guestScratch, moduleJSON)
	if st := h.SerializeModule(handle, guestScratch, srcLen, outA, outB); st != StatusOK {
		t.Fatal("SerializeModule failed")
	}
	bufPtr, bufLen := readOut(t, mem, outA), readOut(t, mem, outB)

	const strOut, lenOut = 24, 28
	if st := h.DeserializeModule(handle, bufPtr, bufLen, strOut, lenOut); st != StatusOK {
		t.Fatal("DeserializeModule failed")
	}
	strPtr := readOut(t, mem, strOut)
	if got := readCString(t, mem, strPtr); got != moduleJSON {
		t.Fatalf("round-trip = %q, want %q", got, moduleJSON)
	}
	if got := readOut(t, mem, lenOut); got != uint32(len(moduleJSON)) {
		t.Fatalf("length out = %d, want %d", got, len(moduleJSON))
	}

	// The module string is caller-owned.
	h.StringFree(strPtr)
	h.StringFree(strPtr)
	h.StringFree(0)
}

func TestHost_DeserializeModuleBadOutParam(t *testing.T) {
	h, mem := newTestHost(t)
	handle := h.ContextNew()

	srcLen := writeGuest(t, mem, guestScratch, `{"n":1}`)
	if st := h.SerializeModule(handle, guestScratch, srcLen, outA, outB); st != StatusOK {
		t.Fatal("SerializeModule failed")
	}
	bufPtr, bufLen := readOut(t, mem, outA), readOut(t, mem, outB)
	live := h.arena.Live()

	// Out-param offsets past the end of memory fail the final writes;
	// the already-placed module string must not leak.
	const badOut = 0xFFFFFFF0
	if st := h.DeserializeModule(handle, bufPtr, bufLen, badOut, outB); st != StatusError {
		t.Fatal("DeserializeModule accepted an unwritable string out-param")
	}
	if got := h.arena.Live(); got != live {
		t.Fatalf("arena blocks grew from %d to %d after failed write", live, got)
	}
	if st := h.DeserializeModule(handle, bufPtr, bufLen, outA, badOut); st != StatusError {
		t.Fatal("DeserializeModule accepted an unwritable length out-param")
	}
	if got := h.arena.Live(); got != live {
		t.Fatalf("arena blocks grew from %d to %d after failed write", live, got)
	}
}

func TestHost_BufferOwnership(t *testing.T) {
	h, mem := newTestHost(t)
	handle := h.ContextNew()

	srcLen := writeGuest(t, mem, guestScratch, "let a = 1;")
	h.SerializeTokens(handle, guestScratch, srcLen, outA, outB)
	first := readOut(t, mem, outA)
	live := h.arena.Live()

	// A second serialize replaces the context-owned buffer in place;
	// the arena does not accumulate blocks.
	h.SerializeTokens(handle, guestScratch, srcLen, outA, outB)
	if got := h.arena.Live(); got != live {
		t.Fatalf("arena blocks grew from %d to %d across re-serialize", live, got)
	}

	// fax_bytes_free is a no-op on context-owned buffers.
	h.BytesFree(first)
	if got := h.arena.Live(); got != live {
		t.Fatal("BytesFree released a context-owned buffer")
	}

	h.ContextFree(handle)
	if got := h.arena.Live(); got >= live {
		t.Fatalf("ContextFree did not release context blocks: %d live", got)
	}
}

func TestHost_Version(t *testing.T) {
	h, mem := newTestHost(t)
	p1 := h.Version()
	if p1 == 0 {
		t.Fatal("Version returned null")
	}
	if got := readCString(t, mem, p1); got != bridge.Version {
		t.Fatalf("version = %q, want %q", got, bridge.Version)
	}
	if p2 := h.Version(); p2 != p1 {
		t.Fatalf("version pointer not stable: %d then %d", p1, p2)
	}
}

func TestHost_GCSurface(t *testing.T) {
	h, mem := newTestHost(t)

	if h.GCInit() != 1 || h.GCInit() != 1 {
		t.Fatal("GCInit not idempotent")
	}

	addr := h.GCAllocZeroed(32)
	if addr == 0 {
		t.Fatal("GCAllocZeroed returned null")
	}
	view, err := mem.Read(addr, 32)
	if err != nil {
		t.Fatalf("reading gc allocation: %v", err)
	}
	for i, b := range view {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, b)
		}
	}

	if h.GCRegisterRoot(addr) != 1 {
		t.Fatal("GCRegisterRoot failed")
	}
	h.GCCollect()
	if _, ok := h.GC().Bytes(uintptr(addr)); !ok {
		t.Fatal("rooted allocation reclaimed")
	}

	if h.GCUnregisterRoot(addr) != 1 {
		t.Fatal("GCUnregisterRoot failed")
	}
	h.GCCollectYoung()
	if _, ok := h.GC().Bytes(uintptr(addr)); ok {
		t.Fatal("unrooted allocation survived")
	}

	h.GCShutdown()
	if again := h.GCAlloc(16); again == 0 {
		t.Fatal("GCAlloc after GCShutdown returned null")
	}
}
