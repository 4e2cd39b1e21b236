package gc

import "testing"

func newTestRuntime() *Runtime {
	return NewRuntime(Config{
		HeapLimit:       1 << 20,
		YoungBudget:     64 << 10,
		TenureThreshold: 2,
	})
}

func TestInit_Idempotent(t *testing.T) {
	r := newTestRuntime()
	for i := 0; i < 3; i++ {
		if !r.Init() {
			t.Fatalf("Init() call %d returned false", i+1)
		}
	}
	if !r.Initialized() {
		t.Fatal("runtime not initialized after Init")
	}
}

func TestAlloc_LazyInit(t *testing.T) {
	r := newTestRuntime()
	if r.Initialized() {
		t.Fatal("fresh runtime reported initialized")
	}
	addr := r.Alloc(16)
	if addr == 0 {
		t.Fatal("Alloc returned null address")
	}
	if !r.Initialized() {
		t.Fatal("Alloc did not initialize the runtime")
	}
}

func TestAlloc_ZeroSize(t *testing.T) {
	r := newTestRuntime()
	addr := r.Alloc(0)
	if addr == 0 {
		t.Fatal("Alloc(0) returned null address")
	}
	if _, ok := r.Bytes(addr); !ok {
		t.Fatal("Alloc(0) result not tracked as an object")
	}
}

func TestAllocZeroed_ZeroFilled(t *testing.T) {
	r := newTestRuntime()
	addr := r.AllocZeroed(64)
	if addr == 0 {
		t.Fatal("AllocZeroed returned null address")
	}
	data, ok := r.Bytes(addr)
	if !ok {
		t.Fatal("allocation not tracked")
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, b)
		}
	}
}

func TestAlloc_Exhaustion(t *testing.T) {
	r := NewRuntime(Config{HeapLimit: 1 << 10, YoungBudget: 1 << 10, TenureThreshold: 2})
	addr := r.Alloc(1 << 9)
	if addr == 0 {
		t.Fatal("first allocation failed")
	}
	if !r.RegisterRoot(addr) {
		t.Fatal("RegisterRoot failed")
	}
	// Rooted object survives the emergency collection, so this cannot fit.
	if got := r.Alloc(1 << 10); got != 0 {
		t.Fatalf("over-limit Alloc = %#x, want 0", got)
	}
	// The runtime stays usable after a failed allocation.
	if got := r.Alloc(16); got == 0 {
		t.Fatal("small allocation failed after exhaustion")
	}
}

func TestRegisterRoot_Idempotent(t *testing.T) {
	r := newTestRuntime()
	addr := r.Alloc(8)

	if !r.RegisterRoot(addr) || !r.RegisterRoot(addr) {
		t.Fatal("duplicate RegisterRoot not tolerated")
	}
	if got := r.Stats().Roots; got != 1 {
		t.Fatalf("root count = %d, want 1", got)
	}

	if !r.UnregisterRoot(addr) {
		t.Fatal("UnregisterRoot failed")
	}
	if got := r.Stats().Roots; got != 0 {
		t.Fatalf("root count after unregister = %d, want 0", got)
	}
	// Removing an absent root is a tolerated no-op.
	if !r.UnregisterRoot(addr) {
		t.Fatal("UnregisterRoot of non-root not tolerated")
	}
}

func TestRoots_RequireInit(t *testing.T) {
	r := newTestRuntime()
	if r.RegisterRoot(0x1000) {
		t.Fatal("RegisterRoot succeeded on uninitialized runtime")
	}
	if r.UnregisterRoot(0x1000) {
		t.Fatal("UnregisterRoot succeeded on uninitialized runtime")
	}
}

func TestCollect_ReclaimsUnrooted(t *testing.T) {
	r := newTestRuntime()
	kept := r.Alloc(32)
	dropped := r.Alloc(32)
	r.RegisterRoot(kept)

	r.Collect()

	if _, ok := r.Bytes(kept); !ok {
		t.Fatal("rooted object was reclaimed")
	}
	if _, ok := r.Bytes(dropped); ok {
		t.Fatal("unrooted object survived full collection")
	}
	if got := r.Stats().Objects; got != 1 {
		t.Fatalf("object count = %d, want 1", got)
	}
}

func TestCollectYoung_SparesOldGeneration(t *testing.T) {
	r := newTestRuntime()
	tenured := r.Alloc(32)
	r.RegisterRoot(tenured)
	// Survive past the tenure threshold to reach the old generation.
	r.CollectYoung()
	r.CollectYoung()
	r.UnregisterRoot(tenured)

	fresh := r.Alloc(32)

	r.CollectYoung()

	if _, ok := r.Bytes(tenured); !ok {
		t.Fatal("old-generation object reclaimed by minor collection")
	}
	if _, ok := r.Bytes(fresh); ok {
		t.Fatal("unrooted young object survived minor collection")
	}

	r.Collect()
	if _, ok := r.Bytes(tenured); ok {
		t.Fatal("unrooted old object survived full collection")
	}
}

func TestTenure_Promotion(t *testing.T) {
	r := newTestRuntime()
	addr := r.Alloc(64)
	r.RegisterRoot(addr)

	r.CollectYoung()
	if got := r.Stats().OldBytes; got != 0 {
		t.Fatalf("promoted after one survival: old bytes = %d", got)
	}
	r.CollectYoung()

	st := r.Stats()
	if st.Promotions != 1 {
		t.Fatalf("promotions = %d, want 1", st.Promotions)
	}
	if st.YoungBytes != 0 || st.OldBytes != 64 {
		t.Fatalf("young=%d old=%d after promotion, want 0/64", st.YoungBytes, st.OldBytes)
	}
}

func TestShutdown_ThenAllocReinitializes(t *testing.T) {
	r := newTestRuntime()
	r.Init()
	addr := r.Alloc(16)
	r.RegisterRoot(addr)

	r.Shutdown()
	if r.Initialized() {
		t.Fatal("runtime still initialized after Shutdown")
	}
	// Double shutdown is a no-op.
	r.Shutdown()

	again := r.Alloc(16)
	if again == 0 {
		t.Fatal("Alloc after Shutdown returned null address")
	}
	st := r.Stats()
	if st.Objects != 1 || st.Roots != 0 {
		t.Fatalf("post-reinit state objects=%d roots=%d, want 1/0", st.Objects, st.Roots)
	}
}

func TestCollect_Uninitialized(t *testing.T) {
	r := newTestRuntime()
	// Must not panic or initialize.
	r.Collect()
	r.CollectYoung()
	if r.Initialized() {
		t.Fatal("collection initialized the runtime")
	}
}

func TestYoungBudget_TriggersMinorCollection(t *testing.T) {
	r := NewRuntime(Config{HeapLimit: 1 << 20, YoungBudget: 256, TenureThreshold: 2})
	for i := 0; i < 8; i++ {
		if r.Alloc(128) == 0 {
			t.Fatalf("allocation %d failed", i)
		}
	}
	if got := r.Stats().MinorCollections; got == 0 {
		t.Fatal("no minor collection despite exceeding young budget")
	}
}

// stubBacking hands out addresses from a counter and records frees.
type stubBacking struct {
	next  uint64
	store map[uint64][]byte
	freed []uint64
}

func newStubBacking() *stubBacking {
	return &stubBacking{next: 0x1000, store: make(map[uint64][]byte)}
}

func (b *stubBacking) Alloc(size uint64) (uint64, error) {
	addr := b.next
	b.next += size
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xAA
	}
	b.store[addr] = buf
	return addr, nil
}

func (b *stubBacking) Free(addr, size uint64) {
	delete(b.store, addr)
	b.freed = append(b.freed, addr)
}

func (b *stubBacking) Bytes(addr, size uint64) ([]byte, bool) {
	buf, ok := b.store[addr]
	return buf, ok
}

func TestExternalBacking(t *testing.T) {
	backing := newStubBacking()
	r := NewRuntimeWith(Config{HeapLimit: 1 << 20, YoungBudget: 1 << 20, TenureThreshold: 2}, backing)

	addr := r.AllocZeroed(16)
	if addr == 0 {
		t.Fatal("AllocZeroed failed")
	}
	view, ok := r.Bytes(addr)
	if !ok {
		t.Fatal("Bytes failed for backed allocation")
	}
	for i, b := range view {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0 (backing recycles dirty storage)", i, b)
		}
	}

	r.Collect()
	if len(backing.freed) != 1 || backing.freed[0] != uint64(addr) {
		t.Fatalf("backing frees = %v, want [%#x]", backing.freed, addr)
	}

	addr2 := r.Alloc(8)
	r.Shutdown()
	if _, ok := backing.store[uint64(addr2)]; ok {
		t.Fatal("Shutdown did not release backed allocation")
	}
}

func TestDefault_Singleton(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default returned distinct runtimes")
	}
}
