package gc

import (
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/Luvion1/fax-native/errors"
)

// Generation identifies which part of the heap an object lives in.
type Generation uint8

const (
	// GenYoung holds fresh allocations; most die before their first
	// collection.
	GenYoung Generation = iota
	// GenOld holds rooted objects that survived TenureThreshold minor
	// collections.
	GenOld
)

// Config tunes the allocation runtime.
type Config struct {
	// HeapLimit is the total heap budget in bytes. Allocations that
	// cannot fit even after a full collection fail with a null address.
	HeapLimit uint64
	// YoungBudget is how many young bytes may accumulate before an
	// automatic minor collection runs.
	YoungBudget uint64
	// TenureThreshold is how many minor collections a rooted object
	// survives before promotion to the old generation.
	TenureThreshold uint8
}

// DefaultConfig mirrors the collector defaults the Fax toolchain ships.
func DefaultConfig() Config {
	return Config{
		HeapLimit:       256 << 20,
		YoungBudget:     8 << 20,
		TenureThreshold: 3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HeapLimit == 0 {
		c.HeapLimit = d.HeapLimit
	}
	if c.YoungBudget == 0 {
		c.YoungBudget = d.YoungBudget
	}
	if c.TenureThreshold == 0 {
		c.TenureThreshold = d.TenureThreshold
	}
	return c
}

// Backing provides raw storage for the runtime's objects. The native
// backing carves objects out of the Go heap; embedders supply their own
// to place the Fax heap elsewhere, such as wasm linear memory.
type Backing interface {
	// Alloc reserves size bytes and returns their address.
	Alloc(size uint64) (uint64, error)
	// Free releases a reservation made by Alloc.
	Free(addr, size uint64)
	// Bytes returns a writable view of a reservation, or false when the
	// backing is not addressable from Go.
	Bytes(addr, size uint64) ([]byte, bool)
}

type object struct {
	// data pins native allocations for their lifetime; addr points at
	// data[0]. Nil when an external backing owns the storage.
	data      []byte
	size      uint64
	gen       Generation
	survivals uint8
}

// Stats is a snapshot of heap bookkeeping.
type Stats struct {
	YoungBytes       uint64
	OldBytes         uint64
	Objects          int
	Roots            int
	Collections      uint64
	MinorCollections uint64
	Promotions       uint64
}

// Runtime is the allocation runtime compiled Fax code calls for every
// heap object. All operations are serialized behind one lock: a
// collection is a barrier, and no allocation can observe the root set or
// heap in a half-collected state.
//
// Lifecycle: uninitialized -> initialized -> (Shutdown) -> uninitialized.
// Shutdown resets rather than terminates; any later allocation lazily
// re-initializes, so the runtime never permanently wedges a long-running
// compiler process.
type Runtime struct {
	mu          sync.Mutex
	cfg         Config
	backing     Backing
	initialized bool

	objects map[uintptr]*object
	roots   map[uintptr]struct{}

	youngBytes uint64
	oldBytes   uint64

	collections      uint64
	minorCollections uint64
	promotions       uint64
}

// NewRuntime creates an uninitialized runtime backed by the Go heap;
// the first Init or Alloc brings it up.
func NewRuntime(cfg Config) *Runtime {
	return &Runtime{cfg: cfg.withDefaults()}
}

// NewRuntimeWith creates a runtime whose objects live in the given
// backing instead of the Go heap.
func NewRuntimeWith(cfg Config, backing Backing) *Runtime {
	return &Runtime{cfg: cfg.withDefaults(), backing: backing}
}

// Init performs setup. It is idempotent: every call after the first is a
// no-op returning true.
func (r *Runtime) Init() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initLocked()
	return true
}

func (r *Runtime) initLocked() {
	if r.initialized {
		return
	}
	r.objects = make(map[uintptr]*object, 64)
	r.roots = make(map[uintptr]struct{}, 16)
	r.youngBytes = 0
	r.oldBytes = 0
	r.initialized = true
	Logger().Debug("gc runtime initialized",
		zap.Uint64("heap_limit", r.cfg.HeapLimit),
		zap.Uint64("young_budget", r.cfg.YoungBudget))
}

// Alloc returns the address of at least size bytes, or 0 on exhaustion.
// Exhaustion is reported through a diagnostic log, not an error return;
// callers treat 0 as fatal for that allocation. A not-yet-initialized
// (or shut-down) runtime initializes lazily.
//
// Alloc(0) is defined: it returns a valid minimal allocation.
func (r *Runtime) Alloc(size uint64) uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocLocked(size)
}

// AllocZeroed is Alloc with zero-filled contents.
func (r *Runtime) AllocZeroed(size uint64) uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()

	addr := r.allocLocked(size)
	if addr == 0 {
		return 0
	}
	// Fresh Go allocations are already zeroed; external backings may
	// recycle storage.
	if obj := r.objects[addr]; obj.data == nil {
		if view, ok := r.backing.Bytes(uint64(addr), obj.size); ok {
			for i := range view {
				view[i] = 0
			}
		}
	}
	return addr
}

func (r *Runtime) allocLocked(size uint64) uintptr {
	r.initLocked()

	alloc := size
	if alloc == 0 {
		alloc = 1
	}

	if r.youngBytes+alloc > r.cfg.YoungBudget {
		r.collectLocked(true)
	}
	if r.youngBytes+r.oldBytes+alloc > r.cfg.HeapLimit {
		r.collectLocked(false)
	}
	if r.youngBytes+r.oldBytes+alloc > r.cfg.HeapLimit {
		err := errors.Exhausted(alloc, r.cfg.HeapLimit)
		Logger().Error("gc allocation failed", zap.Error(err))
		return 0
	}

	obj := &object{size: alloc, gen: GenYoung}
	var addr uintptr
	if r.backing != nil {
		a, err := r.backing.Alloc(alloc)
		if err != nil {
			Logger().Error("gc allocation failed",
				zap.Error(errors.Wrap(errors.PhaseGC, errors.KindExhausted, err, "backing allocation failed")))
			return 0
		}
		addr = uintptr(a)
	} else {
		obj.data = make([]byte, alloc)
		addr = uintptr(unsafe.Pointer(&obj.data[0]))
	}
	r.objects[addr] = obj
	r.youngBytes += alloc
	return addr
}

// Bytes returns a view of the allocation at addr, for hosts that reach
// into the heap from Go. The view is valid until the object is reclaimed.
func (r *Runtime) Bytes(addr uintptr) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj, ok := r.objects[addr]
	if !ok {
		return nil, false
	}
	if obj.data == nil {
		return r.backing.Bytes(uint64(addr), obj.size)
	}
	return obj.data, true
}

// RegisterRoot marks addr as reachable regardless of heap structure.
// Duplicate registration is tolerated (set-add semantics). Returns false
// when the runtime is not initialized.
func (r *Runtime) RegisterRoot(addr uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		Logger().Warn("gc: root registration refused",
			zap.Error(errors.NotInitialized(errors.PhaseGC, "runtime")))
		return false
	}
	r.roots[addr] = struct{}{}
	return true
}

// UnregisterRoot removes addr from the root set. Unregistering a non-root
// is tolerated (set-remove semantics). Returns false when the runtime is
// not initialized.
func (r *Runtime) UnregisterRoot(addr uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		Logger().Warn("gc: root removal refused",
			zap.Error(errors.NotInitialized(errors.PhaseGC, "runtime")))
		return false
	}
	delete(r.roots, addr)
	return true
}

// Collect performs a full collection pass: every object not covered by
// the root set is reclaimed, in both generations. Blocking and
// synchronous.
func (r *Runtime) Collect() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return
	}
	r.collectLocked(false)
}

// CollectYoung restricts the pass to the young generation, for
// latency-sensitive allocation-heavy phases. Rooted survivors age and are
// promoted to the old generation once they pass the tenure threshold.
func (r *Runtime) CollectYoung() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return
	}
	r.collectLocked(true)
}

func (r *Runtime) collectLocked(youngOnly bool) {
	var reclaimed, reclaimedBytes uint64

	for addr, obj := range r.objects {
		if youngOnly && obj.gen != GenYoung {
			continue
		}

		if _, rooted := r.roots[addr]; rooted {
			if obj.gen == GenYoung {
				obj.survivals++
				if obj.survivals >= r.cfg.TenureThreshold {
					obj.gen = GenOld
					r.youngBytes -= obj.size
					r.oldBytes += obj.size
					r.promotions++
				}
			}
			continue
		}

		if obj.gen == GenYoung {
			r.youngBytes -= obj.size
		} else {
			r.oldBytes -= obj.size
		}
		if obj.data == nil && r.backing != nil {
			r.backing.Free(uint64(addr), obj.size)
		}
		delete(r.objects, addr)
		reclaimed++
		reclaimedBytes += obj.size
	}

	if youngOnly {
		r.minorCollections++
	} else {
		r.collections++
	}
	Logger().Debug("gc collection",
		zap.Bool("young_only", youngOnly),
		zap.Uint64("reclaimed_objects", reclaimed),
		zap.Uint64("reclaimed_bytes", reclaimedBytes),
		zap.Uint64("young_bytes", r.youngBytes),
		zap.Uint64("old_bytes", r.oldBytes))
}

// Shutdown tears the runtime down to the uninitialized state. A later
// Alloc re-initializes; the runtime is always eventually usable.
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return
	}
	if r.backing != nil {
		for addr, obj := range r.objects {
			r.backing.Free(uint64(addr), obj.size)
		}
	}
	r.objects = nil
	r.roots = nil
	r.youngBytes = 0
	r.oldBytes = 0
	r.initialized = false
	Logger().Debug("gc runtime shut down")
}

// Initialized reports whether the runtime is currently up.
func (r *Runtime) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// Stats returns a snapshot of heap bookkeeping.
func (r *Runtime) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		YoungBytes:       r.youngBytes,
		OldBytes:         r.oldBytes,
		Objects:          len(r.objects),
		Roots:            len(r.roots),
		Collections:      r.collections,
		MinorCollections: r.minorCollections,
		Promotions:       r.promotions,
	}
}
