package gc

import "sync"

var (
	defaultRuntime *Runtime
	defaultOnce    sync.Once
)

// Default returns the process-wide runtime, the one generated Fax code
// links against. It is created on first use with DefaultConfig; hosts
// that need different limits construct their own Runtime instead.
func Default() *Runtime {
	defaultOnce.Do(func() {
		defaultRuntime = NewRuntime(DefaultConfig())
	})
	return defaultRuntime
}

// Init brings up the default runtime. Idempotent.
func Init() bool { return Default().Init() }

// Alloc allocates size bytes from the default runtime.
func Alloc(size uint64) uintptr { return Default().Alloc(size) }

// AllocZeroed allocates size zero-filled bytes from the default runtime.
func AllocZeroed(size uint64) uintptr { return Default().AllocZeroed(size) }

// RegisterRoot marks addr as a root of the default runtime.
func RegisterRoot(addr uintptr) bool { return Default().RegisterRoot(addr) }

// UnregisterRoot removes addr from the default runtime's root set.
func UnregisterRoot(addr uintptr) bool { return Default().UnregisterRoot(addr) }

// Collect runs a full collection on the default runtime.
func Collect() { Default().Collect() }

// CollectYoung runs a minor collection on the default runtime.
func CollectYoung() { Default().CollectYoung() }

// Shutdown resets the default runtime; a later Alloc re-initializes it.
func Shutdown() { Default().Shutdown() }
