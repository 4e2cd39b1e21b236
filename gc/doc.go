// Package gc implements the allocation runtime compiled Fax code calls
// for every heap object: a generational, non-moving collector with an
// explicit root set.
//
// # Lifecycle
//
// The runtime moves between two states, uninitialized and initialized.
// Init is idempotent, and any allocation against an uninitialized
// runtime initializes it lazily, so generated code never has to
// sequence an explicit setup call. Shutdown resets to the uninitialized
// state rather than terminating: a later allocation brings the runtime
// back up, which keeps long-running compiler processes from wedging.
//
// # Generations
//
// Fresh allocations land in the young generation. A rooted object that
// survives enough minor collections is promoted to the old generation
// and is then only examined by full collections. Objects never move;
// promotion is a bookkeeping change, and addresses handed to callers
// stay valid until the object is reclaimed.
//
// # Roots
//
// Collection reachability is exactly the root set: an address is live
// while registered, reclaimable once not. RegisterRoot and
// UnregisterRoot have set semantics, so duplicate registration and
// unregistering a non-root are both tolerated no-ops.
//
// # Storage
//
// By default objects are carved out of the Go heap. A Runtime built
// with NewRuntimeWith places them in a caller-supplied Backing instead,
// which is how the ffi package runs the same collector over wasm linear
// memory.
//
// # Failure
//
// Allocation failure is a null address plus a diagnostic log line, not
// an error return. Collections are synchronous and act as a barrier: no
// allocation or root mutation interleaves with a collection in
// progress.
package gc
