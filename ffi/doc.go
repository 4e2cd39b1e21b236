// Package ffi exposes the serialization bridge and the allocation
// runtime to compiled Fax code as a flat, C-shaped call surface: the
// "env" host module a Fax wasm guest imports.
//
// # Surface
//
// The exports mirror the bridge's session model. fax_proto_context_new
// and fax_proto_context_free manage handles; fax_serialize_tokens,
// fax_deserialize_tokens, fax_get_token_count, fax_get_token_info,
// fax_serialize_module, and fax_deserialize_module operate on them;
// fax_proto_get_error fetches the last failure's text. The fax_gc_*
// exports drive the allocation runtime.
//
// The compiler also lowers Fax intrinsics to this module: fax_string_*
// and fax_array_* operate on gc-heap strings (NUL-terminated runs) and
// arrays (8-byte slots, u64 length at ptr-8), with conversion, print,
// assert, and f64 math exports alongside. See helpers.go.
//
// # Memory and Ownership
//
// All pointers are u32 offsets into the guest's linear memory. The host
// claims whole pages past the guest's data (see Arena) for everything
// it hands back, so host blocks never alias guest allocations.
//
// Serialized buffers, error strings, and token text are context-owned:
// valid until the next call that produces the same kind of block, freed
// with the context. fax_bytes_free is a no-op kept for surface
// compatibility. Module JSON from fax_deserialize_module is the one
// caller-owned result and must be released with fax_string_free.
//
// # Testing Without a Guest
//
// Host methods take plain u32 arguments, so tests drive them directly
// over NewSliceMemory without instantiating a wasm runtime.
package ffi
