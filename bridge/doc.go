// Package bridge implements the per-session serialization contexts the
// Fax toolchain uses to move token streams and module ASTs across the
// native boundary.
//
// # Ownership
//
// The boundary has no shared memory manager, so every value a context
// hands out has exactly one owner:
//
//   - Borrowed: the encode buffer (Borrowed), token text (TokenAt) and
//     the last-error string are owned by the context and valid only until
//     the next encode/decode call on it. The type system enforces this
//     for buffers: a Borrowed cannot be released, only read.
//   - Owned: the module JSON returned by DecodeModule transfers to the
//     caller. At the C-style boundary (package ffi) it becomes a guest
//     allocation released with fax_string_free; in Go it is a plain
//     string.
//
// # Sessions
//
//	ctx := bridge.NewContext()
//	defer ctx.Close()
//
//	buf, err := ctx.EncodeTokens(source)   // borrowed bytes
//	err = ctx.DecodeTokens(buf.Bytes())    // replaces decoded state
//	n := ctx.TokenCount()                  // 0 when nothing decoded
//	tok := ctx.TokenAt(2)                  // zero sentinel out of range
//
// # Handles
//
// Callers that cannot hold Go pointers (compiled Fax code on the far side
// of the ffi boundary) reference contexts through a Table of dense uint32
// handles. Removing a handle closes its context.
package bridge
