// Package faxnative is the native runtime bridge for the Fax compiler
// toolchain.
//
// The Fax front end (lexer/parser) and the back end that consumes its
// artifacts do not share a memory manager or a type system. This library
// sits on that boundary and owns two responsibilities:
//
//   - a serialization bridge that transfers token streams and module ASTs
//     across the boundary as protobuf wire bytes, with explicit ownership
//     of every buffer and string it hands out, and
//   - a GC-aware allocation runtime that compiled Fax code calls for every
//     heap object it creates, with root registration and generational
//     collection triggers.
//
// # Architecture Overview
//
//	faxnative/        Core Memory and Allocator interfaces
//	├── bridge/       Per-session serialization contexts and handle table
//	├── wire/         Token-stream and module codecs (protobuf wire format)
//	├── lex/          Fax lexer feeding the token codec
//	├── gc/           Generational allocation runtime with a root set
//	├── ffi/          wazero host module exposing the C-style function table
//	├── errors/       Structured error types
//	├── config/       Runtime configuration loading
//	└── cmd/faxproto/ CLI driver and interactive token inspector
//
// # Quick Start
//
// Encode a source file into token wire bytes and read it back:
//
//	ctx := bridge.NewContext()
//	defer ctx.Close()
//
//	buf, err := ctx.EncodeTokens("let x = 42;")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := ctx.DecodeTokens(buf.Bytes()); err != nil {
//	    log.Fatal(err)
//	}
//	for i := 0; i < ctx.TokenCount(); i++ {
//	    tok := ctx.TokenAt(i)
//	    fmt.Println(tok.Kind, tok.Text, tok.Line, tok.Column)
//	}
//
// # Ownership Model
//
// Every value crossing the boundary has exactly one owner:
//
//   - Borrowed values (the encode buffer, token text, the last-error
//     string) are owned by their context and are invalidated by the next
//     mutating call on that context.
//   - Owned values (the module JSON returned by DecodeModule, any guest
//     allocation handed out by ffi) transfer to the caller, who releases
//     them exactly once.
//
// # Thread Safety
//
// The gc runtime and the bridge handle table are safe for concurrent use.
// An individual bridge Context is NOT thread-safe; callers serialize their
// own usage or use one context per goroutine.
package faxnative
