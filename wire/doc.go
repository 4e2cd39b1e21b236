// Package wire implements the serialization codecs for the artifacts the
// Fax front end hands across the native boundary: the lexed token stream
// and the module AST.
//
// Both codecs speak the protobuf wire format (encoding/protowire) against
// hand-maintained descriptors; the .proto schema is owned by the compiler
// repo, not this bridge. Unknown fields are skipped on decode, so the
// schema can grow without breaking older bridges.
//
// # Partial rollout
//
// A bridge can be assembled with either codec absent. Callers hold codecs
// as interface values; a nil TokenCodec or ModuleCodec means that path is
// not yet available and the bridge reports it as a first-class
// codec_unavailable error rather than a crash. See the bridge package.
package wire
