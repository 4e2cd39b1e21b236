package bridge

import (
	"github.com/Luvion1/fax-native/errors"
	"github.com/Luvion1/fax-native/lex"
	"github.com/Luvion1/fax-native/wire"
)

// Version is the bridge identification string. It is static and
// process-lifetime; callers never release it.
const Version = "Fax Protobuf FFI v0.1.0"

// Borrowed is a view of context-owned bytes. It is valid until the next
// encode or decode call on the owning context, and must not be released
// by the caller; the context frees it when the context is closed or the
// buffer is overwritten.
type Borrowed struct {
	data []byte
}

// Bytes returns the borrowed byte view.
func (b Borrowed) Bytes() []byte { return b.data }

// Len returns the length of the borrowed view.
func (b Borrowed) Len() int { return len(b.data) }

// Context is a per-session serialization context. It owns the encode
// buffer, the decoded token stream and the decoded module, and records
// the last error for retrieval by LastError.
//
// A Context is not safe for concurrent use; callers serialize their own
// access or use one context per goroutine.
type Context struct {
	lastErr error
	tokens  wire.TokenCodec
	module  wire.ModuleCodec

	encoded       []byte
	decodedToks   []lex.Token
	decodedModule string
	hasModule     bool
	closed        bool
}

// NewContext creates a context with both codecs wired. It never fails.
func NewContext() *Context {
	return &Context{tokens: wire.Tokens(), module: wire.Module()}
}

// NewContextWith creates a context with an explicit codec set. A nil codec
// marks that path as not yet available: the corresponding encode/decode
// operations fail with a codec_unavailable error. This is the supported
// state during partial codec rollout.
func NewContextWith(tokens wire.TokenCodec, module wire.ModuleCodec) *Context {
	return &Context{tokens: tokens, module: module}
}

// Close releases everything the context owns and invalidates all borrowed
// views derived from it. Closing a nil or already-closed context is a
// no-op.
func (c *Context) Close() {
	if c == nil || c.closed {
		return
	}
	c.closed = true
	c.encoded = nil
	c.decodedToks = nil
	c.decodedModule = ""
	c.hasModule = false
	c.lastErr = nil
}

// EncodeTokens lexes source and serializes the token stream into the
// context-owned buffer, returning a borrowed view of it. The view is
// invalidated by the next encode or decode call and by Close.
func (c *Context) EncodeTokens(source string) (Borrowed, error) {
	if err := c.live(); err != nil {
		return Borrowed{}, err
	}
	if c.tokens == nil {
		return Borrowed{}, c.fail(errors.Unavailable(errors.PhaseEncode, "token serialization"))
	}

	data, err := c.tokens.Encode(lex.Tokenize(source))
	if err != nil {
		return Borrowed{}, c.fail(err)
	}
	c.encoded = data
	c.lastErr = nil
	return Borrowed{data: c.encoded}, nil
}

// DecodeTokens deserializes wire bytes into the context's token stream.
// On success the previous stream is replaced atomically and all token
// views from it become invalid.
func (c *Context) DecodeTokens(data []byte) error {
	if err := c.live(); err != nil {
		return err
	}
	if len(data) == 0 {
		return c.fail(errors.InvalidInput(errors.PhaseDecode, "token buffer is empty"))
	}
	if c.tokens == nil {
		return c.fail(errors.Unavailable(errors.PhaseDecode, "token deserialization"))
	}

	toks, err := c.tokens.Decode(data)
	if err != nil {
		return c.fail(err)
	}
	c.decodedToks = toks
	c.lastErr = nil
	return nil
}

// TokenCount returns the number of tokens in the decoded stream, or 0 when
// nothing has been decoded. An absent stream is a defined empty result,
// not an error.
func (c *Context) TokenCount() int {
	if c == nil || c.closed {
		return 0
	}
	return len(c.decodedToks)
}

// TokenAt returns the token at index. Out-of-range indices return the
// zero-valued sentinel token rather than failing; callers bound-check
// with TokenCount. The token text is a view into the context's decoded
// state and is invalidated by the next decode.
func (c *Context) TokenAt(index int) lex.Token {
	if c == nil || c.closed || index < 0 || index >= len(c.decodedToks) {
		return lex.Token{}
	}
	return c.decodedToks[index]
}

// EncodeModule serializes a module AST (JSON text) into the context-owned
// buffer, returning a borrowed view with the same lifetime rules as
// EncodeTokens.
func (c *Context) EncodeModule(moduleJSON string) (Borrowed, error) {
	if err := c.live(); err != nil {
		return Borrowed{}, err
	}
	if moduleJSON == "" {
		return Borrowed{}, c.fail(errors.InvalidInput(errors.PhaseEncode, "module source is empty"))
	}
	if c.module == nil {
		return Borrowed{}, c.fail(errors.Unavailable(errors.PhaseEncode, "module serialization"))
	}

	data, err := c.module.Encode(moduleJSON)
	if err != nil {
		return Borrowed{}, c.fail(err)
	}
	c.encoded = data
	c.lastErr = nil
	return Borrowed{data: c.encoded}, nil
}

// DecodeModule deserializes wire bytes into the module's JSON text. The
// returned string is owned by the caller; the context also retains the
// decoded module for Module until the next module decode.
func (c *Context) DecodeModule(data []byte) (string, error) {
	if err := c.live(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", c.fail(errors.InvalidInput(errors.PhaseDecode, "module buffer is empty"))
	}
	if c.module == nil {
		return "", c.fail(errors.Unavailable(errors.PhaseDecode, "module deserialization"))
	}

	text, err := c.module.Decode(data)
	if err != nil {
		return "", c.fail(err)
	}
	c.decodedModule = text
	c.hasModule = true
	c.lastErr = nil
	return text, nil
}

// Module returns the most recently decoded module JSON, if any.
func (c *Context) Module() (string, bool) {
	if c == nil || c.closed || !c.hasModule {
		return "", false
	}
	return c.decodedModule, true
}

// LastError returns the message of the most recent failing operation, or
// false if none is recorded. The string is a borrowed view invalidated by
// the next call on the context. Calling LastError on a closed context is
// safe and reports no error.
func (c *Context) LastError() (string, bool) {
	if c == nil || c.closed || c.lastErr == nil {
		return "", false
	}
	return c.lastErr.Error(), true
}

// Err returns the last error as an error value, or nil.
func (c *Context) Err() error {
	if c == nil || c.closed {
		return nil
	}
	return c.lastErr
}

func (c *Context) live() error {
	if c == nil {
		return errors.InvalidInput(errors.PhaseBridge, "context is nil")
	}
	if c.closed {
		return errors.InvalidInput(errors.PhaseBridge, "context is closed")
	}
	return nil
}

func (c *Context) fail(err error) error {
	c.lastErr = err
	return err
}
