package wire

import (
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Luvion1/fax-native/errors"
	"github.com/Luvion1/fax-native/lex"
)

// Wire schema, fax.compiler.TokenStream:
//
//	message TokenStream { repeated Token tokens = 1; }
//	message Token {
//	  uint32 kind = 1;
//	  string text = 2;
//	  uint32 line = 3;
//	  uint32 column = 4;
//	}
const (
	fieldStreamTokens = 1

	fieldTokenKind   = 1
	fieldTokenText   = 2
	fieldTokenLine   = 3
	fieldTokenColumn = 4
)

// TokenCodec serializes token streams to and from wire bytes.
type TokenCodec interface {
	Encode(toks []lex.Token) ([]byte, error)
	Decode(data []byte) ([]lex.Token, error)
}

// Tokens returns the token stream codec.
func Tokens() TokenCodec {
	return tokenCodec{}
}

type tokenCodec struct{}

func (tokenCodec) Encode(toks []lex.Token) ([]byte, error) {
	// Rough size guess: tag+len overhead plus text per token.
	dst := make([]byte, 0, 16*len(toks)+16)
	for _, tok := range toks {
		dst = protowire.AppendTag(dst, fieldStreamTokens, protowire.BytesType)
		dst = protowire.AppendBytes(dst, appendToken(nil, tok))
	}
	return dst, nil
}

func appendToken(dst []byte, tok lex.Token) []byte {
	// Zero-valued fields are omitted, proto3 style.
	if tok.Kind != 0 {
		dst = protowire.AppendTag(dst, fieldTokenKind, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(tok.Kind))
	}
	if tok.Text != "" {
		dst = protowire.AppendTag(dst, fieldTokenText, protowire.BytesType)
		dst = protowire.AppendString(dst, tok.Text)
	}
	if tok.Line != 0 {
		dst = protowire.AppendTag(dst, fieldTokenLine, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(tok.Line))
	}
	if tok.Column != 0 {
		dst = protowire.AppendTag(dst, fieldTokenColumn, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(tok.Column))
	}
	return dst
}

func (tokenCodec) Decode(data []byte) ([]lex.Token, error) {
	var toks []lex.Token
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, errors.DecodeFailed("token stream", protowire.ParseError(n))
		}
		data = data[n:]

		if num == fieldStreamTokens && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, errors.DecodeFailed("token stream", protowire.ParseError(n))
			}
			data = data[n:]

			tok, err := decodeToken(body)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, errors.DecodeFailed("token stream", protowire.ParseError(n))
		}
		data = data[n:]
	}
	return toks, nil
}

func decodeToken(data []byte) (lex.Token, error) {
	var tok lex.Token
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return tok, errors.DecodeFailed("token", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldTokenKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return tok, errors.DecodeFailed("token kind", protowire.ParseError(n))
			}
			if v > 0xFFFFFFFF {
				return tok, errors.Overflow(errors.PhaseDecode, v, "uint32 kind")
			}
			tok.Kind = lex.Kind(v)
			data = data[n:]
		case num == fieldTokenText && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return tok, errors.DecodeFailed("token text", protowire.ParseError(n))
			}
			if !utf8.ValidString(s) {
				return tok, errors.InvalidUTF8(errors.PhaseDecode, []byte(s))
			}
			tok.Text = s
			data = data[n:]
		case num == fieldTokenLine && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return tok, errors.DecodeFailed("token line", protowire.ParseError(n))
			}
			if v > 0xFFFFFFFF {
				return tok, errors.Overflow(errors.PhaseDecode, v, "uint32 line")
			}
			tok.Line = uint32(v)
			data = data[n:]
		case num == fieldTokenColumn && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return tok, errors.DecodeFailed("token column", protowire.ParseError(n))
			}
			if v > 0xFFFFFFFF {
				return tok, errors.Overflow(errors.PhaseDecode, v, "uint32 column")
			}
			tok.Column = uint32(v)
			data = data[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return tok, errors.DecodeFailed("token", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return tok, nil
}
