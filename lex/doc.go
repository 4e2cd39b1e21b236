// Package lex tokenizes Fax source text.
//
// The lexer is a single-pass scanner producing a flat token stream with
// 1-based line/column positions. It is total: malformed input produces
// KindInvalid tokens instead of errors, so callers always get a stream
// ending in KindEOF.
//
//	for _, tok := range lex.Tokenize("let x = 42;") {
//	    fmt.Println(tok.Kind, tok.Text)
//	}
package lex
