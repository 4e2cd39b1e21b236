package lex

// Kind is the integer tag identifying a token class. Values are stable:
// they are what crosses the wire in the serialized token stream.
//
// KindEOF is zero so the zero Token doubles as the out-of-range sentinel
// the bridge returns for bad indices.
type Kind uint32

const (
	KindEOF Kind = iota

	// Keywords
	KindLet
	KindFn
	KindIf
	KindElse
	KindWhile
	KindFor
	KindReturn
	KindStruct
	KindEnum
	KindImpl
	KindTrait
	KindPub
	KindMut
	KindMatch
	KindTrue
	KindFalse
	KindAsync
	KindAwait
	KindMacroRules

	// Identifiers and literals
	KindIdent
	KindInt
	KindFloat
	KindString

	// Arithmetic operators
	KindPlus
	KindMinus
	KindStar
	KindSlash
	KindPercent

	// Comparison operators
	KindEqEq
	KindNotEq
	KindLt
	KindGt
	KindLtEq
	KindGtEq

	// Logical operators
	KindAndAnd
	KindOrOr

	// Assignment operators
	KindAssign
	KindPlusEq
	KindMinusEq
	KindStarEq
	KindSlashEq
	KindPercentEq

	// Punctuation
	KindLParen
	KindRParen
	KindLBrace
	KindRBrace
	KindLBracket
	KindRBracket
	KindComma
	KindSemicolon
	KindColon
	KindColonColon
	KindArrow
	KindFatArrow
	KindDot
	KindDotDot
	KindDotDotDot
	KindAmp
	KindPipe
	KindAt
	KindDollar
	KindBang

	KindInvalid
)

var kindNames = map[Kind]string{
	KindEOF:        "eof",
	KindLet:        "let",
	KindFn:         "fn",
	KindIf:         "if",
	KindElse:       "else",
	KindWhile:      "while",
	KindFor:        "for",
	KindReturn:     "return",
	KindStruct:     "struct",
	KindEnum:       "enum",
	KindImpl:       "impl",
	KindTrait:      "trait",
	KindPub:        "pub",
	KindMut:        "mut",
	KindMatch:      "match",
	KindTrue:       "true",
	KindFalse:      "false",
	KindAsync:      "async",
	KindAwait:      "await",
	KindMacroRules: "macro_rules",
	KindIdent:      "ident",
	KindInt:        "int",
	KindFloat:      "float",
	KindString:     "string",
	KindPlus:       "+",
	KindMinus:      "-",
	KindStar:       "*",
	KindSlash:      "/",
	KindPercent:    "%",
	KindEqEq:       "==",
	KindNotEq:      "!=",
	KindLt:         "<",
	KindGt:         ">",
	KindLtEq:       "<=",
	KindGtEq:       ">=",
	KindAndAnd:     "&&",
	KindOrOr:       "||",
	KindAssign:     "=",
	KindPlusEq:     "+=",
	KindMinusEq:    "-=",
	KindStarEq:     "*=",
	KindSlashEq:    "/=",
	KindPercentEq:  "%=",
	KindLParen:     "(",
	KindRParen:     ")",
	KindLBrace:     "{",
	KindRBrace:     "}",
	KindLBracket:   "[",
	KindRBracket:   "]",
	KindComma:      ",",
	KindSemicolon:  ";",
	KindColon:      ":",
	KindColonColon: "::",
	KindArrow:      "->",
	KindFatArrow:   "=>",
	KindDot:        ".",
	KindDotDot:     "..",
	KindDotDotDot:  "...",
	KindAmp:        "&",
	KindPipe:       "|",
	KindAt:         "@",
	KindDollar:     "$",
	KindBang:       "!",
	KindInvalid:    "invalid",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

var keywords = map[string]Kind{
	"let":         KindLet,
	"fn":          KindFn,
	"if":          KindIf,
	"else":        KindElse,
	"while":       KindWhile,
	"for":         KindFor,
	"return":      KindReturn,
	"struct":      KindStruct,
	"enum":        KindEnum,
	"impl":        KindImpl,
	"trait":       KindTrait,
	"pub":         KindPub,
	"mut":         KindMut,
	"match":       KindMatch,
	"true":        KindTrue,
	"false":       KindFalse,
	"async":       KindAsync,
	"await":       KindAwait,
	"macro_rules": KindMacroRules,
}
