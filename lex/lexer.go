package lex

import "strings"

// Token is a lexical unit with its source position. Line and Column are
// 1-based; the zero Token (KindEOF, empty text, 0/0) is the sentinel used
// for out-of-range lookups.
type Token struct {
	Text   string
	Kind   Kind
	Line   uint32
	Column uint32
}

// Lexer scans Fax source text into tokens in a single pass.
// It never fails: unrecognized input becomes KindInvalid tokens so the
// downstream parser can recover.
type Lexer struct {
	src  string
	pos  int
	line uint32
	col  uint32
}

// New creates a lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Tokenize scans all of src, including the trailing EOF token.
func Tokenize(src string) []Token {
	lx := New(src)
	var toks []Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Kind == KindEOF {
			return toks
		}
	}
}

// Next returns the next token, or an EOF token at end of input.
func (l *Lexer) Next() Token {
	l.skipTrivia()

	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return Token{Kind: KindEOF, Line: line, Column: col}
	}

	c := l.src[l.pos]
	switch {
	case isIdentStart(c):
		return l.lexIdent(line, col)
	case isDigit(c):
		return l.lexNumber(line, col)
	case c == '"':
		return l.lexString(line, col)
	}
	return l.lexOperator(line, col)
}

func (l *Lexer) skipTrivia() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.advance(1)
		case c == '\n':
			l.pos++
			l.line++
			l.col = 1
		case c == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance(1)
			}
		case c == '/' && l.peekAt(1) == '*':
			l.skipBlockComment()
		default:
			return
		}
	}
}

// skipBlockComment consumes a /* */ comment. Nesting is allowed.
// An unterminated comment consumes the rest of the input.
func (l *Lexer) skipBlockComment() {
	l.advance(2)
	depth := 1
	for l.pos < len(l.src) && depth > 0 {
		switch {
		case l.src[l.pos] == '/' && l.peekAt(1) == '*':
			depth++
			l.advance(2)
		case l.src[l.pos] == '*' && l.peekAt(1) == '/':
			depth--
			l.advance(2)
		case l.src[l.pos] == '\n':
			l.pos++
			l.line++
			l.col = 1
		default:
			l.advance(1)
		}
	}
}

func (l *Lexer) lexIdent(line, col uint32) Token {
	start := l.pos
	for l.pos < len(l.src) && isIdentContinue(l.src[l.pos]) {
		l.advance(1)
	}
	text := l.src[start:l.pos]
	if kind, ok := keywords[text]; ok {
		return Token{Kind: kind, Text: text, Line: line, Column: col}
	}
	return Token{Kind: KindIdent, Text: text, Line: line, Column: col}
}

func (l *Lexer) lexNumber(line, col uint32) Token {
	start := l.pos

	// Radix prefixes: 0x, 0b, 0o
	if l.src[l.pos] == '0' && l.pos+1 < len(l.src) {
		switch l.src[l.pos+1] {
		case 'x', 'X':
			l.advance(2)
			for l.pos < len(l.src) && (isHexDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
				l.advance(1)
			}
			return Token{Kind: KindInt, Text: l.src[start:l.pos], Line: line, Column: col}
		case 'b', 'B':
			l.advance(2)
			for l.pos < len(l.src) && (l.src[l.pos] == '0' || l.src[l.pos] == '1' || l.src[l.pos] == '_') {
				l.advance(1)
			}
			return Token{Kind: KindInt, Text: l.src[start:l.pos], Line: line, Column: col}
		case 'o', 'O':
			l.advance(2)
			for l.pos < len(l.src) && (l.src[l.pos] >= '0' && l.src[l.pos] <= '7' || l.src[l.pos] == '_') {
				l.advance(1)
			}
			return Token{Kind: KindInt, Text: l.src[start:l.pos], Line: line, Column: col}
		}
	}

	kind := KindInt
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.advance(1)
	}

	// Fractional part only when a digit follows the dot, so "1..2" stays
	// int, range, int.
	if l.pos < len(l.src) && l.src[l.pos] == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
		kind = KindFloat
		l.advance(1)
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.advance(1)
		}
	}

	// Exponent: 1e10, 2.5e-3
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save := l.pos
		saveCol := l.col
		l.advance(1)
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.advance(1)
		}
		if l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			kind = KindFloat
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.advance(1)
			}
		} else {
			l.pos = save
			l.col = saveCol
		}
	}

	return Token{Kind: kind, Text: l.src[start:l.pos], Line: line, Column: col}
}

func (l *Lexer) lexString(line, col uint32) Token {
	start := l.pos
	l.advance(1)
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '"':
			l.advance(1)
			return Token{Kind: KindString, Text: b.String(), Line: line, Column: col}
		case '\n':
			// Unterminated at end of line: recover with an invalid token.
			return Token{Kind: KindInvalid, Text: l.src[start:l.pos], Line: line, Column: col}
		case '\\':
			if l.pos+1 >= len(l.src) {
				l.advance(1)
				return Token{Kind: KindInvalid, Text: l.src[start:l.pos], Line: line, Column: col}
			}
			esc := l.src[l.pos+1]
			l.advance(2)
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			case '\\', '"', '\'':
				b.WriteByte(esc)
			default:
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
		default:
			b.WriteByte(c)
			l.advance(1)
		}
	}
	return Token{Kind: KindInvalid, Text: l.src[start:l.pos], Line: line, Column: col}
}

func (l *Lexer) lexOperator(line, col uint32) Token {
	three := l.peekN(3)
	if three == "..." {
		l.advance(3)
		return Token{Kind: KindDotDotDot, Text: three, Line: line, Column: col}
	}

	two := l.peekN(2)
	if kind, ok := twoCharOps[two]; ok {
		l.advance(2)
		return Token{Kind: kind, Text: two, Line: line, Column: col}
	}

	c := l.src[l.pos]
	if kind, ok := oneCharOps[c]; ok {
		l.advance(1)
		return Token{Kind: kind, Text: string(c), Line: line, Column: col}
	}

	l.advance(1)
	return Token{Kind: KindInvalid, Text: string(c), Line: line, Column: col}
}

var twoCharOps = map[string]Kind{
	"==": KindEqEq,
	"!=": KindNotEq,
	"<=": KindLtEq,
	">=": KindGtEq,
	"&&": KindAndAnd,
	"||": KindOrOr,
	"+=": KindPlusEq,
	"-=": KindMinusEq,
	"*=": KindStarEq,
	"/=": KindSlashEq,
	"%=": KindPercentEq,
	"::": KindColonColon,
	"->": KindArrow,
	"=>": KindFatArrow,
	"..": KindDotDot,
}

var oneCharOps = map[byte]Kind{
	'+': KindPlus,
	'-': KindMinus,
	'*': KindStar,
	'/': KindSlash,
	'%': KindPercent,
	'<': KindLt,
	'>': KindGt,
	'=': KindAssign,
	'(': KindLParen,
	')': KindRParen,
	'{': KindLBrace,
	'}': KindRBrace,
	'[': KindLBracket,
	']': KindRBracket,
	',': KindComma,
	';': KindSemicolon,
	':': KindColon,
	'.': KindDot,
	'&': KindAmp,
	'|': KindPipe,
	'@': KindAt,
	'$': KindDollar,
	'!': KindBang,
}

func (l *Lexer) advance(n int) {
	l.pos += n
	l.col += uint32(n)
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n < len(l.src) {
		return l.src[l.pos+n]
	}
	return 0
}

func (l *Lexer) peekN(n int) string {
	if l.pos+n <= len(l.src) {
		return l.src[l.pos : l.pos+n]
	}
	return ""
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentContinue(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
