package lex

import "testing"

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenize_Basic(t *testing.T) {
	toks := Tokenize("let x = 42;")
	want := []Kind{KindLet, KindIdent, KindAssign, KindInt, KindSemicolon, KindEOF}

	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
	if toks[1].Text != "x" {
		t.Errorf("ident text = %q, want %q", toks[1].Text, "x")
	}
	if toks[3].Text != "42" {
		t.Errorf("int text = %q, want %q", toks[3].Text, "42")
	}
}

func TestTokenize_Positions(t *testing.T) {
	toks := Tokenize("let x\nfn y")

	checks := []struct {
		idx  int
		line uint32
		col  uint32
	}{
		{0, 1, 1}, // let
		{1, 1, 5}, // x
		{2, 2, 1}, // fn
		{3, 2, 4}, // y
	}
	for _, c := range checks {
		if toks[c.idx].Line != c.line || toks[c.idx].Column != c.col {
			t.Errorf("token %d at %d:%d, want %d:%d",
				c.idx, toks[c.idx].Line, toks[c.idx].Column, c.line, c.col)
		}
	}
}

func TestTokenize_Keywords(t *testing.T) {
	toks := Tokenize("fn struct enum impl trait pub mut match async await macro_rules")
	want := []Kind{
		KindFn, KindStruct, KindEnum, KindImpl, KindTrait, KindPub,
		KindMut, KindMatch, KindAsync, KindAwait, KindMacroRules, KindEOF,
	}
	got := kinds(toks)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenize_Operators(t *testing.T) {
	tests := []struct {
		src  string
		want Kind
	}{
		{"==", KindEqEq},
		{"!=", KindNotEq},
		{"<=", KindLtEq},
		{">=", KindGtEq},
		{"&&", KindAndAnd},
		{"||", KindOrOr},
		{"+=", KindPlusEq},
		{"-=", KindMinusEq},
		{"*=", KindStarEq},
		{"/=", KindSlashEq},
		{"%=", KindPercentEq},
		{"::", KindColonColon},
		{"->", KindArrow},
		{"=>", KindFatArrow},
		{"..", KindDotDot},
		{"...", KindDotDotDot},
		{"!", KindBang},
		{"$", KindDollar},
		{"@", KindAt},
	}
	for _, tt := range tests {
		toks := Tokenize(tt.src)
		if toks[0].Kind != tt.want {
			t.Errorf("Tokenize(%q)[0] = %v, want %v", tt.src, toks[0].Kind, tt.want)
		}
		if toks[0].Text != tt.src {
			t.Errorf("Tokenize(%q)[0].Text = %q", tt.src, toks[0].Text)
		}
	}
}

func TestTokenize_Numbers(t *testing.T) {
	tests := []struct {
		src  string
		kind Kind
	}{
		{"42", KindInt},
		{"0xFF", KindInt},
		{"0b1010", KindInt},
		{"0o777", KindInt},
		{"1_000_000", KindInt},
		{"3.14", KindFloat},
		{"1e10", KindFloat},
		{"2.5e-3", KindFloat},
	}
	for _, tt := range tests {
		toks := Tokenize(tt.src)
		if toks[0].Kind != tt.kind {
			t.Errorf("Tokenize(%q)[0] = %v, want %v", tt.src, toks[0].Kind, tt.kind)
		}
		if toks[0].Text != tt.src {
			t.Errorf("Tokenize(%q)[0].Text = %q, want source lexeme", tt.src, toks[0].Text)
		}
	}
}

func TestTokenize_RangeVsFloat(t *testing.T) {
	toks := Tokenize("1..2")
	want := []Kind{KindInt, KindDotDot, KindInt, KindEOF}
	got := kinds(toks)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tokens = %v, want %v", got, want)
		}
	}
}

func TestTokenize_Strings(t *testing.T) {
	toks := Tokenize(`"hello\n\"world\""`)
	if toks[0].Kind != KindString {
		t.Fatalf("kind = %v, want string", toks[0].Kind)
	}
	if toks[0].Text != "hello\n\"world\"" {
		t.Errorf("text = %q, escapes not processed", toks[0].Text)
	}
}

func TestTokenize_UnterminatedString(t *testing.T) {
	toks := Tokenize("\"oops\nlet")
	if toks[0].Kind != KindInvalid {
		t.Errorf("unterminated string should be invalid, got %v", toks[0].Kind)
	}
	// Lexer recovers on the next line.
	if toks[1].Kind != KindLet {
		t.Errorf("expected recovery to let, got %v", toks[1].Kind)
	}
}

func TestTokenize_Comments(t *testing.T) {
	toks := Tokenize("let // trailing\n/* block\n/* nested */ still */ x")
	want := []Kind{KindLet, KindIdent, KindEOF}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenize_InvalidByte(t *testing.T) {
	toks := Tokenize("let # x")
	if toks[1].Kind != KindInvalid || toks[1].Text != "#" {
		t.Errorf("expected invalid '#' token, got %v %q", toks[1].Kind, toks[1].Text)
	}
	if toks[2].Kind != KindIdent {
		t.Errorf("expected recovery after invalid byte, got %v", toks[2].Kind)
	}
}

func TestTokenize_Empty(t *testing.T) {
	toks := Tokenize("")
	if len(toks) != 1 || toks[0].Kind != KindEOF {
		t.Fatalf("empty source should yield a single EOF token, got %v", toks)
	}
	if toks[0].Line != 1 || toks[0].Column != 1 {
		t.Errorf("EOF position = %d:%d, want 1:1", toks[0].Line, toks[0].Column)
	}
}

func TestZeroToken_IsSentinel(t *testing.T) {
	var tok Token
	if tok.Kind != KindEOF || tok.Text != "" || tok.Line != 0 || tok.Column != 0 {
		t.Fatalf("zero token is not the empty sentinel: %+v", tok)
	}
}
