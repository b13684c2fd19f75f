package lexer_test

import (
	"testing"

	"github.com/synthizer/waveling/internal/lexer"
	"github.com/synthizer/waveling/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `program osc;
// a comment that vanishes
let mix = a + b * 0.5f32;
cell (prev, nxt): f32(1);
x -> y <- z;
1 << 2 >= 3 != 4 && true || false;
~mask & flags ^ bits | more;
`

	expected := []struct {
		typ    token.TokenType
		lexeme string
	}{
		{token.PROGRAM, "program"},
		{token.IDENT, "osc"},
		{token.SEMICOLON, ";"},
		{token.LET, "let"},
		{token.IDENT, "mix"},
		{token.ASSIGN, "="},
		{token.IDENT, "a"},
		{token.PLUS, "+"},
		{token.IDENT, "b"},
		{token.ASTERISK, "*"},
		{token.FLOAT, "0.5f32"},
		{token.SEMICOLON, ";"},
		{token.CELL, "cell"},
		{token.LPAREN, "("},
		{token.IDENT, "prev"},
		{token.COMMA, ","},
		{token.IDENT, "nxt"},
		{token.RPAREN, ")"},
		{token.COLON, ":"},
		{token.IDENT, "f32"},
		{token.LPAREN, "("},
		{token.INT, "1"},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "x"},
		{token.ARROW, "->"},
		{token.IDENT, "y"},
		{token.L_ARROW, "<-"},
		{token.IDENT, "z"},
		{token.SEMICOLON, ";"},
		{token.INT, "1"},
		{token.LSHIFT, "<<"},
		{token.INT, "2"},
		{token.GTE, ">="},
		{token.INT, "3"},
		{token.NOT_EQ, "!="},
		{token.INT, "4"},
		{token.AND, "&&"},
		{token.TRUE, "true"},
		{token.OR, "||"},
		{token.FALSE, "false"},
		{token.SEMICOLON, ";"},
		{token.TILDE, "~"},
		{token.IDENT, "mask"},
		{token.AMPERSAND, "&"},
		{token.IDENT, "flags"},
		{token.CARET, "^"},
		{token.IDENT, "bits"},
		{token.PIPE, "|"},
		{token.IDENT, "more"},
		{token.SEMICOLON, ";"},
		{token.EOF, ""},
	}

	l := lexer.New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ {
			t.Fatalf("token %d: type %q, want %q (lexeme %q)", i, tok.Type, want.typ, tok.Lexeme)
		}
		if tok.Lexeme != want.lexeme {
			t.Fatalf("token %d: lexeme %q, want %q", i, tok.Lexeme, want.lexeme)
		}
	}
}

func TestNumericLiterals(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		typ    token.TokenType
		suffix string
		intVal int64
		fVal   float64
	}{
		{"plain_int", "42", token.INT, "", 42, 0},
		{"hex", "0xff", token.INT, "", 255, 0},
		{"hex_suffixed", "0xffi64", token.INT, "i64", 255, 0},
		{"int_i32", "7i32", token.INT, "i32", 7, 0},
		{"float", "1.5", token.FLOAT, "", 0, 1.5},
		{"float_f32", "0.9f32", token.FLOAT, "f32", 0, 0.9},
		{"int_with_float_suffix", "1f64", token.FLOAT, "f64", 0, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tok := lexer.New(tc.input).NextToken()
			if tok.Type != tc.typ {
				t.Fatalf("type %q, want %q", tok.Type, tc.typ)
			}
			if tok.Suffix != tc.suffix {
				t.Errorf("suffix %q, want %q", tok.Suffix, tc.suffix)
			}
			switch tc.typ {
			case token.INT:
				if got := tok.Literal.(int64); got != tc.intVal {
					t.Errorf("value %d, want %d", got, tc.intVal)
				}
			case token.FLOAT:
				if got := tok.Literal.(float64); got != tc.fVal {
					t.Errorf("value %v, want %v", got, tc.fVal)
				}
			}
		})
	}
}

func TestIllegalTokens(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"bad_suffix", "1q32"},
		{"int_suffix_on_float", "1.5i32"},
		{"stray_char", "@"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := lexer.New(tc.input)
			for {
				tok := l.NextToken()
				if tok.Type == token.ILLEGAL {
					return
				}
				if tok.Type == token.EOF {
					t.Fatal("no ILLEGAL token produced")
				}
			}
		})
	}
}

func TestSpansTrackLines(t *testing.T) {
	l := lexer.New("a\n  b")
	first := l.NextToken()
	second := l.NextToken()
	if first.Line != 1 {
		t.Errorf("first token line %d, want 1", first.Line)
	}
	if second.Line != 2 || second.Column != 3 {
		t.Errorf("second token at %d:%d, want 2:3", second.Line, second.Column)
	}
}
