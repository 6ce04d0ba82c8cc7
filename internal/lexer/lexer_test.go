package lexer

import (
	"testing"

	"github.com/nerdalytics/tinywhale/internal/intern"
	"github.com/nerdalytics/tinywhale/internal/preprocess"
	"github.com/nerdalytics/tinywhale/internal/token"
)

// tokenize returns the token stream with NEWLINE tokens stripped, since
// most grammar-shape assertions below only care about the other token
// kinds; TestTokenizeNewlines below checks NEWLINE placement directly.
func tokenize(t *testing.T, src string, mode preprocess.Mode) ([]token.Token, *intern.StringTable, *intern.FloatTable) {
	t.Helper()
	normalized, err := preprocess.Run(src, mode)
	if err != nil {
		t.Fatalf("preprocess: %s", err)
	}
	strs := intern.NewStringTable()
	floats := intern.NewFloatTable()
	store, lexErrs := Tokenize(normalized, strs, floats)
	if len(lexErrs) != 0 {
		t.Fatalf("unexpected lex errors: %v", lexErrs)
	}
	var toks []token.Token
	for i := 0; i < store.Len(); i++ {
		tok := store.Get(token.ID(i))
		if tok.Kind == token.NEWLINE {
			continue
		}
		toks = append(toks, tok)
	}
	return toks, strs, floats
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizePanic(t *testing.T) {
	toks, _, _ := tokenize(t, "panic\n", preprocess.ModeDetect)
	want := []token.Kind{token.KEYWORD_PANIC, token.EOF}
	assertKinds(t, toks, want)
}

func TestTokenizeKeywordPrefixIsIdentifier(t *testing.T) {
	toks, _, _ := tokenize(t, "panicMode: i32 = 0\n", preprocess.ModeDetect)
	if toks[0].Kind != token.IDENT_LOWER {
		t.Fatalf("expected panicMode to lex as IDENT_LOWER, got %s", toks[0].Kind)
	}
}

func TestTokenizeIndentDedent(t *testing.T) {
	src := "type Point\n\tx: i32\n\ty: i32\npanic\n"
	toks, _, _ := tokenize(t, src, preprocess.ModeDetect)
	want := []token.Kind{
		token.KEYWORD_TYPE, token.IDENT_UPPER,
		token.INDENT,
		token.IDENT_LOWER, token.COLON, token.KEYWORD_I32,
		token.IDENT_LOWER, token.COLON, token.KEYWORD_I32,
		token.DEDENT,
		token.KEYWORD_PANIC,
		token.EOF,
	}
	assertKinds(t, toks, want)
}

func TestTokenizeIntLiteral(t *testing.T) {
	toks, strs, _ := tokenize(t, "x: i32 = 42\n", preprocess.ModeDetect)
	lit := findKind(t, toks, token.INT_LITERAL)
	if got := strs.Lookup(lit.StringID); got != "42" {
		t.Errorf("got %q, want 42", got)
	}
}

func TestTokenizeScientificNotationIsIntLiteral(t *testing.T) {
	toks, strs, _ := tokenize(t, "x: i64 = 1e10\n", preprocess.ModeDetect)
	lit := findKind(t, toks, token.INT_LITERAL)
	if got := strs.Lookup(lit.StringID); got != "1e10" {
		t.Errorf("got %q, want 1e10", got)
	}
}

func TestTokenizeFloatLiteral(t *testing.T) {
	toks, _, floats := tokenize(t, "x: f64 = 3.5\n", preprocess.ModeDetect)
	lit := findKind(t, toks, token.FLOAT_LITERAL)
	if got := floats.Lookup(lit.FloatID); got != 3.5 {
		t.Errorf("got %v, want 3.5", got)
	}
}

func TestTokenizeComment(t *testing.T) {
	toks, _, _ := tokenize(t, "panic # trailing comment\n", preprocess.ModeDetect)
	want := []token.Kind{token.KEYWORD_PANIC, token.EOF}
	assertKinds(t, toks, want)
}

func TestTokenizePunctuationSet(t *testing.T) {
	src := "a <= b && c >= d || e != f == g\n"
	toks, _, _ := tokenize(t, src, preprocess.ModeDetect)
	want := []token.Kind{
		token.IDENT_LOWER, token.LE, token.IDENT_LOWER, token.AND, token.IDENT_LOWER,
		token.GE, token.IDENT_LOWER, token.OR, token.IDENT_LOWER, token.NEQ,
		token.IDENT_LOWER, token.EQ, token.IDENT_LOWER, token.EOF,
	}
	assertKinds(t, toks, want)
}

func TestTokenizeWildcard(t *testing.T) {
	toks, _, _ := tokenize(t, "_ -> 0\n", preprocess.ModeDetect)
	want := []token.Kind{token.UNDERSCORE, token.ARROW, token.INT_LITERAL, token.EOF}
	assertKinds(t, toks, want)
}

func TestTokenizeNewlines(t *testing.T) {
	normalized, err := preprocess.Run("x: i32 = 0\npanic\n", preprocess.ModeDetect)
	if err != nil {
		t.Fatalf("preprocess: %s", err)
	}
	store, lexErrs := Tokenize(normalized, intern.NewStringTable(), intern.NewFloatTable())
	if len(lexErrs) != 0 {
		t.Fatalf("unexpected lex errors: %v", lexErrs)
	}
	toks := make([]token.Token, store.Len())
	for i := range toks {
		toks[i] = store.Get(token.ID(i))
	}
	want := []token.Kind{
		token.IDENT_LOWER, token.COLON, token.KEYWORD_I32, token.ASSIGN, token.INT_LITERAL, token.NEWLINE,
		token.KEYWORD_PANIC, token.NEWLINE,
		token.EOF,
	}
	assertKinds(t, toks, want)
}

func assertKinds(t *testing.T, toks []token.Token, want []token.Kind) {
	t.Helper()
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens (%v), want %d (%v)", len(toks), kinds(toks), len(want), want)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func findKind(t *testing.T, toks []token.Token, k token.Kind) token.Token {
	t.Helper()
	for _, tok := range toks {
		if tok.Kind == k {
			return tok
		}
	}
	t.Fatalf("no token of kind %s", k)
	return token.Token{}
}
