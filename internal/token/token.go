// Package token defines the lexical token vocabulary shared by the
// preprocessor, lexer, parser, and checker.
package token

import "fmt"

// Kind identifies the lexical category of a Token. Values are grouped so a
// reader can tell a token's rough shape from its numeric value, the way the
// parse-node kinds in package tree are banded by syntactic role.
type Kind int

const (
	// Structural / sentinel
	ILLEGAL Kind = iota
	EOF
	NEWLINE
	INDENT
	DEDENT

	// Literals and identifiers
	IDENT_LOWER // identifiers starting with a lowercase letter
	IDENT_UPPER // identifiers starting with an uppercase letter
	INT_LITERAL
	FLOAT_LITERAL

	// Keywords
	KEYWORD_PANIC
	KEYWORD_MATCH
	KEYWORD_TYPE
	KEYWORD_I32
	KEYWORD_I64
	KEYWORD_F32
	KEYWORD_F64

	// Punctuation
	COLON
	ASSIGN
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	DPERCENT // %%
	AMP
	PIPE
	CARET
	TILDE
	SHL // <<
	SHR // >>
	USHR // >>>
	LT
	GT
	LE
	GE
	EQ
	NEQ
	AND // &&
	OR  // ||
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	DOT
	BANG
	COMMA
	UNDERSCORE
	ARROW // ->
)

var names = map[Kind]string{
	ILLEGAL:        "ILLEGAL",
	EOF:            "EOF",
	NEWLINE:        "NEWLINE",
	INDENT:         "INDENT",
	DEDENT:         "DEDENT",
	IDENT_LOWER:    "IDENT_LOWER",
	IDENT_UPPER:    "IDENT_UPPER",
	INT_LITERAL:    "INT_LITERAL",
	FLOAT_LITERAL:  "FLOAT_LITERAL",
	KEYWORD_PANIC:  "panic",
	KEYWORD_MATCH:  "match",
	KEYWORD_TYPE:   "type",
	KEYWORD_I32:    "i32",
	KEYWORD_I64:    "i64",
	KEYWORD_F32:    "f32",
	KEYWORD_F64:    "f64",
	COLON:          ":",
	ASSIGN:         "=",
	PLUS:           "+",
	MINUS:          "-",
	STAR:           "*",
	SLASH:          "/",
	PERCENT:        "%",
	DPERCENT:       "%%",
	AMP:            "&",
	PIPE:           "|",
	CARET:          "^",
	TILDE:          "~",
	SHL:            "<<",
	SHR:            ">>",
	USHR:           ">>>",
	LT:             "<",
	GT:             ">",
	LE:             "<=",
	GE:             ">=",
	EQ:             "==",
	NEQ:            "!=",
	AND:            "&&",
	OR:             "||",
	LPAREN:         "(",
	RPAREN:         ")",
	LBRACKET:       "[",
	RBRACKET:       "]",
	DOT:            ".",
	BANG:           "!",
	COMMA:          ",",
	UNDERSCORE:     "_",
	ARROW:          "->",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keywords maps the exact spelling of a reserved word to its Kind. The
// lexer only consults this after lexing a full identifier, so a keyword
// spelled as a prefix/substring of a longer identifier (panicMode,
// matchmaking, i32value) lexes as an ordinary identifier.
var Keywords = map[string]Kind{
	"panic": KEYWORD_PANIC,
	"match": KEYWORD_MATCH,
	"type":  KEYWORD_TYPE,
	"i32":   KEYWORD_I32,
	"i64":   KEYWORD_I64,
	"f32":   KEYWORD_F32,
	"f64":   KEYWORD_F64,
}

// ID identifies a Token within a TokenStore. TokenStores are 0-indexed and
// append-only, so ID 0 is the first token and -1 is used as
// the "no token" sentinel by callers that need one (mirrors the -1 Invalid
// sentinel used by package types).
type ID int32

const InvalidID ID = -1

// Token is a single lexical unit: its Kind, the source position of its
// first byte, and a payload. StringID/FloatID index into the
// CompilationContext's interners for IDENT/_LITERAL kinds; IndentLevel
// carries the nesting depth for INDENT/DEDENT.
type Token struct {
	Kind        Kind
	Line        int // 1-based
	Column      int // 1-based, byte-indexed
	Lexeme      string
	StringID    int32 // valid for IDENT_LOWER, IDENT_UPPER, INT_LITERAL (text form)
	FloatID     int32 // valid for FLOAT_LITERAL
	IndentLevel int   // valid for INDENT, DEDENT
}

func (t Token) String() string {
	if t.Lexeme != "" {
		return fmt.Sprintf("%s(%q) at %d:%d", t.Kind, t.Lexeme, t.Line, t.Column)
	}
	return fmt.Sprintf("%s at %d:%d", t.Kind, t.Line, t.Column)
}
