package lexer

import (
	"testing"

	"github.com/ogoncas/apolo/token"
)

func scanTypes(source string) []token.Type {
	tokens := Scan(source)
	types := make([]token.Type, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func assertTypes(t *testing.T, source string, want []token.Type) {
	t.Helper()
	got := scanTypes(source)
	if len(got) != len(want) {
		t.Fatalf("Scan(%q) produced %d tokens, want %d: %v", source, len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Scan(%q)[%d] = %v, want %v", source, i, got[i], want[i])
		}
	}
}

func TestOperators(t *testing.T) {
	assertTypes(t, "==/=*+>-<!=<=>=!!", []token.Type{
		token.EQUAL_EQUAL,
		token.DIV,
		token.ASSIGN,
		token.MULT,
		token.ADD,
		token.LARGER,
		token.SUB,
		token.LESS,
		token.NOT_EQUAL,
		token.LESS_EQUAL,
		token.LARGER_EQUAL,
		token.BANG,
		token.BANG,
		token.EOF,
	})
}

func TestPunctuation(t *testing.T) {
	assertTypes(t, "(){}**;+!=<=", []token.Type{
		token.LPA,
		token.RPA,
		token.LCUR,
		token.RCUR,
		token.MULT,
		token.MULT,
		token.SEMICOLON,
		token.ADD,
		token.NOT_EQUAL,
		token.LESS_EQUAL,
		token.EOF,
	})
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	assertTypes(t, "var x = foo and bar or baz", []token.Type{
		token.VAR,
		token.IDENTIFIER,
		token.ASSIGN,
		token.IDENTIFIER,
		token.AND,
		token.IDENTIFIER,
		token.OR,
		token.IDENTIFIER,
		token.EOF,
	})
}

func TestNumberLiteral(t *testing.T) {
	tokens := Scan("12.5")
	if len(tokens) != 2 {
		t.Fatalf("Scan(%q) produced %d tokens, want 2", "12.5", len(tokens))
	}
	got := tokens[0]
	if got.Type != token.NUMBER {
		t.Fatalf("token type = %v, want NUMBER", got.Type)
	}
	if got.Literal != float64(12.5) {
		t.Errorf("token literal = %v, want 12.5", got.Literal)
	}
}

func TestStringLiteral(t *testing.T) {
	tokens := Scan(`"hello world"`)
	got := tokens[0]
	if got.Type != token.STRING {
		t.Fatalf("token type = %v, want STRING", got.Type)
	}
	if got.Literal != "hello world" {
		t.Errorf("token literal = %q, want %q", got.Literal, "hello world")
	}
}

func TestUnterminatedStringEmitsErrorToken(t *testing.T) {
	tokens := Scan(`"hello`)
	if tokens[0].Type != token.ERROR {
		t.Fatalf("token type = %v, want ERROR", tokens[0].Type)
	}
}

func TestUnexpectedCharacterEmitsErrorToken(t *testing.T) {
	tokens := Scan("@")
	if tokens[0].Type != token.ERROR {
		t.Fatalf("token type = %v, want ERROR", tokens[0].Type)
	}
	if tokens[1].Type != token.EOF {
		t.Fatalf("expected scan to continue past the error token, got %v", tokens[1].Type)
	}
}

func TestCommentIsSkipped(t *testing.T) {
	assertTypes(t, "1 # this is a comment\n+ 2", []token.Type{
		token.NUMBER,
		token.ADD,
		token.NUMBER,
		token.EOF,
	})
}

func TestEmptySourceProducesOnlyEOF(t *testing.T) {
	assertTypes(t, "", []token.Type{token.EOF})
}
