package lexer

import (
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
)

// scanAll collects tokens until EOF or the first ILLEGAL token.
func scanAll(t *testing.T, input string) []Token {
	t.Helper()
	s := NewScanner(strings.NewReader(input))
	var tokens []Token
	for {
		tok := s.Scan()
		tokens = append(tokens, tok)
		if tok.TokenType == EOF || tok.TokenType == ILLEGAL {
			return tokens
		}
	}
}

func TestScanTokenSequence(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.lexer")
	defer teardown()
	//
	tests := []struct {
		input string
		want  []TokenType
	}{
		{"begin end.", []TokenType{BEGIN, END, DOT, EOF}},
		{"x := 2 + 3;", []TokenType{ID, ASSIGN, INTNUM, ADDOP, INTNUM, SEMICOLON, EOF}},
		{"if x <= 10 then", []TokenType{IF, ID, RELOP, INTNUM, THEN, EOF}},
		{"a <> b", []TokenType{ID, RELOP, ID, EOF}},
		{"1.5 * 2e3 / 7", []TokenType{REALNUM, MULOP, REALNUM, MULOP, INTNUM, EOF}},
		{"7 div 2 mod 3", []TokenType{INTNUM, DIV, INTNUM, MOD, INTNUM, EOF}},
		{"for i := 1 to 9 do", []TokenType{FOR, ID, ASSIGN, INTNUM, TO, INTNUM, DO, EOF}},
		{"writeln('hi')", []TokenType{WRITELN, LPAREN, STRING, RPAREN, EOF}},
		{"true and not false", []TokenType{TRUE, AND, NOT, FALSE, EOF}},
		{"var x: integer;", []TokenType{VAR, ID, COLON, INTEGER, SEMICOLON, EOF}},
	}
	for _, tc := range tests {
		tokens := scanAll(t, tc.input)
		var got []TokenType
		for _, tok := range tokens {
			got = append(got, tok.TokenType)
		}
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestScanKeywordsAreCaseSensitive(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.lexer")
	defer teardown()
	//
	tokens := scanAll(t, "BEGIN begin")
	assert.Equal(t, ID, tokens[0].TokenType)
	assert.Equal(t, "BEGIN", tokens[0].Lexeme)
	assert.Equal(t, BEGIN, tokens[1].TokenType)
}

func TestScanNumbers(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.lexer")
	defer teardown()
	//
	tests := []struct {
		input  string
		typ    TokenType
		lexeme string
	}{
		{"42", INTNUM, "42"},
		{"3.25", REALNUM, "3.25"},
		{"1e6", REALNUM, "1e6"},
		{"2.5e-3", REALNUM, "2.5e-3"},
		{"10E+2", REALNUM, "10E+2"},
	}
	for _, tc := range tests {
		tokens := scanAll(t, tc.input)
		assert.Equal(t, tc.typ, tokens[0].TokenType, "input %q", tc.input)
		assert.Equal(t, tc.lexeme, tokens[0].Lexeme, "input %q", tc.input)
	}
}

func TestScanNumberFollowedByDot(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.lexer")
	defer teardown()
	//
	// The program terminator must not be swallowed into a real number.
	tokens := scanAll(t, "x := 5 end.")
	var got []TokenType
	for _, tok := range tokens {
		got = append(got, tok.TokenType)
	}
	assert.Equal(t, []TokenType{ID, ASSIGN, INTNUM, END, DOT, EOF}, got)
}

func TestScanString(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.lexer")
	defer teardown()
	//
	tokens := scanAll(t, "'hello world'")
	assert.Equal(t, STRING, tokens[0].TokenType)
	assert.Equal(t, "hello world", tokens[0].Lexeme)

	tokens = scanAll(t, "'don''t'")
	assert.Equal(t, STRING, tokens[0].TokenType)
	assert.Equal(t, "don't", tokens[0].Lexeme)
}

func TestScanComments(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.lexer")
	defer teardown()
	//
	tokens := scanAll(t, "x { a comment\nover two lines } := (* another *) 1")
	var got []TokenType
	for _, tok := range tokens {
		got = append(got, tok.TokenType)
	}
	assert.Equal(t, []TokenType{ID, ASSIGN, INTNUM, EOF}, got)
}

func TestScanPositions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.lexer")
	defer teardown()
	//
	tokens := scanAll(t, "x :=\n  y")
	assert.Equal(t, Position{Line: 0, Column: 0}, tokens[0].Position)
	assert.Equal(t, Position{Line: 0, Column: 2}, tokens[1].Position)
	assert.Equal(t, Position{Line: 1, Column: 2}, tokens[2].Position)
}

func TestScanIllegal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.lexer")
	defer teardown()
	//
	tokens := scanAll(t, "x @ y")
	assert.Equal(t, ILLEGAL, tokens[1].TokenType)
	assert.Equal(t, "@", tokens[1].Lexeme)

	tokens = scanAll(t, "{ never closed")
	assert.Equal(t, ILLEGAL, tokens[0].TokenType)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Lexeme: "@", Pos: Position{Line: 2, Column: 4}}
	assert.Equal(t, `unrecognized character sequence "@" at line 3, char 5`, err.Error())
}
