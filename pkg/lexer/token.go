package lexer

import "fmt"

// TokenType classifies a lexical token.
type TokenType int

// Pascal-subset tokens.
const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Symbols
	LPAREN    // (
	RPAREN    // )
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :
	DOT       // .

	// Operators
	ASSIGN // :=
	RELOP  // = | <> | < | <= | > | >=
	ADDOP  // + | -
	MULOP  // * | /

	// Keywords
	PROGRAM
	CONST
	VAR
	BEGIN
	END
	IF
	THEN
	ELSE
	WHILE
	DO
	FOR
	TO
	DOWNTO
	INTEGER
	REAL
	BOOLEAN
	TRUE
	FALSE
	DIV
	MOD
	AND
	OR
	NOT
	WRITE
	WRITELN
	READ
	READLN

	// Literals
	ID
	INTNUM
	REALNUM
	STRING
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	LPAREN:    "(",
	RPAREN:    ")",
	COMMA:     ",",
	SEMICOLON: ";",
	COLON:     ":",
	DOT:       ".",

	ASSIGN: ":=",
	RELOP:  "RELOP",
	ADDOP:  "ADDOP",
	MULOP:  "MULOP",

	PROGRAM: "program",
	CONST:   "const",
	VAR:     "var",
	BEGIN:   "begin",
	END:     "end",
	IF:      "if",
	THEN:    "then",
	ELSE:    "else",
	WHILE:   "while",
	DO:      "do",
	FOR:     "for",
	TO:      "to",
	DOWNTO:  "downto",
	INTEGER: "integer",
	REAL:    "real",
	BOOLEAN: "boolean",
	TRUE:    "true",
	FALSE:   "false",
	DIV:     "div",
	MOD:     "mod",
	AND:     "and",
	OR:      "or",
	NOT:     "not",
	WRITE:   "write",
	WRITELN: "writeln",
	READ:    "read",
	READLN:  "readln",

	ID:      "ID",
	INTNUM:  "INTNUM",
	REALNUM: "REALNUM",
	STRING:  "STRING",
}

// String returns the string representation of the token type.
func (tok TokenType) String() string {
	if tok >= 0 && tok < TokenType(len(tokens)) {
		return tokens[tok]
	}
	return ""
}

// keywords is the immutable reserved-word set, built once at startup.
// Reserved words are matched in lowercase spelling only, exactly as
// the language defines them.
var keywords = map[string]TokenType{
	"program": PROGRAM,
	"const":   CONST,
	"var":     VAR,
	"begin":   BEGIN,
	"end":     END,
	"if":      IF,
	"then":    THEN,
	"else":    ELSE,
	"while":   WHILE,
	"do":      DO,
	"for":     FOR,
	"to":      TO,
	"downto":  DOWNTO,
	"integer": INTEGER,
	"real":    REAL,
	"boolean": BOOLEAN,
	"true":    TRUE,
	"false":   FALSE,
	"div":     DIV,
	"mod":     MOD,
	"and":     AND,
	"or":      OR,
	"not":     NOT,
	"write":   WRITE,
	"writeln": WRITELN,
	"read":    READ,
	"readln":  READLN,
}

// Position specifies the line and character position of a token.
// The Column and Line are both zero-based indexes.
type Position struct {
	Line   int
	Column int
}

// Token is a single lexical token produced by the scanner.
type Token struct {
	TokenType TokenType
	Lexeme    string
	Position  Position
}

// Error represents a lexical error: no token pattern matches at the
// current position.
type Error struct {
	Lexeme string
	Pos    Position
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	return fmt.Sprintf("unrecognized character sequence %q at line %d, char %d",
		e.Lexeme, e.Pos.Line+1, e.Pos.Column+1)
}
