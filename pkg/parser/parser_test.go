package parser

import (
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pasc/pkg/ast"
	"pasc/pkg/lexer"
)

func TestParseMinimalProgram(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.parser")
	defer teardown()
	//
	tree, err := Parse(`
var x: integer;
begin
  x := 2 + 3;
end.
`)
	require.NoError(t, err)

	want := `program
  var: x: integer
  compound
    assignment: x
      binary: +
        integer: 2
        integer: 3
`
	assert.Equal(t, want, ast.Dump(tree))
}

func TestParseProgramHeading(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.parser")
	defer teardown()
	//
	tree, err := Parse("program demo;\nbegin end.")
	require.NoError(t, err)
	assert.Equal(t, "demo", tree.Name)
	assert.Empty(t, tree.Body.Statements)
}

func TestParsePrecedence(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.parser")
	defer teardown()
	//
	tests := []struct {
		expr string
		want string
	}{
		{"2 + 3 * 4", `binary: +
  integer: 2
  binary: *
    integer: 3
    integer: 4
`},
		{"(2 + 3) * 4", `binary: *
  binary: +
    integer: 2
    integer: 3
  integer: 4
`},
		{"1 - 2 - 3", `binary: -
  binary: -
    integer: 1
    integer: 2
  integer: 3
`},
		{"a + b < c * d", `binary: <
  binary: +
    variable: a
    variable: b
  binary: *
    variable: c
    variable: d
`},
		{"not p and q", `binary: and
  unary: not
    variable: p
  variable: q
`},
		{"-x + y", `binary: +
  unary: -
    variable: x
  variable: y
`},
		{"7 div 2 mod 3", `binary: mod
  binary: div
    integer: 7
    integer: 2
  integer: 3
`},
	}
	for _, tc := range tests {
		tree, err := Parse("begin r := " + tc.expr + " end.")
		require.NoError(t, err, "expr %q", tc.expr)
		assignment := tree.Body.Statements[0].(*ast.Assignment)
		assert.Equal(t, tc.want, ast.Dump(assignment.Value), "expr %q", tc.expr)
	}
}

func TestParseDanglingElse(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.parser")
	defer teardown()
	//
	tree, err := Parse(`
begin
  if a then if b then x := 1 else x := 2
end.
`)
	require.NoError(t, err)

	outer := tree.Body.Statements[0].(*ast.If)
	require.Nil(t, outer.Else)
	inner := outer.Then.(*ast.If)
	require.NotNil(t, inner.Else)
}

func TestParseDeclarations(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.parser")
	defer teardown()
	//
	tree, err := Parse(`
const
  limit = 100;
  scale = -2.5;
  banner = 'hi';
var
  a, b: integer;
  r: real;
  done: boolean;
begin end.
`)
	require.NoError(t, err)
	require.Len(t, tree.Declarations, 6)

	limit := tree.Declarations[0].(*ast.ConstDecl)
	assert.Equal(t, "limit", limit.Name)
	assert.Equal(t, int64(100), limit.Value.(*ast.IntLit).Value)

	scale := tree.Declarations[1].(*ast.ConstDecl)
	assert.Equal(t, ast.Negate, scale.Value.(*ast.Unary).Operator)

	ab := tree.Declarations[3].(*ast.VarDecl)
	assert.Equal(t, []string{"a", "b"}, ab.Names)
	assert.Equal(t, ast.Integer, ab.Type)

	done := tree.Declarations[5].(*ast.VarDecl)
	assert.Equal(t, ast.Boolean, done.Type)
}

func TestParseStatements(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.parser")
	defer teardown()
	//
	tree, err := Parse(`
var i, n: integer;
begin
  read(n);
  while n > 0 do
    n := n - 1;
  for i := 1 to 10 do
    write(i, ' ');
  writeln
end.
`)
	require.NoError(t, err)
	require.Len(t, tree.Body.Statements, 4)

	read := tree.Body.Statements[0].(*ast.Read)
	assert.Equal(t, []string{"n"}, read.Names)

	loop := tree.Body.Statements[2].(*ast.For)
	assert.False(t, loop.Down)
	assert.Len(t, loop.Body.(*ast.Write).Args, 2)

	bare := tree.Body.Statements[3].(*ast.Write)
	assert.True(t, bare.Newline)
	assert.Empty(t, bare.Args)
}

func TestParseSyntaxErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.parser")
	defer teardown()
	//
	tests := []struct {
		src     string
		message string
	}{
		{"begin x := 1 .", "found ., expected end at line 1, char 14"},
		{"begin x = 1 end.", "found =, expected := at line 1, char 9"},
		{"var x integer; begin end.", "found integer, expected : at line 1, char 7"},
		{"begin x := * end.", "found *, expected identifier, number, (, not at line 1, char 12"},
		{"begin end", "found EOF, expected . at line 1, char 10"},
	}
	for _, tc := range tests {
		_, err := Parse(tc.src)
		require.Error(t, err, "src %q", tc.src)
		var syntaxErr *SyntaxError
		require.True(t, errors.As(err, &syntaxErr), "src %q", tc.src)
		assert.Equal(t, tc.message, err.Error(), "src %q", tc.src)
	}
}

func TestParseLexicalError(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.parser")
	defer teardown()
	//
	_, err := Parse("begin x := 1 @ 2 end.")
	require.Error(t, err)
	var lexErr *lexer.Error
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, "@", lexErr.Lexeme)
}

func TestParseStopsAtFirstError(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.parser")
	defer teardown()
	//
	// Both the assignment and the terminator are broken; only the
	// first problem is reported.
	_, err := Parse("begin x := ; y := * end")
	require.Error(t, err)
	var syntaxErr *SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, ";", syntaxErr.Found)
}
