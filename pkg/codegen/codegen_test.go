package codegen

import (
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pasc/pkg/ast"
	"pasc/pkg/parser"
)

// compile parses and generates in one step.
func compile(t *testing.T, src string) (*Program, error) {
	t.Helper()
	tree, err := parser.Parse(src)
	require.NoError(t, err)
	return Generate(tree)
}

// mnemonics renders a compiled program as one string per instruction,
// which keeps expected sequences readable.
func mnemonics(p *Program) []string {
	result := make([]string, len(p.Instructions))
	for i, instr := range p.Instructions {
		result[i] = instr.String()
	}
	return result
}

func TestGenerateAssignment(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.codegen")
	defer teardown()
	//
	program, err := compile(t, `
var x: integer;
begin
  x := 2 + 3;
end.
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"START",
		"PUSHI 2",
		"PUSHI 3",
		"ADD",
		"STOREG 0",
		"STOP",
	}, mnemonics(program))
}

func TestGenerateWidening(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.codegen")
	defer teardown()
	//
	program, err := compile(t, `
var r: real;
begin
  r := 1 + 0.5;
end.
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"START",
		"PUSHI 1",
		"ITOF",
		"PUSHF 0.5",
		"FADD",
		"STOREG 0",
		"STOP",
	}, mnemonics(program))
}

func TestGenerateIntegerToRealAssignment(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.codegen")
	defer teardown()
	//
	program, err := compile(t, `
var r: real;
begin
  r := 7;
end.
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"START",
		"PUSHI 7",
		"ITOF",
		"STOREG 0",
		"STOP",
	}, mnemonics(program))
}

func TestGenerateIf(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.codegen")
	defer teardown()
	//
	program, err := compile(t, `
var x: integer;
begin
  if true then x := 1 else x := 2;
end.
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"START",
		"PUSHI 1",
		"JZ 6",
		"PUSHI 1",
		"STOREG 0",
		"JUMP 8",
		"PUSHI 2",
		"STOREG 0",
		"STOP",
	}, mnemonics(program))
	assert.NoError(t, program.CheckBranches())
}

func TestGenerateWhile(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.codegen")
	defer teardown()
	//
	program, err := compile(t, `
var x: integer;
begin
  while x > 0 do
    x := x - 1;
end.
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"START",
		"PUSHG 0",
		"PUSHI 0",
		"SUP",
		"JZ 10",
		"PUSHG 0",
		"PUSHI 1",
		"SUB",
		"STOREG 0",
		"JUMP 1",
		"STOP",
	}, mnemonics(program))
	assert.NoError(t, program.CheckBranches())
}

func TestGenerateFor(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.codegen")
	defer teardown()
	//
	program, err := compile(t, `
var i: integer;
begin
  for i := 1 to 3 do
    write(i);
end.
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"START",
		"PUSHI 1",
		"STOREG 0",
		"PUSHG 0",
		"PUSHI 3",
		"INFEQ",
		"JZ 14",
		"PUSHG 0",
		"WRITEI",
		"PUSHG 0",
		"PUSHI 1",
		"ADD",
		"STOREG 0",
		"JUMP 3",
		"STOP",
	}, mnemonics(program))
}

func TestGenerateDownto(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.codegen")
	defer teardown()
	//
	program, err := compile(t, `
var i: integer;
begin
  for i := 3 downto 1 do
    write(i);
end.
`)
	require.NoError(t, err)
	names := mnemonics(program)
	assert.Contains(t, names, "SUPEQ")
	assert.Contains(t, names, "SUB")
	assert.NotContains(t, names, "INFEQ")
}

func TestGenerateConstants(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.codegen")
	defer teardown()
	//
	program, err := compile(t, `
const n = 3;
var x: integer;
begin
  x := n * 2;
end.
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"START",
		"PUSHI 3",
		"PUSHI 2",
		"MUL",
		"STOREG 0",
		"STOP",
	}, mnemonics(program))

	sym, ok := program.Symbols.Lookup("n")
	require.True(t, ok)
	assert.True(t, sym.Const)
	assert.Equal(t, int64(3), sym.IntVal)
	assert.Equal(t, -1, sym.Slot)
}

func TestGenerateWriteByType(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.codegen")
	defer teardown()
	//
	program, err := compile(t, `
var n: integer; r: real; p: boolean;
begin
  writeln(n, r, p, 'done');
end.
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"START",
		"PUSHG 0",
		"WRITEI",
		"PUSHG 1",
		"WRITEF",
		"PUSHG 2",
		"WRITEI",
		`PUSHS "done"`,
		"WRITES",
		"WRITELN",
		"STOP",
	}, mnemonics(program))
}

func TestGenerateRead(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.codegen")
	defer teardown()
	//
	program, err := compile(t, `
var n: integer; r: real;
begin
  read(n, r);
end.
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"START",
		"READ",
		"ATOI",
		"STOREG 0",
		"READ",
		"ATOF",
		"STOREG 1",
		"STOP",
	}, mnemonics(program))
}

func TestGenerateComparisonWidening(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.codegen")
	defer teardown()
	//
	program, err := compile(t, `
var r: real; p: boolean;
begin
  p := 1 < r;
end.
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"START",
		"PUSHI 1",
		"ITOF",
		"PUSHG 0",
		"INF",
		"STOREG 1",
		"STOP",
	}, mnemonics(program))
}

func TestGenerateSemanticErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pasc.codegen")
	defer teardown()
	//
	tests := []struct {
		src     string
		message string
	}{
		{
			"var x, x: integer; begin end.",
			"duplicate declaration of x",
		},
		{
			"begin y := 1 end.",
			"undeclared variable y",
		},
		{
			"var x: integer; begin x := 1.5 end.",
			"cannot assign real value to integer variable x",
		},
		{
			"var x: integer; begin x := true end.",
			"cannot assign boolean value to integer variable x",
		},
		{
			"var x: integer; begin if x then x := 1 end.",
			"condition must be a boolean expression",
		},
		{
			"var x: integer; begin while x + 1 do x := 1 end.",
			"condition must be a boolean expression",
		},
		{
			"var x: integer; begin x := 1 div 0 end.",
			"division by constant zero",
		},
		{
			"var x: real; begin x := x / 0.0 end.",
			"division by constant zero",
		},
		{
			"var x: real; begin x := x div 2.0 end.",
			"operands of div must be integers",
		},
		{
			"var x: integer; begin x := true + 1 end.",
			"operands of + must be numeric",
		},
		{
			"var p: boolean; begin p := 1 and p end.",
			"operands of and must be boolean",
		},
		{
			"var p: boolean; begin p := not 3 end.",
			"operand of not must be boolean",
		},
		{
			"var p: boolean; begin p := p < true end.",
			"booleans only support = and <>",
		},
		{
			"const n = 1; begin n := 2 end.",
			"cannot assign to constant n",
		},
		{
			"var r: real; begin for r := 1 to 3 do r := 1 end.",
			"for loop variable r must be an integer",
		},
		{
			"var i: integer; begin for i := 1 to 2.5 do i := 1 end.",
			"for loop bounds must be integers",
		},
	}
	for _, tc := range tests {
		_, err := compile(t, tc.src)
		require.Error(t, err, "src %q", tc.src)
		var semErr *SemanticError
		require.True(t, errors.As(err, &semErr), "src %q", tc.src)
		assert.Equal(t, tc.message, semErr.Message, "src %q", tc.src)
	}
}

func TestSemanticErrorFormat(t *testing.T) {
	tree, err := parser.Parse("begin\n  y := 1\nend.")
	require.NoError(t, err)
	_, err = Generate(tree)
	require.Error(t, err)
	assert.Equal(t, "undeclared variable y at line 2, char 3", err.Error())
}

func TestSymbolTableSlots(t *testing.T) {
	program, err := compile(t, `
const pi = 3.14;
var a, b: integer; r: real;
begin a := 0 end.
`)
	require.NoError(t, err)
	assert.Equal(t, 3, program.Symbols.Slots())

	b, ok := program.Symbols.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, 1, b.Slot)
	assert.Equal(t, ast.Integer, b.Type)

	r, ok := program.Symbols.Lookup("r")
	require.True(t, ok)
	assert.Equal(t, 2, r.Slot)
	assert.Equal(t, ast.Real, r.Type)
}
