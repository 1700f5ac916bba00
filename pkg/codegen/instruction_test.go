package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionString(t *testing.T) {
	tests := []struct {
		instr Instruction
		want  string
	}{
		{Instruction{Op: START}, "START"},
		{Instruction{Op: PUSHI, Arg: -7}, "PUSHI -7"},
		{Instruction{Op: PUSHF, Val: 2.5}, "PUSHF 2.5"},
		{Instruction{Op: PUSHF, Val: 1e20}, "PUSHF 1e+20"},
		{Instruction{Op: PUSHS, Str: "it's"}, `PUSHS "it's"`},
		{Instruction{Op: STOREG, Arg: 3}, "STOREG 3"},
		{Instruction{Op: JZ, Arg: 12}, "JZ 12"},
		{Instruction{Op: WRITELN}, "WRITELN"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.instr.String())
	}
}

func TestTextRoundTrip(t *testing.T) {
	program := &Program{Instructions: []Instruction{
		{Op: START},
		{Op: PUSHF, Val: 0.1},
		{Op: PUSHS, Str: "a \"quoted\" word"},
		{Op: PUSHI, Arg: 42},
		{Op: STOREG, Arg: 0},
		{Op: JUMP, Arg: 6},
		{Op: STOP},
	}}

	decoded, err := ParseText(program.Text())
	require.NoError(t, err)
	assert.Equal(t, program.Instructions, decoded.Instructions)
	assert.Nil(t, decoded.Symbols)
}

func TestParseTextErrors(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"BOGUS", `line 1: unknown opcode "BOGUS"`},
		{"PUSHI abc", "line 1: PUSHI needs an integer operand"},
		{"PUSHF x", "line 1: PUSHF needs a real operand"},
		{"PUSHS hello", "line 1: PUSHS needs a quoted string operand"},
		{"STOP 3", "line 1: STOP takes no operand"},
		{"START\nJZ", "line 2: JZ needs an integer operand"},
	}
	for _, tc := range tests {
		_, err := ParseText(tc.text)
		require.Error(t, err, "text %q", tc.text)
		assert.Equal(t, tc.want, err.Error(), "text %q", tc.text)
	}
}

func TestParseTextSkipsBlankLines(t *testing.T) {
	program, err := ParseText("START\n\n  STOP  \n")
	require.NoError(t, err)
	require.Len(t, program.Instructions, 2)
}

func TestCheckBranches(t *testing.T) {
	ok := &Program{Instructions: []Instruction{
		{Op: START},
		{Op: JZ, Arg: 2},
		{Op: STOP},
	}}
	assert.NoError(t, ok.CheckBranches())

	bad := &Program{Instructions: []Instruction{
		{Op: START},
		{Op: JUMP, Arg: 3},
		{Op: STOP},
	}}
	assert.EqualError(t, bad.CheckBranches(), "instruction 1: branch target 3 out of bounds")

	negative := &Program{Instructions: []Instruction{
		{Op: JZ, Arg: -1},
		{Op: STOP},
	}}
	assert.Error(t, negative.CheckBranches())
}
