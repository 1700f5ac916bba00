package codegen

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode is an enumerated machine operation of the target stack
// machine. Integer and real arithmetic are distinct instruction
// families; ITOF is the explicit widening between them.
type Opcode int

const (
	// Program bracket
	START Opcode = iota
	STOP

	// Immediates and globals
	PUSHI  // push integer immediate
	PUSHF  // push real immediate
	PUSHS  // push string immediate
	PUSHG  // push value of global slot
	STOREG // pop value into global slot

	// Integer arithmetic
	ADD
	SUB
	MUL
	DIV
	MOD

	// Real arithmetic
	FADD
	FSUB
	FMUL
	FDIV

	// Widening
	ITOF

	// Comparisons (operands share a kind; result is 0 or 1)
	EQUAL
	NEQ
	INF
	INFEQ
	SUP
	SUPEQ

	// Boolean operators on 0/1 values
	AND
	OR
	NOT

	// Branches to absolute instruction indices
	JZ
	JUMP

	// Input and output
	READ
	ATOI
	ATOF
	WRITEI
	WRITEF
	WRITES
	WRITELN
)

var opcodes = [...]string{
	START:   "START",
	STOP:    "STOP",
	PUSHI:   "PUSHI",
	PUSHF:   "PUSHF",
	PUSHS:   "PUSHS",
	PUSHG:   "PUSHG",
	STOREG:  "STOREG",
	ADD:     "ADD",
	SUB:     "SUB",
	MUL:     "MUL",
	DIV:     "DIV",
	MOD:     "MOD",
	FADD:    "FADD",
	FSUB:    "FSUB",
	FMUL:    "FMUL",
	FDIV:    "FDIV",
	ITOF:    "ITOF",
	EQUAL:   "EQUAL",
	NEQ:     "NEQ",
	INF:     "INF",
	INFEQ:   "INFEQ",
	SUP:     "SUP",
	SUPEQ:   "SUPEQ",
	AND:     "AND",
	OR:      "OR",
	NOT:     "NOT",
	JZ:      "JZ",
	JUMP:    "JUMP",
	READ:    "READ",
	ATOI:    "ATOI",
	ATOF:    "ATOF",
	WRITEI:  "WRITEI",
	WRITEF:  "WRITEF",
	WRITES:  "WRITES",
	WRITELN: "WRITELN",
}

// opcodeByName is the reverse of opcodes, built once at startup.
var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodes))
	for op, name := range opcodes {
		m[name] = Opcode(op)
	}
	return m
}()

// String returns the mnemonic of the opcode.
func (op Opcode) String() string {
	if op >= 0 && op < Opcode(len(opcodes)) {
		return opcodes[op]
	}
	return ""
}

// HasIntArg reports whether the opcode carries an integer operand
// (an immediate, a global slot, or a branch target).
func (op Opcode) HasIntArg() bool {
	switch op {
	case PUSHI, PUSHG, STOREG, JZ, JUMP:
		return true
	}
	return false
}

// Instruction is a single machine operation with its operand.
// Which operand field is meaningful depends on the opcode.
type Instruction struct {
	Op  Opcode
	Arg int64   // integer immediate, global slot, or branch target
	Val float64 // real immediate (PUSHF)
	Str string  // string immediate (PUSHS)
}

// String renders the instruction in the textual program encoding:
// the mnemonic, followed by its operand where one exists. Real
// immediates use the shortest representation that round-trips;
// string immediates are quoted.
func (i Instruction) String() string {
	switch {
	case i.Op.HasIntArg():
		return fmt.Sprintf("%s %d", i.Op, i.Arg)
	case i.Op == PUSHF:
		return fmt.Sprintf("%s %s", i.Op, strconv.FormatFloat(i.Val, 'g', -1, 64))
	case i.Op == PUSHS:
		return fmt.Sprintf("%s %s", i.Op, strconv.Quote(i.Str))
	}
	return i.Op.String()
}

// Program is the result of code generation: the ordered instruction
// sequence plus the finalized symbol table of the compiled program.
type Program struct {
	Instructions []Instruction
	Symbols      *SymbolTable
}

// Text encodes the program as one instruction per line. The encoding
// is stable and round-trips through ParseText.
func (p *Program) Text() string {
	var b strings.Builder
	for _, instr := range p.Instructions {
		b.WriteString(instr.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseText decodes a program from its Text encoding. The symbol
// table is not part of the encoding and is left nil.
func ParseText(text string) (*Program, error) {
	program := &Program{}

	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var mnemonic, operand string
		if i := strings.IndexByte(line, ' '); i >= 0 {
			mnemonic, operand = line[:i], strings.TrimSpace(line[i+1:])
		} else {
			mnemonic = line
		}

		op, ok := opcodeByName[mnemonic]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown opcode %q", n+1, mnemonic)
		}

		instr := Instruction{Op: op}
		switch {
		case op.HasIntArg():
			arg, err := strconv.ParseInt(operand, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s needs an integer operand", n+1, mnemonic)
			}
			instr.Arg = arg
		case op == PUSHF:
			val, err := strconv.ParseFloat(operand, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s needs a real operand", n+1, mnemonic)
			}
			instr.Val = val
		case op == PUSHS:
			str, err := strconv.Unquote(operand)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s needs a quoted string operand", n+1, mnemonic)
			}
			instr.Str = str
		default:
			if operand != "" {
				return nil, fmt.Errorf("line %d: %s takes no operand", n+1, mnemonic)
			}
		}

		program.Instructions = append(program.Instructions, instr)
	}

	return program, nil
}

// CheckBranches verifies that every branch target lies within the
// instruction sequence.
func (p *Program) CheckBranches() error {
	for i, instr := range p.Instructions {
		if instr.Op != JZ && instr.Op != JUMP {
			continue
		}
		if instr.Arg < 0 || instr.Arg >= int64(len(p.Instructions)) {
			return fmt.Errorf("instruction %d: branch target %d out of bounds", i, instr.Arg)
		}
	}
	return nil
}
