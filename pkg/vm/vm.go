// Package vm executes compiled instruction sequences on a stack
// machine. Arithmetic and comparisons work on the operand stack,
// variables live in a flat global frame addressed by slot number.
package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"pasc/pkg/codegen"
)

// tracer traces with key 'pasc.vm'.
func tracer() tracing.Trace {
	return tracing.Select("pasc.vm")
}

var (
	ErrStackUnderflow = errors.New("vm: stack underflow")
	ErrNotStarted     = errors.New("vm: execution did not reach STOP")
	ErrDivideByZero   = errors.New("vm: division by zero")
)

// Kind discriminates the runtime value representations.
type Kind uint8

const (
	Int Kind = iota
	Real
	Str
)

// Value is one machine word: an integer, a real or a string. Booleans
// are integers 0 and 1.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	S    string
}

// String formats a value the way the output instructions print it.
func (v Value) String() string {
	switch v.Kind {
	case Real:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case Str:
		return v.S
	}
	return strconv.FormatInt(v.I, 10)
}

// DefaultStepLimit bounds one Run call so a wrong back branch cannot
// spin forever.
const DefaultStepLimit = 1_000_000

// Machine executes one compiled program. Input is consumed a
// whitespace-separated word per READ, output goes to Out unbuffered.
type Machine struct {
	stack   []Value
	globals []Value
	ip      int

	in        *bufio.Scanner
	out       io.Writer
	StepLimit int
}

// NewMachine returns a machine reading from in and writing to out.
func NewMachine(in io.Reader, out io.Writer) *Machine {
	scanner := bufio.NewScanner(in)
	scanner.Split(bufio.ScanWords)
	return &Machine{
		in:        scanner,
		out:       out,
		StepLimit: DefaultStepLimit,
	}
}

func (m *Machine) push(v Value) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop() (Value, error) {
	if len(m.stack) == 0 {
		return Value{}, ErrStackUnderflow
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

func (m *Machine) pop2() (a, b Value, err error) {
	if b, err = m.pop(); err != nil {
		return
	}
	a, err = m.pop()
	return
}

// Run executes the program from its first instruction until STOP. A
// branch outside the code, a division by zero, malformed input or an
// exceeded step limit abort with an error.
func (m *Machine) Run(program *codegen.Program) error {
	if err := program.CheckBranches(); err != nil {
		return err
	}

	code := program.Instructions
	m.stack = m.stack[:0]
	m.globals = nil
	m.ip = 0

	limit := m.StepLimit
	if limit <= 0 {
		limit = DefaultStepLimit
	}

	for steps := 0; steps < limit; steps++ {
		if m.ip < 0 || m.ip >= len(code) {
			return ErrNotStarted
		}
		instr := code[m.ip]
		tracer().Debugf("ip=%d %s", m.ip, instr)

		switch instr.Op {
		case codegen.START:
			// nothing to set up, globals grow on first store
		case codegen.STOP:
			return nil

		case codegen.PUSHI:
			m.push(Value{Kind: Int, I: instr.Arg})
		case codegen.PUSHF:
			m.push(Value{Kind: Real, F: instr.Val})
		case codegen.PUSHS:
			m.push(Value{Kind: Str, S: instr.Str})

		case codegen.PUSHG:
			slot := int(instr.Arg)
			if slot >= len(m.globals) {
				return fmt.Errorf("vm: read of unset global %d at %d", slot, m.ip)
			}
			m.push(m.globals[slot])
		case codegen.STOREG:
			v, err := m.pop()
			if err != nil {
				return err
			}
			slot := int(instr.Arg)
			for slot >= len(m.globals) {
				m.globals = append(m.globals, Value{})
			}
			m.globals[slot] = v

		case codegen.ADD, codegen.SUB, codegen.MUL, codegen.DIV, codegen.MOD:
			a, b, err := m.pop2()
			if err != nil {
				return err
			}
			r, err := intArith(instr.Op, a.I, b.I)
			if err != nil {
				return err
			}
			m.push(Value{Kind: Int, I: r})

		case codegen.FADD, codegen.FSUB, codegen.FMUL, codegen.FDIV:
			a, b, err := m.pop2()
			if err != nil {
				return err
			}
			r, err := realArith(instr.Op, a.F, b.F)
			if err != nil {
				return err
			}
			m.push(Value{Kind: Real, F: r})

		case codegen.ITOF:
			v, err := m.pop()
			if err != nil {
				return err
			}
			m.push(Value{Kind: Real, F: float64(v.I)})

		case codegen.EQUAL, codegen.NEQ, codegen.INF, codegen.INFEQ, codegen.SUP, codegen.SUPEQ:
			a, b, err := m.pop2()
			if err != nil {
				return err
			}
			m.push(Value{Kind: Int, I: boolWord(compare(instr.Op, a, b))})

		case codegen.AND:
			a, b, err := m.pop2()
			if err != nil {
				return err
			}
			m.push(Value{Kind: Int, I: boolWord(a.I != 0 && b.I != 0)})
		case codegen.OR:
			a, b, err := m.pop2()
			if err != nil {
				return err
			}
			m.push(Value{Kind: Int, I: boolWord(a.I != 0 || b.I != 0)})
		case codegen.NOT:
			v, err := m.pop()
			if err != nil {
				return err
			}
			m.push(Value{Kind: Int, I: boolWord(v.I == 0)})

		case codegen.JUMP:
			m.ip = int(instr.Arg)
			continue
		case codegen.JZ:
			v, err := m.pop()
			if err != nil {
				return err
			}
			if v.I == 0 {
				m.ip = int(instr.Arg)
				continue
			}

		case codegen.READ:
			if !m.in.Scan() {
				return fmt.Errorf("vm: input exhausted at %d", m.ip)
			}
			m.push(Value{Kind: Str, S: m.in.Text()})
		case codegen.ATOI:
			v, err := m.pop()
			if err != nil {
				return err
			}
			n, err := strconv.ParseInt(v.S, 10, 64)
			if err != nil {
				return fmt.Errorf("vm: %q is not an integer", v.S)
			}
			m.push(Value{Kind: Int, I: n})
		case codegen.ATOF:
			v, err := m.pop()
			if err != nil {
				return err
			}
			f, err := strconv.ParseFloat(v.S, 64)
			if err != nil {
				return fmt.Errorf("vm: %q is not a number", v.S)
			}
			m.push(Value{Kind: Real, F: f})

		case codegen.WRITEI, codegen.WRITEF, codegen.WRITES:
			v, err := m.pop()
			if err != nil {
				return err
			}
			fmt.Fprint(m.out, v)
		case codegen.WRITELN:
			fmt.Fprintln(m.out)

		default:
			return fmt.Errorf("vm: unknown opcode %s at %d", instr.Op, m.ip)
		}

		m.ip++
	}

	return fmt.Errorf("vm: step limit of %d exceeded", limit)
}

// Execute compiles nothing and runs everything: a convenience that
// runs a program over string input and captures its output.
func Execute(program *codegen.Program, input string) (string, error) {
	var out strings.Builder
	m := NewMachine(strings.NewReader(input), &out)
	err := m.Run(program)
	return out.String(), err
}

func intArith(op codegen.Opcode, a, b int64) (int64, error) {
	switch op {
	case codegen.ADD:
		return a + b, nil
	case codegen.SUB:
		return a - b, nil
	case codegen.MUL:
		return a * b, nil
	case codegen.DIV:
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a / b, nil
	case codegen.MOD:
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a % b, nil
	}
	return 0, fmt.Errorf("vm: %s is not an integer operation", op)
}

func realArith(op codegen.Opcode, a, b float64) (float64, error) {
	switch op {
	case codegen.FADD:
		return a + b, nil
	case codegen.FSUB:
		return a - b, nil
	case codegen.FMUL:
		return a * b, nil
	case codegen.FDIV:
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a / b, nil
	}
	return 0, fmt.Errorf("vm: %s is not a real operation", op)
}

// compare applies a comparison opcode. Mixed operands never reach the
// machine, both sides arrive as the same kind.
func compare(op codegen.Opcode, a, b Value) bool {
	if a.Kind == Real || b.Kind == Real {
		switch op {
		case codegen.EQUAL:
			return a.F == b.F
		case codegen.NEQ:
			return a.F != b.F
		case codegen.INF:
			return a.F < b.F
		case codegen.INFEQ:
			return a.F <= b.F
		case codegen.SUP:
			return a.F > b.F
		case codegen.SUPEQ:
			return a.F >= b.F
		}
		return false
	}

	switch op {
	case codegen.EQUAL:
		return a.I == b.I
	case codegen.NEQ:
		return a.I != b.I
	case codegen.INF:
		return a.I < b.I
	case codegen.INFEQ:
		return a.I <= b.I
	case codegen.SUP:
		return a.I > b.I
	case codegen.SUPEQ:
		return a.I >= b.I
	}
	return false
}

func boolWord(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
