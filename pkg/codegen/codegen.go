// Package codegen translates a completed syntax tree into an ordered
// instruction sequence for the target stack machine, together with a
// symbol table mapping declared names to storage slots. Expressions
// are emitted post-order (operands before the operator); forward
// branches are recorded in a patch list and resolved to absolute
// instruction indices once the whole sequence is emitted.
package codegen

import (
	"fmt"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/npillmayer/schuko/tracing"

	"pasc/pkg/ast"
	"pasc/pkg/lexer"
)

// tracer traces with key 'pasc.codegen'.
func tracer() tracing.Trace {
	return tracing.Select("pasc.codegen")
}

// SemanticError reports a static error found during code generation:
// an undeclared or duplicate identifier, a type mismatch, or a
// constant division by zero. No partial instruction sequence
// accompanies it.
type SemanticError struct {
	Message string
	Pos     lexer.Position
}

// Error returns the string representation of the error.
func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s at line %d, char %d", e.Message, e.Pos.Line+1, e.Pos.Column+1)
}

// label identifies a not-yet-resolved branch target.
type label int

// patch records one emitted branch whose target is still a label.
type patch struct {
	index int // instruction index of the branch
	lab   label
}

// CodeGenerator emits instructions for one compilation. A fresh
// generator, symbol table and instruction buffer are created per run.
type CodeGenerator struct {
	symbols *SymbolTable
	code    []Instruction
	targets []int // resolved instruction index per label, -1 while open
	patches *arraylist.List
	err     error
}

// NewCodeGenerator returns a new instance of CodeGenerator.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{
		symbols: NewSymbolTable(),
		patches: arraylist.New(),
	}
}

// Generate generates the instruction sequence for a program, or fails
// with the first semantic error.
func Generate(program *ast.Program) (*Program, error) {
	c := NewCodeGenerator()
	c.genProgram(program)
	if c.err != nil {
		return nil, c.err
	}

	result := &Program{Instructions: c.code, Symbols: c.symbols}
	tracer().Debugf("generated %d instructions, %d slots",
		len(result.Instructions), c.symbols.Slots())
	return result, nil
}

func (c *CodeGenerator) fail(pos lexer.Position, format string, args ...interface{}) {
	if c.err == nil {
		c.err = &SemanticError{Message: fmt.Sprintf(format, args...), Pos: pos}
	}
}

func (c *CodeGenerator) emit(instr Instruction) {
	c.code = append(c.code, instr)
}

// newLabel allocates a fresh, still unbound branch target.
func (c *CodeGenerator) newLabel() label {
	c.targets = append(c.targets, -1)
	return label(len(c.targets) - 1)
}

// branch emits a branch instruction to a label, recording it on the
// patch list for later resolution.
func (c *CodeGenerator) branch(op Opcode, l label) {
	c.patches.Add(patch{index: len(c.code), lab: l})
	c.emit(Instruction{Op: op, Arg: -1})
}

// bind resolves a label to the index of the next emitted instruction.
func (c *CodeGenerator) bind(l label) {
	c.targets[l] = len(c.code)
}

// resolve rewrites every recorded branch with its label's absolute
// instruction index.
func (c *CodeGenerator) resolve() {
	for _, v := range c.patches.Values() {
		pc := v.(patch)
		target := c.targets[pc.lab]
		if target < 0 {
			// A label every branch can reach is bound before resolve
			// runs; an unbound one is a defect in this package.
			panic(fmt.Sprintf("codegen: unbound label %d", pc.lab))
		}
		c.code[pc.index].Arg = int64(target)
	}
}

// genProgram declares the program's names and emits its body between
// the START/STOP bracket.
func (c *CodeGenerator) genProgram(node *ast.Program) {
	for _, declaration := range node.Declarations {
		switch decl := declaration.(type) {
		case *ast.VarDecl:
			for _, name := range decl.Names {
				if _, ok := c.symbols.Declare(name, decl.Type); !ok {
					c.fail(decl.Position, "duplicate declaration of %s", name)
					return
				}
			}

		case *ast.ConstDecl:
			value, ok := c.evalConst(decl.Value)
			if !ok {
				return
			}
			sym, ok := c.symbols.DeclareConst(decl.Name, value.Type)
			if !ok {
				c.fail(decl.Position, "duplicate declaration of %s", decl.Name)
				return
			}
			sym.IntVal, sym.RealVal, sym.StrVal = value.IntVal, value.RealVal, value.StrVal
		}
	}

	c.emit(Instruction{Op: START})
	c.genStatement(node.Body)
	c.emit(Instruction{Op: STOP})

	if c.err != nil {
		return
	}
	c.resolve()
}

// evalConst evaluates a constant definition's right-hand side.
func (c *CodeGenerator) evalConst(node ast.Expression) (Symbol, bool) {
	switch e := node.(type) {
	case *ast.IntLit:
		return Symbol{Type: ast.Integer, IntVal: e.Value}, true
	case *ast.RealLit:
		return Symbol{Type: ast.Real, RealVal: e.Value}, true
	case *ast.BoolLit:
		value := int64(0)
		if e.Value {
			value = 1
		}
		return Symbol{Type: ast.Boolean, IntVal: value}, true
	case *ast.StringLit:
		return Symbol{Type: ast.String, StrVal: e.Value}, true
	case *ast.Unary:
		value, ok := c.evalConst(e.Value)
		if !ok {
			return Symbol{}, false
		}
		switch value.Type {
		case ast.Integer:
			return Symbol{Type: ast.Integer, IntVal: -value.IntVal}, true
		case ast.Real:
			return Symbol{Type: ast.Real, RealVal: -value.RealVal}, true
		}
	}

	c.fail(position(node), "constant definition must be a literal")
	return Symbol{}, false
}

// genStatement generates code for a single statement.
func (c *CodeGenerator) genStatement(node ast.Statement) {
	if c.err != nil {
		return
	}

	switch s := node.(type) {
	case *ast.Compound:
		for _, statement := range s.Statements {
			c.genStatement(statement)
		}
	case *ast.Assignment:
		c.genAssignment(s)
	case *ast.If:
		c.genIf(s)
	case *ast.While:
		c.genWhile(s)
	case *ast.For:
		c.genFor(s)
	case *ast.Write:
		c.genWrite(s)
	case *ast.Read:
		c.genRead(s)
	}
}

// genAssignment emits the right-hand expression followed by a store
// into the variable's slot, widening an integer value for a real
// variable.
func (c *CodeGenerator) genAssignment(node *ast.Assignment) {
	sym, ok := c.symbols.Lookup(node.Variable)
	if !ok {
		c.fail(node.Position, "undeclared variable %s", node.Variable)
		return
	}
	if sym.Const {
		c.fail(node.Position, "cannot assign to constant %s", node.Variable)
		return
	}

	t := c.genExpression(node.Value)
	if c.err != nil {
		return
	}

	switch {
	case sym.Type == t:
		// nothing to adjust
	case sym.Type == ast.Real && t == ast.Integer:
		c.emit(Instruction{Op: ITOF})
	case sym.Type == ast.Integer && t == ast.Real:
		c.fail(node.Position, "cannot assign real value to integer variable %s", node.Variable)
		return
	default:
		c.fail(node.Position, "cannot assign %s value to %s variable %s", t, sym.Type, node.Variable)
		return
	}

	c.emit(Instruction{Op: STOREG, Arg: int64(sym.Slot)})
}

// genIf emits the condition, a branch-if-false past the then arm and,
// with an else arm, an unconditional branch past it. Both patch
// points resolve to the instruction immediately following.
func (c *CodeGenerator) genIf(node *ast.If) {
	c.genCondition(node.Condition)

	endIf := c.newLabel()

	if node.Else != nil {
		elseArm := c.newLabel()
		c.branch(JZ, elseArm)
		c.genStatement(node.Then)
		c.branch(JUMP, endIf)
		c.bind(elseArm)
		c.genStatement(node.Else)
	} else {
		c.branch(JZ, endIf)
		c.genStatement(node.Then)
	}

	c.bind(endIf)
}

// genWhile emits a loop entry label, the condition, a branch-if-false
// past the body, the body, and the back branch.
func (c *CodeGenerator) genWhile(node *ast.While) {
	loop := c.newLabel()
	endLoop := c.newLabel()

	c.bind(loop)
	c.genCondition(node.Condition)
	c.branch(JZ, endLoop)

	c.genStatement(node.Body)
	c.branch(JUMP, loop)
	c.bind(endLoop)
}

// genFor lowers a counted loop: initialize the control variable, test
// it against the bound at the loop head, and step it after the body.
// The bound expression is re-evaluated on every iteration.
func (c *CodeGenerator) genFor(node *ast.For) {
	sym, ok := c.symbols.Lookup(node.Variable)
	if !ok {
		c.fail(node.Position, "undeclared variable %s", node.Variable)
		return
	}
	if sym.Const {
		c.fail(node.Position, "cannot assign to constant %s", node.Variable)
		return
	}
	if sym.Type != ast.Integer {
		c.fail(node.Position, "for loop variable %s must be an integer", node.Variable)
		return
	}

	if t := c.genExpression(node.From); c.err == nil && t != ast.Integer {
		c.fail(node.Position, "for loop bounds must be integers")
	}
	if c.err != nil {
		return
	}
	c.emit(Instruction{Op: STOREG, Arg: int64(sym.Slot)})

	loop := c.newLabel()
	endLoop := c.newLabel()

	c.bind(loop)
	c.emit(Instruction{Op: PUSHG, Arg: int64(sym.Slot)})
	if t := c.genExpression(node.To); c.err == nil && t != ast.Integer {
		c.fail(node.Position, "for loop bounds must be integers")
	}
	if c.err != nil {
		return
	}
	if node.Down {
		c.emit(Instruction{Op: SUPEQ})
	} else {
		c.emit(Instruction{Op: INFEQ})
	}
	c.branch(JZ, endLoop)

	c.genStatement(node.Body)

	c.emit(Instruction{Op: PUSHG, Arg: int64(sym.Slot)})
	c.emit(Instruction{Op: PUSHI, Arg: 1})
	if node.Down {
		c.emit(Instruction{Op: SUB})
	} else {
		c.emit(Instruction{Op: ADD})
	}
	c.emit(Instruction{Op: STOREG, Arg: int64(sym.Slot)})
	c.branch(JUMP, loop)
	c.bind(endLoop)
}

// genWrite emits each argument followed by the output instruction for
// its type. Booleans print as 0 or 1.
func (c *CodeGenerator) genWrite(node *ast.Write) {
	for _, arg := range node.Args {
		t := c.genExpression(arg)
		if c.err != nil {
			return
		}

		switch t {
		case ast.Integer, ast.Boolean:
			c.emit(Instruction{Op: WRITEI})
		case ast.Real:
			c.emit(Instruction{Op: WRITEF})
		case ast.String:
			c.emit(Instruction{Op: WRITES})
		}
	}

	if node.Newline {
		c.emit(Instruction{Op: WRITELN})
	}
}

// genRead emits a read-and-convert-and-store triple per variable.
func (c *CodeGenerator) genRead(node *ast.Read) {
	for _, name := range node.Names {
		sym, ok := c.symbols.Lookup(name)
		if !ok {
			c.fail(node.Position, "undeclared variable %s", name)
			return
		}
		if sym.Const {
			c.fail(node.Position, "cannot read into constant %s", name)
			return
		}

		c.emit(Instruction{Op: READ})
		if sym.Type == ast.Real {
			c.emit(Instruction{Op: ATOF})
		} else {
			c.emit(Instruction{Op: ATOI})
		}
		c.emit(Instruction{Op: STOREG, Arg: int64(sym.Slot)})
	}
}

// genCondition emits a controlling expression and checks it is
// boolean.
func (c *CodeGenerator) genCondition(node ast.Expression) {
	t := c.genExpression(node)
	if c.err == nil && t != ast.Boolean {
		c.fail(position(node), "condition must be a boolean expression")
	}
}

// genExpression generates code for an expression, leaving its value
// on the stack, and returns the expression's type.
func (c *CodeGenerator) genExpression(node ast.Expression) ast.Type {
	if c.err != nil {
		return ast.Unknown
	}

	switch e := node.(type) {
	case *ast.IntLit:
		c.emit(Instruction{Op: PUSHI, Arg: e.Value})
		return ast.Integer

	case *ast.RealLit:
		c.emit(Instruction{Op: PUSHF, Val: e.Value})
		return ast.Real

	case *ast.BoolLit:
		value := int64(0)
		if e.Value {
			value = 1
		}
		c.emit(Instruction{Op: PUSHI, Arg: value})
		return ast.Boolean

	case *ast.StringLit:
		c.emit(Instruction{Op: PUSHS, Str: e.Value})
		return ast.String

	case *ast.VarRef:
		sym, ok := c.symbols.Lookup(e.Name)
		if !ok {
			c.fail(e.Position, "undeclared variable %s", e.Name)
			return ast.Unknown
		}
		if sym.Const {
			switch sym.Type {
			case ast.Real:
				c.emit(Instruction{Op: PUSHF, Val: sym.RealVal})
			case ast.String:
				c.emit(Instruction{Op: PUSHS, Str: sym.StrVal})
			default:
				c.emit(Instruction{Op: PUSHI, Arg: sym.IntVal})
			}
			return sym.Type
		}
		c.emit(Instruction{Op: PUSHG, Arg: int64(sym.Slot)})
		return sym.Type

	case *ast.Unary:
		return c.genUnary(e)

	case *ast.Binary:
		return c.genBinary(e)
	}

	return ast.Unknown
}

// genUnary generates code for a sign or boolean not.
func (c *CodeGenerator) genUnary(node *ast.Unary) ast.Type {
	t := c.genExpression(node.Value)
	if c.err != nil {
		return ast.Unknown
	}

	switch node.Operator {
	case ast.Not:
		if t != ast.Boolean {
			c.fail(node.Position, "operand of not must be boolean")
			return ast.Unknown
		}
		c.emit(Instruction{Op: NOT})
		return ast.Boolean

	case ast.Negate:
		switch t {
		case ast.Integer:
			c.emit(Instruction{Op: PUSHI, Arg: -1})
			c.emit(Instruction{Op: MUL})
		case ast.Real:
			c.emit(Instruction{Op: PUSHF, Val: -1})
			c.emit(Instruction{Op: FMUL})
		default:
			c.fail(node.Position, "operand of unary %s must be numeric", node.Operator)
			return ast.Unknown
		}
		return t
	}

	return t
}

// genBinary generates code for a binary expression. Operand types are
// computed up front so an integer operand can be widened right after
// it is emitted when the other side is real.
func (c *CodeGenerator) genBinary(node *ast.Binary) ast.Type {
	tl, err := c.typeOf(node.LHS)
	if err == nil {
		var tr ast.Type
		if tr, err = c.typeOf(node.RHS); err == nil {
			return c.genBinaryTyped(node, tl, tr)
		}
	}
	if c.err == nil {
		c.err = err
	}
	return ast.Unknown
}

func (c *CodeGenerator) genBinaryTyped(node *ast.Binary, tl, tr ast.Type) ast.Type {

	switch node.Operator {
	case ast.Add, ast.Subtract, ast.Multiply, ast.Divide:
		if !numeric(tl) || !numeric(tr) {
			c.fail(node.Position, "operands of %s must be numeric", node.Operator)
			return ast.Unknown
		}
		if node.Operator == ast.Divide && literalZero(node.RHS) {
			c.fail(node.Position, "division by constant zero")
			return ast.Unknown
		}

		result := ast.Integer
		if tl == ast.Real || tr == ast.Real {
			result = ast.Real
		}

		c.genOperand(node.LHS, tl, result)
		c.genOperand(node.RHS, tr, result)

		var families = map[ast.Operator][2]Opcode{
			ast.Add:      {ADD, FADD},
			ast.Subtract: {SUB, FSUB},
			ast.Multiply: {MUL, FMUL},
			ast.Divide:   {DIV, FDIV},
		}
		family := families[node.Operator]
		if result == ast.Real {
			c.emit(Instruction{Op: family[1]})
		} else {
			c.emit(Instruction{Op: family[0]})
		}
		return result

	case ast.IntDivide, ast.Modulo:
		if tl != ast.Integer || tr != ast.Integer {
			c.fail(node.Position, "operands of %s must be integers", node.Operator)
			return ast.Unknown
		}
		if literalZero(node.RHS) {
			c.fail(node.Position, "division by constant zero")
			return ast.Unknown
		}

		c.genExpression(node.LHS)
		c.genExpression(node.RHS)
		if node.Operator == ast.IntDivide {
			c.emit(Instruction{Op: DIV})
		} else {
			c.emit(Instruction{Op: MOD})
		}
		return ast.Integer

	case ast.And, ast.Or:
		if tl != ast.Boolean || tr != ast.Boolean {
			c.fail(node.Position, "operands of %s must be boolean", node.Operator)
			return ast.Unknown
		}

		c.genExpression(node.LHS)
		c.genExpression(node.RHS)
		if node.Operator == ast.And {
			c.emit(Instruction{Op: AND})
		} else {
			c.emit(Instruction{Op: OR})
		}
		return ast.Boolean
	}

	if node.Operator.Relational() {
		return c.genCompare(node, tl, tr)
	}

	return ast.Unknown
}

// genCompare generates code for a relational comparison. Numeric
// operands are widened to a common kind first; booleans only support
// equality.
func (c *CodeGenerator) genCompare(node *ast.Binary, tl, tr ast.Type) ast.Type {
	if tl == ast.Boolean || tr == ast.Boolean {
		if tl != ast.Boolean || tr != ast.Boolean {
			c.fail(node.Position, "cannot compare %s with %s", tl, tr)
			return ast.Unknown
		}
		if node.Operator != ast.Equal && node.Operator != ast.NotEqual {
			c.fail(node.Position, "booleans only support = and <>")
			return ast.Unknown
		}
	} else if !numeric(tl) || !numeric(tr) {
		c.fail(node.Position, "operands of %s must be numeric", node.Operator)
		return ast.Unknown
	}

	common := tl
	if tl == ast.Real || tr == ast.Real {
		common = ast.Real
	}

	c.genOperand(node.LHS, tl, common)
	c.genOperand(node.RHS, tr, common)

	var comparisons = map[ast.Operator]Opcode{
		ast.Equal:        EQUAL,
		ast.NotEqual:     NEQ,
		ast.Less:         INF,
		ast.LessEqual:    INFEQ,
		ast.Greater:      SUP,
		ast.GreaterEqual: SUPEQ,
	}
	c.emit(Instruction{Op: comparisons[node.Operator]})
	return ast.Boolean
}

// genOperand emits one operand of a mixed-type operation, widening it
// when the operation is carried out on reals.
func (c *CodeGenerator) genOperand(node ast.Expression, t, want ast.Type) {
	c.genExpression(node)
	if c.err == nil && want == ast.Real && t == ast.Integer {
		c.emit(Instruction{Op: ITOF})
	}
}

// typeOf resolves the type of an expression without emitting code.
func (c *CodeGenerator) typeOf(node ast.Expression) (ast.Type, error) {
	switch e := node.(type) {
	case *ast.IntLit:
		return ast.Integer, nil
	case *ast.RealLit:
		return ast.Real, nil
	case *ast.BoolLit:
		return ast.Boolean, nil
	case *ast.StringLit:
		return ast.String, nil

	case *ast.VarRef:
		sym, ok := c.symbols.Lookup(e.Name)
		if !ok {
			return ast.Unknown, &SemanticError{
				Message: fmt.Sprintf("undeclared variable %s", e.Name),
				Pos:     e.Position,
			}
		}
		return sym.Type, nil

	case *ast.Unary:
		t, err := c.typeOf(e.Value)
		if err != nil {
			return ast.Unknown, err
		}
		if e.Operator == ast.Not {
			return ast.Boolean, err
		}
		return t, nil

	case *ast.Binary:
		tl, err := c.typeOf(e.LHS)
		if err != nil {
			return ast.Unknown, err
		}
		tr, err := c.typeOf(e.RHS)
		if err != nil {
			return ast.Unknown, err
		}
		switch {
		case e.Operator.Relational(), e.Operator == ast.And, e.Operator == ast.Or:
			return ast.Boolean, nil
		case e.Operator == ast.IntDivide, e.Operator == ast.Modulo:
			return ast.Integer, nil
		case tl == ast.Real || tr == ast.Real:
			return ast.Real, nil
		}
		return ast.Integer, nil
	}

	return ast.Unknown, nil
}

// numeric reports whether a type supports arithmetic.
func numeric(t ast.Type) bool {
	return t == ast.Integer || t == ast.Real
}

// literalZero reports whether an expression is the literal 0 or 0.0,
// possibly signed.
func literalZero(node ast.Expression) bool {
	switch e := node.(type) {
	case *ast.IntLit:
		return e.Value == 0
	case *ast.RealLit:
		return e.Value == 0
	case *ast.Unary:
		if e.Operator == ast.Negate || e.Operator == ast.Identity {
			return literalZero(e.Value)
		}
	}
	return false
}

// position extracts the source position of an expression node.
func position(node ast.Expression) lexer.Position {
	switch e := node.(type) {
	case *ast.IntLit:
		return e.Position
	case *ast.RealLit:
		return e.Position
	case *ast.BoolLit:
		return e.Position
	case *ast.StringLit:
		return e.Position
	case *ast.VarRef:
		return e.Position
	case *ast.Unary:
		return e.Position
	case *ast.Binary:
		return e.Position
	}
	return lexer.Position{}
}
