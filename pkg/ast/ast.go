// Package ast defines the syntax tree produced by the parser. Nodes
// form a closed set of variants; the tree printer and the code
// generator are exhaustive switches over the same set.
package ast

import "pasc/pkg/lexer"

// Type represents the primitive data types of the language.
type Type int

const (
	// Unknown primitive data type.
	Unknown Type = iota
	// Integer means the data type is an integer.
	Integer
	// Real means the data type is a real.
	Real
	// Boolean means the data type is a boolean.
	Boolean
	// String is the type of string literals; it has no variables.
	String
)

var typeNames = [...]string{
	Unknown: "unknown",
	Integer: "integer",
	Real:    "real",
	Boolean: "boolean",
	String:  "string",
}

// String returns the source-level spelling of the type.
func (t Type) String() string {
	if t >= 0 && t < Type(len(typeNames)) {
		return typeNames[t]
	}
	return "unknown"
}

// Operator represents a boolean, relational or arithmetic operator.
type Operator int

// Types of operators.
const (
	Add          Operator = iota // +
	Subtract                     // -
	Multiply                     // *
	Divide                       // /
	IntDivide                    // div
	Modulo                       // mod
	And                          // and
	Or                           // or
	Not                          // not
	Negate                       // unary -
	Identity                     // unary +
	Equal                        // =
	NotEqual                     // <>
	Less                         // <
	LessEqual                    // <=
	Greater                      // >
	GreaterEqual                 // >=
)

var operatorNames = [...]string{
	Add:          "+",
	Subtract:     "-",
	Multiply:     "*",
	Divide:       "/",
	IntDivide:    "div",
	Modulo:       "mod",
	And:          "and",
	Or:           "or",
	Not:          "not",
	Negate:       "-",
	Identity:     "+",
	Equal:        "=",
	NotEqual:     "<>",
	Less:         "<",
	LessEqual:    "<=",
	Greater:      ">",
	GreaterEqual: ">=",
}

// String returns the source-level spelling of the operator.
func (op Operator) String() string {
	if op >= 0 && op < Operator(len(operatorNames)) {
		return operatorNames[op]
	}
	return ""
}

// Relational reports whether the operator compares two operands.
func (op Operator) Relational() bool {
	switch op {
	case Equal, NotEqual, Less, LessEqual, Greater, GreaterEqual:
		return true
	}
	return false
}

// Node represents a node in the abstract syntax tree.
type Node interface {
	// node is unexported to ensure implementations of Node
	// can only originate in this package.
	node()
}

// Program represents the root node of a program.
type Program struct {
	Name         string
	Declarations []Declaration
	Body         *Compound
	Position     lexer.Position
}

// Declaration introduces one or more names before the program body.
type Declaration interface {
	Node
	// declaration is unexported to ensure implementations of
	// Declaration can only originate in this package.
	declaration()
}

// VarDecl declares one or more variables of a common type,
// e.g: var x, y: integer;
type VarDecl struct {
	Names    []string
	Type     Type
	Position lexer.Position
}

// ConstDecl binds a name to a compile-time constant value,
// e.g: const pi = 3.14;
type ConstDecl struct {
	Name     string
	Value    Expression
	Position lexer.Position
}

// Statement represents a single command.
type Statement interface {
	Node
	// statement is unexported to ensure implementations of Statement
	// can only originate in this package.
	statement()
}

// Assignment stores the value of an expression in a variable,
// e.g: x := 5
type Assignment struct {
	Variable string
	Value    Expression
	Position lexer.Position
}

// If represents a conditional command. The else branch is nil when
// absent; a dangling else binds to the nearest if.
type If struct {
	Condition Expression
	Then      Statement
	Else      Statement
	Position  lexer.Position
}

// While is a control flow statement that executes its body repeatedly
// as long as the condition holds.
type While struct {
	Condition Expression
	Body      Statement
	Position  lexer.Position
}

// For is a counted loop over an integer control variable,
// e.g: for i := 1 to 10 do ...
type For struct {
	Variable string
	From     Expression
	To       Expression
	Down     bool // downto instead of to
	Body     Statement
	Position lexer.Position
}

// Write prints one expression per argument, e.g: writeln(x + y).
type Write struct {
	Args     []Expression
	Newline  bool // writeln instead of write
	Position lexer.Position
}

// Read reads one input value per named variable, e.g: readln(a, b).
type Read struct {
	Names    []string
	Position lexer.Position
}

// Compound is a begin..end block of statements. It is itself a
// statement.
type Compound struct {
	Statements []Statement
	Position   lexer.Position
}

// Expression is a combination of literals, variables and operators
// that can be evaluated to a value.
type Expression interface {
	Node
	// expression is unexported to ensure implementations of
	// Expression can only originate in this package.
	expression()
}

// Binary is an expression combining two operands with an arithmetic,
// relational or boolean operator. Children are ordered left-to-right
// as written in the source.
type Binary struct {
	LHS      Expression
	Operator Operator
	RHS      Expression
	Position lexer.Position
}

// Unary applies a sign or a boolean not to a single operand.
type Unary struct {
	Operator Operator
	Value    Expression
	Position lexer.Position
}

// VarRef is an expression that reads a single variable or constant.
type VarRef struct {
	Name     string
	Position lexer.Position
}

// IntLit is a constant integer number.
type IntLit struct {
	Value    int64
	Position lexer.Position
}

// RealLit is a constant real number.
type RealLit struct {
	Value    float64
	Position lexer.Position
}

// StringLit is a constant string; it may only appear as a write
// argument.
type StringLit struct {
	Value    string
	Position lexer.Position
}

// BoolLit is the constant true or false.
type BoolLit struct {
	Value    bool
	Position lexer.Position
}

func (*Program) node()    {}
func (*VarDecl) node()    {}
func (*ConstDecl) node()  {}
func (*Assignment) node() {}
func (*If) node()         {}
func (*While) node()      {}
func (*For) node()        {}
func (*Write) node()      {}
func (*Read) node()       {}
func (*Compound) node()   {}
func (*Binary) node()     {}
func (*Unary) node()      {}
func (*VarRef) node()     {}
func (*IntLit) node()     {}
func (*RealLit) node()    {}
func (*StringLit) node()  {}
func (*BoolLit) node()    {}

func (*VarDecl) declaration()   {}
func (*ConstDecl) declaration() {}

func (*Assignment) statement() {}
func (*If) statement()         {}
func (*While) statement()      {}
func (*For) statement()        {}
func (*Write) statement()      {}
func (*Read) statement()       {}
func (*Compound) statement()   {}

func (*Binary) expression()    {}
func (*Unary) expression()     {}
func (*VarRef) expression()    {}
func (*IntLit) expression()    {}
func (*RealLit) expression()   {}
func (*StringLit) expression() {}
func (*BoolLit) expression()   {}
