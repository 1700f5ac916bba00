package codegen

import (
	"fmt"
	"strings"

	"pasc/pkg/ast"
)

// Symbol is one entry of the symbol table: a declared variable with
// its storage slot, or a named compile-time constant (which occupies
// no slot).
type Symbol struct {
	Name string
	Type ast.Type
	Slot int // storage slot index; -1 for constants

	Const   bool
	IntVal  int64   // constant value for integer and boolean constants
	RealVal float64 // constant value for real constants
	StrVal  string  // constant value for string constants
}

// SymbolTable maps declared names to their symbols. A name is unique
// within the table; storage slots are assigned in declaration order
// starting at zero. A fresh table is created per compilation.
type SymbolTable struct {
	symbols map[string]*Symbol
	order   []*Symbol
	slots   int
}

// NewSymbolTable returns a new empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: map[string]*Symbol{}}
}

// Declare adds a variable of the given type, assigning it the next
// free slot. Reports false when the name is already declared.
func (t *SymbolTable) Declare(name string, typ ast.Type) (*Symbol, bool) {
	if _, exists := t.symbols[name]; exists {
		return nil, false
	}

	sym := &Symbol{Name: name, Type: typ, Slot: t.slots}
	t.slots++
	t.symbols[name] = sym
	t.order = append(t.order, sym)
	return sym, true
}

// DeclareConst adds a named constant. Reports false when the name is
// already declared.
func (t *SymbolTable) DeclareConst(name string, typ ast.Type) (*Symbol, bool) {
	if _, exists := t.symbols[name]; exists {
		return nil, false
	}

	sym := &Symbol{Name: name, Type: typ, Slot: -1, Const: true}
	t.symbols[name] = sym
	t.order = append(t.order, sym)
	return sym, true
}

// Lookup resolves a name to its symbol.
func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, ok := t.symbols[name]
	return sym, ok
}

// Symbols returns all entries in declaration order.
func (t *SymbolTable) Symbols() []*Symbol {
	return t.order
}

// Slots returns the number of storage slots in use.
func (t *SymbolTable) Slots() int {
	return t.slots
}

// String renders the table as a flat listing, one entry per line.
func (t *SymbolTable) String() string {
	var b strings.Builder
	for _, sym := range t.order {
		if sym.Const {
			fmt.Fprintf(&b, "const %s %s\n", sym.Name, sym.Type)
		} else {
			fmt.Fprintf(&b, "%d %s %s\n", sym.Slot, sym.Name, sym.Type)
		}
	}
	return b.String()
}
