package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dump returns a deterministic, indentation-based rendering of the
// tree rooted at node. Each node is printed as "construct: detail" on
// its own line, with children indented by two further spaces. The
// traversal is read-only.
func Dump(node Node) string {
	var b strings.Builder
	Fdump(&b, node)
	return b.String()
}

// Fdump writes the rendering produced by Dump to w.
func Fdump(w io.Writer, node Node) {
	dump(w, node, 0)
}

func dump(w io.Writer, node Node, level int) {
	indent := strings.Repeat("  ", level)

	switch n := node.(type) {
	case *Program:
		if n.Name != "" {
			fmt.Fprintf(w, "%sprogram: %s\n", indent, n.Name)
		} else {
			fmt.Fprintf(w, "%sprogram\n", indent)
		}
		for _, d := range n.Declarations {
			dump(w, d, level+1)
		}
		dump(w, n.Body, level+1)

	case *VarDecl:
		fmt.Fprintf(w, "%svar: %s: %s\n", indent, strings.Join(n.Names, ", "), n.Type)

	case *ConstDecl:
		fmt.Fprintf(w, "%sconst: %s\n", indent, n.Name)
		dump(w, n.Value, level+1)

	case *Compound:
		fmt.Fprintf(w, "%scompound\n", indent)
		for _, s := range n.Statements {
			dump(w, s, level+1)
		}

	case *Assignment:
		fmt.Fprintf(w, "%sassignment: %s\n", indent, n.Variable)
		dump(w, n.Value, level+1)

	case *If:
		fmt.Fprintf(w, "%sif\n", indent)
		dump(w, n.Condition, level+1)
		dump(w, n.Then, level+1)
		if n.Else != nil {
			fmt.Fprintf(w, "%selse\n", indent)
			dump(w, n.Else, level+1)
		}

	case *While:
		fmt.Fprintf(w, "%swhile\n", indent)
		dump(w, n.Condition, level+1)
		dump(w, n.Body, level+1)

	case *For:
		direction := "to"
		if n.Down {
			direction = "downto"
		}
		fmt.Fprintf(w, "%sfor: %s %s\n", indent, n.Variable, direction)
		dump(w, n.From, level+1)
		dump(w, n.To, level+1)
		dump(w, n.Body, level+1)

	case *Write:
		label := "write"
		if n.Newline {
			label = "writeln"
		}
		fmt.Fprintf(w, "%s%s\n", indent, label)
		for _, a := range n.Args {
			dump(w, a, level+1)
		}

	case *Read:
		fmt.Fprintf(w, "%sread: %s\n", indent, strings.Join(n.Names, ", "))

	case *Binary:
		fmt.Fprintf(w, "%sbinary: %s\n", indent, n.Operator)
		dump(w, n.LHS, level+1)
		dump(w, n.RHS, level+1)

	case *Unary:
		fmt.Fprintf(w, "%sunary: %s\n", indent, n.Operator)
		dump(w, n.Value, level+1)

	case *VarRef:
		fmt.Fprintf(w, "%svariable: %s\n", indent, n.Name)

	case *IntLit:
		fmt.Fprintf(w, "%sinteger: %d\n", indent, n.Value)

	case *RealLit:
		fmt.Fprintf(w, "%sreal: %s\n", indent, strconv.FormatFloat(n.Value, 'g', -1, 64))

	case *StringLit:
		fmt.Fprintf(w, "%sstring: %q\n", indent, n.Value)

	case *BoolLit:
		fmt.Fprintf(w, "%sboolean: %t\n", indent, n.Value)
	}
}
