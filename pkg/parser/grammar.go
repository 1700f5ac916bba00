package parser

import (
	"fmt"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"

	"pasc/pkg/lexer"
)

// The predictive lookup tables below are derived from the FIRST sets
// of the grammar's nonterminals. They are immutable process-wide
// configuration, built once at package initialization; the parser
// consults them to pick a production from the single lookahead token.

func tokenSet(toks ...lexer.TokenType) *treeset.Set {
	s := treeset.NewWith(utils.IntComparator)
	for _, t := range toks {
		s.Add(int(t))
	}
	return s
}

func inSet(s *treeset.Set, t lexer.TokenType) bool {
	return s.Contains(int(t))
}

// FIRST sets of the selecting nonterminals.
var (
	firstDeclaration = tokenSet(lexer.CONST, lexer.VAR)

	firstStatement = tokenSet(lexer.ID, lexer.IF, lexer.WHILE, lexer.FOR,
		lexer.WRITE, lexer.WRITELN, lexer.READ, lexer.READLN, lexer.BEGIN)

	firstFactor = tokenSet(lexer.ID, lexer.INTNUM, lexer.REALNUM,
		lexer.STRING, lexer.TRUE, lexer.FALSE, lexer.LPAREN, lexer.NOT)

	firstType = tokenSet(lexer.INTEGER, lexer.REAL, lexer.BOOLEAN)

	firstConstant = tokenSet(lexer.INTNUM, lexer.REALNUM, lexer.TRUE,
		lexer.FALSE, lexer.STRING, lexer.ADDOP)
)

// selections lists, per nonterminal with more than one production,
// the FIRST set of each alternative. The sets of one nonterminal must
// be pairwise disjoint for the grammar to be LL(1).
//
// The grammar has one deliberate relaxation: an 'else' in the
// lookahead always continues the innermost if statement (dangling
// else), which needs no entry here since the else arm is optional
// rather than a production choice.
var selections = map[string][]*treeset.Set{
	"declaration": {
		tokenSet(lexer.CONST),
		tokenSet(lexer.VAR),
	},
	"statement": {
		tokenSet(lexer.ID),
		tokenSet(lexer.IF),
		tokenSet(lexer.WHILE),
		tokenSet(lexer.FOR),
		tokenSet(lexer.WRITE, lexer.WRITELN),
		tokenSet(lexer.READ, lexer.READLN),
		tokenSet(lexer.BEGIN),
	},
	"type": {
		tokenSet(lexer.INTEGER),
		tokenSet(lexer.REAL),
		tokenSet(lexer.BOOLEAN),
	},
	"factor": {
		tokenSet(lexer.ID),
		tokenSet(lexer.INTNUM),
		tokenSet(lexer.REALNUM),
		tokenSet(lexer.STRING),
		tokenSet(lexer.TRUE, lexer.FALSE),
		tokenSet(lexer.LPAREN),
		tokenSet(lexer.NOT),
	},
}

func init() {
	if err := verifyLL1(); err != nil {
		// A conflicting grammar is a defect in this package, not a
		// condition a caller can handle.
		panic(err)
	}
}

// verifyLL1 checks that for every selection point the FIRST sets of
// the alternatives are pairwise disjoint.
func verifyLL1() error {
	for nt, alternatives := range selections {
		for i := 0; i < len(alternatives); i++ {
			for j := i + 1; j < len(alternatives); j++ {
				for _, v := range alternatives[i].Values() {
					if alternatives[j].Contains(v) {
						tok := lexer.TokenType(v.(int))
						return fmt.Errorf(
							"grammar is not LL(1): token %s selects two productions of %s",
							tok, nt)
					}
				}
			}
		}
	}
	return nil
}
