// Package parser builds a syntax tree from the token sequence through
// LL(1) recursive descent: one procedure per grammar nonterminal,
// selecting its production from a single token of lookahead.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"pasc/pkg/ast"
	"pasc/pkg/lexer"
)

// tracer traces with key 'pasc.parser'.
func tracer() tracing.Trace {
	return tracing.Select("pasc.parser")
}

// SyntaxError reports the first token that does not match any
// production for the current nonterminal. No partial tree accompanies
// it.
type SyntaxError struct {
	Message  string
	Found    string
	Expected []string
	Pos      lexer.Position
}

// Error returns the string representation of the error.
func (e *SyntaxError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s at line %d, char %d", e.Message, e.Pos.Line+1, e.Pos.Column+1)
	}
	return fmt.Sprintf("found %s, expected %s at line %d, char %d", e.Found,
		strings.Join(e.Expected, ", "), e.Pos.Line+1, e.Pos.Column+1)
}

// relops maps a relational operator lexeme to its AST operator.
var relops = map[string]ast.Operator{
	"=":  ast.Equal,
	"<>": ast.NotEqual,
	"<":  ast.Less,
	"<=": ast.LessEqual,
	">":  ast.Greater,
	">=": ast.GreaterEqual,
}

// Parser consumes the token sequence strictly left-to-right, never
// inspecting more than the current lookahead token. The first error
// stops all further consumption.
type Parser struct {
	scanner   *lexer.Scanner
	lookahead lexer.Token
	err       error
}

// NewParser returns a new instance of Parser.
func NewParser(scanner *lexer.Scanner) *Parser {
	p := &Parser{scanner: scanner}
	p.next()
	return p
}

// Parse parses a program and returns its AST representation, or the
// first lexical or syntax error encountered.
func Parse(src string) (*ast.Program, error) {
	parser := NewParser(lexer.NewScanner(strings.NewReader(src)))
	program := parser.parseProgram()
	if parser.err != nil {
		tracer().Debugf("parse failed: %v", parser.err)
		return nil, parser.err
	}
	return program, nil
}

func (p *Parser) next() {
	tok := p.scanner.Scan()
	if tok.TokenType == lexer.ILLEGAL {
		p.fail(&lexer.Error{Lexeme: tok.Lexeme, Pos: tok.Position})
	}
	p.lookahead = tok
}

// fail records the first error; later errors are consequences of the
// first and are dropped.
func (p *Parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

// match consumes and returns the lookahead token if it has one of the
// given types.
func (p *Parser) match(tokenTypes ...lexer.TokenType) (*lexer.Token, bool) {
	if p.err != nil {
		return &p.lookahead, false
	}

	for _, tokType := range tokenTypes {
		if tokType == p.lookahead.TokenType {
			token := p.lookahead
			p.next()
			return &token, true
		}
	}

	return &p.lookahead, false
}

// expect is match with a syntax error on failure.
func (p *Parser) expect(tokenTypes ...lexer.TokenType) (*lexer.Token, bool) {
	if token, ok := p.match(tokenTypes...); ok {
		return token, true
	}

	expected := make([]string, len(tokenTypes))
	for i, t := range tokenTypes {
		expected[i] = t.String()
	}
	p.expected(expected...)
	return &p.lookahead, false
}

func (p *Parser) expected(expected ...string) {
	p.fail(&SyntaxError{
		Found:    p.lookahead.Lexeme,
		Expected: expected,
		Pos:      p.lookahead.Position,
	})
}

// parseProgram parses a whole program.
// 	program -> [ PROGRAM ID ';' ] declarations compound '.'
func (p *Parser) parseProgram() *ast.Program {
	program := &ast.Program{Position: p.lookahead.Position}

	// The program heading is optional.
	if p.lookahead.TokenType == lexer.PROGRAM {
		p.match(lexer.PROGRAM)
		if token, ok := p.expect(lexer.ID); ok {
			program.Name = token.Lexeme
		}
		p.expect(lexer.SEMICOLON)
	}

	program.Declarations = p.parseDeclarations()
	program.Body = p.parseCompound()

	p.expect(lexer.DOT)
	p.expect(lexer.EOF)

	return program
}

// parseDeclarations parses the declaration part preceding the body.
// 	declarations -> declaration declarations | ε
// 	declaration -> CONST constdefs | VAR vardecls
func (p *Parser) parseDeclarations() []ast.Declaration {
	declarations := []ast.Declaration{}
	for p.err == nil && inSet(firstDeclaration, p.lookahead.TokenType) {
		switch p.lookahead.TokenType {
		case lexer.CONST:
			declarations = append(declarations, p.parseConstDecls()...)
		case lexer.VAR:
			declarations = append(declarations, p.parseVarDecls()...)
		}
	}

	return declarations
}

// parseConstDecls parses a const section with one or more definitions.
// 	constdefs -> ID '=' constant ';' { ID '=' constant ';' }
func (p *Parser) parseConstDecls() []ast.Declaration {
	p.match(lexer.CONST)

	declarations := []ast.Declaration{}
	for first := true; p.err == nil && (first || p.lookahead.TokenType == lexer.ID); first = false {
		decl := &ast.ConstDecl{Position: p.lookahead.Position}

		if token, ok := p.expect(lexer.ID); ok {
			decl.Name = token.Lexeme
		}
		if token, ok := p.match(lexer.RELOP); !ok || token.Lexeme != "=" {
			p.expected("=")
		}
		decl.Value = p.parseConstant()
		p.expect(lexer.SEMICOLON)

		declarations = append(declarations, decl)
	}

	return declarations
}

// parseConstant parses a compile-time constant.
// 	constant -> [ '+' | '-' ] ( INTNUM | REALNUM ) | TRUE | FALSE | STRING
func (p *Parser) parseConstant() ast.Expression {
	pos := p.lookahead.Position

	negate := false
	if token, ok := p.match(lexer.ADDOP); ok {
		negate = token.Lexeme == "-"
	}

	switch p.lookahead.TokenType {
	case lexer.INTNUM, lexer.REALNUM:
		value := p.parseNumber()
		if negate {
			return &ast.Unary{Operator: ast.Negate, Value: value, Position: pos}
		}
		return value

	case lexer.TRUE, lexer.FALSE:
		token, _ := p.match(lexer.TRUE, lexer.FALSE)
		if negate {
			p.expected("number")
			return nil
		}
		return &ast.BoolLit{Value: token.TokenType == lexer.TRUE, Position: pos}

	case lexer.STRING:
		token, _ := p.match(lexer.STRING)
		if negate {
			p.expected("number")
			return nil
		}
		return &ast.StringLit{Value: token.Lexeme, Position: pos}
	}

	p.expected("constant")
	return nil
}

// parseVarDecls parses a var section with one or more declarations.
// 	vardecls -> idlist ':' type ';' { idlist ':' type ';' }
func (p *Parser) parseVarDecls() []ast.Declaration {
	p.match(lexer.VAR)

	declarations := []ast.Declaration{}
	for first := true; p.err == nil && (first || p.lookahead.TokenType == lexer.ID); first = false {
		decl := &ast.VarDecl{Position: p.lookahead.Position}
		decl.Names = p.parseIdentList()
		p.expect(lexer.COLON)
		decl.Type = p.parseType()
		p.expect(lexer.SEMICOLON)

		declarations = append(declarations, decl)
	}

	return declarations
}

// parseIdentList parses a comma separated list of identifiers.
// 	idlist -> ID { ',' ID }
func (p *Parser) parseIdentList() []string {
	names := []string{}

	if token, ok := p.expect(lexer.ID); ok {
		names = append(names, token.Lexeme)
	}

	for p.err == nil && p.lookahead.TokenType == lexer.COMMA {
		p.match(lexer.COMMA)
		if token, ok := p.expect(lexer.ID); ok {
			names = append(names, token.Lexeme)
		}
	}

	return names
}

// parseType parses a type name.
// 	type -> INTEGER | REAL | BOOLEAN
func (p *Parser) parseType() ast.Type {
	token, ok := p.expect(lexer.INTEGER, lexer.REAL, lexer.BOOLEAN)
	if !ok {
		return ast.Unknown
	}

	switch token.TokenType {
	case lexer.INTEGER:
		return ast.Integer
	case lexer.REAL:
		return ast.Real
	case lexer.BOOLEAN:
		return ast.Boolean
	}

	return ast.Unknown
}

// parseCompound parses a begin..end block.
// 	compound -> BEGIN stmtlist END
// 	stmtlist -> [ statement ] { ';' [ statement ] }
func (p *Parser) parseCompound() *ast.Compound {
	block := &ast.Compound{Position: p.lookahead.Position}
	p.expect(lexer.BEGIN)

	statements := []ast.Statement{}
	for p.err == nil {
		if inSet(firstStatement, p.lookahead.TokenType) {
			if statement := p.parseStatement(); statement != nil {
				statements = append(statements, statement)
			}
		}
		if _, ok := p.match(lexer.SEMICOLON); !ok {
			break
		}
	}
	block.Statements = statements

	p.expect(lexer.END)
	return block
}

// parseStatement parses a single statement; the lookahead token
// selects the production.
// 	statement -> assignment | if_stmt | while_stmt | for_stmt
// 		| write_stmt | read_stmt | compound
func (p *Parser) parseStatement() ast.Statement {
	if p.err != nil {
		return nil
	}

	switch p.lookahead.TokenType {
	case lexer.ID:
		return p.parseAssignment()

	case lexer.IF:
		return p.parseIf()

	case lexer.WHILE:
		return p.parseWhile()

	case lexer.FOR:
		return p.parseFor()

	case lexer.WRITE, lexer.WRITELN:
		return p.parseWrite()

	case lexer.READ, lexer.READLN:
		return p.parseRead()

	case lexer.BEGIN:
		return p.parseCompound()
	}

	p.expected("statement")
	return nil
}

// parseAssignment parses an assignment statement.
// 	assignment -> ID ':=' expression
func (p *Parser) parseAssignment() *ast.Assignment {
	result := &ast.Assignment{Position: p.lookahead.Position}

	if token, ok := p.expect(lexer.ID); ok {
		result.Variable = token.Lexeme
	}
	p.expect(lexer.ASSIGN)
	result.Value = p.parseExpression()

	return result
}

// parseIf parses a conditional statement. A dangling else binds to
// the nearest if.
// 	if_stmt -> IF expression THEN statement [ ELSE statement ]
func (p *Parser) parseIf() *ast.If {
	result := &ast.If{Position: p.lookahead.Position}
	p.match(lexer.IF)

	result.Condition = p.parseExpression()
	p.expect(lexer.THEN)
	result.Then = p.parseStatement()

	if _, ok := p.match(lexer.ELSE); ok {
		result.Else = p.parseStatement()
	}

	return result
}

// parseWhile parses a while loop.
// 	while_stmt -> WHILE expression DO statement
func (p *Parser) parseWhile() *ast.While {
	result := &ast.While{Position: p.lookahead.Position}
	p.match(lexer.WHILE)

	result.Condition = p.parseExpression()
	p.expect(lexer.DO)
	result.Body = p.parseStatement()

	return result
}

// parseFor parses a counted loop.
// 	for_stmt -> FOR ID ':=' expression ( TO | DOWNTO ) expression
// 		DO statement
func (p *Parser) parseFor() *ast.For {
	result := &ast.For{Position: p.lookahead.Position}
	p.match(lexer.FOR)

	if token, ok := p.expect(lexer.ID); ok {
		result.Variable = token.Lexeme
	}
	p.expect(lexer.ASSIGN)
	result.From = p.parseExpression()

	if token, ok := p.expect(lexer.TO, lexer.DOWNTO); ok {
		result.Down = token.TokenType == lexer.DOWNTO
	}
	result.To = p.parseExpression()

	p.expect(lexer.DO)
	result.Body = p.parseStatement()

	return result
}

// parseWrite parses a write or writeln statement. A bare writeln
// (no argument list) prints an empty line.
// 	write_stmt -> ( WRITE | WRITELN ) [ '(' expression { ',' expression } ')' ]
func (p *Parser) parseWrite() *ast.Write {
	result := &ast.Write{Position: p.lookahead.Position}

	token, _ := p.match(lexer.WRITE, lexer.WRITELN)
	result.Newline = token.TokenType == lexer.WRITELN

	if _, ok := p.match(lexer.LPAREN); ok {
		result.Args = append(result.Args, p.parseExpression())
		for p.err == nil && p.lookahead.TokenType == lexer.COMMA {
			p.match(lexer.COMMA)
			result.Args = append(result.Args, p.parseExpression())
		}
		p.expect(lexer.RPAREN)
	}

	return result
}

// parseRead parses a read or readln statement.
// 	read_stmt -> ( READ | READLN ) '(' idlist ')'
func (p *Parser) parseRead() *ast.Read {
	result := &ast.Read{Position: p.lookahead.Position}

	p.match(lexer.READ, lexer.READLN)
	p.expect(lexer.LPAREN)
	result.Names = p.parseIdentList()
	p.expect(lexer.RPAREN)

	return result
}

// parseExpression parses an expression with an optional relational
// comparison. Precedence and associativity are encoded by the
// expression / simpleExpr / term / factor grammar shape.
// 	expression -> simpleExpr [ relop simpleExpr ]
func (p *Parser) parseExpression() ast.Expression {
	result := p.parseSimpleExpr()

	if p.lookahead.TokenType == lexer.RELOP {
		token, _ := p.match(lexer.RELOP)
		result = &ast.Binary{
			LHS:      result,
			Operator: relops[token.Lexeme],
			RHS:      p.parseSimpleExpr(),
			Position: token.Position,
		}
	}

	return result
}

// parseSimpleExpr parses a sum-level expression.
// 	simpleExpr -> [ '+' | '-' ] term { ( '+' | '-' | OR ) term }
func (p *Parser) parseSimpleExpr() ast.Expression {
	pos := p.lookahead.Position

	negate := false
	if token, ok := p.match(lexer.ADDOP); ok {
		negate = token.Lexeme == "-"
	}

	result := p.parseTerm()
	if negate {
		result = &ast.Unary{Operator: ast.Negate, Value: result, Position: pos}
	}

	for p.err == nil {
		var op ast.Operator
		switch {
		case p.lookahead.TokenType == lexer.ADDOP && p.lookahead.Lexeme == "+":
			op = ast.Add
		case p.lookahead.TokenType == lexer.ADDOP:
			op = ast.Subtract
		case p.lookahead.TokenType == lexer.OR:
			op = ast.Or
		default:
			return result
		}

		token, _ := p.match(lexer.ADDOP, lexer.OR)
		result = &ast.Binary{
			LHS:      result,
			Operator: op,
			RHS:      p.parseTerm(),
			Position: token.Position,
		}
	}

	return result
}

// parseTerm parses a product-level expression.
// 	term -> factor { ( '*' | '/' | DIV | MOD | AND ) factor }
func (p *Parser) parseTerm() ast.Expression {
	result := p.parseFactor()

	for p.err == nil {
		var op ast.Operator
		switch {
		case p.lookahead.TokenType == lexer.MULOP && p.lookahead.Lexeme == "*":
			op = ast.Multiply
		case p.lookahead.TokenType == lexer.MULOP:
			op = ast.Divide
		case p.lookahead.TokenType == lexer.DIV:
			op = ast.IntDivide
		case p.lookahead.TokenType == lexer.MOD:
			op = ast.Modulo
		case p.lookahead.TokenType == lexer.AND:
			op = ast.And
		default:
			return result
		}

		token, _ := p.match(lexer.MULOP, lexer.DIV, lexer.MOD, lexer.AND)
		result = &ast.Binary{
			LHS:      result,
			Operator: op,
			RHS:      p.parseFactor(),
			Position: token.Position,
		}
	}

	return result
}

// parseFactor parses the highest precedence level.
// 	factor -> ID | INTNUM | REALNUM | STRING | TRUE | FALSE
// 		| '(' expression ')' | NOT factor
func (p *Parser) parseFactor() ast.Expression {
	if p.err != nil {
		return nil
	}

	pos := p.lookahead.Position

	switch p.lookahead.TokenType {
	case lexer.ID:
		token, _ := p.match(lexer.ID)
		return &ast.VarRef{Name: token.Lexeme, Position: pos}

	case lexer.INTNUM, lexer.REALNUM:
		return p.parseNumber()

	case lexer.STRING:
		token, _ := p.match(lexer.STRING)
		return &ast.StringLit{Value: token.Lexeme, Position: pos}

	case lexer.TRUE, lexer.FALSE:
		token, _ := p.match(lexer.TRUE, lexer.FALSE)
		return &ast.BoolLit{Value: token.TokenType == lexer.TRUE, Position: pos}

	case lexer.LPAREN:
		p.match(lexer.LPAREN)
		result := p.parseExpression()
		p.expect(lexer.RPAREN)
		return result

	case lexer.NOT:
		p.match(lexer.NOT)
		return &ast.Unary{Operator: ast.Not, Value: p.parseFactor(), Position: pos}
	}

	p.expected("identifier", "number", "(", "not")
	return nil
}

// parseNumber parses an integer or real literal.
func (p *Parser) parseNumber() ast.Expression {
	pos := p.lookahead.Position

	if token, ok := p.match(lexer.INTNUM); ok {
		value, err := strconv.ParseInt(token.Lexeme, 10, 64)
		if err != nil {
			p.fail(&SyntaxError{
				Message: fmt.Sprintf("%s is not a valid integer", token.Lexeme),
				Pos:     pos,
			})
			return nil
		}
		return &ast.IntLit{Value: value, Position: pos}
	}

	if token, ok := p.expect(lexer.REALNUM); ok {
		value, err := strconv.ParseFloat(token.Lexeme, 64)
		if err != nil {
			p.fail(&SyntaxError{
				Message: fmt.Sprintf("%s is not a valid number", token.Lexeme),
				Pos:     pos,
			})
			return nil
		}
		return &ast.RealLit{Value: value, Position: pos}
	}

	return nil
}
