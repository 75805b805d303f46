package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// MaxArgs is the number of integer argument registers; calls and
// definitions are limited to this many.
const MaxArgs = 6

// Param is one declared parameter of a function.
type Param struct {
	Name string
	Type Type
}

// Func is a parsed function: its signature and its private node arena.
type Func struct {
	Name    string
	Pos     Pos
	Params  []Param
	Program *NodeList
}

func (f *Func) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type.String() + " " + p.Name
	}
	return fmt.Sprintf("Func(%s(%s), nodes=%d, roots=%d)", f.Name, strings.Join(params, ", "), len(f.Program.Nodes), len(f.Program.Roots))
}

// Parser consumes a TokenList and builds one NodeList per function, typing
// every expression as it goes.
//
// Grammar:
//
//	program    = func* EOF
//	func       = "int" "*"* ident "(" (param ("," param)*)? ")" "{" stmt* "}"
//	param      = "int" "*"* ident
//	stmt       = expr ";"
//	           | "{" stmt* "}"
//	           | "int" "*"* ident ";"
//	           | "if" "(" expr ")" stmt ("else" stmt)?
//	           | "while" "(" expr ")" stmt
//	           | "for" "(" expr? ";" expr? ";" expr? ")" stmt
//	           | "return" expr ";"
//	expr       = assign
//	assign     = equality ("=" assign)?
//	equality   = relational (("==" | "!=") relational)*
//	relational = add (("<" | "<=" | ">" | ">=") add)*
//	add        = mul (("+" | "-") mul)*
//	mul        = unary (("*" | "/") unary)*
//	unary      = ("sizeof" | "+" | "-" | "*" | "&") unary | primary
//	primary    = num | ident ("(" (expr ("," expr)*)? ")")? | "(" expr ")"
type Parser struct {
	tl *TokenList
	nl *NodeList // arena of the function being parsed
}

func NewParser(tl *TokenList) *Parser {
	return &Parser{tl: tl}
}

// Parse consumes the whole token sequence and returns the functions in
// source order. The first error stops parsing.
func Parse(tl *TokenList) ([]*Func, error) {
	p := NewParser(tl)
	var funcs []*Func
	seen := make(map[string]bool)
	for !tl.atEOF() {
		f, err := p.parseFunc()
		if err != nil {
			return nil, err
		}
		if seen[f.Name] {
			return nil, newError(KindSemantic, f.Pos, tl.Line(f.Pos.Row), "redefinition of function %q", f.Name)
		}
		seen[f.Name] = true
		funcs = append(funcs, f)
	}
	return funcs, nil
}

func (p *Parser) errorAt(kind ErrorKind, tok Token, format string, args ...any) *Error {
	return p.tl.errorAt(kind, tok, format, args...)
}

// semanticAt turns a type-model error into a positioned semantic error.
func (p *Parser) semanticAt(tok Token, err error) *Error {
	e := p.errorAt(KindSemantic, tok, "%s", err)
	e.Err = err
	return e
}

func (p *Parser) typeOf(i int) Type {
	return p.nl.Node(i).Type
}

// parsePointerDepth counts a run of '*' declarators.
func (p *Parser) parsePointerDepth() int {
	depth := 0
	for p.tl.consume(STAR) {
		depth++
	}
	return depth
}

// parseFunc parses one function definition into a fresh arena.
func (p *Parser) parseFunc() (*Func, error) {
	if _, err := p.tl.expect(INT); err != nil {
		return nil, err
	}
	p.parsePointerDepth() // return type depth is not tracked

	nameTok, err := p.tl.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.tl.expect(LPAREN); err != nil {
		return nil, err
	}

	var params []Param
	if !p.tl.consume(RPAREN) {
		for {
			if len(params) == MaxArgs {
				return nil, p.errorAt(KindSemantic, p.tl.peek(), "too many parameters in definition of %q (at most %d)", nameTok.Lexeme, MaxArgs)
			}
			if _, err := p.tl.expect(INT); err != nil {
				return nil, err
			}
			depth := p.parsePointerDepth()
			paramTok, err := p.tl.expectIdent()
			if err != nil {
				return nil, err
			}
			params = append(params, Param{Name: paramTok.Lexeme, Type: IntType(depth)})

			if p.tl.consume(RPAREN) {
				break
			}
			if _, err := p.tl.expect(COMMA); err != nil {
				return nil, err
			}
		}
	}

	if _, err := p.tl.expect(LBRACE); err != nil {
		return nil, err
	}

	p.nl = newNodeList()
	for _, param := range params {
		if _, err := p.nl.Locals.Declare(param.Name, param.Type); err != nil {
			return nil, p.semanticAt(nameTok, err)
		}
	}

	for !p.tl.consume(RBRACE) {
		if p.tl.atEOF() {
			return nil, p.errorAt(KindSyntax, p.tl.peek(), "expected '}', got end of input")
		}
		root, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		p.nl.Roots = append(p.nl.Roots, root)
	}

	f := &Func{Name: nameTok.Lexeme, Pos: nameTok.Pos, Params: params, Program: p.nl}
	p.nl = nil
	return f, nil
}

// parseStmt parses one statement and returns its root handle.
func (p *Parser) parseStmt() (int, error) {
	tok := p.tl.peek()
	switch tok.Type {
	case LBRACE:
		p.tl.advance()
		return p.parseBlock(tok)
	case RETURN:
		p.tl.advance()
		return p.parseReturn(tok)
	case INT:
		p.tl.advance()
		return p.parseDecl(tok)
	case IF:
		p.tl.advance()
		return p.parseIf(tok)
	case WHILE:
		p.tl.advance()
		return p.parseWhile(tok)
	case FOR:
		p.tl.advance()
		return p.parseFor(tok)
	}

	expr, err := p.parseExpr()
	if err != nil {
		return NoNode, err
	}
	if _, err := p.tl.expect(SEMICOLON); err != nil {
		return NoNode, err
	}
	return expr, nil
}

// parseBlock builds the right-threaded Block chain for { stmt* }. The
// leading LBRACE has been consumed.
func (p *Parser) parseBlock(open Token) (int, error) {
	head := p.nl.appendNode(NodeBlock, open.Pos, NoNode, NoNode, "", StmtType)
	cur := head
	for !p.tl.consume(RBRACE) {
		if p.tl.atEOF() {
			return NoNode, p.errorAt(KindSyntax, p.tl.peek(), "expected '}', got end of input")
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return NoNode, err
		}
		next := p.nl.appendNode(NodeBlock, p.tl.peek().Pos, NoNode, NoNode, "", StmtType)
		p.nl.Node(cur).Lhs = stmt
		p.nl.Node(cur).Rhs = next
		cur = next
	}
	return head, nil
}

// parseReturn parses the rest of return expr ;
func (p *Parser) parseReturn(kw Token) (int, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return NoNode, err
	}
	if _, err := p.tl.expect(SEMICOLON); err != nil {
		return NoNode, err
	}
	return p.nl.appendNode(NodeReturn, kw.Pos, expr, NoNode, "", StmtType), nil
}

// parseDecl parses the rest of int *... name ; and allocates the slot.
func (p *Parser) parseDecl(kw Token) (int, error) {
	depth := p.parsePointerDepth()
	nameTok, err := p.tl.expectIdent()
	if err != nil {
		return NoNode, err
	}
	if _, err := p.nl.Locals.Declare(nameTok.Lexeme, IntType(depth)); err != nil {
		return NoNode, p.semanticAt(nameTok, err)
	}
	if _, err := p.tl.expect(SEMICOLON); err != nil {
		return NoNode, err
	}
	return p.nl.appendNode(NodeDecl, nameTok.Pos, NoNode, NoNode, nameTok.Lexeme, StmtType), nil
}

// parseParenExpr parses ( expr ).
func (p *Parser) parseParenExpr() (int, error) {
	if _, err := p.tl.expect(LPAREN); err != nil {
		return NoNode, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return NoNode, err
	}
	if _, err := p.tl.expect(RPAREN); err != nil {
		return NoNode, err
	}
	return expr, nil
}

// parseIf parses if ( cond ) then [ else otherwise ] into
// If(IfFlag(cond), IfStmt(then, otherwise)).
func (p *Parser) parseIf(kw Token) (int, error) {
	condTok := p.tl.peek()
	cond, err := p.parseParenExpr()
	if err != nil {
		return NoNode, err
	}
	flag := p.nl.appendNode(NodeIfFlag, condTok.Pos, cond, NoNode, "", StmtType)

	bodyTok := p.tl.peek()
	then, err := p.parseStmt()
	if err != nil {
		return NoNode, err
	}
	otherwise := NoNode
	if p.tl.consume(ELSE) {
		otherwise, err = p.parseStmt()
		if err != nil {
			return NoNode, err
		}
	}
	branches := p.nl.appendNode(NodeIfStmt, bodyTok.Pos, then, otherwise, "", StmtType)
	return p.nl.appendNode(NodeIf, kw.Pos, flag, branches, "", StmtType), nil
}

// parseWhile parses while ( cond ) body.
func (p *Parser) parseWhile(kw Token) (int, error) {
	cond, err := p.parseParenExpr()
	if err != nil {
		return NoNode, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return NoNode, err
	}
	return p.nl.appendNode(NodeWhile, kw.Pos, cond, body, "", StmtType), nil
}

// parseFor parses for ( init? ; cond? ; post? ) body into
// For(ForFst(init, cond), ForSnd(post, body)).
func (p *Parser) parseFor(kw Token) (int, error) {
	if _, err := p.tl.expect(LPAREN); err != nil {
		return NoNode, err
	}
	fstTok := p.tl.peek()
	init, err := p.parseOptionalExpr(SEMICOLON)
	if err != nil {
		return NoNode, err
	}
	cond, err := p.parseOptionalExpr(SEMICOLON)
	if err != nil {
		return NoNode, err
	}
	sndTok := p.tl.peek()
	post, err := p.parseOptionalExpr(RPAREN)
	if err != nil {
		return NoNode, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return NoNode, err
	}
	fst := p.nl.appendNode(NodeForFst, fstTok.Pos, init, cond, "", StmtType)
	snd := p.nl.appendNode(NodeForSnd, sndTok.Pos, post, body, "", StmtType)
	return p.nl.appendNode(NodeFor, kw.Pos, fst, snd, "", StmtType), nil
}

// parseOptionalExpr parses expr? followed by the terminator.
func (p *Parser) parseOptionalExpr(terminator TokenType) (int, error) {
	if p.tl.consume(terminator) {
		return NoNode, nil
	}
	expr, err := p.parseExpr()
	if err != nil {
		return NoNode, err
	}
	if _, err := p.tl.expect(terminator); err != nil {
		return NoNode, err
	}
	return expr, nil
}

// parseExpr is the entry point for expression parsing.
func (p *Parser) parseExpr() (int, error) {
	return p.parseAssign()
}

// parseAssign handles right-associative =. The target must be a variable or
// a dereference, and the value must fit the target's type.
func (p *Parser) parseAssign() (int, error) {
	lhs, err := p.parseEquality()
	if err != nil {
		return NoNode, err
	}
	opTok := p.tl.peek()
	if !p.tl.consume(ASSIGN) {
		return lhs, nil
	}
	rhs, err := p.parseAssign()
	if err != nil {
		return NoNode, err
	}

	target := p.nl.Node(lhs)
	if target.Kind != NodeLvar && target.Kind != NodeDeref {
		return NoNode, p.semanticAt(opTok, fmt.Errorf("%w: %s is not assignable", ErrAssignTarget, target.Kind))
	}
	if err := AssignmentCompatible(target.Type, p.typeOf(rhs)); err != nil {
		return NoNode, p.semanticAt(opTok, err)
	}
	return p.nl.appendNode(NodeAssign, opTok.Pos, lhs, rhs, "", p.typeOf(rhs)), nil
}

// parseEquality handles == and !=
func (p *Parser) parseEquality() (int, error) {
	expr, err := p.parseRelational()
	if err != nil {
		return NoNode, err
	}
	for {
		opTok := p.tl.peek()
		var kind NodeKind
		switch {
		case p.tl.consume(EQUALS):
			kind = NodeEq
		case p.tl.consume(NOT_EQ):
			kind = NodeNe
		default:
			return expr, nil
		}
		rhs, err := p.parseRelational()
		if err != nil {
			return NoNode, err
		}
		expr = p.nl.appendNode(kind, opTok.Pos, expr, rhs, "", IntType(0))
	}
}

// parseRelational handles < and <=; > and >= are rewritten with their
// operands swapped.
func (p *Parser) parseRelational() (int, error) {
	expr, err := p.parseAdditive()
	if err != nil {
		return NoNode, err
	}
	for {
		opTok := p.tl.peek()
		var kind NodeKind
		swap := false
		switch {
		case p.tl.consume(LESS):
			kind = NodeLt
		case p.tl.consume(LESS_EQ):
			kind = NodeLe
		case p.tl.consume(GREATER):
			kind, swap = NodeLt, true
		case p.tl.consume(GREATER_EQ):
			kind, swap = NodeLe, true
		default:
			return expr, nil
		}
		rhs, err := p.parseAdditive()
		if err != nil {
			return NoNode, err
		}
		if swap {
			expr = p.nl.appendNode(kind, opTok.Pos, rhs, expr, "", IntType(0))
		} else {
			expr = p.nl.appendNode(kind, opTok.Pos, expr, rhs, "", IntType(0))
		}
	}
}

// parseAdditive handles + and -
func (p *Parser) parseAdditive() (int, error) {
	expr, err := p.parseMultiplicative()
	if err != nil {
		return NoNode, err
	}
	for {
		opTok := p.tl.peek()
		var kind NodeKind
		switch {
		case p.tl.consume(PLUS):
			kind = NodeAdd
		case p.tl.consume(MINUS):
			kind = NodeSub
		default:
			return expr, nil
		}
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return NoNode, err
		}
		if expr, err = p.binary(kind, opTok, expr, rhs); err != nil {
			return NoNode, err
		}
	}
}

// parseMultiplicative handles * and /
func (p *Parser) parseMultiplicative() (int, error) {
	expr, err := p.parseUnary()
	if err != nil {
		return NoNode, err
	}
	for {
		opTok := p.tl.peek()
		var kind NodeKind
		switch {
		case p.tl.consume(STAR):
			kind = NodeMul
		case p.tl.consume(SLASH):
			kind = NodeDiv
		default:
			return expr, nil
		}
		rhs, err := p.parseUnary()
		if err != nil {
			return NoNode, err
		}
		if expr, err = p.binary(kind, opTok, expr, rhs); err != nil {
			return NoNode, err
		}
	}
}

// binary appends an arithmetic node typed by BinaryCombine.
func (p *Parser) binary(kind NodeKind, opTok Token, lhs, rhs int) (int, error) {
	typ, err := BinaryCombine(p.typeOf(lhs), p.typeOf(rhs))
	if err != nil {
		return NoNode, p.semanticAt(opTok, err)
	}
	return p.nl.appendNode(kind, opTok.Pos, lhs, rhs, "", typ), nil
}

// parseUnary handles prefix sizeof, +, -, * and &.
func (p *Parser) parseUnary() (int, error) {
	opTok := p.tl.peek()
	switch {
	case p.tl.consume(SIZEOF):
		operand, err := p.parseUnary()
		if err != nil {
			return NoNode, err
		}
		// The operand is typed and then dropped; only its size is emitted.
		size := int64(4)
		if typ := p.typeOf(operand); !typ.IsInt() {
			size = int64(SizeOf(typ))
		}
		return p.nl.appendNum(opTok.Pos, size), nil

	case p.tl.consume(PLUS):
		return p.parseUnary()

	case p.tl.consume(MINUS):
		zero := p.nl.appendNum(opTok.Pos, 0)
		operand, err := p.parseUnary()
		if err != nil {
			return NoNode, err
		}
		return p.binary(NodeSub, opTok, zero, operand)

	case p.tl.consume(STAR):
		operand, err := p.parseUnary()
		if err != nil {
			return NoNode, err
		}
		typ := p.typeOf(operand)
		if !typ.IsPointer() {
			return NoNode, p.errorAt(KindSemantic, opTok, "cannot dereference %s", typ)
		}
		return p.nl.appendNode(NodeDeref, opTok.Pos, operand, NoNode, "", IntType(typ.Depth-1)), nil

	case p.tl.consume(AND):
		operand, err := p.parseUnary()
		if err != nil {
			return NoNode, err
		}
		n := p.nl.Node(operand)
		if n.Type.Kind != TypeInt || (n.Kind != NodeLvar && n.Kind != NodeDeref) {
			return NoNode, p.errorAt(KindSemantic, opTok, "cannot take address of %s", n.Kind)
		}
		return p.nl.appendNode(NodeAddr, opTok.Pos, operand, NoNode, "", IntType(n.Type.Depth+1)), nil
	}
	return p.parsePrimary()
}

// parsePrimary handles literals, variables, calls and parenthesised
// expressions.
func (p *Parser) parsePrimary() (int, error) {
	tok := p.tl.peek()
	switch tok.Type {
	case LPAREN:
		return p.parseParenExpr()

	case IDENTIFIER:
		p.tl.advance()
		// Locals shadow functions: a local followed by ( is not a call.
		if lv, ok := p.nl.Locals.Find(tok.Lexeme); ok {
			if next := p.tl.peek(); next.Type == LPAREN {
				return NoNode, p.errorAt(KindSyntax, next, "unexpected '(' after variable %q", tok.Lexeme)
			}
			return p.nl.appendLvar(tok.Pos, lv), nil
		}
		if p.tl.consume(LPAREN) {
			return p.parseCall(tok)
		}
		return NoNode, p.errorAt(KindSemantic, tok, "undefined variable %q", tok.Lexeme)
	}

	numTok, err := p.tl.expectNumber()
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Msg = "expected an expression, got " + describeToken(numTok)
		}
		return NoNode, err
	}
	return p.nl.appendNum(numTok.Pos, numTok.Value), nil
}

// parseCall parses the argument list of name( ... ; the opening
// parenthesis has been consumed. Arguments are chained through Arg nodes
// hanging off the call's rhs.
func (p *Parser) parseCall(nameTok Token) (int, error) {
	call := p.nl.appendNode(NodeCall, nameTok.Pos, NoNode, NoNode, nameTok.Lexeme, UnknownType)
	if p.tl.consume(RPAREN) {
		return call, nil
	}

	link := call
	for count := 0; ; count++ {
		argTok := p.tl.peek()
		if count == MaxArgs {
			return NoNode, p.errorAt(KindSemantic, argTok, "too many arguments in call to %q (at most %d)", nameTok.Lexeme, MaxArgs)
		}
		expr, err := p.parseExpr()
		if err != nil {
			return NoNode, err
		}
		arg := p.nl.appendNode(NodeArg, argTok.Pos, expr, NoNode, "", StmtType)
		p.nl.Node(link).Rhs = arg
		link = arg

		if p.tl.consume(RPAREN) {
			return call, nil
		}
		if _, err := p.tl.expect(COMMA); err != nil {
			return NoNode, err
		}
	}
}
