// File path: internal/expr/parser.go
package expr

import "fmt"

// Node is a parsed condition expression. Binding, loosest first: or, and,
// not, then ==/!= between atoms.
type Node interface {
	eval(env *Env) (value, error)
}

type boolLit struct {
	val bool
}

type identRef struct {
	name string
}

type subscriptRef struct {
	name string
	key  string
}

type notOp struct {
	operand Node
}

type binOp struct {
	op  tokenKind
	lhs Node
	rhs Node
}

// Stmt is a parsed statement line: an assignment or a bare expression.
type Stmt struct {
	target Node // nil for bare expressions
	expr   Node
}

type parser struct {
	tokens []token
	pos    int
}

// Parse parses a single boolean expression.
func Parse(src string) (Node, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokenEOF); err != nil {
		return nil, err
	}
	return node, nil
}

// ParseStmt parses one statement line. "X = expr" assigns; anything else is
// evaluated for effect and discarded.
func ParseStmt(src string) (*Stmt, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokenAssign {
		switch first.(type) {
		case identRef, subscriptRef:
		default:
			return nil, fmt.Errorf("expr: offset %d: cannot assign to this expression", p.peek().pos)
		}
		p.next()
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokenEOF); err != nil {
			return nil, err
		}
		return &Stmt{target: first, expr: rhs}, nil
	}
	if err := p.expect(tokenEOF); err != nil {
		return nil, err
	}
	return &Stmt{expr: first}, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind) error {
	tok := p.peek()
	if tok.kind != kind {
		return fmt.Errorf("expr: offset %d: expected %s, found %s", tok.pos, kind, tok.kind)
	}
	p.next()
	return nil
}

func (p *parser) parseExpr() (Node, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Node, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenOr {
		p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = binOp{op: tokenOr, lhs: lhs, rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseAnd() (Node, error) {
	lhs, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenAnd {
		p.next()
		rhs, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		lhs = binOp{op: tokenAnd, lhs: lhs, rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.peek().kind == tokenNot {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notOp{operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	lhs, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	kind := p.peek().kind
	if kind == tokenEq || kind == tokenNe {
		p.next()
		rhs, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return binOp{op: kind, lhs: lhs, rhs: rhs}, nil
	}
	return lhs, nil
}

func (p *parser) parseAtom() (Node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokenTrue:
		p.next()
		return boolLit{val: true}, nil
	case tokenFalse:
		p.next()
		return boolLit{val: false}, nil
	case tokenLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokenRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokenIdent:
		p.next()
		if p.peek().kind == tokenLBracket {
			p.next()
			key := p.peek()
			if key.kind != tokenString {
				return nil, fmt.Errorf("expr: offset %d: expected string key, found %s", key.pos, key.kind)
			}
			p.next()
			if err := p.expect(tokenRBracket); err != nil {
				return nil, err
			}
			return subscriptRef{name: tok.text, key: key.text}, nil
		}
		return identRef{name: tok.text}, nil
	default:
		return nil, fmt.Errorf("expr: offset %d: unexpected %s", tok.pos, tok.kind)
	}
}
