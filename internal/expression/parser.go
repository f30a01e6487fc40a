package expression

import (
	"fmt"
	"strconv"
)

// Parser builds an AST from a token stream. Grammar, loosest first:
//
//	or     := and ( OR and )*
//	and    := not ( AND not )*
//	not    := NOT not | cmp
//	cmp    := primary ( (==|!=|<|>|<=|>=) primary )?
//	primary:= literal | path | '(' or ')'
type Parser struct {
	expr  string
	lexer *Lexer
	cur   Token
	peek  Token
}

// Parse parses a guard expression into an AST.
func Parse(expr string) (Node, error) {
	p := &Parser{expr: expr, lexer: NewLexer(expr)}
	p.next()
	p.next()

	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenEOF {
		return nil, p.errorf("unexpected %q", p.cur.Literal)
	}
	return node, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Expr: p.expr, Pos: p.cur.Pos, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenOR {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &LogicalNode{Op: TokenOR, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenAND {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &LogicalNode{Op: TokenAND, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Node, error) {
	if p.cur.Type == TokenNOT {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotNode{Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	switch p.cur.Type {
	case TokenEQ, TokenNE, TokenLT, TokenGT, TokenLE, TokenGE:
		op := p.cur.Type
		p.next()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &ComparisonNode{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	switch p.cur.Type {
	case TokenInt:
		v, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer %q", p.cur.Literal)
		}
		p.next()
		return &LiteralNode{Value: float64(v)}, nil
	case TokenFloat:
		v, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			return nil, p.errorf("invalid float %q", p.cur.Literal)
		}
		p.next()
		return &LiteralNode{Value: v}, nil
	case TokenString:
		v := p.cur.Literal
		p.next()
		return &LiteralNode{Value: v}, nil
	case TokenBool:
		v := p.cur.Literal == "true" || p.cur.Literal == "TRUE" || p.cur.Literal == "True"
		p.next()
		return &LiteralNode{Value: v}, nil
	case TokenIdent:
		path := p.cur.Literal
		p.next()
		return &PathNode{Path: path}, nil
	case TokenLParen:
		p.next()
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRParen {
			return nil, p.errorf("expected ')'")
		}
		p.next()
		return node, nil
	default:
		return nil, p.errorf("unexpected %q", p.cur.Literal)
	}
}
