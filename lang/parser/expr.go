package parser

import (
	"strconv"

	"github.com/chenlang/chenlang/lang/ast"
	"github.com/chenlang/chenlang/lang/token"
)

func (p *parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.OR) {
		line := p.advance().Line
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: token.OR, Left: left, Right: right, LineNo: line}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.at(token.AND) {
		line := p.advance().Line
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: token.AND, Left: left, Right: right, LineNo: line}
	}
	return left, nil
}

func (p *parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.at(token.EQ) || p.at(token.NEQ) {
		op := p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op.Token, Left: left, Right: right, LineNo: op.Line}
	}
	return left, nil
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	for p.at(token.LT) || p.at(token.LE) || p.at(token.GT) || p.at(token.GE) {
		op := p.advance()
		right, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op.Token, Left: left, Right: right, LineNo: op.Line}
	}
	return left, nil
}

func (p *parser) parseAddSub() (ast.Expr, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op := p.advance()
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op.Token, Left: left, Right: right, LineNo: op.Line}
	}
	return left, nil
}

func (p *parser) parseMulDiv() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op.Token, Left: left, Right: right, LineNo: op.Line}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	switch p.tok() {
	case token.MINUS:
		line := p.advance().Line
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// unary minus is lowered to 0 - x (spec.md §4.2)
		return &ast.BinaryExpr{Op: token.MINUS, Left: &ast.IntLit{Value: 0, LineNo: line}, Right: x, LineNo: line}, nil
	case token.NOT:
		line := p.advance().Line
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: token.NOT, X: x, LineNo: line}, nil
	default:
		return p.parsePostfix()
	}
}

func (p *parser) parsePostfix() (ast.Expr, error) {
	x, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok() {
		case token.LPAREN:
			// a '(' that starts a new line begins a new statement instead of
			// calling the complete expression on the line before it
			if p.pos > 0 && p.line() > p.toks[p.pos-1].Line {
				return x, nil
			}
			args, line, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			x = &ast.CallExpr{Fn: x, Args: args, LineNo: line}
		case token.DOT:
			line := p.advance().Line
			nameTok, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			x = &ast.DotExpr{X: x, Name: nameTok.Raw, LineNo: line}
		case token.LBRACK:
			line := p.advance().Line
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACK); err != nil {
				return nil, err
			}
			x = &ast.IndexExpr{X: x, Index: idx, LineNo: line}
		case token.COLON:
			line := p.advance().Line
			nameTok, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			args, _, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			x = &ast.MethodCallExpr{Recv: x, Method: nameTok.Raw, Args: args, LineNo: line}
		default:
			return x, nil
		}
	}
}

func (p *parser) parseArgs() ([]ast.Expr, int, error) {
	line := p.line()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, 0, err
	}
	var args []ast.Expr
	for !p.at(token.RPAREN) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, 0, err
		}
		args = append(args, a)
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, 0, err
	}
	return args, line, nil
}

func (p *parser) parseAtom() (ast.Expr, error) {
	tv := p.cur()
	switch tv.Token {
	case token.INT:
		p.advance()
		n, err := strconv.ParseInt(tv.Raw, 10, 32)
		if err != nil {
			return nil, errf(tv.Line, "invalid integer literal %q", tv.Raw)
		}
		return &ast.IntLit{Value: int32(n), LineNo: tv.Line}, nil
	case token.FLOAT:
		p.advance()
		return &ast.FloatLit{Raw: tv.Raw, LineNo: tv.Line}, nil
	case token.STRING:
		p.advance()
		return &ast.StringLit{Value: tv.Raw, LineNo: tv.Line}, nil
	case token.TRUE:
		p.advance()
		return &ast.BoolLit{Value: true, LineNo: tv.Line}, nil
	case token.FALSE:
		p.advance()
		return &ast.BoolLit{Value: false, LineNo: tv.Line}, nil
	case token.NULL:
		p.advance()
		return &ast.NullLit{LineNo: tv.Line}, nil
	case token.IDENT:
		p.advance()
		return &ast.IdentExpr{Name: tv.Raw, LineNo: tv.Line}, nil
	case token.LPAREN:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case token.LBRACE:
		return p.parseBlock()
	case token.IF:
		return p.parseIfExpr()
	case token.HASHLBRACE:
		return p.parseObjectLit()
	case token.LBRACK:
		return p.parseArrayLit()
	case token.DEF:
		return p.parseFuncLit()
	default:
		return nil, errf(tv.Line, "unexpected token %s", tv.Token)
	}
}

func (p *parser) parseIfExpr() (ast.Expr, error) {
	line := p.advance().Line // 'if'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	expr := &ast.IfExpr{Cond: cond, Then: then, LineNo: line}
	if p.at(token.ELSE) {
		p.advance()
		elseBlock, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		expr.Else = elseBlock
	}
	return expr, nil
}

func (p *parser) parseObjectLit() (ast.Expr, error) {
	line := p.advance().Line // '#{'
	lit := &ast.ObjectLit{LineNo: line}
	for !p.at(token.RBRACE) {
		var key string
		switch {
		case p.at(token.IDENT):
			key = p.advance().Raw
		case p.at(token.INT):
			key = p.advance().Raw
		case p.at(token.STRING):
			key = p.advance().Raw
		default:
			return nil, errf(p.line(), "expected object key, found %s", p.tok())
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lit.Keys = append(lit.Keys, key)
		lit.Values = append(lit.Values, val)
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *parser) parseArrayLit() (ast.Expr, error) {
	line := p.advance().Line // '['
	lit := &ast.ArrayLit{LineNo: line}
	for !p.at(token.RBRACK) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lit.Items = append(lit.Items, e)
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	if _, err := p.expect(token.RBRACK); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *parser) parseFuncLit() (ast.Expr, error) {
	line := p.advance().Line // 'def'
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncLit{Params: params, Body: body, LineNo: line}, nil
}
