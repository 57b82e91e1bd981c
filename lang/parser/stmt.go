package parser

import (
	"github.com/chenlang/chenlang/lang/ast"
	"github.com/chenlang/chenlang/lang/token"
)

// parseStmtsUntil parses statements until the current token is end or EOF.
func (p *parser) parseStmtsUntil(end token.Token) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for !p.at(end) && !p.at(token.EOF) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func (p *parser) parseBlock() (*ast.Block, error) {
	line := p.line()
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	stmts, err := p.parseStmtsUntil(token.RBRACE)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.Block{Stmts: stmts, LineNo: line}, nil
}

func (p *parser) parseStmt() (ast.Stmt, error) {
	switch p.tok() {
	case token.LET:
		return p.parseLet()
	case token.DEF:
		return p.parseFuncDecl()
	case token.FOR:
		return p.parseFor()
	case token.RETURN:
		return p.parseReturn()
	case token.BREAK:
		line := p.advance().Line
		return &ast.BreakStmt{LineNo: line}, nil
	case token.CONTINUE:
		line := p.advance().Line
		return &ast.ContinueStmt{LineNo: line}, nil
	case token.TRY:
		return p.parseTry()
	case token.THROW:
		return p.parseThrow()
	case token.IMPORT:
		return p.parseImport()
	default:
		return p.parseAssignOrExpr()
	}
}

func (p *parser) parseLet() (ast.Stmt, error) {
	line := p.advance().Line // 'let'
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.LetStmt{Name: nameTok.Raw, Value: val, LineNo: line}, nil
}

func (p *parser) parseParams() ([]string, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	for !p.at(token.RPAREN) {
		nameTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		params = append(params, nameTok.Raw)
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *parser) parseFuncDecl() (ast.Stmt, error) {
	line := p.advance().Line // 'def'
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDeclStmt{Name: nameTok.Raw, Params: params, Body: body, LineNo: line}, nil
}

func (p *parser) parseFor() (ast.Stmt, error) {
	line := p.advance().Line // 'for'
	var cond ast.Expr
	if !p.at(token.LBRACE) {
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		cond = c
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{Cond: cond, Body: body, LineNo: line}, nil
}

// startsNewStmt marks tokens that can follow a bare expression and therefore
// mean "this expression/statement has ended", used to detect an absent
// optional expression after 'return'.
func startsNewStmt(t token.Token) bool {
	switch t {
	case token.LET, token.DEF, token.FOR, token.BREAK, token.CONTINUE,
		token.RETURN, token.TRY, token.THROW, token.IMPORT,
		token.RBRACE, token.EOF:
		return true
	}
	return false
}

func (p *parser) parseReturn() (ast.Stmt, error) {
	line := p.advance().Line // 'return'
	// 'def' followed by '(' is an anonymous function value, not a new declaration.
	funcLit := p.at(token.DEF) && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Token == token.LPAREN
	if startsNewStmt(p.tok()) && !funcLit {
		return &ast.ReturnStmt{LineNo: line}, nil
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Value: val, LineNo: line}, nil
}

func (p *parser) parseTry() (ast.Stmt, error) {
	line := p.advance().Line // 'try'
	tryBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.CATCH); err != nil {
		return nil, err
	}
	var catchName string
	if p.at(token.IDENT) {
		catchName = p.advance().Raw
	}
	catchBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.TryStmt{
		Try: tryBlock, CatchName: catchName, HasCatch: true,
		Catch: catchBlock, LineNo: line,
	}
	if p.at(token.FINALLY) {
		p.advance()
		finallyBlock, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.HasFinally = true
		stmt.Finally = finallyBlock
	}
	return stmt, nil
}

func (p *parser) parseThrow() (ast.Stmt, error) {
	line := p.advance().Line // 'throw'
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ThrowStmt{Value: val, LineNo: line}, nil
}

func (p *parser) parseImport() (ast.Stmt, error) {
	line := p.advance().Line // 'import'
	pathTok, err := p.expect(token.STRING)
	if err != nil {
		return nil, err
	}
	if p.at(token.IDENT) && p.cur().Raw == "as" && p.line() == pathTok.Line {
		return nil, errf(p.line(), "import takes no alias clause")
	}
	return &ast.ImportStmt{Path: pathTok.Raw, LineNo: line}, nil
}

func (p *parser) parseAssignOrExpr() (ast.Stmt, error) {
	line := p.line()
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(token.ASSIGN) {
		p.advance()
		if !ast.IsAssignable(left) {
			return nil, errf(line, "invalid assignment target")
		}
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.AssignStmt{Target: left, Value: right, LineNo: line}, nil
	}
	return &ast.ExprStmt{X: left, LineNo: line}, nil
}
