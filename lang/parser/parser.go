// Package parser implements chen_lang's recursive-descent, precedence
// climbing parser, in the shape of _examples/mna-nenuphar/lang/parser (a
// small stateful parser type wrapping the token stream with
// advance/expect helpers) generalized to chen_lang's grammar (spec.md §4.2).
package parser

import (
	"fmt"

	"github.com/chenlang/chenlang/lang/ast"
	"github.com/chenlang/chenlang/lang/scanner"
	"github.com/chenlang/chenlang/lang/token"
)

// ParseError is a syntax error tied to a source line.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d: %s", e.Line, e.Message)
}

// Parse tokenizes and parses src into a Chunk. The first lexical or syntax
// error encountered, if any, aborts parsing and is returned; no partial AST
// is handed back to the caller in that case.
func Parse(name string, src []byte) (*ast.Chunk, error) {
	toks, err := scanner.ScanAll(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmts, err := p.parseStmtsUntil(token.EOF)
	if err != nil {
		return nil, err
	}
	return &ast.Chunk{Name: name, Stmts: stmts}, nil
}

type parser struct {
	toks []scanner.TokenAndValue
	pos  int
}

func (p *parser) cur() scanner.TokenAndValue  { return p.toks[p.pos] }
func (p *parser) tok() token.Token             { return p.toks[p.pos].Token }
func (p *parser) line() int                    { return p.toks[p.pos].Line }

func (p *parser) advance() scanner.TokenAndValue {
	tv := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tv
}

func (p *parser) at(t token.Token) bool { return p.tok() == t }

func (p *parser) expect(t token.Token) (scanner.TokenAndValue, error) {
	if !p.at(t) {
		return scanner.TokenAndValue{}, &ParseError{
			Line:    p.line(),
			Message: fmt.Sprintf("expected %s, found %s", t, p.tok()),
		}
	}
	return p.advance(), nil
}

func errf(line int, format string, args ...interface{}) error {
	return &ParseError{Line: line, Message: fmt.Sprintf(format, args...)}
}
