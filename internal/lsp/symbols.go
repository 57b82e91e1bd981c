package lsp

import "github.com/chenlang/chenlang/lang/ast"

// Symbol is one named, navigable entity in a Document.
type Symbol struct {
	Name string
	Kind SymbolKind
	Line int
}

type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolVariable
)

// DocumentSymbols collects the top-level `def` and `let` bindings in doc,
// in source order; bindings nested inside function bodies or blocks are not
// listed (original_source/lsp/src/server.rs's collect_refs, adapted to
// lang/ast.Walk instead of a hand-rolled statement/expression match).
func DocumentSymbols(doc *Document) []Symbol {
	if doc.Chunk == nil {
		return nil
	}
	var syms []Symbol
	var v ast.VisitorFunc
	v = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir == ast.VisitExit {
			return nil
		}
		switch s := n.(type) {
		case *ast.Chunk:
			return v
		case *ast.FuncDeclStmt:
			syms = append(syms, Symbol{Name: s.Name, Kind: SymbolFunction, Line: s.Line()})
		case *ast.LetStmt:
			syms = append(syms, Symbol{Name: s.Name, Kind: SymbolVariable, Line: s.Line()})
		}
		return nil
	}
	ast.Walk(v, doc.Chunk)
	return syms
}

// identRef is one occurrence of an identifier name, used by both
// Definition and References.
type identRef struct {
	name string
	line int
}

func collectIdentRefs(chunk *ast.Chunk) []identRef {
	var refs []identRef
	var v ast.VisitorFunc
	v = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir == ast.VisitExit {
			return nil
		}
		switch s := n.(type) {
		case *ast.IdentExpr:
			refs = append(refs, identRef{name: s.Name, line: s.Line()})
		case *ast.FuncDeclStmt:
			refs = append(refs, identRef{name: s.Name, line: s.Line()})
		case *ast.LetStmt:
			refs = append(refs, identRef{name: s.Name, line: s.Line()})
		}
		return v
	}
	ast.Walk(v, chunk)
	return refs
}

// Definition returns the earliest top-level binding site (a `let` or `def`,
// as listed by DocumentSymbols) for name
// in doc, or false if none is found: chen_lang has no forward-declared
// globals, so the first declaration in source order is always the
// definition (spec.md §4.2 scoping rules).
func Definition(doc *Document, name string) (line int, ok bool) {
	if doc.Chunk == nil {
		return 0, false
	}
	for _, sym := range DocumentSymbols(doc) {
		if sym.Name == name {
			return sym.Line, true
		}
	}
	return 0, false
}

// References returns every line on which name is mentioned, declaration
// included.
func References(doc *Document, name string) []int {
	if doc.Chunk == nil {
		return nil
	}
	var lines []int
	for _, r := range collectIdentRefs(doc.Chunk) {
		if r.name == name {
			lines = append(lines, r.line)
		}
	}
	return lines
}
