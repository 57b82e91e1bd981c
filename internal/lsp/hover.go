package lsp

import (
	"fmt"

	"github.com/chenlang/chenlang/lang/ast"
	"github.com/chenlang/chenlang/lang/resolver"
)

// Hover describes what a client should show for the identifier at a given
// line: its resolved binding kind (local/free/global) when the document
// resolved cleanly, degrading to just the name otherwise.
type Hover struct {
	Name string
	Kind string
}

// HoverAt returns hover info for name, consulting doc's resolver.Result
// when available to report whether it is local, free (captured), or
// global, rather than just echoing the identifier back.
func HoverAt(doc *Document, name string) (Hover, bool) {
	if doc.Chunk == nil {
		return Hover{}, false
	}
	if doc.Res == nil {
		return Hover{Name: name, Kind: "unresolved"}, true
	}

	var found *resolver.Binding
	var v ast.VisitorFunc
	v = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if found != nil || dir == ast.VisitExit {
			return nil
		}
		if id, ok := n.(*ast.IdentExpr); ok && id.Name == name {
			if b, ok := doc.Res.Idents[id]; ok {
				found = &b
			}
		}
		return v
	}
	ast.Walk(v, doc.Chunk)

	if found == nil {
		if _, ok := Definition(doc, name); ok {
			return Hover{Name: name, Kind: "declaration"}, true
		}
		return Hover{}, false
	}
	return Hover{Name: name, Kind: found.Kind.String()}, true
}

func (h Hover) String() string {
	return fmt.Sprintf("%s: %s", h.Name, h.Kind)
}
