package ast

import (
	"fmt"
	"io"
	"strings"
)

// Print writes an indented dump of chunk to w, one line per node, walked
// with Walk the same way the teacher's ast.Printer walks a parsed file
// (lang/ast/visitor.go), but rendering Go's %T/%v directly instead of the
// teacher's source-span-aware NodeFmt since chen_lang nodes carry only a
// line number, not a full token span.
func Print(w io.Writer, chunk *Chunk) error {
	p := &printer{w: w}
	Walk(p, chunk)
	return p.err
}

type printer struct {
	w     io.Writer
	depth int
	err   error
}

func (p *printer) Visit(n Node, dir VisitDirection) Visitor {
	if p.err != nil {
		return nil
	}
	if dir == VisitExit {
		p.depth--
		return nil
	}
	indent := strings.Repeat("  ", p.depth)
	if _, err := fmt.Fprintf(p.w, "%s%s\n", indent, describe(n)); err != nil {
		p.err = err
		return nil
	}
	p.depth++
	return p
}

func describe(n Node) string {
	switch v := n.(type) {
	case *IdentExpr:
		return fmt.Sprintf("Ident %q (line %d)", v.Name, v.Line())
	case *IntLit:
		return fmt.Sprintf("IntLit %d (line %d)", v.Value, v.Line())
	case *FloatLit:
		return fmt.Sprintf("FloatLit %s (line %d)", v.Raw, v.Line())
	case *StringLit:
		return fmt.Sprintf("StringLit %q (line %d)", v.Value, v.Line())
	case *BoolLit:
		return fmt.Sprintf("BoolLit %t (line %d)", v.Value, v.Line())
	default:
		return fmt.Sprintf("%T (line %d)", n, n.Line())
	}
}
