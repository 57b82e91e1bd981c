package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chenlang/chenlang/lang/ast"
	"github.com/chenlang/chenlang/lang/parser"
	"github.com/chenlang/chenlang/lang/resolver"
)

func mustParse(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	chunk, err := parser.Parse(t.Name(), []byte(src))
	require.NoError(t, err)
	return chunk
}

// findIdent returns the first IdentExpr named name found anywhere in chunk,
// by a plain recursive walk over the statement/expression shapes the
// resolver itself understands.
func findIdent(chunk *ast.Chunk, name string) *ast.IdentExpr {
	var found *ast.IdentExpr
	var v ast.VisitorFunc
	v = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if found != nil || dir == ast.VisitExit {
			return nil
		}
		if id, ok := n.(*ast.IdentExpr); ok && id.Name == name && found == nil {
			found = id
		}
		return v
	}
	ast.Walk(v, chunk)
	return found
}

func TestResolveLocalVariable(t *testing.T) {
	chunk := mustParse(t, `
let x = 1
x
`)
	res, err := resolver.Resolve(chunk)
	require.NoError(t, err)

	id := findIdent(chunk, "x")
	require.NotNil(t, id)
	binding, ok := res.Idents[id]
	require.True(t, ok)
	require.Equal(t, resolver.Local, binding.Kind)
}

func TestResolveGlobalVariable(t *testing.T) {
	chunk := mustParse(t, `undeclared_name`)
	res, err := resolver.Resolve(chunk)
	require.NoError(t, err)

	id := findIdent(chunk, "undeclared_name")
	require.NotNil(t, id)
	require.Equal(t, resolver.Global, res.Idents[id].Kind)
}

func TestResolveCapturesFreeVariable(t *testing.T) {
	chunk := mustParse(t, `
def make_adder(n) {
  return def(x) {
    return n + x
  }
}
`)
	res, err := resolver.Resolve(chunk)
	require.NoError(t, err)

	id := findIdent(chunk, "n")
	require.NotNil(t, id)
	binding, ok := res.Idents[id]
	require.True(t, ok)
	require.Equal(t, resolver.Free, binding.Kind)
}

func TestResolveUndeclaredCatchNameIsEmpty(t *testing.T) {
	chunk := mustParse(t, `
try {
  throw "boom"
} catch {
  1
}
`)
	_, err := resolver.Resolve(chunk)
	require.NoError(t, err)
}

func TestParseInvalidAssignTargetErrors(t *testing.T) {
	_, err := parser.Parse(t.Name(), []byte(`1 = 2`))
	require.Error(t, err)
}
