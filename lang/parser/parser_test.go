package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chenlang/chenlang/lang/ast"
	"github.com/chenlang/chenlang/lang/parser"
	"github.com/chenlang/chenlang/lang/token"
)

func TestParseArithmeticPrecedence(t *testing.T) {
	chunk, err := parser.Parse(t.Name(), []byte(`1 + 2 * 3`))
	require.NoError(t, err)
	require.Len(t, chunk.Stmts, 1)

	es, ok := chunk.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
	bin, ok := es.X.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.PLUS, bin.Op)

	_, ok = bin.Left.(*ast.IntLit)
	require.True(t, ok)
	rhs, ok := bin.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.STAR, rhs.Op)
}

func TestParseForIsWhileOnly(t *testing.T) {
	_, err := parser.Parse(t.Name(), []byte(`for let i = 0; i < 10; i = i + 1 { }`))
	require.Error(t, err)

	chunk, err := parser.Parse(t.Name(), []byte(`for i < 10 { i = i + 1 }`))
	require.NoError(t, err)
	require.Len(t, chunk.Stmts, 1)
	_, ok := chunk.Stmts[0].(*ast.ForStmt)
	require.True(t, ok)
}

func TestParseIfWithoutParens(t *testing.T) {
	chunk, err := parser.Parse(t.Name(), []byte(`if x { 1 } else { 2 }`))
	require.NoError(t, err)
	es, ok := chunk.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
	ifExpr, ok := es.X.(*ast.IfExpr)
	require.True(t, ok)
	require.NotNil(t, ifExpr.Else)
}

func TestParseCatchHasNoParens(t *testing.T) {
	chunk, err := parser.Parse(t.Name(), []byte(`
try {
  throw "x"
} catch e {
  e
}
`))
	require.NoError(t, err)
	ts, ok := chunk.Stmts[0].(*ast.TryStmt)
	require.True(t, ok)
	require.Equal(t, "e", ts.CatchName)

	_, err = parser.Parse(t.Name(), []byte(`
try {
  throw "x"
} catch (e) {
  e
}
`))
	require.Error(t, err)
}

func TestParseImportHasNoAliasClause(t *testing.T) {
	chunk, err := parser.Parse(t.Name(), []byte(`import "stdlib/json"`))
	require.NoError(t, err)
	is, ok := chunk.Stmts[0].(*ast.ImportStmt)
	require.True(t, ok)
	require.Equal(t, "stdlib/json", is.Path)

	_, err = parser.Parse(t.Name(), []byte(`import "stdlib/json" as j`))
	require.Error(t, err)
}

func TestParseAnonymousFuncLitInReturn(t *testing.T) {
	chunk, err := parser.Parse(t.Name(), []byte(`
def make() {
  return def(x) {
    return x
  }
}
`))
	require.NoError(t, err)
	fd, ok := chunk.Stmts[0].(*ast.FuncDeclStmt)
	require.True(t, ok)
	require.Len(t, fd.Body.Stmts, 1)
	ret, ok := fd.Body.Stmts[0].(*ast.ReturnStmt)
	require.True(t, ok)
	_, ok = ret.Value.(*ast.FuncLit)
	require.True(t, ok)
}

func TestParseDotCallHasNoImplicitReceiver(t *testing.T) {
	chunk, err := parser.Parse(t.Name(), []byte(`a.b(1, 2)`))
	require.NoError(t, err)
	es := chunk.Stmts[0].(*ast.ExprStmt)
	call, ok := es.X.(*ast.CallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
	dot, ok := call.Fn.(*ast.DotExpr)
	require.True(t, ok)
	require.Equal(t, "b", dot.Name)
}

func TestParseColonCallIsMethodCallExpr(t *testing.T) {
	chunk, err := parser.Parse(t.Name(), []byte(`a:b(1)`))
	require.NoError(t, err)
	es := chunk.Stmts[0].(*ast.ExprStmt)
	mc, ok := es.X.(*ast.MethodCallExpr)
	require.True(t, ok)
	require.Equal(t, "b", mc.Method)
	require.Len(t, mc.Args, 1)
}

func TestParseObjectAndArrayLiterals(t *testing.T) {
	chunk, err := parser.Parse(t.Name(), []byte(`#{ a: 1, b: 2 }`))
	require.NoError(t, err)
	es := chunk.Stmts[0].(*ast.ExprStmt)
	obj, ok := es.X.(*ast.ObjectLit)
	require.True(t, ok)
	require.Len(t, obj.Keys, 2)

	chunk, err = parser.Parse(t.Name(), []byte(`[1, 2, 3]`))
	require.NoError(t, err)
	es = chunk.Stmts[0].(*ast.ExprStmt)
	arr, ok := es.X.(*ast.ArrayLit)
	require.True(t, ok)
	require.Len(t, arr.Items, 3)
}
