package compiler_test

import (
	"testing"

	"github.com/kylelemons/godebug/diff"
	"github.com/stretchr/testify/require"

	"github.com/chenlang/chenlang/lang/compiler"
	"github.com/chenlang/chenlang/lang/parser"
	"github.com/chenlang/chenlang/lang/resolver"
)

func mustCompile(t *testing.T, src string) *compiler.Program {
	t.Helper()
	chunk, err := parser.Parse(t.Name(), []byte(src))
	require.NoError(t, err)
	res, err := resolver.Resolve(chunk)
	require.NoError(t, err)
	prog, err := compiler.Compile(chunk, res)
	require.NoError(t, err)
	return prog
}

func TestCompileLeavesTrailingExpressionOnStack(t *testing.T) {
	prog := mustCompile(t, `1 + 2`)
	require.NotEmpty(t, prog.Code)

	last := prog.Code[len(prog.Code)-1]
	require.Equal(t, compiler.RETURN, last.Op)

	// The statement before RETURN must be the ADD itself, not a POP
	// discarding it: a bare top-level expression is the program's result,
	// the same convention a function body's trailing expression follows.
	beforeReturn := prog.Code[len(prog.Code)-2]
	require.Equal(t, compiler.ADD, beforeReturn.Op)
}

func TestCompileTrailingNonExpressionStatementYieldsNull(t *testing.T) {
	prog := mustCompile(t, `let x = 1`)
	require.NotEmpty(t, prog.Code)
	last := prog.Code[len(prog.Code)-1]
	require.Equal(t, compiler.RETURN, last.Op)
	beforeReturn := prog.Code[len(prog.Code)-2]
	require.Equal(t, compiler.PUSHCONST, beforeReturn.Op)
	require.Equal(t, compiler.ConstNull, prog.Consts[beforeReturn.Arg].Kind)
}

func TestCompileFuncDeclRegistersFuncSym(t *testing.T) {
	prog := mustCompile(t, `
def add(a, b) {
  return a + b
}
`)
	sym, ok := prog.Funcs["add"]
	require.True(t, ok)
	require.Equal(t, 2, sym.NArgs)
}

func TestCompileBareTopLevelCallUsesDirectCall(t *testing.T) {
	prog := mustCompile(t, `
def add(a, b) {
  return a + b
}
add(1, 2)
`)
	var found bool
	for _, in := range prog.Code {
		if in.Op == compiler.CALL && in.Name == "add" {
			found = true
			require.EqualValues(t, 2, in.Arg)
		}
	}
	require.True(t, found, "expected a direct CALL \"add\" instruction")
}

func TestCompileCallToCapturingTopLevelFunctionUsesCallStack(t *testing.T) {
	// bump captures the top-level let n as an upvalue, so a bare call to it
	// cannot take the no-capture CALL fast path: it must still go through
	// CallStack, which reads the already-built closure value (with its
	// upvalue cell) off the operand stack.
	prog := mustCompile(t, `
let n = 0
def bump() {
  n = n + 1
  return n
}
bump()
`)
	for _, in := range prog.Code {
		require.NotEqual(t, compiler.CALL, in.Op)
	}
}

func TestCompileBreakOutsideLoopFails(t *testing.T) {
	chunk, err := parser.Parse(t.Name(), []byte(`break`))
	require.NoError(t, err)
	res, err := resolver.Resolve(chunk)
	require.NoError(t, err)
	_, err = compiler.Compile(chunk, res)
	require.Error(t, err)
}

func TestDisassembleIncludesEntryAndLines(t *testing.T) {
	prog := mustCompile(t, `1 + 2`)
	out := prog.Disassemble()
	require.Contains(t, out, "entry")
	require.Contains(t, out, "line")
}

// TestCompileIsDeterministic guards the property internal/maincmd's compile
// subcommand depends on silently: compiling identical source twice, even
// across two independent compiler instances, must disassemble to byte-for-
// byte identical text. godebug/diff (the teacher's own golden-file test
// comparator) gives a readable patch instead of a giant string mismatch if
// that ever regresses.
func TestCompileIsDeterministic(t *testing.T) {
	src := `
def fib(n) {
  let a = 0
  let b = 1
  let i = 0
  for i < n {
    let tmp = a + b
    a = b
    b = tmp
    i = i + 1
  }
  return a
}
fib(10)
`
	first := mustCompile(t, src).Disassemble()
	second := mustCompile(t, src).Disassemble()
	if patch := diff.Diff(first, second); patch != "" {
		t.Errorf("compile is not deterministic:\n%s", patch)
	}
}
