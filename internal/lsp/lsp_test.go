package lsp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chenlang/chenlang/internal/lsp"
)

func TestParseCleanDocumentHasNoDiagnostics(t *testing.T) {
	doc := lsp.Parse("file:///a.ch", `
def add(a, b) {
  return a + b
}
let total = add(1, 2)
`)
	require.NotNil(t, doc.Chunk)
	require.NotNil(t, doc.Res)
	require.Empty(t, lsp.Diagnostics(doc))
}

func TestParseSyntaxErrorReportsLine(t *testing.T) {
	doc := lsp.Parse("file:///bad.ch", "\n\nlet x = ")
	require.Nil(t, doc.Chunk)
	diags := lsp.Diagnostics(doc)
	require.NotEmpty(t, diags)
	require.Equal(t, lsp.SeverityError, diags[0].Severity)
}

func TestDocumentSymbolsListsDeclarations(t *testing.T) {
	doc := lsp.Parse("file:///sym.ch", `
def greet(name) {
  return name
}
let x = 1
`)
	syms := lsp.DocumentSymbols(doc)
	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	require.Contains(t, names, "greet")
	require.Contains(t, names, "x")
}

func TestDefinitionFindsFirstDeclaration(t *testing.T) {
	doc := lsp.Parse("file:///def.ch", `
let x = 1
x
x
`)
	line, ok := lsp.Definition(doc, "x")
	require.True(t, ok)
	require.Equal(t, 2, line)
}

func TestReferencesFindsEveryMention(t *testing.T) {
	doc := lsp.Parse("file:///ref.ch", `
let x = 1
x
x
`)
	refs := lsp.References(doc, "x")
	require.Len(t, refs, 3)
}

func TestHoverReportsLocalKind(t *testing.T) {
	doc := lsp.Parse("file:///hover.ch", `
let x = 1
x
`)
	hover, ok := lsp.HoverAt(doc, "x")
	require.True(t, ok)
	require.Equal(t, "local", hover.Kind)
}

func TestHoverReportsFreeKindForCapturedVariable(t *testing.T) {
	doc := lsp.Parse("file:///free.ch", `
def make_adder(n) {
  return def(x) {
    return n + x
  }
}
`)
	hover, ok := lsp.HoverAt(doc, "n")
	require.True(t, ok)
	require.Equal(t, "free", hover.Kind)
}

func TestCompletionsIncludesKeywordsModulesAndSymbols(t *testing.T) {
	doc := lsp.Parse("file:///comp.ch", `let my_var = 1`)
	comps := lsp.Completions(doc)
	require.Contains(t, comps, "let")
	require.Contains(t, comps, "json")
	require.Contains(t, comps, "my_var")
}
