// Package lsp is a best-effort language server core for chen_lang: plain Go
// functions over lang/ast and lang/resolver output, with no JSON-RPC wire
// framing of its own (SPEC_FULL.md §6.3). It is grounded on
// original_source/lsp/src/server.rs's document/diagnostics/symbol/reference
// shape, reworked onto chen_lang's line-only position model (no column
// tracking, unlike the original's utf16-aware Rope-backed server) and onto
// lang/ast.Walk instead of a hand-rolled statement/expression visitor.
//
// A transport (stdio JSON-RPC, an editor plugin, a test) is expected to
// call Parse once per document change and then call the functions below;
// none of them touch a socket or a wire format.
package lsp

import (
	"github.com/chenlang/chenlang/lang/ast"
	"github.com/chenlang/chenlang/lang/parser"
	"github.com/chenlang/chenlang/lang/resolver"
)

// Document is one open source file's latest parse, ready for the query
// functions below. A failed parse leaves Chunk nil (nothing from an earlier
// parse is carried over), so DocumentSymbols, Definition, References and
// HoverAt find nothing while Diagnostics reports the error.
type Document struct {
	URI    string
	Text   string
	Chunk  *ast.Chunk
	Res    *resolver.Result
	Errs   []Diagnostic
}

// Diagnostic is a single line-anchored problem report.
type Diagnostic struct {
	Line     int
	Severity Severity
	Message  string
}

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Parse scans+parses+resolves text and returns the resulting Document. A
// parse or resolve failure still returns a Document (with Chunk left nil on
// a parse failure, Res left nil on either, and Errs populated) rather than
// an error, since a half-typed buffer
// is the LSP's normal operating condition, not an exceptional one.
func Parse(uri, text string) *Document {
	doc := &Document{URI: uri, Text: text}

	chunk, err := parser.Parse(uri, []byte(text))
	if err != nil {
		doc.Errs = append(doc.Errs, Diagnostic{Line: errLine(err), Severity: SeverityError, Message: err.Error()})
		return doc
	}
	doc.Chunk = chunk

	res, err := resolver.Resolve(chunk)
	if err != nil {
		doc.Errs = append(doc.Errs, Diagnostic{Line: errLine(err), Severity: SeverityError, Message: err.Error()})
		return doc
	}
	doc.Res = res
	return doc
}

func errLine(err error) int {
	switch e := err.(type) {
	case *parser.ParseError:
		return e.Line
	case *resolver.Error:
		return e.Line
	default:
		return 0
	}
}

// Diagnostics returns doc's accumulated parse/resolve problems.
func Diagnostics(doc *Document) []Diagnostic {
	return doc.Errs
}
