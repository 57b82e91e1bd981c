package lsp

// keywords mirrors lang/token's keyword set (spec.md §4.1): every reserved
// word a client should offer alongside the document's own symbols.
var keywords = []string{
	"let", "def", "if", "else", "for", "break", "continue", "return",
	"try", "catch", "finally", "throw", "import", "true", "false", "null",
}

// stdlibModules mirrors lang/stdlib's native module surface
// (SPEC_FULL.md §4.8), offered whenever a client completes after `import`.
var stdlibModules = []string{"io", "json", "date", "fs", "http", "process", "timer", "coroutine"}

// Completions returns candidate identifiers for doc: language keywords,
// the stdlib module names, and every symbol declared in the document
// itself.
func Completions(doc *Document) []string {
	out := append([]string{}, keywords...)
	out = append(out, stdlibModules...)
	seen := make(map[string]bool, len(out))
	for _, k := range out {
		seen[k] = true
	}
	for _, sym := range DocumentSymbols(doc) {
		if !seen[sym.Name] {
			seen[sym.Name] = true
			out = append(out, sym.Name)
		}
	}
	return out
}
