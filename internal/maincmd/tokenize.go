package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/chenlang/chenlang/lang/scanner"
)

// Tokenize runs the scanner phase alone and prints the resulting tokens,
// one per line, in the teacher's tokenize.go style (file:line: TOKEN raw).
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var firstErr error
	for _, file := range args {
		if err := tokenizeFile(stdio, file); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func tokenizeFile(stdio mainer.Stdio, file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return printError(stdio, err)
	}
	toks, err := scanner.ScanAll(src)
	for _, tv := range toks {
		fmt.Fprintf(stdio.Stdout, "%s:%d: %s", file, tv.Line, tv.Token)
		if lit := literalOf(tv); lit != "" {
			fmt.Fprintf(stdio.Stdout, " %s", lit)
		}
		fmt.Fprintln(stdio.Stdout)
	}
	if err != nil {
		return printError(stdio, err)
	}
	return nil
}

func literalOf(tv scanner.TokenAndValue) string {
	switch {
	case tv.Raw != "":
		return tv.Raw
	case tv.Float != "":
		return tv.Float
	default:
		return ""
	}
}
