package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/chenlang/chenlang/lang/ast"
	"github.com/chenlang/chenlang/lang/parser"
)

// Parse runs the scanner+parser phases and prints the resulting syntax
// tree, one indented line per node.
func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var firstErr error
	for _, file := range args {
		if err := parseFile(stdio, file); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func parseFile(stdio mainer.Stdio, file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return printError(stdio, err)
	}
	chunk, err := parser.Parse(file, src)
	if err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", file, err))
	}
	return ast.Print(stdio.Stdout, chunk)
}
