package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
)

// Compile runs the full scan/parse/resolve/compile pipeline and prints
// disassembled bytecode for each file.
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var firstErr error
	for _, file := range args {
		prog, err := compileFile(file)
		if err != nil {
			printError(stdio, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fmt.Fprint(stdio.Stdout, prog.Disassemble())
	}
	return firstErr
}
