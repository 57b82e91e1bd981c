package maincmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mna/mainer"

	"github.com/chenlang/chenlang/internal/config"
	"github.com/chenlang/chenlang/lang/compiler"
	"github.com/chenlang/chenlang/lang/machine"
	"github.com/chenlang/chenlang/lang/parser"
	"github.com/chenlang/chenlang/lang/resolver"
	"github.com/chenlang/chenlang/lang/stdlib"
)

// Run compiles and executes a single chen_lang script, printing its final
// expression value to stdout (SPEC_FULL.md §6.1).
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) != 1 {
		return printError(stdio, fmt.Errorf("run: expected exactly one file argument"))
	}
	file := args[0]

	cfg, err := config.Load()
	if err != nil {
		return printError(stdio, fmt.Errorf("run: %w", err))
	}

	prog, err := compileFile(file)
	if err != nil {
		return printError(stdio, err)
	}

	vm := machine.NewVM()
	vm.MaxSteps = cfg.MaxSteps
	vm.MaxCallDepth = cfg.MaxCallDepth
	stdlib.Install(vm, stdlib.Options{
		BaseDir:     filepath.Dir(file),
		HTTPTimeout: cfg.HTTPTimeout,
	})

	result, err := vm.Run(prog)
	if err != nil {
		return printError(stdio, fmt.Errorf("run: %w", err))
	}
	fmt.Fprintln(stdio.Stdout, machine.Printed(result))
	return nil
}

// compileFile runs the scan/parse/resolve/compile pipeline on a single
// source file, the same four phases tokenize/parse/compile stop short of.
func compileFile(file string) (*compiler.Program, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	chunk, err := parser.Parse(file, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	res, err := resolver.Resolve(chunk)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	prog, err := compiler.Compile(chunk, res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return prog, nil
}
