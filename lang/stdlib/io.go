package stdlib

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/chenlang/chenlang/lang/machine"
)

// installIO builds the `io` module: print/println/readline, backed by
// stdlib bufio/os (SPEC_FULL.md §4.8 — no third-party library in the pack
// covers line-buffered stdin/stdout better than the standard library
// here, so this one concern is justified as a stdlib-only part in
// DESIGN.md).
func installIO(vm *machine.VM, stdout io.Writer, stdin *bufio.Reader) *machine.Object {
	mod := machine.NewObject()
	_ = mod.Set("print", native("io.print", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		for _, a := range args {
			fmt.Fprint(stdout, machine.Printed(a))
		}
		return machine.Null, nil
	}))
	_ = mod.Set("println", native("io.println", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		for _, a := range args {
			fmt.Fprint(stdout, machine.Printed(a))
		}
		fmt.Fprintln(stdout)
		return machine.Null, nil
	}))
	_ = mod.Set("readline", native("io.readline", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				return machine.Null, nil
			}
			return nil, err
		}
		for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
			line = line[:len(line)-1]
		}
		return machine.Str(line), nil
	}))
	return mod
}

// DefaultIO builds the `io` module against the process's real stdout/stdin.
func DefaultIO(vm *machine.VM) *machine.Object {
	return installIO(vm, os.Stdout, bufio.NewReader(os.Stdin))
}
