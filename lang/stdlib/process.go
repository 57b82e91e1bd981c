package stdlib

import (
	"bytes"
	"os/exec"

	"github.com/chenlang/chenlang/lang/machine"
)

// installProcess builds the `process` module: `exec(cmd, ...args)` runs a
// subprocess synchronously and returns its exit code and captured output,
// backed by stdlib `os/exec` (SPEC_FULL.md §4.8).
func installProcess(vm *machine.VM) *machine.Object {
	mod := machine.NewObject()
	_ = mod.Set("exec", native("process.exec", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) < 1 {
			return nil, argErr("process.exec", 1, len(args))
		}
		name, err := argString("process.exec", args, 0)
		if err != nil {
			return nil, err
		}
		cmdArgs := make([]string, 0, len(args)-1)
		for i := 1; i < len(args); i++ {
			s, ok := args[i].(machine.Str)
			if !ok {
				return nil, argErr("process.exec", len(args), len(args))
			}
			cmdArgs = append(cmdArgs, string(s))
		}
		var stdout, stderr bytes.Buffer
		cmd := exec.Command(name, cmdArgs...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		exitCode := 0
		if runErr := cmd.Run(); runErr != nil {
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else {
				return nil, runErr
			}
		}
		obj := machine.NewObject()
		_ = obj.Set("exit_code", machine.Int(exitCode))
		_ = obj.Set("stdout", machine.Str(stdout.String()))
		_ = obj.Set("stderr", machine.Str(stderr.String()))
		return obj, nil
	}))
	return mod
}
