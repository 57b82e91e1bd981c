package stdlib

import (
	"os"

	"github.com/chenlang/chenlang/lang/machine"
)

// installFS builds the `fs` module: read/write/exists/remove/read_dir,
// backed by stdlib `os` (SPEC_FULL.md §4.8).
func installFS(vm *machine.VM) *machine.Object {
	mod := machine.NewObject()
	_ = mod.Set("read", native("fs.read", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		path, err := argString("fs.read", args, 0)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return machine.Str(string(data)), nil
	}))
	_ = mod.Set("write", native("fs.write", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		path, err := argString("fs.write", args, 0)
		if err != nil {
			return nil, err
		}
		content, err := argString("fs.write", args, 1)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, err
		}
		return machine.Null, nil
	}))
	_ = mod.Set("exists", native("fs.exists", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		path, err := argString("fs.exists", args, 0)
		if err != nil {
			return nil, err
		}
		_, statErr := os.Stat(path)
		return machine.Bool(statErr == nil), nil
	}))
	_ = mod.Set("remove", native("fs.remove", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		path, err := argString("fs.remove", args, 0)
		if err != nil {
			return nil, err
		}
		if err := os.Remove(path); err != nil {
			return nil, err
		}
		return machine.Null, nil
	}))
	_ = mod.Set("read_dir", native("fs.read_dir", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		path, err := argString("fs.read_dir", args, 0)
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		names := make([]machine.Value, len(entries))
		for i, e := range entries {
			names[i] = machine.Str(e.Name())
		}
		return machine.NewArray(names, vm.ArrayProto), nil
	}))
	return mod
}
