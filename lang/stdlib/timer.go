package stdlib

import (
	"time"

	"github.com/chenlang/chenlang/lang/machine"
)

// installTimer builds the `timer` module: `sleep(ms)` suspends the calling
// fiber and hands it back to the async runtime once a background
// time.AfterFunc fires (SPEC_FULL.md §4.7).
func installTimer(vm *machine.VM) *machine.Object {
	mod := machine.NewObject()
	_ = mod.Set("sleep", native("timer.sleep", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 1 {
			return nil, argErr("timer.sleep", 1, len(args))
		}
		ms, ok := args[0].(machine.Int)
		if !ok {
			return nil, argErr("timer.sleep", 1, len(args))
		}
		f := vm.Current()
		vm.AddPending(1)
		time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
			vm.AddPending(-1)
			vm.EnqueueReady(f, machine.Null)
		})
		return vm.Suspend(machine.Null)
	}))
	return mod
}
