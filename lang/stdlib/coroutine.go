package stdlib

import (
	"fmt"

	"github.com/chenlang/chenlang/lang/machine"
)

// installCoroutine builds the `coroutine` module object implementing
// spec.md §4.5: create/resume/yield/status/spawn/await_all, each a thin
// Go wrapper around the Fiber scheduling primitives in lang/machine's
// async runtime.
func installCoroutine(vm *machine.VM) *machine.Object {
	mod := machine.NewObject()

	_ = mod.Set("create", native("coroutine.create", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) < 1 {
			return nil, argErr("coroutine.create", 1, len(args))
		}
		fn := args[0]
		switch fn.(type) {
		case *machine.Closure, *machine.NativeFunction:
		default:
			return nil, fmt.Errorf("coroutine.create: argument must be a function")
		}
		f := vm.StartFiber(vm.Current(), fn, append([]machine.Value(nil), args[1:]...))
		return f, nil
	}))

	_ = mod.Set("resume", native("coroutine.resume", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) < 1 {
			return nil, argErr("coroutine.resume", 1, len(args))
		}
		f, ok := args[0].(*machine.Fiber)
		if !ok {
			return nil, fmt.Errorf("coroutine.resume: argument must be a coroutine")
		}
		if f == vm.Current() {
			return nil, fmt.Errorf("cannot resume a running fiber")
		}
		if f.State() == machine.FiberDead {
			return machine.Bool(false), nil
		}
		var resumeVal machine.Value = machine.Null
		if len(args) > 1 {
			resumeVal = args[1]
		}
		return vm.Resume(f, resumeVal)
	}))

	_ = mod.Set("yield", native("coroutine.yield", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		var v machine.Value = machine.Null
		if len(args) > 0 {
			v = args[0]
		}
		return vm.Yield(v)
	}))

	_ = mod.Set("status", native("coroutine.status", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 1 {
			return nil, argErr("coroutine.status", 1, len(args))
		}
		f, ok := args[0].(*machine.Fiber)
		if !ok {
			return nil, fmt.Errorf("coroutine.status: argument must be a coroutine")
		}
		return machine.Str(f.State().String()), nil
	}))

	_ = mod.Set("spawn", native("coroutine.spawn", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) < 1 {
			return nil, argErr("coroutine.spawn", 1, len(args))
		}
		f := vm.Spawn(vm.Current(), args[0], append([]machine.Value(nil), args[1:]...))
		return f, nil
	}))

	_ = mod.Set("await_all", native("coroutine.await_all", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 1 {
			return nil, argErr("coroutine.await_all", 1, len(args))
		}
		arr, ok := args[0].(*machine.Object)
		if !ok {
			return nil, fmt.Errorf("coroutine.await_all: argument must be an array of coroutines")
		}
		fibers := make([]*machine.Fiber, 0, arr.Len())
		for i := 0; i < arr.Len(); i++ {
			v, _ := arr.Get(fmt.Sprintf("%d", i))
			f, ok := v.(*machine.Fiber)
			if !ok {
				return nil, fmt.Errorf("coroutine.await_all: element %d is not a coroutine", i)
			}
			if !f.Started() {
				vm.EnqueueReady(f, machine.Null)
			}
			fibers = append(fibers, f)
		}
		if err := vm.AwaitAll(); err != nil {
			return nil, err
		}
		results := make([]machine.Value, len(fibers))
		for i, f := range fibers {
			results[i] = f.LastResult()
		}
		return machine.NewArray(results, vm.ArrayProto), nil
	}))

	return mod
}
