// Package stdlib wires chen_lang's native module surface (io, json, date,
// fs, http, process, timer) and the Array/String/Object prototypes onto a
// freshly constructed *machine.VM. Every native function follows the
// teacher's machine.NativeFunction shape: a plain Go func(vm, args), with
// no reflection or code generation layer between the bytecode CALLSTACK
// instruction and the Go implementation.
package stdlib

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chenlang/chenlang/lang/machine"
)

func native(name string, fn func(vm *machine.VM, args []machine.Value) (machine.Value, error)) *machine.NativeFunction {
	return &machine.NativeFunction{Name: name, Fn: fn}
}

func argErr(fn string, want, got int) error {
	return fmt.Errorf("%s expects %d argument(s), got %d", fn, want, got)
}

// InstallPrototypes populates vm.ArrayProto, vm.StringProto, and
// vm.ObjectProto with the method surface spec.md's worked examples require
// (SPEC_FULL.md §4.8): array push/pop/len/get/set, string
// len/upper/lower/split/trim, object keys/set_meta/get_meta.
func InstallPrototypes(vm *machine.VM) {
	installArrayProto(vm)
	installStringProto(vm)
	installObjectProto(vm)
}

// __index self-references a prototype so Object.GetField's fallback (which
// now only follows an explicit __index entry) recurses into the prototype's
// own method table, matching
// _examples/original_source/src/vm/native_array_prototype.rs's
// `data.insert("__index", proto_val.clone())` convention.
func selfIndex(p *machine.Object) { _ = p.Set("__index", p) }

func installArrayProto(vm *machine.VM) {
	p := vm.ArrayProto
	defer selfIndex(p)
	_ = p.Set("push", native("array.push", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 2 {
			return nil, argErr("push", 2, len(args))
		}
		arr, ok := args[0].(*machine.Object)
		if !ok {
			return nil, fmt.Errorf("push: receiver is not an array")
		}
		_ = arr.Set(strconv.Itoa(arr.Len()), args[1])
		return arr, nil
	}))
	_ = p.Set("pop", native("array.pop", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 1 {
			return nil, argErr("pop", 1, len(args))
		}
		arr, ok := args[0].(*machine.Object)
		if !ok || arr.Len() == 0 {
			return machine.Null, nil
		}
		lastKey := strconv.Itoa(arr.Len() - 1)
		v, _ := arr.Get(lastKey)
		arr.Delete(lastKey)
		return v, nil
	}))
	_ = p.Set("len", native("array.len", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 1 {
			return nil, argErr("len", 1, len(args))
		}
		arr, ok := args[0].(*machine.Object)
		if !ok {
			return machine.Int(0), nil
		}
		return machine.Int(arr.Len()), nil
	}))
	_ = p.Set("get", native("array.get", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 2 {
			return nil, argErr("get", 2, len(args))
		}
		arr, ok := args[0].(*machine.Object)
		if !ok {
			return machine.Null, nil
		}
		idx, err := indexOf(args[1])
		if err != nil {
			return nil, err
		}
		v, ok := arr.Get(strconv.Itoa(idx))
		if !ok {
			return machine.Null, nil
		}
		return v, nil
	}))
	_ = p.Set("set", native("array.set", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 3 {
			return nil, argErr("set", 3, len(args))
		}
		arr, ok := args[0].(*machine.Object)
		if !ok {
			return nil, fmt.Errorf("set: receiver is not an array")
		}
		idx, err := indexOf(args[1])
		if err != nil {
			return nil, err
		}
		if err := arr.Set(strconv.Itoa(idx), args[2]); err != nil {
			return nil, err
		}
		return arr, nil
	}))
}

func indexOf(v machine.Value) (int, error) {
	i, ok := v.(machine.Int)
	if !ok {
		return 0, fmt.Errorf("index must be an int, got %s", v.Type())
	}
	return int(i), nil
}

func installStringProto(vm *machine.VM) {
	p := vm.StringProto
	defer selfIndex(p)
	_ = p.Set("len", native("string.len", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		s, err := argString("len", args, 0)
		if err != nil {
			return nil, err
		}
		return machine.Int(len(s)), nil
	}))
	_ = p.Set("upper", native("string.upper", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		s, err := argString("upper", args, 0)
		if err != nil {
			return nil, err
		}
		return machine.Str(strings.ToUpper(s)), nil
	}))
	_ = p.Set("lower", native("string.lower", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		s, err := argString("lower", args, 0)
		if err != nil {
			return nil, err
		}
		return machine.Str(strings.ToLower(s)), nil
	}))
	_ = p.Set("trim", native("string.trim", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		s, err := argString("trim", args, 0)
		if err != nil {
			return nil, err
		}
		return machine.Str(strings.TrimSpace(s)), nil
	}))
	_ = p.Set("split", native("string.split", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 2 {
			return nil, argErr("split", 2, len(args))
		}
		s, err := argString("split", args, 0)
		if err != nil {
			return nil, err
		}
		sep, err := argString("split", args, 1)
		if err != nil {
			return nil, err
		}
		parts := strings.Split(s, sep)
		vals := make([]machine.Value, len(parts))
		for i, part := range parts {
			vals[i] = machine.Str(part)
		}
		return machine.NewArray(vals, vm.ArrayProto), nil
	}))
}

func argString(fn string, args []machine.Value, i int) (string, error) {
	if i >= len(args) {
		return "", argErr(fn, i+1, len(args))
	}
	s, ok := args[i].(machine.Str)
	if !ok {
		return "", fmt.Errorf("%s: argument %d must be a string, got %s", fn, i, args[i].Type())
	}
	return string(s), nil
}

// installObjectProto installs the Object prototype's methods and also, for
// set_meta/get_meta, registers them a second time directly as bare globals.
// The original implementation special-cases Call("set_meta"|"get_meta", n)
// as a VM intrinsic ahead of ordinary dispatch
// (_examples/original_source/src/vm/interpreter.rs's set_meta/get_meta
// handling); chen_lang has no such intrinsic-dispatch layer in CALL/CALLSTACK,
// so the same native function value is reachable both ways: as
// `obj:set_meta(m)`/`obj:get_meta()` through the prototype chain, and as the
// bare top-level calls `set_meta(obj, m)`/`get_meta(obj)` spec.md §8 scenario
// 2 actually uses.
func installObjectProto(vm *machine.VM) {
	p := vm.ObjectProto
	defer selfIndex(p)
	_ = p.Set("keys", native("object.keys", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 1 {
			return nil, argErr("keys", 1, len(args))
		}
		obj, ok := args[0].(*machine.Object)
		if !ok {
			return nil, fmt.Errorf("keys: receiver is not an object")
		}
		keys := obj.Keys()
		vals := make([]machine.Value, len(keys))
		for i, k := range keys {
			vals[i] = machine.Str(k)
		}
		return machine.NewArray(vals, vm.ArrayProto), nil
	}))

	setMeta := native("set_meta", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 2 {
			return nil, argErr("set_meta", 2, len(args))
		}
		obj, ok := args[0].(*machine.Object)
		if !ok {
			return nil, fmt.Errorf("set_meta: receiver is not an object")
		}
		meta, ok := args[1].(*machine.Object)
		if !ok {
			return nil, fmt.Errorf("set_meta: metatable must be an object")
		}
		obj.Prototype = meta
		return obj, nil
	})
	_ = p.Set("set_meta", setMeta)
	_ = vm.Globals.Set("set_meta", setMeta)

	getMeta := native("get_meta", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 1 {
			return nil, argErr("get_meta", 1, len(args))
		}
		obj, ok := args[0].(*machine.Object)
		if !ok || obj.Prototype == nil {
			return machine.Null, nil
		}
		return obj.Prototype, nil
	})
	_ = p.Set("get_meta", getMeta)
	_ = vm.Globals.Set("get_meta", getMeta)
}
