package machine

import "fmt"

// pushClosureFrame installs a new call frame for cl on f, checking arity and
// seeding the new frame's local slots from args (missing trailing
// parameters, and every declared-but-not-yet-assigned local, start as Null
// per spec.md §4.3).
func (vm *VM) pushClosureFrame(f *Fiber, cl *Closure, args []Value) error {
	if len(args) < cl.Sym.NArgs {
		return &RuntimeError{Message: fmt.Sprintf("%s expects %d argument(s), got %d", cl.Label, cl.Sym.NArgs, len(args))}
	}
	if vm.MaxCallDepth > 0 && len(f.calls) >= vm.MaxCallDepth {
		return &RuntimeError{Message: fmt.Sprintf("call stack exceeded max depth %d", vm.MaxCallDepth)}
	}
	fp := len(f.stack)
	for i := 0; i < cl.Sym.NLocals; i++ {
		if i < cl.Sym.NArgs {
			f.push(args[i])
		} else {
			f.push(Null)
		}
	}
	f.calls = append(f.calls, callFrame{pc: cl.Sym.Addr, fp: fp, prog: cl.Prog, closure: cl})
	return nil
}

// callSync runs cl to completion on f's own goroutine, synchronously, and
// returns its result: the same runUntil loop that drives the top-level
// program also drives this nested call, so an ordinary call, a method
// call, and a metamethod dispatch all share one execution path.
func (vm *VM) callSync(f *Fiber, cl *Closure, args []Value) (Value, error) {
	depth := len(f.calls)
	if err := vm.pushClosureFrame(f, cl, args); err != nil {
		return nil, err
	}
	return vm.runUntil(f, depth)
}

// invoke is CALLSTACK's dispatch: callee was read off the operand stack, so
// it can be a Closure, a NativeFunction, or an Object carrying a __call
// metamethod. For a Closure it merely pushes a new frame and lets the
// caller's runUntil loop continue running it; for a NativeFunction it runs
// the Go function synchronously and pushes its result itself, since no
// bytecode frame is involved.
func (vm *VM) invoke(f *Fiber, callee Value, args []Value, line int) error {
	switch fn := callee.(type) {
	case *Closure:
		if err := vm.pushClosureFrame(f, fn, args); err != nil {
			if re, ok := err.(*RuntimeError); ok {
				re.Line = line
			}
			return err
		}
		return nil
	case *NativeFunction:
		v, err := fn.Fn(vm, args)
		if err != nil {
			return err
		}
		f.push(v)
		return nil
	case *Object:
		if m, ok := fn.Metamethod("__call"); ok {
			return vm.invoke(f, m, append([]Value{fn}, args...), line)
		}
	}
	return &RuntimeError{Line: line, Message: fmt.Sprintf("%s is not callable", callee.Type())}
}

// call implements the CALL opcode (spec.md §4.4): invoking a function the
// compiler already knows, at compile time, to be a known top-level,
// non-capturing function, by resolving it straight through the currently
// executing frame's own Program.Funcs table and jumping to its entry -
// chen_lang's top-level functions are ordinary locals of the implicit
// top-level frame (never stored in vm.Globals), so CALL looks the label up
// the same way CLOSURE does rather than through the global table.
func (vm *VM) call(f *Fiber, name string, nargs int, line int) error {
	prog := f.calls[len(f.calls)-1].prog
	sym, ok := prog.Funcs[name]
	if !ok {
		return &RuntimeError{Line: line, Message: fmt.Sprintf("undefined function %q", name)}
	}
	args := append([]Value(nil), f.stack[len(f.stack)-nargs:]...)
	f.stack = f.stack[:len(f.stack)-nargs]
	cl := &Closure{Label: name, Sym: sym, Prog: prog}
	if err := vm.pushClosureFrame(f, cl, args); err != nil {
		if re, ok := err.(*RuntimeError); ok {
			re.Line = line
		}
		return err
	}
	return nil
}

// callValue runs callee synchronously on the currently executing fiber and
// returns its result, for use from Go code that isn't itself inside the
// step() switch, such as metamethod dispatch (arith.go).
func (vm *VM) callValue(callee Value, args []Value, line int) (Value, error) {
	f := vm.current
	switch fn := callee.(type) {
	case *Closure:
		return vm.callSync(f, fn, args)
	case *NativeFunction:
		return fn.Fn(vm, args)
	case *Object:
		if m, ok := fn.Metamethod("__call"); ok {
			return vm.callValue(m, append([]Value{fn}, args...), line)
		}
	}
	return nil, &RuntimeError{Line: line, Message: fmt.Sprintf("%s is not callable", callee.Type())}
}

// makeClosure builds a Closure for a CLOSURE instruction's target label,
// resolving each of its declared upvalues against the enclosing frame: a
// FromLocal upvalue captures (and, if necessary, opens) a slot in the
// current frame, while a non-local one simply shares the enclosing
// closure's own cell for that upvalue, threading a capture chain outward
// exactly as resolver.go recorded it (spec.md §4.3).
func (vm *VM) makeClosure(f *Fiber, fr *callFrame, label string) (*Closure, error) {
	sym, ok := fr.prog.Funcs[label]
	if !ok {
		return nil, fmt.Errorf("undefined function label %q", label)
	}
	cl := &Closure{Label: label, Sym: sym, Prog: fr.prog}
	if len(sym.Upvalues) > 0 {
		cl.Upvalues = make([]*cell, len(sym.Upvalues))
		depth := len(f.calls) - 1
		for i, desc := range sym.Upvalues {
			if desc.FromLocal {
				cl.Upvalues[i] = vm.openCellFor(f, fr, depth, desc.Index)
			} else {
				cl.Upvalues[i] = fr.closure.Upvalues[desc.Index]
			}
		}
	}
	return cl, nil
}

// openCellFor returns the shared cell backing local slot in the frame at
// frameDepth, creating one (and moving the slot's current value into it) on
// first capture. Later reads/writes to that slot redirect through the cell
// via VM.getLocal/setLocal until CLOSEUPVALS retires it.
func (vm *VM) openCellFor(f *Fiber, fr *callFrame, frameDepth, slot int) *cell {
	key := openCellKey{frameDepth, slot}
	if c, ok := f.openCells[key]; ok {
		return c
	}
	for fr.fp+slot >= len(f.stack) {
		f.stack = append(f.stack, Null)
	}
	c := &cell{v: f.stack[fr.fp+slot]}
	f.openCells[key] = c
	return c
}

// getField implements spec.md §4.4's unified field/method lookup for
// GETFIELD, GETMETHOD, and GETINDEX: an Object consults its own storage and
// then its prototype chain via GetField; a String delegates straight to the
// VM's StringProto so "abc":len() resolves like any prototype method call.
func (vm *VM) getField(recv Value, name string) (Value, error) {
	switch v := recv.(type) {
	case *Object:
		val, err := v.GetField(name)
		if err != nil {
			return nil, err
		}
		return val, nil
	case Str:
		if vm.StringProto == nil {
			return nil, fmt.Errorf("no such field %q on string", name)
		}
		return vm.StringProto.GetField(name)
	default:
		return nil, fmt.Errorf("%s has no field %q", recv.Type(), name)
	}
}
