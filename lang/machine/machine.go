package machine

import (
	"fmt"

	"github.com/chenlang/chenlang/lang/compiler"
)

// RuntimeError is a VM-level error tied to the source line active when it
// was raised (spec.md §7).
type RuntimeError struct {
	Line    int
	Message string
}

func (e *RuntimeError) Error() string { return fmt.Sprintf("%d: %s", e.Line, e.Message) }

// UncaughtException wraps a user `throw` that escaped every installed
// handler (spec.md §7): its Value is the thrown value, its message the
// printed form of that value.
type UncaughtException struct {
	Line  int
	Value Value
}

func (e *UncaughtException) Error() string {
	return fmt.Sprintf("%d: uncaught exception: %s", e.Line, Printed(e.Value))
}

// Importer resolves an import path to a Value: either a builtin stdlib
// module or a freshly compiled-and-executed script, with its own caching.
type Importer interface {
	Import(vm *VM, path string) (Value, error)
}

// VM is one chen_lang virtual machine: the global variable table, the
// array/string/object prototypes backing the native module surface, the
// currently running fiber, and the async ready-queue runtime
// (spec.md §4.5-4.6).
type VM struct {
	Globals *Object

	ArrayProto  *Object
	StringProto *Object
	ObjectProto *Object

	Importer Importer

	// MaxSteps bounds the total number of instructions Run/runUntil may
	// execute across every fiber before aborting with a RuntimeError; zero
	// means unbounded (SPEC_FULL.md §6.7, CHENLANG_MAX_STEPS).
	MaxSteps int64
	// MaxCallDepth bounds pushClosureFrame's nesting; zero means unbounded
	// (SPEC_FULL.md §6.7, CHENLANG_MAX_CALL_DEPTH).
	MaxCallDepth int

	steps int64

	root    *Fiber
	current *Fiber

	async asyncRuntime
}

func NewVM() *VM {
	vm := &VM{
		Globals:     NewObject(),
		ArrayProto:  NewObject(),
		StringProto: NewObject(),
		ObjectProto: NewObject(),
	}
	vm.async.init()
	return vm
}

// Run executes prog from its entry point on a fresh root fiber and returns
// its final value. The root fiber is driven exactly like any other fiber
// (SPEC_FULL.md §4.7): if the script itself calls a blocking stdlib
// function (timer.sleep, async http), Run transparently keeps draining the
// ready queue until the root fiber's own run completes, the same loop
// coroutine.await_all uses for fibers it is waiting on.
func (vm *VM) Run(prog *compiler.Program) (Value, error) {
	root := newFiber()
	root.yieldCh = make(chan yieldMsg)
	root.resumeCh = make(chan resumeMsg)
	root.callee = &Closure{Label: prog.Name, Sym: &compiler.FuncSym{Addr: prog.Entry}, Prog: prog}
	vm.root = root
	vm.current = root

	val, err := vm.Resume(root, Null)
	for root.State() != FiberDead {
		if err != nil {
			return nil, err
		}
		item, ok := vm.async.dequeue()
		if !ok {
			if vm.async.pendingCount() == 0 {
				return nil, &RuntimeError{Message: "deadlock: fiber suspended with no pending async work"}
			}
			<-vm.async.notify
			continue
		}
		val, err = vm.Resume(item.fiber, item.value)
	}
	return val, err
}

// runUntil executes f's bytecode until its call stack depth drops back to
// targetDepth (a RETURN at that depth truncates the stack and pushes the
// result), returning that result. It powers both the top-level Run and
// every nested synchronous call (normal calls, metamethods, native
// callbacks): suspension (coroutine.yield, blocking stdlib calls) never
// happens here, since it's implemented inside the relevant native
// function's Go code by parking the current goroutine (spec.md §5's
// "only at coroutine.yield... no other instruction suspends").
func (vm *VM) runUntil(f *Fiber, targetDepth int) (Value, error) {
	for len(f.calls) > targetDepth {
		fr := f.curFrame()
		code := fr.prog.Code
		if fr.pc >= len(code) {
			return nil, &RuntimeError{Message: "program counter ran off the end of the instruction stream"}
		}
		inst := code[fr.pc]
		line := fr.prog.Lines[fr.pc]
		fr.pc++

		if vm.MaxSteps > 0 {
			vm.steps++
			if vm.steps > vm.MaxSteps {
				return nil, &RuntimeError{Line: line, Message: fmt.Sprintf("step budget exceeded (max %d)", vm.MaxSteps)}
			}
		}

		err := vm.step(f, fr, inst, line)
		if err != nil {
			if rerr, unwound := vm.unwind(f, err); unwound {
				continue
			}
			return nil, rerr
		}
	}
	if len(f.stack) == 0 {
		return Null, nil
	}
	return f.pop(), nil
}

func (vm *VM) step(f *Fiber, fr *callFrame, inst compiler.Inst, line int) error {
	switch inst.Op {
	case compiler.NOP:
		// no-op

	case compiler.PUSHCONST:
		v, err := vm.constValue(fr.prog, inst.Arg)
		if err != nil {
			return &RuntimeError{Line: line, Message: err.Error()}
		}
		f.push(v)

	case compiler.POP:
		f.pop()
	case compiler.DUP:
		f.push(f.top())

	case compiler.LOADLOCAL:
		f.push(vm.getLocal(f, fr, int(inst.Arg)))
	case compiler.STORELOCAL:
		vm.setLocal(f, fr, int(inst.Arg), f.pop())

	case compiler.LOADUPVAL:
		f.push(fr.closure.Upvalues[inst.Arg].v)
	case compiler.STOREUPVAL:
		fr.closure.Upvalues[inst.Arg].v = f.pop()

	case compiler.LOADGLOBAL:
		v, ok := vm.Globals.Get(inst.Name)
		if !ok {
			return &RuntimeError{Line: line, Message: fmt.Sprintf("undefined variable %q", inst.Name)}
		}
		f.push(v)
	case compiler.STOREGLOBAL:
		_ = vm.Globals.Set(inst.Name, f.pop())

	case compiler.CLOSEUPVALS:
		depth := len(f.calls) - 1
		for key := range f.openCells {
			if key.frameDepth == depth && key.slot >= int(inst.Arg) {
				delete(f.openCells, key)
			}
		}

	case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD:
		b, a := f.pop(), f.pop()
		v, err := vm.arith(inst.Op, a, b, line)
		if err != nil {
			return err
		}
		f.push(v)

	case compiler.EQ:
		b, a := f.pop(), f.pop()
		f.push(Bool(Equal(a, b)))
	case compiler.NEQ:
		b, a := f.pop(), f.pop()
		f.push(Bool(!Equal(a, b)))
	case compiler.LT, compiler.LE, compiler.GT, compiler.GE:
		b, a := f.pop(), f.pop()
		v, err := vm.compare(inst.Op, a, b, line)
		if err != nil {
			return err
		}
		f.push(v)

	case compiler.NOT:
		f.push(Bool(!Truthy(f.pop())))
	case compiler.TOBOOL:
		f.push(Bool(Truthy(f.pop())))

	case compiler.JUMP:
		fr.pc = int(inst.Arg)
	case compiler.JUMPIFFALSE:
		if !Truthy(f.pop()) {
			fr.pc = int(inst.Arg)
		}
	case compiler.JUMPIFTRUE:
		if Truthy(f.pop()) {
			fr.pc = int(inst.Arg)
		}

	case compiler.CALL:
		return vm.call(f, inst.Name, int(inst.Arg), line)
	case compiler.CALLSTACK:
		n := int(inst.Arg)
		callee := f.stack[len(f.stack)-n-1]
		args := append([]Value(nil), f.stack[len(f.stack)-n:]...)
		f.stack = f.stack[:len(f.stack)-n-1]
		return vm.invoke(f, callee, args, line)

	case compiler.RETURN:
		ret := f.pop()
		depth := len(f.calls) - 1
		for key := range f.openCells {
			if key.frameDepth == depth {
				delete(f.openCells, key)
			}
		}
		f.truncate(fr.fp)
		f.calls = f.calls[:len(f.calls)-1]
		f.push(ret)

	case compiler.CLOSURE:
		c, err := vm.makeClosure(f, fr, inst.Name)
		if err != nil {
			return &RuntimeError{Line: line, Message: err.Error()}
		}
		f.push(c)

	case compiler.NEWOBJECT:
		o := NewObject()
		o.Prototype = vm.ObjectProto
		f.push(o)
	case compiler.GETFIELD:
		v, err := vm.getField(f.pop(), inst.Name)
		if err != nil {
			return &RuntimeError{Line: line, Message: err.Error()}
		}
		f.push(v)
	case compiler.SETFIELD:
		val := f.pop()
		obj := f.pop()
		o, ok := obj.(*Object)
		if !ok {
			return &RuntimeError{Line: line, Message: fmt.Sprintf("cannot set field %q on a %s", inst.Name, obj.Type())}
		}
		if err := o.Set(inst.Name, val); err != nil {
			return &RuntimeError{Line: line, Message: err.Error()}
		}
	case compiler.GETMETHOD:
		obj := f.pop()
		method, err := vm.getField(obj, inst.Name)
		if err != nil {
			return &RuntimeError{Line: line, Message: err.Error()}
		}
		f.push(method)
		f.push(obj)
	case compiler.GETINDEX:
		idx := f.pop()
		obj := f.pop()
		v, err := vm.getField(obj, Printed(idx))
		if err != nil {
			return &RuntimeError{Line: line, Message: err.Error()}
		}
		f.push(v)
	case compiler.SETINDEX:
		val := f.pop()
		idx := f.pop()
		obj := f.pop()
		o, ok := obj.(*Object)
		if !ok {
			return &RuntimeError{Line: line, Message: fmt.Sprintf("cannot index-set a %s", obj.Type())}
		}
		if err := o.Set(Printed(idx), val); err != nil {
			return &RuntimeError{Line: line, Message: err.Error()}
		}
	case compiler.BUILDARRAY:
		n := int(inst.Arg)
		items := append([]Value(nil), f.stack[len(f.stack)-n:]...)
		f.stack = f.stack[:len(f.stack)-n]
		f.push(NewArray(items, vm.ArrayProto))

	case compiler.THROW:
		v := f.pop()
		return &thrownValue{line: line, value: v}

	case compiler.PUSHHANDLER:
		f.handler = append(f.handler, exceptionHandler{
			catchAddr:  int(inst.Arg),
			stackBase:  len(f.stack),
			frameDepth: len(f.calls) - 1,
			fp:         fr.fp,
		})
	case compiler.POPHANDLER:
		f.handler = f.handler[:len(f.handler)-1]

	case compiler.IMPORT:
		if vm.Importer == nil {
			return &RuntimeError{Line: line, Message: "no importer configured"}
		}
		v, err := vm.Importer.Import(vm, inst.Name)
		if err != nil {
			return &RuntimeError{Line: line, Message: err.Error()}
		}
		f.push(v)

	default:
		return &RuntimeError{Line: line, Message: fmt.Sprintf("unimplemented opcode %s", inst.Op)}
	}
	return nil
}

func (vm *VM) constValue(prog *compiler.Program, idx int32) (Value, error) {
	k := prog.Consts[idx]
	switch k.Kind {
	case compiler.ConstInt:
		return Int(k.Int), nil
	case compiler.ConstFloat:
		return ParseFloat(k.Text)
	case compiler.ConstString:
		return Str(k.Text), nil
	case compiler.ConstBool:
		return Bool(k.Text == "true"), nil
	default:
		return Null, nil
	}
}

func (vm *VM) getLocal(f *Fiber, fr *callFrame, slot int) Value {
	depth := len(f.calls) - 1
	if c, ok := f.openCells[openCellKey{depth, slot}]; ok {
		return c.v
	}
	return f.stack[fr.fp+slot]
}

func (vm *VM) setLocal(f *Fiber, fr *callFrame, slot int, v Value) {
	depth := len(f.calls) - 1
	if c, ok := f.openCells[openCellKey{depth, slot}]; ok {
		c.v = v
		return
	}
	for fr.fp+slot >= len(f.stack) {
		f.stack = append(f.stack, Null)
	}
	f.stack[fr.fp+slot] = v
}
