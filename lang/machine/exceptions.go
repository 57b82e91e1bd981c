package machine

import "fmt"

// thrownValue is the internal error carrying a user `throw`'s Value up to
// the nearest installed exception handler (spec.md §4.4, §7).
type thrownValue struct {
	line  int
	value Value
}

func (t *thrownValue) Error() string {
	return fmt.Sprintf("%d: thrown: %s", t.line, Printed(t.value))
}

// errorValue converts any error reaching the unwinder into the Value a
// catch block observes: the thrown value itself for an explicit throw, or
// a String carrying the message for a native/runtime error, so that
// scripts can try-wrap native calls (spec.md §7).
func errorValue(err error) Value {
	switch e := err.(type) {
	case *thrownValue:
		return e.value
	case *RuntimeError:
		return Str(e.Message)
	default:
		return Str(err.Error())
	}
}

// unwind pops exception handlers off f's handler stack until one accepts
// err, restoring the operand stack, frame pointer, and program counter to
// that handler's catch site (spec.md §4.4's "Exception unwinding"). If no
// handler remains, err is promoted to an UncaughtException (for a thrown
// value) or returned unchanged (for any other runtime error), and handled
// is false so the caller propagates it out of execute.
func (vm *VM) unwind(f *Fiber, err error) (propagated error, handled bool) {
	if len(f.handler) > 0 {
		h := f.handler[len(f.handler)-1]
		f.handler = f.handler[:len(f.handler)-1]
		f.calls = f.calls[:h.frameDepth+1]
		f.truncate(h.stackBase)
		fr := f.curFrame()
		fr.pc = h.catchAddr
		fr.fp = h.fp
		f.push(errorValue(err))
		return nil, true
	}
	if te, ok := err.(*thrownValue); ok {
		return &UncaughtException{Line: te.line, Value: te.value}, false
	}
	return err, false
}
