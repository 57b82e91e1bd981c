package machine

import (
	"github.com/chenlang/chenlang/lang/compiler"
)

// FiberState is one of a Fiber's three lifecycle states (spec.md §4.5).
type FiberState int

const (
	FiberSuspended FiberState = iota
	FiberRunning
	FiberDead
)

func (s FiberState) String() string {
	switch s {
	case FiberRunning:
		return "running"
	case FiberDead:
		return "dead"
	default:
		return "suspended"
	}
}

// callFrame records one active call on a Fiber's bytecode-level call
// stack: the frame pointer into that fiber's operand stack, the Program
// the call executes in, and the Closure providing upvalues, in the shape
// of the original Rust implementation's CallFrame
// (original_source/src/vm/fiber.rs) generalized to this VM's Program/
// Closure split.
type callFrame struct {
	pc      int
	fp      int
	prog    *compiler.Program
	closure *Closure // nil when running a top-level program frame
}

// exceptionHandler records a pending try/catch handler: the catch address
// to jump to, and the operand-stack height / frame depth to restore to on
// unwind (spec.md §4.4's exception-unwinding rule).
type exceptionHandler struct {
	catchAddr  int
	stackBase  int
	frameDepth int
	fp         int
}

// yieldMsg is sent from a Fiber's own goroutine back to whichever
// goroutine last resumed it: either a yielded value (Suspended) or a
// final result (Dead).
type yieldMsg struct {
	value Value
	dead  bool
	err   error
}

// resumeMsg is sent into a suspended Fiber's own goroutine to unblock the
// coroutine.yield (or blocking stdlib call) that suspended it.
type resumeMsg struct {
	value Value
}

// Fiber is chen_lang's cooperative coroutine. Each Fiber, once started,
// owns a dedicated goroutine that runs its bytecode via callSync and the
// same runUntil loop every other call uses; coroutine.yield and blocking stdlib calls
// (timer.sleep, async http) suspend by blocking that goroutine on resumeCh
// after reporting a value on yieldCh, which doubles as chen_lang's
// "context switch" (spec.md §4.5) without needing to manually save and
// restore interpreter state: the goroutine's own Go call stack already is
// that state, parked until the next resume.
type Fiber struct {
	state  FiberState
	caller *Fiber

	callee   Value
	initArgs []Value
	started  bool
	queued   bool // sitting in the async ready queue, not yet dequeued
	yieldCh  chan yieldMsg
	resumeCh chan resumeMsg

	stack   []Value
	calls   []callFrame
	handler []exceptionHandler

	// result holds the value of the fiber's last completed run (its
	// top-level Return once it goes Dead), so host code driving
	// coroutine.await_all can collect it after the fact.
	result Value

	// openCells maps a not-yet-closed local slot, addressed by (frame
	// depth, slot), to the cell object sharing storage with that slot, so
	// closing (CLOSEUPVALS) lets a later declaration of the same slot get
	// an independent cell instead of silently reusing this one.
	openCells map[openCellKey]*cell
}

type openCellKey struct {
	frameDepth int
	slot       int
}

func newFiber() *Fiber {
	return &Fiber{state: FiberSuspended, openCells: make(map[openCellKey]*cell)}
}

func (f *Fiber) Type() string   { return "coroutine" }
func (f *Fiber) String() string { return "coroutine(" + f.state.String() + ")" }

// State reports this fiber's current lifecycle state.
func (f *Fiber) State() FiberState { return f.state }

// LastResult returns the value produced by this fiber's most recent
// completed run, valid once State() == FiberDead.
func (f *Fiber) LastResult() Value { return f.result }

// Started reports whether this fiber's goroutine has ever been launched.
func (f *Fiber) Started() bool { return f.started }

func (f *Fiber) push(v Value) { f.stack = append(f.stack, v) }

func (f *Fiber) pop() Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *Fiber) top() Value { return f.stack[len(f.stack)-1] }

func (f *Fiber) truncate(n int) { f.stack = f.stack[:n] }

func (f *Fiber) curFrame() *callFrame { return &f.calls[len(f.calls)-1] }

// Coroutine is the name spec.md's native module surface uses for this same
// type through coroutine.create/resume/yield/status.
type Coroutine = Fiber
