package machine

import "sync"

// readyItem is one fiber queued to resume, carrying the value that its
// suspended coroutine.yield (or blocking call) should return.
type readyItem struct {
	fiber *Fiber
	value Value
}

// asyncRuntime is chen_lang's cooperative scheduler (spec.md §4.6): a
// ready queue drained by await_all (AwaitAll) and by Run, plus a pending
// counter tracking outstanding timers/IO so the draining loop knows when
// there is nothing left to wait for. Background timer goroutines only ever
// enqueue; they never resume a fiber directly, so a fiber runs only when
// the draining loop resumes it, and one fiber runs at a time.
type asyncRuntime struct {
	mu      sync.Mutex
	readyQ  []readyItem
	pending int
	notify  chan struct{}
}

func (a *asyncRuntime) init() {
	a.notify = make(chan struct{}, 1)
}

// enqueue places f on the ready queue, unless it is already sitting there
// unconsumed: coroutine.spawn and coroutine.await_all can both try to
// schedule the same not-yet-started fiber, and a duplicate entry would
// make AwaitAll resume it twice, the second time sending on a resumeCh
// nobody is left reading (the first resume already ran it to completion
// or suspension) and deadlocking the scheduler goroutine.
func (a *asyncRuntime) enqueue(f *Fiber, v Value) {
	a.mu.Lock()
	if f.queued {
		a.mu.Unlock()
		return
	}
	f.queued = true
	a.readyQ = append(a.readyQ, readyItem{fiber: f, value: v})
	a.mu.Unlock()
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

func (a *asyncRuntime) dequeue() (readyItem, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.readyQ) == 0 {
		return readyItem{}, false
	}
	item := a.readyQ[0]
	a.readyQ = a.readyQ[1:]
	item.fiber.queued = false
	return item, true
}

func (a *asyncRuntime) addPending(n int) {
	a.mu.Lock()
	a.pending += n
	a.mu.Unlock()
}

func (a *asyncRuntime) pendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// AwaitAll drains the ready queue and blocks for background timer/IO
// goroutines to enqueue their fiber, until both the queue is empty and no
// timer/IO call is outstanding (spec.md §4.6's await_all semantics). Each
// dequeued fiber is resumed synchronously on the calling goroutine, one at
// a time, by sending on its resumeCh and waiting for its next yieldCh
// report.
func (vm *VM) AwaitAll() error {
	for {
		if item, ok := vm.async.dequeue(); ok {
			if _, err := vm.Resume(item.fiber, item.value); err != nil {
				return err
			}
			continue
		}
		if vm.async.pendingCount() == 0 {
			return nil
		}
		<-vm.async.notify
	}
}

// Current returns the fiber presently executing on this VM.
func (vm *VM) Current() *Fiber { return vm.current }

// Yield suspends the currently running fiber, reporting value to whichever
// goroutine last resumed it, and blocks until the next resume delivers a
// value back (spec.md §4.5's coroutine.yield). Called from the native
// coroutine.yield implementation; it is an error to call this when the
// current fiber has no caller (the root fiber, or any fiber running
// outside a resume/spawn context).
func (vm *VM) Yield(value Value) (Value, error) {
	f := vm.current
	if f == nil || f == vm.root || f.caller == nil {
		return nil, &RuntimeError{Message: "yield from root"}
	}
	return vm.Suspend(value)
}

// Suspend reports value on the current fiber's yieldCh and blocks until
// its next resume, the same context-switch mechanism Yield uses, but
// without Yield's "must have a caller" restriction: it backs every
// blocking stdlib call (timer.sleep, async http), which must be able to
// suspend even the root fiber.
func (vm *VM) Suspend(value Value) (Value, error) {
	f := vm.current
	f.yieldCh <- yieldMsg{value: value}
	msg := <-f.resumeCh
	return msg.value, nil
}

// AddPending adjusts the async runtime's outstanding-work counter; a
// blocking stdlib call increments it before launching its background
// goroutine and decrements it once that goroutine enqueues the fiber's
// result, so AwaitAll (and Run) know whether it's safe to conclude there is
// nothing left to wait for.
func (vm *VM) AddPending(n int) { vm.async.addPending(n) }

// EnqueueReady places f on the ready queue to be resumed with v the next
// time the queue is drained, by AwaitAll or by Run.
func (vm *VM) EnqueueReady(f *Fiber, v Value) { vm.async.enqueue(f, v) }

// Spawn schedules callee to start running on a fresh fiber the next time
// the ready queue is drained, and returns that fiber (spec.md §4.5's
// coroutine.spawn).
func (vm *VM) Spawn(caller *Fiber, callee Value, args []Value) *Fiber {
	f := vm.StartFiber(caller, callee, args)
	vm.async.enqueue(f, Null)
	return f
}

// StartFiber creates a new Fiber for callee (a Closure or NativeFunction)
// with args as its initial arguments, without running it: the fiber's own
// goroutine starts on its first Resume. Once started, the fiber runs until
// it either returns, throws uncaught, or yields; in every case control
// returns to the resuming goroutine via yieldCh, exactly as Resume expects.
func (vm *VM) StartFiber(caller *Fiber, callee Value, args []Value) *Fiber {
	f := newFiber()
	f.caller = caller
	f.callee = callee
	f.initArgs = args
	f.yieldCh = make(chan yieldMsg)
	f.resumeCh = make(chan resumeMsg)
	return f
}

// Resume sends v into f's goroutine (starting it on first resume) and
// blocks for its next yield or completion report, updating f.state and
// vm.current to match. It implements the context-switch half of
// coroutine.resume (spec.md §4.5); the caller is responsible for the
// Running/Dead pre-checks that determine whether a context switch should
// happen at all (lang/stdlib/coroutine.go).
func (vm *VM) Resume(f *Fiber, v Value) (Value, error) {
	prevCurrent := vm.current
	f.caller = prevCurrent
	f.state = FiberRunning
	vm.current = f

	if !f.started {
		f.started = true
		go vm.runFiberGoroutine(f)
	} else {
		f.resumeCh <- resumeMsg{value: v}
	}

	msg := <-f.yieldCh
	vm.current = prevCurrent
	if msg.dead {
		f.state = FiberDead
		f.result = msg.value
	} else {
		f.state = FiberSuspended
	}
	return msg.value, msg.err
}

// runFiberGoroutine is the body of a started Fiber's dedicated goroutine:
// it runs the callee to completion via the ordinary callSync path and
// reports the outcome on yieldCh. coroutine.yield and blocking stdlib
// calls (lang/stdlib/coroutine.go, timer.go) suspend by simply blocking
// this goroutine in place on f.resumeCh, arbitrarily deep inside the
// native-call chain below callSync; Go's own goroutine stack is the save
// point, so nothing here needs to unwind or resume bytecode execution
// manually.
func (vm *VM) runFiberGoroutine(f *Fiber) {
	var result Value
	var err error
	switch fn := f.callee.(type) {
	case *Closure:
		result, err = vm.callSync(f, fn, f.initArgs)
	case *NativeFunction:
		result, err = fn.Fn(vm, f.initArgs)
	default:
		err = &RuntimeError{Message: "coroutine body is not callable"}
	}
	f.yieldCh <- yieldMsg{value: result, dead: true, err: err}
}
