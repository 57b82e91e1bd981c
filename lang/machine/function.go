package machine

import (
	"fmt"

	"github.com/chenlang/chenlang/lang/compiler"
)

// cell is a box containing a Value, used to hold locals captured by a
// nested function so the outer and inner functions share one storage
// location, in the shape of the teacher's lang/machine/cell.go. A cell
// starts open (its Value field aliases a stack slot via the fiber's
// openCells table) and is closed (made independent of the stack) when its
// owning scope exits.
type cell struct{ v Value }

func (c *cell) Type() string   { return "cell" }
func (c *cell) String() string { return "cell" }

// Closure is a compiled function bound to its captured upvalue cells and
// the Program it was compiled from (spec.md §3, §6.5: a closure always
// carries the specific program it belongs to, since two programs -
// an imported module and the main script - may coexist).
type Closure struct {
	Label     string
	Sym       *compiler.FuncSym
	Prog      *compiler.Program
	Upvalues  []*cell
}

func (c *Closure) Type() string { return "closure" }
func (c *Closure) String() string {
	return fmt.Sprintf("function(%s)", c.Label)
}

// NativeFunction is a host-provided builtin, the way chen_lang's stdlib
// modules (io, json, fs, http, ...) and Array/String/Object prototype
// methods are implemented.
type NativeFunction struct {
	Name string
	Fn   func(vm *VM, args []Value) (Value, error)
}

func (n *NativeFunction) Type() string   { return "native_function" }
func (n *NativeFunction) String() string { return fmt.Sprintf("native_function(%s)", n.Name) }
