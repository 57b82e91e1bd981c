// Package machine implements chen_lang's bytecode virtual machine: the
// operand-stack execute loop, the runtime value model (prototype-based
// Objects with metatables, fixed-precision decimal numbers, closures with
// upvalue cells), cooperative fibers, and the async ready-queue runtime.
// The shape follows _examples/mna-nenuphar/lang/machine (cell indirection
// for captured locals, a swiss-map-backed map type, a Frame/call-stack
// execute loop) generalized to chen_lang's prototype object model, which
// the teacher's class-based runtime does not have.
package machine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Value is any chen_lang runtime value.
type Value interface {
	Type() string
	String() string
}

// Int is a 32-bit signed integer value.
type Int int32

func (Int) Type() string        { return "int" }
func (v Int) String() string    { return fmt.Sprintf("%d", int32(v)) }

// Float is a fixed-precision decimal number, backed by shopspring/decimal
// so that 0.1 + 0.2 == 0.3 holds exactly, the way the original
// rust_decimal-backed implementation guarantees (spec.md §3, §8).
type Float struct{ D decimal.Decimal }

func NewFloat(d decimal.Decimal) Float { return Float{D: d} }

func ParseFloat(text string) (Float, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return Float{}, err
	}
	return Float{D: d}, nil
}

func (Float) Type() string     { return "float" }
func (v Float) String() string { return v.D.String() }

// Bool is a boolean value.
type Bool bool

func (Bool) Type() string     { return "bool" }
func (v Bool) String() string {
	if v {
		return "true"
	}
	return "false"
}

// Str is an immutable string value.
type Str string

func (Str) Type() string     { return "string" }
func (v Str) String() string { return string(v) }

// Null is chen_lang's single null value.
type nullType struct{}

func (nullType) Type() string   { return "null" }
func (nullType) String() string { return "null" }

var Null Value = nullType{}

// IsNull reports whether v is chen_lang's null value.
func IsNull(v Value) bool { _, ok := v.(nullType); return ok }

// Truthy implements chen_lang's truthiness rule: false, null, 0, 0.0, and
// the empty string are falsy; everything else is truthy (spec.md §4.4).
func Truthy(v Value) bool {
	switch x := v.(type) {
	case Bool:
		return bool(x)
	case nullType:
		return false
	case Int:
		return x != 0
	case Float:
		return !x.D.IsZero()
	case Str:
		return x != ""
	default:
		return true
	}
}

// Printed renders v in the textual form used by string concatenation,
// string-keyed indexing, and uncaught-exception messages.
func Printed(v Value) string {
	if v == nil {
		return "null"
	}
	return v.String()
}

// Equal implements chen_lang's value-equality rule: reference equality for
// Object/Coroutine, value equality for primitives, and numeric comparison
// across Int/Float (spec.md §4.4).
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			return x == y
		case Float:
			return decimal.NewFromInt(int64(x)).Equal(y.D)
		}
		return false
	case Float:
		switch y := b.(type) {
		case Int:
			return x.D.Equal(decimal.NewFromInt(int64(y)))
		case Float:
			return x.D.Equal(y.D)
		}
		return false
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case nullType:
		return IsNull(b)
	case *Object:
		y, ok := b.(*Object)
		return ok && x == y
	case *Coroutine:
		y, ok := b.(*Coroutine)
		return ok && x == y
	case *Closure:
		y, ok := b.(*Closure)
		return ok && x == y
	default:
		return a == b
	}
}
