package machine

import (
	"fmt"

	"github.com/chenlang/chenlang/lang/compiler"
	"github.com/shopspring/decimal"
)

func isNumeric(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	default:
		return false
	}
}

func asDecimal(v Value) decimal.Decimal {
	switch x := v.(type) {
	case Int:
		return decimal.NewFromInt32(int32(x))
	case Float:
		return x.D
	default:
		return decimal.Zero
	}
}

// arith implements spec.md §4.4's arithmetic semantics: Int⊕Int stays
// Int, any Int/Float mix promotes to Float with the Int value carried
// exactly, `+` concatenates when either side is a String, and `+ - *`
// between two non-numeric non-string operands fall back to the left then
// right operand's __add/__sub/__mul metamethod.
func (vm *VM) arith(op compiler.Op, a, b Value, line int) (Value, error) {
	if op == compiler.ADD {
		if _, ok := a.(Str); ok {
			return Str(Printed(a) + Printed(b)), nil
		}
		if _, ok := b.(Str); ok {
			return Str(Printed(a) + Printed(b)), nil
		}
	}

	if isNumeric(a) && isNumeric(b) {
		ai, aInt := a.(Int)
		bi, bInt := b.(Int)
		if aInt && bInt {
			v, err := intArith(op, ai, bi, line)
			if err != nil {
				return nil, err
			}
			return v, nil
		}
		x, y := asDecimal(a), asDecimal(b)
		var d decimal.Decimal
		switch op {
		case compiler.ADD:
			d = x.Add(y)
		case compiler.SUB:
			d = x.Sub(y)
		case compiler.MUL:
			d = x.Mul(y)
		case compiler.DIV:
			if y.IsZero() {
				return nil, &RuntimeError{Line: line, Message: "division by zero"}
			}
			d = x.Div(y)
		case compiler.MOD:
			if y.IsZero() {
				return nil, &RuntimeError{Line: line, Message: "division by zero"}
			}
			d = x.Mod(y)
		}
		return NewFloat(d), nil
	}

	if op == compiler.ADD || op == compiler.SUB || op == compiler.MUL {
		name := map[compiler.Op]string{compiler.ADD: "__add", compiler.SUB: "__sub", compiler.MUL: "__mul"}[op]
		if v, err, ok := vm.tryMetaBinop(a, b, name, line); ok {
			return v, err
		}
	}
	return nil, &RuntimeError{Line: line, Message: fmt.Sprintf("unsupported operand types for %s: %s and %s", op, a.Type(), b.Type())}
}

func intArith(op compiler.Op, a, b Int, line int) (Value, error) {
	switch op {
	case compiler.ADD:
		return a + b, nil
	case compiler.SUB:
		return a - b, nil
	case compiler.MUL:
		return a * b, nil
	case compiler.DIV:
		if b == 0 {
			return nil, &RuntimeError{Line: line, Message: "division by zero"}
		}
		return a / b, nil
	case compiler.MOD:
		if b == 0 {
			return nil, &RuntimeError{Line: line, Message: "division by zero"}
		}
		return a % b, nil
	}
	return nil, &RuntimeError{Line: line, Message: "unreachable int arithmetic op"}
}

// tryMetaBinop looks up name on a's object metatable, then b's, invoking
// the first one found with (a, b) as arguments via the normal call path.
func (vm *VM) tryMetaBinop(a, b Value, name string, line int) (Value, error, bool) {
	for _, recv := range [...]Value{a, b} {
		obj, ok := recv.(*Object)
		if !ok {
			continue
		}
		fn, ok := obj.Metamethod(name)
		if !ok {
			continue
		}
		v, err := vm.callValue(fn, []Value{a, b}, line)
		return v, err, true
	}
	return nil, nil, false
}

// compare implements numeric and lexicographic string comparisons; any
// other operand pairing is a runtime error (spec.md §4.4).
func (vm *VM) compare(op compiler.Op, a, b Value, line int) (Value, error) {
	if isNumeric(a) && isNumeric(b) {
		cmp := asDecimal(a).Cmp(asDecimal(b))
		return Bool(compareResult(op, cmp)), nil
	}
	as, aok := a.(Str)
	bs, bok := b.(Str)
	if aok && bok {
		cmp := 0
		if as < bs {
			cmp = -1
		} else if as > bs {
			cmp = 1
		}
		return Bool(compareResult(op, cmp)), nil
	}
	return nil, &RuntimeError{Line: line, Message: fmt.Sprintf("cannot compare %s and %s", a.Type(), b.Type())}
}

func compareResult(op compiler.Op, cmp int) bool {
	switch op {
	case compiler.LT:
		return cmp < 0
	case compiler.LE:
		return cmp <= 0
	case compiler.GT:
		return cmp > 0
	case compiler.GE:
		return cmp >= 0
	}
	return false
}
