package compiler

import (
	"fmt"
	"strings"

	"github.com/chenlang/chenlang/lang/resolver"
)

// ConstKind tags the payload of a Const pool entry.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstString
	ConstBool
	ConstNull
)

// Const is a literal value baked into a Program's constant pool. Float
// constants carry their source decimal text verbatim; the machine package
// parses it into a shopspring/decimal.Decimal at load time so no precision
// is lost round-tripping through the compiler.
type Const struct {
	Kind ConstKind
	Int  int32
	Text string // FLoat raw text, or String/Bool("true"/"false") payload
}

// Inst is one bytecode instruction. Arg is a generic integer operand
// (constant index, local/upvalue slot, jump target, arg count); Name
// carries an operand that is a symbol (global/field/function/module name).
type Inst struct {
	Op   Op
	Arg  int32
	Name string
}

// FuncSym describes one compiled function: its entry address in the
// shared Code stream and the shape the VM needs to set up a call frame.
type FuncSym struct {
	Addr       int
	NArgs      int
	NLocals    int
	Upvalues   []resolver.UpvalDesc
}

// Program is a fully compiled chen_lang unit: a flat instruction stream
// (the top-level chunk's own code, plus every nested function's code,
// each reachable via Funcs), a constant pool, and a line map.
type Program struct {
	Name   string
	Code   []Inst
	Consts []Const
	Lines  []int
	Funcs  map[string]*FuncSym
	Entry  int // address of the top-level chunk's first instruction
}

// Disassemble renders Program in a human-readable textual form, in the
// shape of the teacher's opcode.String()-driven disassembly.
func (p *Program) Disassemble() string {
	var b strings.Builder
	fmt.Fprintf(&b, "; program %s (entry %d)\n", p.Name, p.Entry)
	for i, in := range p.Code {
		fmt.Fprintf(&b, "%4d  %-12s", i, in.Op)
		if in.Name != "" {
			fmt.Fprintf(&b, " %q", in.Name)
			if in.Op == CALL {
				fmt.Fprintf(&b, " %d", in.Arg)
			}
		} else if in.Arg != 0 || in.Op == PUSHCONST || in.Op == BUILDARRAY {
			fmt.Fprintf(&b, " %d", in.Arg)
		}
		if i < len(p.Lines) {
			fmt.Fprintf(&b, "\t; line %d", p.Lines[i])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
