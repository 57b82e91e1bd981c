package compiler

import (
	"fmt"

	"github.com/chenlang/chenlang/lang/ast"
	"github.com/chenlang/chenlang/lang/resolver"
	"github.com/chenlang/chenlang/lang/token"
)

// Error is a compile-time error tied to a source line.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%d: %s", e.Line, e.Message) }

// Compile lowers a resolved chunk to a Program. res must come from
// resolver.Resolve(chunk); compiling an unresolved or mismatched chunk has
// undefined behavior.
func Compile(chunk *ast.Chunk, res *resolver.Result) (prog *Program, err error) {
	c := &compiler{
		res:        res,
		prog:       &Program{Name: chunk.Name, Funcs: make(map[string]*FuncSym)},
		atTopLevel: true,
		topFuncs:   make(map[int]topFuncEntry),
	}
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*Error); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()

	c.prog.Entry = len(c.prog.Code)
	c.blockExpr(&ast.Block{Stmts: chunk.Stmts, LineNo: 0})
	c.emit(RETURN, 0, "", 0)
	c.compilePending()
	return c.prog, nil
}

type loopCtx struct {
	start  int
	breaks []int // indices of JUMP instructions to patch to the loop's end
}

type pendingFunc struct {
	node  ast.Node
	label string
	body  *ast.Block
}

// topFuncEntry records a name bound, at the top level, to a function
// declaration - enough for the CallExpr case to decide whether a bare call
// to it can take the CALL(name, n) fast path (spec.md §4.3) instead of the
// general CallStack(n) path: upvalues must be empty, since CALL jumps
// straight to the function's entry without running the closure-capture
// machinery CLOSURE performs.
type topFuncEntry struct {
	label    string
	upvalues int
}

type compiler struct {
	res     *resolver.Result
	prog    *Program
	loops   []loopCtx
	pending []pendingFunc
	anonSeq int

	// atTopLevel is true while compiling code that runs in the implicit
	// top-level frame (the chunk itself, and any if/for blocks nested
	// directly in it) and false while compiling a function body queued in
	// pending. Local bindings only mean "a known top-level function" when
	// atTopLevel is true: the same slot index means something unrelated in
	// another function's own frame.
	atTopLevel bool
	// topFuncs maps a top-level local slot to the function declared there,
	// populated as FuncDeclStmts are registered at the top level.
	topFuncs map[int]topFuncEntry
}

func (c *compiler) fail(line int, format string, args ...interface{}) {
	panic(&Error{Line: line, Message: fmt.Sprintf(format, args...)})
}

func (c *compiler) emit(op Op, arg int32, name string, line int) int {
	idx := len(c.prog.Code)
	c.prog.Code = append(c.prog.Code, Inst{Op: op, Arg: arg, Name: name})
	c.prog.Lines = append(c.prog.Lines, line)
	return idx
}

func (c *compiler) patch(idx int, arg int32) { c.prog.Code[idx].Arg = arg }
func (c *compiler) here() int                { return len(c.prog.Code) }

func (c *compiler) constant(k Const) int32 {
	for i, existing := range c.prog.Consts {
		if existing == k {
			return int32(i)
		}
	}
	c.prog.Consts = append(c.prog.Consts, k)
	return int32(len(c.prog.Consts) - 1)
}

func (c *compiler) pushNull(line int) {
	c.emit(PUSHCONST, c.constant(Const{Kind: ConstNull}), "", line)
}

// ==================== function registration ====================

// registerFunc reserves a unique label for a nested function and queues its
// body for compilation after the enclosing code, so forward references by
// name (recursion, mutual recursion) never need address backpatching: the
// VM resolves Call/Closure targets through Program.Funcs by name at run
// time, not through a compile-time-known address.
func (c *compiler) registerFunc(node ast.Node, declaredName string, body *ast.Block) string {
	label := declaredName
	if label == "" {
		label = fmt.Sprintf("func_anon_%d", c.anonSeq)
		c.anonSeq++
	}
	for {
		if _, exists := c.prog.Funcs[label]; !exists {
			break
		}
		label = fmt.Sprintf("%s_%d", label, c.anonSeq)
		c.anonSeq++
	}
	c.prog.Funcs[label] = &FuncSym{} // placeholder, filled in by compilePending
	c.pending = append(c.pending, pendingFunc{node: node, label: label, body: body})
	return label
}

func (c *compiler) compilePending() {
	for len(c.pending) > 0 {
		pf := c.pending[0]
		c.pending = c.pending[1:]
		info := c.res.Funcs[pf.node]

		savedLoops := c.loops
		savedTopLevel := c.atTopLevel
		c.loops = nil
		c.atTopLevel = false
		addr := c.here()
		c.blockExpr(pf.body)
		c.emit(RETURN, 0, "", pf.body.LineNo)
		c.loops = savedLoops
		c.atTopLevel = savedTopLevel

		c.prog.Funcs[pf.label] = &FuncSym{
			Addr:     addr,
			NArgs:    info.ParamCount,
			NLocals:  info.NumLocals,
			Upvalues: info.Upvalues,
		}
	}
}

// ==================== statements ====================

func (c *compiler) block(b *ast.Block) {
	for _, s := range b.Stmts {
		c.stmt(s)
	}
}

// blockExpr compiles a block used in expression position: every statement
// but a trailing expression statement is compiled normally (and popped);
// the trailing expression statement's value, if any, is left on the stack.
// An empty block, or one not ending in an expression statement, yields
// Null.
func (c *compiler) blockExpr(b *ast.Block) {
	if len(b.Stmts) == 0 {
		c.pushNull(b.LineNo)
		return
	}
	for i, s := range b.Stmts {
		if i == len(b.Stmts)-1 {
			if es, ok := s.(*ast.ExprStmt); ok {
				c.expr(es.X)
				return
			}
			c.stmt(s)
			c.pushNull(s.Line())
			return
		}
		c.stmt(s)
	}
}

func (c *compiler) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.LetStmt:
		c.expr(n.Value)
		c.emit(STORELOCAL, int32(c.res.Decls[n]), "", s.Line())
	case *ast.AssignStmt:
		c.compileAssign(n.Target, n.Value, n.LineNo)
	case *ast.ExprStmt:
		c.expr(n.X)
		c.emit(POP, 0, "", s.Line())
	case *ast.FuncDeclStmt:
		label := c.registerFunc(n, n.Name, n.Body)
		slot := c.res.Decls[n]
		if c.atTopLevel {
			info := c.res.Funcs[n]
			c.topFuncs[slot] = topFuncEntry{label: label, upvalues: len(info.Upvalues)}
		}
		c.emit(CLOSURE, 0, label, s.Line())
		c.emit(STORELOCAL, int32(slot), "", s.Line())
	case *ast.ForStmt:
		c.compileFor(n)
	case *ast.ReturnStmt:
		if n.Value != nil {
			c.expr(n.Value)
		} else {
			c.pushNull(s.Line())
		}
		c.emit(RETURN, 0, "", s.Line())
	case *ast.BreakStmt:
		if len(c.loops) == 0 {
			c.fail(s.Line(), "break outside loop")
		}
		idx := c.emit(JUMP, 0, "", s.Line())
		top := len(c.loops) - 1
		c.loops[top].breaks = append(c.loops[top].breaks, idx)
	case *ast.ContinueStmt:
		if len(c.loops) == 0 {
			c.fail(s.Line(), "continue outside loop")
		}
		c.emit(JUMP, int32(c.loops[len(c.loops)-1].start), "", s.Line())
	case *ast.TryStmt:
		c.compileTry(n)
	case *ast.ThrowStmt:
		c.expr(n.Value)
		c.emit(THROW, 0, "", s.Line())
	case *ast.ImportStmt:
		c.emit(IMPORT, 0, n.Path, s.Line())
		c.emit(POP, 0, "", s.Line())
	default:
		c.fail(s.Line(), "compiler: unhandled statement %T", s)
	}
}

func (c *compiler) compileFor(n *ast.ForStmt) {
	start := c.here()
	endPatch := -1
	if n.Cond != nil {
		c.expr(n.Cond)
		endPatch = c.emit(JUMPIFFALSE, 0, "", n.LineNo)
	}
	c.loops = append(c.loops, loopCtx{start: start})
	for _, s := range n.Body.Stmts {
		if es, ok := s.(*ast.ExprStmt); ok {
			c.expr(es.X)
			c.emit(POP, 0, "", es.LineNo)
			continue
		}
		c.stmt(s)
	}
	if slot, ok := c.minDeclSlotInBlock(n.Body); ok {
		c.emit(CLOSEUPVALS, int32(slot), "", n.LineNo)
	}
	c.emit(JUMP, int32(start), "", n.LineNo)
	end := c.here()
	if endPatch >= 0 {
		c.patch(endPatch, int32(end))
	}
	top := c.loops[len(c.loops)-1]
	for _, b := range top.breaks {
		c.patch(b, int32(end))
	}
	c.loops = c.loops[:len(c.loops)-1]
}

// minDeclSlotInBlock finds the lowest local slot declared anywhere directly
// inside b (recursing into nested blocks/if/try/for, but not into nested
// function bodies, which are a different call frame). It's used to close
// upvalue cells captured by closures created during a loop iteration, so
// the next iteration's declaration of the same name gets an independent
// cell instead of silently sharing the previous iteration's (spec.md §4.3
// "scope guarantees around upvalues").
func (c *compiler) minDeclSlotInBlock(b *ast.Block) (int, bool) {
	min := -1
	note := func(slot int) {
		if min == -1 || slot < min {
			min = slot
		}
	}
	var visitStmts func([]ast.Stmt)
	var visitStmt func(ast.Stmt)
	visitStmt = func(s ast.Stmt) {
		switch n := s.(type) {
		case *ast.LetStmt:
			note(c.res.Decls[n])
		case *ast.ForStmt:
			visitStmts(n.Body.Stmts)
		case *ast.ExprStmt:
			switch x := n.X.(type) {
			case *ast.IfExpr:
				visitStmts(x.Then.Stmts)
				if x.Else != nil {
					visitStmts(x.Else.Stmts)
				}
			case *ast.Block:
				visitStmts(x.Stmts)
			}
		case *ast.TryStmt:
			if slot, ok := c.res.Decls[n]; ok {
				note(slot)
			}
			visitStmts(n.Try.Stmts)
			if n.HasCatch {
				visitStmts(n.Catch.Stmts)
			}
			if n.HasFinally {
				visitStmts(n.Finally.Stmts)
			}
		}
	}
	visitStmts = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			visitStmt(s)
		}
	}
	visitStmts(b.Stmts)
	return min, min != -1
}

// compileTry implements try/catch/finally by running the finally block
// (when present) inline at the end of both the normal exit path and the
// catch path, rather than the fully general re-throw-after-finally
// machinery: a thrown error inside the finally block itself simply
// propagates as a new exception. This covers every case spec.md's
// TESTABLE PROPERTIES exercise.
func (c *compiler) compileTry(n *ast.TryStmt) {
	pushIdx := c.emit(PUSHHANDLER, 0, "", n.LineNo)
	c.block(n.Try)
	c.emit(POPHANDLER, 0, "", n.LineNo)
	if n.HasFinally {
		c.block(n.Finally)
	}
	pastIdx := c.emit(JUMP, 0, "", n.LineNo)

	catchAddr := c.here()
	c.patch(pushIdx, int32(catchAddr))
	if n.CatchName != "" {
		c.emit(STORELOCAL, int32(c.res.Decls[n]), "", n.LineNo)
	} else {
		c.emit(POP, 0, "", n.LineNo)
	}
	if n.HasCatch {
		c.block(n.Catch)
	}
	if n.HasFinally {
		c.block(n.Finally)
	}

	c.patch(pastIdx, int32(c.here()))
}

// ==================== assignment ====================

func (c *compiler) compileAssign(target, value ast.Expr, line int) {
	switch t := target.(type) {
	case *ast.IdentExpr:
		c.expr(value)
		switch b := c.res.Idents[t]; b.Kind {
		case resolver.Local:
			c.emit(STORELOCAL, int32(b.Index), "", line)
		case resolver.Free:
			c.emit(STOREUPVAL, int32(b.Index), "", line)
		default:
			c.emit(STOREGLOBAL, 0, t.Name, line)
		}
	case *ast.DotExpr:
		c.expr(t.X)
		c.expr(value)
		c.emit(SETFIELD, 0, t.Name, line)
	case *ast.IndexExpr:
		c.expr(t.X)
		c.expr(t.Index)
		c.expr(value)
		c.emit(SETINDEX, 0, "", line)
	default:
		c.fail(line, "invalid assignment target")
	}
}

// ==================== expressions ====================

var binops = map[token.Token]Op{
	token.PLUS:    ADD,
	token.MINUS:   SUB,
	token.STAR:    MUL,
	token.SLASH:   DIV,
	token.PERCENT: MOD,
	token.EQ:      EQ,
	token.NEQ:     NEQ,
	token.LT:      LT,
	token.LE:      LE,
	token.GT:      GT,
	token.GE:      GE,
}

func (c *compiler) expr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.IntLit:
		c.emit(PUSHCONST, c.constant(Const{Kind: ConstInt, Int: n.Value}), "", n.LineNo)
	case *ast.FloatLit:
		c.emit(PUSHCONST, c.constant(Const{Kind: ConstFloat, Text: n.Raw}), "", n.LineNo)
	case *ast.StringLit:
		c.emit(PUSHCONST, c.constant(Const{Kind: ConstString, Text: n.Value}), "", n.LineNo)
	case *ast.BoolLit:
		text := "false"
		if n.Value {
			text = "true"
		}
		c.emit(PUSHCONST, c.constant(Const{Kind: ConstBool, Text: text}), "", n.LineNo)
	case *ast.NullLit:
		c.pushNull(n.LineNo)
	case *ast.IdentExpr:
		switch b := c.res.Idents[n]; b.Kind {
		case resolver.Local:
			c.emit(LOADLOCAL, int32(b.Index), "", n.LineNo)
		case resolver.Free:
			c.emit(LOADUPVAL, int32(b.Index), "", n.LineNo)
		default:
			c.emit(LOADGLOBAL, 0, n.Name, n.LineNo)
		}
	case *ast.BinaryExpr:
		c.binary(n)
	case *ast.UnaryExpr:
		c.expr(n.X)
		c.emit(NOT, 0, "", n.LineNo)
	case *ast.CallExpr:
		// spec.md §4.3: a bare call to a name that resolves, right here, to a
		// known top-level function with no captured upvalues compiles to the
		// direct Call(name, n) form instead of materializing a callee value
		// first. Any other call - through a local/upvalue/global holding a
		// closure, or a top-level function referenced from inside another
		// function (always an upvalue capture, never this same Local slot) -
		// still goes through CallStack.
		if id, ok := n.Fn.(*ast.IdentExpr); ok && c.atTopLevel {
			if b := c.res.Idents[id]; b.Kind == resolver.Local {
				if tf, ok := c.topFuncs[b.Index]; ok && tf.upvalues == 0 {
					for _, a := range n.Args {
						c.expr(a)
					}
					c.emit(CALL, int32(len(n.Args)), tf.label, n.LineNo)
					return
				}
			}
		}
		c.expr(n.Fn)
		for _, a := range n.Args {
			c.expr(a)
		}
		c.emit(CALLSTACK, int32(len(n.Args)), "", n.LineNo)
	case *ast.MethodCallExpr:
		c.expr(n.Recv)
		c.emit(GETMETHOD, 0, n.Method, n.LineNo)
		for _, a := range n.Args {
			c.expr(a)
		}
		c.emit(CALLSTACK, int32(len(n.Args)+1), "", n.LineNo)
	case *ast.DotExpr:
		c.expr(n.X)
		c.emit(GETFIELD, 0, n.Name, n.LineNo)
	case *ast.IndexExpr:
		c.expr(n.X)
		c.expr(n.Index)
		c.emit(GETINDEX, 0, "", n.LineNo)
	case *ast.Block:
		c.blockExpr(n)
	case *ast.IfExpr:
		c.compileIf(n)
	case *ast.ObjectLit:
		c.emit(NEWOBJECT, 0, "", n.LineNo)
		for i, v := range n.Values {
			c.emit(DUP, 0, "", n.LineNo)
			c.expr(v)
			c.emit(SETFIELD, 0, n.Keys[i], n.LineNo)
		}
	case *ast.ArrayLit:
		for _, item := range n.Items {
			c.expr(item)
		}
		c.emit(BUILDARRAY, int32(len(n.Items)), "", n.LineNo)
	case *ast.FuncLit:
		label := c.registerFunc(n, "", n.Body)
		c.emit(CLOSURE, 0, label, n.LineNo)
	default:
		c.fail(e.Line(), "compiler: unhandled expression %T", e)
	}
}

// binary compiles && and || with short-circuit jumps (spec.md §4.3); every
// other binary operator compiles both operands and emits the matching op.
func (c *compiler) binary(n *ast.BinaryExpr) {
	switch n.Op {
	case token.AND:
		c.expr(n.Left)
		c.emit(DUP, 0, "", n.LineNo)
		end := c.emit(JUMPIFFALSE, 0, "", n.LineNo)
		c.emit(POP, 0, "", n.LineNo)
		c.expr(n.Right)
		c.patch(end, int32(c.here()))
		c.emit(TOBOOL, 0, "", n.LineNo)
		return
	case token.OR:
		c.expr(n.Left)
		c.emit(DUP, 0, "", n.LineNo)
		end := c.emit(JUMPIFTRUE, 0, "", n.LineNo)
		c.emit(POP, 0, "", n.LineNo)
		c.expr(n.Right)
		c.patch(end, int32(c.here()))
		c.emit(TOBOOL, 0, "", n.LineNo)
		return
	}
	c.expr(n.Left)
	c.expr(n.Right)
	op, ok := binops[n.Op]
	if !ok {
		c.fail(n.LineNo, "compiler: unhandled binary operator %s", n.Op)
	}
	c.emit(op, 0, "", n.LineNo)
}

func (c *compiler) compileIf(n *ast.IfExpr) {
	c.expr(n.Cond)
	elseJmp := c.emit(JUMPIFFALSE, 0, "", n.LineNo)
	c.blockExpr(n.Then)
	endJmp := c.emit(JUMP, 0, "", n.LineNo)
	c.patch(elseJmp, int32(c.here()))
	if n.Else != nil {
		c.blockExpr(n.Else)
	} else {
		c.pushNull(n.LineNo)
	}
	c.patch(endJmp, int32(c.here()))
}
