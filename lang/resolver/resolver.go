// Package resolver walks a parsed chunk and classifies every identifier
// reference as local, free (captured from an enclosing function, i.e. an
// upvalue), or global, in the shape of
// _examples/mna-nenuphar/lang/resolver (block-scoped binding resolution
// prior to compilation) generalized to chen_lang's grammar: no labels, no
// classes, a single implicit top-level function instead of a file block.
package resolver

import (
	"fmt"

	"github.com/chenlang/chenlang/lang/ast"
)

// Kind classifies how a name resolves.
type Kind int

const (
	Global Kind = iota
	Local
	Free
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Free:
		return "free"
	default:
		return "global"
	}
}

// Binding is the resolution recorded for one identifier reference.
type Binding struct {
	Kind  Kind
	Index int // local slot (Local) or upvalue slot (Free); unused for Global
}

// UpvalDesc says where a function's Nth upvalue comes from in its
// immediately enclosing function: either that function's local slot
// FromLocal, or that function's own upvalue slot at Index.
type UpvalDesc struct {
	FromLocal bool
	Index     int
}

// FuncInfo is the resolution summary attached to one function body (a
// FuncLit, a FuncDeclStmt, or the implicit top-level chunk function).
type FuncInfo struct {
	NumLocals  int
	ParamCount int
	Upvalues   []UpvalDesc
}

// Result is the output of Resolve: per-identifier bindings and per-function
// slot/upvalue layouts, keyed by AST node identity.
type Result struct {
	Idents map[*ast.IdentExpr]Binding
	Funcs  map[ast.Node]*FuncInfo
	// Decls records the local slot assigned to a name at its declaration
	// site, for declarations that don't carry their own *ast.IdentExpr
	// node: *ast.LetStmt, *ast.FuncDeclStmt (the function's own name, bound
	// in the enclosing scope), and *ast.TryStmt (the caught value's name,
	// when bound).
	Decls map[ast.Node]int
}

// Error is a resolution error tied to a source line.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%d: %s", e.Line, e.Message) }

// Resolve classifies every identifier reference in chunk and returns the
// binding table used by the compiler to address locals, upvalue cells, and
// globals. The first error aborts resolution.
func Resolve(chunk *ast.Chunk) (*Result, error) {
	res := &Result{
		Idents: make(map[*ast.IdentExpr]Binding),
		Funcs:  make(map[ast.Node]*FuncInfo),
		Decls:  make(map[ast.Node]int),
	}
	r := &resolver{res: res}
	top := r.pushFunc(nil, 0)
	r.pushBlock()
	for _, s := range chunk.Stmts {
		if err := r.stmt(s); err != nil {
			return nil, err
		}
	}
	r.popBlock()
	res.Funcs[chunk] = top.info
	r.popFunc()
	return res, nil
}

// funcScope tracks one function's locals, its enclosing function (for
// upvalue resolution), and the name->upvalue-slot map already captured.
type funcScope struct {
	parent   *funcScope
	info     *FuncInfo
	blocks   []map[string]int // stack of block scopes, name -> local slot
	upvalIdx map[string]int   // name -> already-allocated upvalue slot in this func
}

type resolver struct {
	res *Result
	fn  *funcScope
}

func (r *resolver) pushFunc(parent *funcScope, paramCount int) *funcScope {
	fs := &funcScope{
		parent:   parent,
		info:     &FuncInfo{ParamCount: paramCount},
		upvalIdx: make(map[string]int),
	}
	r.fn = fs
	return fs
}

func (r *resolver) popFunc() {
	r.fn = r.fn.parent
}

func (r *resolver) pushBlock() {
	r.fn.blocks = append(r.fn.blocks, make(map[string]int))
}

func (r *resolver) popBlock() {
	r.fn.blocks = r.fn.blocks[:len(r.fn.blocks)-1]
}

// declare allocates a new local slot for name in the current block of the
// current function and returns its slot index.
func (r *resolver) declare(name string) int {
	slot := r.fn.info.NumLocals
	r.fn.info.NumLocals++
	r.fn.blocks[len(r.fn.blocks)-1][name] = slot
	return slot
}

// lookupLocal searches the current function's block stack only.
func (fs *funcScope) lookupLocal(name string) (int, bool) {
	for i := len(fs.blocks) - 1; i >= 0; i-- {
		if slot, ok := fs.blocks[i][name]; ok {
			return slot, true
		}
	}
	return 0, false
}

// resolveName classifies name as seen from the current function, walking
// outward through enclosing functions and threading upvalue descriptors
// through every intermediate function along the way.
func (r *resolver) resolveName(name string) Binding {
	return resolveIn(r.fn, name)
}

func resolveIn(fs *funcScope, name string) Binding {
	if slot, ok := fs.lookupLocal(name); ok {
		return Binding{Kind: Local, Index: slot}
	}
	if fs.parent == nil {
		return Binding{Kind: Global}
	}
	if slot, ok := fs.upvalIdx[name]; ok {
		return Binding{Kind: Free, Index: slot}
	}
	outer := resolveIn(fs.parent, name)
	switch outer.Kind {
	case Local:
		idx := len(fs.info.Upvalues)
		fs.info.Upvalues = append(fs.info.Upvalues, UpvalDesc{FromLocal: true, Index: outer.Index})
		fs.upvalIdx[name] = idx
		return Binding{Kind: Free, Index: idx}
	case Free:
		idx := len(fs.info.Upvalues)
		fs.info.Upvalues = append(fs.info.Upvalues, UpvalDesc{FromLocal: false, Index: outer.Index})
		fs.upvalIdx[name] = idx
		return Binding{Kind: Free, Index: idx}
	default:
		return Binding{Kind: Global}
	}
}

func (r *resolver) stmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.LetStmt:
		if err := r.expr(n.Value); err != nil {
			return err
		}
		r.res.Decls[n] = r.declare(n.Name)
	case *ast.AssignStmt:
		if err := r.expr(n.Value); err != nil {
			return err
		}
		return r.assignTarget(n.Target)
	case *ast.ExprStmt:
		return r.expr(n.X)
	case *ast.FuncDeclStmt:
		r.res.Decls[n] = r.declare(n.Name)
		return r.funcBody(n, n.Params, n.Body)
	case *ast.ForStmt:
		if n.Cond != nil {
			if err := r.expr(n.Cond); err != nil {
				return err
			}
		}
		r.pushBlock()
		for _, st := range n.Body.Stmts {
			if err := r.stmt(st); err != nil {
				return err
			}
		}
		r.popBlock()
	case *ast.ReturnStmt:
		if n.Value != nil {
			return r.expr(n.Value)
		}
	case *ast.BreakStmt, *ast.ContinueStmt:
		// no bindings
	case *ast.TryStmt:
		r.pushBlock()
		for _, st := range n.Try.Stmts {
			if err := r.stmt(st); err != nil {
				return err
			}
		}
		r.popBlock()
		if n.HasCatch {
			r.pushBlock()
			if n.CatchName != "" {
				r.res.Decls[n] = r.declare(n.CatchName)
			}
			for _, st := range n.Catch.Stmts {
				if err := r.stmt(st); err != nil {
					return err
				}
			}
			r.popBlock()
		}
		if n.HasFinally {
			r.pushBlock()
			for _, st := range n.Finally.Stmts {
				if err := r.stmt(st); err != nil {
					return err
				}
			}
			r.popBlock()
		}
	case *ast.ThrowStmt:
		return r.expr(n.Value)
	case *ast.ImportStmt:
		// import binds nothing into scope: the module value is accessed via
		// its own global namespace entry, resolved dynamically by the VM.
	default:
		return &Error{Line: s.Line(), Message: fmt.Sprintf("resolver: unhandled statement %T", s)}
	}
	return nil
}

func (r *resolver) assignTarget(target ast.Expr) error {
	switch t := target.(type) {
	case *ast.IdentExpr:
		r.res.Idents[t] = r.resolveName(t.Name)
	case *ast.DotExpr:
		return r.expr(t.X)
	case *ast.IndexExpr:
		if err := r.expr(t.X); err != nil {
			return err
		}
		return r.expr(t.Index)
	default:
		return &Error{Line: target.Line(), Message: "invalid assignment target"}
	}
	return nil
}

func (r *resolver) funcBody(node ast.Node, params []string, body *ast.Block) error {
	r.pushFunc(r.fn, len(params))
	r.pushBlock()
	for _, p := range params {
		r.declare(p)
	}
	for _, st := range body.Stmts {
		if err := r.stmt(st); err != nil {
			return err
		}
	}
	r.popBlock()
	r.res.Funcs[node] = r.fn.info
	r.popFunc()
	return nil
}

func (r *resolver) exprBlock(b *ast.Block) error {
	r.pushBlock()
	for _, st := range b.Stmts {
		if err := r.stmt(st); err != nil {
			return err
		}
	}
	r.popBlock()
	return nil
}

func (r *resolver) expr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.IdentExpr:
		r.res.Idents[n] = r.resolveName(n.Name)
	case *ast.IntLit, *ast.FloatLit, *ast.StringLit, *ast.BoolLit, *ast.NullLit:
		// no bindings
	case *ast.BinaryExpr:
		if err := r.expr(n.Left); err != nil {
			return err
		}
		return r.expr(n.Right)
	case *ast.UnaryExpr:
		return r.expr(n.X)
	case *ast.CallExpr:
		if err := r.expr(n.Fn); err != nil {
			return err
		}
		for _, a := range n.Args {
			if err := r.expr(a); err != nil {
				return err
			}
		}
	case *ast.MethodCallExpr:
		if err := r.expr(n.Recv); err != nil {
			return err
		}
		for _, a := range n.Args {
			if err := r.expr(a); err != nil {
				return err
			}
		}
	case *ast.DotExpr:
		return r.expr(n.X)
	case *ast.IndexExpr:
		if err := r.expr(n.X); err != nil {
			return err
		}
		return r.expr(n.Index)
	case *ast.Block:
		return r.exprBlock(n)
	case *ast.IfExpr:
		if err := r.expr(n.Cond); err != nil {
			return err
		}
		if err := r.exprBlock(n.Then); err != nil {
			return err
		}
		if n.Else != nil {
			return r.exprBlock(n.Else)
		}
	case *ast.ObjectLit:
		for _, v := range n.Values {
			if err := r.expr(v); err != nil {
				return err
			}
		}
	case *ast.ArrayLit:
		for _, v := range n.Items {
			if err := r.expr(v); err != nil {
				return err
			}
		}
	case *ast.FuncLit:
		return r.funcBody(n, n.Params, n.Body)
	default:
		return &Error{Line: e.Line(), Message: fmt.Sprintf("resolver: unhandled expression %T", e)}
	}
	return nil
}
