package stdlib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chenlang/chenlang/lang/compiler"
	"github.com/chenlang/chenlang/lang/machine"
	"github.com/chenlang/chenlang/lang/parser"
	"github.com/chenlang/chenlang/lang/resolver"
)

// Importer resolves `import "path"` (spec.md §4.7): a "stdlib/<name>" path
// resolves to one of the native module objects Install registers; any
// other path is read relative to BaseDir, compiled as its own Program with
// a fresh global table, and run once, with its final expression value
// cached by path so an import cycle's second reference observes whatever
// the first reference had produced by that point rather than recursing.
type Importer struct {
	BaseDir string
	modules map[string]machine.Value
	cache   map[string]machine.Value

	// arrayProto/stringProto/objectProto/importer are shared with every
	// nested Program's VM so imported scripts see the same prototype
	// methods and import resolution as the main script (spec.md §4.7:
	// "each carries its own symbol table", not its own native surface).
	arrayProto, stringProto, objectProto *machine.Object
}

// Options configures Install's native module wiring (SPEC_FULL.md §6.7).
type Options struct {
	BaseDir     string
	HTTPTimeout time.Duration
}

// Install populates vm's prototypes and Globals with chen_lang's native
// module surface and returns the Importer that backs its IMPORT
// instruction.
func Install(vm *machine.VM, opts Options) *Importer {
	InstallPrototypes(vm)

	if opts.HTTPTimeout == 0 {
		opts.HTTPTimeout = 30 * time.Second
	}

	imp := &Importer{
		BaseDir:     opts.BaseDir,
		modules:     make(map[string]machine.Value),
		cache:       make(map[string]machine.Value),
		arrayProto:  vm.ArrayProto,
		stringProto: vm.StringProto,
		objectProto: vm.ObjectProto,
	}
	imp.modules["io"] = DefaultIO(vm)
	imp.modules["json"] = installJSON(vm)
	imp.modules["date"] = installDate(vm)
	imp.modules["fs"] = installFS(vm)
	imp.modules["http"] = installHTTP(vm, opts.HTTPTimeout)
	imp.modules["process"] = installProcess(vm)
	imp.modules["timer"] = installTimer(vm)
	imp.modules["coroutine"] = installCoroutine(vm)

	for name, mod := range imp.modules {
		_ = vm.Globals.Set(name, mod)
	}

	vm.Importer = imp
	return imp
}

func (imp *Importer) Import(vm *machine.VM, path string) (machine.Value, error) {
	if v, ok := imp.cache[path]; ok {
		return v, nil
	}
	if name, ok := strings.CutPrefix(path, "stdlib/"); ok {
		mod, ok := imp.modules[name]
		if !ok {
			return nil, fmt.Errorf("unknown stdlib module %q", name)
		}
		imp.cache[path] = mod
		return mod, nil
	}

	imp.cache[path] = machine.Null // breaks import cycles (spec.md §8)

	full := path
	if imp.BaseDir != "" && !filepath.IsAbs(path) {
		full = filepath.Join(imp.BaseDir, path)
	}
	src, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	chunk, err := parser.Parse(path, src)
	if err != nil {
		return nil, err
	}
	res, err := resolver.Resolve(chunk)
	if err != nil {
		return nil, err
	}
	prog, err := compiler.Compile(chunk, res)
	if err != nil {
		return nil, err
	}

	sub := machine.NewVM()
	sub.ArrayProto = imp.arrayProto
	sub.StringProto = imp.stringProto
	sub.ObjectProto = imp.objectProto
	sub.Importer = imp

	result, err := sub.Run(prog)
	if err != nil {
		return nil, err
	}
	imp.cache[path] = result
	return result, nil
}
