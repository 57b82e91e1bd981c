package stdlib_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chenlang/chenlang/lang/compiler"
	"github.com/chenlang/chenlang/lang/machine"
	"github.com/chenlang/chenlang/lang/parser"
	"github.com/chenlang/chenlang/lang/resolver"
	"github.com/chenlang/chenlang/lang/stdlib"
)

func run(t *testing.T, opts stdlib.Options, src string) (machine.Value, error) {
	t.Helper()
	chunk, err := parser.Parse(t.Name(), []byte(src))
	require.NoError(t, err)
	res, err := resolver.Resolve(chunk)
	require.NoError(t, err)
	prog, err := compiler.Compile(chunk, res)
	require.NoError(t, err)

	vm := machine.NewVM()
	stdlib.Install(vm, opts)
	return vm.Run(prog)
}

func TestJSONRoundTripPreservesKeyOrder(t *testing.T) {
	v, err := run(t, stdlib.Options{}, `
let original = #{ z: 1, a: #{ nested: true }, m: [1, 2, 3] }
let text = json.stringify(original)
let back = json.parse(text)
json.stringify(back) == text
`)
	require.NoError(t, err)
	require.Equal(t, machine.Bool(true), v)
}

// TestJSONStringifyDistinguishesObjectFromArrayByPrototype pins the fix for
// distinguishing a JSON array from a JSON object by the Array prototype
// (SPEC_FULL.md §9), not by key shape: a plain object with numeric-looking
// keys, and an empty object literal, must both still stringify as objects.
func TestJSONStringifyDistinguishesObjectFromArrayByPrototype(t *testing.T) {
	v, err := run(t, stdlib.Options{}, `
json.stringify(#{"0": "a", "1": "b"}) == '{"0":"a","1":"b"}'
`)
	require.NoError(t, err)
	require.Equal(t, machine.Bool(true), v)

	v, err = run(t, stdlib.Options{}, `json.stringify(#{})`)
	require.NoError(t, err)
	require.Equal(t, machine.Str("{}"), v)

	v, err = run(t, stdlib.Options{}, `json.stringify([])`)
	require.NoError(t, err)
	require.Equal(t, machine.Str("[]"), v)
}

func TestDateFormat(t *testing.T) {
	v, err := run(t, stdlib.Options{}, `
let d = date.new()
date.format(d, "YYYY-MM-DD")
`)
	require.NoError(t, err)
	s, ok := v.(machine.Str)
	require.True(t, ok)
	require.Len(t, string(s), len("2006-01-02"))
}

func TestFSReadWriteExistsRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeting.txt")

	v, err := run(t, stdlib.Options{}, fmt.Sprintf(`
let path = %q
fs.write(path, "hello")
let before = fs.exists(path)
let content = fs.read(path)
fs.remove(path)
let after = fs.exists(path)
#{ before: before, content: content, after: after }
`, path))
	require.NoError(t, err)

	obj, ok := v.(*machine.Object)
	require.True(t, ok)
	before, _ := obj.Get("before")
	content, _ := obj.Get("content")
	after, _ := obj.Get("after")
	require.Equal(t, machine.Bool(true), before)
	require.Equal(t, machine.Str("hello"), content)
	require.Equal(t, machine.Bool(false), after)
}

func TestFSReadDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	v, err := run(t, stdlib.Options{}, fmt.Sprintf(`
let names = fs.read_dir(%q)
names.len(names)
`, dir))
	require.NoError(t, err)
	require.Equal(t, machine.Int(2), v)
}

func TestProcessExec(t *testing.T) {
	v, err := run(t, stdlib.Options{}, `
let result = process.exec("echo", "hello")
result.exit_code
`)
	require.NoError(t, err)
	require.Equal(t, machine.Int(0), v)
}

func TestHTTPRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	v, err := run(t, stdlib.Options{}, fmt.Sprintf(`
let resp = http.request("GET", %q)
resp.status
`, srv.URL))
	require.NoError(t, err)
	require.Equal(t, machine.Int(200), v)
}

func TestArrayPrototypeGetSetPop(t *testing.T) {
	v, err := run(t, stdlib.Options{}, `
let a = [1, 2, 3]
a.set(a, 1, 99)
a.pop(a)
a.get(a, 1)
`)
	require.NoError(t, err)
	require.Equal(t, machine.Int(99), v)
}

func TestStringPrototypeMethods(t *testing.T) {
	v, err := run(t, stdlib.Options{}, `
let s = "  Hello World  "
let trimmed = s.trim(s)
let parts = trimmed.split(trimmed, " ")
let first = parts.get(parts, 0)
first.upper(first)
`)
	require.NoError(t, err)
	require.Equal(t, machine.Str("HELLO"), v)
}

func TestObjectPrototypeKeys(t *testing.T) {
	v, err := run(t, stdlib.Options{}, `
let obj = #{ b: 1, a: 2 }
let keys = obj.keys(obj)
keys.len(keys)
`)
	require.NoError(t, err)
	require.Equal(t, machine.Int(2), v)
}

func TestCoroutineSpawnAwaitAll(t *testing.T) {
	v, err := run(t, stdlib.Options{}, `
let double = def(x) {
  return x * 2
}
let fibers = [coroutine.spawn(double, 1), coroutine.spawn(double, 2)]
let results = coroutine.await_all(fibers)
results.get(results, 0) + results.get(results, 1)
`)
	require.NoError(t, err)
	require.Equal(t, machine.Int(6), v)
}
