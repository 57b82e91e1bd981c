package stdlib

import (
	"fmt"
	"strings"
	"time"

	"github.com/chenlang/chenlang/lang/machine"
)

// installDate builds the `date` module: new/format/timestamp, backed by
// stdlib `time` (SPEC_FULL.md §4.8).
func installDate(vm *machine.VM) *machine.Object {
	mod := machine.NewObject()
	_ = mod.Set("new", native("date.new", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		now := time.Now().UTC()
		obj := machine.NewObject()
		_ = obj.Set("__unix_ms", machine.Int(now.UnixMilli()))
		return obj, nil
	}))
	_ = mod.Set("timestamp", native("date.timestamp", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		return machine.Int(time.Now().UTC().UnixMilli()), nil
	}))
	_ = mod.Set("format", native("date.format", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 2 {
			return nil, argErr("date.format", 2, len(args))
		}
		obj, ok := args[0].(*machine.Object)
		if !ok {
			return nil, argErr("date.format", 2, len(args))
		}
		layout, err := argString("date.format", args, 1)
		if err != nil {
			return nil, err
		}
		msVal, _ := obj.Get("__unix_ms")
		ms, ok := msVal.(machine.Int)
		if !ok {
			return nil, fmt.Errorf("date.format: argument is not a date")
		}
		t := time.UnixMilli(int64(ms)).UTC()
		return machine.Str(t.Format(goLayout(layout))), nil
	}))
	return mod
}

// goLayout maps a small set of strftime-style directives onto Go's
// reference-time layout, enough for the date scenarios spec.md exercises
// ("YYYY-MM-DD", "HH:mm:ss").
func goLayout(pattern string) string {
	return strings.NewReplacer(
		"YYYY", "2006",
		"MM", "01",
		"DD", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
	).Replace(pattern)
}
