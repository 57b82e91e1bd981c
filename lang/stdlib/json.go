package stdlib

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chenlang/chenlang/lang/machine"
)

// installJSON builds the `json` module: parse/stringify, per SPEC_FULL.md
// §4.8 — encoding/json supplies the token stream, but decoding walks that
// stream by hand (rather than into a map[string]interface{}) so object key
// order survives the round trip (spec.md §3.1), and every JSON number
// becomes a shopspring/decimal-backed Float rather than passing through a
// lossy float64 first.
func installJSON(vm *machine.VM) *machine.Object {
	mod := machine.NewObject()
	_ = mod.Set("parse", native("json.parse", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		text, err := argString("json.parse", args, 0)
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		v, err := decodeJSONValue(dec, vm)
		if err != nil {
			return nil, fmt.Errorf("json.parse: %w", err)
		}
		return v, nil
	}))
	_ = mod.Set("stringify", native("json.stringify", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) != 1 {
			return nil, argErr("json.stringify", 1, len(args))
		}
		var b strings.Builder
		if err := encodeJSONValue(&b, args[0], vm.ArrayProto); err != nil {
			return nil, fmt.Errorf("json.stringify: %w", err)
		}
		return machine.Str(b.String()), nil
	}))
	return mod
}

func decodeJSONValue(dec *json.Decoder, vm *machine.VM) (machine.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeJSONToken(dec, tok, vm)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token, vm *machine.VM) (machine.Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := machine.NewObject()
			obj.Prototype = vm.ObjectProto
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := decodeJSONValue(dec, vm)
				if err != nil {
					return nil, err
				}
				if err := obj.Set(key, val); err != nil {
					return nil, err
				}
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		case '[':
			var items []machine.Value
			for dec.More() {
				val, err := decodeJSONValue(dec, vm)
				if err != nil {
					return nil, err
				}
				items = append(items, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return machine.NewArray(items, vm.ArrayProto), nil
		}
	case json.Number:
		f, err := machine.ParseFloat(t.String())
		if err != nil {
			return nil, err
		}
		return f, nil
	case string:
		return machine.Str(t), nil
	case bool:
		return machine.Bool(t), nil
	case nil:
		return machine.Null, nil
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

func encodeJSONValue(b *strings.Builder, v machine.Value, arrayProto *machine.Object) error {
	switch x := v.(type) {
	case machine.Str:
		enc, err := json.Marshal(string(x))
		if err != nil {
			return err
		}
		b.Write(enc)
	case machine.Int:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case machine.Float:
		b.WriteString(x.D.String())
	case machine.Bool:
		if x {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case *machine.Object:
		if x.IsArrayLike(arrayProto) {
			b.WriteByte('[')
			for i := 0; i < x.Len(); i++ {
				if i > 0 {
					b.WriteByte(',')
				}
				item, _ := x.Get(strconv.Itoa(i))
				if err := encodeJSONValue(b, item, arrayProto); err != nil {
					return err
				}
			}
			b.WriteByte(']')
			return nil
		}
		b.WriteByte('{')
		for i, k := range x.Keys() {
			if i > 0 {
				b.WriteByte(',')
			}
			keyEnc, err := json.Marshal(k)
			if err != nil {
				return err
			}
			b.Write(keyEnc)
			b.WriteByte(':')
			val, _ := x.Get(k)
			if err := encodeJSONValue(b, val, arrayProto); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		if machine.IsNull(v) {
			b.WriteString("null")
			return nil
		}
		return fmt.Errorf("value of type %s is not JSON-serializable", v.Type())
	}
	return nil
}
