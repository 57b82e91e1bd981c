package machine

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// Object is chen_lang's single composite value: an insertion-ordered,
// reference-counted, mutable string-keyed map with an optional metatable
// for operator/field-lookup fallback (spec.md §3). Arrays and module
// namespaces are Objects with numeric-looking keys or a populated
// Prototype, not a distinct Go type.
//
// The backing store is a github.com/dolthub/swiss map (the teacher's
// lang/machine/map.go Map type), paired with an explicit key-order slice
// since swiss maps do not preserve insertion order (SPEC_FULL.md §3.8).
type Object struct {
	m         *swiss.Map[string, Value]
	keys      []string
	Prototype *Object // __index target, consulted on GetField miss
	borrowed  bool    // single mutable-borrow-at-a-time guard (spec.md §5)
}

func NewObject() *Object {
	return &Object{m: swiss.NewMap[string, Value](8)}
}

func (o *Object) Type() string { return "object" }

func (o *Object) String() string { return fmt.Sprintf("object(%p)", o) }

// borrow and release enforce the "single mutable borrow at a time" rule
// for Set only: Set borrows the Object for the duration of its own write,
// and a second Set entering the same Object while that borrow is held is an
// error. Get and GetField take no borrow.
func (o *Object) borrow() error {
	if o.borrowed {
		return fmt.Errorf("object already borrowed")
	}
	o.borrowed = true
	return nil
}

func (o *Object) release() { o.borrowed = false }

// Get performs a direct lookup in this Object's own map, without
// traversing the prototype/metatable chain.
func (o *Object) Get(key string) (Value, bool) {
	return o.m.Get(key)
}

// Set writes key directly into this Object's own map, tracking insertion
// order for the first write of a new key.
func (o *Object) Set(key string, v Value) error {
	if err := o.borrow(); err != nil {
		return err
	}
	defer o.release()
	if _, exists := o.m.Get(key); !exists {
		o.keys = append(o.keys, key)
	}
	o.m.Put(key, v)
	return nil
}

// Delete removes key from this Object's own map.
func (o *Object) Delete(key string) {
	if _, exists := o.m.Get(key); !exists {
		return
	}
	o.m.Delete(key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns this Object's own keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Object) Len() int { return len(o.keys) }

// GetField implements spec.md §4.4's field-lookup rule: a direct hit wins;
// otherwise, only if the metatable carries an explicit __index entry that is
// itself an Object, the lookup recurses into that Object under the same
// name (_examples/original_source/src/value.rs's get_field_with_meta). A
// metatable with ordinary data fields but no __index entry is not consulted
// at all: attaching it as a plain metatable (e.g. for its __add/__sub
// operator overloads) must not also leak its fields onto every instance.
func (o *Object) GetField(name string) (Value, error) {
	if v, ok := o.Get(name); ok {
		return v, nil
	}
	if o.Prototype != nil {
		if idx, ok := o.Prototype.Get("__index"); ok {
			if idxObj, ok := idx.(*Object); ok {
				return idxObj.GetField(name)
			}
			// __index as Function/NativeFunction: future work, returns Null
			// per spec.md §4.4.
		}
	}
	return Null, nil
}

// Metamethod looks up name ("__add", "__sub", "__mul", "__index", ...) on
// o's metatable/prototype, if any.
func (o *Object) Metamethod(name string) (Value, bool) {
	if o.Prototype == nil {
		return nil, false
	}
	v, ok := o.Prototype.Get(name)
	return v, ok
}

// IsArrayLike reports whether o is an actual Array - identified by its
// Prototype being arrayProto (the VM's single Array prototype object,
// attached by NewArray/BUILDARRAY), not by guessing from key shape
// (SPEC_FULL.md §9's design note: a plain object with keys "0","1" and no
// Array prototype attached is still an object, and an empty object literal
// with the Object prototype is not an array).
func (o *Object) IsArrayLike(arrayProto *Object) bool {
	return o.Prototype == arrayProto
}

// NewArray packs vals into a fresh Object with keys "0".."n-1" and the
// Array prototype attached, implementing BUILDARRAY (spec.md §4.4).
func NewArray(vals []Value, arrayProto *Object) *Object {
	o := NewObject()
	for i, v := range vals {
		_ = o.Set(fmt.Sprintf("%d", i), v)
	}
	o.Prototype = arrayProto
	return o
}
