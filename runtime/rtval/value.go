// Package rtval boxes values whose static type could not be settled
// at compile time. Generated code prefers unboxed Go types; call
// sites resolved through the dynamic fallback path, and task results
// with no inferable type, flow through Value instead.
package rtval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the boxed representation.
type Kind int

const (
	KindNone Kind = iota
	KindInt
	KindFloat
	KindStr
	KindBool
	KindList
	KindDict
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	default:
		return "object"
	}
}

// Value is one boxed runtime value. The zero Value is None.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
	list []Value
	dict map[string]Value
	obj  *Object
}

// Object is a boxed class instance: its class name plus attribute
// storage, used when dispatch falls back to runtime lookup.
type Object struct {
	Class string
	Attrs map[string]Value
}

func None() Value           { return Value{kind: KindNone} }
func Int(v int64) Value     { return Value{kind: KindInt, i: v} }
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }
func Str(v string) Value    { return Value{kind: KindStr, s: v} }
func Bool(v bool) Value     { return Value{kind: KindBool, b: v} }
func List(vs ...Value) Value {
	return Value{kind: KindList, list: vs}
}
func Dict(m map[string]Value) Value {
	if m == nil {
		m = make(map[string]Value)
	}
	return Value{kind: KindDict, dict: m}
}
func Obj(class string) Value {
	return Value{kind: KindObject, obj: &Object{Class: class, Attrs: make(map[string]Value)}}
}

func (v Value) Kind() Kind { return v.kind }

// Accessors return the underlying representation; calling one on the
// wrong kind returns the zero of that representation.
func (v Value) AsInt() int64     { return v.i }
func (v Value) AsFloat() float64 { return v.f }
func (v Value) AsStr() string    { return v.s }
func (v Value) AsBool() bool     { return v.b }
func (v Value) AsList() []Value  { return v.list }
func (v Value) AsObject() *Object { return v.obj }

// AsNumber widens int to float for mixed arithmetic.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Truthy follows source-language truthiness: None and empty
// containers are false, zero numbers are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNone:
		return false
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindStr:
		return v.s != ""
	case KindBool:
		return v.b
	case KindList:
		return len(v.list) > 0
	case KindDict:
		return len(v.dict) > 0
	}
	return true
}

// Repr renders the value the way the source language prints it.
func (v Value) Repr() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		r := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(r, ".eE") {
			r += ".0"
		}
		return r
	case KindStr:
		return v.s
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindList:
		parts := make([]string, len(v.list))
		for i, el := range v.list {
			parts[i] = el.Repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindDict:
		keys := make([]string, 0, len(v.dict))
		for k := range v.dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%q: %s", k, v.dict[k].Repr())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindObject:
		return "<" + v.obj.Class + " object>"
	}
	return "?"
}

func (v Value) String() string { return v.Repr() }

// Box wraps a Go value whose static type the compiler could not
// settle. Already-boxed values pass through unchanged; anything
// without a boxed representation panics.
func Box(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case nil:
		return None()
	case int64:
		return Int(x)
	case int:
		return Int(int64(x))
	case float64:
		return Float(x)
	case string:
		return Str(x)
	case bool:
		return Bool(x)
	}
	panic(fmt.Sprintf("cannot box %T value", v))
}

// ----- Arithmetic -----

// Add implements dynamic +: numeric addition, string and list
// concatenation.
func Add(a, b Value) (Value, error) {
	if a.kind == KindInt && b.kind == KindInt {
		return Int(a.i + b.i), nil
	}
	if x, ok := a.AsNumber(); ok {
		if y, ok := b.AsNumber(); ok {
			return Float(x + y), nil
		}
	}
	if a.kind == KindStr && b.kind == KindStr {
		return Str(a.s + b.s), nil
	}
	if a.kind == KindList && b.kind == KindList {
		out := make([]Value, 0, len(a.list)+len(b.list))
		out = append(out, a.list...)
		out = append(out, b.list...)
		return List(out...), nil
	}
	return None(), opError("+", a, b)
}

func Sub(a, b Value) (Value, error) {
	if a.kind == KindInt && b.kind == KindInt {
		return Int(a.i - b.i), nil
	}
	if x, ok := a.AsNumber(); ok {
		if y, ok := b.AsNumber(); ok {
			return Float(x - y), nil
		}
	}
	return None(), opError("-", a, b)
}

func Mul(a, b Value) (Value, error) {
	if a.kind == KindInt && b.kind == KindInt {
		return Int(a.i * b.i), nil
	}
	if x, ok := a.AsNumber(); ok {
		if y, ok := b.AsNumber(); ok {
			return Float(x * y), nil
		}
	}
	return None(), opError("*", a, b)
}

// Div implements dynamic /: always float, matching source semantics.
func Div(a, b Value) (Value, error) {
	x, ok := a.AsNumber()
	if !ok {
		return None(), opError("/", a, b)
	}
	y, ok := b.AsNumber()
	if !ok {
		return None(), opError("/", a, b)
	}
	if y == 0 {
		return None(), fmt.Errorf("division by zero")
	}
	return Float(x / y), nil
}

// Mod implements dynamic %: integer remainder, float remainder for
// mixed numeric operands.
func Mod(a, b Value) (Value, error) {
	if a.kind == KindInt && b.kind == KindInt {
		if b.i == 0 {
			return None(), fmt.Errorf("division by zero")
		}
		return Int(a.i % b.i), nil
	}
	if x, ok := a.AsNumber(); ok {
		if y, ok := b.AsNumber(); ok {
			if y == 0 {
				return None(), fmt.Errorf("division by zero")
			}
			return Float(x - y*float64(int64(x/y))), nil
		}
	}
	return None(), opError("%", a, b)
}

func opError(op string, a, b Value) error {
	return fmt.Errorf("unsupported operand types for %s: %s and %s", op, a.kind, b.kind)
}

// BinOp dispatches one dynamic arithmetic operator. Generated code
// routes through here when an operand's static type is unknown; an
// unsupported combination panics with the operand error.
func BinOp(op string, a, b Value) Value {
	var v Value
	var err error
	switch op {
	case "+":
		v, err = Add(a, b)
	case "-":
		v, err = Sub(a, b)
	case "*":
		v, err = Mul(a, b)
	case "/":
		v, err = Div(a, b)
	case "%":
		v, err = Mod(a, b)
	default:
		err = fmt.Errorf("unsupported dynamic operator %q", op)
	}
	if err != nil {
		panic(err)
	}
	return v
}

// CompareOp dispatches one dynamic comparison. Equality covers every
// kind; the ordered operators require numbers or strings.
func CompareOp(op string, a, b Value) bool {
	switch op {
	case "==":
		return Equal(a, b)
	case "!=":
		return !Equal(a, b)
	}
	var cmp int
	if x, ok := a.AsNumber(); ok {
		y, ok := b.AsNumber()
		if !ok {
			panic(opError(op, a, b))
		}
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
	} else if a.kind == KindStr && b.kind == KindStr {
		cmp = strings.Compare(a.s, b.s)
	} else {
		panic(opError(op, a, b))
	}
	switch op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	panic(fmt.Errorf("unsupported dynamic operator %q", op))
}

// Equal compares values structurally.
func Equal(a, b Value) bool {
	if x, ok := a.AsNumber(); ok {
		if y, ok := b.AsNumber(); ok {
			return x == y
		}
		return false
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNone:
		return true
	case KindStr:
		return a.s == b.s
	case KindBool:
		return a.b == b.b
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindDict:
		if len(a.dict) != len(b.dict) {
			return false
		}
		for k, av := range a.dict {
			bv, ok := b.dict[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindObject:
		return a.obj == b.obj
	}
	return false
}

// DictKeys returns the keys of a boxed dict, unordered. Non-dict
// values yield nil.
func DictKeys(v Value) []string {
	if v.kind != KindDict {
		return nil
	}
	out := make([]string, 0, len(v.dict))
	for k := range v.dict {
		out = append(out, k)
	}
	return out
}

// DictGet reads one key from a boxed dict.
func DictGet(v Value, key string) (Value, bool) {
	if v.kind != KindDict {
		return None(), false
	}
	val, ok := v.dict[key]
	return val, ok
}

// DictSet writes one key in a boxed dict; a no-op on other kinds.
func DictSet(v Value, key string, val Value) {
	if v.kind == KindDict {
		v.dict[key] = val
	}
}

// ----- Attribute access -----

// GetAttr reads an attribute off a boxed object.
func GetAttr(v Value, name string) (Value, error) {
	if v.kind != KindObject {
		return None(), fmt.Errorf("%s object has no attribute %q", v.kind, name)
	}
	attr, ok := v.obj.Attrs[name]
	if !ok {
		return None(), fmt.Errorf("%s object has no attribute %q", v.obj.Class, name)
	}
	return attr, nil
}

// SetAttr writes an attribute on a boxed object.
func SetAttr(v Value, name string, val Value) error {
	if v.kind != KindObject {
		return fmt.Errorf("%s object has no attribute %q", v.kind, name)
	}
	v.obj.Attrs[name] = val
	return nil
}
