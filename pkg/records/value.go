// Package records defines the in-memory shape of a JSONL dataset.
//
// A Record is an insertion-ordered mapping of keys to Values, and a Value is a
// closed variant over the six JSON kinds. Numbers keep their source text so a
// record that passes through the pipeline untouched serializes back to the
// same bytes.
package records

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind enumerates the JSON value kinds a Value can hold.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is an immutable JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	s    string // string payload or number literal
	obj  *Record
	arr  []Value
}

// Null returns the JSON null value.
func Null() Value { return Value{} }

// Bool wraps b.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String wraps s.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number wraps a JSON number literal. The literal is not validated; use
// ParseNumber for untrusted input.
func Number(lit json.Number) Value { return Value{kind: KindNumber, s: string(lit)} }

// Int wraps n as a number.
func Int(n int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(n, 10)} }

// Float wraps f as a number using the shortest representation.
func Float(f float64) Value {
	return Value{kind: KindNumber, s: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Object wraps r. A nil record is treated as an empty object.
func Object(r *Record) Value {
	if r == nil {
		r = New()
	}
	return Value{kind: KindObject, obj: r}
}

// Array wraps items. The slice is retained, callers must not modify it.
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// BoolValue returns the boolean payload and whether v is a boolean.
func (v Value) BoolValue() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// NumberValue returns the number literal and whether v is a number.
func (v Value) NumberValue() (json.Number, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return json.Number(v.s), true
}

// Obj returns the nested record and whether v is an object.
func (v Value) Obj() (*Record, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// Items returns the array elements and whether v is an array.
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// Truthy mirrors JSON-ish truthiness: null, false, 0 and "" are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindString:
		return v.s != ""
	case KindNumber:
		f, err := strconv.ParseFloat(v.s, 64)
		return err != nil || f != 0
	default:
		return true
	}
}

// Text renders scalars the way a user would read them: strings verbatim,
// numbers as their literal, booleans and null as their keywords. Objects and
// arrays render as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber, KindString:
		return v.s
	default:
		b, _ := v.MarshalJSON()
		return string(b)
	}
}

// Equal reports deep equality. Object comparison is order-sensitive.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber, KindString:
		return v.s == o.s
	case KindObject:
		return v.obj.Equal(o.obj)
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny converts decoded Go values (as produced by encoding/json with
// UseNumber, or literals in tests) into a Value. Unsupported types yield an
// error rather than being silently stringified.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		return Float(t), nil
	case *Record:
		return Object(t), nil
	case map[string]any:
		// Go maps have no order; keys are taken sorted so results are stable.
		r, err := FromMap(t)
		if err != nil {
			return Value{}, err
		}
		return Object(r), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, e := range t {
			iv, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("records: element %d: %w", i, err)
			}
			items = append(items, iv)
		}
		return Array(items...), nil
	default:
		return Value{}, fmt.Errorf("records: unsupported value type %T", x)
	}
}
