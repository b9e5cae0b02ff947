package records

import (
	"fmt"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is an insertion-ordered JSON object. Pipeline stages treat records
// as immutable: they Clone before Set so the input slice is never modified.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// New returns an empty record.
func New() *Record {
	return &Record{fields: orderedmap.New[string, Value]()}
}

// KV is a key/value pair used by Of to build records in a fixed order.
type KV struct {
	Key   string
	Value Value
}

// Of builds a record from pairs, preserving their order. A repeated key keeps
// its first position and takes the last value, as JSON decoding does.
func Of(pairs ...KV) *Record {
	r := New()
	for _, p := range pairs {
		r.fields.Set(p.Key, p.Value)
	}
	return r
}

// FromMap builds a record from a Go map. Keys are inserted in sorted order.
func FromMap(m map[string]any) (*Record, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r := New()
	for _, k := range keys {
		v, err := FromAny(m[k])
		if err != nil {
			return nil, fmt.Errorf("records: key %q: %w", k, err)
		}
		r.fields.Set(k, v)
	}
	return r, nil
}

func (r *Record) lazy() {
	if r.fields == nil {
		r.fields = orderedmap.New[string, Value]()
	}
}

// Len returns the number of keys.
func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil || r.fields == nil {
		return Value{}, false
	}
	return r.fields.Get(key)
}

// Has reports whether key is present (a present null counts).
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set stores v under key. New keys are appended; existing keys keep their
// position.
func (r *Record) Set(key string, v Value) {
	r.lazy()
	r.fields.Set(key, v)
}

// Delete removes key and reports whether it was present.
func (r *Record) Delete(key string) bool {
	if r == nil || r.fields == nil {
		return false
	}
	_, ok := r.fields.Delete(key)
	return ok
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	if r == nil || r.fields == nil {
		return nil
	}
	out := make([]string, 0, r.fields.Len())
	for p := r.fields.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Range calls fn for each pair in order until fn returns false.
func (r *Record) Range(fn func(key string, v Value) bool) {
	if r == nil || r.fields == nil {
		return
	}
	for p := r.fields.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

// Clone returns a shallow copy. Values are immutable so sharing nested
// objects between the copy and the original is safe.
func (r *Record) Clone() *Record {
	out := New()
	r.Range(func(k string, v Value) bool {
		out.fields.Set(k, v)
		return true
	})
	return out
}

// With returns a copy of r with key set to v.
func (r *Record) With(key string, v Value) *Record {
	out := r.Clone()
	out.fields.Set(key, v)
	return out
}

// Equal reports whether both records hold the same pairs in the same order.
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	if r.Len() == 0 {
		return true
	}
	a, b := r.fields.Oldest(), o.fields.Oldest()
	for a != nil && b != nil {
		if a.Key != b.Key || !a.Value.Equal(b.Value) {
			return false
		}
		a, b = a.Next(), b.Next()
	}
	return a == nil && b == nil
}

// SameContent reports whether both records hold the same pairs, ignoring
// key order.
func (r *Record) SameContent(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	same := true
	r.Range(func(k string, v Value) bool {
		ov, ok := o.Get(k)
		if !ok || !v.Equal(ov) {
			same = false
		}
		return same
	})
	return same
}

// Lookup resolves a dot-separated path ("user.name") by walking nested
// objects. It stops at the first missing key or non-object segment. The
// "[0]" segment addresses the first element of an array.
//
// A key that itself contains dots is found when it matches the whole path,
// so top-level keys like "a.b" remain addressable.
func (r *Record) Lookup(path string) (Value, bool) {
	if v, ok := r.Get(path); ok {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return Value{}, false
	}
	cur := Object(r)
	for _, seg := range strings.Split(path, ".") {
		switch cur.kind {
		case KindObject:
			v, ok := cur.obj.Get(seg)
			if !ok {
				return Value{}, false
			}
			cur = v
		case KindArray:
			if seg != "[0]" || len(cur.arr) == 0 {
				return Value{}, false
			}
			cur = cur.arr[0]
		default:
			return Value{}, false
		}
	}
	return cur, true
}

// String renders the record as compact JSON.
func (r *Record) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid record: %v>", err)
	}
	return string(b)
}
