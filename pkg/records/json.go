package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotObject is returned by ParseRecord when the input is valid JSON but
// not an object.
var ErrNotObject = errors.New("records: top-level value is not an object")

// Parse decodes exactly one JSON value from data, preserving object key
// order and number literals. Trailing non-space content is an error.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return Value{}, fmt.Errorf("records: unexpected trailing data after offset %d", dec.InputOffset())
		}
		return Value{}, err
	}
	return v, nil
}

// ParseRecord decodes data and requires it to be a JSON object.
func ParseRecord(data []byte) (*Record, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	r, ok := v.Obj()
	if !ok {
		return nil, fmt.Errorf("%w (got %s)", ErrNotObject, v.Kind())
	}
	return r, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			r := New()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("records: object key is %T, want string", kt)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				r.Set(key, v)
			}
			if _, err := dec.Token(); err != nil { // '}'
				return Value{}, err
			}
			return Object(r), nil
		case '[':
			var items []Value
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil { // ']'
				return Value{}, err
			}
			if items == nil {
				items = []Value{}
			}
			return Array(items...), nil
		default:
			return Value{}, fmt.Errorf("records: unexpected delimiter %q", rune(t))
		}
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	default:
		return Value{}, fmt.Errorf("records: unexpected token %T", tok)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	out, err := Parse(b)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// UnmarshalJSON implements json.Unmarshaler; the input must be an object.
func (r *Record) UnmarshalJSON(b []byte) error {
	out, err := ParseRecord(b)
	if err != nil {
		return err
	}
	*r = *out
	return nil
}

// MarshalJSON implements json.Marshaler. Output is compact and does not
// HTML-escape, so the byte length matches what other JSON producers emit.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler, keeping key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	first := true
	var err error
	r.Range(func(k string, v Value) bool {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err = encodeString(buf, k); err != nil {
			return false
		}
		buf.WriteByte(':')
		err = v.encode(buf)
		return err == nil
	})
	if err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		if v.s == "" {
			return errors.New("records: empty number literal")
		}
		buf.WriteString(v.s)
	case KindString:
		return encodeString(buf, v.s)
	case KindObject:
		return v.obj.encode(buf)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("records: cannot encode %s", v.kind)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
