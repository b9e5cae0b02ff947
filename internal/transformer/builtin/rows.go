// Package builtin contains the fixed, named record operations: field
// projection, date stamping of internal_id, prompt truncation and the
// reference copy. Every operation returns new records and leaves its input
// untouched.
package builtin

import (
	"strings"

	"jsonlkit/internal/fieldconfig"
	"jsonlkit/internal/transformer"
	"jsonlkit/pkg/records"
)

// Field names the operations read and write.
const (
	IDField        = "internal_id"
	PromptField    = "prompt"
	ReferenceField = "reference"
)

// DefaultTruncateLength applies when TruncatePrompt.Length is not positive.
const DefaultTruncateLength = 10

// Project reshapes records through a field configuration. A nil Config
// passes the batch through unchanged.
type Project struct {
	Config *fieldconfig.Config
}

func (p Project) Apply(in []*records.Record) []*records.Record {
	if p.Config == nil {
		return in
	}
	return transformer.RowFunc(p.Config.Apply).Apply(in)
}

// StampDate rewrites internal_id to carry Date (YYYYMMDD).
type StampDate struct {
	Date string
}

func (s StampDate) Apply(in []*records.Record) []*records.Record {
	return transformer.RowFunc(func(r *records.Record) *records.Record {
		id, _ := r.Get(IDField)
		return r.With(IDField, records.String(StampID(id, s.Date)))
	}).Apply(in)
}

// StampID inserts "_"+date before the last underscore of id, or appends it
// when id has none. A missing or falsy id becomes "unknown_"+date.
// Non-string ids are stringified first.
//
//	abc_123 -> abc_20250101_123
//	abc     -> abc_20250101
func StampID(id records.Value, date string) string {
	if !id.Truthy() {
		return "unknown_" + date
	}
	s := id.Text()
	i := strings.LastIndexByte(s, '_')
	if i < 0 {
		return s + "_" + date
	}
	return s[:i] + "_" + date + s[i:]
}

// TruncatePrompt keeps the first Length characters of a string prompt.
// Missing, empty and non-string prompts are left alone.
type TruncatePrompt struct {
	Length int
}

func (t TruncatePrompt) Apply(in []*records.Record) []*records.Record {
	n := t.Length
	if n <= 0 {
		n = DefaultTruncateLength
	}
	return transformer.RowFunc(func(r *records.Record) *records.Record {
		v, _ := r.Get(PromptField)
		s, ok := v.Str()
		if !ok || s == "" {
			return r
		}
		cut := truncateRunes(s, n)
		if cut == s {
			return r
		}
		return r.With(PromptField, records.String(cut))
	}).Apply(in)
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// AddReference copies prompt into reference verbatim. A missing or falsy
// prompt yields an empty string.
type AddReference struct{}

func (AddReference) Apply(in []*records.Record) []*records.Record {
	return transformer.RowFunc(func(r *records.Record) *records.Record {
		v, _ := r.Get(PromptField)
		if !v.Truthy() {
			v = records.String("")
		}
		return r.With(ReferenceField, v)
	}).Apply(in)
}
