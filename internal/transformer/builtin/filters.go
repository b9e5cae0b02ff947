package builtin

import (
	"log"

	"jsonlkit/internal/transformer"
	"jsonlkit/pkg/records"
)

// DefaultMaxPromptBytes is the prompt length limit used when none is set.
const DefaultMaxPromptBytes = 20480

const bytesPerMB = 1024 * 1024

// SizeFilter filters records whose compact JSON encoding is larger than
// MaxMB mebibytes.
type SizeFilter struct {
	MaxMB float64
}

// Limit returns the byte threshold.
func (f SizeFilter) Limit() float64 { return f.MaxMB * bytesPerMB }

func (f SizeFilter) Partition(in []*records.Record) transformer.Partition {
	limit := f.Limit()
	return transformer.Reject(func(r *records.Record) bool {
		return float64(RecordSize(r)) > limit
	}).Partition(in)
}

// RecordSize is the byte length of r's compact JSON encoding.
func RecordSize(r *records.Record) int {
	b, err := r.MarshalJSON()
	if err != nil {
		// Records come from the parser and always encode.
		log.Printf("builtin: size: encode failed err=%v", err)
		return 0
	}
	return len(b)
}

// PromptLengthFilter filters records whose string prompt is longer than
// MaxBytes bytes of UTF-8. A missing or non-string prompt counts as 0.
type PromptLengthFilter struct {
	MaxBytes int
}

func (f PromptLengthFilter) Partition(in []*records.Record) transformer.Partition {
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxPromptBytes
	}
	return transformer.Reject(func(r *records.Record) bool {
		return PromptBytes(r) > limit
	}).Partition(in)
}

// PromptBytes is the UTF-8 length of r's string prompt.
func PromptBytes(r *records.Record) int {
	v, _ := r.Get(PromptField)
	s, _ := v.Str()
	return len(s)
}
