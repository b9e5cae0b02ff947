// Package jsonl turns JSONL text into records and back.
//
// It is deliberately strict:
//
//   - Blank lines (whitespace only) are dropped before parsing.
//   - Every remaining line must hold one JSON object; the first bad line
//     fails the whole load with its 1-based position among non-blank lines.
//   - Output is one compact object per line joined with "\n", without a
//     trailing newline.
//
// Inference (package probe) samples lines itself and tolerates bad lines;
// this package is the all-or-nothing loader used before a run.
package jsonl

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"jsonlkit/internal/errs"
	"jsonlkit/pkg/records"
)

// Lines splits text on "\n" and returns the lines that are not blank after
// trimming. Lines are returned untrimmed; a trailing "\r" is harmless to the
// JSON decoder.
func Lines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Decoder yields records line by line.
type Decoder struct {
	lines []string
	pos   int
}

// NewDecoder constructs a Decoder over the non-blank lines of text.
func NewDecoder(text string) *Decoder {
	return &Decoder{lines: Lines(text)}
}

// Len returns the number of non-blank lines.
func (d *Decoder) Len() int { return len(d.lines) }

// Next returns the next record. io.EOF is returned when the lines are
// exhausted; a parse failure is returned as *errs.InputError.
func (d *Decoder) Next() (*records.Record, error) {
	if d.pos >= len(d.lines) {
		return nil, io.EOF
	}
	line := d.lines[d.pos]
	d.pos++
	rec, err := records.ParseRecord([]byte(line))
	if err != nil {
		return nil, &errs.InputError{Op: "jsonl: parse", Line: d.pos, Err: err}
	}
	return rec, nil
}

// DecodeAll parses every non-blank line of text. An input without any
// non-blank line yields errs.ErrEmptyInput.
func DecodeAll(text string) ([]*records.Record, error) {
	d := NewDecoder(text)
	if d.Len() == 0 {
		return nil, &errs.InputError{Op: "jsonl: parse", Err: errs.ErrEmptyInput}
	}
	out := make([]*records.Record, 0, d.Len())
	for {
		rec, err := d.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// Encode serializes recs as JSONL.
func Encode(recs []*records.Record) ([]byte, error) {
	var buf bytes.Buffer
	for i, r := range recs {
		if i > 0 {
			buf.WriteByte('\n')
		}
		b, err := r.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("jsonl: encode record %d: %w", i+1, err)
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}
