// Package transformer defines the batch contracts for record stages: a
// Transformer maps a batch to a new batch, a Partitioner splits a batch into
// retained and filtered rows.
package transformer

import "jsonlkit/pkg/records"

// Transformer maps a batch of records to a new batch. Implementations must
// not modify the input records.
type Transformer interface {
	Apply([]*records.Record) []*records.Record
}

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in []*records.Record) []*records.Record {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// RowFunc lifts a per-record function to a Transformer. The result has the
// same length and order as the input.
type RowFunc func(*records.Record) *records.Record

func (f RowFunc) Apply(in []*records.Record) []*records.Record {
	if in == nil {
		return nil
	}
	out := make([]*records.Record, len(in))
	for i, r := range in {
		out[i] = f(r)
	}
	return out
}

// Partition is the outcome of filtering a batch. Both sides keep input
// order, and len(Retained)+len(Filtered) equals the input length.
type Partition struct {
	Retained []*records.Record
	Filtered []*records.Record
}

// Partitioner splits a batch without modifying any record.
type Partitioner interface {
	Partition([]*records.Record) Partition
}

// Reject is a Partitioner that filters every record for which Test returns
// true.
type Reject func(*records.Record) bool

func (f Reject) Partition(in []*records.Record) Partition {
	p := Partition{
		Retained: make([]*records.Record, 0, len(in)),
		Filtered: []*records.Record{},
	}
	for _, r := range in {
		if f(r) {
			p.Filtered = append(p.Filtered, r)
		} else {
			p.Retained = append(p.Retained, r)
		}
	}
	return p
}

// Filters composes partitioners left to right. Each one sees only what the
// previous ones retained; Filtered collects rejects in filter order.
type Filters []Partitioner

func (fs Filters) Partition(in []*records.Record) Partition {
	out := Partition{Retained: in, Filtered: []*records.Record{}}
	for _, f := range fs {
		p := f.Partition(out.Retained)
		out.Retained = p.Retained
		out.Filtered = append(out.Filtered, p.Filtered...)
	}
	if out.Retained == nil {
		out.Retained = []*records.Record{}
	}
	return out
}
