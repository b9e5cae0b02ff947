// Package split groups records into consecutive fixed-size chunks for
// multi-part output.
package split

import "jsonlkit/pkg/records"

// DefaultSize is the chunk size used when none is configured.
const DefaultSize = 100

// Chunk splits recs into consecutive groups of size records; the last group
// may be shorter. Order is preserved and chunks share recs' backing array.
// size <= 0 is rejected upstream by validation; Chunk returns nil for it.
func Chunk(recs []*records.Record, size int) [][]*records.Record {
	if size <= 0 {
		return nil
	}
	out := make([][]*records.Record, 0, (len(recs)+size-1)/size)
	for start := 0; start < len(recs); start += size {
		end := min(start+size, len(recs))
		out = append(out, recs[start:end:end])
	}
	return out
}
