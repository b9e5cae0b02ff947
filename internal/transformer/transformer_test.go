package transformer

import (
	"strconv"
	"sync/atomic"
	"testing"

	"jsonlkit/pkg/records"
)

/*
identityTransformer is a no-op transformer used in tests/benchmarks.
It returns the input slice without allocating or modifying it.
*/
type identityTransformer struct{}

func (identityTransformer) Apply(in []*records.Record) []*records.Record { return in }

/*
addField returns a RowFunc that sets key -> value on a copy of each record.
*/
func addField(key string, v records.Value) RowFunc {
	return func(r *records.Record) *records.Record { return r.With(key, v) }
}

/*
counterTransformer increments *calls whenever Apply is invoked. Used to verify
that each transformer in the chain is called exactly once.
*/
type counterTransformer struct{ calls *int32 }

func (t counterTransformer) Apply(in []*records.Record) []*records.Record {
	atomic.AddInt32(t.calls, 1)
	return in
}

// --- Helpers ---

func makeRecs(n int) []*records.Record {
	recs := make([]*records.Record, n)
	for i := 0; i < n; i++ {
		recs[i] = records.Of(records.KV{Key: "id", Value: records.Int(int64(i))})
	}
	return recs
}

func ids(rs []*records.Record) string {
	s := ""
	for i, r := range rs {
		if i > 0 {
			s += ","
		}
		v, _ := r.Get("id")
		s += v.Text()
	}
	return s
}

// --- Chain ---

/*
TestChainApply_Composition_Order verifies that Chain.Apply passes the output of
each transformer as the input to the next, in declared order.
*/
func TestChainApply_Composition_Order(t *testing.T) {
	t.Parallel()

	in := makeRecs(1)
	c := Chain{
		addField("a", records.String("first")),
		addField("b", records.String("second")),
		addField("a", records.String("third")),
	}
	out := c.Apply(in)

	if got, want := out[0].String(), `{"id":0,"a":"third","b":"second"}`; got != want {
		t.Fatalf("composition mismatch: got %s want %s", got, want)
	}
	if got := in[0].String(); got != `{"id":0}` {
		t.Fatalf("input mutated: %s", got)
	}
}

/*
TestChainApply_NilAndEmptyChain verifies that applying a nil or empty Chain
returns the input slice itself.
*/
func TestChainApply_NilAndEmptyChain(t *testing.T) {
	t.Parallel()

	in := makeRecs(3)
	var cNil Chain
	outNil := cNil.Apply(in)
	if len(outNil) != len(in) || &outNil[0] != &in[0] {
		t.Fatalf("nil chain should return same slice header")
	}
	if out := (Chain{}).Apply(in); &out[0] != &in[0] {
		t.Fatalf("empty chain should return same slice header")
	}
}

func TestChainApply_TransformerCalledOnce(t *testing.T) {
	t.Parallel()

	var calls int32
	c := Chain{counterTransformer{&calls}, counterTransformer{&calls}, counterTransformer{&calls}}
	_ = c.Apply(makeRecs(2))
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls=%d; want 3", got)
	}
}

func TestRowFunc_NilInput(t *testing.T) {
	t.Parallel()

	if out := addField("a", records.Null()).Apply(nil); out != nil {
		t.Fatalf("Apply(nil) => %#v; want nil", out)
	}
}

// --- Partitioners ---

func idAbove(n int64) Reject {
	return func(r *records.Record) bool {
		v, _ := r.Get("id")
		lit, _ := v.NumberValue()
		i, _ := lit.Int64()
		return i > n
	}
}

func isOdd() Reject {
	return func(r *records.Record) bool {
		v, _ := r.Get("id")
		lit, _ := v.NumberValue()
		i, _ := lit.Int64()
		return i%2 == 1
	}
}

func TestReject_Partition(t *testing.T) {
	t.Parallel()

	p := idAbove(2).Partition(makeRecs(5))
	if ids(p.Retained) != "0,1,2" || ids(p.Filtered) != "3,4" {
		t.Fatalf("retained=%s filtered=%s", ids(p.Retained), ids(p.Filtered))
	}
}

// TestFilters_Composition checks that the second filter only sees what the
// first retained and that rejects accumulate filter by filter.
func TestFilters_Composition(t *testing.T) {
	t.Parallel()

	in := makeRecs(6)
	p := Filters{idAbove(3), isOdd()}.Partition(in)

	if got := ids(p.Retained); got != "0,2" {
		t.Fatalf("retained=%s; want 0,2", got)
	}
	if got := ids(p.Filtered); got != "4,5,1,3" {
		t.Fatalf("filtered=%s; want 4,5,1,3", got)
	}
	if len(p.Retained)+len(p.Filtered) != len(in) {
		t.Fatalf("partition lost rows: %d+%d != %d", len(p.Retained), len(p.Filtered), len(in))
	}
}

func TestFilters_EmptyAndNil(t *testing.T) {
	t.Parallel()

	p := Filters{}.Partition(nil)
	if p.Retained == nil || p.Filtered == nil || len(p.Retained)+len(p.Filtered) != 0 {
		t.Fatalf("p=%+v; want empty non-nil sides", p)
	}
}

/*
BenchmarkChain_Identity_N measures overhead of Chain.Apply with N no-op
transformers over a medium batch of records.
*/
func BenchmarkChain_Identity_1(b *testing.B)  { benchChainIdentity(b, 1) }
func BenchmarkChain_Identity_10(b *testing.B) { benchChainIdentity(b, 10) }

func benchChainIdentity(b *testing.B, n int) {
	in := makeRecs(20000)
	c := make(Chain, n)
	for i := 0; i < n; i++ {
		c[i] = identityTransformer{}
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.Apply(in)
	}
}

/*
BenchmarkChain_AddField simulates a common "copy and set" pass across all
records.
*/
func BenchmarkChain_AddField(b *testing.B) {
	in := make([]*records.Record, 20000)
	for i := range in {
		in[i] = records.Of(records.KV{Key: "name", Value: records.String("user_" + strconv.Itoa(i%1000))})
	}
	c := Chain{addField("a", records.String("x")), addField("b", records.Bool(true))}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.Apply(in)
	}
}
