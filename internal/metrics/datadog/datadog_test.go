package datadog

import (
	"reflect"
	"testing"

	"jsonlkit/internal/metrics"
)

type sent struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	calls  []sent
	closed bool
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.calls = append(f.calls, sent{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.calls = append(f.calls, sent{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatalf("NewBackend without Addr succeeded")
	}
}

func TestBackend_Forwarding(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter(metrics.RecordsTotal, 4.9, metrics.Labels{"kind": "output", "job": "j"})
	b.ObserveHistogram(metrics.StepDuration, 0.5, metrics.Labels{"step": "emit"})
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}

	want := []sent{
		{"count", metrics.RecordsTotal, 4, []string{"job:j", "kind:output"}},
		{"histogram", metrics.StepDuration, 0.5, []string{"step:emit"}},
	}
	if !reflect.DeepEqual(fc.calls, want) {
		t.Fatalf("calls=%+v; want %+v", fc.calls, want)
	}
	if !fc.closed {
		t.Fatalf("Flush did not close the client")
	}
}

func TestBackend_NilClient(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush=%v; want nil", err)
	}
	if tags(nil) != nil {
		t.Fatalf("tags(nil) should be nil")
	}
}
