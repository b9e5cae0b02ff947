package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

/*
TestDecode_Minimal verifies that a small run file decodes and that a missing
"options" object becomes a usable empty map.
*/
func TestDecode_Minimal(t *testing.T) {
	t.Parallel()

	r, err := Decode(strings.NewReader(`{
		"job": "j",
		"input": {"path": "in.jsonl"},
		"operations": ["dateInsert", "fileSplit"]
	}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.Options == nil {
		t.Fatalf("Options is nil; want empty map")
	}
	if !r.Has(OpDateInsert) || r.Has(OpPromptTruncate) {
		t.Fatalf("Has: got operations %v", r.Operations)
	}
	if r.Fields != nil {
		t.Fatalf("Fields=%v; want nil", r.Fields)
	}
}

func TestDecode_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader(`{"job":"j","oprations":[]}`))
	if err == nil || !strings.Contains(err.Error(), "oprations") {
		t.Fatalf("err=%v; want unknown field error", err)
	}
}

/*
TestDecode_Fields checks that an embedded field configuration round-trips,
including a dynamic synthetic field.
*/
func TestDecode_Fields(t *testing.T) {
	t.Parallel()

	r, err := Decode(strings.NewReader(`{
		"job": "j",
		"input": {"path": "in.jsonl"},
		"fields": {
			"originalFields": ["a", "b"],
			"fieldMapping": {"a": "A", "b": "b"},
			"fieldOrder": ["b", "a", "src"],
			"deletedFields": [],
			"newFields": {"src": {"defaultValue": "x", "sourceField": "b", "isDynamic": true}}
		}
	}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.Fields == nil || r.Fields.OutputName("a") != "A" {
		t.Fatalf("Fields=%+v", r.Fields)
	}
	spec := r.Fields.NewFields["src"]
	if !spec.Dynamic || spec.SourceField != "b" {
		t.Fatalf("src spec=%+v", spec)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(p, []byte(`{"job":"file","input":{"list":"l.txt"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Job != "file" || r.Input.List != "l.txt" {
		t.Fatalf("got %+v", r)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("Load(missing) succeeded")
	}
}

/*
TestApplyEnv verifies that environment values fill only unset settings.
*/
func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"JSONLKIT_STORE_DSN": "sqlite:env.db",
		"METRICS_BACKEND":    "pushgateway",
		"PUSHGATEWAY_URL":    "http://pg:9091",
		"DD_AGENT_ADDR":      "127.0.0.1:8125",
	}
	r := Run{Store: Store{DSN: "memory:"}}
	r.ApplyEnv(func(k string) string { return env[k] })

	if r.Store.DSN != "memory:" {
		t.Fatalf("DSN=%q; file value must win", r.Store.DSN)
	}
	if r.Metrics.Backend != "pushgateway" || r.Metrics.PushgatewayURL != "http://pg:9091" || r.Metrics.DatadogAddr != "127.0.0.1:8125" {
		t.Fatalf("metrics=%+v", r.Metrics)
	}
}

func TestOptions_Accessors(t *testing.T) {
	t.Parallel()

	var o Options
	if err := json.Unmarshal([]byte(`{"s":"x","b":true,"i":7,"f":0.5,"is":"12","fs":"1.5","bad":[1]}`), &o); err != nil {
		t.Fatal(err)
	}

	if got := o.String("s", "d"); got != "x" {
		t.Fatalf("String=%q", got)
	}
	if got := o.String("i", "d"); got != "d" {
		t.Fatalf("String(non-string)=%q; want default", got)
	}
	if !o.Bool("b", false) || o.Bool("missing", false) {
		t.Fatalf("Bool mismatch")
	}
	if got := o.Int("i", 0); got != 7 {
		t.Fatalf("Int=%d; want 7", got)
	}
	if got := o.Int("is", 0); got != 12 {
		t.Fatalf("Int(string)=%d; want 12", got)
	}
	if got := o.Int("bad", -1); got != -1 {
		t.Fatalf("Int(bad)=%d; want -1", got)
	}
	if got := o.Float("f", 0); got != 0.5 {
		t.Fatalf("Float=%v; want 0.5", got)
	}
	if got := o.Float("fs", 0); got != 1.5 {
		t.Fatalf("Float(string)=%v; want 1.5", got)
	}
	if got := o.Float("i", 0); got != 7 {
		t.Fatalf("Float(int)=%v; want 7", got)
	}
	if !o.Has("bad") || o.Has("nope") {
		t.Fatalf("Has mismatch")
	}
}

func TestOptions_UnmarshalNull(t *testing.T) {
	t.Parallel()

	var o Options
	if err := json.Unmarshal([]byte(`null`), &o); err != nil {
		t.Fatal(err)
	}
	if o == nil {
		t.Fatalf("null options decoded to nil map")
	}
}
