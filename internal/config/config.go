// Package config defines the JSON-serializable run file for jsonlkit and the
// small helpers used to read it. Run files live under configs/*.json and are
// decoded with the standard library; free-form option bags are read through
// the typed Options accessors.
//
// Example:
//
//	{
//	  "job": "nightly_prompts",
//	  "input": { "path": "data/prompts.jsonl" },
//	  "operations": ["dateInsert", "rowSizeFilter", "fileSplit", "batchDownload"],
//	  "options": { "date": "2025-01-01", "max_row_size": 1, "split_count": 500 },
//	  "output": { "dir": "out", "manifest": true },
//	  "store": { "dsn": "sqlite:jsonlkit.db" },
//	  "metrics": { "backend": "none" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"jsonlkit/internal/fieldconfig"
)

// Operation names accepted in Run.Operations.
const (
	OpDateInsert         = "dateInsert"
	OpPromptTruncate     = "promptTruncate"
	OpReferenceField     = "referenceField"
	OpFileSplit          = "fileSplit"
	OpBatchDownload      = "batchDownload"
	OpRowSizeFilter      = "rowSizeFilter"
	OpPromptLengthFilter = "promptLengthFilter"
)

// KnownOperations lists every operation name in display order.
var KnownOperations = []string{
	OpDateInsert,
	OpPromptTruncate,
	OpReferenceField,
	OpFileSplit,
	OpBatchDownload,
	OpRowSizeFilter,
	OpPromptLengthFilter,
}

// Option keys read from Run.Options.
const (
	OptDate           = "date"
	OptTruncateLength = "truncate_length"
	OptSplitCount     = "split_count"
	OptMaxRowSize     = "max_row_size"
	OptMaxPromptBytes = "max_prompt_bytes"
	OptSampleSize     = "sample_size"
)

// Run is the top-level object decoded from a run file.
type Run struct {
	// Job names the run in logs and metrics.
	Job string `json:"job"`
	// Input selects the dataset(s) to process.
	Input Input `json:"input"`
	// Operations are the selected operation names; order is irrelevant, the
	// pipeline applies them in its fixed order.
	Operations []string `json:"operations"`
	// Options holds operation parameters (see the Opt* keys).
	Options Options `json:"options"`
	// Fields, when present, is the field configuration applied to every
	// record. It takes precedence over a configuration saved in the store.
	Fields *fieldconfig.Config `json:"fields,omitempty"`
	// Output controls where generated files go.
	Output Output `json:"output"`
	// Store configures persistence of field configurations.
	Store Store `json:"store"`
	// Metrics selects a metrics backend.
	Metrics Metrics `json:"metrics"`
}

// Input names a single JSONL file or a list file with one path per line.
type Input struct {
	Path string `json:"path"`
	List string `json:"list"`
}

// Output describes the output directory.
type Output struct {
	// Dir receives generated files. Defaults to the current directory.
	Dir string `json:"dir"`
	// Manifest writes manifest.json with per-file xxh3 digests.
	Manifest bool `json:"manifest"`
	// Workers bounds parallel file writes. Zero picks a default.
	Workers int `json:"workers"`
	// Compress names the codec applied to data files: one of
	// OutputCodecs, or "" / "none" for plain JSONL.
	Compress string `json:"compress"`
}

// OutputCodecs lists the accepted output.compress values.
var OutputCodecs = []string{"gzip", "zstd", "s2", "lz4"}

// Store configures the key-value store; see storage.ParseDSN for the DSN
// forms. An empty DSN disables persistence.
type Store struct {
	DSN   string `json:"dsn"`
	Table string `json:"table"`
}

// Metrics selects and configures a metrics backend.
type Metrics struct {
	// Backend is "pushgateway", "datadog" or "none".
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr"`
}

// Has reports whether op is selected.
func (r Run) Has(op string) bool {
	for _, o := range r.Operations {
		if o == op {
			return true
		}
	}
	return false
}

// Decode reads a run file from rd. Unknown fields are rejected so typos in
// run files surface early.
func Decode(rd io.Reader) (Run, error) {
	var r Run
	dec := json.NewDecoder(rd)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return Run{}, fmt.Errorf("config: decode: %w", err)
	}
	if r.Options == nil {
		r.Options = Options{}
	}
	return r, nil
}

// Load opens and decodes the run file at path.
func Load(path string) (Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return Run{}, fmt.Errorf("config: open: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// ApplyEnv fills unset store and metrics settings from the environment:
// JSONLKIT_STORE_DSN, METRICS_BACKEND, PUSHGATEWAY_URL and DD_AGENT_ADDR.
// Values already set (by the run file or flags) win.
func (r *Run) ApplyEnv(getenv func(string) string) {
	if r.Store.DSN == "" {
		r.Store.DSN = getenv("JSONLKIT_STORE_DSN")
	}
	if r.Metrics.Backend == "" {
		r.Metrics.Backend = getenv("METRICS_BACKEND")
	}
	if r.Metrics.PushgatewayURL == "" {
		r.Metrics.PushgatewayURL = getenv("PUSHGATEWAY_URL")
	}
	if r.Metrics.DatadogAddr == "" {
		r.Metrics.DatadogAddr = getenv("DD_AGENT_ADDR")
	}
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns the provided default
// when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
// Numeric strings are accepted too, since flags and form values arrive as
// text.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				return i
			}
		}
	}
	return def
}

// Float returns the float64 value for key or def.
func (o Options) Float(key string, def float64) float64 {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f
			}
		}
	}
	return def
}

// Has reports whether key is present.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null
// "options" object decodes to a non-nil, empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
