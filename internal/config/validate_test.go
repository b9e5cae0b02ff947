package config

import (
	"errors"
	"strings"
	"testing"

	"jsonlkit/internal/errs"
	"jsonlkit/internal/fieldconfig"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validRun() Run {
	return Run{
		Job:        "nightly",
		Input:      Input{Path: "in.jsonl"},
		Operations: []string{OpDateInsert, OpPromptTruncate, OpFileSplit, OpRowSizeFilter, OpBatchDownload},
		Options: Options{
			OptDate:           "2025-01-01",
			OptTruncateLength: float64(10),
			OptSplitCount:     float64(50),
			OptMaxRowSize:     1.0,
		},
		Output: Output{Dir: "out"},
	}
}

/*
TestValidateRun_ValidMinimal verifies that a well-formed run produces no
issues (errors or warnings).
*/
func TestValidateRun_ValidMinimal(t *testing.T) {
	t.Parallel()

	if issues := ValidateRun(validRun()); len(issues) != 0 {
		t.Fatalf("expected no issues; got %+v", issues)
	}
}

func TestValidateRun_Input(t *testing.T) {
	t.Parallel()

	r := validRun()
	r.Input = Input{}
	if !hasIssue(t, ValidateRun(r), SeverityError, "input", "required") {
		t.Fatalf("missing input not reported")
	}

	r.Input = Input{Path: "a.jsonl", List: "l.txt"}
	if !hasIssue(t, ValidateRun(r), SeverityError, "input", "mutually exclusive") {
		t.Fatalf("path+list not reported")
	}

	r.Input = Input{Path: "a.json"}
	issues := ValidateRun(r)
	if !hasIssue(t, issues, SeverityWarning, "input.path", ".jsonl") || HasErrors(issues) {
		t.Fatalf("suffix warning: %+v", issues)
	}
}

func TestValidateRun_UnknownOperation(t *testing.T) {
	t.Parallel()

	r := validRun()
	r.Operations = append(r.Operations, "shuffle", OpDateInsert)
	issues := ValidateRun(r)
	if !hasIssue(t, issues, SeverityError, "operations[5]", `unknown operation "shuffle"`) {
		t.Fatalf("unknown op not reported: %+v", issues)
	}
	if !hasIssue(t, issues, SeverityWarning, "operations[6]", "listed twice") {
		t.Fatalf("duplicate op not reported: %+v", issues)
	}
}

/*
TestValidateRun_Params checks each per-operation parameter rule with a table.
*/
func TestValidateRun_Params(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		key  string
		val  any
		path string
		msg  string
	}{
		{"missing date", OptDate, "", "options.date", "requires a date"},
		{"bad date", OptDate, "01/02/2025", "options.date", "YYYY-MM-DD"},
		{"zero truncate", OptTruncateLength, float64(0), "options.truncate_length", ">= 1"},
		{"zero split", OptSplitCount, float64(0), "options.split_count", ">= 1"},
		{"tiny row size", OptMaxRowSize, 0.0001, "options.max_row_size", "0.001"},
		{"zero prompt bytes", OptMaxPromptBytes, float64(0), "options.max_prompt_bytes", ">= 1"},
		{"zero sample", OptSampleSize, float64(0), "options.sample_size", ">= 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRun()
			r.Options[tc.key] = tc.val
			if !hasIssue(t, ValidateRun(r), SeverityError, tc.path, tc.msg) {
				t.Fatalf("want error at %s containing %q; got %+v", tc.path, tc.msg, ValidateRun(r))
			}
		})
	}
}

// TestValidateRun_UnselectedParamsIgnored makes sure parameters only matter
// for selected operations.
func TestValidateRun_UnselectedParamsIgnored(t *testing.T) {
	t.Parallel()

	r := validRun()
	r.Operations = []string{OpReferenceField}
	r.Options = Options{OptTruncateLength: float64(0), OptMaxRowSize: 0.0}
	r.Output = Output{}
	if issues := ValidateRun(r); HasErrors(issues) {
		t.Fatalf("unexpected errors: %+v", issues)
	}
}

func TestValidateRun_OutputAndMetrics(t *testing.T) {
	t.Parallel()

	r := validRun()
	r.Operations = []string{OpReferenceField}
	r.Output.Workers = -1
	r.Metrics.Backend = "statsd"
	issues := ValidateRun(r)
	if !hasIssue(t, issues, SeverityError, "output.workers", "negative") {
		t.Fatalf("workers not reported: %+v", issues)
	}
	if !hasIssue(t, issues, SeverityWarning, "output", "batchDownload") {
		t.Fatalf("output without batchDownload not reported: %+v", issues)
	}
	if !hasIssue(t, issues, SeverityWarning, "metrics.backend", "statsd") {
		t.Fatalf("metrics backend not reported: %+v", issues)
	}
}

func TestValidateRun_Compress(t *testing.T) {
	t.Parallel()

	for _, c := range append([]string{"", "none"}, OutputCodecs...) {
		r := validRun()
		r.Output.Compress = c
		if issues := ValidateRun(r); HasErrors(issues) {
			t.Fatalf("compress=%q: %+v", c, issues)
		}
	}
	r := validRun()
	r.Output.Compress = "brotli"
	if !hasIssue(t, ValidateRun(r), SeverityError, "output.compress", "brotli") {
		t.Fatal("unknown codec not reported")
	}
}

func TestValidateRun_Fields(t *testing.T) {
	t.Parallel()

	r := validRun()
	cfg := fieldconfig.NewConfig([]string{"a", "b"})
	cfg.FieldMapping["b"] = "a"
	r.Fields = cfg
	if !hasIssue(t, ValidateRun(r), SeverityError, "fields", "") {
		t.Fatalf("duplicate output names not reported")
	}
}

func TestParamError(t *testing.T) {
	t.Parallel()

	var err error = &ParamError{Param: OptSplitCount, Message: "must be >= 1"}
	if !errors.Is(err, errs.ErrInvalidConfig) || !errs.IsConfig(err) {
		t.Fatalf("ParamError must match ErrInvalidConfig")
	}
	if err.Error() != "split_count: must be >= 1" {
		t.Fatalf("Error()=%q", err.Error())
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"2025-03-09", "20250309"} {
		d, err := ParseDate(s)
		if err != nil || d.Format("20060102") != "20250309" {
			t.Fatalf("ParseDate(%q)=%v,%v", s, d, err)
		}
	}
	if _, err := ParseDate("2025-13-01"); err == nil {
		t.Fatalf("invalid month accepted")
	}
}
