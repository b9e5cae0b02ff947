package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"jsonlkit/internal/errs"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users but
	// does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Run.
//
// Path is a dotted path into the run file (e.g. "options.split_count",
// "operations[2]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ParamError reports a missing or invalid parameter for a selected
// operation. It matches errs.ErrInvalidConfig.
type ParamError struct {
	// Param is the option key, e.g. "truncate_length".
	Param   string
	Message string
}

func (e *ParamError) Error() string { return fmt.Sprintf("%s: %s", e.Param, e.Message) }

func (e *ParamError) Unwrap() error { return errs.ErrInvalidConfig }

// HasErrors reports whether issues contains at least one error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateRun performs static validation of a Run. It does not mutate the
// run; callers decide whether warnings are fatal.
//
// Operation parameters are checked again by the pipeline before a run; the
// checks here let `jsonlkit validate` report every problem at once.
func ValidateRun(r Run) []Issue {
	var issues []Issue

	if strings.TrimSpace(r.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; runs will be labeled \"jsonlkit\" in metrics",
		})
	}
	issues = append(issues, validateInput(r.Input)...)
	issues = append(issues, validateOperations(r.Operations)...)
	issues = append(issues, validateOptions(r)...)
	issues = append(issues, validateOutput(r)...)
	issues = append(issues, validateMetrics(r.Metrics)...)
	if r.Fields != nil {
		if err := r.Fields.Validate(); err != nil {
			issues = append(issues, Issue{Severity: SeverityError, Path: "fields", Message: err.Error()})
		}
	}
	return issues
}

func validateInput(in Input) []Issue {
	path, list := strings.TrimSpace(in.Path), strings.TrimSpace(in.List)
	switch {
	case path == "" && list == "":
		return []Issue{{Severity: SeverityError, Path: "input", Message: "one of input.path or input.list is required"}}
	case path != "" && list != "":
		return []Issue{{Severity: SeverityError, Path: "input", Message: "input.path and input.list are mutually exclusive"}}
	case path != "" && !strings.HasSuffix(path, ".jsonl"):
		return []Issue{{Severity: SeverityWarning, Path: "input.path", Message: fmt.Sprintf("%q does not end in .jsonl; output names will keep the full file name", path)}}
	}
	return nil
}

func validateOperations(ops []string) []Issue {
	var issues []Issue
	if len(ops) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "operations",
			Message:  "no operations selected; only the field configuration (if any) is applied",
		})
	}
	seen := map[string]bool{}
	for i, op := range ops {
		p := fmt.Sprintf("operations[%d]", i)
		if !slices.Contains(KnownOperations, op) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     p,
				Message:  fmt.Sprintf("unknown operation %q; known: %s", op, strings.Join(KnownOperations, ", ")),
			})
			continue
		}
		if seen[op] {
			issues = append(issues, Issue{Severity: SeverityWarning, Path: p, Message: fmt.Sprintf("operation %q listed twice", op)})
		}
		seen[op] = true
	}
	return issues
}

func validateOptions(r Run) []Issue {
	var issues []Issue
	o := r.Options
	add := func(key, msg string) {
		issues = append(issues, Issue{Severity: SeverityError, Path: "options." + key, Message: msg})
	}

	if r.Has(OpDateInsert) {
		d := o.String(OptDate, "")
		if d == "" {
			add(OptDate, "dateInsert requires a date")
		} else if _, err := ParseDate(d); err != nil {
			add(OptDate, err.Error())
		}
	}
	if r.Has(OpPromptTruncate) && o.Int(OptTruncateLength, 0) < 1 {
		add(OptTruncateLength, "promptTruncate requires truncate_length >= 1")
	}
	if r.Has(OpFileSplit) && o.Has(OptSplitCount) && o.Int(OptSplitCount, 0) < 1 {
		add(OptSplitCount, "fileSplit requires split_count >= 1")
	}
	if r.Has(OpRowSizeFilter) && o.Float(OptMaxRowSize, 0) < 0.001 {
		add(OptMaxRowSize, "rowSizeFilter requires max_row_size >= 0.001 (MB)")
	}
	if o.Has(OptMaxPromptBytes) && o.Int(OptMaxPromptBytes, 0) < 1 {
		add(OptMaxPromptBytes, "max_prompt_bytes must be >= 1")
	}
	if o.Has(OptSampleSize) && o.Int(OptSampleSize, 0) < 1 {
		add(OptSampleSize, "sample_size must be >= 1")
	}
	return issues
}

func validateOutput(r Run) []Issue {
	var issues []Issue
	if r.Output.Workers < 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "output.workers", Message: "workers must not be negative"})
	}
	if c := r.Output.Compress; c != "" && c != "none" && !slices.Contains(OutputCodecs, c) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.compress",
			Message:  fmt.Sprintf("unknown codec %q; want one of %s", c, strings.Join(OutputCodecs, ", ")),
		})
	}
	if !r.Has(OpBatchDownload) && (r.Output.Dir != "" || r.Output.Manifest || r.Output.Compress != "") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output",
			Message:  "output is configured but batchDownload is not selected; nothing will be written",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none", "pushgateway", "datadog":
		return nil
	default:
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", m.Backend),
		}}
	}
}

// ParseDate accepts YYYY-MM-DD or YYYYMMDD.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD or YYYYMMDD", s)
}
