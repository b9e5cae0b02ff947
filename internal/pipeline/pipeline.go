// Package pipeline runs the fixed-order record pipeline over a fully loaded
// dataset: field projection, partitioning filters, row transforms on the
// retained records, then chunking.
//
// The order is fixed no matter how operations are selected:
//
//	project -> rowSizeFilter -> promptLengthFilter
//	        -> dateInsert -> referenceField -> promptTruncate -> fileSplit
//
// Run either returns a complete Result or an error; nothing is written here.
// Emitting files is the caller's job (see package sink).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jsonlkit/internal/config"
	"jsonlkit/internal/errs"
	"jsonlkit/internal/fieldconfig"
	"jsonlkit/internal/metrics"
	"jsonlkit/internal/split"
	"jsonlkit/internal/transformer"
	"jsonlkit/internal/transformer/builtin"
	"jsonlkit/pkg/records"
)

// Options carries operation parameters. Only the parameters of selected
// operations are read.
type Options struct {
	// Job labels metrics. Empty means "jsonlkit".
	Job string
	// Date is YYYY-MM-DD or YYYYMMDD; dateInsert stamps its YYYYMMDD form.
	Date           string
	TruncateLength int
	SplitCount     int
	MaxRowSizeMB   float64
	// MaxPromptBytes defaults to builtin.DefaultMaxPromptBytes.
	MaxPromptBytes int
	// FieldConfig, when non-nil, reshapes every record before anything else.
	FieldConfig *fieldconfig.Config
	// Progress receives one short message per stage.
	Progress func(string)
}

func (o Options) job() string {
	if o.Job == "" {
		return "jsonlkit"
	}
	return o.Job
}

func (o Options) progress(format string, args ...any) {
	if o.Progress != nil {
		o.Progress(fmt.Sprintf(format, args...))
	}
}

// Stats counts records through a run.
type Stats struct {
	Input    int           `json:"input"`
	Retained int           `json:"retained"`
	Filtered int           `json:"filtered"`
	Chunks   int           `json:"chunks"`
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of a run.
type Result struct {
	RunID uuid.UUID
	// Transformed holds the retained records after every row transform.
	Transformed []*records.Record
	// Chunks is Transformed split by fileSplit, or [Transformed] without it.
	Chunks [][]*records.Record
	// Filter partitions the input. Retained is the transformed retained set
	// and equals Transformed; Filtered keeps rejected records as they were
	// when rejected (after projection).
	Filter    transformer.Partition
	HasFilter bool
	Split     bool
	Stats     Stats
}

// Validate checks the parameters of every selected operation and returns a
// *config.ParamError naming the first problem.
func Validate(ops Operations, opt Options) error {
	if ops.Has(config.OpDateInsert) {
		if opt.Date == "" {
			return &config.ParamError{Param: config.OptDate, Message: "dateInsert requires a date"}
		}
		if _, err := config.ParseDate(opt.Date); err != nil {
			return &config.ParamError{Param: config.OptDate, Message: err.Error()}
		}
	}
	if ops.Has(config.OpPromptTruncate) && opt.TruncateLength < 1 {
		return &config.ParamError{Param: config.OptTruncateLength, Message: "promptTruncate requires truncate_length >= 1"}
	}
	if ops.Has(config.OpFileSplit) && opt.SplitCount < 1 {
		return &config.ParamError{Param: config.OptSplitCount, Message: "fileSplit requires split_count >= 1"}
	}
	if ops.Has(config.OpRowSizeFilter) && opt.MaxRowSizeMB < 0.001 {
		return &config.ParamError{Param: config.OptMaxRowSize, Message: "rowSizeFilter requires max_row_size >= 0.001 (MB)"}
	}
	if opt.FieldConfig != nil {
		if err := opt.FieldConfig.Validate(); err != nil {
			return &errs.ConfigError{Field: "fields", Err: err}
		}
	}
	return nil
}

// Run validates parameters and processes recs. ctx is checked between
// stages; a cancelled run returns ctx.Err() and no result.
func Run(ctx context.Context, recs []*records.Record, ops Operations, opt Options) (*Result, error) {
	start := time.Now()
	job := opt.job()

	if err := Validate(ops, opt); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.InputError{Op: "pipeline: run", Err: errs.ErrEmptyInput}
	}
	metrics.RecordRows(job, "input", len(recs))

	res := &Result{RunID: uuid.New(), HasFilter: ops.filtering(), Split: ops.Has(config.OpFileSplit)}
	cur := recs

	var steps []step
	add := func(name, msg string, fn func()) { steps = append(steps, step{name, msg, fn}) }

	if opt.FieldConfig != nil {
		add("project", "applying field configuration", func() {
			cur = builtin.Project{Config: opt.FieldConfig}.Apply(cur)
		})
	}
	if res.HasFilter {
		var filters transformer.Filters
		if ops.Has(config.OpRowSizeFilter) {
			filters = append(filters, builtin.SizeFilter{MaxMB: opt.MaxRowSizeMB})
		}
		if ops.Has(config.OpPromptLengthFilter) {
			filters = append(filters, builtin.PromptLengthFilter{MaxBytes: opt.MaxPromptBytes})
		}
		add("filter", "filtering rows", func() {
			res.Filter = filters.Partition(cur)
			cur = res.Filter.Retained
		})
	}
	if ops.Has(config.OpDateInsert) {
		date := FormatDate(opt.Date)
		add(config.OpDateInsert, "inserting date "+date, func() {
			cur = builtin.StampDate{Date: date}.Apply(cur)
		})
	}
	if ops.Has(config.OpReferenceField) {
		add(config.OpReferenceField, "adding reference field", func() {
			cur = builtin.AddReference{}.Apply(cur)
		})
	}
	if ops.Has(config.OpPromptTruncate) {
		add(config.OpPromptTruncate, "truncating prompt", func() {
			cur = builtin.TruncatePrompt{Length: opt.TruncateLength}.Apply(cur)
		})
	}

	if res.Split {
		add(config.OpFileSplit, "splitting into parts", func() {
			res.Chunks = split.Chunk(cur, opt.SplitCount)
		})
	}

	for _, s := range steps {
		if err := s.run(ctx, job, opt); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !res.Split {
		res.Chunks = [][]*records.Record{cur}
	}

	res.Transformed = cur
	if res.HasFilter {
		res.Filter.Retained = cur
	} else {
		res.Filter = transformer.Partition{Retained: cur, Filtered: []*records.Record{}}
	}
	res.Stats = Stats{
		Input:    len(recs),
		Retained: len(res.Filter.Retained),
		Filtered: len(res.Filter.Filtered),
		Chunks:   len(res.Chunks),
		Duration: time.Since(start),
	}
	metrics.RecordRows(job, "retained", res.Stats.Retained)
	metrics.RecordRows(job, "filtered", res.Stats.Filtered)
	return res, nil
}

type step struct {
	name, msg string
	fn        func()
}

func (s step) run(ctx context.Context, job string, opt Options) error {
	if err := ctx.Err(); err != nil {
		metrics.RecordStep(job, s.name, err, 0)
		return err
	}
	opt.progress("%s", s.msg)
	t0 := time.Now()
	s.fn()
	metrics.RecordStep(job, s.name, nil, time.Since(t0))
	return nil
}

// FromRun converts a decoded run file into the selected operations and
// their options. fileSplit without split_count uses split.DefaultSize.
func FromRun(r config.Run) (Operations, Options) {
	ops := Ops(r.Operations...)
	o := r.Options
	return ops, Options{
		Job:            r.Job,
		Date:           o.String(config.OptDate, ""),
		TruncateLength: o.Int(config.OptTruncateLength, 0),
		SplitCount:     o.Int(config.OptSplitCount, split.DefaultSize),
		MaxRowSizeMB:   o.Float(config.OptMaxRowSize, 0),
		MaxPromptBytes: o.Int(config.OptMaxPromptBytes, builtin.DefaultMaxPromptBytes),
		FieldConfig:    r.Fields,
	}
}

// FormatDate renders a YYYY-MM-DD (or already compact) date as YYYYMMDD.
// Unparseable input is returned unchanged.
func FormatDate(s string) string {
	t, err := config.ParseDate(s)
	if err != nil {
		return s
	}
	return t.Format("20060102")
}

// Today returns the current local date as YYYY-MM-DD.
func Today() string { return time.Now().Format(time.DateOnly) }

// IsParamError reports whether err is a parameter validation failure.
func IsParamError(err error) bool {
	var pe *config.ParamError
	return errors.As(err, &pe)
}
