package pipeline

import (
	"fmt"
	"strings"

	"jsonlkit/internal/config"
)

// Summary describes a finished run for the user.
type Summary struct {
	RunID      string      `json:"run_id"`
	File       string      `json:"file"`
	TotalLines int         `json:"total_lines"`
	Files      int         `json:"files"`
	HasFilter  bool        `json:"has_filter"`
	Retained   int         `json:"retained"`
	Filtered   int         `json:"filtered"`
	Operations []OpSummary `json:"operations"`
}

// OpSummary is one enabled operation with its effective parameter.
type OpSummary struct {
	OpInfo
	Detail string `json:"detail,omitempty"`
}

// Summarize builds the summary of res. files is the number of files the
// caller generated (or would generate) from res.
func Summarize(file string, res *Result, ops Operations, opt Options, files int) Summary {
	s := Summary{
		RunID:      res.RunID.String(),
		File:       file,
		TotalLines: res.Stats.Input,
		Files:      files,
		HasFilter:  res.HasFilter,
		Retained:   res.Stats.Retained,
		Filtered:   res.Stats.Filtered,
	}
	for _, name := range ops.Names() {
		info, ok := Lookup(name)
		if !ok {
			info = OpInfo{Name: name, Title: name}
		}
		s.Operations = append(s.Operations, OpSummary{OpInfo: info, Detail: detail(name, opt)})
	}
	return s
}

func detail(op string, opt Options) string {
	switch op {
	case config.OpDateInsert:
		return "date " + FormatDate(opt.Date)
	case config.OpPromptTruncate:
		return fmt.Sprintf("%d characters", opt.TruncateLength)
	case config.OpFileSplit:
		return fmt.Sprintf("%d rows per file", opt.SplitCount)
	case config.OpRowSizeFilter:
		return fmt.Sprintf("threshold %g MB", opt.MaxRowSizeMB)
	case config.OpPromptLengthFilter:
		n := opt.MaxPromptBytes
		if n <= 0 {
			n = defaultMaxPromptBytes
		}
		return fmt.Sprintf("limit %d bytes", n)
	}
	return ""
}

// String renders the summary as plain text, one fact per line.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "file: %s\n", s.File)
	fmt.Fprintf(&b, "total lines: %d\n", s.TotalLines)
	if s.HasFilter {
		fmt.Fprintf(&b, "retained: %d\n", s.Retained)
		fmt.Fprintf(&b, "filtered: %d\n", s.Filtered)
	}
	fmt.Fprintf(&b, "generated files: %d\n", s.Files)
	if len(s.Operations) == 0 {
		b.WriteString("operations: none\n")
		return b.String()
	}
	b.WriteString("operations:\n")
	for _, op := range s.Operations {
		fmt.Fprintf(&b, "  - %s: %s", op.Title, op.Description)
		if op.Detail != "" {
			fmt.Fprintf(&b, " (%s)", op.Detail)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
