package pipeline

import (
	"slices"

	"jsonlkit/internal/config"
	"jsonlkit/internal/transformer/builtin"
)

const defaultMaxPromptBytes = builtin.DefaultMaxPromptBytes

// OpInfo describes a selectable operation for help output and summaries.
type OpInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Params lists the option keys the operation reads.
	Params []string `json:"params,omitempty"`
}

var catalog = []OpInfo{
	{config.OpDateInsert, "Date insert", "insert a date into internal_id", []string{config.OptDate}},
	{config.OpPromptTruncate, "Prompt truncate", "truncate the prompt field", []string{config.OptTruncateLength}},
	{config.OpReferenceField, "Reference field", "copy prompt into a reference field", nil},
	{config.OpFileSplit, "File split", "split output into fixed-size parts", []string{config.OptSplitCount}},
	{config.OpBatchDownload, "Batch download", "write every generated file", nil},
	{config.OpRowSizeFilter, "Row size filter", "filter rows by encoded size", []string{config.OptMaxRowSize}},
	{config.OpPromptLengthFilter, "Prompt length filter", "filter rows by prompt length (20480 bytes)", []string{config.OptMaxPromptBytes}},
}

// Catalog returns every operation in display order.
func Catalog() []OpInfo {
	out := make([]OpInfo, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for name.
func Lookup(name string) (OpInfo, bool) {
	i := slices.IndexFunc(catalog, func(o OpInfo) bool { return o.Name == name })
	if i < 0 {
		return OpInfo{}, false
	}
	return catalog[i], true
}

// Operations is a set of selected operation names.
type Operations map[string]bool

// Ops builds a set from names.
func Ops(names ...string) Operations {
	o := make(Operations, len(names))
	for _, n := range names {
		o[n] = true
	}
	return o
}

// Has reports whether name is selected.
func (o Operations) Has(name string) bool { return o[name] }

// Names returns the selected operations in catalog order. Unknown names
// sort last, alphabetically.
func (o Operations) Names() []string {
	var known, unknown []string
	for _, info := range catalog {
		if o[info.Name] {
			known = append(known, info.Name)
		}
	}
	for n, on := range o {
		if _, ok := Lookup(n); on && !ok {
			unknown = append(unknown, n)
		}
	}
	slices.Sort(unknown)
	return append(known, unknown...)
}

// filtering reports whether any partitioning filter is selected.
func (o Operations) filtering() bool {
	return o.Has(config.OpRowSizeFilter) || o.Has(config.OpPromptLengthFilter)
}
