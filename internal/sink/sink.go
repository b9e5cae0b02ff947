// Package sink writes generated JSONL files. A run produces at most a
// handful of files; Emitter writes them in parallel with a bounded errgroup
// and can record a manifest with per-file xxh3 digests.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"jsonlkit/internal/pipeline"
	"jsonlkit/pkg/records"
)

// Sink receives one fully serialized file at a time. Implementations must be
// safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, name string, content []byte) error
}

// Output file names. base is the input name without ".jsonl".
func ProcessedName(base string) string { return base + "_processed.jsonl" }
func PartName(base string, n int) string {
	return base + "_part_" + strconv.Itoa(n) + ".jsonl"
}
func RetainedName(base string) string { return base + "_retained.jsonl" }
func FilteredName(base string) string { return base + "_filtered.jsonl" }

// File is one planned output.
type File struct {
	Name    string
	Records []*records.Record
}

// Plan maps a run result to output files:
//
//   - no filter, no split: <base>_processed.jsonl
//   - split: <base>_part_<n>.jsonl, 1-based
//   - filter without split: <base>_retained.jsonl
//   - filter: <base>_filtered.jsonl after the retained output
//
// Files with no records are left out.
func Plan(base string, res *pipeline.Result) []File {
	var out []File
	add := func(name string, recs []*records.Record) {
		if len(recs) > 0 {
			out = append(out, File{Name: name, Records: recs})
		}
	}
	switch {
	case res.Split:
		for i, c := range res.Chunks {
			add(PartName(base, i+1), c)
		}
	case res.HasFilter:
		add(RetainedName(base), res.Filter.Retained)
	default:
		add(ProcessedName(base), res.Transformed)
	}
	if res.HasFilter {
		add(FilteredName(base), res.Filter.Filtered)
	}
	return out
}

// Dir writes files under Root. Each file is written to a temporary name and
// renamed into place.
type Dir struct {
	Root string
}

// NewDir creates root if needed.
func NewDir(root string) (*Dir, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("sink: mkdir %s: %w", root, err)
	}
	return &Dir{Root: root}, nil
}

func (d *Dir) Emit(ctx context.Context, name string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("sink: invalid file name %q", name)
	}
	tmp, err := os.CreateTemp(d.Root, "."+name+".*")
	if err != nil {
		return fmt.Errorf("sink: create %s: %w", name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("sink: chmod %s: %w", name, err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("sink: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("sink: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.Root, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("sink: rename %s: %w", name, err)
	}
	return nil
}

// Memory keeps emitted files in memory, in emission order.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
	order []string
}

func NewMemory() *Memory { return &Memory{files: map[string][]byte{}} }

func (m *Memory) Emit(ctx context.Context, name string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		m.order = append(m.order, name)
	}
	m.files[name] = slices.Clone(content)
	return nil
}

// Get returns the content emitted under name.
func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[name]
	return b, ok
}

// Names returns emitted names in the order they first arrived.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.order)
}
