// Package fieldconfig holds the per-dataset field configuration: which
// source paths appear in the output, under what names, in what order, and
// which synthetic fields are added. Manager mutates it with conflict checks;
// Config.Apply projects a record through it.
package fieldconfig

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"jsonlkit/pkg/records"
)

// FieldSpec describes a synthetic field. A fixed field always emits Value;
// a dynamic field copies the value found at SourceField in each record, and
// Value is kept only as the default the user entered.
type FieldSpec struct {
	Value       records.Value
	Dynamic     bool
	SourceField string
}

// Fixed returns a fixed-value spec.
func Fixed(v records.Value) FieldSpec { return FieldSpec{Value: v} }

// Dynamic returns a spec that copies from source.
func Dynamic(source string, def records.Value) FieldSpec {
	return FieldSpec{Value: def, Dynamic: true, SourceField: source}
}

type dynamicJSON struct {
	DefaultValue records.Value `json:"defaultValue"`
	SourceField  string        `json:"sourceField"`
	IsDynamic    bool          `json:"isDynamic"`
}

// MarshalJSON writes a fixed field as its bare value and a dynamic field as
// {"defaultValue", "sourceField", "isDynamic": true}.
func (s FieldSpec) MarshalJSON() ([]byte, error) {
	if !s.Dynamic {
		return s.Value.MarshalJSON()
	}
	return json.Marshal(dynamicJSON{DefaultValue: s.Value, SourceField: s.SourceField, IsDynamic: true})
}

// UnmarshalJSON accepts both shapes written by MarshalJSON.
func (s *FieldSpec) UnmarshalJSON(b []byte) error {
	v, err := records.Parse(b)
	if err != nil {
		return err
	}
	*s = Fixed(v)
	obj, ok := v.Obj()
	if !ok {
		return nil
	}
	if dyn, _ := obj.Get("isDynamic"); !dyn.Truthy() {
		return nil
	}
	src, _ := obj.Get("sourceField")
	def, _ := obj.Get("defaultValue")
	*s = Dynamic(src.Text(), def)
	return nil
}

// Config is the serializable field configuration of one dataset.
type Config struct {
	// OriginalFields is the inferred path list, fixed at initialization.
	OriginalFields []string `json:"originalFields"`
	// FieldMapping maps an original path to its output name.
	FieldMapping map[string]string `json:"fieldMapping"`
	// FieldOrder is the output key order. Entries are original paths or
	// synthetic field names.
	FieldOrder []string `json:"fieldOrder"`
	// DeletedFields lists removed original paths. Deletion is reversible.
	DeletedFields []string `json:"deletedFields"`
	// NewFields holds the synthetic fields by name.
	NewFields map[string]FieldSpec `json:"newFields"`
}

// NewConfig returns the identity configuration for paths.
func NewConfig(paths []string) *Config {
	c := &Config{
		OriginalFields: slices.Clone(paths),
		FieldMapping:   make(map[string]string, len(paths)),
		FieldOrder:     slices.Clone(paths),
		DeletedFields:  []string{},
		NewFields:      map[string]FieldSpec{},
	}
	if c.OriginalFields == nil {
		c.OriginalFields = []string{}
		c.FieldOrder = []string{}
	}
	for _, p := range paths {
		c.FieldMapping[p] = p
	}
	return c
}

// Clone returns a deep copy. Field values are shared; they are never
// mutated in place.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := &Config{
		OriginalFields: slices.Clone(c.OriginalFields),
		FieldMapping:   make(map[string]string, len(c.FieldMapping)),
		FieldOrder:     slices.Clone(c.FieldOrder),
		DeletedFields:  slices.Clone(c.DeletedFields),
		NewFields:      make(map[string]FieldSpec, len(c.NewFields)),
	}
	for k, v := range c.FieldMapping {
		out.FieldMapping[k] = v
	}
	for k, v := range c.NewFields {
		out.NewFields[k] = v
	}
	return out
}

// OutputName is the key path is emitted under.
func (c *Config) OutputName(path string) string {
	if n := c.FieldMapping[path]; n != "" {
		return n
	}
	return path
}

// IsDeleted reports whether path is in DeletedFields.
func (c *Config) IsDeleted(path string) bool { return slices.Contains(c.DeletedFields, path) }

// IsSynthetic reports whether name is a synthetic field.
func (c *Config) IsSynthetic(name string) bool {
	_, ok := c.NewFields[name]
	return ok
}

// HasChanges reports whether c differs from the identity configuration of
// its original fields.
func (c *Config) HasChanges() bool {
	for k, v := range c.FieldMapping {
		if k != v {
			return true
		}
	}
	return len(c.DeletedFields) > 0 ||
		len(c.NewFields) > 0 ||
		!slices.Equal(c.FieldOrder, c.OriginalFields)
}

// Apply projects r through the configuration into a new record whose keys
// follow FieldOrder:
//
//   - a synthetic field is emitted under its output name; a dynamic one
//     takes the value at its source path and is omitted when that path is
//     missing;
//   - deleted paths are skipped;
//   - an original path is read by dot path and skipped when absent;
//   - a nested path that keeps its own name is skipped when one of its
//     ancestors is emitted too, since the ancestor already carries it; a
//     renamed nested path is always emitted under its new name.
//
// r is not modified.
func (c *Config) Apply(r *records.Record) *records.Record {
	out := records.New()
	if c == nil || r == nil {
		return out
	}

	deleted := make(map[string]bool, len(c.DeletedFields))
	for _, p := range c.DeletedFields {
		deleted[p] = true
	}

	// Resolve every emittable original path first so ancestor checks do not
	// depend on order.
	found := make(map[string]records.Value, len(c.FieldOrder))
	for _, p := range c.FieldOrder {
		if c.IsSynthetic(p) || deleted[p] {
			continue
		}
		if v, ok := r.Lookup(p); ok {
			found[p] = v
		}
	}

	for _, p := range c.FieldOrder {
		if spec, ok := c.NewFields[p]; ok {
			if !spec.Dynamic {
				out.Set(c.OutputName(p), spec.Value)
				continue
			}
			if v, ok := r.Lookup(spec.SourceField); ok {
				out.Set(c.OutputName(p), v)
			}
			continue
		}
		v, ok := found[p]
		if !ok {
			continue
		}
		if !r.Has(p) && c.OutputName(p) == p && hasEmittedAncestor(p, found) {
			continue
		}
		out.Set(c.OutputName(p), v)
	}
	return out
}

func hasEmittedAncestor(path string, found map[string]records.Value) bool {
	for i := strings.LastIndexByte(path, '.'); i > 0; i = strings.LastIndexByte(path[:i], '.') {
		if _, ok := found[path[:i]]; ok {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants a loaded or user-supplied
// configuration must hold.
func (c *Config) Validate() error {
	known := make(map[string]bool, len(c.OriginalFields)+len(c.NewFields))
	for _, p := range c.OriginalFields {
		known[p] = true
	}
	for n := range c.NewFields {
		known[n] = true
	}
	seen := map[string]bool{}
	for _, p := range c.FieldOrder {
		if !known[p] {
			return fmt.Errorf("fieldconfig: fieldOrder: unknown field %q", p)
		}
		if seen[p] {
			return fmt.Errorf("fieldconfig: fieldOrder: %q listed twice", p)
		}
		seen[p] = true
	}
	names := map[string]string{}
	for _, p := range c.OriginalFields {
		n := c.OutputName(p)
		if prev, dup := names[n]; dup {
			return fmt.Errorf("fieldconfig: fieldMapping: %q and %q both map to %q: %w", prev, p, n, ErrDuplicateName)
		}
		names[n] = p
	}
	return nil
}
