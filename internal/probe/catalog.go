// Package probe samples the leading lines of a JSONL dataset and infers a
// field catalog: one entry per dot-joined path with a type, a short preview
// of an example value, and array item shapes.
//
// Inference is advisory. Types come from the first record in which a path is
// seen and are never reconciled against later records.
package probe

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// FieldType is the inferred JSON type of a field.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeNumber    FieldType = "number"
	TypeBoolean   FieldType = "boolean"
	TypeObject    FieldType = "object"
	TypeArray     FieldType = "array"
	TypeNull      FieldType = "null"
	TypeUndefined FieldType = "undefined"
	// TypeCustom marks synthetic fields that do not come from the data.
	TypeCustom FieldType = "custom"
)

// ItemField describes one key of the first element of an array of objects.
type ItemField struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	SampleValue string    `json:"sampleValue"`
}

// ArrayInfo carries the shape of an array field.
type ArrayInfo struct {
	Length        int         `json:"length"`
	ItemStructure []ItemField `json:"itemStructure"`
}

// FieldInfo is one catalog entry.
type FieldInfo struct {
	// Path is the dot-joined key sequence, "[0]" standing for the first
	// element of an array. It is the catalog key.
	Path        string     `json:"path"`
	DisplayName string     `json:"displayName"`
	SampleValue string     `json:"sampleValue"`
	Type        FieldType  `json:"type"`
	Depth       int        `json:"depth"`
	IsNested    bool       `json:"isNested"`
	FullPath    []string   `json:"fullPath"`
	ArrayInfo   *ArrayInfo `json:"arrayInfo,omitempty"`
}

// Catalog is an ordered set of FieldInfo keyed by path, in first-seen order.
type Catalog struct {
	fields *orderedmap.OrderedMap[string, FieldInfo]
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{fields: orderedmap.New[string, FieldInfo]()}
}

// add registers fi unless its path is already known. First seen wins.
func (c *Catalog) add(fi FieldInfo) bool {
	if _, ok := c.fields.Get(fi.Path); ok {
		return false
	}
	c.fields.Set(fi.Path, fi)
	return true
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return c.fields.Len() }

// Get returns the entry for path.
func (c *Catalog) Get(path string) (FieldInfo, bool) { return c.fields.Get(path) }

// Paths returns the catalog keys in first-seen order.
func (c *Catalog) Paths() []string {
	out := make([]string, 0, c.fields.Len())
	for p := c.fields.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Fields returns the entries in first-seen order.
func (c *Catalog) Fields() []FieldInfo {
	out := make([]FieldInfo, 0, c.fields.Len())
	for p := c.fields.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// MarshalJSON renders the catalog as an ordered array of entries.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Fields())
}
