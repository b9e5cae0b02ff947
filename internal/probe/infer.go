package probe

import (
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"jsonlkit/internal/errs"
	"jsonlkit/internal/parser/jsonl"
	"jsonlkit/pkg/records"
)

// DefaultSampleSize is the number of leading lines sampled per pass.
const DefaultSampleSize = 100

// widenFactor bounds the fallback pass: when the first sampleSize lines yield
// no fields, scanning continues up to widenFactor*sampleSize lines.
const widenFactor = 3

const (
	sampleMaxChars    = 15
	nestedPlaceholder = "[Object/Array]"
)

// Stats counts what happened to the sampled lines.
type Stats struct {
	// Lines is the number of non-blank lines in the input.
	Lines int `json:"lines"`
	// Sampled is the number of lines attempted.
	Sampled int `json:"sampled"`
	// Succeeded counts lines that contributed at least one new field.
	Succeeded int `json:"succeeded"`
	// Failed counts lines that did not parse.
	Failed int `json:"failed"`
	// EmptyObjects counts lines that parsed to {} (or []).
	EmptyObjects int `json:"emptyObjects"`
}

// NoFieldsError is returned when sampling finished without extracting a
// single field.
type NoFieldsError struct {
	Stats Stats
}

func (e *NoFieldsError) Error() string {
	return fmt.Sprintf("no fields extracted from input; sampled: %d lines | parsed with fields: %d | failed: %d | empty objects: %d",
		e.Stats.Sampled, e.Stats.Succeeded, e.Stats.Failed, e.Stats.EmptyObjects)
}

// InferText is Infer over the non-blank lines of text.
func InferText(text string, sampleSize int) (*Catalog, Stats, error) {
	return Infer(jsonl.Lines(text), sampleSize)
}

// Infer samples lines and builds a field catalog.
//
// Lines must already be free of blank entries (see jsonl.Lines). Up to
// sampleSize lines are scanned; if that yields nothing, scanning widens to
// 3*sampleSize. Unparseable and empty lines are skipped and counted.
func Infer(lines []string, sampleSize int) (*Catalog, Stats, error) {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	st := Stats{Lines: len(lines)}
	if len(lines) == 0 {
		return nil, st, &errs.InputError{Op: "probe: infer", Err: errs.ErrEmptyInput}
	}

	cat := NewCatalog()
	limit := min(len(lines), sampleSize)
	i := scan(cat, lines, 0, limit, &st)
	if cat.Len() == 0 {
		wide := min(len(lines), sampleSize*widenFactor)
		if wide > i {
			log.Printf("probe: no fields in first %d lines; widening sample to %d", i, wide)
			scan(cat, lines, i, wide, &st)
		}
	}

	if cat.Len() == 0 {
		return nil, st, &errs.InputError{Op: "probe: infer", Err: &NoFieldsError{Stats: st}}
	}
	return cat, st, nil
}

// scan walks lines[from:to] into cat and returns the index it stopped at.
func scan(cat *Catalog, lines []string, from, to int, st *Stats) int {
	for i := from; i < to; i++ {
		st.Sampled++
		v, err := records.Parse([]byte(lines[i]))
		if err != nil {
			st.Failed++
			continue
		}
		if isEmptyContainer(v) {
			st.EmptyObjects++
			continue
		}
		before := cat.Len()
		walk(cat, v, nil, 0)
		if cat.Len() > before {
			st.Succeeded++
		}
	}
	return to
}

func isEmptyContainer(v records.Value) bool {
	if o, ok := v.Obj(); ok {
		return o.Len() == 0
	}
	if items, ok := v.Items(); ok {
		return len(items) == 0
	}
	return false
}

// walk registers the fields found under v. Scalars at the top level carry no
// key and are ignored.
func walk(cat *Catalog, v records.Value, path []string, depth int) {
	switch v.Kind() {
	case records.KindArray:
		items, _ := v.Items()
		if len(items) == 0 {
			return
		}
		if _, ok := items[0].Obj(); !ok {
			return
		}
		p := strings.Join(path, ".")
		name := "root"
		if len(path) > 0 {
			name = path[len(path)-1]
		} else {
			p = "root"
		}
		cat.add(FieldInfo{
			Path:        p,
			DisplayName: name,
			SampleValue: FormatSample(v),
			Type:        TypeArray,
			Depth:       depth,
			IsNested:    depth > 0,
			FullPath:    clonePath(path),
			ArrayInfo:   arrayInfo(items),
		})
		walk(cat, items[0], appendPath(path, "[0]"), depth)

	case records.KindObject:
		obj, _ := v.Obj()
		obj.Range(func(key string, child records.Value) bool {
			cur := appendPath(path, key)
			fi := FieldInfo{
				Path:        strings.Join(cur, "."),
				DisplayName: key,
				SampleValue: FormatSample(child),
				Type:        DetectType(child),
				Depth:       depth,
				IsNested:    depth > 0,
				FullPath:    cur,
			}
			switch child.Kind() {
			case records.KindObject:
				fi.IsNested = true
				cat.add(fi)
				walk(cat, child, cur, depth+1)
			case records.KindArray:
				if items, _ := child.Items(); len(items) > 0 {
					fi.ArrayInfo = arrayInfo(items)
				}
				cat.add(fi)
			default:
				cat.add(fi)
			}
			return true
		})
	}
}

// arrayInfo describes an array by its length and, when the first element is
// an object, the type and preview of each of that element's keys.
func arrayInfo(items []records.Value) *ArrayInfo {
	ai := &ArrayInfo{Length: len(items), ItemStructure: []ItemField{}}
	first, ok := items[0].Obj()
	if !ok {
		return ai
	}
	first.Range(func(k string, v records.Value) bool {
		ai.ItemStructure = append(ai.ItemStructure, ItemField{
			Name:        k,
			Type:        DetectType(v),
			SampleValue: FormatSample(v),
		})
		return true
	})
	return ai
}

// DetectType maps a value to its catalog type.
func DetectType(v records.Value) FieldType {
	switch v.Kind() {
	case records.KindNull:
		return TypeNull
	case records.KindBool:
		return TypeBoolean
	case records.KindNumber:
		return TypeNumber
	case records.KindString:
		return TypeString
	case records.KindObject:
		return TypeObject
	case records.KindArray:
		return TypeArray
	default:
		return TypeUndefined
	}
}

// FormatSample renders a short preview of v. Strings longer than 15
// characters are cut and suffixed with "..."; only the first line is kept.
func FormatSample(v records.Value) string {
	switch v.Kind() {
	case records.KindString:
		s, _ := v.Str()
		if utf8.RuneCountInString(s) > sampleMaxChars {
			s = string([]rune(s)[:sampleMaxChars]) + "..."
		}
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[:i]
		}
		return s
	case records.KindObject, records.KindArray:
		return nestedPlaceholder
	default:
		return v.Text()
	}
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = seg
	return out
}

func clonePath(path []string) []string {
	if path == nil {
		return []string{}
	}
	return append([]string(nil), path...)
}
