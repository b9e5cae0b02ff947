package fieldconfig

import (
	"errors"
	"slices"

	"jsonlkit/internal/errs"
	"jsonlkit/internal/storage"
	"jsonlkit/pkg/records"
)

var (
	// ErrDuplicateName is returned when a rename would give two fields the
	// same output name.
	ErrDuplicateName = errors.New("field name already in use")
	// ErrFieldExists is returned when a synthetic field would shadow an
	// existing field.
	ErrFieldExists = errors.New("field already exists")
	// ErrUnknownField is returned when renaming a path that is not an
	// original field.
	ErrUnknownField = errors.New("unknown field")
)

// Manager owns the field configuration of the active dataset. Every
// mutation either applies fully or returns an error and leaves the state
// untouched. When a dataset is bound (see Select) and a store is set, each
// successful mutation is saved.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	cfg    *Config
	store  storage.Store
	fileID string
}

// NewManager returns a Manager with an empty configuration. store may be
// nil, which disables persistence.
func NewManager(store storage.Store) *Manager {
	return &Manager{cfg: NewConfig(nil), store: store}
}

// Initialize replaces the configuration with the identity configuration of
// paths.
func (m *Manager) Initialize(paths []string) {
	m.cfg = NewConfig(paths)
}

// FileID returns the bound dataset identifier, or "".
func (m *Manager) FileID() string { return m.fileID }

// Config returns the live configuration. Callers must not modify it; use
// Snapshot to hand it to a run.
func (m *Manager) Config() *Config { return m.cfg }

// Snapshot returns a deep copy of the configuration.
func (m *Manager) Snapshot() *Config { return m.cfg.Clone() }

// Rename sets the output name of an original path. It reports whether the
// mapping changed. An empty name restores the original path as the name.
func (m *Manager) Rename(path, name string) (bool, error) {
	if _, ok := m.cfg.FieldMapping[path]; !ok {
		return false, &errs.ConfigError{Field: path, Err: ErrUnknownField}
	}
	if name == "" {
		name = path
	}
	for k, v := range m.cfg.FieldMapping {
		if k != path && v == name {
			return false, &errs.ConfigError{Field: name, Err: ErrDuplicateName}
		}
	}
	if m.cfg.IsSynthetic(name) {
		return false, &errs.ConfigError{Field: name, Err: ErrDuplicateName}
	}
	if m.cfg.FieldMapping[path] == name {
		return false, nil
	}
	m.cfg.FieldMapping[path] = name
	m.autosave()
	return true, nil
}

// Delete marks path as deleted and drops it from the order. It reports
// whether anything changed.
func (m *Manager) Delete(path string) bool {
	if m.cfg.IsDeleted(path) {
		return false
	}
	m.cfg.DeletedFields = append(m.cfg.DeletedFields, path)
	m.cfg.FieldOrder = slices.DeleteFunc(m.cfg.FieldOrder, func(p string) bool { return p == path })
	m.autosave()
	return true
}

// Restore undoes Delete. The path is appended to the end of the order if it
// is not already present. Paths the configuration does not know are ignored.
func (m *Manager) Restore(path string) {
	if !m.known(path) {
		return
	}
	m.cfg.DeletedFields = slices.DeleteFunc(m.cfg.DeletedFields, func(p string) bool { return p == path })
	if !slices.Contains(m.cfg.FieldOrder, path) {
		m.cfg.FieldOrder = append(m.cfg.FieldOrder, path)
	}
	m.autosave()
}

// Reorder replaces the output order. Deleted original paths and unknown
// paths are dropped, and a repeated path keeps its first position;
// synthetic fields are always kept. order is not checked to be a
// permutation of the current order.
func (m *Manager) Reorder(order []string) {
	next := make([]string, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, p := range order {
		if seen[p] || !m.known(p) || (m.cfg.IsDeleted(p) && !m.cfg.IsSynthetic(p)) {
			continue
		}
		seen[p] = true
		next = append(next, p)
	}
	m.cfg.FieldOrder = next
	m.autosave()
}

// known reports whether p is an original path or a synthetic field.
func (m *Manager) known(p string) bool {
	return m.cfg.IsSynthetic(p) || slices.Contains(m.cfg.OriginalFields, p)
}

// AddField adds a synthetic field at the end of the order. With a nil
// source the field always emits value; otherwise it copies the value at
// *source in each record and value is kept as its default.
//
// The name must not collide with an original path, a current output name
// or another synthetic field.
func (m *Manager) AddField(name string, value records.Value, source *string) error {
	if name == "" {
		return &errs.ConfigError{Field: "name", Err: errors.New("must not be empty")}
	}
	if _, ok := m.cfg.FieldMapping[name]; ok || m.cfg.IsSynthetic(name) {
		return &errs.ConfigError{Field: name, Err: ErrFieldExists}
	}
	for _, v := range m.cfg.FieldMapping {
		if v == name {
			return &errs.ConfigError{Field: name, Err: ErrFieldExists}
		}
	}
	spec := Fixed(value)
	if source != nil {
		spec = Dynamic(*source, value)
	}
	m.cfg.NewFields[name] = spec
	m.cfg.FieldOrder = append(m.cfg.FieldOrder, name)
	m.autosave()
	return nil
}

// RemoveField deletes a synthetic field. It reports false for names that
// are not synthetic.
func (m *Manager) RemoveField(name string) bool {
	if !m.cfg.IsSynthetic(name) {
		return false
	}
	delete(m.cfg.NewFields, name)
	m.cfg.FieldOrder = slices.DeleteFunc(m.cfg.FieldOrder, func(p string) bool { return p == name })
	m.autosave()
	return true
}

// UpdateFieldDefault replaces the value of a fixed synthetic field. It is a
// no-op for dynamic or unknown fields.
func (m *Manager) UpdateFieldDefault(name string, value records.Value) {
	spec, ok := m.cfg.NewFields[name]
	if !ok || spec.Dynamic {
		return
	}
	m.cfg.NewFields[name] = Fixed(value)
	m.autosave()
}

// Reset returns to the identity configuration of the original fields and
// forgets the saved copy of the bound dataset.
func (m *Manager) Reset() {
	m.cfg = NewConfig(m.cfg.OriginalFields)
	if m.fileID != "" {
		m.Clear(m.fileID)
	}
}

// Replace installs a copy of cfg wholesale, for hosts that edit the whole
// configuration at once. cfg must pass Validate.
func (m *Manager) Replace(cfg *Config) error {
	if cfg == nil {
		return &errs.ConfigError{Field: "fields", Err: errs.ErrInvalidConfig}
	}
	if err := cfg.Validate(); err != nil {
		return &errs.ConfigError{Field: "fields", Err: err}
	}
	m.cfg = cfg.Clone()
	m.autosave()
	return nil
}

// HasChanges reports whether the configuration differs from identity.
func (m *Manager) HasChanges() bool { return m.cfg.HasChanges() }

// Apply projects r through the current configuration.
func (m *Manager) Apply(r *records.Record) *records.Record { return m.cfg.Apply(r) }
