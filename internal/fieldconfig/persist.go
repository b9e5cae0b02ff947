package fieldconfig

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"jsonlkit/internal/storage"
)

// KeyPrefix namespaces saved configurations in the store.
const KeyPrefix = "jsonl_field_config_"

// persistTimeout bounds each store call made by autosave.
const persistTimeout = 5 * time.Second

// Key returns the store key for a dataset identifier.
func Key(fileID string) string { return KeyPrefix + fileID }

// Select binds the manager to a dataset. The configuration is reset to the
// identity of paths and, if a saved configuration exists for fileID, that
// is merged on top. It reports whether a saved configuration was loaded.
func (m *Manager) Select(ctx context.Context, fileID string, paths []string) bool {
	m.Initialize(paths)
	m.fileID = fileID
	if !m.HasSaved(ctx, fileID) {
		return false
	}
	return m.Load(ctx, fileID)
}

// Saved returns the configuration saved for fileID, bound to paths, when it
// differs from identity. Otherwise it returns nil.
func Saved(ctx context.Context, store storage.Store, fileID string, paths []string) *Config {
	m := NewManager(store)
	if !m.Select(ctx, fileID, paths) || !m.HasChanges() {
		return nil
	}
	return m.Snapshot()
}

// Save writes the configuration under fileID. Failures are logged.
func (m *Manager) Save(ctx context.Context, fileID string) {
	if m.store == nil {
		return
	}
	b, err := json.Marshal(m.cfg)
	if err != nil {
		log.Printf("fieldconfig: save failed file_id=%s err=%v", fileID, err)
		return
	}
	if err := m.store.Set(ctx, Key(fileID), b); err != nil {
		log.Printf("fieldconfig: save failed file_id=%s err=%v", fileID, err)
	}
}

// Load merges the saved configuration for fileID onto the current one: each
// top-level key present in the saved document replaces the current value,
// absent keys keep theirs. It reports whether anything was loaded. Failures
// are logged and leave the configuration unchanged.
func (m *Manager) Load(ctx context.Context, fileID string) bool {
	if m.store == nil {
		return false
	}
	b, err := m.store.Get(ctx, Key(fileID))
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		log.Printf("fieldconfig: load failed file_id=%s err=%v", fileID, err)
		return false
	}
	next, err := merge(m.cfg, b)
	if err != nil {
		log.Printf("fieldconfig: load failed file_id=%s err=%v", fileID, err)
		return false
	}
	m.cfg = next
	return true
}

// merge decodes doc key by key over a copy of base.
func merge(base *Config, doc []byte) (*Config, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, err
	}
	out := base.Clone()
	fields := map[string]any{
		"originalFields": &out.OriginalFields,
		"fieldMapping":   &out.FieldMapping,
		"fieldOrder":     &out.FieldOrder,
		"deletedFields":  &out.DeletedFields,
		"newFields":      &out.NewFields,
	}
	for k, msg := range raw {
		dst, ok := fields[k]
		if !ok {
			continue
		}
		// Fresh targets so a saved map replaces rather than extends.
		switch p := dst.(type) {
		case *map[string]string:
			*p = nil
		case *map[string]FieldSpec:
			*p = nil
		}
		if err := json.Unmarshal(msg, dst); err != nil {
			return nil, err
		}
	}
	if out.FieldMapping == nil {
		out.FieldMapping = map[string]string{}
	}
	if out.NewFields == nil {
		out.NewFields = map[string]FieldSpec{}
	}
	if out.DeletedFields == nil {
		out.DeletedFields = []string{}
	}
	return out, nil
}

// HasSaved reports whether a configuration is saved for fileID.
func (m *Manager) HasSaved(ctx context.Context, fileID string) bool {
	if m.store == nil {
		return false
	}
	_, err := m.store.Get(ctx, Key(fileID))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("fieldconfig: lookup failed file_id=%s err=%v", fileID, err)
	}
	return err == nil
}

// Clear forgets the saved configuration for fileID.
func (m *Manager) Clear(fileID string) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.store.Delete(ctx, Key(fileID)); err != nil {
		log.Printf("fieldconfig: clear failed file_id=%s err=%v", fileID, err)
	}
}

// ClearAll forgets every saved configuration. It returns the number of
// configurations removed.
func (m *Manager) ClearAll(ctx context.Context) int {
	if m.store == nil {
		return 0
	}
	keys, err := m.store.Keys(ctx, KeyPrefix)
	if err != nil {
		log.Printf("fieldconfig: clear all failed err=%v", err)
		return 0
	}
	n := 0
	for _, k := range keys {
		if err := m.store.Delete(ctx, k); err != nil {
			log.Printf("fieldconfig: clear failed key=%s err=%v", k, err)
			continue
		}
		n++
	}
	return n
}

// SavedIDs lists the dataset identifiers that have a saved configuration.
func (m *Manager) SavedIDs(ctx context.Context) []string {
	if m.store == nil {
		return nil
	}
	keys, err := m.store.Keys(ctx, KeyPrefix)
	if err != nil {
		log.Printf("fieldconfig: list failed err=%v", err)
		return nil
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = strings.TrimPrefix(k, KeyPrefix)
	}
	return ids
}

func (m *Manager) autosave() {
	if m.store == nil || m.fileID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	m.Save(ctx, m.fileID)
}
