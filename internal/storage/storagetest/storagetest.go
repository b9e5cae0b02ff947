// Package storagetest holds the behavior tests shared by storage backends.
package storagetest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"jsonlkit/internal/storage"
)

// Run exercises the Store behavior every backend must share. Backend
// packages call it from their tests with a fresh, empty store.
func Run(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "absent"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get(absent) err=%v; want ErrNotFound", err)
	}

	mustSet := func(k, v string) {
		t.Helper()
		if err := s.Set(ctx, k, []byte(v)); err != nil {
			t.Fatalf("Set(%q): %v", k, err)
		}
	}
	mustSet("cfg_b", "2")
	mustSet("cfg_a", "1")
	mustSet("other", "x")
	mustSet("cfg_a", "1b")

	got, err := s.Get(ctx, "cfg_a")
	if err != nil {
		t.Fatalf("Get(cfg_a): %v", err)
	}
	if string(got) != "1b" {
		t.Fatalf("Get(cfg_a)=%q; want overwritten value 1b", got)
	}

	keys, err := s.Keys(ctx, "cfg_")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if strings.Join(keys, ",") != "cfg_a,cfg_b" {
		t.Fatalf("Keys(cfg_)=%v; want [cfg_a cfg_b]", keys)
	}

	// Prefix characters that are wildcards in SQL LIKE must match literally.
	mustSet("pct%_1", "p")
	keys, err = s.Keys(ctx, "pct%_")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "pct%_1" {
		t.Fatalf("Keys(pct%%_)=%v", keys)
	}

	if err := s.Delete(ctx, "cfg_a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "cfg_a"); err != nil {
		t.Fatalf("Delete twice: %v", err)
	}
	if _, err := s.Get(ctx, "cfg_a"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get after Delete err=%v; want ErrNotFound", err)
	}
	all, err := s.Keys(ctx, "")
	if err != nil {
		t.Fatalf("Keys(\"\"): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Keys(\"\")=%v; want 3 keys", all)
	}
}
