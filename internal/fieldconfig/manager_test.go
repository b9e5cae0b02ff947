package fieldconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"jsonlkit/internal/errs"
	"jsonlkit/pkg/records"
)

func mustRecord(t *testing.T, s string) *records.Record {
	t.Helper()
	r, err := records.ParseRecord([]byte(s))
	if err != nil {
		t.Fatalf("ParseRecord(%s): %v", s, err)
	}
	return r
}

func strPtr(s string) *string { return &s }

// TestApply_Order verifies that output keys follow FieldOrder with renamed
// names, and that the input record is untouched.
func TestApply_Order(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a", "b", "c"})
	m.Reorder([]string{"c", "a", "b"})
	if _, err := m.Rename("a", "alpha"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	in := mustRecord(t, `{"a":1,"b":2,"c":3}`)
	got := m.Apply(in).String()
	if want := `{"c":3,"alpha":1,"b":2}`; got != want {
		t.Fatalf("Apply=%s; want %s", got, want)
	}
	if in.String() != `{"a":1,"b":2,"c":3}` {
		t.Fatalf("input mutated: %s", in)
	}
}

// TestApply_IdentityRoundTrip checks that a freshly initialized config
// reproduces records, including nested paths from inference.
func TestApply_IdentityRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"id", "meta", "meta.lang", "meta.tags", "meta.tags.x", "list"})

	for _, line := range []string{
		`{"id":"r1","meta":{"lang":"en","tags":{"x":1}},"list":[1,2]}`,
		`{"id":"r2","meta":{"lang":"fr","tags":{"x":2}},"list":[]}`,
	} {
		in := mustRecord(t, line)
		if got := m.Apply(in).String(); got != line {
			t.Fatalf("Apply=%s; want %s", got, line)
		}
	}
	if m.HasChanges() {
		t.Fatalf("HasChanges=true for identity config")
	}
}

// TestApply_NestedPathAfterParentDeleted flattens a nested value once its
// parent object is deleted.
func TestApply_NestedPathAfterParentDeleted(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"id", "meta", "meta.lang"})
	m.Delete("meta")
	if _, err := m.Rename("meta.lang", "lang"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	got := m.Apply(mustRecord(t, `{"id":1,"meta":{"lang":"en"}}`)).String()
	if want := `{"id":1,"lang":"en"}`; got != want {
		t.Fatalf("Apply=%s; want %s", got, want)
	}
}

// TestApply_RenamedNestedPathUnderKeptParent emits a renamed nested value
// next to its parent, while unrenamed siblings stay inside the parent only.
func TestApply_RenamedNestedPathUnderKeptParent(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"id", "user", "user.name", "user.age"})
	changed, err := m.Rename("user.name", "username")
	if err != nil || !changed {
		t.Fatalf("Rename=%v, %v; want true, nil", changed, err)
	}

	got := m.Apply(mustRecord(t, `{"id":1,"user":{"name":"x","age":3}}`)).String()
	if want := `{"id":1,"user":{"name":"x","age":3},"username":"x"}`; got != want {
		t.Fatalf("Apply=%s; want %s", got, want)
	}
}

// TestApply_DottedTopLevelKey keeps literal "a.b" keys even when "a" exists.
func TestApply_DottedTopLevelKey(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a", "a.b"})
	got := m.Apply(mustRecord(t, `{"a":{"b":1},"a.b":2}`)).String()
	if want := `{"a":{"b":1},"a.b":2}`; got != want {
		t.Fatalf("Apply=%s; want %s", got, want)
	}
}

// TestApply_SkipsAbsentAndDeleted covers missing source paths and deleted
// fields.
func TestApply_SkipsAbsentAndDeleted(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a", "b", "c"})
	m.Delete("b")

	got := m.Apply(mustRecord(t, `{"a":null,"b":2}`)).String()
	if want := `{"a":null}`; got != want {
		t.Fatalf("Apply=%s; want %s", got, want)
	}
}

// TestApply_SyntheticFields covers fixed and dynamic synthetic fields.
func TestApply_SyntheticFields(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"id", "user"})
	require.NoError(t, m.AddField("source", records.String("web"), nil))
	require.NoError(t, m.AddField("uid", records.Null(), strPtr("user.id")))
	require.NoError(t, m.AddField("first", records.Null(), strPtr("items.[0]")))

	got := m.Apply(mustRecord(t, `{"id":7,"user":{"id":"u1"},"items":["x","y"]}`)).String()
	require.Equal(t, `{"id":7,"user":{"id":"u1"},"source":"web","uid":"u1","first":"x"}`, got)

	// Missing source omits the dynamic field; fixed values always appear.
	got = m.Apply(mustRecord(t, `{"id":8}`)).String()
	require.Equal(t, `{"id":8,"source":"web"}`, got)
}

func TestRename(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a", "b"})

	changed, err := m.Rename("a", "x")
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = m.Rename("a", "x")
	require.NoError(t, err)
	require.False(t, changed, "same name again is not a change")

	before := m.Snapshot()
	_, err = m.Rename("b", "x")
	require.ErrorIs(t, err, ErrDuplicateName)
	require.True(t, errs.IsConfig(err))
	require.Equal(t, before, m.Snapshot(), "failed rename must not change state")

	// "a" is free again once its original path was renamed away.
	changed, err = m.Rename("b", "a")
	require.NoError(t, err)
	require.True(t, changed)

	_, err = m.Rename("nope", "y")
	require.ErrorIs(t, err, ErrUnknownField)

	// Empty name restores the original.
	changed, err = m.Rename("b", "")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "b", m.Config().OutputName("b"))
}

// TestRename_CollidesWithSynthetic rejects taking a synthetic field's name.
func TestRename_CollidesWithSynthetic(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a"})
	require.NoError(t, m.AddField("extra", records.Int(1), nil))

	_, err := m.Rename("a", "extra")
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestAddField_Conflicts(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a", "b"})
	_, err := m.Rename("b", "bee")
	require.NoError(t, err)

	cases := []string{"a", "b", "bee"}
	for _, name := range cases {
		err := m.AddField(name, records.Null(), nil)
		if !errors.Is(err, ErrFieldExists) {
			t.Fatalf("AddField(%q) err=%v; want ErrFieldExists", name, err)
		}
	}
	require.NoError(t, m.AddField("c", records.Null(), nil))
	require.ErrorIs(t, m.AddField("c", records.Null(), nil), ErrFieldExists)
	require.Error(t, m.AddField("", records.Null(), nil))
	require.Equal(t, []string{"a", "b", "c"}, m.Config().FieldOrder)
}

// TestDeleteRestore_RoundTrip checks that delete then restore only moves
// the field to the end.
func TestDeleteRestore_RoundTrip(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a", "b", "c"})

	require.True(t, m.Delete("a"))
	require.False(t, m.Delete("a"), "delete is idempotent")
	require.Equal(t, []string{"b", "c"}, m.Config().FieldOrder)
	require.Equal(t, []string{"a"}, m.Config().DeletedFields)

	m.Restore("a")
	require.Equal(t, []string{"b", "c", "a"}, m.Config().FieldOrder)
	require.Empty(t, m.Config().DeletedFields)

	// Restoring a present field does not duplicate it.
	m.Restore("b")
	require.Equal(t, []string{"b", "c", "a"}, m.Config().FieldOrder)
}

// TestReorder_DropsDeleted verifies that deleted originals cannot re-enter
// the order but synthetic fields can.
func TestReorder_DropsDeleted(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a", "b"})
	require.NoError(t, m.AddField("n", records.String("v"), nil))
	m.Delete("a")

	m.Reorder([]string{"n", "a", "b"})
	require.Equal(t, []string{"n", "b"}, m.Config().FieldOrder)
}

// TestReorder_DuplicatesAndUnknown keeps the first position of a repeated
// path and drops unknown ones, so the saved order still validates.
func TestReorder_DuplicatesAndUnknown(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a", "b"})
	m.Reorder([]string{"b", "a", "a", "zz"})
	require.Equal(t, []string{"b", "a"}, m.Config().FieldOrder)
	require.NoError(t, m.Config().Validate())

	m.Restore("zz")
	require.Equal(t, []string{"b", "a"}, m.Config().FieldOrder)
	require.NoError(t, m.Config().Validate())

	got := m.Apply(mustRecord(t, `{"a":1,"b":2}`)).String()
	require.Equal(t, `{"b":2,"a":1}`, got)
}

func TestRemoveField_And_UpdateDefault(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a"})
	require.NoError(t, m.AddField("fixed", records.String("v1"), nil))
	require.NoError(t, m.AddField("dyn", records.String("d"), strPtr("a")))

	m.UpdateFieldDefault("fixed", records.String("v2"))
	m.UpdateFieldDefault("dyn", records.String("ignored"))
	m.UpdateFieldDefault("a", records.String("ignored"))

	require.Equal(t, `{"a":1,"fixed":"v2","dyn":1}`, m.Apply(mustRecord(t, `{"a":1}`)).String())
	require.Equal(t, "d", m.Config().NewFields["dyn"].Value.Text())

	require.False(t, m.RemoveField("a"), "originals are not synthetic")
	require.True(t, m.RemoveField("fixed"))
	require.Equal(t, []string{"a", "dyn"}, m.Config().FieldOrder)
}

// TestReset_Idempotent checks that Reset returns to identity and that a
// second Reset is a no-op.
func TestReset_Idempotent(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a", "b"})
	_, _ = m.Rename("a", "x")
	m.Delete("b")
	_ = m.AddField("n", records.Int(1), nil)
	require.True(t, m.HasChanges())

	m.Reset()
	first := m.Snapshot()
	m.Reset()
	require.Equal(t, first, m.Snapshot())
	require.False(t, m.HasChanges())
	require.Equal(t, NewConfig([]string{"a", "b"}), first)
}

// TestHasChanges_ReorderOnly detects a pure reorder.
func TestHasChanges_ReorderOnly(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a", "b"})
	m.Reorder([]string{"b", "a"})
	if !m.HasChanges() {
		t.Fatalf("HasChanges=false after reorder")
	}
}

// TestSnapshot_IsIndependent ensures later mutations do not leak into a
// snapshot handed to a run.
func TestSnapshot_IsIndependent(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	m.Initialize([]string{"a"})
	snap := m.Snapshot()
	_, _ = m.Rename("a", "b")
	_ = m.AddField("n", records.Null(), nil)

	if snap.OutputName("a") != "a" || len(snap.NewFields) != 0 || len(snap.FieldOrder) != 1 {
		t.Fatalf("snapshot changed: %+v", snap)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	c := NewConfig([]string{"a", "b"})
	require.NoError(t, c.Validate())

	c.FieldOrder = append(c.FieldOrder, "zzz")
	require.Error(t, c.Validate())

	c = NewConfig([]string{"a", "b"})
	c.FieldMapping["a"] = "b"
	require.ErrorIs(t, c.Validate(), ErrDuplicateName)

	c = NewConfig([]string{"a"})
	c.FieldOrder = []string{"a", "a"}
	require.Error(t, c.Validate())
}
