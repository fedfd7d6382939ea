package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phobologic/declorder/internal/model"
)

func TestKey(t *testing.T) {
	t.Parallel()

	base := Key([]byte("const a = 1;"), "typescript", "opts")
	if len(base) != 64 {
		t.Fatalf("key length = %d, want 64", len(base))
	}
	if Key([]byte("const a = 1;"), "typescript", "opts") != base {
		t.Error("key is not deterministic")
	}

	tests := []struct {
		name        string
		content     string
		language    string
		fingerprint string
	}{
		{"content", "const a = 2;", "typescript", "opts"},
		{"language", "const a = 1;", "javascript", "opts"},
		{"fingerprint", "const a = 1;", "typescript", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if Key([]byte(tt.content), tt.language, tt.fingerprint) == base {
				t.Errorf("changing %s did not change the key", tt.name)
			}
		})
	}
}

func TestGetPut(t *testing.T) {
	t.Parallel()

	c, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Dirty() {
		t.Error("new cache should not be dirty")
	}

	c.Put("a", Entry{Declarations: 1})
	c.Put("b", Entry{Declarations: 2})
	c.Put("c", Entry{Declarations: 3})

	if !c.Dirty() {
		t.Error("cache should be dirty after Put")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if e, ok := c.Get("c"); !ok || e.Declarations != 3 {
		t.Errorf("Get(c) = %+v, %v", e, ok)
	}
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	c, err := New(0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v := model.Violation{
		File:     "a.ts",
		Line:     3,
		Name:     "main",
		Category: model.PrivateFunctions,
		Reason:   model.ReasonDependency,
		Expected: 0,
		Actual:   1,
		Before:   "helper",
	}
	c.Put("k1", Entry{Declarations: 2, Violations: []model.Violation{v}})
	c.Put("k2", Entry{Declarations: 5})

	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c.Dirty() {
		t.Error("cache should be clean after Save")
	}

	loaded, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("loaded %d entries, want 2", loaded.Len())
	}
	e, ok := loaded.Get("k1")
	if !ok || e.Declarations != 2 || len(e.Violations) != 1 || e.Violations[0] != v {
		t.Errorf("Get(k1) = %+v, %v", e, ok)
	}
	if loaded.Dirty() {
		t.Error("loaded cache should not be dirty")
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	c, err := Load(filepath.Join(t.TempDir(), "nope.json"), 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestLoadCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, 0)
	if err == nil {
		t.Fatal("expected an error for a corrupt cache")
	}
	if c == nil || c.Len() != 0 {
		t.Error("a usable empty cache should still be returned")
	}
}

func TestLoadOtherVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	data := `{"version":99,"entries":[{"key":"k","entry":{"declarations":1}}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}
