package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, dir, name, data string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.json", `{
		"key": "agent:main:telegram:direct:123",
		"sessionId": "s1",
		"lastChannel": "telegram",
		"lastTo": "123"
	}`)
	write(t, dir, "b.json", `{"key": "agent:main:main", "sessionId": "s2"}`)
	write(t, dir, "corrupt.json", `{nope`)
	write(t, dir, "keyless.json", `{"sessionId": "s3"}`)
	write(t, dir, "notes.txt", `ignored`)

	store, err := NewLoader(dir).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(store) != 2 {
		t.Fatalf("loaded %d entries, want 2: %v", len(store), store)
	}
	e, ok := store.Get("agent:main:telegram:direct:123")
	if !ok {
		t.Fatal("telegram session missing")
	}
	if e.LastChannel != "telegram" || e.LastTo != "123" {
		t.Errorf("entry = %+v", e)
	}
}

// TestLoad_MissingDir verifies a new deployment with no store yet resolves
// against an empty snapshot instead of failing.
func TestLoad_MissingDir(t *testing.T) {
	store, err := NewLoader(filepath.Join(t.TempDir(), "nope")).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(store) != 0 {
		t.Errorf("snapshot not empty: %v", store)
	}
}
