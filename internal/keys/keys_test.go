package keys

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewStore(t *testing.T) {
	t.Setenv("ROOMEDIT_CONFIG_DIR", t.TempDir())
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store == nil {
		t.Fatal("NewStore() returned nil")
	}
	if store.Path() == "" {
		t.Error("Store.Path() should not be empty")
	}
}

func TestGetConfigDir_Override(t *testing.T) {
	t.Setenv("ROOMEDIT_CONFIG_DIR", "/tmp/roomedit-test")
	dir, err := getConfigDir()
	if err != nil {
		t.Fatalf("getConfigDir() error = %v", err)
	}
	if dir != "/tmp/roomedit-test" {
		t.Errorf("getConfigDir() = %v, want override", dir)
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStoreAt(tmpDir)

	if err := store.Set("gemini", "AIza-test-key-12345"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(tmpDir, "keys.json"))
	if err != nil {
		t.Fatalf("keys.json not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("keys.json permissions = %v, want 0600", info.Mode().Perm())
	}

	key, err := store.Get("gemini")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "AIza-test-key-12345" {
		t.Errorf("Get() = %v, want AIza-test-key-12345", key)
	}

	key, err = store.Get("other")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "" {
		t.Errorf("Get(non-existent) = %v, want empty string", key)
	}

	providers, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(providers) != 1 || providers[0] != "gemini" {
		t.Errorf("List() = %v, want [gemini]", providers)
	}

	if err := store.Delete("gemini"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if key, _ := store.Get("gemini"); key != "" {
		t.Errorf("Get() after Delete() = %v, want empty string", key)
	}

	if err := store.Delete("other"); err == nil {
		t.Error("Delete(non-existent) should return error")
	}
}

func TestStore_SetEmpty(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	if err := store.Set("gemini", "   "); err == nil {
		t.Error("Set() with blank key should return error")
	}
}

func TestStore_EmptyDir(t *testing.T) {
	store := NewStoreAt(t.TempDir())

	key, err := store.Get("gemini")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "" {
		t.Errorf("Get() from non-existent file = %v, want empty string", key)
	}

	providers, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(providers) != 0 {
		t.Errorf("List() from non-existent file = %v, want empty slice", providers)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "keys.json"), []byte("{nope"), 0600)

	if _, err := NewStoreAt(tmpDir).Get("gemini"); err == nil {
		t.Error("Get() on corrupt keys.json should return error")
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"AIza1234567890abcd", "AIza**********abcd"},
		{"short", "*****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestStore_Resolve(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	t.Setenv(EnvVar, "env-key")

	key, source, err := store.Resolve("flag-key", DefaultProvider, EnvVar)
	if err != nil || key != "flag-key" || source != "command-line flag" {
		t.Errorf("Resolve(explicit) = %v, %v, %v", key, source, err)
	}

	key, source, err = store.Resolve("", DefaultProvider, EnvVar)
	if err != nil || key != "env-key" || !strings.Contains(source, EnvVar) {
		t.Errorf("Resolve(env) = %v, %v, %v", key, source, err)
	}

	store.Set(DefaultProvider, "stored-key")
	key, source, err = store.Resolve("", DefaultProvider, EnvVar)
	if err != nil || key != "stored-key" || !strings.Contains(source, "stored key") {
		t.Errorf("Resolve(stored) = %v, %v, %v", key, source, err)
	}

	t.Setenv(EnvVar, "")
	if _, _, err := NewStoreAt(t.TempDir()).Resolve("", DefaultProvider, EnvVar); err == nil {
		t.Error("Resolve() with no key should return error")
	}
}

func TestStore_MultipleProviders(t *testing.T) {
	store := NewStoreAt(t.TempDir())

	store.Set("gemini", "gemini-key")
	store.Set("vertex", "vertex-key")

	providers, _ := store.List()
	if len(providers) != 2 {
		t.Errorf("List() returned %d providers, want 2", len(providers))
	}

	store.Delete("vertex")
	if key, _ := store.Get("gemini"); key != "gemini-key" {
		t.Errorf("Get(gemini) after deleting vertex = %v, want gemini-key", key)
	}
}
