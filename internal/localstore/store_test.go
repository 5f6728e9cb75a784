package localstore

import (
	"testing"

	"github.com/ovida/shopcore/internal/crypto"
)

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	store, err := Open(dir, crypto.DeriveKey("test-machine"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store
}

func TestSetGet(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	if err := store.Set(NamespaceOffline, "setting_theme", "dark"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok := store.Get(NamespaceOffline, "setting_theme")
	if !ok {
		t.Fatal("expected value to be present")
	}
	if value != "dark" {
		t.Errorf("expected %q, got %q", "dark", value)
	}
}

func TestGetMiss(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	if _, ok := store.Get(NamespaceOffline, "nope"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestSetOverwrites(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	store.Set(NamespaceOffline, "k", "first")
	store.Set(NamespaceOffline, "k", "second")

	value, _ := store.Get(NamespaceOffline, "k")
	if value != "second" {
		t.Errorf("expected overwrite to win, got %q", value)
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	store.Set(NamespaceOffline, "k", "v")
	if err := store.Delete(NamespaceOffline, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := store.Get(NamespaceOffline, "k"); ok {
		t.Error("expected key to be gone after Delete")
	}

	// Deleting a missing key is not an error.
	if err := store.Delete(NamespaceOffline, "k"); err != nil {
		t.Errorf("Delete of missing key should be a no-op, got %v", err)
	}
}

func TestNamespacesAreSeparate(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	store.Set("a", "k", "in-a")
	store.Set("b", "k", "in-b")

	va, _ := store.Get("a", "k")
	vb, _ := store.Get("b", "k")
	if va != "in-a" || vb != "in-b" {
		t.Errorf("namespace bleed: got %q / %q", va, vb)
	}
}

func TestClearAll(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	store.Set("a", "k1", "v1")
	store.Set("b", "k2", "v2")

	if err := store.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	if _, ok := store.Get("a", "k1"); ok {
		t.Error("expected namespace a to be wiped")
	}
	if _, ok := store.Get("b", "k2"); ok {
		t.Error("expected namespace b to be wiped")
	}
}

// TestSurvivesReopen simulates a process restart: state written before Close
// must be readable from a fresh Store over the same directory.
func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store := openTestStore(t, dir)
	store.Set(NamespaceOffline, "offline_cart", `{"items":[]}`)
	store.Close()

	reopened := openTestStore(t, dir)
	defer reopened.Close()

	value, ok := reopened.Get(NamespaceOffline, "offline_cart")
	if !ok {
		t.Fatal("expected value to survive reopen")
	}
	if value != `{"items":[]}` {
		t.Errorf("unexpected value after reopen: %q", value)
	}
}

// TestWrongKeyReadsAsMiss: a store opened with a different encryption key
// must treat existing values as a miss, never surface garbage or an error.
func TestWrongKeyReadsAsMiss(t *testing.T) {
	dir := t.TempDir()

	store := openTestStore(t, dir)
	store.Set(NamespaceOffline, "k", "secret")
	store.Close()

	other, err := Open(dir, crypto.DeriveKey("other-machine"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer other.Close()

	if _, ok := other.Get(NamespaceOffline, "k"); ok {
		t.Error("expected decrypt failure to read as miss")
	}
}

func TestOpenEmptyKey(t *testing.T) {
	if _, err := Open(t.TempDir(), nil); err == nil {
		t.Error("expected error for empty encryption key")
	}
}
