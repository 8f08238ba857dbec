package testutil

import (
	"path/filepath"
	"testing"
	"verity/internal/store"
	"verity/internal/structures"
)

// NewTestStore opens a migrated sqlite store in a per-test temp directory.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()
	conf := &structures.Config{
		Store: structures.StoreConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(t.TempDir(), "test.db"),
		},
	}
	st, err := store.NewStore(conf, &MockLogger{})
	if err != nil {
		t.Fatalf("failed to open test store: %s", err)
	}
	return st
}
