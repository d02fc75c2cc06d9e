package sqlite

import (
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestNewRecordsSchemaVersion(t *testing.T) {
	store := setupTestDB(t)

	version, err := store.GetMetadata(t.Context(), "schema_version")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("expected schema version %s, got %s", SchemaVersion, version)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	store := setupTestDB(t)
	ctx := t.Context()

	if err := store.SetMetadata(ctx, "last_tick", "2026-08-30"); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	value, err := store.GetMetadata(ctx, "last_tick")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if value != "2026-08-30" {
		t.Errorf("expected 2026-08-30, got %s", value)
	}

	if _, err := store.GetMetadata(ctx, "missing"); err == nil {
		t.Error("expected error for missing metadata key")
	}
}
