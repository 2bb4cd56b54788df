package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// createTestStore opens a store in a temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blobs.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='blobs'").Scan(&name)
	if err != nil {
		t.Errorf("table blobs not found after idempotent opens: %v", err)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.verifyPragma(ctx, "journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma(ctx, "busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestOpen_SetsUserVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}

	var name string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_blobs_created'").Scan(&name)
	if err != nil {
		t.Errorf("migration index missing: %v", err)
	}
}

func TestOpen_MigratesVersionZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.db.Exec("DROP INDEX idx_blobs_created"); err != nil {
		t.Fatalf("drop index: %v", err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("reset user_version: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_blobs_created'").Scan(&name)
	if err != nil {
		t.Errorf("index not recreated by migration: %v", err)
	}
}

func TestClose_NilDB(t *testing.T) {
	var s Store
	if err := s.Close(); err != nil {
		t.Errorf("Close() on empty store = %v", err)
	}
}
