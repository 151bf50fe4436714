// Package testutil provides shared test helpers for setting up ledgers
// and index databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jkleiven/rollcall/internal/index"
	"github.com/jkleiven/rollcall/internal/ledger"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "rollcall-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a ledger store in a temporary directory. The ledger
// file does not exist until the first write.
func TestStore(t *testing.T) *ledger.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := ledger.NewStore(filepath.Join(dir, "Attendance_Log.csv"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// WriteLedger puts raw CSV content at the store's path.
func WriteLedger(t *testing.T, store *ledger.Store, content string) {
	t.Helper()
	if err := os.WriteFile(store.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
