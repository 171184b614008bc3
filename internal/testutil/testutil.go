// Package testutil provides shared test helpers for image directories and journals.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/catdog/internal/journal"
)

// TestJournal creates a temporary journal database that is automatically cleaned up.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	db, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ImageDir creates a temporary directory holding one small file per name.
// Each file's content is its own name so copies can be told apart.
func ImageDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
