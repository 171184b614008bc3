package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/catdog/internal/apperr"
	"github.com/starford/catdog/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBeginDonePending(t *testing.T) {
	db := testDB(t)

	id1, err := db.Begin(Intent{Session: "s1", Op: OpLabel, Filename: "a.jpg", Label: models.LabelCat})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	id2, err := db.Begin(Intent{Session: "s1", Op: OpUndo, Filename: "a.jpg"})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	pending, err := db.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != id1 || pending[1].ID != id2 {
		t.Fatalf("pending = %+v", pending)
	}
	if pending[0].Label != models.LabelCat || pending[0].Op != OpLabel {
		t.Errorf("first intent = %+v", pending[0])
	}

	if err := db.Done(id1); err != nil {
		t.Fatalf("Done: %v", err)
	}
	pending, _ = db.Pending()
	if len(pending) != 1 || pending[0].ID != id2 {
		t.Errorf("pending after Done = %+v", pending)
	}
}

func TestDoneTwiceIsNotFound(t *testing.T) {
	db := testDB(t)
	id, _ := db.Begin(Intent{Session: "s", Op: OpLabel, Filename: "a.jpg", Label: models.LabelDog})
	if err := db.Done(id); err != nil {
		t.Fatalf("Done: %v", err)
	}
	if err := db.Done(id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Done = %v, want ErrNotFound", err)
	}
}

func TestSuperseded(t *testing.T) {
	db := testDB(t)
	undoID, _ := db.Begin(Intent{Session: "s", Op: OpUndo, Filename: "a.jpg", Label: models.LabelCat})
	undo := Intent{ID: undoID, Op: OpUndo, Filename: "a.jpg"}

	got, err := db.Superseded(undo)
	if err != nil {
		t.Fatalf("Superseded: %v", err)
	}
	if got {
		t.Error("no later label yet, want false")
	}

	_, _ = db.Begin(Intent{Session: "s", Op: OpLabel, Filename: "b.jpg", Label: models.LabelDog})
	_, _ = db.Begin(Intent{Session: "s", Op: OpUndo, Filename: "a.jpg"})
	if got, _ := db.Superseded(undo); got {
		t.Error("other files and later undos must not supersede")
	}

	later, _ := db.Begin(Intent{Session: "s", Op: OpLabel, Filename: "a.jpg", Label: models.LabelDog})
	_ = db.Done(later)
	if got, _ := db.Superseded(undo); !got {
		t.Error("a later label of the same file should supersede, done or not")
	}
}

func TestPendingSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Begin(Intent{Session: "s", Op: OpLabel, Filename: "a.jpg", Label: models.LabelCat}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	pending, err := db.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Filename != "a.jpg" {
		t.Errorf("pending = %+v", pending)
	}
}

func TestPrune(t *testing.T) {
	db := testDB(t)
	done, _ := db.Begin(Intent{Session: "s", Op: OpLabel, Filename: "a.jpg", Label: models.LabelCat})
	_, _ = db.Begin(Intent{Session: "s", Op: OpLabel, Filename: "b.jpg", Label: models.LabelCat})
	_ = db.Done(done)

	n, err := db.Prune(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}
	pending, _ := db.Pending()
	if len(pending) != 1 {
		t.Errorf("pending intents must survive prune, got %d", len(pending))
	}
}
