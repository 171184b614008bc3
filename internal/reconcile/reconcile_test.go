package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/catdog/internal/bucket"
	"github.com/starford/catdog/internal/journal"
	"github.com/starford/catdog/internal/ledger"
	"github.com/starford/catdog/internal/models"
	"github.com/starford/catdog/internal/session"
	"github.com/starford/catdog/internal/testutil"
)

type env struct {
	src     string
	ledger  *ledger.Store
	buckets *bucket.Materializer
	r       *Reconciler
}

func newEnv(t *testing.T, names ...string) *env {
	t.Helper()
	src := testutil.ImageDir(t, names...)
	out := t.TempDir()
	b, err := bucket.New(map[models.Label]string{
		models.LabelCat: filepath.Join(out, "cats"),
		models.LabelDog: filepath.Join(out, "dogs"),
	}, bucket.WithRetries(0))
	if err != nil {
		t.Fatal(err)
	}
	l := ledger.NewStore(filepath.Join(out, "labels.csv"), nil)
	return &env{src: src, ledger: l, buckets: b, r: New(l, b, src, nil)}
}

func (e *env) label(t *testing.T, name string, l models.Label, place bool) {
	t.Helper()
	if err := e.ledger.Append(models.LedgerEntry{Filename: name, Label: l, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if place {
		if err := e.buckets.Place(context.Background(), models.NewItem(e.src, name), l); err != nil {
			t.Fatal(err)
		}
	}
}

func (e *env) has(t *testing.T, name string, l models.Label) bool {
	t.Helper()
	ok, err := e.buckets.Has(name, l)
	if err != nil {
		t.Fatal(err)
	}
	return ok
}

func TestRecover_LabelWithLedgerRowPlacesCopy(t *testing.T) {
	e := newEnv(t, "a.jpg")
	j := testutil.TestJournal(t)
	_, _ = j.Begin(journal.Intent{Session: "s", Op: journal.OpLabel, Filename: "a.jpg", Label: models.LabelCat})
	e.label(t, "a.jpg", models.LabelCat, false)

	n, err := e.r.Recover(context.Background(), j)
	if err != nil || n != 1 {
		t.Fatalf("Recover = %d, %v", n, err)
	}
	if !e.has(t, "a.jpg", models.LabelCat) {
		t.Error("copy should be placed")
	}
	if pending, _ := j.Pending(); len(pending) != 0 {
		t.Errorf("pending = %v", pending)
	}
}

func TestRecover_LabelWithoutLedgerRowRemovesCopies(t *testing.T) {
	e := newEnv(t, "a.jpg")
	j := testutil.TestJournal(t)
	_, _ = j.Begin(journal.Intent{Session: "s", Op: journal.OpLabel, Filename: "a.jpg", Label: models.LabelDog})
	_ = e.buckets.Place(context.Background(), models.NewItem(e.src, "a.jpg"), models.LabelDog)

	if _, err := e.r.Recover(context.Background(), j); err != nil {
		t.Fatal(err)
	}
	if e.has(t, "a.jpg", models.LabelDog) {
		t.Error("stray copy should be removed")
	}
}

func TestRecover_UndoCompletes(t *testing.T) {
	e := newEnv(t, "a.jpg", "b.jpg")
	j := testutil.TestJournal(t)
	e.label(t, "a.jpg", models.LabelCat, true)
	e.label(t, "b.jpg", models.LabelDog, true)
	_, _ = j.Begin(journal.Intent{Session: "s", Op: journal.OpUndo, Filename: "b.jpg"})

	if _, err := e.r.Recover(context.Background(), j); err != nil {
		t.Fatal(err)
	}
	snap, _ := e.ledger.Load()
	if snap.Has("b.jpg") || !snap.Has("a.jpg") {
		t.Errorf("ledger entries = %v", snap.Entries)
	}
	if e.has(t, "b.jpg", models.LabelDog) {
		t.Error("b.jpg copy should be gone")
	}
	if !e.has(t, "a.jpg", models.LabelCat) {
		t.Error("a.jpg copy should remain")
	}
}

// failingDelete makes every ledger Delete fail without touching the file.
type failingDelete struct {
	*ledger.Store
}

func (failingDelete) Delete(string) (models.LedgerEntry, bool, error) {
	return models.LedgerEntry{}, false, errors.New("disk full")
}

func TestRestart_FailedUndoKeepsLabel(t *testing.T) {
	e := newEnv(t, "a.jpg", "b.jpg")
	j := testutil.TestJournal(t)
	ctx := context.Background()

	c := session.New(items(e.src, "a.jpg", "b.jpg"), e.ledger, e.buckets, session.WithJournal(j))
	if err := c.Label(ctx, models.LabelCat); err != nil {
		t.Fatal(err)
	}

	failing := session.New(items(e.src, "a.jpg", "b.jpg"), failingDelete{e.ledger}, e.buckets,
		session.WithJournal(j))
	_ = failing.Skip()
	if err := failing.Undo(ctx); err == nil {
		t.Fatal("undo should fail")
	}
	if err := c.Label(ctx, models.LabelDog); err != nil {
		t.Fatal(err)
	}

	if _, err := e.r.Recover(ctx, j); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	snap, _ := e.ledger.Load()
	if got, ok := snap.Get("a.jpg"); !ok || got.Label != models.LabelCat {
		t.Errorf("a.jpg = %+v, %v; label must survive restart", got, ok)
	}
	if snap.Len() != 2 {
		t.Errorf("entries = %d, want 2", snap.Len())
	}
	if !e.has(t, "a.jpg", models.LabelCat) {
		t.Error("a.jpg copy should remain")
	}
}

func TestRecover_SupersededUndoKeepsRelabel(t *testing.T) {
	cases := map[string]models.Label{
		"same label":      models.LabelCat,
		"different label": models.LabelDog,
	}
	for name, relabel := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t, "a.jpg")
			j := testutil.TestJournal(t)
			e.label(t, "a.jpg", models.LabelCat, true)

			// Undo interrupted after the row was deleted.
			_, _ = j.Begin(journal.Intent{Session: "s", Op: journal.OpUndo, Filename: "a.jpg", Label: models.LabelCat})
			if _, _, err := e.ledger.Delete("a.jpg"); err != nil {
				t.Fatal(err)
			}

			// A later session labels the file again.
			id, _ := j.Begin(journal.Intent{Session: "t", Op: journal.OpLabel, Filename: "a.jpg", Label: relabel})
			e.label(t, "a.jpg", relabel, true)
			_ = j.Done(id)

			if _, err := e.r.Recover(context.Background(), j); err != nil {
				t.Fatalf("Recover: %v", err)
			}
			snap, _ := e.ledger.Load()
			if got, ok := snap.Get("a.jpg"); !ok || got.Label != relabel {
				t.Fatalf("a.jpg = %+v, %v; want %s", got, ok, relabel)
			}
			if !e.has(t, "a.jpg", relabel) {
				t.Errorf("%s copy should exist", relabel)
			}
			for _, l := range models.Labels() {
				if l != relabel && e.has(t, "a.jpg", l) {
					t.Errorf("stray %s copy", l)
				}
			}
			if pending, _ := j.Pending(); len(pending) != 0 {
				t.Errorf("pending = %v", pending)
			}
		})
	}
}

func items(dir string, names ...string) []models.Item {
	out := make([]models.Item, 0, len(names))
	for _, n := range names {
		out = append(out, models.NewItem(dir, n))
	}
	return out
}

func TestRecover_MissingSourceStaysPending(t *testing.T) {
	e := newEnv(t)
	j := testutil.TestJournal(t)
	_, _ = j.Begin(journal.Intent{Session: "s", Op: journal.OpLabel, Filename: "gone.jpg", Label: models.LabelCat})
	e.label(t, "gone.jpg", models.LabelCat, false)

	n, err := e.r.Recover(context.Background(), j)
	if err == nil || n != 0 {
		t.Fatalf("Recover = %d, %v", n, err)
	}
	if pending, _ := j.Pending(); len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}
}

func TestVerify_CleanTree(t *testing.T) {
	e := newEnv(t, "a.jpg", "b.jpg")
	e.label(t, "a.jpg", models.LabelCat, true)
	e.label(t, "b.jpg", models.LabelDog, true)

	rep, err := e.r.Verify(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Clean() || rep.Entries != 2 {
		t.Errorf("report = %+v", rep)
	}
}

func TestVerifyAndRepair(t *testing.T) {
	e := newEnv(t, "missing.jpg", "misplaced.jpg", "stale.jpg", "orphan.jpg")
	ctx := context.Background()

	e.label(t, "missing.jpg", models.LabelCat, false)
	e.label(t, "misplaced.jpg", models.LabelCat, true)
	_ = e.buckets.Place(ctx, models.NewItem(e.src, "misplaced.jpg"), models.LabelDog)
	e.label(t, "stale.jpg", models.LabelDog, true)
	_ = e.buckets.Place(ctx, models.NewItem(e.src, "orphan.jpg"), models.LabelCat)

	stalePath, _ := e.buckets.Path("stale.jpg", models.LabelDog)
	if err := os.WriteFile(stalePath, []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}

	rep, err := e.r.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for k, want := range map[Kind]int{Missing: 1, Misplaced: 1, Stale: 1, Orphan: 1} {
		if got := rep.Count(k); got != want {
			t.Errorf("%s = %d, want %d (%v)", k, got, want, rep.Issues)
		}
	}

	fixed, err := e.r.Repair(ctx, rep)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if fixed != 4 {
		t.Errorf("fixed = %d, want 4", fixed)
	}
	after, err := e.r.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !after.Clean() {
		t.Errorf("issues after repair: %v", after.Issues)
	}
}
