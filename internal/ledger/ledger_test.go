package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/catdog/internal/apperr"
	"github.com/starford/catdog/internal/models"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "data", "labels.csv"), nil)
}

func entry(name string, label models.Label) models.LedgerEntry {
	return models.LedgerEntry{
		Filename:  name,
		Label:     label,
		Timestamp: time.Date(2025, 6, 1, 10, 30, 0, 0, time.Local),
	}
}

func writeLedger(t *testing.T, s *Store, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readLedger(t *testing.T, s *Store) string {
	t.Helper()
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	return string(data)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := tempStore(t)
	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Len() != 0 || len(snap.Warnings) != 0 {
		t.Errorf("expected empty snapshot, got %d entries, %d warnings", snap.Len(), len(snap.Warnings))
	}
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	s := tempStore(t)
	if err := s.Append(entry("a.jpg", models.LabelCat)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(entry("b.jpg", models.LabelDog)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	want := "filename,label,timestamp\n" +
		"a.jpg,cat,2025-06-01 10:30:00\n" +
		"b.jpg,dog,2025-06-01 10:30:00\n"
	if got := readLedger(t, s); got != want {
		t.Errorf("ledger =\n%s\nwant\n%s", got, want)
	}
}

func TestAppendRejectsInvalidEntry(t *testing.T) {
	s := tempStore(t)
	cases := []models.LedgerEntry{
		entry("", models.LabelCat),
		entry("a.jpg", models.Label("bird")),
		entry("sub/a.jpg", models.LabelCat),
	}
	for _, e := range cases {
		if err := s.Append(e); err == nil {
			t.Errorf("Append(%+v) should fail", e)
		}
	}
	if s.Exists() {
		t.Error("rejected appends must not create the ledger")
	}
}

func TestAppendRepairsMissingTrailingNewline(t *testing.T) {
	s := tempStore(t)
	writeLedger(t, s, "filename,label,timestamp\na.jpg,cat,2025-06-01 10:30:00")
	if err := s.Append(entry("b.jpg", models.LabelDog)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Len() != 2 {
		t.Fatalf("len = %d, want 2 (warnings: %v)", snap.Len(), snap.Warnings)
	}
}

func TestLoad_NWellFormedRows(t *testing.T) {
	s := tempStore(t)
	const n = 25
	for i := 0; i < n; i++ {
		label := models.LabelCat
		if i%3 == 0 {
			label = models.LabelDog
		}
		if err := s.Append(entry(fmt.Sprintf("img%03d.jpg", i), label)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Len() != n {
		t.Errorf("len = %d, want %d", snap.Len(), n)
	}
	if got := len(snap.ByFilename()); got != n {
		t.Errorf("distinct filenames = %d, want %d", got, n)
	}
	e, ok := snap.Get("img003.jpg")
	if !ok || e.Label != models.LabelDog {
		t.Errorf("img003.jpg = %+v, %v", e, ok)
	}
}

func TestLoad_SkipsMalformedRows(t *testing.T) {
	s := tempStore(t)
	writeLedger(t, s, strings.Join([]string{
		"filename,label,timestamp",
		"a.jpg,cat,2025-06-01 10:30:00",
		"b.jpg,bird,2025-06-01 10:30:00",
		"c.jpg,dog",
		"d.jpg,dog,yesterday",
		"e.jpg,dog,2025-06-01 10:31:00",
		"",
	}, "\n"))

	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Len() != 2 {
		t.Errorf("len = %d, want 2", snap.Len())
	}
	if len(snap.Warnings) != 3 {
		t.Fatalf("warnings = %d, want 3: %v", len(snap.Warnings), snap.Warnings)
	}
	for _, w := range snap.Warnings {
		if !errors.Is(w, apperr.ErrMalformedRow) {
			t.Errorf("warning %v should wrap ErrMalformedRow", w)
		}
	}
	if snap.Warnings[0].Line != 3 || snap.Warnings[0].Filename != "b.jpg" {
		t.Errorf("first warning = %+v", snap.Warnings[0])
	}
}

func TestLoad_DuplicateLaterRowWins(t *testing.T) {
	s := tempStore(t)
	writeLedger(t, s, "filename,label,timestamp\na.jpg,cat,2025-06-01 10:30:00\na.jpg,dog,2025-06-01 10:31:00\n")
	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Len() != 1 {
		t.Fatalf("len = %d, want 1", snap.Len())
	}
	if e, _ := snap.Get("a.jpg"); e.Label != models.LabelDog {
		t.Errorf("label = %q, want dog", e.Label)
	}
	if len(snap.Warnings) != 1 {
		t.Errorf("warnings = %d, want 1", len(snap.Warnings))
	}
}

func TestLoad_BadHeaderIsSchemaError(t *testing.T) {
	s := tempStore(t)
	writeLedger(t, s, "Filename,Label,Timestamp\na.jpg,cat,2025-06-01 10:30:00\n")
	_, err := s.Load()
	if !errors.Is(err, apperr.ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
}

func TestLoad_AcceptsBOMAndCRLF(t *testing.T) {
	s := tempStore(t)
	writeLedger(t, s, "\ufefffilename,label,timestamp\r\na.jpg,cat,2025-06-01 10:30:00\r\n")
	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !snap.Has("a.jpg") {
		t.Error("a.jpg should be loaded")
	}
}

func TestDelete_RemovesRowAndReturnsEntry(t *testing.T) {
	s := tempStore(t)
	_ = s.Append(entry("a.jpg", models.LabelCat))
	_ = s.Append(entry("b.jpg", models.LabelDog))

	got, found, err := s.Delete("b.jpg")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !found || got.Label != models.LabelDog {
		t.Errorf("Delete = %+v, %v", got, found)
	}
	want := "filename,label,timestamp\na.jpg,cat,2025-06-01 10:30:00\n"
	if content := readLedger(t, s); content != want {
		t.Errorf("ledger =\n%s\nwant\n%s", content, want)
	}
}

func TestDelete_LastRowRemovesFile(t *testing.T) {
	s := tempStore(t)
	_ = s.Append(entry("a.jpg", models.LabelCat))

	if _, found, err := s.Delete("a.jpg"); err != nil || !found {
		t.Fatalf("Delete = %v, %v", found, err)
	}
	if s.Exists() {
		t.Error("empty ledger should be removed")
	}
}

func TestDelete_NotFoundLeavesFileUntouched(t *testing.T) {
	s := tempStore(t)
	original := "filename,label,timestamp\r\na.jpg,cat,2025-06-01 10:30:00\r\nbroken row\r\n"
	writeLedger(t, s, original)
	before, _ := os.Stat(s.Path())

	_, found, err := s.Delete("zzz.jpg")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if found {
		t.Error("found should be false")
	}
	if got := readLedger(t, s); got != original {
		t.Errorf("ledger changed:\n%q", got)
	}
	after, _ := os.Stat(s.Path())
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("ledger should not be rewritten")
	}
}

func TestDelete_PreservesOtherRowsVerbatim(t *testing.T) {
	s := tempStore(t)
	writeLedger(t, s, "filename,label,timestamp\r\na.jpg,cat,2025-06-01 10:30:00\r\nbroken row\r\nb.jpg,dog,2025-06-01 10:31:00\r\n")

	if _, found, err := s.Delete("a.jpg"); err != nil || !found {
		t.Fatalf("Delete = %v, %v", found, err)
	}
	want := "filename,label,timestamp\r\nbroken row\r\nb.jpg,dog,2025-06-01 10:31:00\r\n"
	if got := readLedger(t, s); got != want {
		t.Errorf("ledger = %q, want %q", got, want)
	}
}

func TestDelete_MissingLedger(t *testing.T) {
	s := tempStore(t)
	if _, found, err := s.Delete("a.jpg"); err != nil || found {
		t.Errorf("Delete on missing ledger = %v, %v", found, err)
	}
}

func TestWriteFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "train.csv")
	if err := WriteFile(p, []models.LedgerEntry{entry("a.jpg", models.LabelCat)}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	snap, err := NewStore(p, nil).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Len() != 1 {
		t.Errorf("len = %d, want 1", snap.Len())
	}
}
