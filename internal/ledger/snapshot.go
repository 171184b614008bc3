package ledger

import (
	"fmt"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/catdog/internal/apperr"
	"github.com/starford/catdog/internal/models"
)

// RowError describes a ledger row skipped during load.
type RowError struct {
	Line     int
	Filename string
	Reason   string
}

func (e RowError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("line %d (%s): %s", e.Line, e.Filename, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e RowError) Unwrap() error { return apperr.ErrMalformedRow }

// Snapshot is the parsed content of a ledger: at most one entry per
// filename, in the order each filename first appeared.
type Snapshot struct {
	Entries  []models.LedgerEntry
	Warnings []RowError

	index map[string]int
}

func newSnapshot() *Snapshot {
	return &Snapshot{index: make(map[string]int)}
}

func (s *Snapshot) put(e models.LedgerEntry) {
	if i, ok := s.index[e.Filename]; ok {
		s.Entries[i] = e
		return
	}
	s.index[e.Filename] = len(s.Entries)
	s.Entries = append(s.Entries, e)
}

// Get returns the live entry for filename.
func (s *Snapshot) Get(filename string) (models.LedgerEntry, bool) {
	i, ok := s.index[filename]
	if !ok {
		return models.LedgerEntry{}, false
	}
	return s.Entries[i], true
}

// Has reports whether filename has a live entry.
func (s *Snapshot) Has(filename string) bool {
	_, ok := s.index[filename]
	return ok
}

// Len returns the number of live entries.
func (s *Snapshot) Len() int { return len(s.Entries) }

// ByFilename returns the entries keyed by filename.
func (s *Snapshot) ByFilename() map[string]models.LedgerEntry {
	out := make(map[string]models.LedgerEntry, len(s.Entries))
	for _, e := range s.Entries {
		out[e.Filename] = e
	}
	return out
}

type row struct {
	Filename  string
	Label     string
	Timestamp string
}

func (r *row) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Filename, validation.Required, validation.By(plainFilename)),
		validation.Field(&r.Label, validation.Required,
			validation.In(string(models.LabelCat), string(models.LabelDog))),
		validation.Field(&r.Timestamp, validation.Required, validation.Date(models.TimestampLayout)),
	)
}

func plainFilename(value interface{}) error {
	s, _ := value.(string)
	if filepath.Base(s) != s || s == "." || s == ".." {
		return fmt.Errorf("must be a bare file name")
	}
	return nil
}

func decodeRecord(rec []string) (models.LedgerEntry, error) {
	if len(rec) != len(Header) {
		return models.LedgerEntry{}, fmt.Errorf("expected %d fields, got %d", len(Header), len(rec))
	}
	r := &row{Filename: rec[0], Label: rec[1], Timestamp: rec[2]}
	if err := r.Validate(); err != nil {
		return models.LedgerEntry{}, err
	}
	ts, err := time.ParseInLocation(models.TimestampLayout, r.Timestamp, time.Local)
	if err != nil {
		return models.LedgerEntry{}, err
	}
	return models.LedgerEntry{
		Filename:  r.Filename,
		Label:     models.Label(r.Label),
		Timestamp: ts,
	}, nil
}

func validateEntry(e models.LedgerEntry) error {
	r := &row{Filename: e.Filename, Label: string(e.Label), Timestamp: e.FormatTimestamp()}
	return r.Validate()
}
