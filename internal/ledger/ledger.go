// Package ledger persists labeling decisions as an append-only CSV file.
//
// The file starts with the header row "filename,label,timestamp" (schema v1)
// followed by one row per live decision. Rows are only ever appended, except
// by Delete, which rewrites the file without the target filename.
package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/catdog/internal/apperr"
	"github.com/starford/catdog/internal/models"
	"github.com/starford/catdog/internal/storage"
)

// Header is the only accepted header row.
var Header = []string{"filename", "label", "timestamp"}

const utf8BOM = "\ufeff"

// Store reads and writes a ledger file.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore returns a Store for the ledger at path. The file need not exist.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the ledger file path.
func (s *Store) Path() string { return s.path }

// Exists reports whether the ledger file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load parses the ledger. A missing file yields an empty snapshot.
// Malformed rows are skipped and recorded in Snapshot.Warnings; a header
// that does not match the schema returns apperr.ErrSchema.
func (s *Store) Load() (*Snapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newSnapshot(), nil
		}
		return nil, fmt.Errorf("ledger: open %s: %w", s.path, err)
	}
	defer f.Close()

	snap, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("ledger: load %s: %w", s.path, err)
	}
	for _, w := range snap.Warnings {
		s.logger.Warn("ledger: skipping row",
			slog.String("path", s.path),
			slog.Int("line", w.Line),
			slog.String("error", w.Error()))
	}
	return snap, nil
}

// Parse reads a ledger from r.
func Parse(r io.Reader) (*Snapshot, error) {
	snap := newSnapshot()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return snap, nil
		}
		return nil, fmt.Errorf("%w: header: %v", apperr.ErrSchema, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	if !equalRecord(header, Header) {
		return nil, fmt.Errorf("%w: header %q, want %q",
			apperr.ErrSchema, strings.Join(header, ","), strings.Join(Header, ","))
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				snap.Warnings = append(snap.Warnings, RowError{Line: perr.Line, Reason: perr.Err.Error()})
				continue
			}
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		entry, err := decodeRecord(rec)
		if err != nil {
			re := RowError{Line: line, Reason: err.Error()}
			if len(rec) > 0 {
				re.Filename = rec[0]
			}
			snap.Warnings = append(snap.Warnings, re)
			continue
		}
		if snap.Has(entry.Filename) {
			snap.Warnings = append(snap.Warnings, RowError{
				Line:     line,
				Filename: entry.Filename,
				Reason:   "duplicate filename, later row wins",
			})
		}
		snap.put(entry)
	}
	return snap, nil
}

// Append writes one entry to the end of the ledger, creating the file with
// a header on first write. The write is fsynced before Append returns.
func (s *Store) Append(e models.LedgerEntry) error {
	if err := validateEntry(e); err != nil {
		return fmt.Errorf("ledger: append: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: ledger: mkdir: %w", apperr.ErrDurability, err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("%w: ledger: open for append: %w", apperr.ErrDurability, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: ledger: stat: %w", apperr.ErrDurability, err)
	}

	var buf bytes.Buffer
	if info.Size() == 0 {
		if err := writeRecords(&buf, Header); err != nil {
			return err
		}
	} else if !endsWithNewline(f, info.Size()) {
		// A hand-edited file may lack the final line terminator.
		buf.WriteByte('\n')
	}
	if err := writeRecords(&buf, encodeEntry(e)); err != nil {
		return err
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: ledger: write: %w", apperr.ErrDurability, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: ledger: fsync: %w", apperr.ErrDurability, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: ledger: close: %w", apperr.ErrDurability, err)
	}
	return nil
}

// Delete removes every row for filename and returns the live entry that was
// removed. When no row matches, the file is left untouched. When no data
// rows remain the file itself is removed. Rows belonging to other
// filenames, malformed ones included, are preserved byte for byte.
func (s *Store) Delete(filename string) (models.LedgerEntry, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.LedgerEntry{}, false, nil
		}
		return models.LedgerEntry{}, false, fmt.Errorf("ledger: read %s: %w", s.path, err)
	}

	lines := splitLines(data)
	if len(lines) == 0 {
		return models.LedgerEntry{}, false, nil
	}

	var (
		kept    [][]byte
		removed models.LedgerEntry
		found   bool
		matched bool
	)
	for _, line := range lines[1:] {
		rec, ok := parseLine(line)
		if ok && len(rec) > 0 && rec[0] == filename {
			matched = true
			if e, err := decodeRecord(rec); err == nil {
				removed, found = e, true
			}
			continue
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		kept = append(kept, line)
	}
	if !matched {
		return models.LedgerEntry{}, false, nil
	}

	if len(kept) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return models.LedgerEntry{}, false, fmt.Errorf("%w: ledger: remove empty ledger: %w", apperr.ErrDurability, err)
		}
		return removed, found, nil
	}

	var buf bytes.Buffer
	buf.Write(lines[0])
	buf.WriteByte('\n')
	for _, line := range kept {
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := storage.WriteFileAtomic(s.path, buf.Bytes()); err != nil {
		return models.LedgerEntry{}, false, fmt.Errorf("%w: ledger: rewrite: %w", apperr.ErrDurability, err)
	}
	return removed, found, nil
}

// WriteFile atomically writes entries as a complete ledger file at path.
func WriteFile(path string, entries []models.LedgerEntry) error {
	var buf bytes.Buffer
	if err := writeRecords(&buf, Header); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeRecords(&buf, encodeEntry(e)); err != nil {
			return err
		}
	}
	if err := storage.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("%w: ledger: write %s: %w", apperr.ErrDurability, path, err)
	}
	return nil
}

func writeRecords(w io.Writer, records ...[]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("ledger: encode: %w", err)
	}
	return nil
}

func encodeEntry(e models.LedgerEntry) []string {
	return []string{e.Filename, e.Label.String(), e.FormatTimestamp()}
}

func equalRecord(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func endsWithNewline(f *os.File, size int64) bool {
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return true
	}
	return last[0] == '\n'
}

// splitLines splits data on '\n' keeping any '\r' so rewritten rows keep
// their original terminators. A trailing empty segment is dropped.
func splitLines(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	lines := bytes.Split(data, []byte{'\n'})
	if len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func parseLine(line []byte) ([]string, bool) {
	cr := csv.NewReader(bytes.NewReader(bytes.TrimRight(line, "\r")))
	cr.FieldsPerRecord = -1
	rec, err := cr.Read()
	if err != nil {
		return nil, false
	}
	return rec, true
}
