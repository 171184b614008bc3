package journal

import (
	"fmt"
	"time"

	"github.com/starford/catdog/internal/apperr"
	"github.com/starford/catdog/internal/models"
)

// Op names the operation an intent protects.
type Op string

const (
	OpLabel Op = "label"
	OpUndo  Op = "undo"
)

// Intent is one journaled operation.
type Intent struct {
	ID        int64
	Session   string
	Op        Op
	Filename  string
	Label     models.Label // label written (OpLabel) or expected to be erased (OpUndo)
	CreatedAt time.Time
}

// Begin records an intent and returns its id.
func (db *DB) Begin(in Intent) (int64, error) {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}
	res, err := db.conn.Exec(
		`INSERT INTO intents (session, op, filename, label, created_at) VALUES (?, ?, ?, ?, ?)`,
		in.Session, string(in.Op), in.Filename, string(in.Label), in.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: journal: begin %s %s: %w", apperr.ErrDurability, in.Op, in.Filename, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal: last insert id: %w", err)
	}
	return id, nil
}

// Done marks an intent as completed.
func (db *DB) Done(id int64) error {
	res, err := db.conn.Exec(`UPDATE intents SET done_at = ? WHERE id = ? AND done_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("journal: done %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("journal: done %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// Pending returns unfinished intents in the order they were begun.
func (db *DB) Pending() ([]Intent, error) {
	rows, err := db.conn.Query(
		`SELECT id, session, op, filename, label, created_at FROM intents WHERE done_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("journal: pending: %w", err)
	}
	defer rows.Close()

	var out []Intent
	for rows.Next() {
		var (
			in    Intent
			op    string
			label string
		)
		if err := rows.Scan(&in.ID, &in.Session, &op, &in.Filename, &label, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		in.Op = Op(op)
		in.Label = models.Label(label)
		out = append(out, in)
	}
	return out, rows.Err()
}

// Superseded reports whether a label intent for the same file was begun
// after in. Such a decision postdates in and must not be undone by it.
func (db *DB) Superseded(in Intent) (bool, error) {
	var exists bool
	err := db.conn.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM intents WHERE filename = ? AND op = ? AND id > ?)`,
		in.Filename, string(OpLabel), in.ID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("journal: superseded %d: %w", in.ID, err)
	}
	return exists, nil
}

// Prune deletes completed intents older than cutoff and returns how many
// were removed.
func (db *DB) Prune(cutoff time.Time) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM intents WHERE done_at IS NOT NULL AND done_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	return res.RowsAffected()
}
