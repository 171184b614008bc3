// Package reconcile restores agreement between the ledger and the buckets.
//
// Recover replays journal intents left pending by an interrupted session.
// Verify compares the ledger with the bucket contents and Repair fixes
// whatever Verify found.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/catdog/internal/journal"
	"github.com/starford/catdog/internal/ledger"
	"github.com/starford/catdog/internal/models"
	"github.com/starford/catdog/internal/storage"
)

// Journal lists and closes intents.
type Journal interface {
	Pending() ([]journal.Intent, error)
	Superseded(in journal.Intent) (bool, error)
	Done(id int64) error
}

// Ledger is the view of the ledger store used during reconciliation.
type Ledger interface {
	Load() (*ledger.Snapshot, error)
	Delete(filename string) (models.LedgerEntry, bool, error)
}

// Buckets is the view of the bucket materializer used during reconciliation.
type Buckets interface {
	Place(ctx context.Context, item models.Item, label models.Label) error
	Remove(ctx context.Context, filename string, label models.Label) error
	RemoveAll(ctx context.Context, filename string) error
	Has(filename string, label models.Label) (bool, error)
	List(label models.Label) ([]storage.FileInfo, error)
	Path(filename string, label models.Label) (string, error)
}

// Reconciler ties the ledger, buckets and source directory together.
type Reconciler struct {
	ledger  Ledger
	buckets Buckets
	source  string
	logger  *slog.Logger
}

// New returns a Reconciler. source is the directory labeled items are
// copied from.
func New(l Ledger, b Buckets, source string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{ledger: l, buckets: b, source: source, logger: logger}
}

// Recover resolves every pending intent in the order it was begun and
// returns how many were resolved. An intent that cannot be resolved stays
// pending and its error is returned alongside the others.
func (r *Reconciler) Recover(ctx context.Context, j Journal) (int, error) {
	pending, err := j.Pending()
	if err != nil {
		return 0, err
	}
	var (
		resolved int
		errs     []error
	)
	for _, in := range pending {
		if err := r.resolve(ctx, j, in); err != nil {
			r.logger.Error("reconcile: intent unresolved",
				slog.Int64("intent", in.ID),
				slog.String("op", string(in.Op)),
				slog.String("filename", in.Filename),
				slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		if err := j.Done(in.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		r.logger.Info("reconcile: intent resolved",
			slog.Int64("intent", in.ID),
			slog.String("op", string(in.Op)),
			slog.String("filename", in.Filename))
		resolved++
	}
	return resolved, errors.Join(errs...)
}

func (r *Reconciler) resolve(ctx context.Context, j Journal, in journal.Intent) error {
	snap, err := r.ledger.Load()
	if err != nil {
		return err
	}
	e, ok := snap.Get(in.Filename)

	switch in.Op {
	case journal.OpLabel:
		if !ok {
			return r.buckets.RemoveAll(ctx, in.Filename)
		}
		return r.settle(ctx, e)
	case journal.OpUndo:
		if ok {
			keep, err := r.outlives(j, in, e)
			if err != nil {
				return err
			}
			if keep {
				r.logger.Info("reconcile: undo superseded, keeping ledger entry",
					slog.Int64("intent", in.ID),
					slog.String("filename", in.Filename),
					slog.String("label", e.Label.String()))
				return r.settle(ctx, e)
			}
			if _, _, err := r.ledger.Delete(in.Filename); err != nil {
				return err
			}
		}
		return r.buckets.RemoveAll(ctx, in.Filename)
	}
	return fmt.Errorf("reconcile: unknown intent op %q", in.Op)
}

// outlives reports whether ledger entry e was written after undo intent in
// began, either by a later label intent or with a different label than the
// one the undo meant to erase.
func (r *Reconciler) outlives(j Journal, in journal.Intent, e models.LedgerEntry) (bool, error) {
	if in.Label != "" && in.Label != e.Label {
		return true, nil
	}
	return j.Superseded(in)
}

// settle makes the buckets hold exactly one copy of e, in its label's bucket.
func (r *Reconciler) settle(ctx context.Context, e models.LedgerEntry) error {
	for _, l := range models.Labels() {
		if l == e.Label {
			continue
		}
		if err := r.buckets.Remove(ctx, e.Filename, l); err != nil {
			return err
		}
	}
	has, err := r.buckets.Has(e.Filename, e.Label)
	if err != nil || has {
		return err
	}
	return r.place(ctx, e)
}

func (r *Reconciler) place(ctx context.Context, e models.LedgerEntry) error {
	item := models.NewItem(r.source, e.Filename)
	if _, err := os.Stat(item.Path); err != nil {
		return fmt.Errorf("reconcile: source for %s: %w", e.Filename, err)
	}
	return r.buckets.Place(ctx, item, e.Label)
}
