package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/catdog/internal/checksum"
	"github.com/starford/catdog/internal/models"
)

// Kind classifies a disagreement between ledger and buckets.
type Kind string

const (
	// Missing: a ledger entry has no copy in its label's bucket.
	Missing Kind = "missing"
	// Misplaced: a copy sits in a bucket other than its ledger label's.
	Misplaced Kind = "misplaced"
	// Orphan: a bucket file has no ledger entry.
	Orphan Kind = "orphan"
	// Stale: a copy's content differs from its source.
	Stale Kind = "stale"
)

// Issue is one finding. Label is the bucket the file was found in or
// should be in, depending on Kind.
type Issue struct {
	Kind     Kind         `json:"kind"`
	Filename string       `json:"filename"`
	Label    models.Label `json:"label"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Kind, i.Filename, i.Label)
}

// Report is the outcome of Verify.
type Report struct {
	Entries int     `json:"entries"`
	Issues  []Issue `json:"issues"`
}

// Clean reports whether ledger and buckets agree.
func (r *Report) Clean() bool { return len(r.Issues) == 0 }

// Count returns the number of issues of kind k.
func (r *Report) Count(k Kind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == k {
			n++
		}
	}
	return n
}

// Verify checks every ledger entry against the buckets and every bucket
// file against the ledger. Copies are compared to their source by SHA-256
// when the source is still present.
func (r *Reconciler) Verify(ctx context.Context) (*Report, error) {
	snap, err := r.ledger.Load()
	if err != nil {
		return nil, err
	}
	rep := &Report{Entries: snap.Len()}

	for _, e := range snap.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		has, err := r.buckets.Has(e.Filename, e.Label)
		if err != nil {
			return nil, err
		}
		if !has {
			rep.Issues = append(rep.Issues, Issue{Kind: Missing, Filename: e.Filename, Label: e.Label})
			continue
		}
		stale, err := r.stale(e)
		if err != nil {
			return nil, err
		}
		if stale {
			rep.Issues = append(rep.Issues, Issue{Kind: Stale, Filename: e.Filename, Label: e.Label})
		}
	}

	for _, l := range models.Labels() {
		files, err := r.buckets.List(l)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			e, ok := snap.Get(f.Name)
			switch {
			case !ok:
				rep.Issues = append(rep.Issues, Issue{Kind: Orphan, Filename: f.Name, Label: l})
			case e.Label != l:
				rep.Issues = append(rep.Issues, Issue{Kind: Misplaced, Filename: f.Name, Label: l})
			}
		}
	}

	r.logger.Info("reconcile: verified",
		slog.Int("entries", rep.Entries),
		slog.Int("issues", len(rep.Issues)))
	return rep, nil
}

func (r *Reconciler) stale(e models.LedgerEntry) (bool, error) {
	src := models.NewItem(r.source, e.Filename).Path
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	dst, err := r.buckets.Path(e.Filename, e.Label)
	if err != nil {
		return false, err
	}
	same, err := checksum.Same(src, dst)
	if err != nil {
		return false, err
	}
	return !same, nil
}

// Repair fixes the issues in rep: missing and stale copies are placed
// again from the source, misplaced and orphaned copies are removed. It
// returns how many issues were fixed.
func (r *Reconciler) Repair(ctx context.Context, rep *Report) (int, error) {
	snap, err := r.ledger.Load()
	if err != nil {
		return 0, err
	}
	var (
		fixed int
		errs  []error
	)
	for _, is := range rep.Issues {
		var err error
		switch is.Kind {
		case Missing, Stale:
			e, ok := snap.Get(is.Filename)
			if !ok {
				continue
			}
			err = r.place(ctx, e)
		case Misplaced, Orphan:
			err = r.buckets.Remove(ctx, is.Filename, is.Label)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("reconcile: repair %s: %w", is, err))
			continue
		}
		r.logger.Info("reconcile: repaired", slog.String("issue", is.String()))
		fixed++
	}
	return fixed, errors.Join(errs...)
}
