package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/catdog/internal/reconcile"
)

// Verify compares the ledger with the buckets and prints every issue.
// With repair set, the issues are fixed as well.
func Verify(ctx context.Context, repair bool, opts ...Option) error {
	app := newApplication(opts)
	if err := app.validate(); err != nil {
		return err
	}
	st, err := openStores(app.config, app.logger)
	if err != nil {
		return err
	}
	return verify(ctx, st, repair, app.logger, app.out)
}

func verify(ctx context.Context, st *stores, repair bool, logger *slog.Logger, out io.Writer) error {
	rep, err := st.reconcile.Verify(ctx)
	if err != nil {
		return err
	}
	if out != nil {
		printReport(out, rep)
	}
	if rep.Clean() || !repair {
		return nil
	}
	fixed, err := st.reconcile.Repair(ctx, rep)
	logger.Info("repair finished", slog.Int("fixed", fixed), slog.Int("issues", len(rep.Issues)))
	if out != nil {
		fmt.Fprintf(out, "repaired %d of %d issues\n", fixed, len(rep.Issues))
	}
	return err
}

func printReport(w io.Writer, rep *reconcile.Report) {
	fmt.Fprintf(w, "ledger entries: %d\n", rep.Entries)
	if rep.Clean() {
		fmt.Fprintln(w, "ledger and buckets agree")
		return
	}
	for _, k := range []reconcile.Kind{reconcile.Missing, reconcile.Misplaced, reconcile.Orphan, reconcile.Stale} {
		if n := rep.Count(k); n > 0 {
			fmt.Fprintf(w, "%s: %d\n", k, n)
		}
	}
	for _, is := range rep.Issues {
		fmt.Fprintf(w, "  %s\n", is)
	}
}
