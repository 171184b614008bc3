package internal

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/starford/catdog/internal/apperr"
	"github.com/starford/catdog/internal/dataset"
	"github.com/starford/catdog/internal/ledger"
)

// PrepRequest selects which batch outputs Prep produces. Any combination
// may be requested in one run.
type PrepRequest struct {
	Stats    bool
	JSONPath string
	Split    bool
	Report   bool
}

// Prep loads the ledger and produces the requested statistics, export,
// split and report.
func Prep(_ context.Context, req PrepRequest, opts ...Option) error {
	app := newApplication(opts)
	if err := app.validate(); err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	store := ledger.NewStore(cfg.Session.Ledger, logger)
	if !store.Exists() {
		return fmt.Errorf("%w: ledger %s does not exist", apperr.ErrPrecondition, store.Path())
	}
	snap, err := store.Load()
	if err != nil {
		return err
	}
	entries := snap.Entries
	logger.Info("ledger loaded",
		slog.String("path", store.Path()),
		slog.Int("entries", len(entries)),
		slog.Int("skipped_rows", len(snap.Warnings)))

	if req.Stats {
		dataset.ComputeStats(entries).Print(app.out)
	}

	if req.JSONPath != "" {
		if err := dataset.WriteJSON(req.JSONPath, dataset.Export(entries)); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "exported JSON: %s\n", req.JSONPath)
	}

	if req.Split {
		if len(entries) == 0 {
			fmt.Fprintln(app.out, "no labeled entries to split")
		} else {
			splits, err := dataset.Split(entries, cfg.Dataset.Ratios(), dataset.NewRand(cfg.Dataset.Seed))
			if err != nil {
				return err
			}
			if err := dataset.WriteSplits(cfg.Dataset.OutputDir, splits, app.out); err != nil {
				return err
			}
			logger.Info("dataset split written",
				slog.String("dir", filepath.Clean(cfg.Dataset.OutputDir)),
				slog.Uint64("seed", cfg.Dataset.Seed))
		}
	}

	if req.Report {
		if len(entries) == 0 {
			fmt.Fprintln(app.out, "no labeled entries to report")
			return nil
		}
		rep := dataset.BuildReport(entries)
		if err := dataset.WriteJSON(cfg.Dataset.ReportPath, rep); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "report written: %s\n", cfg.Dataset.ReportPath)
		rep.PrintSummary(app.out)
	}
	return nil
}
