// Package internal provides the application entry points for each command.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/catdog/internal/api"
	"github.com/starford/catdog/internal/apperr"
	"github.com/starford/catdog/internal/dataset"
	"github.com/starford/catdog/internal/journal"
	"github.com/starford/catdog/internal/session"
	"github.com/starford/catdog/internal/sse"
	"github.com/starford/catdog/internal/terminal"
	"github.com/starford/catdog/internal/worklist"
)

// Annotate runs one labeling session over the configured input directory.
func Annotate(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if err := app.validate(); err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("input", cfg.Session.Input),
		slog.String("ledger", cfg.Session.Ledger),
		slog.String("presenter", cfg.Session.Presenter),
		slog.String("journal", cfg.Journal.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Check the input before anything is created on disk.
	resolver := worklist.NewResolver(cfg.Session.Extensions, logger)
	if _, err := resolver.Candidates(cfg.Session.Input); err != nil {
		return err
	}

	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}

	jdb, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}
	defer jdb.Close()

	if n, err := st.reconcile.Recover(ctx, jdb); err != nil {
		logger.Warn("recovery incomplete", slog.Int("resolved", n), slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Info("recovered interrupted operations", slog.Int("resolved", n))
	}
	if cfg.Journal.Retention > 0 {
		if n, err := jdb.Prune(time.Now().Add(-cfg.Journal.Retention)); err != nil {
			logger.Warn("journal prune failed", slog.String("error", err.Error()))
		} else if n > 0 {
			logger.Debug("journal pruned", slog.Int64("intents", n))
		}
	}
	if cfg.Session.ReconcileOnStart {
		if err := verify(ctx, st, true, logger, nil); err != nil {
			logger.Warn("reconcile on start failed", slog.String("error", err.Error()))
		}
	}

	snap, err := st.ledger.Load()
	if err != nil {
		return err
	}
	items, err := resolver.Resolve(cfg.Session.Input, snap)
	if err != nil {
		return err
	}
	logger.Info("worklist resolved",
		slog.Int("pending", len(items)),
		slog.Int("already_labeled", snap.Len()))

	ctrl := session.New(items, st.ledger, st.buckets,
		session.WithJournal(jdb),
		session.WithLogger(logger))

	var broker *sse.Broker
	presenter := app.presenter
	if presenter == nil {
		switch cfg.Session.Presenter {
		case PresenterHTTP:
			broker = sse.NewBroker(2 * time.Second)
			defer broker.Close()
			presenter = api.NewPresenter(broker)
		default:
			presenter = terminal.New(app.in, app.out)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		_, err := ctrl.Run(gCtx, presenter)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.Session.Watch {
		g.Go(func() error {
			var cb worklist.ChangeCallback
			if broker != nil {
				cb = broker.PublishSourceEvent
			}
			err := resolver.Watch(gCtx, cfg.Session.Input, cb)
			if err != nil {
				logger.Warn("source watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if p, ok := presenter.(*api.Presenter); ok && broker != nil {
		srv := newHTTPServer(cfg, p, broker)
		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.HTTP.Address()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("session error", slog.String("error", err.Error()))
		return err
	}

	final, err := st.ledger.Load()
	if err != nil {
		return err
	}
	dataset.ComputeStats(final.Entries).Print(app.out)
	return nil
}

func newHTTPServer(cfg *Config, p *api.Presenter, broker *sse.Broker) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", healthOK)
	r.Get("/health/ready", healthOK)

	r.Get("/", api.IndexHandler)
	r.Mount("/api", api.NewRouter(p, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	return &http.Server{
		Addr:              cfg.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// IsPrecondition reports whether err is a missing-input failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, apperr.ErrPrecondition)
}
