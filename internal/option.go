package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/catdog/internal/session"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logger    *slog.Logger
	presenter session.Presenter
	in        io.Reader
	out       io.Writer
}

func newApplication(opts []Option) *application {
	app := &application{in: os.Stdin, out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config != nil && app.logger == nil {
		app.logger = NewLogger(app.config.App, os.Stderr)
	}
	return app
}

func (a *application) validate() error {
	if a.config == nil {
		return errors.New("config is required")
	}
	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger overrides the logger built from configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithPresenter replaces the presentation surface chosen by configuration.
func WithPresenter(p session.Presenter) Option {
	return func(a *application) {
		a.presenter = p
	}
}

// WithInput sets where the terminal surface reads keys from.
func WithInput(r io.Reader) Option {
	return func(a *application) {
		a.in = r
	}
}

// WithOutput sets where reports and the terminal surface write to.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}
