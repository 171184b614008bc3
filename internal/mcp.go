package internal

import (
	"context"

	"github.com/starford/catdog/internal/mcpserver"
)

// ServeMCP serves the read-only ledger tools over stdio until stdin closes.
func ServeMCP(_ context.Context, version string, opts ...Option) error {
	app := newApplication(opts)
	if err := app.validate(); err != nil {
		return err
	}
	st, err := openStores(app.config, app.logger)
	if err != nil {
		return err
	}
	app.logger.Info("serving MCP on stdio", "ledger", app.config.Session.Ledger)
	return mcpserver.New(st.ledger, st.reconcile, version).ServeStdio()
}
