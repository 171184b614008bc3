// Package session implements the annotation state machine.
//
// A Controller walks an ordered worklist one item at a time. Labels are
// written to the ledger first and materialized into a bucket second; undo
// reverses both for the previous position. Each mutation is bracketed by a
// journal intent so an interrupted step can be repaired on the next start.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/catdog/internal/journal"
	"github.com/starford/catdog/internal/models"
)

// State is the controller's lifecycle state.
type State int

const (
	Active State = iota
	Exhausted
	Terminated
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Exhausted:
		return "exhausted"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrInactive is returned when a decision arrives after the session ended.
	ErrInactive = errors.New("session: not active")
	// ErrLabelPending is joined to a label failure whose ledger row could not
	// be rolled back. Recovery on the next start may still materialize it.
	ErrLabelPending = errors.New("the label is still recorded and may apply after restart")
)

// Ledger is the durable decision store.
type Ledger interface {
	Append(models.LedgerEntry) error
	Delete(filename string) (models.LedgerEntry, bool, error)
}

// Buckets materializes label copies.
type Buckets interface {
	Place(ctx context.Context, item models.Item, label models.Label) error
	Remove(ctx context.Context, filename string, label models.Label) error
}

// Journal records write-ahead intents.
type Journal interface {
	Begin(journal.Intent) (int64, error)
	Done(id int64) error
}

// Controller owns the cursor over a worklist. It is not safe for
// concurrent use; decisions are applied one at a time.
type Controller struct {
	items    []models.Item
	outcomes []models.Decision
	cursor   int
	state    State
	undone   int
	notice   string

	ledger  Ledger
	buckets Buckets
	journal Journal
	now     func() time.Time
	id      string
	logger  *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithJournal brackets every mutation with a write-ahead intent.
func WithJournal(j Journal) Option {
	return func(c *Controller) { c.journal = j }
}

// WithClock overrides the timestamp source for ledger entries.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(c *Controller) { c.id = id }
}

// New creates a controller over items. With no items the controller starts
// Exhausted.
func New(items []models.Item, ledger Ledger, buckets Buckets, opts ...Option) *Controller {
	c := &Controller{
		items:    items,
		outcomes: make([]models.Decision, len(items)),
		ledger:   ledger,
		buckets:  buckets,
		now:      time.Now,
		id:       uuid.NewString(),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With(slog.String("session", c.id))
	if len(items) == 0 {
		c.state = Exhausted
	}
	return c
}

// ID returns the session id recorded in journal intents.
func (c *Controller) ID() string { return c.id }

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Cursor returns the zero-based position of the current item.
func (c *Controller) Cursor() int { return c.cursor }

// Len returns the worklist length.
func (c *Controller) Len() int { return len(c.items) }

// Current returns the item under the cursor while Active.
func (c *Controller) Current() (models.Item, bool) {
	if c.state != Active {
		return models.Item{}, false
	}
	return c.items[c.cursor], true
}

// CanUndo reports whether an undo would rewind the cursor.
func (c *Controller) CanUndo() bool {
	return c.state == Active && c.cursor > 0
}

// Label records label for the current item and advances the cursor. On
// failure the cursor stays put and whatever was already written is rolled
// back.
func (c *Controller) Label(ctx context.Context, label models.Label) error {
	item, ok := c.Current()
	if !ok {
		return ErrInactive
	}
	entry := models.LedgerEntry{Filename: item.Name, Label: label, Timestamp: c.now()}

	intent, err := c.begin(journal.Intent{Op: journal.OpLabel, Filename: item.Name, Label: label})
	if err != nil {
		return err
	}
	if err := c.ledger.Append(entry); err != nil {
		// Leave the intent pending: a partial append is repaired on restart.
		return fmt.Errorf("session: label %s: %w", item.Name, err)
	}
	if err := c.buckets.Place(ctx, item, label); err != nil {
		if _, _, derr := c.ledger.Delete(item.Name); derr != nil {
			c.logger.Error("session: rollback failed, intent left pending",
				slog.String("filename", item.Name),
				slog.String("error", derr.Error()))
			return fmt.Errorf("session: label %s: %w; %w", item.Name, err, ErrLabelPending)
		}
		c.done(intent)
		return fmt.Errorf("session: label %s: %w", item.Name, err)
	}
	c.done(intent)

	c.logger.Info("labeled", slog.String("filename", item.Name), slog.String("label", label.String()))
	c.outcomes[c.cursor] = models.Decision(label)
	c.advance()
	return nil
}

// Skip advances the cursor without touching the ledger or buckets.
func (c *Controller) Skip() error {
	item, ok := c.Current()
	if !ok {
		return ErrInactive
	}
	c.logger.Debug("skipped", slog.String("filename", item.Name))
	c.outcomes[c.cursor] = models.DecisionSkip
	c.advance()
	return nil
}

// Undo rewinds one position and erases the decision recorded there. At
// cursor 0 it is a no-op. A skipped item has no ledger row, so only the
// cursor moves.
func (c *Controller) Undo(ctx context.Context) error {
	if c.state != Active {
		return ErrInactive
	}
	if c.cursor == 0 {
		return nil
	}
	prev := c.items[c.cursor-1]
	expected, _ := c.outcomes[c.cursor-1].Label()

	intent, err := c.begin(journal.Intent{Op: journal.OpUndo, Filename: prev.Name, Label: expected})
	if err != nil {
		return err
	}
	removed, found, err := c.ledger.Delete(prev.Name)
	if err != nil {
		// The rewrite is atomic, so nothing changed and the label stands.
		c.done(intent)
		return fmt.Errorf("session: undo %s: %w", prev.Name, err)
	}
	if found {
		if err := c.buckets.Remove(ctx, prev.Name, removed.Label); err != nil {
			if aerr := c.ledger.Append(removed); aerr != nil {
				c.logger.Error("session: restore failed, intent left pending",
					slog.String("filename", prev.Name),
					slog.String("error", aerr.Error()))
				return fmt.Errorf("session: undo %s: %w", prev.Name, err)
			}
			c.done(intent)
			return fmt.Errorf("session: undo %s: %w", prev.Name, err)
		}
	}
	c.done(intent)

	c.logger.Info("undone", slog.String("filename", prev.Name), slog.Bool("had_label", found))
	c.cursor--
	c.outcomes[c.cursor] = ""
	c.undone++
	return nil
}

// Quit terminates the session regardless of position.
func (c *Controller) Quit() {
	if c.state == Active {
		c.state = Terminated
	}
}

// Apply dispatches a presentation decision.
func (c *Controller) Apply(ctx context.Context, d models.Decision) error {
	if label, ok := d.Label(); ok {
		return c.Label(ctx, label)
	}
	switch d {
	case models.DecisionSkip:
		return c.Skip()
	case models.DecisionUndo:
		return c.Undo(ctx)
	case models.DecisionQuit:
		c.Quit()
		return nil
	}
	return fmt.Errorf("session: unknown decision %q", d)
}

func (c *Controller) advance() {
	c.cursor++
	if c.cursor == len(c.items) {
		c.state = Exhausted
	}
}

func (c *Controller) begin(in journal.Intent) (int64, error) {
	if c.journal == nil {
		return 0, nil
	}
	in.Session = c.id
	in.CreatedAt = c.now()
	id, err := c.journal.Begin(in)
	if err != nil {
		return 0, fmt.Errorf("session: %s %s: %w", in.Op, in.Filename, err)
	}
	return id, nil
}

func (c *Controller) done(id int64) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Done(id); err != nil {
		// Both stores already agree; recovery will resolve the stale intent.
		c.logger.Warn("session: journal done failed",
			slog.Int64("intent", id),
			slog.String("error", err.Error()))
	}
}
