package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/catdog/internal/apperr"
	"github.com/starford/catdog/internal/models"
)

// View is what a presentation surface needs to render the current item.
type View struct {
	Item     models.Item `json:"item"`
	Position int         `json:"position"` // 1-based
	Total    int         `json:"total"`
	CanUndo  bool        `json:"can_undo"`
	Notice   string      `json:"notice,omitempty"`
}

// Presenter renders items and returns the operator's decision. Present
// blocks until a decision is available or ctx is done.
type Presenter interface {
	Present(ctx context.Context, v View) (models.Decision, error)
	Finish(ctx context.Context, s Summary) error
}

// Summary describes a finished session.
type Summary struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Labeled   int    `json:"labeled"`
	Skipped   int    `json:"skipped"`
	Undone    int    `json:"undone"`
}

// View returns the presentation view of the current item.
func (c *Controller) View() (View, bool) {
	item, ok := c.Current()
	if !ok {
		return View{}, false
	}
	return View{
		Item:     item,
		Position: c.cursor + 1,
		Total:    len(c.items),
		CanUndo:  c.CanUndo(),
		Notice:   c.notice,
	}, true
}

// Summary reports the counts for decisions currently in effect.
func (c *Controller) Summary() Summary {
	s := Summary{
		ID:        c.id,
		State:     c.state.String(),
		Processed: c.cursor,
		Total:     len(c.items),
		Undone:    c.undone,
	}
	for _, d := range c.outcomes[:c.cursor] {
		if d == models.DecisionSkip {
			s.Skipped++
		} else if _, ok := d.Label(); ok {
			s.Labeled++
		}
	}
	return s
}

// Run drives the session until it is exhausted or terminated. A failed
// decision is reported through the next view's notice and the same item is
// presented again. Run returns early only when the presenter fails or ctx
// is cancelled.
func (c *Controller) Run(ctx context.Context, p Presenter) (Summary, error) {
	c.logger.Info("session started", slog.Int("items", len(c.items)))
	for c.state == Active {
		v, _ := c.View()
		d, err := p.Present(ctx, v)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				c.Quit()
				break
			}
			return c.Summary(), err
		}
		c.notice = ""
		if err := c.Apply(ctx, d); err != nil {
			c.logger.Error("decision failed",
				slog.String("decision", string(d)),
				slog.Bool("durability", errors.Is(err, apperr.ErrDurability)),
				slog.String("error", err.Error()))
			c.notice = err.Error()
		}
	}

	s := c.Summary()
	c.logger.Info("session finished",
		slog.String("state", s.State),
		slog.Int("processed", s.Processed),
		slog.Int("labeled", s.Labeled))
	return s, p.Finish(ctx, s)
}
