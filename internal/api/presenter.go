package api

import (
	"context"
	"errors"
	"sync"

	"github.com/starford/catdog/internal/models"
	"github.com/starford/catdog/internal/session"
	"github.com/starford/catdog/internal/sse"
)

var (
	// ErrNoItem means no item is awaiting a decision.
	ErrNoItem = errors.New("no item awaiting a decision")
	// ErrStale means the decision targeted an item that is no longer current.
	ErrStale = errors.New("decision targets a different item")
	// ErrUndoDisabled means undo was requested at the first position.
	ErrUndoDisabled = errors.New("nothing to undo")
)

type pendingView struct {
	view  session.View
	reply chan models.Decision
}

// Presenter bridges the session loop and HTTP clients: Present publishes
// the item and blocks until a client submits a decision.
type Presenter struct {
	broker *sse.Broker

	mu      sync.Mutex
	pending *pendingView
	summary *session.Summary
}

// NewPresenter returns a Presenter that announces items on broker.
func NewPresenter(broker *sse.Broker) *Presenter {
	return &Presenter{broker: broker}
}

// Present implements session.Presenter.
func (p *Presenter) Present(ctx context.Context, v session.View) (models.Decision, error) {
	pv := &pendingView{view: v, reply: make(chan models.Decision, 1)}
	p.mu.Lock()
	p.pending = pv
	p.mu.Unlock()

	p.broker.Publish(sse.Event{Type: sse.TypeItemPresented, Data: newViewResponse(v)})

	select {
	case d := <-pv.reply:
		return d, nil
	case <-ctx.Done():
		p.mu.Lock()
		if p.pending == pv {
			p.pending = nil
		}
		p.mu.Unlock()
		return "", ctx.Err()
	}
}

// Finish implements session.Presenter.
func (p *Presenter) Finish(_ context.Context, s session.Summary) error {
	p.mu.Lock()
	p.pending = nil
	p.summary = &s
	p.mu.Unlock()

	p.broker.Publish(sse.Event{Type: sse.TypeSessionFinished, Data: s})
	return nil
}

// Current returns the view awaiting a decision, or the summary once the
// session has finished.
func (p *Presenter) Current() (*session.View, *session.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending != nil {
		v := p.pending.view
		return &v, nil
	}
	return nil, p.summary
}

// Submit hands d to the waiting session. position, when non-zero, must
// match the current view's position.
func (p *Presenter) Submit(d models.Decision, position int) (session.View, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return session.View{}, ErrNoItem
	}
	v := p.pending.view
	if position != 0 && position != v.Position {
		return v, ErrStale
	}
	if d == models.DecisionUndo && !v.CanUndo {
		return v, ErrUndoDisabled
	}
	p.pending.reply <- d
	p.pending = nil
	return v, nil
}
