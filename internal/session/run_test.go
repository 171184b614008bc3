package session

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/catdog/internal/models"
)

type scriptedPresenter struct {
	decisions []models.Decision
	views     []View
	finished  *Summary
}

func (p *scriptedPresenter) Present(_ context.Context, v View) (models.Decision, error) {
	p.views = append(p.views, v)
	if len(p.decisions) == 0 {
		return "", errors.New("script exhausted")
	}
	d := p.decisions[0]
	p.decisions = p.decisions[1:]
	return d, nil
}

func (p *scriptedPresenter) Finish(_ context.Context, s Summary) error {
	p.finished = &s
	return nil
}

func TestRun_EmptyWorklistNeverPresents(t *testing.T) {
	c := New(nil, newMemLedger(), newMemBuckets())
	p := &scriptedPresenter{}

	s, err := c.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(p.views) != 0 {
		t.Errorf("presented %d views, want 0", len(p.views))
	}
	if p.finished == nil || s.Total != 0 || s.Processed != 0 || s.State != "exhausted" {
		t.Errorf("summary = %+v", s)
	}
}

func TestRun_UntilExhausted(t *testing.T) {
	l := newMemLedger()
	c := New(items("a.jpg", "b.jpg", "c.jpg"), l, newMemBuckets())
	p := &scriptedPresenter{decisions: []models.Decision{
		models.DecisionUndo, models.DecisionCat, models.DecisionSkip, models.DecisionDog,
	}}

	s, err := c.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.State != "exhausted" || s.Labeled != 2 || s.Skipped != 1 {
		t.Errorf("summary = %+v", s)
	}
	if len(p.views) != 4 {
		t.Fatalf("views = %d", len(p.views))
	}
	first := p.views[0]
	if first.Position != 1 || first.Total != 3 || first.CanUndo {
		t.Errorf("first view = %+v", first)
	}
	if !p.views[2].CanUndo || p.views[2].Item.Name != "b.jpg" {
		t.Errorf("third view = %+v", p.views[2])
	}
}

func TestRun_FailedDecisionRepresentsWithNotice(t *testing.T) {
	l, b := newMemLedger(), newMemBuckets()
	l.appendErr = errDisk
	c := New(items("a.jpg"), l, b)
	p := &scriptedPresenter{decisions: []models.Decision{models.DecisionCat, models.DecisionQuit}}

	s, err := c.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(p.views) != 2 {
		t.Fatalf("views = %d, want 2", len(p.views))
	}
	if p.views[1].Item.Name != "a.jpg" || p.views[1].Notice == "" {
		t.Errorf("second view = %+v", p.views[1])
	}
	if s.Processed != 0 || s.State != "terminated" {
		t.Errorf("summary = %+v", s)
	}
}

func TestRun_PresenterErrorStops(t *testing.T) {
	c := New(items("a.jpg"), newMemLedger(), newMemBuckets())
	p := &scriptedPresenter{}
	if _, err := c.Run(context.Background(), p); err == nil {
		t.Error("expected presenter error")
	}
	if p.finished != nil {
		t.Error("Finish should not run after a presenter failure")
	}
}
