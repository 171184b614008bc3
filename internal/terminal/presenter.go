// Package terminal presents items on a terminal and reads single-key
// decisions from the operator.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/starford/catdog/internal/models"
	"github.com/starford/catdog/internal/session"
)

// keys maps a key or typed token to its decision.
var keys = map[string]models.Decision{
	"c":    models.DecisionCat,
	"cat":  models.DecisionCat,
	"d":    models.DecisionDog,
	"dog":  models.DecisionDog,
	"s":    models.DecisionSkip,
	"skip": models.DecisionSkip,
	"a":    models.DecisionUndo,
	"undo": models.DecisionUndo,
	"q":    models.DecisionQuit,
	"quit": models.DecisionQuit,
}

const ctrlC = 0x03

// Presenter renders the current item and waits for a key. When in is a
// terminal it is switched to raw mode for each read so a single key press
// suffices; otherwise one token is read per line.
type Presenter struct {
	in  *bufio.Reader
	fd  int // -1 when in is not a terminal
	out io.Writer

	mu  sync.Mutex
	raw *term.State // saved state while in raw mode
}

type readResult struct {
	d   models.Decision
	err error
}

// New returns a Presenter reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Presenter {
	p := &Presenter{in: bufio.NewReader(in), fd: -1, out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	return p
}

// Present prints v and returns the operator's decision. End of input is
// treated as quit. A cancelled ctx abandons the pending read and restores
// the terminal.
func (p *Presenter) Present(ctx context.Context, v session.View) (models.Decision, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.render(v)
	for {
		d, err := p.readContext(ctx)
		if errors.Is(err, io.EOF) {
			return models.DecisionQuit, nil
		}
		if err != nil {
			return "", fmt.Errorf("terminal: read: %w", err)
		}
		if d == "" {
			continue
		}
		if d == models.DecisionUndo && !v.CanUndo {
			fmt.Fprintln(p.out, noticeStyle.Render("nothing to undo"))
			continue
		}
		return d, nil
	}
}

// Finish prints the session summary.
func (p *Presenter) Finish(_ context.Context, s session.Summary) error {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, doneStyle.Render(fmt.Sprintf("session %s", s.State)))
	fmt.Fprintf(p.out, "processed %d/%d: labeled %d, skipped %d, undone %d\n",
		s.Processed, s.Total, s.Labeled, s.Skipped, s.Undone)
	return nil
}

func (p *Presenter) render(v session.View) {
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "%s %s\n",
		progressStyle.Render(fmt.Sprintf("[%d/%d]", v.Position, v.Total)),
		nameStyle.Render(v.Item.Name))
	fmt.Fprintln(p.out, helpStyle.Render(v.Item.Path))
	if v.Notice != "" {
		fmt.Fprintln(p.out, noticeStyle.Render(v.Notice))
	}
	help := "c=cat  d=dog  s=skip  q=quit"
	if v.CanUndo {
		help = "c=cat  d=dog  s=skip  a=undo  q=quit"
	}
	fmt.Fprintln(p.out, helpStyle.Render(help))
}

func (p *Presenter) readContext(ctx context.Context) (models.Decision, error) {
	ch := make(chan readResult, 1)
	go func() {
		d, err := p.read()
		ch <- readResult{d, err}
	}()
	select {
	case r := <-ch:
		return r.d, r.err
	case <-ctx.Done():
		p.restore()
		return "", ctx.Err()
	}
}

// read returns the next decision, or "" for an unrecognised key.
func (p *Presenter) read() (models.Decision, error) {
	if p.fd >= 0 {
		return p.readKey()
	}
	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return keys[strings.ToLower(strings.TrimSpace(line))], nil
}

func (p *Presenter) readKey() (models.Decision, error) {
	state, err := term.MakeRaw(p.fd)
	if err != nil {
		return "", fmt.Errorf("raw mode: %w", err)
	}
	p.mu.Lock()
	p.raw = state
	p.mu.Unlock()
	defer p.restore()

	b, err := p.in.ReadByte()
	if err != nil {
		return "", err
	}
	if b == ctrlC {
		return models.DecisionQuit, nil
	}
	return keys[strings.ToLower(string(rune(b)))], nil
}

func (p *Presenter) restore() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.raw != nil {
		_ = term.Restore(p.fd, p.raw)
		p.raw = nil
	}
}
