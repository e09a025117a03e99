// Package tui renders conversations on a terminal.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/palaver/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// NewOutput returns a termenv output for w. Colors are only used on a terminal.
func NewOutput(w io.Writer) *termenv.Output {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return termenv.NewOutput(w)
	}
	return termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
}

// Presenter implements ports.Presenter by printing pages to a writer.
type Presenter struct {
	mu  sync.Mutex
	w   io.Writer
	out *termenv.Output
}

// NewPresenter creates a Presenter writing to w.
func NewPresenter(w io.Writer) *Presenter {
	return &Presenter{w: w, out: NewOutput(w)}
}

func (p *Presenter) Show(ctx context.Context, player domain.Player, view domain.View) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	b.WriteString("\n")
	if view.Speaker != "" {
		b.WriteString(p.out.String(view.Speaker).Bold().Foreground(p.out.Color("#f59e0b")).String())
		b.WriteString("\n")
	}
	for _, line := range view.Lines {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(view.Lines) > 0 && len(view.Choices) > 0 {
		b.WriteString("\n")
	}
	for i, c := range view.Choices {
		label := fmt.Sprintf("  [%d] %s", i+1, c.Text)
		style := p.out.String(label)
		if !c.Enabled {
			style = style.Faint()
		}
		b.WriteString(style.String())
		b.WriteString("\n")
	}

	_, err := io.WriteString(p.w, b.String())
	return err
}

func (p *Presenter) Dismiss(ctx context.Context, player domain.Player) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.w, p.out.String("(conversation ended)").Faint())
	return err
}
