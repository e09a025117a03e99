package memory

import (
	"context"
	"sync"

	"github.com/aretw0/palaver/pkg/domain"
)

// Presenter implements ports.Presenter by keeping the last view per player.
type Presenter struct {
	mu      sync.Mutex
	current map[string]domain.View
	shown   []domain.View
	err     error
}

// NewPresenter creates an empty Presenter.
func NewPresenter() *Presenter {
	return &Presenter{current: make(map[string]domain.View)}
}

// FailWith makes subsequent Show calls return err. Pass nil to recover.
func (p *Presenter) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *Presenter) Show(ctx context.Context, player domain.Player, view domain.View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.current[player.Name()] = view
	p.shown = append(p.shown, view)
	return nil
}

func (p *Presenter) Dismiss(ctx context.Context, player domain.Player) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.current, player.Name())
	return nil
}

// Current returns the view currently shown to the player.
func (p *Presenter) Current(player string) (domain.View, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.current[player]
	return v, ok
}

// History returns every view shown so far, oldest first.
func (p *Presenter) History() []domain.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.View(nil), p.shown...)
}
