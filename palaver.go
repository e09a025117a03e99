package palaver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/palaver/internal/compiler"
	"github.com/aretw0/palaver/internal/logging"
	"github.com/aretw0/palaver/internal/runtime"
	"github.com/aretw0/palaver/pkg/action"
	"github.com/aretw0/palaver/pkg/adapters/file"
	"github.com/aretw0/palaver/pkg/adapters/memory"
	"github.com/aretw0/palaver/pkg/dispatch"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/aretw0/palaver/pkg/observability"
	"github.com/aretw0/palaver/pkg/ports"
	"github.com/aretw0/palaver/pkg/session"
	"github.com/aretw0/palaver/pkg/template"
	"github.com/aretw0/palaver/pkg/tick"
)

// Engine is the high-level entry point of the library.
// It loads documents, keeps one conversation per player and routes their
// choices, commands and views to the configured collaborators.
type Engine struct {
	loader    ports.DocumentLoader
	host      ports.CommandHost
	scheduler ports.Scheduler
	presenter ports.Presenter
	store     ports.SnapshotStore
	locker    ports.DistributedLocker

	actions      *action.Registry
	placeholders *template.Registry
	factories    map[string]compiler.SpeakerFactory
	hooks        domain.LifecycleHooks
	metrics      *observability.Metrics
	logger       *slog.Logger

	compiler   *compiler.Builder
	dispatcher *dispatch.Dispatcher
	sessions   *session.Manager

	mu     sync.RWMutex
	graphs map[string]*domain.Graph
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a DocumentLoader, bypassing the default directory loader.
func WithLoader(l ports.DocumentLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithHost sets the game host that runs commands.
func WithHost(h ports.CommandHost) Option {
	return func(e *Engine) {
		e.host = h
	}
}

// WithScheduler sets where command hops run. Defaults to running them inline.
func WithScheduler(s ports.Scheduler) Option {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithPresenter sets the dialogue UI.
func WithPresenter(p ports.Presenter) Option {
	return func(e *Engine) {
		e.presenter = p
	}
}

// WithStore persists conversations so they survive a restart.
func WithStore(s ports.SnapshotStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker serializes each player's conversation across engine replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithActions replaces the named action registry.
func WithActions(reg *action.Registry) Option {
	return func(e *Engine) {
		e.actions = reg
	}
}

// WithPlaceholders replaces the placeholder registry used in texts.
func WithPlaceholders(reg *template.Registry) Option {
	return func(e *Engine) {
		e.placeholders = reg
	}
}

// WithSpeakerFactory registers a speaker constructor for a type tag.
func WithSpeakerFactory(speakerType string, f compiler.SpeakerFactory) Option {
	return func(e *Engine) {
		e.factories[speakerType] = f
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = domain.ComposeHooks(e.hooks, hooks)
	}
}

// WithMetrics feeds the Prometheus collectors from the engine's events.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine reading documents from dir.
// If WithLoader is given, dir may be empty.
func New(dir string, opts ...Option) (*Engine, error) {
	e := &Engine{
		factories: make(map[string]compiler.SpeakerFactory),
		graphs:    make(map[string]*domain.Graph),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.loader == nil {
		if dir == "" {
			return nil, errors.New("a document directory is required when no loader is provided")
		}
		e.loader = file.NewLoader(dir, file.WithLoaderLogger(e.logger))
	}
	if e.host == nil {
		// Nobody is online, so every command is dropped.
		e.host = memory.NewHost()
	}
	if e.scheduler == nil {
		e.scheduler = tick.NewImmediate(context.Background())
	}
	if e.presenter == nil {
		e.presenter = memory.NewPresenter()
	}
	if e.actions == nil {
		e.actions = action.NewRegistry()
	}
	if e.placeholders == nil {
		e.placeholders = template.NewRegistry()
	}

	hooks := domain.ComposeHooks(observability.LoggingHooks(e.logger), e.hooks)
	if e.metrics != nil {
		hooks = domain.ComposeHooks(hooks, e.metrics.Hooks())
	}
	e.hooks = hooks

	copts := []compiler.Option{
		compiler.WithActions(e.actions),
		compiler.WithResolver(template.NewResolver(e.placeholders)),
		compiler.WithLogger(e.logger),
	}
	for t, f := range e.factories {
		copts = append(copts, compiler.WithSpeakerFactory(t, f))
	}
	e.compiler = compiler.New(copts...)

	e.dispatcher = dispatch.New(e.host, e.scheduler,
		dispatch.WithLogger(e.logger),
		dispatch.WithHooks(e.hooks),
	)

	sopts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sopts = append(sopts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, sopts...)

	return e, nil
}

// Documents lists the available document names.
func (e *Engine) Documents(ctx context.Context) ([]string, error) {
	return e.loader.List(ctx)
}

// Exists reports whether a document can be opened.
func (e *Engine) Exists(ctx context.Context, name string) (bool, error) {
	return e.loader.Exists(ctx, name)
}

// Graph returns the compiled graph of a document, compiling it on first use.
// Failures are *domain.LoadError values.
func (e *Engine) Graph(ctx context.Context, name string) (*domain.Graph, error) {
	e.mu.RLock()
	g, ok := e.graphs[name]
	e.mu.RUnlock()
	if ok {
		return g, nil
	}

	data, err := e.loader.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	g, err = e.compiler.Compile(name, data)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.graphs[name] = g
	e.mu.Unlock()
	return g, nil
}

// Invalidate drops the compiled graph of a document.
// Conversations already running keep the graph they started with.
func (e *Engine) Invalidate(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.graphs, name)
}

// Watch invalidates changed documents and forwards their names.
// Returns an error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return nil, errors.New("current loader does not support watching")
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		for name := range changes {
			e.Invalidate(name)
			e.logger.Debug("document changed", "document", name)
			select {
			case out <- name:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Open starts document name for player, replacing any conversation the player had.
// Load failures and a failing first Show are returned; nothing is opened then.
func (e *Engine) Open(ctx context.Context, name string, player domain.Player) (domain.View, error) {
	g, err := e.Graph(ctx, name)
	if err != nil {
		return domain.View{}, err
	}

	var view domain.View
	err = e.sessions.WithLock(ctx, player.Name(), func(ctx context.Context) error {
		if prev, ok := e.sessions.Active(player.Name()); ok {
			prev.Terminate(ctx)
			if err := e.sessions.Forget(ctx, player.Name()); err != nil {
				e.logger.Warn("failed to forget replaced conversation", "player", player.Name(), "err", err)
			}
		}

		c := runtime.New(g, player, e.conversationOptions()...)
		c.Start(ctx)
		view = c.View()
		if c.Closed() {
			return nil
		}

		if err := e.presenter.Show(ctx, player, view); err != nil {
			c.Terminate(ctx)
			return fmt.Errorf("failed to present conversation: %w", err)
		}
		if _, err := e.sessions.Track(ctx, c); err != nil {
			e.logger.Warn("failed to persist conversation", "player", player.Name(), "err", err)
		}
		return nil
	})
	return view, err
}

// Choose applies the choice with value to the player's conversation.
func (e *Engine) Choose(ctx context.Context, player, value string) (domain.View, error) {
	return e.step(ctx, player, func(ctx context.Context, c *runtime.Conversation) error {
		return c.Choose(ctx, value)
	})
}

// Escape applies the escape action of the current page, or of the document.
func (e *Engine) Escape(ctx context.Context, player string) (domain.View, error) {
	return e.step(ctx, player, func(ctx context.Context, c *runtime.Conversation) error {
		c.Escape(ctx)
		return nil
	})
}

// Close terminates the player's conversation without running any action.
func (e *Engine) Close(ctx context.Context, player string) error {
	_, err := e.step(ctx, player, func(ctx context.Context, c *runtime.Conversation) error {
		c.Terminate(ctx)
		return nil
	})
	return err
}

// View returns what the player currently sees.
func (e *Engine) View(player string) (domain.View, error) {
	c, ok := e.sessions.Active(player)
	if !ok {
		return domain.View{}, domain.ErrConversationNotFound
	}
	return c.View(), nil
}

// Active lists the players with an open conversation.
func (e *Engine) Active() []string {
	return e.sessions.Players()
}

// Resume reopens the stored conversation of player without re-running its init action.
func (e *Engine) Resume(ctx context.Context, player domain.Player) (domain.View, error) {
	var view domain.View
	err := e.sessions.WithLock(ctx, player.Name(), func(ctx context.Context) error {
		if c, ok := e.sessions.Active(player.Name()); ok {
			view = c.View()
			return e.presenter.Show(ctx, player, view)
		}

		snap, err := e.sessions.Snapshot(ctx, player.Name())
		if err != nil {
			return err
		}
		g, err := e.Graph(ctx, snap.Document)
		if err != nil {
			_ = e.sessions.Forget(ctx, player.Name())
			return err
		}

		c := runtime.Restore(g, snap, player, e.conversationOptions()...)
		if c.Closed() {
			_ = e.sessions.Forget(ctx, player.Name())
			return domain.ErrConversationNotFound
		}
		view = c.View()
		if err := e.presenter.Show(ctx, player, view); err != nil {
			return fmt.Errorf("failed to present conversation: %w", err)
		}
		_, err = e.sessions.Track(ctx, c)
		return err
	})
	return view, err
}

// Snapshot returns the stored state of the player's conversation.
func (e *Engine) Snapshot(ctx context.Context, player string) (*domain.Snapshot, error) {
	return e.sessions.Snapshot(ctx, player)
}

// Sessions exposes the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Loader returns the document loader.
func (e *Engine) Loader() ports.DocumentLoader {
	return e.loader
}

// Actions returns the named action registry.
func (e *Engine) Actions() *action.Registry {
	return e.actions
}

// Placeholders returns the placeholder registry.
func (e *Engine) Placeholders() *template.Registry {
	return e.placeholders
}

func (e *Engine) conversationOptions() []runtime.Option {
	return []runtime.Option{
		runtime.WithDispatcher(e.dispatcher),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
	}
}

// step runs fn on the player's conversation under its lock, then persists
// the result and refreshes or dismisses the UI.
func (e *Engine) step(ctx context.Context, player string, fn func(context.Context, *runtime.Conversation) error) (domain.View, error) {
	var view domain.View
	err := e.sessions.WithLock(ctx, player, func(ctx context.Context) error {
		c, ok := e.sessions.Active(player)
		if !ok {
			return domain.ErrConversationNotFound
		}
		if err := fn(ctx, c); err != nil {
			return err
		}

		view = c.View()
		if err := e.sessions.Sync(ctx, c); err != nil {
			e.logger.Warn("failed to persist conversation", "player", player, "err", err)
		}
		if c.Closed() {
			if err := e.presenter.Dismiss(ctx, c.Player()); err != nil {
				e.logger.Warn("failed to dismiss conversation", "player", player, "err", err)
			}
			return nil
		}
		if err := e.presenter.Show(ctx, c.Player(), view); err != nil {
			e.logger.Warn("failed to present page", "player", player, "err", err)
		}
		return nil
	})
	return view, err
}
