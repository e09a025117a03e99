// Package runtime walks a dialogue graph on behalf of one player.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/palaver/internal/logging"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/google/uuid"
)

// Dispatcher carries out command actions. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Execute(ctx context.Context, mode domain.CommandMode, commands []string, actor domain.Player)
}

// Conversation is the live cursor of one player over one graph.
// It is not safe for concurrent use; callers serialize access per player.
type Conversation struct {
	id     string
	graph  *domain.Graph
	player domain.Player
	index  int
	status domain.Status

	dispatcher Dispatcher
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	now        func() time.Time

	started   bool
	entries   int
	openedAt  time.Time
	updatedAt time.Time
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithID sets the conversation id. A UUID is generated otherwise.
func WithID(id string) Option {
	return func(c *Conversation) {
		c.id = id
	}
}

// WithDispatcher sets the dispatcher used for command actions.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Conversation) {
		c.dispatcher = d
	}
}

// WithLifecycleHooks sets the observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Conversation) {
		c.hooks = hooks
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conversation) {
		c.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) {
		c.now = now
	}
}

// New creates a conversation positioned on the first page of graph.
// It does nothing until Start is called.
func New(graph *domain.Graph, player domain.Player, opts ...Option) *Conversation {
	c := &Conversation{
		graph:  graph,
		player: player,
		status: domain.StatusActive,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	c.openedAt = c.now()
	c.updatedAt = c.openedAt
	return c
}

// Restore rebuilds a started conversation from a snapshot.
// The page is looked up by id first and by position second; if neither is
// valid any more the conversation comes back closed.
func Restore(graph *domain.Graph, snap *domain.Snapshot, player domain.Player, opts ...Option) *Conversation {
	c := New(graph, player, append([]Option{WithID(snap.ConversationID)}, opts...)...)
	c.started = true
	c.openedAt = snap.OpenedAt
	c.updatedAt = snap.UpdatedAt
	c.status = snap.Status

	if i, ok := graph.IndexOf(snap.PageID); ok {
		c.index = i
	} else if snap.PageIndex >= 0 && snap.PageIndex < len(graph.Pages) && snap.PageID == "" {
		c.index = snap.PageIndex
	} else {
		c.status = domain.StatusClosed
	}
	return c
}

func (c *Conversation) ID() string            { return c.id }
func (c *Conversation) Graph() *domain.Graph  { return c.graph }
func (c *Conversation) Player() domain.Player { return c.player }
func (c *Conversation) Index() int            { return c.index }
func (c *Conversation) Status() domain.Status { return c.status }
func (c *Conversation) Closed() bool          { return c.status == domain.StatusClosed }

// PageID returns the id of the current page.
func (c *Conversation) PageID() string {
	if p, ok := c.graph.PageAt(c.index); ok {
		return p.ID
	}
	return ""
}

// Page returns the current page.
func (c *Conversation) Page() (*domain.Page, bool) {
	if c.Closed() {
		return nil, false
	}
	return c.graph.PageAt(c.index)
}

// Start runs the init action once and enters the first page.
// Calling Start again does nothing.
func (c *Conversation) Start(ctx context.Context) {
	if c.started {
		return
	}
	c.started = true

	if len(c.graph.Pages) == 0 {
		c.logger.Warn("graph has no pages, closing", "document", c.graph.Name)
		c.close(ctx)
		return
	}

	if c.hooks.OnConversationOpen != nil {
		c.hooks.OnConversationOpen(ctx, &domain.ConversationEvent{
			EventBase: c.event(domain.EventConversationOpen),
			Document:  c.graph.Name,
			Player:    c.playerName(),
		})
	}

	before := c.entries
	c.Apply(ctx, c.graph.InitAction)
	if !c.Closed() && c.entries == before {
		c.enter(ctx)
	}
}

// Choose selects the choice with the given value on the current page.
// Disabled choices are accepted and do nothing.
func (c *Conversation) Choose(ctx context.Context, value string) error {
	page, ok := c.Page()
	if !ok {
		return domain.ErrConversationClosed
	}
	choice, ok := page.ChoiceByValue(value)
	if !ok {
		return domain.ErrUnknownChoice
	}

	if c.hooks.OnChoice != nil {
		evt := &domain.ChoiceEvent{
			EventBase: c.event(domain.EventChoice),
			Document:  c.graph.Name,
			Player:    c.playerName(),
			PageID:    page.ID,
			Value:     value,
		}
		if choice.Action != nil {
			evt.Action = choice.Action.Kind
		}
		c.hooks.OnChoice(ctx, evt)
	}

	c.Apply(ctx, choice.Action)
	return nil
}

// Escape applies the current page's exit action, or the graph escape action.
func (c *Conversation) Escape(ctx context.Context) {
	page, ok := c.Page()
	if !ok {
		return
	}
	if page.OnExit != nil {
		c.Apply(ctx, page.OnExit)
		return
	}
	c.Apply(ctx, c.graph.EscapeAction)
}

// Terminate closes the conversation from outside (player left, replaced, ...).
func (c *Conversation) Terminate(ctx context.Context) {
	c.close(ctx)
}

// Apply carries out act. A nil action does nothing; so does any action on a
// closed conversation.
func (c *Conversation) Apply(ctx context.Context, act *domain.Action) {
	if act == nil || c.Closed() {
		return
	}
	c.logger.Debug("apply action", "conversation", c.id, "page", c.PageID(), "action", act.String())

	switch act.Kind {
	case domain.ActionClose:
		c.close(ctx)
	case domain.ActionAdvancePage:
		if c.index+1 >= len(c.graph.Pages) {
			c.close(ctx)
			return
		}
		c.moveTo(ctx, c.index+1)
	case domain.ActionNavigate:
		c.navigate(ctx, act.Target)
	case domain.ActionRunCommands:
		c.dispatch(ctx, act)
		if act.CloseAfter {
			c.close(ctx)
		}
	case domain.ActionRunCommandsThenNavigate:
		c.dispatch(ctx, act)
		c.navigate(ctx, act.Target)
	case domain.ActionNoOp:
	default:
		c.logger.Warn("unknown action kind ignored", "kind", act.Kind)
	}
}

// View resolves the current page for presentation.
func (c *Conversation) View() domain.View {
	v := domain.View{
		ConversationID: c.id,
		Document:       c.graph.Name,
		Player:         c.playerName(),
		PageIndex:      c.index,
		Background:     c.graph.Background,
		Status:         c.status,
		Lines:          []string{},
		Choices:        []domain.ChoiceView{},
	}
	page, ok := c.graph.PageAt(c.index)
	if !ok {
		return v
	}
	v.PageID = page.ID

	speaker := c.graph.Speaker(page.SpeakerID)
	if speaker.Name != nil {
		v.Speaker = speaker.Name.Resolve(c)
	}
	v.Portrait = speaker.Portrait
	v.Lines = domain.ResolveAll(page.Lines, c)
	for _, ch := range page.Choices {
		text := ""
		if ch.Text != nil {
			text = ch.Text.Resolve(c)
		}
		v.Choices = append(v.Choices, domain.ChoiceView{
			Value:   ch.Value,
			Text:    text,
			Enabled: ch.Enabled(),
		})
	}
	return v
}

// Snapshot captures the persisted form of the conversation.
func (c *Conversation) Snapshot() *domain.Snapshot {
	return &domain.Snapshot{
		ConversationID: c.id,
		Document:       c.graph.Name,
		Player:         domain.IdentityOf(c.player),
		PageID:         c.PageID(),
		PageIndex:      c.index,
		Status:         c.status,
		OpenedAt:       c.openedAt,
		UpdatedAt:      c.updatedAt,
	}
}

func (c *Conversation) navigate(ctx context.Context, pageID string) {
	i, ok := c.graph.IndexOf(pageID)
	if !ok {
		c.logger.Debug("navigation to unknown page closes conversation", "conversation", c.id, "target", pageID)
		c.close(ctx)
		return
	}
	c.moveTo(ctx, i)
}

func (c *Conversation) moveTo(ctx context.Context, i int) {
	c.index = i
	c.updatedAt = c.now()
	c.enter(ctx)
}

func (c *Conversation) enter(ctx context.Context) {
	c.entries++
	if c.hooks.OnPageEnter == nil {
		return
	}
	c.hooks.OnPageEnter(ctx, &domain.PageEvent{
		EventBase: c.event(domain.EventPageEnter),
		Document:  c.graph.Name,
		Player:    c.playerName(),
		PageID:    c.PageID(),
		PageIndex: c.index,
	})
}

func (c *Conversation) dispatch(ctx context.Context, act *domain.Action) {
	if c.dispatcher == nil {
		c.logger.Debug("no dispatcher configured, commands skipped", "conversation", c.id, "count", len(act.Commands))
		return
	}
	c.dispatcher.Execute(ctx, act.Mode, act.Commands, c.player)
}

func (c *Conversation) close(ctx context.Context) {
	if c.Closed() {
		return
	}
	c.status = domain.StatusClosed
	c.updatedAt = c.now()
	if c.hooks.OnConversationClose != nil {
		c.hooks.OnConversationClose(ctx, &domain.ConversationEvent{
			EventBase: c.event(domain.EventConversationClose),
			Document:  c.graph.Name,
			Player:    c.playerName(),
			PageID:    c.PageID(),
		})
	}
}

func (c *Conversation) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: c.now(), Type: t, ConversationID: c.id}
}

func (c *Conversation) playerName() string {
	if c.player == nil {
		return ""
	}
	return c.player.Name()
}
