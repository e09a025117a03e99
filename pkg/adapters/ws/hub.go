// Package ws pushes conversation views to players over websockets and takes
// their answers back.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/palaver/internal/logging"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// Message types.
const (
	TypeView   = "view"
	TypeClosed = "closed"
	TypeError  = "error"
	TypeOpen   = "open"
	TypeChoose = "choose"
	TypeEscape = "escape"
	TypeClose  = "close"
)

// Message is the envelope exchanged in both directions.
type Message struct {
	Type     string       `json:"type"`
	View     *domain.View `json:"view,omitempty"`
	Document string       `json:"document,omitempty"`
	Value    string       `json:"value,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Controller is the part of the engine a socket drives.
type Controller interface {
	Open(ctx context.Context, name string, player domain.Player) (domain.View, error)
	Choose(ctx context.Context, player, value string) (domain.View, error)
	Escape(ctx context.Context, player string) (domain.View, error)
	Close(ctx context.Context, player string) error
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Hub implements ports.Presenter over one websocket per player.
// Views for players without a socket are kept and sent when they connect.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*client
	pending  map[string]domain.View
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// NewHub creates a hub with no connections.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[string]*client),
		pending: make(map[string]domain.View),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connected reports whether player has a socket.
func (h *Hub) Connected(player string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.clients[player]
	return ok
}

func (h *Hub) Show(ctx context.Context, player domain.Player, view domain.View) error {
	h.mu.Lock()
	c, ok := h.clients[player.Name()]
	if !ok {
		h.pending[player.Name()] = view
	}
	h.mu.Unlock()
	if !ok {
		return nil
	}
	return c.send(Message{Type: TypeView, View: &view})
}

func (h *Hub) Dismiss(ctx context.Context, player domain.Player) error {
	h.mu.Lock()
	c, ok := h.clients[player.Name()]
	delete(h.pending, player.Name())
	h.mu.Unlock()
	if !ok {
		return nil
	}
	return c.send(Message{Type: TypeClosed})
}

func (h *Hub) attach(player string, c *client) {
	h.mu.Lock()
	old := h.clients[player]
	h.clients[player] = c
	view, hasView := h.pending[player]
	delete(h.pending, player)
	h.mu.Unlock()

	if old != nil {
		_ = old.conn.Close()
	}
	if hasView {
		if err := c.send(Message{Type: TypeView, View: &view}); err != nil {
			h.logger.Warn("failed to send pending view", "player", player, "err", err)
		}
	}
}

func (h *Hub) detach(player string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[player] == c {
		delete(h.clients, player)
	}
}

// Handler upgrades GET /ws/{player} and feeds the player's messages to ctrl.
func (h *Hub) Handler(ctrl Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		player := chi.URLParam(r, "player")
		if player == "" {
			http.Error(w, "player is required", http.StatusBadRequest)
			return
		}

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", "player", player, "err", err)
			return
		}
		c := &client{conn: conn}
		h.attach(player, c)
		defer func() {
			h.detach(player, c)
			_ = conn.Close()
		}()

		identity := domain.Identity{ID: player, Username: player}
		ctx := r.Context()
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.Debug("websocket read ended", "player", player, "err", err)
				}
				return
			}

			var opErr error
			switch msg.Type {
			case TypeOpen:
				_, opErr = ctrl.Open(ctx, msg.Document, identity)
			case TypeChoose:
				_, opErr = ctrl.Choose(ctx, player, msg.Value)
			case TypeEscape:
				_, opErr = ctrl.Escape(ctx, player)
			case TypeClose:
				opErr = ctrl.Close(ctx, player)
			default:
				opErr = fmt.Errorf("unknown message type %q", msg.Type)
			}
			if opErr != nil {
				if err := c.send(Message{Type: TypeError, Error: opErr.Error()}); err != nil {
					return
				}
			}
		}
	})
}
