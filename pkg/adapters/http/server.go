// Package http exposes an Engine as a JSON API routed with chi.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/palaver"
	"github.com/aretw0/palaver/internal/compiler"
	"github.com/aretw0/palaver/internal/logging"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// Engine is the part of palaver.Engine the server drives.
type Engine interface {
	Documents(ctx context.Context) ([]string, error)
	Graph(ctx context.Context, name string) (*domain.Graph, error)
	Open(ctx context.Context, name string, player domain.Player) (domain.View, error)
	Choose(ctx context.Context, player, value string) (domain.View, error)
	Escape(ctx context.Context, player string) (domain.View, error)
	Close(ctx context.Context, player string) error
	View(player string) (domain.View, error)
	Active() []string
	Resume(ctx context.Context, player domain.Player) (domain.View, error)
	Snapshot(ctx context.Context, player string) (*domain.Snapshot, error)
	Watch(ctx context.Context) (<-chan string, error)
}

// Server holds the handlers.
type Server struct {
	Engine  Engine
	logger  *slog.Logger
	metrics http.Handler
	socket  http.Handler
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithWebSocket serves h on GET /ws/{player}.
func WithWebSocket(h http.Handler) Option {
	return func(s *Server) {
		s.socket = h
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.Health)
	r.Get("/info", s.Info)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.ListDocuments)
		r.Get("/{name}", s.GetDocument)
	})

	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", s.ListConversations)
		r.Post("/", s.OpenConversation)
		r.Route("/{player}", func(r chi.Router) {
			r.Get("/", s.GetConversation)
			r.Delete("/", s.CloseConversation)
			r.Post("/choose", s.Choose)
			r.Post("/escape", s.Escape)
			r.Post("/resume", s.Resume)
		})
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.socket != nil {
		r.Method(http.MethodGet, "/ws/{player}", s.socket)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OpenRequest is the body of POST /conversations.
type OpenRequest struct {
	Document string          `json:"document"`
	Player   domain.Identity `json:"player"`
}

// ChooseRequest is the body of POST /conversations/{player}/choose.
type ChooseRequest struct {
	Value string `json:"value"`
}

// DocumentInfo describes a compiled document.
type DocumentInfo struct {
	Name        string          `json:"name"`
	Background  string          `json:"background"`
	Pages       []PageInfo      `json:"pages"`
	Dangling    []compiler.Link `json:"dangling,omitempty"`
	Unreachable []string        `json:"unreachable,omitempty"`
}

// PageInfo summarizes one page.
type PageInfo struct {
	ID      string `json:"id"`
	Speaker string `json:"speaker,omitempty"`
	Choices int    `json:"choices"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "palaver-http",
		"version": strings.TrimSpace(palaver.Version),
	})
}

func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	names, err := s.Engine.Documents(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	g, err := s.Engine.Graph(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, err)
		return
	}

	report := compiler.Analyze(g)
	info := DocumentInfo{
		Name:        g.Name,
		Background:  g.Background,
		Pages:       make([]PageInfo, 0, len(g.Pages)),
		Dangling:    report.Dangling,
		Unreachable: report.Unreachable,
	}
	for _, p := range g.Pages {
		info.Pages = append(info.Pages, PageInfo{ID: p.ID, Speaker: p.SpeakerID, Choices: len(p.Choices)})
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) ListConversations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Active())
}

func (s *Server) OpenConversation(w http.ResponseWriter, r *http.Request) {
	var body OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Document == "" || body.Player.Username == "" {
		http.Error(w, "document and player.username are required", http.StatusBadRequest)
		return
	}

	view, err := s.Engine.Open(r.Context(), body.Document, body.Player)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	view, err := s.Engine.View(chi.URLParam(r, "player"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) Choose(w http.ResponseWriter, r *http.Request) {
	var body ChooseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	view, err := s.Engine.Choose(r.Context(), chi.URLParam(r, "player"), body.Value)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) Escape(w http.ResponseWriter, r *http.Request) {
	view, err := s.Engine.Escape(r.Context(), chi.URLParam(r, "player"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) Resume(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Engine.Snapshot(r.Context(), chi.URLParam(r, "player"))
	if err != nil {
		s.fail(w, err)
		return
	}
	view, err := s.Engine.Resume(r.Context(), snap.Player)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) CloseConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Close(r.Context(), chi.URLParam(r, "player")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents streams the names of changed documents as server-sent events.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	events, err := s.Engine.Watch(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusNotImplemented)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case name, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: document\ndata: %s\n\n", name)
			flusher.Flush()
		}
	}
}

// fail maps engine errors to status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound), errors.Is(err, domain.ErrConversationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDocumentInvalid):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnknownChoice):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrConversationClosed):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
