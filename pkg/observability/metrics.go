package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/palaver/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "palaver"

// Command outcomes reported by the commands counter.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeDropped = "dropped"
)

// Metrics holds the Prometheus collectors of an engine.
type Metrics struct {
	registry *prometheus.Registry

	Opened     *prometheus.CounterVec
	Closed     *prometheus.CounterVec
	PageVisits *prometheus.CounterVec
	Choices    *prometheus.CounterVec
	Commands   *prometheus.CounterVec
	Active     prometheus.Gauge
	Duration   *prometheus.HistogramVec

	mu     sync.Mutex
	opened map[string]time.Time
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		opened:   make(map[string]time.Time),
		Opened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_opened_total",
			Help:      "Conversations opened, by document.",
		}, []string{"document"}),
		Closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_closed_total",
			Help:      "Conversations closed, by document.",
		}, []string{"document"}),
		PageVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_visits_total",
			Help:      "Pages entered, by document and page.",
		}, []string{"document", "page"}),
		Choices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "choices_total",
			Help:      "Choices selected, by document and action kind.",
		}, []string{"document", "action"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Dispatched commands, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Conversations currently open.",
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversation_duration_seconds",
			Help:      "Time from open to close.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"document"}),
	}
	m.registry.MustRegister(m.Opened, m.Closed, m.PageVisits, m.Choices, m.Commands, m.Active, m.Duration)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnConversationOpen: func(_ context.Context, e *domain.ConversationEvent) {
			m.Opened.WithLabelValues(e.Document).Inc()
			m.Active.Inc()
			m.mu.Lock()
			m.opened[e.ConversationID] = e.Timestamp
			m.mu.Unlock()
		},
		OnPageEnter: func(_ context.Context, e *domain.PageEvent) {
			m.PageVisits.WithLabelValues(e.Document, e.PageID).Inc()
		},
		OnChoice: func(_ context.Context, e *domain.ChoiceEvent) {
			m.Choices.WithLabelValues(e.Document, string(e.Action)).Inc()
		},
		OnCommand: func(_ context.Context, e *domain.CommandEvent) {
			m.Commands.WithLabelValues(string(e.Mode), outcome(e)).Inc()
		},
		OnConversationClose: func(_ context.Context, e *domain.ConversationEvent) {
			m.Closed.WithLabelValues(e.Document).Inc()
			m.mu.Lock()
			start, ok := m.opened[e.ConversationID]
			delete(m.opened, e.ConversationID)
			m.mu.Unlock()
			if ok {
				m.Active.Dec()
				m.Duration.WithLabelValues(e.Document).Observe(e.Timestamp.Sub(start).Seconds())
			}
		},
	}
}

func outcome(e *domain.CommandEvent) string {
	switch {
	case e.Dropped:
		return OutcomeDropped
	case e.Error != "":
		return OutcomeError
	default:
		return OutcomeOK
	}
}
