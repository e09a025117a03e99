package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventConversationOpen  EventType = "conversation_open"
	EventPageEnter         EventType = "page_enter"
	EventChoice            EventType = "choice"
	EventCommand           EventType = "command"
	EventConversationClose EventType = "conversation_close"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp      time.Time `json:"timestamp"`
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
}

// ConversationEvent is emitted when a conversation opens or closes.
type ConversationEvent struct {
	EventBase
	Document string `json:"document"`
	Player   string `json:"player"`
	PageID   string `json:"page_id,omitempty"`
}

// PageEvent is emitted every time a page becomes current.
type PageEvent struct {
	EventBase
	Document  string `json:"document"`
	Player    string `json:"player"`
	PageID    string `json:"page_id"`
	PageIndex int    `json:"page_index"`
}

// ChoiceEvent is emitted when a player selects a choice.
type ChoiceEvent struct {
	EventBase
	Document string     `json:"document"`
	Player   string     `json:"player"`
	PageID   string     `json:"page_id"`
	Value    string     `json:"value"`
	Action   ActionKind `json:"action,omitempty"`
}

// CommandEvent is emitted when a dispatched command runs on the host.
type CommandEvent struct {
	EventBase
	Player  string      `json:"player"`
	Mode    CommandMode `json:"mode"`
	Command string      `json:"command"`
	Dropped bool        `json:"dropped,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnConversationOpen  func(context.Context, *ConversationEvent)
	OnPageEnter         func(context.Context, *PageEvent)
	OnChoice            func(context.Context, *ChoiceEvent)
	OnCommand           func(context.Context, *CommandEvent)
	OnConversationClose func(context.Context, *ConversationEvent)
}

// ComposeHooks returns hooks that call every non-nil callback of each input, in order.
func ComposeHooks(all ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range all {
		out.OnConversationOpen = chain(out.OnConversationOpen, h.OnConversationOpen)
		out.OnPageEnter = chain(out.OnPageEnter, h.OnPageEnter)
		out.OnChoice = chain(out.OnChoice, h.OnChoice)
		out.OnCommand = chain(out.OnCommand, h.OnCommand)
		out.OnConversationClose = chain(out.OnConversationClose, h.OnConversationClose)
	}
	return out
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
