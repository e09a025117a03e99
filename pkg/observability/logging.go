package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/palaver/pkg/domain"
)

// LoggingHooks logs every lifecycle event at debug level, failed commands at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnConversationOpen: func(ctx context.Context, e *domain.ConversationEvent) {
			logger.InfoContext(ctx, "conversation opened",
				"conversation", e.ConversationID, "document", e.Document, "player", e.Player)
		},
		OnPageEnter: func(ctx context.Context, e *domain.PageEvent) {
			logger.DebugContext(ctx, "page entered",
				"conversation", e.ConversationID, "page", e.PageID, "index", e.PageIndex)
		},
		OnChoice: func(ctx context.Context, e *domain.ChoiceEvent) {
			logger.DebugContext(ctx, "choice selected",
				"conversation", e.ConversationID, "page", e.PageID, "value", e.Value, "action", e.Action)
		},
		OnCommand: func(ctx context.Context, e *domain.CommandEvent) {
			if e.Error != "" {
				logger.WarnContext(ctx, "command failed",
					"player", e.Player, "mode", e.Mode, "command", e.Command, "err", e.Error)
				return
			}
			logger.DebugContext(ctx, "command dispatched",
				"player", e.Player, "mode", e.Mode, "command", e.Command, "dropped", e.Dropped)
		},
		OnConversationClose: func(ctx context.Context, e *domain.ConversationEvent) {
			logger.InfoContext(ctx, "conversation closed",
				"conversation", e.ConversationID, "document", e.Document, "player", e.Player, "page", e.PageID)
		},
	}
}
