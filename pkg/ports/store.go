package ports

import (
	"context"

	"github.com/aretw0/palaver/pkg/domain"
)

// SnapshotStore persists conversation snapshots, keyed by player name.
// It allows a conversation to survive a restart of the engine.
type SnapshotStore interface {
	// Save persists the snapshot of the player's conversation.
	Save(ctx context.Context, player string, snap *domain.Snapshot) error

	// Load retrieves the snapshot of the player's conversation.
	// Returns domain.ErrConversationNotFound if there is none.
	Load(ctx context.Context, player string) (*domain.Snapshot, error)

	// Delete removes the snapshot. Deleting a missing snapshot is not an error.
	Delete(ctx context.Context, player string) error

	// List returns the players that have a stored snapshot.
	List(ctx context.Context) ([]string, error)
}
