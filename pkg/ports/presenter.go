package ports

import (
	"context"

	"github.com/aretw0/palaver/pkg/domain"
)

// Presenter shows the dialogue UI to players.
type Presenter interface {
	// Show renders view for the player, replacing whatever was shown before.
	// An error on the first Show of a conversation prevents it from opening.
	Show(ctx context.Context, player domain.Player, view domain.View) error

	// Dismiss removes the dialogue UI of the player.
	Dismiss(ctx context.Context, player domain.Player) error
}
