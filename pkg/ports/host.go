package ports

import "context"

// CommandHost carries out commands on the host game.
// Players are addressed by profile name.
type CommandHost interface {
	// IsOnline reports whether the player is currently connected.
	IsOnline(player string) bool

	// RunAsPlayer performs a command line as if the player typed it.
	RunAsPlayer(ctx context.Context, player, command string) error

	// RunAsConsole performs a command line from the server console.
	RunAsConsole(ctx context.Context, command string) error

	// Broadcast sends a message to every online player.
	Broadcast(ctx context.Context, message string) error

	// Whisper sends a message to one player.
	Whisper(ctx context.Context, player, message string) error

	// IsElevated reports whether the player holds operator rights.
	IsElevated(player string) bool

	// SetElevated grants or revokes operator rights.
	SetElevated(player string, elevated bool) error
}

// Scheduler runs tasks on the host's authoritative update tick.
// Schedule never blocks; tasks run later, one at a time, in submission order.
type Scheduler interface {
	Schedule(task func(ctx context.Context))
}
