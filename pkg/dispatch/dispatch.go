// Package dispatch runs the commands of a choice on the host game.
//
// Every command becomes one hop on the host scheduler. Hops run later, in the
// order they were dispatched, and never report back to the conversation.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/palaver/internal/logging"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/aretw0/palaver/pkg/ports"
)

// Dispatcher turns command actions into scheduled host calls.
type Dispatcher struct {
	host      ports.CommandHost
	scheduler ports.Scheduler
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithHooks sets the hooks notified for every hop.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Dispatcher) {
		d.hooks = hooks
	}
}

// New creates a Dispatcher.
func New(host ports.CommandHost, scheduler ports.Scheduler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		host:      host,
		scheduler: scheduler,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Expand substitutes {player} and {p} with the actor name.
// Command modes also lose one leading slash.
func Expand(mode domain.CommandMode, command, actor string) string {
	line := strings.NewReplacer("{player}", actor, "{p}", actor).Replace(command)
	if mode.RunsCommand() {
		line = strings.TrimPrefix(line, "/")
	}
	return line
}

// Execute schedules one hop per non-blank command. It returns immediately.
// Host errors are logged and reported to the OnCommand hook, never returned.
func (d *Dispatcher) Execute(ctx context.Context, mode domain.CommandMode, commands []string, actor domain.Player) {
	if actor == nil {
		return
	}
	name := actor.Name()
	for _, cmd := range commands {
		if strings.TrimSpace(cmd) == "" {
			continue
		}
		line := Expand(mode, cmd, name)
		d.scheduler.Schedule(func(ctx context.Context) {
			d.hop(ctx, mode, name, line)
		})
	}
}

func (d *Dispatcher) hop(ctx context.Context, mode domain.CommandMode, player, line string) {
	evt := &domain.CommandEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCommand},
		Player:    player,
		Mode:      mode,
		Command:   line,
	}

	if !d.host.IsOnline(player) {
		d.logger.Debug("command dropped, player offline", "player", player, "mode", mode)
		evt.Dropped = true
		d.notify(ctx, evt)
		return
	}

	if err := d.run(ctx, mode, player, line); err != nil {
		d.logger.Warn("command failed", "player", player, "mode", mode, "command", line, "err", err)
		evt.Error = err.Error()
	} else {
		d.logger.Debug("command dispatched", "player", player, "mode", mode, "command", line)
	}
	d.notify(ctx, evt)
}

func (d *Dispatcher) run(ctx context.Context, mode domain.CommandMode, player, line string) error {
	switch mode {
	case domain.ModeElevated:
		return d.runElevated(ctx, player, line)
	case domain.ModeConsole:
		return d.host.RunAsConsole(ctx, line)
	case domain.ModeBroadcast:
		return d.host.Broadcast(ctx, line)
	case domain.ModeWhisper:
		return d.host.Whisper(ctx, player, line)
	default:
		return d.host.RunAsPlayer(ctx, player, line)
	}
}

// runElevated grants operator rights for the duration of one command and then
// restores whatever the player had before, even when the command fails.
func (d *Dispatcher) runElevated(ctx context.Context, player, line string) (err error) {
	prior := d.host.IsElevated(player)
	if err := d.host.SetElevated(player, true); err != nil {
		return fmt.Errorf("elevate %s: %w", player, err)
	}
	defer func() {
		if rerr := d.host.SetElevated(player, prior); rerr != nil {
			d.logger.Error("failed to restore operator flag", "player", player, "prior", prior, "err", rerr)
			if err == nil {
				err = fmt.Errorf("restore %s: %w", player, rerr)
			}
		}
	}()
	return d.host.RunAsPlayer(ctx, player, line)
}

func (d *Dispatcher) notify(ctx context.Context, evt *domain.CommandEvent) {
	if d.hooks.OnCommand != nil {
		d.hooks.OnCommand(ctx, evt)
	}
}
