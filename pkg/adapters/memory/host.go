package memory

import (
	"context"
	"fmt"
	"sync"
)

// Call is one command or message recorded by Host.
type Call struct {
	Kind    string // player, console, broadcast, whisper
	Player  string
	Line    string
	AsAdmin bool
}

// Host implements ports.CommandHost by recording every call.
// It stands in for a game server in tests and in the play command.
type Host struct {
	mu       sync.Mutex
	online   map[string]bool
	elevated map[string]bool
	calls    []Call
	failing  map[string]error
}

// NewHost creates a Host with the given players online.
func NewHost(online ...string) *Host {
	h := &Host{
		online:   make(map[string]bool),
		elevated: make(map[string]bool),
		failing:  make(map[string]error),
	}
	for _, p := range online {
		h.online[p] = true
	}
	return h
}

// SetOnline marks the player as connected or not.
func (h *Host) SetOnline(player string, online bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if online {
		h.online[player] = true
	} else {
		delete(h.online, player)
	}
}

// FailOn makes every command equal to line return err.
func (h *Host) FailOn(line string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failing[line] = err
}

// Calls returns a copy of the recorded calls.
func (h *Host) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Call(nil), h.calls...)
}

func (h *Host) IsOnline(player string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.online[player]
}

func (h *Host) RunAsPlayer(ctx context.Context, player, command string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, Call{Kind: "player", Player: player, Line: command, AsAdmin: h.elevated[player]})
	return h.failing[command]
}

func (h *Host) RunAsConsole(ctx context.Context, command string) error {
	return h.record(Call{Kind: "console", Line: command, AsAdmin: true})
}

func (h *Host) Broadcast(ctx context.Context, message string) error {
	return h.record(Call{Kind: "broadcast", Line: message})
}

func (h *Host) Whisper(ctx context.Context, player, message string) error {
	return h.record(Call{Kind: "whisper", Player: player, Line: message})
}

func (h *Host) IsElevated(player string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.elevated[player]
}

func (h *Host) SetElevated(player string, elevated bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.online[player] {
		return fmt.Errorf("player %s is offline", player)
	}
	if elevated {
		h.elevated[player] = true
	} else {
		delete(h.elevated, player)
	}
	return nil
}

func (h *Host) record(c Call) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, c)
	return h.failing[c.Line]
}
