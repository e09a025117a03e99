package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/palaver/internal/logging"
)

// ErrNoHandler is returned when no program is configured for an operation.
var ErrNoHandler = errors.New("no handler configured")

// Environment variables passed to every handler. Arguments travel through
// the environment, never through the command line.
const (
	EnvPlayer   = "PALAVER_PLAYER"
	EnvCommand  = "PALAVER_COMMAND"
	EnvMessage  = "PALAVER_MESSAGE"
	EnvOp       = "PALAVER_OP"
	EnvElevated = "PALAVER_ELEVATED"
)

// DefaultOnlineTimeout bounds the online check.
const DefaultOnlineTimeout = 2 * time.Second

// Host implements ports.CommandHost by running allow-listed programs.
// Without an "online" handler every player counts as online.
type Host struct {
	handlers map[string]ProcessConfig
	baseDir  string
	logger   *slog.Logger
	timeout  time.Duration

	mu       sync.Mutex
	elevated map[string]bool
}

// Option configures the Host.
type Option func(*Host)

// WithHandlers adds handlers, typically from LoadHandlers.
func WithHandlers(handlers map[string]ProcessConfig) Option {
	return func(h *Host) {
		for name, cfg := range handlers {
			h.handlers[name] = cfg
		}
	}
}

// WithBaseDir sets the working directory of executed programs.
func WithBaseDir(dir string) Option {
	return func(h *Host) {
		h.baseDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithOnlineTimeout bounds each online check.
func WithOnlineTimeout(d time.Duration) Option {
	return func(h *Host) {
		h.timeout = d
	}
}

// NewHost creates a Host.
func NewHost(opts ...Option) *Host {
	h := &Host{
		handlers: make(map[string]ProcessConfig),
		elevated: make(map[string]bool),
		logger:   logging.NewNop(),
		timeout:  DefaultOnlineTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register binds a program to an operation.
func (h *Host) Register(op, command string, args ...string) {
	h.handlers[op] = ProcessConfig{Name: op, Command: command, Args: args}
}

// IsOnline runs the online handler; exit status zero means online.
func (h *Host) IsOnline(player string) bool {
	if _, ok := h.handlers[HandlerOnline]; !ok {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	return h.run(ctx, HandlerOnline, map[string]string{EnvPlayer: player}) == nil
}

func (h *Host) RunAsPlayer(ctx context.Context, player, command string) error {
	return h.run(ctx, HandlerPlayer, map[string]string{
		EnvPlayer:   player,
		EnvCommand:  command,
		EnvElevated: strconv.FormatBool(h.IsElevated(player)),
	})
}

func (h *Host) RunAsConsole(ctx context.Context, command string) error {
	return h.run(ctx, HandlerConsole, map[string]string{EnvCommand: command})
}

func (h *Host) Broadcast(ctx context.Context, message string) error {
	return h.run(ctx, HandlerBroadcast, map[string]string{EnvMessage: message})
}

func (h *Host) Whisper(ctx context.Context, player, message string) error {
	return h.run(ctx, HandlerWhisper, map[string]string{EnvPlayer: player, EnvMessage: message})
}

func (h *Host) IsElevated(player string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.elevated[player]
}

// SetElevated records the flag and, when an elevate handler exists, runs it.
func (h *Host) SetElevated(player string, elevated bool) error {
	if _, ok := h.handlers[HandlerElevate]; ok {
		err := h.run(context.Background(), HandlerElevate, map[string]string{
			EnvPlayer:   player,
			EnvElevated: strconv.FormatBool(elevated),
		})
		if err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if elevated {
		h.elevated[player] = true
	} else {
		delete(h.elevated, player)
	}
	return nil
}

func (h *Host) run(ctx context.Context, op string, vars map[string]string) error {
	proc, ok := h.handlers[op]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, op)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = h.baseDir
	env := cmd.Environ()
	for k, v := range proc.Environment {
		env = append(env, k+"="+v)
	}
	env = append(env, EnvOp+"="+op)
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s handler failed: %w: %s", op, err, strings.TrimSpace(stderr.String()))
	}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		h.logger.Debug("host handler output", "op", op, "output", out)
	}
	return nil
}
