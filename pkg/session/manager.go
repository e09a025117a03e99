package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/palaver/internal/logging"
	"github.com/aretw0/palaver/internal/runtime"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/aretw0/palaver/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates access to the active conversations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	activeMu sync.RWMutex
	active   map[string]*runtime.Conversation

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager persisting snapshots into store.
// A nil store disables persistence.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		active:  make(map[string]*runtime.Conversation),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(player) after unlocking.
func (m *Manager) acquire(player string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[player]
	if !exists {
		entry = &lockEntry{}
		m.locks[player] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(player string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[player]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, player)
	}
}

// WithLock executes fn while holding the lock of the player.
func (m *Manager) WithLock(ctx context.Context, player string, fn func(context.Context) error) error {
	entry := m.acquire(player)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(player)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, player, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"player", player,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Active returns the live conversation of the player.
func (m *Manager) Active(player string) (*runtime.Conversation, bool) {
	m.activeMu.RLock()
	defer m.activeMu.RUnlock()
	c, ok := m.active[player]
	return c, ok
}

// Players lists the players with a live conversation, sorted.
func (m *Manager) Players() []string {
	m.activeMu.RLock()
	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	m.activeMu.RUnlock()
	sort.Strings(names)
	return names
}

// Track registers c as the live conversation of its player and persists it.
// It returns the conversation it replaced, if any. Callers hold the player lock.
func (m *Manager) Track(ctx context.Context, c *runtime.Conversation) (*runtime.Conversation, error) {
	player := c.Player().Name()

	m.activeMu.Lock()
	prev := m.active[player]
	m.active[player] = c
	m.activeMu.Unlock()

	return prev, m.Sync(ctx, c)
}

// Sync persists the current state of c. Closed conversations are forgotten.
// Callers hold the player lock.
func (m *Manager) Sync(ctx context.Context, c *runtime.Conversation) error {
	player := c.Player().Name()
	if c.Closed() {
		return m.Forget(ctx, player)
	}
	if m.store == nil {
		return nil
	}
	if err := m.store.Save(ctx, player, c.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Forget drops the live conversation of the player and its snapshot.
// Callers hold the player lock.
func (m *Manager) Forget(ctx context.Context, player string) error {
	m.activeMu.Lock()
	delete(m.active, player)
	m.activeMu.Unlock()

	if m.store == nil {
		return nil
	}
	if err := m.store.Delete(ctx, player); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Snapshot loads the stored snapshot of the player.
func (m *Manager) Snapshot(ctx context.Context, player string) (*domain.Snapshot, error) {
	if m.store == nil {
		return nil, domain.ErrConversationNotFound
	}
	return m.store.Load(ctx, player)
}

// Stored lists the players with a stored snapshot.
func (m *Manager) Stored(ctx context.Context) ([]string, error) {
	if m.store == nil {
		return []string{}, nil
	}
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// IsNotFound reports whether err means there is no conversation.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrConversationNotFound)
}
