package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/palaver/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LockLeak(t *testing.T) {
	mgr := NewManager(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			player := "p"
			if n%2 == 0 {
				player = "q"
			}
			_ = mgr.WithLock(ctx, player, func(context.Context) error { return nil })
		}(i)
	}
	wg.Wait()

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Empty(t, mgr.locks, "lock entries must be released after use")
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked []string
	ttl      time.Duration
	err      error
}

func (f *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.locked = append(f.locked, key)
	f.ttl = ttl
	f.mu.Unlock()
	return func(context.Context) error {
		f.mu.Lock()
		f.unlocked = append(f.unlocked, key)
		f.mu.Unlock()
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &fakeLocker{}
	mgr := NewManager(nil, WithLocker(locker), WithLockTTL(time.Second))

	called := false
	err := mgr.WithLock(context.Background(), "erika", func(context.Context) error {
		called = true
		assert.Equal(t, []string{"erika"}, locker.locked)
		assert.Empty(t, locker.unlocked)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []string{"erika"}, locker.unlocked)
	assert.Equal(t, time.Second, locker.ttl)
}

func TestManager_DistributedLockFailure(t *testing.T) {
	boom := errors.New("boom")
	mgr := NewManager(nil, WithLocker(&fakeLocker{err: boom}))

	err := mgr.WithLock(context.Background(), "sabrina", func(context.Context) error {
		t.Fatal("must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, boom)
}
