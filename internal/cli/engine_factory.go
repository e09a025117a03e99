// Package cli wires configuration into a ready engine for the palaver commands.
package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/loam"
	"github.com/aretw0/palaver"
	"github.com/aretw0/palaver/internal/config"
	"github.com/aretw0/palaver/pkg/adapters/file"
	loamAdapter "github.com/aretw0/palaver/pkg/adapters/loam"
	"github.com/aretw0/palaver/pkg/adapters/memory"
	"github.com/aretw0/palaver/pkg/adapters/process"
	redisAdapter "github.com/aretw0/palaver/pkg/adapters/redis"
	"github.com/aretw0/palaver/pkg/ports"
)

// Stores bundles the snapshot store with its optional locker.
type Stores struct {
	Store  ports.SnapshotStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases backend connections.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore builds the snapshot store selected by cfg.Store.Kind.
func OpenStore(cfg config.Config) (*Stores, error) {
	switch cfg.Store.Kind {
	case config.StoreMemory:
		return &Stores{Store: memory.NewStore()}, nil
	case config.StoreFile:
		return &Stores{Store: file.NewStore(cfg.Store.Path)}, nil
	case config.StoreRedis:
		var opts []redisAdapter.Option
		if cfg.Store.TTL > 0 {
			opts = append(opts, redisAdapter.WithTTL(cfg.Store.TTL))
		}
		store := redisAdapter.New(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB, opts...)
		s := &Stores{Store: store, close: store.Close}
		if cfg.Store.Lock {
			s.Locker = redisAdapter.NewLocker(store.Client(), redisAdapter.DefaultPrefix)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
}

// OpenLoader builds the document loader selected by cfg.Loader.
func OpenLoader(cfg config.Config, logger *slog.Logger) (ports.DocumentLoader, error) {
	switch cfg.Loader {
	case config.LoaderFile:
		return file.NewLoader(cfg.Documents, file.WithLoaderLogger(logger)), nil
	case config.LoaderLoam:
		absPath, err := filepath.Abs(cfg.Documents)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve documents path: %w", err)
		}
		repo, err := loam.Init(absPath,
			loam.WithStrict(true),
			loam.WithReadOnly(true),
			loam.WithVersioning(false),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open loam repository: %w", err)
		}
		return loamAdapter.New(loam.NewTypedRepository[loamAdapter.DocumentMetadata](repo)), nil
	}
	return nil, fmt.Errorf("unknown loader %q", cfg.Loader)
}

// OpenHost builds the process host from the handlers file.
// A missing handlers file yields a host that treats everyone as online and
// fails every command.
func OpenHost(cfg config.Config, logger *slog.Logger) (*process.Host, error) {
	handlers, err := process.LoadHandlers(cfg.Host.Handlers)
	if err != nil {
		return nil, err
	}
	logger.Debug("process host handlers loaded", "path", cfg.Host.Handlers, "count", len(handlers))
	return process.NewHost(
		process.WithHandlers(handlers),
		process.WithBaseDir(cfg.Host.Dir),
		process.WithLogger(logger),
	), nil
}

// NewEngine wires loader, store and host from cfg. Options in extra are
// applied last and override the wiring.
// The returned Stores must be closed by the caller.
func NewEngine(cfg config.Config, logger *slog.Logger, extra ...palaver.Option) (*palaver.Engine, *Stores, error) {
	loader, err := OpenLoader(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	stores, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	host, err := OpenHost(cfg, logger)
	if err != nil {
		_ = stores.Close()
		return nil, nil, err
	}

	opts := []palaver.Option{
		palaver.WithLoader(loader),
		palaver.WithStore(stores.Store),
		palaver.WithHost(host),
		palaver.WithLogger(logger),
	}
	if stores.Locker != nil {
		opts = append(opts, palaver.WithLocker(stores.Locker))
	}

	engine, err := palaver.New(cfg.Documents, append(opts, extra...)...)
	if err != nil {
		_ = stores.Close()
		return nil, nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, stores, nil
}
