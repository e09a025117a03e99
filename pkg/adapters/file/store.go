package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/palaver/pkg/domain"
)

// DefaultSessionDir is where snapshots are kept when no path is given.
var DefaultSessionDir = filepath.Join(".palaver", "sessions")

const tmpPrefix = ".tmp-"

// Store implements ports.SnapshotStore using the local filesystem.
// Each player's snapshot is one JSON file.
type Store struct {
	BasePath string
}

// NewStore creates a Store rooted at basePath, or DefaultSessionDir if empty.
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = DefaultSessionDir
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(player string) (string, error) {
	if player == "" {
		return "", errors.New("player cannot be empty")
	}
	if strings.ContainsAny(player, `/\`) || player == "." || player == ".." {
		return "", fmt.Errorf("invalid player name %q", player)
	}
	return filepath.Join(s.BasePath, player+Ext), nil
}

// snapshotName maps a file name back to its player. Dot-prefixed players are
// listed; temp files are not.
func snapshotName(file string) (string, bool) {
	if !strings.HasSuffix(file, Ext) || strings.HasPrefix(file, tmpPrefix) {
		return "", false
	}
	return strings.TrimSuffix(file, Ext), true
}

// Save writes the snapshot atomically: temp file, fsync, then rename.
func (s *Store) Save(ctx context.Context, player string, snap *domain.Snapshot) error {
	dest, err := s.path(player)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmp, err := os.CreateTemp(s.BasePath, tmpPrefix+player+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to replace snapshot: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot of the player.
func (s *Store) Load(ctx context.Context, player string) (*domain.Snapshot, error) {
	p, err := s.path(player)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the snapshot file.
func (s *Store) Delete(ctx context.Context, player string) error {
	p, err := s.path(player)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// List returns the players with a snapshot on disk.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	players := []string{}
	for _, entry := range entries {
		if name, ok := snapshotName(entry.Name()); ok && !entry.IsDir() {
			players = append(players, name)
		}
	}
	sort.Strings(players)
	return players, nil
}
