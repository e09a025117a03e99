package ports

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/aretw0/palaver/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	player := "contract-player-" + time.Now().Format("20060102150405")

	newSnapshot := func(name string) *domain.Snapshot {
		now := time.Now().UTC().Truncate(time.Second)
		return &domain.Snapshot{
			ConversationID: "conv-" + name,
			Document:       "welcome",
			Player:         domain.Identity{ID: "id-" + name, Username: name},
			PageID:         "main",
			PageIndex:      0,
			Status:         domain.StatusActive,
			OpenedAt:       now,
			UpdatedAt:      now,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := newSnapshot(player)
		snap.PageID = "response_1"
		snap.PageIndex = 2

		require.NoError(t, store.Save(ctx, player, snap), "Save should not return error")

		loaded, err := store.Load(ctx, player)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.ConversationID, loaded.ConversationID)
		assert.Equal(t, snap.Document, loaded.Document)
		assert.Equal(t, snap.Player, loaded.Player)
		assert.Equal(t, "response_1", loaded.PageID)
		assert.Equal(t, 2, loaded.PageIndex)
		assert.Equal(t, domain.StatusActive, loaded.Status)
		assert.True(t, snap.OpenedAt.Equal(loaded.OpenedAt))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+player)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		snap := newSnapshot(player)
		require.NoError(t, store.Save(ctx, player, snap))
		snap.PageID = "later"
		require.NoError(t, store.Save(ctx, player, snap))

		loaded, err := store.Load(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, "later", loaded.PageID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, player, newSnapshot(player)))

		require.NoError(t, store.Delete(ctx, player), "Delete should not return error")

		_, err := store.Load(ctx, player)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound, "Load after Delete should return ErrConversationNotFound")

		assert.NoError(t, store.Delete(ctx, player), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		p1 := player + "-1"
		p2 := player + "-2"
		require.NoError(t, store.Save(ctx, p1, newSnapshot(p1)))
		require.NoError(t, store.Save(ctx, p2, newSnapshot(p2)))

		defer func() {
			_ = store.Delete(ctx, p1)
			_ = store.Delete(ctx, p2)
		}()

		players, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, players, p1)
		assert.Contains(t, players, p2)
	})
}

// RunDocumentLoaderContract verifies a DocumentLoader that has been seeded with docs.
// Every value of docs must be a valid JSON document.
func RunDocumentLoaderContract(t *testing.T, loader DocumentLoader, docs map[string][]byte) {
	t.Helper()
	ctx := context.Background()

	t.Run("List", func(t *testing.T) {
		names, err := loader.List(ctx)
		require.NoError(t, err)

		want := make([]string, 0, len(docs))
		for name := range docs {
			want = append(want, name)
		}
		sort.Strings(want)
		sort.Strings(names)
		assert.Equal(t, want, names)
	})

	t.Run("Exists", func(t *testing.T) {
		for name := range docs {
			ok, err := loader.Exists(ctx, name)
			require.NoError(t, err)
			assert.True(t, ok, name)
		}
		ok, err := loader.Exists(ctx, "non-existent-document")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Load", func(t *testing.T) {
		for name, content := range docs {
			got, err := loader.Load(ctx, name)
			require.NoError(t, err, name)
			assert.JSONEq(t, string(content), string(got), name)
		}
	})

	t.Run("Load NotFound", func(t *testing.T) {
		_, err := loader.Load(ctx, "non-existent-document")
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})
}
