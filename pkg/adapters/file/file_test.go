package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/palaver/pkg/adapters/file"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/aretw0/palaver/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDocs(t *testing.T, dir string, docs map[string][]byte) {
	t.Helper()
	for name, src := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), src, 0o644))
	}
}

func TestLoader_Contract(t *testing.T) {
	dir := t.TempDir()
	docs := map[string][]byte{
		"greeter": []byte(`{"pages": [{"text": "Hi"}]}`),
		"Shop":    []byte(`{"dialogue": {"text": "Buy?"}}`),
	}
	writeDocs(t, dir, docs)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	ports.RunDocumentLoaderContract(t, file.NewLoader(dir), docs)
}

func TestLoader_CaseSensitiveAndMalformed(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, map[string][]byte{
		"Shop":   []byte(`{"pages": []}`),
		"broken": []byte(`{"pages": [`),
	})
	l := file.NewLoader(dir)
	ctx := context.Background()

	ok, err := l.Exists(ctx, "shop")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = l.Load(ctx, "broken")
	var le *domain.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, domain.LoadParseError, le.Kind)
	assert.ErrorIs(t, err, domain.ErrDocumentInvalid)

	_, err = l.Load(ctx, "../Shop")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestLoader_MissingDir(t *testing.T) {
	names, err := file.NewLoader(filepath.Join(t.TempDir(), "nope")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLoader_Watch(t *testing.T) {
	dir := t.TempDir()
	l := file.NewLoader(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := l.Watch(ctx)
	require.NoError(t, err)

	writeDocs(t, dir, map[string][]byte{"fresh": []byte(`{"pages": [{"text": "new"}]}`)})

	select {
	case name := <-events:
		assert.Equal(t, "fresh", name)
	case <-time.After(2 * time.Second):
		t.Fatal("no watch event")
	}

	cancel()
	for range events {
	}
}

func TestStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, file.NewStore(t.TempDir()))
}

func TestStore_AtomicLayout(t *testing.T) {
	dir := t.TempDir()
	s := file.NewStore(dir)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "ash", &domain.Snapshot{ConversationID: "c1", PageID: "start"}))
	require.NoError(t, s.Save(ctx, "ash", &domain.Snapshot{ConversationID: "c1", PageID: "end"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "ash.json", entries[0].Name())

	got, err := s.Load(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, "end", got.PageID)

	assert.Error(t, s.Save(ctx, "../evil", &domain.Snapshot{}))
}

func TestStore_ListDotPrefixedPlayer(t *testing.T) {
	dir := t.TempDir()
	s := file.NewStore(dir)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, ".x", &domain.Snapshot{ConversationID: "c1", PageID: "start"}))
	require.NoError(t, s.Save(ctx, "ash", &domain.Snapshot{ConversationID: "c2", PageID: "start"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-ash-123"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	players, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{".x", "ash"}, players)

	got, err := s.Load(ctx, ".x")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ConversationID)
}

func TestStore_DefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join(".palaver", "sessions"), file.NewStore("").BasePath)
}
