package palaver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/palaver"
	"github.com/aretw0/palaver/pkg/adapters/memory"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/aretw0/palaver/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ann = domain.Identity{ID: "ann-1", Username: "Ann"}

const legacyBob = `{"dialogue": {"text": "Hi <player>", "speaker": "Bob", "options": [
	{"text": "Bye", "response": "See ya"},
	{"text": "Nothing", "action": "close"}
]}}`

const forward = `{"pages": [
	{"id": "a", "text": "Start", "inputs": [{"text": "go", "next": "c"}]},
	{"id": "b", "text": "Skipped"},
	{"id": "c", "text": "Arrived", "inputs": [{"text": "done", "action": "close"}]}
]}`

const gate = `{"pages": [
	{"id": "a", "text": "Ready?", "inputs": [{"text": "go", "next": "b",
		"action": {"type": "console", "commands": ["say {player} is ready"]}}]},
	{"id": "b", "text": "Off we go", "action": "close", "inputs": [{"text": "Stay", "action": "noop"}]}
]}`

type fixture struct {
	engine    *palaver.Engine
	host      *memory.Host
	presenter *memory.Presenter
	store     *memory.Store
}

func newFixture(t *testing.T, opts ...palaver.Option) fixture {
	t.Helper()
	f := fixture{
		host:      memory.NewHost("Ann"),
		presenter: memory.NewPresenter(),
		store:     memory.NewStore(),
	}
	loader := memory.NewLoader(map[string]string{
		"bob":     legacyBob,
		"forward": forward,
		"gate":    gate,
		"broken":  `{"pages": [`,
		"empty":   `{"speakers": {}}`,
	})
	base := []palaver.Option{
		palaver.WithLoader(loader),
		palaver.WithHost(f.host),
		palaver.WithPresenter(f.presenter),
		palaver.WithStore(f.store),
	}
	eng, err := palaver.New("", append(base, opts...)...)
	require.NoError(t, err)
	f.engine = eng
	return f
}

func TestEngine_LegacyEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.engine.Open(ctx, "bob", ann)
	require.NoError(t, err)
	assert.Equal(t, "main", view.PageID)
	assert.Equal(t, []string{"Hi Ann"}, view.Lines)
	assert.Equal(t, "Bob", view.Speaker)
	require.Len(t, view.Choices, 2)

	shown, ok := f.presenter.Current("Ann")
	require.True(t, ok)
	assert.Equal(t, view, shown)

	view, err = f.engine.Choose(ctx, "Ann", view.Choices[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "response_0", view.PageID)
	assert.Equal(t, []string{"See ya"}, view.Lines)
	require.Len(t, view.Choices, 1)

	view, err = f.engine.Choose(ctx, "Ann", view.Choices[0].Value)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, view.Status)

	_, ok = f.presenter.Current("Ann")
	assert.False(t, ok, "closing dismisses the UI")
	assert.Empty(t, f.engine.Active())
	_, err = f.store.Load(ctx, "Ann")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestEngine_ForwardReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Open(ctx, "forward", ann)
	require.NoError(t, err)
	view, err := f.engine.Choose(ctx, "Ann", "0")
	require.NoError(t, err)
	assert.Equal(t, "c", view.PageID)
	assert.Equal(t, 2, view.PageIndex)
}

func TestEngine_CommandThenNavigate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Open(ctx, "gate", ann)
	require.NoError(t, err)
	view, err := f.engine.Choose(ctx, "Ann", "0")
	require.NoError(t, err)

	assert.Equal(t, "b", view.PageID)
	assert.Equal(t, []memory.Call{{Kind: "console", Line: "say Ann is ready", AsAdmin: true}}, f.host.Calls())

	view, err = f.engine.Escape(ctx, "Ann")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, view.Status, "page action is the page escape")
}

func TestEngine_LoadFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Open(ctx, "missing", ann)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	_, err = f.engine.Open(ctx, "broken", ann)
	assert.ErrorIs(t, err, domain.ErrDocumentInvalid)

	_, err = f.engine.Open(ctx, "empty", ann)
	assert.ErrorIs(t, err, domain.ErrDocumentInvalid)

	assert.Empty(t, f.engine.Active())
	assert.Empty(t, f.presenter.History())
}

func TestEngine_PresenterFailurePreventsOpen(t *testing.T) {
	f := newFixture(t)
	f.presenter.FailWith(errors.New("no screen"))

	_, err := f.engine.Open(context.Background(), "bob", ann)
	require.Error(t, err)
	assert.Empty(t, f.engine.Active())
}

func TestEngine_NoConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Choose(ctx, "Ann", "0")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	_, err = f.engine.Escape(ctx, "Ann")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	_, err = f.engine.View("Ann")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	assert.ErrorIs(t, f.engine.Close(ctx, "Ann"), domain.ErrConversationNotFound)
}

func TestEngine_UnknownChoiceKeepsPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Open(ctx, "bob", ann)
	require.NoError(t, err)
	_, err = f.engine.Choose(ctx, "Ann", "42")
	assert.ErrorIs(t, err, domain.ErrUnknownChoice)

	view, err := f.engine.View("Ann")
	require.NoError(t, err)
	assert.Equal(t, "main", view.PageID)
}

func TestEngine_OpenReplacesConversation(t *testing.T) {
	var closed []string
	f := newFixture(t, palaver.WithLifecycleHooks(domain.LifecycleHooks{
		OnConversationClose: func(ctx context.Context, e *domain.ConversationEvent) {
			closed = append(closed, e.Document)
		},
	}))
	ctx := context.Background()

	_, err := f.engine.Open(ctx, "bob", ann)
	require.NoError(t, err)
	_, err = f.engine.Open(ctx, "forward", ann)
	require.NoError(t, err)

	assert.Equal(t, []string{"bob"}, closed)
	assert.Equal(t, []string{"Ann"}, f.engine.Active())
	view, err := f.engine.View("Ann")
	require.NoError(t, err)
	assert.Equal(t, "forward", view.Document)
}

func TestEngine_CloseAndResume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Open(ctx, "forward", ann)
	require.NoError(t, err)
	_, err = f.engine.Choose(ctx, "Ann", "0")
	require.NoError(t, err)

	// A second engine over the same store picks the conversation up.
	restarted, err := palaver.New("",
		palaver.WithLoader(memory.NewLoader(map[string]string{"forward": forward})),
		palaver.WithStore(f.store),
	)
	require.NoError(t, err)

	view, err := restarted.Resume(ctx, ann)
	require.NoError(t, err)
	assert.Equal(t, "c", view.PageID)
	assert.Equal(t, []string{"Ann"}, restarted.Active())

	require.NoError(t, restarted.Close(ctx, "Ann"))
	assert.Empty(t, restarted.Active())
	_, err = restarted.Resume(ctx, ann)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestEngine_ResumeDroppedPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, "Ann", &domain.Snapshot{
		ConversationID: "old",
		Document:       "forward",
		Player:         ann,
		PageID:         "gone",
		Status:         domain.StatusActive,
	}))

	_, err := f.engine.Resume(ctx, ann)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	_, err = f.store.Load(ctx, "Ann")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound, "stale snapshots are removed")
}

func TestEngine_Metrics(t *testing.T) {
	m := observability.NewMetrics()
	f := newFixture(t, palaver.WithMetrics(m))
	ctx := context.Background()

	_, err := f.engine.Open(ctx, "gate", ann)
	require.NoError(t, err)
	_, err = f.engine.Choose(ctx, "Ann", "0")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(scrapeMetrics(t, m), `palaver_commands_total{mode="console",outcome="ok"} 1`))
}

func TestEngine_DirectoryLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bob.json"), []byte(legacyBob), 0o644))

	eng, err := palaver.New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	names, err := eng.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, names)

	ok, err := eng.Exists(ctx, "Bob")
	require.NoError(t, err)
	assert.False(t, ok, "names are case-sensitive")

	g1, err := eng.Graph(ctx, "bob")
	require.NoError(t, err)
	g2, err := eng.Graph(ctx, "bob")
	require.NoError(t, err)
	assert.Same(t, g1, g2, "graphs are compiled once")

	eng.Invalidate("bob")
	g3, err := eng.Graph(ctx, "bob")
	require.NoError(t, err)
	assert.NotSame(t, g1, g3)

	_, err = palaver.New("")
	assert.Error(t, err)
}
