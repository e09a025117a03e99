package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/palaver"
	palaverhttp "github.com/aretw0/palaver/pkg/adapters/http"
	"github.com/aretw0/palaver/pkg/adapters/memory"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greeter = `{"speakers": {"npc": {"name": "Greeter"}},
"pages": [
	{"id": "hello", "speaker": "npc", "text": "Hello <player>", "inputs": [
		{"text": "Next", "next": "bye"},
		{"text": "Leave", "action": "close"}
	]},
	{"id": "bye", "speaker": "npc", "text": "Bye", "inputs": [{"text": "Ok", "action": "close"}]},
	{"id": "lost", "text": "Nobody comes here"}
]}`

func newServer(t *testing.T) (http.Handler, *palaver.Engine) {
	t.Helper()
	eng, err := palaver.New("",
		palaver.WithLoader(memory.NewLoader(map[string]string{
			"greeter": greeter,
			"broken":  `{"pages": [`,
		})),
		palaver.WithHost(memory.NewHost("Ann")),
		palaver.WithStore(memory.NewStore()),
	)
	require.NoError(t, err)
	return palaverhttp.NewHandler(eng), eng
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) domain.View {
	t.Helper()
	var view domain.View
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	return view
}

func TestGetHealth(t *testing.T) {
	h, _ := newServer(t)
	w := do(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetInfo(t *testing.T) {
	h, _ := newServer(t)
	w := do(t, h, http.MethodGet, "/info", "")

	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, "palaver-http", info["app"])
	assert.Equal(t, palaver.Version, info["version"])
}

func TestOptionsPreflight(t *testing.T) {
	h, _ := newServer(t)
	w := do(t, h, http.MethodOptions, "/conversations", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDocuments(t *testing.T) {
	h, _ := newServer(t)

	w := do(t, h, http.MethodGet, "/documents", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["broken","greeter"]`, w.Body.String())

	w = do(t, h, http.MethodGet, "/documents/greeter", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info palaverhttp.DocumentInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, "greeter", info.Name)
	require.Len(t, info.Pages, 3)
	assert.Equal(t, palaverhttp.PageInfo{ID: "hello", Speaker: "npc", Choices: 2}, info.Pages[0])
	assert.Equal(t, []string{"lost"}, info.Unreachable)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/documents/nope", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, http.MethodGet, "/documents/broken", "").Code)
}

func TestConversationFlow(t *testing.T) {
	h, _ := newServer(t)

	w := do(t, h, http.MethodPost, "/conversations", `{"document":"greeter","player":{"id":"a1","username":"Ann"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decodeView(t, w)
	assert.Equal(t, "hello", view.PageID)
	assert.Equal(t, "Greeter", view.Speaker)
	assert.Equal(t, []string{"Hello Ann"}, view.Lines)

	w = do(t, h, http.MethodGet, "/conversations", "")
	assert.JSONEq(t, `["Ann"]`, w.Body.String())

	w = do(t, h, http.MethodGet, "/conversations/Ann", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", decodeView(t, w).PageID)

	w = do(t, h, http.MethodPost, "/conversations/Ann/choose", `{"value":"7"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/conversations/Ann/choose", `{"value":"0"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bye", decodeView(t, w).PageID)

	w = do(t, h, http.MethodPost, "/conversations/Ann/resume", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bye", decodeView(t, w).PageID)

	w = do(t, h, http.MethodPost, "/conversations/Ann/escape", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusClosed, decodeView(t, w).Status)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/conversations/Ann", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/conversations/Ann/resume", "").Code)
}

func TestCloseConversation(t *testing.T) {
	h, eng := newServer(t)
	_, err := eng.Open(context.Background(), "greeter", domain.Identity{ID: "a1", Username: "Ann"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/conversations/Ann", "").Code)
	assert.Empty(t, eng.Active())
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/conversations/Ann", "").Code)
}

func TestOpenConversation_BadRequests(t *testing.T) {
	h, _ := newServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/conversations", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/conversations", `{"document":"greeter"}`).Code)
	assert.Equal(t, http.StatusNotFound,
		do(t, h, http.MethodPost, "/conversations", `{"document":"nope","player":{"username":"Ann"}}`).Code)
}

func TestMetricsAndSocketMounts(t *testing.T) {
	eng, err := palaver.New("", palaver.WithLoader(memory.NewLoader(nil)))
	require.NoError(t, err)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mounted"))
	})
	h := palaverhttp.NewHandler(eng, palaverhttp.WithMetrics(ok), palaverhttp.WithWebSocket(ok))

	assert.Equal(t, "mounted", do(t, h, http.MethodGet, "/metrics", "").Body.String())
	assert.Equal(t, "mounted", do(t, h, http.MethodGet, "/ws/Ann", "").Body.String())
}

func TestSubscribeEvents_Unsupported(t *testing.T) {
	h, _ := newServer(t)
	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodGet, "/events", "").Code)
}

func TestSubscribeEvents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.json"), []byte(greeter), 0644))
	eng, err := palaver.New(dir)
	require.NoError(t, err)

	srv := httptest.NewServer(palaverhttp.NewHandler(eng))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	next := func() string {
		select {
		case l, ok := <-lines:
			require.True(t, ok, "stream ended")
			return l
		case <-ctx.Done():
			t.Fatal("timed out waiting for event")
			return ""
		}
	}

	assert.Equal(t, "event: ping", next())
	assert.Equal(t, "data: connected", next())
	assert.Equal(t, "", next())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.json"), []byte(greeter), 0644))
	assert.Equal(t, "event: document", next())
	assert.Equal(t, "data: greeter", next())
}
