package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/aretw0/palaver/pkg/adapters/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("handlers in these tests are POSIX shell scripts")
	}
}

func recordingHost(t *testing.T) (*process.Host, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "calls.log")
	script := `echo "$PALAVER_OP|$PALAVER_PLAYER|$PALAVER_COMMAND$PALAVER_MESSAGE|$PALAVER_ELEVATED" >> "$OUT"`
	handlers := map[string]process.ProcessConfig{}
	for _, op := range []string{
		process.HandlerPlayer, process.HandlerConsole, process.HandlerBroadcast,
		process.HandlerWhisper, process.HandlerElevate,
	} {
		handlers[op] = process.ProcessConfig{
			Name:        op,
			Command:     "sh",
			Args:        []string{"-c", script},
			Environment: map[string]string{"OUT": out},
		}
	}
	return process.NewHost(process.WithHandlers(handlers)), out
}

func readCalls(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestHost_PassesArgumentsThroughEnvironment(t *testing.T) {
	requireShell(t)
	h, out := recordingHost(t)
	ctx := context.Background()

	require.NoError(t, h.SetElevated("ash", true))
	require.NoError(t, h.RunAsPlayer(ctx, "ash", "give ash potion; rm -rf /"))
	require.NoError(t, h.SetElevated("ash", false))
	require.NoError(t, h.RunAsConsole(ctx, "time set day"))
	require.NoError(t, h.Broadcast(ctx, "hello"))
	require.NoError(t, h.Whisper(ctx, "ash", "psst"))

	assert.Equal(t, []string{
		"elevate|ash||true",
		"player|ash|give ash potion; rm -rf /|true",
		"elevate|ash||false",
		"console||time set day|",
		"broadcast||hello|",
		"whisper|ash|psst|",
	}, readCalls(t, out))
	assert.False(t, h.IsElevated("ash"))
}

func TestHost_Online(t *testing.T) {
	requireShell(t)
	h := process.NewHost()
	assert.True(t, h.IsOnline("anyone"), "no online handler means online")

	h.Register(process.HandlerOnline, "sh", "-c", `test "$PALAVER_PLAYER" = ash`)
	assert.True(t, h.IsOnline("ash"))
	assert.False(t, h.IsOnline("gary"))
}

func TestHost_Failures(t *testing.T) {
	requireShell(t)
	h := process.NewHost()
	ctx := context.Background()

	err := h.RunAsConsole(ctx, "say hi")
	assert.ErrorIs(t, err, process.ErrNoHandler)

	h.Register(process.HandlerConsole, "sh", "-c", "echo nope >&2; exit 3")
	err = h.RunAsConsole(ctx, "say hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	h.Register(process.HandlerElevate, "false")
	assert.Error(t, h.SetElevated("ash", true))
	assert.False(t, h.IsElevated("ash"))
}

func TestLoadHandlers(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "host.yaml")
	require.NoError(t, os.WriteFile(yml, []byte(`handlers:
  - name: console
    command: rcon
    args: ["-H", "localhost"]
    env:
      RCON_PASSWORD: secret
  - name: broken
`), 0o644))

	handlers, err := process.LoadHandlers(yml)
	require.NoError(t, err)
	require.Len(t, handlers, 1)
	assert.Equal(t, "rcon", handlers["console"].Command)
	assert.Equal(t, []string{"-H", "localhost"}, handlers["console"].Args)
	assert.Equal(t, "secret", handlers["console"].Environment["RCON_PASSWORD"])

	js := filepath.Join(dir, "host.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"handlers": [{"name": "whisper", "command": "msg"}]}`), 0o644))
	handlers, err = process.LoadHandlers(js)
	require.NoError(t, err)
	assert.Contains(t, handlers, "whisper")

	handlers, err = process.LoadHandlers(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, handlers)
}
