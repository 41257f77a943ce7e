package action

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/tempest/internal/dictionary"
	"github.com/rbright/tempest/internal/keys"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *recordingSender) Send(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, identifier)
	return s.err
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newLogger(out *syncBuffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestDispatchSpawnsShellCommand(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	d := NewDispatcher(nil, nil)

	d.Dispatch(context.Background(), "console", dictionary.Action{
		Kind: dictionary.ActionShellCommand,
		Argv: []string{"/bin/sh", "-c", "echo ok > " + marker},
	})
	require.NoError(t, d.Wait(context.Background()))

	contents, err := os.ReadFile(marker)
	require.NoError(t, err)
	require.Equal(t, "ok\n", string(contents))
}

func TestDispatchLogsSpawnFailure(t *testing.T) {
	var out syncBuffer
	d := NewDispatcher(nil, newLogger(&out))

	d.Dispatch(context.Background(), "console", dictionary.Action{
		Kind: dictionary.ActionShellCommand,
		Argv: []string{"/nonexistent/blackbox"},
	})
	require.NoError(t, d.Wait(context.Background()))
	require.Contains(t, out.String(), "spawn command failed")
}

func TestWaitReturnsWhileCommandKeepsRunning(t *testing.T) {
	d := NewDispatcher(nil, nil)

	d.Dispatch(context.Background(), "console", dictionary.Action{
		Kind: dictionary.ActionShellCommand,
		Argv: []string{"sleep", "5"},
	})
	require.Equal(t, 1, d.Running())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := d.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, 1, d.Running())
}

func TestDispatchForwardsChordIdentifier(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, nil)

	chord := dictionary.Action{Kind: dictionary.ActionKeyChord, Keys: []keys.Code{125, 52}}
	d.Dispatch(context.Background(), "launcher", chord)
	d.Dispatch(context.Background(), "launcher", chord)
	require.Equal(t, []string{"launcher", "launcher"}, sender.sent)
}

func TestDispatchSendFailureIsLogged(t *testing.T) {
	var out syncBuffer
	sender := &recordingSender{err: errors.New("broken pipe")}
	d := NewDispatcher(sender, newLogger(&out))

	d.Dispatch(context.Background(), "launcher", dictionary.Action{Kind: dictionary.ActionKeyChord})
	require.Contains(t, out.String(), "send action to daemon failed")
	require.Contains(t, out.String(), "broken pipe")
}

func TestDispatchWithoutDaemonWarnsOnce(t *testing.T) {
	var out syncBuffer
	d := NewDispatcher(nil, newLogger(&out))

	for i := 0; i < 3; i++ {
		d.Dispatch(context.Background(), "launcher", dictionary.Action{Kind: dictionary.ActionKeyChord})
	}
	require.Equal(t, 1, strings.Count(out.String(), "daemon unavailable"))
}
