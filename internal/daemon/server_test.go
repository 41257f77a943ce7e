package daemon

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rbright/tempest/internal/config"
	"github.com/rbright/tempest/internal/dictionary"
	"github.com/rbright/tempest/internal/keys"
	"github.com/rbright/tempest/internal/secure"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingInjector struct {
	mu        sync.Mutex
	events    []string
	failPress map[keys.Code]bool
}

func (r *recordingInjector) Press(code keys.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "press:"+keys.Name(code))
	if r.failPress[code] {
		return errors.New("device busy")
	}
	return nil
}

func (r *recordingInjector) Release(code keys.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "release:"+keys.Name(code))
	return nil
}

func (r *recordingInjector) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func testDictionary(t *testing.T) *dictionary.Dictionary {
	t.Helper()
	cfg := config.Default()
	cfg.Actions = []config.ActionConfig{
		{Phrase: "launcher", Keys: []string{"LEFTMETA", "DOT"}},
		{Phrase: "console", Command: config.CommandConfig{Argv: []string{"blackbox"}}},
	}
	d, err := dictionary.Compile(cfg)
	require.NoError(t, err)
	return d
}

type harness struct {
	socket   string
	key      secure.Key
	cipher   *secure.Cipher
	server   *Server
	injector *recordingInjector
	cancel   context.CancelFunc
	done     chan error
}

func startServer(t *testing.T) *harness {
	t.Helper()

	key, err := secure.GenerateKey()
	require.NoError(t, err)
	c, err := secure.NewCipher(key)
	require.NoError(t, err)

	socket := filepath.Join(t.TempDir(), "tempest.socket")
	listener, err := Listen(socket)
	require.NoError(t, err)

	injector := &recordingInjector{}
	server := NewServer(nil, c, injector, testDictionary(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, listener) }()

	h := &harness{socket: socket, key: key, cipher: c, server: server, injector: injector, cancel: cancel, done: done}
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
	h.cancel = nil
}

func seal(t *testing.T, c *secure.Cipher, identifier string) []byte {
	t.Helper()
	frame, err := c.Seal([]byte(identifier))
	require.NoError(t, err)
	return frame
}

func TestChordPressesInOrderAndReleasesInReverse(t *testing.T) {
	injector := &recordingInjector{}
	Chord(injector, []keys.Code{125, 52}, nil)

	require.Equal(t, []string{
		"press:LEFTMETA",
		"press:DOT",
		"release:DOT",
		"release:LEFTMETA",
	}, injector.Events())
}

func TestChordContinuesAfterKeyFailure(t *testing.T) {
	injector := &recordingInjector{failPress: map[keys.Code]bool{125: true}}
	Chord(injector, []keys.Code{125, 52}, nil)

	require.Len(t, injector.Events(), 4)
}

func TestServeSurvivesBadFramesOnSameConnection(t *testing.T) {
	h := startServer(t)

	staleKey, err := secure.GenerateKey()
	require.NoError(t, err)
	stale, err := secure.NewCipher(staleKey)
	require.NoError(t, err)

	conn, err := net.Dial("unix", h.socket)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(seal(t, stale, "launcher"))
	require.NoError(t, err)
	_, err = conn.Write([]byte("not-hex-at-all\n"))
	require.NoError(t, err)
	_, err = conn.Write(seal(t, h.cipher, "launcher"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.server.Stats().Executed == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, int64(2), h.server.Stats().Rejected)
	require.Equal(t, []string{
		"press:LEFTMETA",
		"press:DOT",
		"release:DOT",
		"release:LEFTMETA",
	}, h.injector.Events())
}

func TestServeIgnoresUnknownAndNonChordIdentifiers(t *testing.T) {
	h := startServer(t)

	conn, err := net.Dial("unix", h.socket)
	require.NoError(t, err)
	defer conn.Close()

	for _, identifier := range []string{"no such phrase", "console", "launcher"} {
		_, err = conn.Write(seal(t, h.cipher, identifier))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return h.server.Stats().Executed == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, int64(2), h.server.Stats().Ignored)
	require.Zero(t, h.server.Stats().Rejected)
}

func TestServeDiscardsOversizedFrames(t *testing.T) {
	h := startServer(t)

	conn, err := net.Dial("unix", h.socket)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(strings.Repeat("a", maxFrameBytes*2) + "\n"))
	require.NoError(t, err)
	_, err = conn.Write(seal(t, h.cipher, "launcher"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.server.Stats().Executed == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, int64(1), h.server.Stats().Rejected)
}

func TestServeHandlesConnectionsSequentially(t *testing.T) {
	h := startServer(t)

	first, err := net.Dial("unix", h.socket)
	require.NoError(t, err)
	second, err := net.Dial("unix", h.socket)
	require.NoError(t, err)
	defer second.Close()

	_, err = second.Write(seal(t, h.cipher, "launcher"))
	require.NoError(t, err)

	// The second connection waits in the backlog while the first is open.
	time.Sleep(100 * time.Millisecond)
	require.Zero(t, h.server.Stats().Executed)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool {
		return h.server.Stats().Executed == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeReturnsOnCancelWithActiveConnection(t *testing.T) {
	h := startServer(t)

	conn, err := net.Dial("unix", h.socket)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(seal(t, h.cipher, "launcher"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return h.server.Stats().Executed == 1
	}, 2*time.Second, 10*time.Millisecond)

	h.cancel()
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	h.cancel = nil
}

func TestSetDictionarySwapsResolution(t *testing.T) {
	h := startServer(t)

	cfg := config.Default()
	cfg.Actions = []config.ActionConfig{{Phrase: "screenshot", Keys: []string{"PRINT"}}}
	next, err := dictionary.Compile(cfg)
	require.NoError(t, err)
	h.server.SetDictionary(next)
	h.server.SetDictionary(nil)
	require.Same(t, next, h.server.Dictionary())

	h.server.HandleFrame(seal(t, h.cipher, "launcher"))
	h.server.HandleFrame(seal(t, h.cipher, "screenshot"))

	require.Equal(t, []string{"press:PRINT", "release:PRINT"}, h.injector.Events())
}

func TestClientSendDeliversFramesAndRedials(t *testing.T) {
	h := startServer(t)

	client, err := Dial(context.Background(), h.socket, h.key, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send(context.Background(), "launcher"))
	require.Eventually(t, func() bool {
		return h.server.Stats().Executed == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Close())
	require.NoError(t, client.Send(context.Background(), "launcher"))
	require.Eventually(t, func() bool {
		return h.server.Stats().Executed == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDialFailsWhenDaemonMissing(t *testing.T) {
	key, err := secure.GenerateKey()
	require.NoError(t, err)

	_, err = Dial(context.Background(), filepath.Join(t.TempDir(), "missing.socket"), key, nil)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestListenReplacesStaleSocketWithOpenPermissions(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "run", "tempest.socket")
	require.NoError(t, os.MkdirAll(filepath.Dir(socket), 0o755))
	require.NoError(t, os.WriteFile(socket, []byte("stale"), 0o600))

	listener, err := Listen(socket)
	require.NoError(t, err)
	defer listener.Close()

	info, err := os.Stat(socket)
	require.NoError(t, err)
	require.Equal(t, os.ModeSocket, info.Mode().Type())
	require.Equal(t, os.FileMode(0o622), info.Mode().Perm())
}
