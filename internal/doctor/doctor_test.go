package doctor

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/tempest/internal/config"
	"github.com/rbright/tempest/internal/secure"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckConfigReportsDefaults(t *testing.T) {
	check := checkConfig(config.Loaded{Path: "/tmp/missing.jsonc"})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "using defaults")

	check = checkConfig(config.Loaded{Path: "/tmp/tempest.jsonc", Exists: true})
	require.Contains(t, check.Message, "loaded")
}

func TestCheckDictionaryReportsFingerprint(t *testing.T) {
	check := checkDictionary(config.Default())
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "0 actions, 3 triggers")
	require.Contains(t, check.Message, "fingerprint")
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "asr.command")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "april-stream")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"april-stream", "{model}"}, "asr.command")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "asr.command command is available")
}

func TestCheckDaemonSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tempest.socket")

	check := checkDaemonSocket(context.Background(), path)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "not reachable")

	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	check = checkDaemonSocket(context.Background(), path)
	require.True(t, check.Pass)

	require.False(t, checkDaemonSocket(context.Background(), " ").Pass)
}

func TestCheckToken(t *testing.T) {
	key, err := secure.GenerateKey()
	require.NoError(t, err)

	require.True(t, checkToken(key.String()).Pass)
	require.False(t, checkToken("").Pass)

	bad := checkToken("zz")
	require.False(t, bad.Pass)
	require.Contains(t, bad.Message, "decode key")
}

func TestCheckRecognizerExecNeedsModel(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	cfg := config.Default().ASR
	cfg.Command.Argv = []string{"sh", "-c", "cat {model}"}

	checks := checkRecognizer(cfg)
	require.Len(t, checks, 2)
	require.True(t, checks[0].Pass)
	require.False(t, checks[1].Pass)
	require.Contains(t, checks[1].Message, "tempest model download")

	modelPath := filepath.Join(dataHome, "tempest", "model.april")
	require.NoError(t, os.MkdirAll(filepath.Dir(modelPath), 0o755))
	require.NoError(t, os.WriteFile(modelPath, []byte("april"), 0o600))

	checks = checkRecognizer(cfg)
	require.True(t, checks[1].Pass)
}

func TestCheckRecognizerDeepgramKey(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")
	cfg := config.Default().ASR
	cfg.Backend = "deepgram"

	require.False(t, checkRecognizer(cfg)[0].Pass)

	t.Setenv("DEEPGRAM_API_KEY", "dg-key")
	require.True(t, checkRecognizer(cfg)[0].Pass)
}

func TestCheckOllamaSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	t.Cleanup(server.Close)

	check := checkOllama(context.Background(), "relay.endpoint", strings.TrimPrefix(server.URL, "http://"))
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "reachable")
}

func TestCheckOllamaFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	check := checkOllama(context.Background(), "relay.endpoint", server.URL)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 503")

	require.False(t, checkOllama(context.Background(), "relay.endpoint", "").Pass)
	require.False(t, checkOllama(context.Background(), "relay.endpoint", "http://127.0.0.1:1").Pass)
}

func TestCheckSemanticGenAIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg := config.Default().Semantic
	cfg.Provider = "genai"
	require.False(t, checkSemantic(context.Background(), cfg).Pass)

	cfg.APIKey = "key"
	require.True(t, checkSemantic(context.Background(), cfg).Pass)
}
