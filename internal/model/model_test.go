package model

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestURLResolvesPresets(t *testing.T) {
	tests := []struct {
		preset string
		want   string
	}{
		{preset: "", want: presets[PresetHigh]},
		{preset: "high", want: "https://april.sapples.net/april-english-dev-01110_en.april"},
		{preset: " LOW ", want: "https://april.sapples.net/aprilv0_en-us.april"},
	}
	for _, tc := range tests {
		got, err := URL(tc.preset)
		require.NoError(t, err, tc.preset)
		require.Equal(t, tc.want, got)
	}

	_, err := URL("medium")
	require.ErrorContains(t, err, "high, low")
}

func TestDefaultPathUsesXDGDataHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	path, err := DefaultPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "tempest", "model.april"), path)
}

func TestDefaultPathFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", home)

	path, err := DefaultPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "share", "tempest", "model.april"), path)
}

func TestResolveExpandsHomeAndKeepsExplicitPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := Resolve("~/models/en.april")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "models", "en.april"), path)

	path, err = Resolve("/opt/en.april")
	require.NoError(t, err)
	require.Equal(t, "/opt/en.april", path)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.False(t, Exists(path))

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	require.False(t, Exists(path), "empty file is not a model")

	require.NoError(t, os.WriteFile(path, []byte("model"), 0o600))
	require.True(t, Exists(path))
	require.False(t, Exists(dir))
}

func TestDownloadWritesFileAndReportsProgress(t *testing.T) {
	body := strings.Repeat("x", 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "nested", FileName)
	var progressOut bytes.Buffer

	n, err := Downloader{Progress: &progressOut}.Download(context.Background(), server.URL, dest)
	require.NoError(t, err)
	require.Equal(t, int64(len(body)), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, body, string(data))
	require.Contains(t, progressOut.String(), "downloading model: 4.0 KiB")
	require.True(t, strings.HasSuffix(progressOut.String(), "\n"))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(dest), "*.part"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestDownloadKeepsExistingModelOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(dest, []byte("previous"), 0o600))

	_, err := Downloader{}.Download(context.Background(), server.URL, dest)
	require.ErrorContains(t, err, "unexpected status")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "previous", string(data))
}

func TestProgressLine(t *testing.T) {
	p := newProgress(nil, 2048, 0)
	_, _ = p.Write(make([]byte, 1024))
	require.Equal(t, "downloading model: 1.0 KiB / 2.0 KiB (50%)", p.line())

	unknown := newProgress(nil, -1, 0)
	_, _ = unknown.Write(make([]byte, 10))
	require.Equal(t, "downloading model: 10 B", unknown.line())
}
