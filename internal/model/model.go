// Package model locates and downloads the offline recognizer model.
package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	FileName      = "model.april"
	PresetLow     = "low"
	PresetHigh    = "high"
	DefaultPreset = PresetHigh
)

var presets = map[string]string{
	PresetLow:  "https://april.sapples.net/aprilv0_en-us.april",
	PresetHigh: "https://april.sapples.net/april-english-dev-01110_en.april",
}

// PresetDescriptions explains each preset for help output.
var PresetDescriptions = map[string]string{
	PresetLow:  "low precision model that tolerates poor quality audio input",
	PresetHigh: "high precision model that requires good quality audio input",
}

// Presets lists preset names in a stable order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// URL resolves a preset name to its download location.
func URL(preset string) (string, error) {
	preset = strings.ToLower(strings.TrimSpace(preset))
	if preset == "" {
		preset = DefaultPreset
	}
	url, ok := presets[preset]
	if !ok {
		return "", fmt.Errorf("unknown model preset %q (choose one of %s)", preset, strings.Join(Presets(), ", "))
	}
	return url, nil
}

// DefaultPath returns $XDG_DATA_HOME/tempest/model.april.
func DefaultPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "tempest", FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for data: %w", err)
	}
	return filepath.Join(home, ".local", "share", "tempest", FileName), nil
}

// Resolve returns configured when non-empty, else DefaultPath.
func Resolve(configured string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return DefaultPath()
	}
	if configured == "~" || strings.HasPrefix(configured, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(configured, "~")), nil
	}
	return configured, nil
}

// Exists reports whether path names a non-empty regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Downloader fetches a model into place. The destination is only replaced
// once the whole body has been written.
type Downloader struct {
	HTTP     *http.Client
	Progress io.Writer
	Interval time.Duration
}

// Download streams url into dest and returns the number of bytes written.
func (d Downloader) Download(ctx context.Context, url string, dest string) (int64, error) {
	client := d.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download model: unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp model file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	progress := newProgress(d.Progress, resp.ContentLength, d.Interval)
	written, err := io.Copy(io.MultiWriter(tmp, progress), resp.Body)
	progress.finish()
	if err != nil {
		return written, fmt.Errorf("write model: %w", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return written, fmt.Errorf("write model: short body (%d of %d bytes)", written, resp.ContentLength)
	}

	if err := tmp.Sync(); err != nil {
		return written, fmt.Errorf("sync model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return written, fmt.Errorf("close model: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return written, fmt.Errorf("install model: %w", err)
	}
	committed = true
	return written, nil
}

// progress renders a single updating status line.
type progress struct {
	out      io.Writer
	total    int64
	interval time.Duration

	mu      sync.Mutex
	written int64
	last    time.Time
}

func newProgress(out io.Writer, total int64, interval time.Duration) *progress {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &progress{out: out, total: total, interval: interval}
}

func (p *progress) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written += int64(len(b))
	if p.out != nil && time.Since(p.last) >= p.interval {
		p.draw()
	}
	return len(b), nil
}

func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return
	}
	p.draw()
	_, _ = fmt.Fprintln(p.out)
}

func (p *progress) draw() {
	p.last = time.Now()
	_, _ = fmt.Fprintf(p.out, "\r%s", p.line())
}

func (p *progress) line() string {
	if p.total <= 0 {
		return fmt.Sprintf("downloading model: %s", humanize.IBytes(uint64(p.written)))
	}
	percent := float64(p.written) / float64(p.total) * 100
	return fmt.Sprintf("downloading model: %s / %s (%.0f%%)",
		humanize.IBytes(uint64(p.written)), humanize.IBytes(uint64(p.total)), percent)
}
