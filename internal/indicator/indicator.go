// Package indicator surfaces mode changes as desktop notifications and audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/rbright/tempest/internal/config"
	"github.com/rbright/tempest/internal/fsm"
)

const notifyTimeout = 400 * time.Millisecond

// Notifier is the indicator used by the recognizer session.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	notify func(title string, message string) error
	cue    func(samples []int16) error

	mu       sync.Mutex
	last     fsm.State
	soundMu  sync.Mutex
	inflight sync.WaitGroup
}

// New creates a notifier from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		notify: func(title string, message string) error {
			return beeep.Notify(title, message, "")
		},
		cue: playChime,
	}
}

// ModeChanged announces the new mode. Repeated calls for the same mode are
// collapsed into one notification.
func (n *Notifier) ModeChanged(ctx context.Context, mode fsm.State) {
	n.mu.Lock()
	repeated := n.last == mode
	n.last = mode
	n.mu.Unlock()
	if repeated {
		return
	}

	n.playCue(cueFor(mode))
	if !n.cfg.Enable {
		return
	}

	text := n.messages.forMode(mode)
	if text == "" {
		return
	}
	n.run(ctx, func() error {
		return n.notify(n.title(), text)
	})
}

// Wait blocks until queued audio cues have finished.
func (n *Notifier) Wait() {
	n.inflight.Wait()
}

func (n *Notifier) title() string {
	title := strings.TrimSpace(n.cfg.AppName)
	if title == "" {
		return "tempest"
	}
	return title
}

// run bounds a notification call; a slow notification daemon must never
// stall the inference loop.
func (n *Notifier) run(ctx context.Context, fn func() error) {
	runCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		if err != nil {
			n.log("indicator notify failed", err)
		}
	case <-runCtx.Done():
		n.log("indicator notify timed out", runCtx.Err())
	}
}

// playCue plays samples in the background, one cue at a time.
func (n *Notifier) playCue(samples []int16) {
	if !n.cfg.Sound || len(samples) == 0 {
		return
	}

	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.cue(samples); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
