// Package action executes resolved phrase actions: commands locally, key
// chords through the privileged daemon.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/rbright/tempest/internal/dictionary"
)

// Sender forwards an action identifier to the daemon.
type Sender interface {
	Send(ctx context.Context, identifier string) error
}

// Dispatcher never returns errors to the inference loop; every failure is
// logged and the action becomes a no-op.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
	start  func(argv []string) (*exec.Cmd, error)

	warnOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Int64
}

// NewDispatcher builds a dispatcher. A nil sender runs in degraded mode:
// key chords are dropped with a one-time warning.
func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger, start: startCommand}
}

// Dispatch executes action for phrase.
func (d *Dispatcher) Dispatch(ctx context.Context, phrase string, action dictionary.Action) {
	switch action.Kind {
	case dictionary.ActionShellCommand:
		d.spawn(phrase, action.Argv)
	case dictionary.ActionKeyChord:
		d.forward(ctx, phrase)
	default:
		d.log(slog.LevelWarn, "unknown action kind", "phrase", phrase, "kind", action.Kind.String())
	}
}

// Wait blocks until every spawned command has been reaped or ctx ends.
// Commands still running when ctx ends are left alone.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for %d running commands: %w", d.Running(), ctx.Err())
	}
}

// Running reports how many spawned commands have not exited yet.
func (d *Dispatcher) Running() int {
	return int(d.running.Load())
}

func (d *Dispatcher) spawn(phrase string, argv []string) {
	cmd, err := d.start(argv)
	if err != nil {
		d.log(slog.LevelError, "spawn command failed", "phrase", phrase, "error", err)
		return
	}
	d.log(slog.LevelInfo, "command started", "phrase", phrase, "pid", cmd.Process.Pid)

	d.wg.Add(1)
	d.running.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.running.Add(-1)
		if err := cmd.Wait(); err != nil {
			d.log(slog.LevelWarn, "command exited with error", "phrase", phrase, "error", err)
			return
		}
		d.log(slog.LevelDebug, "command exited", "phrase", phrase)
	}()
}

func (d *Dispatcher) forward(ctx context.Context, phrase string) {
	if d.sender == nil {
		d.warnOnce.Do(func() {
			d.log(slog.LevelWarn, "daemon unavailable; key chord actions are disabled", "phrase", phrase)
		})
		return
	}
	if err := d.sender.Send(ctx, phrase); err != nil {
		d.log(slog.LevelError, "send action to daemon failed", "phrase", phrase, "error", err)
		return
	}
	d.log(slog.LevelInfo, "action sent to daemon", "phrase", phrase)
}

func (d *Dispatcher) log(level slog.Level, msg string, args ...any) {
	if d.logger == nil {
		return
	}
	d.logger.Log(context.Background(), level, msg, args...)
}

// startCommand launches argv detached from the caller's context; spawned
// programs outlive the utterance that triggered them.
func startCommand(argv []string) (*exec.Cmd, error) {
	if len(argv) == 0 {
		return nil, errors.New("command argv cannot be empty")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command %s: %w", argv[0], err)
	}
	return cmd, nil
}
