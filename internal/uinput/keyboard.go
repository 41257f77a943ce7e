// Package uinput provides the virtual keyboard the daemon injects chords into.
package uinput

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
	"github.com/rbright/tempest/internal/keys"
)

// DevicePath is the kernel uinput node the virtual keyboard is created on.
const DevicePath = "/dev/uinput"

// Keyboard is a uinput-backed virtual keyboard. Linux evdev codes are used
// as-is since keybd_event's Linux key constants share that numbering.
type Keyboard struct {
	mu sync.Mutex
	kb keybd_event.KeyBonding
}

// Open creates the virtual device and waits settle for the input stack to
// pick it up; events sent before then are dropped by most compositors.
func Open(settle time.Duration) (*Keyboard, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	if settle > 0 {
		time.Sleep(settle)
	}
	return &Keyboard{kb: kb}, nil
}

// Press sends a key-down event.
func (k *Keyboard) Press(code keys.Code) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kb.SetKeys(int(code))
	if err := k.kb.Press(); err != nil {
		return fmt.Errorf("press %s: %w", keys.Name(code), err)
	}
	return nil
}

// Release sends a key-up event.
func (k *Keyboard) Release(code keys.Code) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kb.SetKeys(int(code))
	if err := k.kb.Release(); err != nil {
		return fmt.Errorf("release %s: %w", keys.Name(code), err)
	}
	return nil
}

// Available reports whether the uinput node exists and is writable by this process.
func Available() error {
	f, err := os.OpenFile(DevicePath, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", DevicePath, err)
	}
	return f.Close()
}

// DryRun logs key events instead of injecting them.
type DryRun struct {
	Logger *slog.Logger
}

func (d DryRun) Press(code keys.Code) error {
	d.log("press", code)
	return nil
}

func (d DryRun) Release(code keys.Code) error {
	d.log("release", code)
	return nil
}

func (d DryRun) log(event string, code keys.Code) {
	if d.Logger == nil {
		return
	}
	d.Logger.Info("dry-run key event", "event", event, "key", keys.Name(code))
}
