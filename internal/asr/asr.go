// Package asr adapts speech recognizers into ordered transcript event streams.
package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rbright/tempest/internal/config"
	"github.com/rbright/tempest/internal/transcript"
)

// ErrModelMissing reports that the exec backend needs a model file that is absent.
var ErrModelMissing = errors.New("recognizer model not found")

// Source streams PCM audio into a recognizer and emits transcript events in
// recognizer order. Run returns when audio is closed, the recognizer ends, or
// ctx is done. A canceled ctx is not an error.
type Source interface {
	Run(ctx context.Context, audio <-chan []byte, events chan<- transcript.Event) error
}

// New builds the configured backend.
func New(cfg config.ASRConfig, modelPath string, logger *slog.Logger) (Source, error) {
	switch cfg.Backend {
	case "exec":
		argv := ExpandModel(cfg.Command.Argv, modelPath)
		if len(argv) == 0 {
			return nil, errors.New("asr.command is empty")
		}
		return &Exec{Argv: argv, Logger: logger}, nil
	case "deepgram":
		key := cfg.Deepgram.APIKey
		if key == "" {
			key = strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY"))
		}
		if key == "" {
			return nil, errors.New("deepgram api key is not configured")
		}
		return &Deepgram{
			URL:      cfg.Deepgram.URL,
			APIKey:   key,
			Model:    cfg.Deepgram.Model,
			Language: cfg.Deepgram.Language,
			Logger:   logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown asr backend %q", cfg.Backend)
	}
}

// ExpandModel substitutes {model} in every argument.
func ExpandModel(argv []string, modelPath string) []string {
	out := make([]string, 0, len(argv))
	for _, arg := range argv {
		out = append(out, strings.ReplaceAll(arg, "{model}", modelPath))
	}
	return out
}

// NeedsModel reports whether argv references the {model} placeholder.
func NeedsModel(argv []string) bool {
	for _, arg := range argv {
		if strings.Contains(arg, "{model}") {
			return true
		}
	}
	return false
}

// emit delivers ev unless ctx ends first.
func emit(ctx context.Context, events chan<- transcript.Event, ev transcript.Event) error {
	select {
	case events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cleanSegment normalizes transcript whitespace.
func cleanSegment(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
