// Package embedding provides the text -> vector collaborators used by the
// semantic fallback matcher: a local Ollama server, Google GenAI, and an
// optional sqlite-backed cache in front of either.
package embedding

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rbright/tempest/internal/config"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
}

// New builds the configured embedder, wrapped in a cache when cfg.CachePath is set.
// The returned close function releases the cache and client.
func New(ctx context.Context, cfg config.SemanticConfig) (Embedder, func() error, error) {
	var (
		engine Embedder
		err    error
	)
	switch cfg.Provider {
	case "ollama":
		engine = NewOllama(cfg.Endpoint, cfg.Model)
	case "genai":
		key := cfg.APIKey
		if key == "" {
			key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		}
		engine, err = NewGenAI(ctx, key, cfg.Model)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if strings.TrimSpace(cfg.CachePath) == "" {
		return engine, func() error { return nil }, nil
	}

	cache, err := OpenCache(cfg.CachePath, engine)
	if err != nil {
		return nil, nil, err
	}
	return cache, cache.Close, nil
}
