package embedding

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Cache memoizes vectors per (engine, text) in a sqlite file so phrase
// embeddings survive restarts.
type Cache struct {
	db     *sql.DB
	engine Embedder
}

// OpenCache opens or creates the cache at path in front of engine.
func OpenCache(path string, engine Embedder) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create embedding cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	const schema = `
	CREATE TABLE IF NOT EXISTS embeddings (
		engine TEXT NOT NULL,
		text TEXT NOT NULL,
		vector BLOB NOT NULL,
		PRIMARY KEY (engine, text)
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init embedding cache schema: %w", err)
	}
	return &Cache{db: db, engine: engine}, nil
}

// Embed returns the cached vector or computes and stores it.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	name := c.engine.Name()

	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE engine = ? AND text = ?`, name, text).Scan(&blob)
	switch {
	case err == nil:
		if vector, decodeErr := decodeVector(blob); decodeErr == nil {
			return vector, nil
		}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("read embedding cache: %w", err)
	}

	vector, err := c.engine.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (engine, text, vector) VALUES (?, ?, ?)`,
		name, text, encodeVector(vector),
	)
	if err != nil {
		return nil, fmt.Errorf("write embedding cache: %w", err)
	}
	return vector, nil
}

// Name implements Embedder.
func (c *Cache) Name() string {
	return c.engine.Name()
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

func encodeVector(vector []float32) []byte {
	out := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob of %d bytes", len(blob))
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return out, nil
}
