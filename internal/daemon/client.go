package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rbright/tempest/internal/secure"
)

// ErrNotConnected is returned when the daemon socket cannot be reached.
var ErrNotConnected = errors.New("daemon not connected")

// TokenEnv names the environment variable holding the token tempestd printed.
const TokenEnv = "TEMPEST_TOKEN"

const writeTimeout = 2 * time.Second

// Client holds a long-lived authenticated connection to the daemon.
type Client struct {
	path   string
	cipher *secure.Cipher
	logger *slog.Logger

	mu   sync.Mutex
	conn net.Conn
}

// Dial connects to the daemon at path and authenticates frames with key.
func Dial(ctx context.Context, path string, key secure.Key, logger *slog.Logger) (*Client, error) {
	c, err := secure.NewCipher(key)
	if err != nil {
		return nil, err
	}
	client := &Client{path: path, cipher: c, logger: logger}
	if err := client.connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: writeTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.path)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrNotConnected, c.path, err)
	}
	c.conn = conn
	return nil
}

// Send seals identifier and writes it as one frame. A broken connection is
// dropped and redialed once on the next call.
func (c *Client) Send(ctx context.Context, identifier string) error {
	frame, err := c.cipher.Seal([]byte(identifier))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return err
		}
		if c.logger != nil {
			c.logger.Info("reconnected to daemon", "socket", c.path)
		}
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.dropLocked()
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := c.conn.Write(frame); err != nil {
		c.dropLocked()
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close releases the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
