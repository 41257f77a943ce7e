package daemon

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// DefaultSocketPath is the well-known daemon socket.
const DefaultSocketPath = "/run/tempest.socket"

// socketMode lets any local user connect; authorization is the shared key.
const socketMode os.FileMode = 0o622

// Listen removes a stale socket file at path, binds it, and opens its
// permissions so unprivileged clients can connect.
func Listen(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure socket dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}
	if err := os.Chmod(path, socketMode); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket %s: %w", path, err)
	}
	return listener, nil
}
