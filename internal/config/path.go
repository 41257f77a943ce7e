package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// candidateNames are probed in order when no explicit path is given.
var candidateNames = []string{"config.jsonc", "config.yaml", "config.yml", "config.toml"}

// ResolvePath applies CLI/XDG/home fallback rules for the config location.
// The first existing candidate wins; otherwise the JSONC path is returned.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}

	for _, name := range candidateNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return filepath.Join(dir, candidateNames[0]), nil
}

func configDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "tempest"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", "tempest"), nil
}
