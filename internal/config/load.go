package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is a resolved config file and the dictionary settings parsed from it.
type Loaded struct {
	Path     string
	Format   Format
	Config   Config
	Warnings []Warning
	// Exists is false when defaults stand in for a missing file. The daemon
	// only watches files that exist.
	Exists bool
}

// Load resolves the config path and returns validated settings. A missing
// file is not an error: the built-in triggers apply and no actions exist.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	loaded := Loaded{Path: path, Format: FormatForPath(path), Config: Default()}

	content, err := readConfigFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = []Warning{{Message: missingConfigMessage(path, loaded.Config.Triggers)}}
		return loaded, nil
	case err != nil:
		return Loaded{}, err
	}

	cfg, warnings, err := Parse(string(content), loaded.Format, loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	loaded.Config = cfg
	loaded.Warnings = warnings
	loaded.Exists = true
	return loaded, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("stat config %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config %q is a directory", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	return content, nil
}

func missingConfigMessage(path string, triggers TriggerConfig) string {
	return fmt.Sprintf(
		"config file %q not found; using defaults (wake %q, rest %q, dictate %q) with no actions",
		path, triggers.Wake, triggers.Rest, triggers.Dictate,
	)
}
