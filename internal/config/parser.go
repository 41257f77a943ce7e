package config

import (
	"path/filepath"
	"strings"
)

// Format is a supported config file syntax.
type Format string

const (
	FormatJSONC Format = "jsonc"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
)

// FormatForPath picks the syntax from the file extension. Unknown
// extensions are sniffed by Parse.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonc", ".json":
		return FormatJSONC
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return ""
	}
}

// Parse decodes content in format over base, then validates the result.
//
// With no format, content starting with `{` is JSONC and anything else YAML.
func Parse(content string, format Format, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	if format == "" {
		format = FormatYAML
		if strings.HasPrefix(trimmed, "{") {
			format = FormatJSONC
		}
	}

	var (
		payload fileConfig
		err     error
	)
	switch format {
	case FormatJSONC:
		payload, err = decodeJSONC(content)
	case FormatTOML:
		payload, err = decodeTOML(content)
	default:
		payload, err = decodeYAML(content)
	}
	if err != nil {
		return Config{}, nil, err
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}
