package config

import (
	"fmt"
	"strings"

	"github.com/rbright/tempest/internal/keys"
)

// NormalizePhrase case-folds phrase and collapses whitespace runs.
func NormalizePhrase(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	triggers, err := validateTriggers(cfg.Triggers)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int, len(cfg.Actions))
	for i, action := range cfg.Actions {
		phrase := NormalizePhrase(action.Phrase)
		if phrase == "" {
			return nil, fmt.Errorf("actions[%d].phrase must not be empty", i)
		}
		if first, exists := seen[phrase]; exists {
			return nil, fmt.Errorf("actions[%d].phrase %q duplicates actions[%d]", i, phrase, first)
		}
		seen[phrase] = i

		hasKeys := len(action.Keys) > 0
		hasCommand := len(action.Command.Argv) > 0
		switch {
		case hasKeys && hasCommand:
			return nil, fmt.Errorf("actions[%d]: keys and command are mutually exclusive", i)
		case !hasKeys && !hasCommand:
			if action.Command.Raw != "" {
				return nil, fmt.Errorf("actions[%d].command is configured but empty", i)
			}
			return nil, fmt.Errorf("actions[%d]: one of keys or command is required", i)
		case hasKeys:
			if _, err := keys.Resolve(action.Keys); err != nil {
				return nil, fmt.Errorf("actions[%d].keys: %w", i, err)
			}
		}

		if label, overlaps := triggers[phrase]; overlaps {
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("action phrase %q is also the %s trigger; the trigger takes effect first", phrase, label),
			})
		}
	}

	switch cfg.ASR.Backend {
	case "exec":
		if len(cfg.ASR.Command.Argv) == 0 {
			return nil, fmt.Errorf("asr.command must not be empty when asr.backend=exec")
		}
	case "deepgram":
		if strings.TrimSpace(cfg.ASR.Deepgram.URL) == "" {
			return nil, fmt.Errorf("asr.deepgram.url must not be empty")
		}
		if cfg.ASR.Deepgram.APIKey == "" {
			warnings = append(warnings, Warning{Message: "asr.deepgram.api_key is empty; falling back to DEEPGRAM_API_KEY"})
		}
	default:
		return nil, fmt.Errorf("asr.backend must be one of: exec, deepgram")
	}

	if cfg.Semantic.Enable {
		if cfg.Semantic.Threshold <= 0 || cfg.Semantic.Threshold > 1 {
			return nil, fmt.Errorf("semantic.threshold must be in (0, 1]")
		}
		switch cfg.Semantic.Provider {
		case "ollama":
			if strings.TrimSpace(cfg.Semantic.Endpoint) == "" {
				return nil, fmt.Errorf("semantic.endpoint must not be empty when semantic.provider=ollama")
			}
		case "genai":
		default:
			return nil, fmt.Errorf("semantic.provider must be one of: ollama, genai")
		}
		if strings.TrimSpace(cfg.Semantic.Model) == "" {
			return nil, fmt.Errorf("semantic.model must not be empty")
		}
	}

	if cfg.Relay.Enable {
		if strings.TrimSpace(cfg.Relay.Endpoint) == "" {
			return nil, fmt.Errorf("relay.endpoint must not be empty")
		}
		if strings.TrimSpace(cfg.Relay.Model) == "" {
			return nil, fmt.Errorf("relay.model must not be empty")
		}
	}
	if cfg.Relay.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("relay.timeout_seconds must be > 0")
	}

	if strings.TrimSpace(cfg.Daemon.Socket) == "" {
		return nil, fmt.Errorf("daemon.socket must not be empty")
	}
	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.AppName) == "" {
		return nil, fmt.Errorf("indicator.app_name must not be empty when indicator.enable=true")
	}

	return warnings, nil
}

// validateTriggers returns normalized trigger phrases keyed to their labels.
func validateTriggers(t TriggerConfig) (map[string]string, error) {
	type entry struct {
		label  string
		phrase string
	}
	entries := []entry{
		{label: "wake", phrase: t.Wake},
		{label: "rest", phrase: t.Rest},
		{label: "dictate", phrase: t.Dictate},
	}
	for i, custom := range t.Custom {
		if strings.TrimSpace(custom.Name) == "" {
			return nil, fmt.Errorf("triggers.custom[%d].name must not be empty", i)
		}
		entries = append(entries, entry{label: "custom:" + strings.TrimSpace(custom.Name), phrase: custom.Phrase})
	}

	out := make(map[string]string, len(entries))
	for _, e := range entries {
		phrase := NormalizePhrase(e.phrase)
		if phrase == "" {
			return nil, fmt.Errorf("triggers.%s must not be empty", e.label)
		}
		if other, exists := out[phrase]; exists {
			return nil, fmt.Errorf("triggers.%s %q duplicates triggers.%s", e.label, phrase, other)
		}
		out[phrase] = e.label
	}
	return out, nil
}
