package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape shared by every supported syntax. Pointer
// fields distinguish "absent" from zero values so defaults survive.
type fileConfig struct {
	Triggers  *fileTriggers  `json:"triggers" yaml:"triggers" toml:"triggers"`
	Actions   []fileAction   `json:"actions" yaml:"actions" toml:"actions"`
	Audio     *fileAudio     `json:"audio" yaml:"audio" toml:"audio"`
	ASR       *fileASR       `json:"asr" yaml:"asr" toml:"asr"`
	Semantic  *fileSemantic  `json:"semantic" yaml:"semantic" toml:"semantic"`
	Relay     *fileRelay     `json:"relay" yaml:"relay" toml:"relay"`
	Daemon    *fileDaemon    `json:"daemon" yaml:"daemon" toml:"daemon"`
	Indicator *fileIndicator `json:"indicator" yaml:"indicator" toml:"indicator"`
	Debug     *fileDebug     `json:"debug" yaml:"debug" toml:"debug"`
}

type fileTriggers struct {
	Wake    *string             `json:"wake" yaml:"wake" toml:"wake"`
	Rest    *string             `json:"rest" yaml:"rest" toml:"rest"`
	Dictate *string             `json:"dictate" yaml:"dictate" toml:"dictate"`
	Custom  []fileCustomTrigger `json:"custom" yaml:"custom" toml:"custom"`
}

type fileCustomTrigger struct {
	Phrase string `json:"phrase" yaml:"phrase" toml:"phrase"`
	Name   string `json:"name" yaml:"name" toml:"name"`
}

type fileAction struct {
	Phrase  string     `json:"phrase" yaml:"phrase" toml:"phrase"`
	Keys    stringList `json:"keys" yaml:"keys" toml:"keys"`
	Command *argvValue `json:"command" yaml:"command" toml:"command"`
}

type fileAudio struct {
	Input    *string `json:"input" yaml:"input" toml:"input"`
	Fallback *string `json:"fallback" yaml:"fallback" toml:"fallback"`
}

type fileASR struct {
	Backend   *string       `json:"backend" yaml:"backend" toml:"backend"`
	Command   *argvValue    `json:"command" yaml:"command" toml:"command"`
	ModelPath *string       `json:"model_path" yaml:"model_path" toml:"model_path"`
	Deepgram  *fileDeepgram `json:"deepgram" yaml:"deepgram" toml:"deepgram"`
}

type fileDeepgram struct {
	APIKey   *string `json:"api_key" yaml:"api_key" toml:"api_key"`
	URL      *string `json:"url" yaml:"url" toml:"url"`
	Model    *string `json:"model" yaml:"model" toml:"model"`
	Language *string `json:"language" yaml:"language" toml:"language"`
}

type fileSemantic struct {
	Enable    *bool    `json:"enable" yaml:"enable" toml:"enable"`
	Threshold *float64 `json:"threshold" yaml:"threshold" toml:"threshold"`
	Provider  *string  `json:"provider" yaml:"provider" toml:"provider"`
	Endpoint  *string  `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	Model     *string  `json:"model" yaml:"model" toml:"model"`
	APIKey    *string  `json:"api_key" yaml:"api_key" toml:"api_key"`
	Cache     *string  `json:"cache" yaml:"cache" toml:"cache"`
}

type fileRelay struct {
	Enable         *bool   `json:"enable" yaml:"enable" toml:"enable"`
	Endpoint       *string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	Model          *string `json:"model" yaml:"model" toml:"model"`
	TimeoutSeconds *int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

type fileDaemon struct {
	Socket *string `json:"socket" yaml:"socket" toml:"socket"`
	Watch  *bool   `json:"watch" yaml:"watch" toml:"watch"`
}

type fileIndicator struct {
	Enable  *bool   `json:"enable" yaml:"enable" toml:"enable"`
	AppName *string `json:"app_name" yaml:"app_name" toml:"app_name"`
	Sound   *bool   `json:"sound" yaml:"sound" toml:"sound"`
}

type fileDebug struct {
	AudioDump *bool `json:"audio_dump" yaml:"audio_dump" toml:"audio_dump"`
}

// stringList accepts either a list or a comma-delimited string.
type stringList []string

func splitCommaList(single string) []string {
	parts := strings.Split(single, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = splitCommaList(single)
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = splitCommaList(node.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	default:
		return fmt.Errorf("line %d: expected string array or comma-delimited string", node.Line)
	}
}

func (l *stringList) UnmarshalTOML(value any) error {
	list, err := tomlStrings(value)
	if err != nil {
		return err
	}
	if len(list) == 1 && !isTOMLArray(value) {
		list = splitCommaList(list[0])
	}
	*l = list
	return nil
}

// argvValue accepts a shell-like command string or an explicit argv list.
type argvValue struct {
	raw  string
	argv []string
	err  error
}

func (a *argvValue) setRaw(raw string) {
	a.raw = raw
	a.argv, a.err = parseArgv(raw)
}

func (a *argvValue) setList(list []string) {
	a.raw = strings.Join(list, " ")
	a.argv = list
}

func (a *argvValue) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		a.setList(list)
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		a.setRaw(single)
		return nil
	}
	return fmt.Errorf("expected command string or argv array")
}

func (a *argvValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		a.setRaw(node.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		a.setList(list)
		return nil
	default:
		return fmt.Errorf("line %d: expected command string or argv array", node.Line)
	}
}

func (a *argvValue) UnmarshalTOML(value any) error {
	list, err := tomlStrings(value)
	if err != nil {
		return err
	}
	if isTOMLArray(value) {
		a.setList(list)
		return nil
	}
	a.setRaw(list[0])
	return nil
}

func (a *argvValue) command(field string) (CommandConfig, error) {
	if a.err != nil {
		return CommandConfig{}, fmt.Errorf("invalid %s: %w", field, a.err)
	}
	return CommandConfig{Raw: a.raw, Argv: a.argv}, nil
}

func isTOMLArray(value any) bool {
	_, ok := value.([]any)
	return ok
}

func tomlStrings(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string array element, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or string array, got %T", value)
	}
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if t := payload.Triggers; t != nil {
		if t.Wake != nil {
			cfg.Triggers.Wake = strings.TrimSpace(*t.Wake)
		}
		if t.Rest != nil {
			cfg.Triggers.Rest = strings.TrimSpace(*t.Rest)
		}
		if t.Dictate != nil {
			cfg.Triggers.Dictate = strings.TrimSpace(*t.Dictate)
		}
		if t.Custom != nil {
			cfg.Triggers.Custom = make([]CustomTrigger, 0, len(t.Custom))
			for _, custom := range t.Custom {
				cfg.Triggers.Custom = append(cfg.Triggers.Custom, CustomTrigger{
					Phrase: strings.TrimSpace(custom.Phrase),
					Name:   strings.TrimSpace(custom.Name),
				})
			}
		}
	}

	if payload.Actions != nil {
		cfg.Actions = make([]ActionConfig, 0, len(payload.Actions))
		for i, entry := range payload.Actions {
			action := ActionConfig{Phrase: strings.TrimSpace(entry.Phrase)}
			for _, key := range entry.Keys {
				if key = strings.TrimSpace(key); key != "" {
					action.Keys = append(action.Keys, key)
				}
			}
			if entry.Command != nil {
				command, err := entry.Command.command(fmt.Sprintf("actions[%d].command", i))
				if err != nil {
					return nil, err
				}
				action.Command = command
			}
			cfg.Actions = append(cfg.Actions, action)
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if a := payload.ASR; a != nil {
		if a.Backend != nil {
			cfg.ASR.Backend = strings.ToLower(strings.TrimSpace(*a.Backend))
		}
		if a.Command != nil {
			command, err := a.Command.command("asr.command")
			if err != nil {
				return nil, err
			}
			cfg.ASR.Command = command
		}
		if a.ModelPath != nil {
			cfg.ASR.ModelPath = strings.TrimSpace(*a.ModelPath)
		}
		if d := a.Deepgram; d != nil {
			if d.APIKey != nil {
				cfg.ASR.Deepgram.APIKey = strings.TrimSpace(*d.APIKey)
			}
			if d.URL != nil {
				cfg.ASR.Deepgram.URL = strings.TrimSpace(*d.URL)
			}
			if d.Model != nil {
				cfg.ASR.Deepgram.Model = strings.TrimSpace(*d.Model)
			}
			if d.Language != nil {
				cfg.ASR.Deepgram.Language = strings.TrimSpace(*d.Language)
			}
		}
	}

	if s := payload.Semantic; s != nil {
		if s.Enable != nil {
			cfg.Semantic.Enable = *s.Enable
		}
		if s.Threshold != nil {
			cfg.Semantic.Threshold = *s.Threshold
		}
		if s.Provider != nil {
			cfg.Semantic.Provider = strings.ToLower(strings.TrimSpace(*s.Provider))
		}
		if s.Endpoint != nil {
			cfg.Semantic.Endpoint = strings.TrimSpace(*s.Endpoint)
		}
		if s.Model != nil {
			cfg.Semantic.Model = strings.TrimSpace(*s.Model)
		}
		if s.APIKey != nil {
			cfg.Semantic.APIKey = strings.TrimSpace(*s.APIKey)
		}
		if s.Cache != nil {
			cfg.Semantic.CachePath = strings.TrimSpace(*s.Cache)
		}
	}

	if r := payload.Relay; r != nil {
		if r.Enable != nil {
			cfg.Relay.Enable = *r.Enable
		}
		if r.Endpoint != nil {
			cfg.Relay.Endpoint = strings.TrimSpace(*r.Endpoint)
		}
		if r.Model != nil {
			cfg.Relay.Model = strings.TrimSpace(*r.Model)
		}
		if r.TimeoutSeconds != nil {
			cfg.Relay.TimeoutSeconds = *r.TimeoutSeconds
		}
	}

	if payload.Daemon != nil {
		if payload.Daemon.Socket != nil {
			cfg.Daemon.Socket = strings.TrimSpace(*payload.Daemon.Socket)
		}
		if payload.Daemon.Watch != nil {
			cfg.Daemon.Watch = *payload.Daemon.Watch
		}
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		if payload.Indicator.AppName != nil {
			cfg.Indicator.AppName = strings.TrimSpace(*payload.Indicator.AppName)
		}
		if payload.Indicator.Sound != nil {
			cfg.Indicator.Sound = *payload.Indicator.Sound
		}
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	return warnings, nil
}
