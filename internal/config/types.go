// Package config resolves, parses, validates, and defaults tempest configuration.
package config

// Config is the fully materialized runtime configuration shared by the
// recognizer and the daemon.
type Config struct {
	Triggers  TriggerConfig
	Actions   []ActionConfig
	Audio     AudioConfig
	ASR       ASRConfig
	Semantic  SemanticConfig
	Relay     RelayConfig
	Daemon    DaemonConfig
	Indicator IndicatorConfig
	Debug     DebugConfig
}

// TriggerConfig holds the mode-transition phrases.
type TriggerConfig struct {
	Wake    string
	Rest    string
	Dictate string
	Custom  []CustomTrigger
}

// CustomTrigger is an extra named mode phrase.
type CustomTrigger struct {
	Phrase string
	Name   string
}

// ActionConfig binds a phrase to either a key chord or a command.
type ActionConfig struct {
	Phrase  string
	Keys    []string
	Command CommandConfig
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// ASRConfig selects and configures the transcript source.
type ASRConfig struct {
	Backend   string
	Command   CommandConfig
	ModelPath string
	Deepgram  DeepgramConfig
}

// DeepgramConfig configures the hosted streaming backend.
type DeepgramConfig struct {
	APIKey   string
	URL      string
	Model    string
	Language string
}

// SemanticConfig controls the embedding fallback matcher.
type SemanticConfig struct {
	Enable    bool
	Threshold float64
	Provider  string
	Endpoint  string
	Model     string
	APIKey    string
	CachePath string
}

// RelayConfig controls the dictation relay to a local chat model.
type RelayConfig struct {
	Enable         bool
	Endpoint       string
	Model          string
	TimeoutSeconds int
}

// DaemonConfig locates the privileged daemon socket.
type DaemonConfig struct {
	Socket string
	Watch  bool
}

// IndicatorConfig controls desktop notifications and audio cues on mode changes.
type IndicatorConfig struct {
	Enable  bool
	AppName string
	Sound   bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
