package config

const (
	DefaultThreshold      = 0.33
	DefaultRelayTimeout   = 600
	DefaultDaemonSocket   = "/run/tempest.socket"
	DefaultOllamaEndpoint = "http://localhost:11434"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	recognizer := "april-stream {model}"

	return Config{
		Triggers: TriggerConfig{
			Wake:    "tempest rise",
			Rest:    "tempest rest",
			Dictate: "listen",
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		ASR: ASRConfig{
			Backend: "exec",
			Command: CommandConfig{Raw: recognizer, Argv: mustParseArgv(recognizer)},
			Deepgram: DeepgramConfig{
				URL:      "wss://api.deepgram.com/v1/listen",
				Model:    "nova-2",
				Language: "en-US",
			},
		},
		Semantic: SemanticConfig{
			Enable:    true,
			Threshold: DefaultThreshold,
			Provider:  "ollama",
			Endpoint:  DefaultOllamaEndpoint,
			Model:     "all-minilm",
		},
		Relay: RelayConfig{
			Enable:         true,
			Endpoint:       DefaultOllamaEndpoint,
			Model:          "llama3.2",
			TimeoutSeconds: DefaultRelayTimeout,
		},
		Daemon: DaemonConfig{
			Socket: DefaultDaemonSocket,
		},
		Indicator: IndicatorConfig{
			Enable:  false,
			AppName: "tempest",
		},
	}
}
