package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{path: "config.jsonc", want: FormatJSONC},
		{path: "config.json", want: FormatJSONC},
		{path: "config.YAML", want: FormatYAML},
		{path: "config.yml", want: FormatYAML},
		{path: "config.toml", want: FormatTOML},
		{path: "config.conf", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			require.Equal(t, tc.want, FormatForPath(tc.path))
		})
	}
}

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, warnings, err := Parse("  \n", FormatYAML, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}

func TestParseYAMLConfig(t *testing.T) {
	content := `
triggers:
  wake: Tempest Rise
  rest: tempest rest
  dictate: listen
  custom:
    - phrase: focus mode
      name: focus
actions:
  - phrase: console
    command: blackbox
  - phrase: launcher
    keys: [LEFTMETA, DOT]
semantic:
  threshold: 0.5
relay:
  enable: false
  timeout_seconds: 30
`
	cfg, warnings, err := Parse(content, FormatYAML, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, "Tempest Rise", cfg.Triggers.Wake)
	require.Equal(t, []CustomTrigger{{Phrase: "focus mode", Name: "focus"}}, cfg.Triggers.Custom)
	require.Len(t, cfg.Actions, 2)
	require.Equal(t, []string{"blackbox"}, cfg.Actions[0].Command.Argv)
	require.Equal(t, []string{"LEFTMETA", "DOT"}, cfg.Actions[1].Keys)
	require.InDelta(t, 0.5, cfg.Semantic.Threshold, 1e-9)
	require.False(t, cfg.Relay.Enable)
	require.Equal(t, 30, cfg.Relay.TimeoutSeconds)
	require.Equal(t, "default", cfg.Audio.Input)
}

func TestParseYAMLRejectsUnknownField(t *testing.T) {
	_, _, err := Parse("paste:\n  enable: true\n", FormatYAML, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestParseYAMLRejectsMultipleDocuments(t *testing.T) {
	_, _, err := Parse("relay:\n  enable: false\n---\nrelay:\n  enable: true\n", FormatYAML, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple YAML documents")
}

func TestParseTOMLConfig(t *testing.T) {
	content := `
[triggers]
wake = "tempest rise"

[[actions]]
phrase = "console"
command = ["blackbox", "--maximize"]

[[actions]]
phrase = "launcher"
keys = "LEFTMETA,DOT"

[semantic]
provider = "GenAI"
model = "text-embedding-004"
threshold = 1.0

[daemon]
socket = "/tmp/tempest.socket"
watch = true
`
	cfg, _, err := Parse(content, FormatTOML, Default())
	require.NoError(t, err)
	require.Len(t, cfg.Actions, 2)
	require.Equal(t, []string{"blackbox", "--maximize"}, cfg.Actions[0].Command.Argv)
	require.Equal(t, []string{"LEFTMETA", "DOT"}, cfg.Actions[1].Keys)
	require.Equal(t, "genai", cfg.Semantic.Provider)
	require.InDelta(t, 1.0, cfg.Semantic.Threshold, 1e-9)
	require.Equal(t, "/tmp/tempest.socket", cfg.Daemon.Socket)
	require.True(t, cfg.Daemon.Watch)
}

func TestParseTOMLRejectsUnknownField(t *testing.T) {
	_, _, err := Parse("[speech]\ngrpc = \"127.0.0.1:50051\"\n", FormatTOML, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseTOMLSyntaxErrorIncludesLine(t *testing.T) {
	_, _, err := Parse("[triggers\nwake = 1\n", FormatTOML, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line")
}

func TestParseSniffsFormatWhenUnknown(t *testing.T) {
	cfg, _, err := Parse(`{"relay": {"model": "mistral"}}`, "", Default())
	require.NoError(t, err)
	require.Equal(t, "mistral", cfg.Relay.Model)

	cfg, _, err = Parse("relay:\n  model: qwen\n", "", Default())
	require.NoError(t, err)
	require.Equal(t, "qwen", cfg.Relay.Model)
}
