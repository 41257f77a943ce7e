package dictionary

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rbright/tempest/internal/config"
	"github.com/rbright/tempest/internal/keys"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Triggers = config.TriggerConfig{Wake: "TEMPEST RISE", Rest: "Tempest Rest", Dictate: "listen"}
	cfg.Actions = []config.ActionConfig{
		{Phrase: "CONSOLE", Command: config.CommandConfig{Raw: "blackbox", Argv: []string{"blackbox"}}},
		{Phrase: "  launcher ", Keys: []string{"LEFTMETA", "DOT"}},
	}
	return cfg
}

func TestCompileBuildsBothSets(t *testing.T) {
	d, err := Compile(testConfig())
	require.NoError(t, err)

	require.Equal(t, 2, d.Actions.Len())
	require.Equal(t, 3, d.Modes.Len())
	require.True(t, d.Actions.Contains("console"))
	require.True(t, d.Actions.Contains("launcher"))
	require.True(t, d.Modes.Contains("tempest rise"))
	require.False(t, d.Actions.Contains("tempest rise"))

	action, ok := d.Action("Console")
	require.True(t, ok)
	if diff := cmp.Diff(Action{Kind: ActionShellCommand, Argv: []string{"blackbox"}}, action); diff != "" {
		t.Fatalf("console action mismatch (-want +got):\n%s", diff)
	}

	chord, ok := d.Action("LAUNCHER")
	require.True(t, ok)
	if diff := cmp.Diff(Action{Kind: ActionKeyChord, Keys: []keys.Code{125, 52}}, chord); diff != "" {
		t.Fatalf("launcher action mismatch (-want +got):\n%s", diff)
	}
	require.True(t, chord.Privileged())
	require.False(t, action.Privileged())

	mode, ok := d.Mode("tempest   REST")
	require.True(t, ok)
	require.Equal(t, Mode{Kind: ModeRest}, mode)

	require.Equal(t, []string{"console", "launcher"}, d.Phrases())
}

func TestCompileCustomTriggers(t *testing.T) {
	cfg := testConfig()
	cfg.Triggers.Custom = []config.CustomTrigger{{Phrase: "Focus Mode", Name: "focus"}}

	d, err := Compile(cfg)
	require.NoError(t, err)

	mode, ok := d.Mode("focus mode")
	require.True(t, ok)
	require.Equal(t, Mode{Kind: ModeCustom, Name: "focus"}, mode)
}

func TestCompileRejectsMalformedConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "empty wake", mutate: func(c *config.Config) { c.Triggers.Wake = "  " }, wantErr: "triggers.wake"},
		{name: "rest equals wake", mutate: func(c *config.Config) { c.Triggers.Rest = "tempest RISE" }, wantErr: "already used by the wake trigger"},
		{name: "custom without name", mutate: func(c *config.Config) {
			c.Triggers.Custom = []config.CustomTrigger{{Phrase: "focus"}}
		}, wantErr: "name must not be empty"},
		{name: "empty action phrase", mutate: func(c *config.Config) {
			c.Actions = append(c.Actions, config.ActionConfig{Phrase: " ", Keys: []string{"A"}})
		}, wantErr: "phrase must not be empty"},
		{name: "duplicate action phrase", mutate: func(c *config.Config) {
			c.Actions = append(c.Actions, config.ActionConfig{Phrase: "console", Keys: []string{"A"}})
		}, wantErr: "duplicate action phrase"},
		{name: "unknown key", mutate: func(c *config.Config) {
			c.Actions = append(c.Actions, config.ActionConfig{Phrase: "warp", Keys: []string{"WARP"}})
		}, wantErr: "unknown key"},
		{name: "keys and command", mutate: func(c *config.Config) {
			c.Actions = append(c.Actions, config.ActionConfig{
				Phrase:  "both",
				Keys:    []string{"A"},
				Command: config.CommandConfig{Argv: []string{"true"}},
			})
		}, wantErr: "mutually exclusive"},
		{name: "neither keys nor command", mutate: func(c *config.Config) {
			c.Actions = append(c.Actions, config.ActionConfig{Phrase: "nothing"})
		}, wantErr: "one of keys or command"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)

			_, err := Compile(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestFingerprintIsStableAndSensitive(t *testing.T) {
	first, err := Compile(testConfig())
	require.NoError(t, err)
	second, err := Compile(testConfig())
	require.NoError(t, err)
	require.Equal(t, first.Fingerprint(), second.Fingerprint())
	require.Len(t, first.Fingerprint(), 16)

	changed := testConfig()
	changed.Actions[1].Keys = []string{"LEFTMETA", "COMMA"}
	third, err := Compile(changed)
	require.NoError(t, err)
	require.NotEqual(t, first.Fingerprint(), third.Fingerprint())
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "tempest rise", Normalize("  TEMPEST \t Rise "))
	require.Equal(t, "", Normalize("   "))
}
