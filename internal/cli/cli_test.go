package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
	require.Contains(t, parsed.Help, "Usage:")
	require.Contains(t, parsed.Help, "tempest")
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/tempest.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/tempest.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    string
		wantCmd    Command
		wantHelp   bool
		wantPath   string
		wantToken  string
		wantPreset string
		wantDebug  bool
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help command", args: []string{"help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "version command", args: []string{"version"}, wantCmd: CommandVersion},
		{name: "config after command", args: []string{"status", "--config", "/tmp/cfg"}, wantCmd: CommandStatus, wantPath: "/tmp/cfg"},
		{name: "run with token and debug", args: []string{"run", "--token", "abc123", "--debug"}, wantCmd: CommandRun, wantToken: "abc123", wantDebug: true},
		{name: "wake", args: []string{"wake"}, wantCmd: CommandWake},
		{name: "rest", args: []string{"rest"}, wantCmd: CommandRest},
		{name: "devices", args: []string{"devices"}, wantCmd: CommandDevices},
		{name: "keys", args: []string{"keys"}, wantCmd: CommandKeys},
		{name: "model download default preset", args: []string{"model", "download"}, wantCmd: CommandDownload, wantPreset: "high"},
		{name: "model download low preset", args: []string{"model", "download", "--preset", "low"}, wantCmd: CommandDownload, wantPreset: "low"},
		{name: "bare model group shows help", args: []string{"model"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "missing config path", args: []string{"--config"}, wantErr: "flag needs an argument"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"not-a-command"}, wantErr: "unknown command"},
		{name: "extra argument", args: []string{"status", "extra"}, wantErr: "extra"},
		{name: "token on wrong command", args: []string{"status", "--token", "x"}, wantErr: "unknown flag"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
			require.Equal(t, tc.wantToken, parsed.Token)
			require.Equal(t, tc.wantDebug, parsed.Debug)
			if tc.wantPreset != "" {
				require.Equal(t, tc.wantPreset, parsed.Preset)
			}
			if tc.wantHelp {
				require.NotEmpty(t, parsed.Help)
			}
		})
	}
}

func TestBareModelHelpListsDownload(t *testing.T) {
	parsed, err := Parse([]string{"model"})
	require.NoError(t, err)
	require.Contains(t, parsed.Help, "download")
}

func TestHelpTextListsCommands(t *testing.T) {
	help := HelpText()
	for _, command := range []string{"run", "status", "wake", "rest", "devices", "doctor", "keys", "model", "version"} {
		require.Contains(t, help, command)
	}
	require.Contains(t, help, "--config")
}

func TestParseDaemonFlags(t *testing.T) {
	parsed, err := ParseDaemon([]string{"--socket", "/tmp/tempest.socket", "--config", "/etc/tempest.yaml", "--watch", "--dry-run", "--debug"})
	require.NoError(t, err)
	require.Equal(t, DaemonParsed{
		SocketPath: "/tmp/tempest.socket",
		ConfigPath: "/etc/tempest.yaml",
		Watch:      true,
		DryRun:     true,
		Debug:      true,
	}, parsed)
}

func TestParseDaemonDefaultsRunDaemon(t *testing.T) {
	parsed, err := ParseDaemon(nil)
	require.NoError(t, err)
	require.False(t, parsed.ShowHelp)
	require.False(t, parsed.ShowVersion)
}

func TestParseDaemonHelpAndVersion(t *testing.T) {
	parsed, err := ParseDaemon([]string{"--help"})
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Contains(t, parsed.Help, "tempestd")
	require.Contains(t, parsed.Help, "--dry-run")

	parsed, err = ParseDaemon([]string{"--version"})
	require.NoError(t, err)
	require.True(t, parsed.ShowVersion)
}

func TestParseDaemonRejectsArguments(t *testing.T) {
	_, err := ParseDaemon([]string{"serve"})
	require.Error(t, err)

	_, err = ParseDaemon([]string{"--socket"})
	require.ErrorContains(t, err, "flag needs an argument")
}
