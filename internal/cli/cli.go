// Package cli parses command lines for the tempest and tempestd binaries.
// Parsing has no side effects; the app package executes the result.
package cli

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rbright/tempest/internal/model"
)

type Command string

const (
	CommandRun      Command = "run"
	CommandStatus   Command = "status"
	CommandWake     Command = "wake"
	CommandRest     Command = "rest"
	CommandDevices  Command = "devices"
	CommandDoctor   Command = "doctor"
	CommandKeys     Command = "keys"
	CommandDownload Command = "model download"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

// Parsed is the recognizer command selection.
type Parsed struct {
	Command    Command
	ConfigPath string
	Debug      bool
	Token      string
	Preset     string
	ShowHelp   bool
	Help       string
}

// Parse resolves recognizer arguments. Help requests yield ShowHelp with the
// rendered help text.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{}
	root := newRecognizerCommand(&parsed)
	help, err := execute(root, args)
	if err != nil {
		return Parsed{}, err
	}
	if parsed.Command == "" {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
		parsed.Help = orRootHelp(help, root)
	}
	return parsed, nil
}

// HelpText renders the recognizer root help.
func HelpText() string {
	var parsed Parsed
	root := newRecognizerCommand(&parsed)
	return renderHelp(root)
}

func newRecognizerCommand(parsed *Parsed) *cobra.Command {
	var showVersion bool

	selectCommand := func(command Command) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			parsed.Command = command
			return nil
		}
	}

	root := &cobra.Command{
		Use:   "tempest",
		Short: "Hands-free voice control for the desktop",
		Long: `tempest listens to the microphone, matches spoken phrases against a
configured dictionary, and runs the bound actions. Key chords are injected
by the privileged tempestd daemon.`,
		RunE: func(*cobra.Command, []string) error {
			if showVersion {
				parsed.Command = CommandVersion
			}
			return nil
		},
	}
	root.Flags().BoolVar(&showVersion, "version", false, "show version")
	root.PersistentFlags().StringVar(&parsed.ConfigPath, "config", "", "config file path (default: $XDG_CONFIG_HOME/tempest/config.jsonc)")
	root.PersistentFlags().BoolVar(&parsed.Debug, "debug", false, "enable debug logging")

	run := &cobra.Command{
		Use:   "run",
		Short: "Start listening and dispatching actions",
		Args:  cobra.NoArgs,
		RunE:  selectCommand(CommandRun),
	}
	run.Flags().StringVar(&parsed.Token, "token", "", "daemon token printed by tempestd (default: $TEMPEST_TOKEN)")

	download := &cobra.Command{
		Use:   "download",
		Short: "Download the offline recognizer model",
		Args:  cobra.NoArgs,
		RunE:  selectCommand(CommandDownload),
	}
	download.Flags().StringVar(&parsed.Preset, "preset", model.DefaultPreset,
		fmt.Sprintf("model preset: %s (%s) or %s (%s)",
			model.PresetLow, model.PresetDescriptions[model.PresetLow],
			model.PresetHigh, model.PresetDescriptions[model.PresetHigh]))

	modelCmd := &cobra.Command{
		Use:   "model",
		Short: "Manage the recognizer model",
	}
	modelCmd.AddCommand(download)

	root.AddCommand(
		run,
		&cobra.Command{Use: "status", Short: "Print the current mode of the running recognizer", Args: cobra.NoArgs, RunE: selectCommand(CommandStatus)},
		&cobra.Command{Use: "wake", Short: "Switch the running recognizer to awake", Args: cobra.NoArgs, RunE: selectCommand(CommandWake)},
		&cobra.Command{Use: "rest", Short: "Switch the running recognizer to asleep", Args: cobra.NoArgs, RunE: selectCommand(CommandRest)},
		&cobra.Command{Use: "devices", Short: "List available input devices", Args: cobra.NoArgs, RunE: selectCommand(CommandDevices)},
		&cobra.Command{Use: "doctor", Short: "Run configuration and environment checks", Args: cobra.NoArgs, RunE: selectCommand(CommandDoctor)},
		&cobra.Command{Use: "keys", Short: "List key names usable in actions", Args: cobra.NoArgs, RunE: selectCommand(CommandKeys)},
		&cobra.Command{Use: "version", Short: "Print version information", Args: cobra.NoArgs, RunE: selectCommand(CommandVersion)},
		modelCmd,
	)
	return root
}

// DaemonParsed is the tempestd flag set.
type DaemonParsed struct {
	SocketPath  string
	ConfigPath  string
	Watch       bool
	DryRun      bool
	Debug       bool
	ShowVersion bool
	ShowHelp    bool
	Help        string
}

// ParseDaemon resolves tempestd arguments.
func ParseDaemon(args []string) (DaemonParsed, error) {
	parsed := DaemonParsed{}
	ran := false
	root := newDaemonCommand(&parsed, &ran)
	help, err := execute(root, args)
	if err != nil {
		return DaemonParsed{}, err
	}
	if !ran {
		parsed.ShowHelp = true
		parsed.Help = orRootHelp(help, root)
	}
	return parsed, nil
}

func newDaemonCommand(parsed *DaemonParsed, ran *bool) *cobra.Command {
	root := &cobra.Command{
		Use:   "tempestd",
		Short: "Privileged key-chord injection daemon for tempest",
		Long: `tempestd owns the virtual keyboard. It prints a fresh token on start,
accepts authenticated action identifiers on a unix socket, and injects the
bound key chords.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			*ran = true
			return nil
		},
	}
	flags := root.Flags()
	flags.StringVar(&parsed.SocketPath, "socket", "", "socket path (default: daemon.socket from config)")
	flags.StringVar(&parsed.ConfigPath, "config", "", "config file path")
	flags.BoolVar(&parsed.Watch, "watch", false, "reload the dictionary when the config file changes")
	flags.BoolVar(&parsed.DryRun, "dry-run", false, "log key events instead of injecting them")
	flags.BoolVar(&parsed.Debug, "debug", false, "enable debug logging")
	flags.BoolVar(&parsed.ShowVersion, "version", false, "show version")
	return root
}

// execute runs a side-effect free cobra tree and returns the help text when
// no command body ran (help flag, help command, or a bare group).
func execute(root *cobra.Command, args []string) (string, error) {
	var out bytes.Buffer
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SilenceErrors = true
	root.SilenceUsage = true
	root.CompletionOptions.DisableDefaultCmd = true

	if _, err := root.ExecuteC(); err != nil {
		return "", err
	}
	return out.String(), nil
}

func orRootHelp(help string, root *cobra.Command) string {
	if help != "" {
		return help
	}
	return renderHelp(root)
}

func renderHelp(cmd *cobra.Command) string {
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.Help(); err != nil {
		return ""
	}
	return out.String()
}
