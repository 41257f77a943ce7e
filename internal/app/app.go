// Package app executes parsed tempest and tempestd command lines.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rbright/tempest/internal/audio"
	"github.com/rbright/tempest/internal/cli"
	"github.com/rbright/tempest/internal/config"
	"github.com/rbright/tempest/internal/doctor"
	"github.com/rbright/tempest/internal/ipc"
	"github.com/rbright/tempest/internal/keys"
	"github.com/rbright/tempest/internal/logging"
	"github.com/rbright/tempest/internal/model"
	"github.com/rbright/tempest/internal/version"
)

const forwardTimeout = 220 * time.Millisecond

// Runner executes recognizer commands against the given output streams.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute runs the tempest command line and returns its exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText())
		return 2
	}

	switch parsed.Command {
	case cli.CommandHelp:
		fmt.Fprint(r.Stdout, parsed.Help)
		return 0
	case cli.CommandVersion:
		fmt.Fprintln(r.Stdout, version.String("tempest"))
		return 0
	case cli.CommandKeys:
		return r.commandKeys()
	}

	logRuntime, err := logging.New(parsed.Debug)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	printWarnings(r.Stderr, logger, cfgLoaded.Warnings)

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandWake:
		return r.forwardOrFail(ctx, ipc.CommandWake)
	case cli.CommandRest:
		return r.forwardOrFail(ctx, ipc.CommandRest)
	case cli.CommandDownload:
		return r.commandDownload(ctx, cfgLoaded.Config, parsed.Preset, logger)
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, parsed.Token, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func printWarnings(w io.Writer, logger *slog.Logger, warnings []config.Warning) {
	for _, warning := range warnings {
		msg := warning.Message
		if warning.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", warning.Line, warning.Message)
		}
		fmt.Fprintf(w, "warning: %s\n", msg)
		if logger != nil {
			logger.Warn("config warning", "line", warning.Line, "message", warning.Message)
		}
	}
}

func (r Runner) commandKeys() int {
	for _, name := range keys.Names() {
		fmt.Fprintln(r.Stdout, name)
	}

	aliases := keys.Aliases()
	names := make([]string, 0, len(aliases))
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	for _, alias := range names {
		fmt.Fprintf(r.Stdout, "%s -> %s\n", alias, aliases[alias])
	}
	return 0
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}

	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if !handled {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Mode == "" {
		resp.Mode = "unknown"
	}
	fmt.Fprintln(r.Stdout, resp.Mode)
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: tempest is not running")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, resp.Mode)
	return 0
}

func (r Runner) commandDownload(ctx context.Context, cfg config.Config, preset string, logger *slog.Logger) int {
	url, err := model.URL(preset)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}
	dest, err := model.Resolve(cfg.ASR.ModelPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logger.Info("model download start", "preset", preset, "url", url, "dest", dest)
	size, err := model.Downloader{Progress: r.Stderr}.Download(ctx, url, dest)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("model download failed", "error", err.Error())
		return 1
	}
	logger.Info("model download complete", "dest", dest, "bytes", size)
	fmt.Fprintln(r.Stdout, dest)
	return 0
}

// tryForward sends command to a running recognizer. handled is false when
// no recognizer is listening.
func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.NewRequest(command), forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) || isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
