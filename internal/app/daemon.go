package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/tempest/internal/cli"
	"github.com/rbright/tempest/internal/config"
	"github.com/rbright/tempest/internal/daemon"
	"github.com/rbright/tempest/internal/dictionary"
	"github.com/rbright/tempest/internal/logging"
	"github.com/rbright/tempest/internal/secure"
	"github.com/rbright/tempest/internal/uinput"
	"github.com/rbright/tempest/internal/version"
)

const keyboardSettle = 200 * time.Millisecond

// ExecuteDaemon runs the tempestd command line and returns its exit code.
// Stdout carries only the token line.
func ExecuteDaemon(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	parsed, err := cli.ParseDaemon(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		fmt.Fprintln(stderr, "run 'tempestd --help' for usage")
		return 2
	}
	if parsed.ShowVersion {
		fmt.Fprintln(stdout, version.String("tempestd"))
		return 0
	}
	if parsed.ShowHelp {
		fmt.Fprint(stdout, parsed.Help)
		return 0
	}

	logger := logging.NewDaemon(stderr, parsed.Debug).Logger

	loaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	printWarnings(stderr, nil, loaded.Warnings)

	dict, err := dictionary.Compile(loaded.Config)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	logger.Info("dictionary compiled", "fingerprint", dict.Fingerprint(), "actions", len(dict.Phrases()))

	socketPath := strings.TrimSpace(parsed.SocketPath)
	if socketPath == "" {
		socketPath = loaded.Config.Daemon.Socket
	}

	var injector daemon.Injector
	if parsed.DryRun {
		injector = uinput.DryRun{Logger: logger}
	} else {
		keyboard, err := uinput.Open(keyboardSettle)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		injector = keyboard
	}

	key, err := secure.GenerateKey()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	cipher, err := secure.NewCipher(key)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	listener, err := daemon.Listen(socketPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	fmt.Fprintln(stdout, "please use this token to authenticate with the daemon")
	fmt.Fprintln(stdout, key.String())

	server := daemon.NewServer(logger, cipher, injector, dict)
	logger.Info("daemon listening", "socket", socketPath, "dry_run", parsed.DryRun)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.Serve(groupCtx, listener)
	})
	if (parsed.Watch || loaded.Config.Daemon.Watch) && loaded.Exists {
		group.Go(func() error {
			return watchDictionary(groupCtx, loaded.Path, server, logger)
		})
	}

	err = group.Wait()
	stats := server.Stats()
	logger.Info("daemon stopped", "executed", stats.Executed, "rejected", stats.Rejected, "ignored", stats.Ignored)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// watchDictionary recompiles the dictionary on every config change. A
// config that fails to load or compile leaves the current one in place.
func watchDictionary(ctx context.Context, path string, server *daemon.Server, logger *slog.Logger) error {
	watcher := config.Watcher{
		Path: path,
		OnChange: func(loaded config.Loaded) {
			dict, err := dictionary.Compile(loaded.Config)
			if err != nil {
				logger.Error("config reload rejected", "error", err.Error())
				return
			}
			server.SetDictionary(dict)
			logger.Info("dictionary reloaded", "fingerprint", dict.Fingerprint(), "actions", len(dict.Phrases()))
		},
		OnError: func(err error) {
			logger.Error("config reload failed", "error", err.Error())
		},
	}
	return watcher.Run(ctx)
}
