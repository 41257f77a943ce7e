package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/tempest/internal/action"
	"github.com/rbright/tempest/internal/asr"
	"github.com/rbright/tempest/internal/config"
	"github.com/rbright/tempest/internal/daemon"
	"github.com/rbright/tempest/internal/dictionary"
	"github.com/rbright/tempest/internal/embedding"
	"github.com/rbright/tempest/internal/indicator"
	"github.com/rbright/tempest/internal/ipc"
	"github.com/rbright/tempest/internal/model"
	"github.com/rbright/tempest/internal/pipeline"
	"github.com/rbright/tempest/internal/relay"
	"github.com/rbright/tempest/internal/secure"
	"github.com/rbright/tempest/internal/semantic"
	"github.com/rbright/tempest/internal/session"
	"github.com/rbright/tempest/internal/transcript"
)

const (
	daemonDialTimeout = 2 * time.Second
	eventBuffer       = 64
	commandGrace      = 500 * time.Millisecond
)

// commandRun owns the listening loop until ctx ends or the recognizer stops.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, token string, logger *slog.Logger) int {
	dict, err := dictionary.Compile(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	logger.Info("dictionary compiled",
		"fingerprint", dict.Fingerprint(),
		"actions", len(dict.Phrases()),
		"triggers", dict.Modes.Len(),
	)

	source, err := r.buildSource(cfg.ASR, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	sender, closeSender, err := r.connectDaemon(ctx, cfg.Daemon.Socket, token, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeSender()

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: tempest is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	dispatcher := action.NewDispatcher(sender, logger)
	defer releaseCommands(dispatcher, logger)

	notifier := indicator.New(cfg.Indicator, logger)
	defer notifier.Wait()

	opts := session.Options{Indicator: notifier}

	fallback, closeFallback := r.buildFallback(ctx, cfg.Semantic, dict, logger)
	defer closeFallback()
	if fallback != nil {
		opts.Fallback = fallback
	}

	var relayDone chan struct{}
	if cfg.Relay.Enable {
		client := relay.NewClient(cfg.Relay.Endpoint, cfg.Relay.Model, time.Duration(cfg.Relay.TimeoutSeconds)*time.Second)
		queue := relay.NewQueue(client, logger)
		relayDone = make(chan struct{})
		go func() {
			defer close(relayDone)
			queue.Run(ctx)
		}()
		defer func() {
			queue.Close()
			<-relayDone
		}()
		opts.Relay = queue
	}

	controller := session.NewController(logger, dict, dispatcher, opts)
	feed := pipeline.New(cfg, source, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan transcript.Event, eventBuffer)
	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		defer close(events)
		return feed.Run(groupCtx, events)
	})
	group.Go(func() error {
		defer cancel()
		return controller.Run(groupCtx, events)
	})
	group.Go(func() error {
		if err := ipc.Serve(groupCtx, listener, controller); err != nil {
			return fmt.Errorf("control socket: %w", err)
		}
		return nil
	})

	logger.Info("listening", "socket", socketPath, "mode", string(controller.Mode()))
	if err := group.Wait(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("recognizer stopped", "error", err.Error())
		return 1
	}
	logger.Info("recognizer stopped", "mode", string(controller.Mode()))
	return 0
}

// releaseCommands gives short commands a moment to exit so their status is
// logged. Launched programs that keep running are not waited for.
func releaseCommands(dispatcher *action.Dispatcher, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), commandGrace)
	defer cancel()
	if err := dispatcher.Wait(ctx); err != nil {
		logger.Info("leaving launched commands running", "running", dispatcher.Running())
	}
}

// buildSource resolves the model file for exec recognizers and constructs
// the transcript source.
func (r Runner) buildSource(cfg config.ASRConfig, logger *slog.Logger) (asr.Source, error) {
	modelPath, err := model.Resolve(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	if cfg.Backend == "exec" && asr.NeedsModel(cfg.Command.Argv) && !model.Exists(modelPath) {
		return nil, fmt.Errorf("%w at %s; run `tempest model download`", asr.ErrModelMissing, modelPath)
	}
	return asr.New(cfg, modelPath, logger)
}

// connectDaemon parses token and dials the daemon. A missing token or an
// unreachable daemon yields a nil sender; a malformed token is fatal.
func (r Runner) connectDaemon(ctx context.Context, socket string, token string, logger *slog.Logger) (action.Sender, func(), error) {
	noop := func() {}

	token = strings.TrimSpace(token)
	if token == "" {
		token = strings.TrimSpace(os.Getenv(daemon.TokenEnv))
	}
	if token == "" {
		logger.Warn("no daemon token; key chords are disabled", "env", daemon.TokenEnv)
		return nil, noop, nil
	}

	key, err := secure.ParseKey(token)
	if err != nil {
		return nil, noop, fmt.Errorf("daemon token: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, daemonDialTimeout)
	defer cancel()
	client, err := daemon.Dial(dialCtx, socket, key, logger)
	if err != nil {
		logger.Warn("daemon unavailable; key chords are disabled", "socket", socket, "error", err.Error())
		return nil, noop, nil
	}
	logger.Info("connected to daemon", "socket", socket)
	return client, func() { _ = client.Close() }, nil
}

// buildFallback prepares the semantic matcher. Failures disable the
// fallback rather than the recognizer.
func (r Runner) buildFallback(
	ctx context.Context,
	cfg config.SemanticConfig,
	dict *dictionary.Dictionary,
	logger *slog.Logger,
) (*semantic.Matcher, func()) {
	noop := func() {}
	if !cfg.Enable || len(dict.Phrases()) == 0 {
		return nil, noop
	}

	embedder, closeEmbedder, err := embedding.New(ctx, cfg)
	if err != nil {
		logger.Warn("semantic fallback disabled", "error", err.Error())
		return nil, noop
	}
	release := func() {
		if err := closeEmbedder(); err != nil {
			logger.Warn("close embedder", "error", err.Error())
		}
	}

	matcher, err := semantic.NewMatcher(ctx, embedder, dict.Phrases(), cfg.Threshold)
	if err != nil {
		logger.Warn("semantic fallback disabled", "provider", embedder.Name(), "error", err.Error())
		release()
		return nil, noop
	}
	logger.Info("semantic fallback ready", "provider", embedder.Name(), "threshold", matcher.Threshold())
	return matcher, release
}
