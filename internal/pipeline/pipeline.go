// Package pipeline connects audio capture to a transcript source for the
// lifetime of a listening session.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/tempest/internal/asr"
	"github.com/rbright/tempest/internal/audio"
	"github.com/rbright/tempest/internal/config"
	"github.com/rbright/tempest/internal/transcript"
)

const reportInterval = 30 * time.Second

// Capturer is the capture surface the pipeline consumes.
type Capturer interface {
	Chunks() <-chan []byte
	Stop() error
	BytesCaptured() int64
}

// Pipeline owns one capture -> ASR -> transcript event stream.
type Pipeline struct {
	cfg    config.Config
	logger *slog.Logger
	source asr.Source

	selectDevice func(ctx context.Context, input string, fallback string) (audio.Selection, error)
	startCapture func(ctx context.Context, device audio.Device, tap io.Writer) (Capturer, error)
	interval     time.Duration
}

// New constructs a pipeline feeding source from the configured audio input.
func New(cfg config.Config, source asr.Source, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		logger:       logger,
		source:       source,
		selectDevice: audio.SelectDevice,
		startCapture: func(ctx context.Context, device audio.Device, tap io.Writer) (Capturer, error) {
			return audio.StartCapture(ctx, device, tap)
		},
		interval: reportInterval,
	}
}

// Run captures audio and streams transcript events until ctx ends or the
// source stops. events is not closed.
func (p *Pipeline) Run(ctx context.Context, events chan<- transcript.Event) error {
	if p.source == nil {
		return errors.New("transcript source is not configured")
	}

	selection, err := p.selectDevice(ctx, p.cfg.Audio.Input, p.cfg.Audio.Fallback)
	if err != nil {
		return fmt.Errorf("select audio input: %w", err)
	}
	if selection.Warning != "" {
		p.logWarn(selection.Warning)
	}

	var tap io.Writer
	if p.cfg.Debug.EnableAudioDump {
		dump, derr := createWAVDump(audio.SampleRate)
		if derr != nil {
			p.logWarn(fmt.Sprintf("unable to create debug audio dump: %v", derr))
		} else {
			defer func() {
				if cerr := dump.Close(); cerr != nil {
					p.logWarn(fmt.Sprintf("unable to finalize debug audio dump: %v", cerr))
				}
			}()
			tap = dump
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	capture, err := p.startCapture(runCtx, selection.Device, tap)
	if err != nil {
		return fmt.Errorf("start audio capture: %w", err)
	}
	p.logInfo("audio capture started", "device", describeDevice(selection.Device))

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		defer cancel()
		defer func() { _ = capture.Stop() }()
		if err := p.source.Run(groupCtx, capture.Chunks(), events); err != nil {
			return fmt.Errorf("transcript source: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		p.report(groupCtx, capture)
		return nil
	})

	err = group.Wait()
	p.logInfo("audio capture stopped", "bytes", capture.BytesCaptured())
	return err
}

// report periodically logs capture throughput so a silent microphone is
// visible in the debug log.
func (p *Pipeline) report(ctx context.Context, capture Capturer) {
	if p.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			total := capture.BytesCaptured()
			if p.logger != nil {
				p.logger.Debug("audio capture progress", "bytes", total, "delta", total-last)
			}
			last = total
		}
	}
}

// describeDevice formats device metadata for logs.
func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

func (p *Pipeline) logWarn(message string) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(message)
}

func (p *Pipeline) logInfo(message string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Info(message, args...)
}
