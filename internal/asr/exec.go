package asr

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/rbright/tempest/internal/transcript"
)

// Exec runs an external recognizer that reads raw PCM on stdin and writes
// one JSON object per line on stdout:
//
//	{"type":"partial","text":"tempest ri"}
//
// The process is killed and reaped when Run returns.
type Exec struct {
	Argv   []string
	Logger *slog.Logger
}

type execLine struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Run implements Source.
func (e *Exec) Run(ctx context.Context, audio <-chan []byte, events chan<- transcript.Event) error {
	if len(e.Argv) == 0 {
		return errors.New("recognizer command is empty")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.Argv[0], e.Argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("recognizer stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("recognizer stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start recognizer %q: %w", e.Argv[0], err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stdin.Close()
		for {
			select {
			case <-runCtx.Done():
				return
			case chunk, ok := <-audio:
				if !ok {
					return
				}
				if _, err := stdin.Write(chunk); err != nil {
					e.logDebug("recognizer stdin closed", err)
					return
				}
			}
		}
	}()

	readErr := e.readEvents(runCtx, stdout, events)
	cancel()
	wg.Wait()
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil
	}
	if readErr != nil {
		return readErr
	}
	if waitErr != nil {
		return fmt.Errorf("recognizer exited: %w", waitErr)
	}
	return nil
}

func (e *Exec) readEvents(ctx context.Context, stdout io.Reader, events chan<- transcript.Event) error {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ev, ok, err := decodeLine(scanner.Bytes())
		if err != nil {
			e.logDebug("skip malformed recognizer line", err)
			continue
		}
		if !ok {
			continue
		}
		if err := emit(ctx, events, ev); err != nil {
			return nil
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read recognizer output: %w", err)
	}
	return nil
}

// decodeLine parses one recognizer line. Blank lines and unknown types report ok=false.
func decodeLine(line []byte) (transcript.Event, bool, error) {
	if len(cleanSegment(string(line))) == 0 {
		return transcript.Event{}, false, nil
	}
	var payload execLine
	if err := json.Unmarshal(line, &payload); err != nil {
		return transcript.Event{}, false, err
	}
	kind, ok := transcript.ParseKind(payload.Type)
	if !ok {
		return transcript.Event{}, false, nil
	}
	return transcript.Event{Kind: kind, Text: payload.Text}, true, nil
}

func (e *Exec) logDebug(message string, err error) {
	if e.Logger == nil {
		return
	}
	e.Logger.Debug(message, "error", err)
}
