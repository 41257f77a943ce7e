// Package session runs the single-consumer inference loop: transcript events
// drive the mode machine, the exact matchers, the semantic fallback, and the
// dictation relay.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rbright/tempest/internal/dictionary"
	"github.com/rbright/tempest/internal/fsm"
	"github.com/rbright/tempest/internal/ipc"
	"github.com/rbright/tempest/internal/matcher"
	"github.com/rbright/tempest/internal/semantic"
	"github.com/rbright/tempest/internal/transcript"
)

// ErrStopped is returned to control requests after Run has exited.
var ErrStopped = errors.New("session loop is not running")

// Dispatcher executes a resolved action.
type Dispatcher interface {
	Dispatch(ctx context.Context, phrase string, action dictionary.Action)
}

// Fallback resolves an utterance that no exact phrase matched.
type Fallback interface {
	Match(ctx context.Context, utterance string) (semantic.Result, bool, error)
}

// Relay accepts dictated prompts without blocking.
type Relay interface {
	Submit(prompt string) error
}

// Indicator is notified after every mode change.
type Indicator interface {
	ModeChanged(ctx context.Context, mode fsm.State)
}

type noopIndicator struct{}

func (noopIndicator) ModeChanged(context.Context, fsm.State) {}

// Options wires optional collaborators. Nil fields disable the feature.
type Options struct {
	Fallback  Fallback
	Relay     Relay
	Indicator Indicator
}

// utterance is the per-utterance state; it resets on every final event.
type utterance struct {
	id          string
	processed   int
	acted       bool
	from        int
	dictateFrom int
}

type control struct {
	event fsm.Event
	reply chan ipc.Response
}

// Controller owns the session state. Only Run mutates it; Handle requests
// are serialized into the same loop.
type Controller struct {
	logger     *slog.Logger
	dict       *dictionary.Dictionary
	dispatcher Dispatcher
	fallback   Fallback
	relay      Relay
	indicator  Indicator

	modes   *matcher.Scanner
	actions *matcher.Scanner
	current utterance

	mu   sync.RWMutex
	mode fsm.State

	controls chan control
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewController builds a controller that starts Asleep.
func NewController(logger *slog.Logger, dict *dictionary.Dictionary, dispatcher Dispatcher, opts Options) *Controller {
	indicator := opts.Indicator
	if indicator == nil {
		indicator = noopIndicator{}
	}
	return &Controller{
		logger:     logger,
		dict:       dict,
		dispatcher: dispatcher,
		fallback:   opts.Fallback,
		relay:      opts.Relay,
		indicator:  indicator,
		modes:      matcher.NewScanner(dict.Modes),
		actions:    matcher.NewScanner(dict.Actions),
		mode:       fsm.StateAsleep,
		controls:   make(chan control),
		stopped:    make(chan struct{}),
	}
}

// Mode returns the current mode snapshot.
func (c *Controller) Mode() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Run consumes events in order until the channel closes or ctx is done.
func (c *Controller) Run(ctx context.Context, events <-chan transcript.Event) error {
	defer c.stopOnce.Do(func() { close(c.stopped) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-c.controls:
			req.reply <- c.applyControl(ctx, req.event)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent processes one transcript event. It must only be called from
// the goroutine that owns the controller.
func (c *Controller) HandleEvent(ctx context.Context, ev transcript.Event) {
	switch ev.Kind {
	case transcript.Partial:
		text := transcript.Normalize(ev.Text)
		if len(text) < c.current.processed {
			c.logDebug("skip shorter partial", "chars", len(text), "processed", c.current.processed)
			return
		}
		c.begin()
		c.current.processed = len(text)
		c.scan(ctx, text)
	case transcript.Final:
		c.begin()
		c.finish(ctx, ev.Text)
	default:
		c.logDebug("ignore engine signal", "kind", ev.Kind.String())
	}
}

func (c *Controller) begin() {
	if c.current.id == "" {
		c.current.id = uuid.NewString()
	}
}

// scan runs mode matching over text and action matching over the stretches
// where the session is Awake. Each mode trigger fences the action cursor.
func (c *Controller) scan(ctx context.Context, text string) {
	mode := c.Mode()
	if mode == fsm.StateDictating {
		return
	}

	for _, m := range c.modes.Advance(text) {
		if c.Mode() == fsm.StateAwake {
			c.fireActions(ctx, text[:m.Start])
		}

		resolved, ok := c.dict.Mode(m.Phrase)
		if !ok {
			continue
		}
		c.applyTrigger(ctx, resolved, m)
		if c.Mode() == fsm.StateDictating {
			return
		}
	}

	if c.Mode() == fsm.StateAwake {
		c.fireActions(ctx, text)
	}
}

func (c *Controller) fireActions(ctx context.Context, text string) {
	for _, m := range c.actions.Advance(text) {
		action, ok := c.dict.Action(m.Phrase)
		if !ok {
			continue
		}
		c.current.acted = true
		c.logInfo("action matched", "phrase", m.Phrase, "utterance", c.current.id, "kind", action.Kind.String())
		if c.dispatcher != nil {
			c.dispatcher.Dispatch(ctx, m.Phrase, action)
		}
	}
}

func (c *Controller) applyTrigger(ctx context.Context, mode dictionary.Mode, m matcher.Match) {
	var event fsm.Event
	switch mode.Kind {
	case dictionary.ModeWake:
		event = fsm.EventWake
	case dictionary.ModeRest:
		event = fsm.EventRest
	case dictionary.ModeDictate:
		event = fsm.EventDictate
	case dictionary.ModeCustom:
		c.logInfo("custom trigger matched", "phrase", m.Phrase, "name", mode.Name, "utterance", c.current.id)
		return
	default:
		return
	}

	before := c.Mode()
	after, err := c.transition(event)
	if err != nil {
		c.logDebug("trigger ignored", "phrase", m.Phrase, "mode", string(before), "error", err)
		return
	}
	c.logInfo("mode trigger matched", "phrase", m.Phrase, "mode", string(after), "utterance", c.current.id)

	// Nothing before the trigger may fire as an action afterwards.
	c.actions.Skip(m.End)
	if after == before {
		return
	}
	c.current.acted = false
	c.current.from = m.End
	if after == fsm.StateDictating {
		c.current.dictateFrom = m.End
	}
	c.indicator.ModeChanged(ctx, after)
}

func (c *Controller) finish(ctx context.Context, raw string) {
	text := transcript.Normalize(raw)
	if len(text) >= c.current.processed {
		c.current.processed = len(text)
		c.scan(ctx, text)
	}

	switch c.Mode() {
	case fsm.StateAwake:
		if !c.current.acted {
			c.runFallback(ctx, text)
		}
	case fsm.StateDictating:
		c.forwardDictation(pickSource(raw, text), c.current.dictateFrom)
	}

	before := c.Mode()
	after, err := c.transition(fsm.EventFinal)
	if err != nil {
		c.logError("final transition failed", err)
	}
	if err == nil && after != before {
		c.indicator.ModeChanged(ctx, after)
	}
	c.reset()
}

func (c *Controller) runFallback(ctx context.Context, text string) {
	if c.fallback == nil || c.current.from > len(text) {
		return
	}
	utterance := strings.TrimSpace(text[c.current.from:])
	if utterance == "" {
		return
	}

	result, ok, err := c.fallback.Match(ctx, utterance)
	if err != nil {
		c.logError("semantic fallback failed", err)
		return
	}
	if !ok {
		c.logDebug("no semantic match", "utterance", c.current.id, "phrase", result.Phrase, "score", result.Score)
		return
	}

	action, found := c.dict.Action(result.Phrase)
	if !found {
		return
	}
	c.current.acted = true
	c.logInfo("semantic match", "phrase", result.Phrase, "score", result.Score, "utterance", c.current.id)
	if c.dispatcher != nil {
		c.dispatcher.Dispatch(ctx, result.Phrase, action)
	}
}

func (c *Controller) forwardDictation(text string, from int) {
	if from > len(text) {
		return
	}
	prompt := strings.TrimSpace(text[from:])
	if prompt == "" || c.relay == nil {
		return
	}
	if err := c.relay.Submit(prompt); err != nil {
		c.logError("relay submit failed", err)
		return
	}
	c.logInfo("dictation forwarded", "utterance", c.current.id, "chars", len(prompt))
}

// pickSource keeps the recognizer's casing for dictation when lowercasing
// preserved byte offsets.
func pickSource(raw string, normalized string) string {
	if len(raw) == len(normalized) {
		return raw
	}
	return normalized
}

func (c *Controller) reset() {
	c.modes.Reset()
	c.actions.Reset()
	c.current = utterance{}
}

func (c *Controller) transition(event fsm.Event) (fsm.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.mode, event)
	if err != nil {
		return c.mode, err
	}
	c.mode = next
	return next, nil
}

// applyControl handles a wake/rest request inside the loop. Text already
// heard in the current utterance never fires after a control transition.
func (c *Controller) applyControl(ctx context.Context, event fsm.Event) ipc.Response {
	before := c.Mode()
	after, err := c.transition(event)
	if err != nil {
		return ipc.Response{OK: false, Mode: string(before), Error: err.Error()}
	}
	if after != before {
		c.modes.Skip(c.current.processed)
		c.actions.Skip(c.current.processed)
		c.current.acted = false
		c.current.from = c.current.processed
		c.indicator.ModeChanged(ctx, after)
		c.logInfo("mode changed by control request", "mode", string(after))
	}
	return ipc.Response{OK: true, Mode: string(after), Message: string(event)}
}

// Handle serves control socket requests.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{ID: req.ID, OK: true, Mode: string(c.Mode()), Message: "status"}
	case ipc.CommandWake:
		return c.request(ctx, req, fsm.EventWake)
	case ipc.CommandRest:
		return c.request(ctx, req, fsm.EventRest)
	default:
		return ipc.Response{ID: req.ID, OK: false, Mode: string(c.Mode()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) request(ctx context.Context, req ipc.Request, event fsm.Event) ipc.Response {
	reply := make(chan ipc.Response, 1)
	select {
	case c.controls <- control{event: event, reply: reply}:
	case <-c.stopped:
		return ipc.Response{ID: req.ID, OK: false, Mode: string(c.Mode()), Error: ErrStopped.Error()}
	case <-ctx.Done():
		return ipc.Response{ID: req.ID, OK: false, Mode: string(c.Mode()), Error: ctx.Err().Error()}
	}

	resp := <-reply
	resp.ID = req.ID
	return resp
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, args...)
}

func (c *Controller) logError(msg string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Error(msg, "error", err, "utterance", c.current.id)
}
