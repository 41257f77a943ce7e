package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned by Submit after the queue stops accepting prompts.
var ErrClosed = errors.New("relay queue closed")

// Prompter is the model collaborator drained by Queue.
type Prompter interface {
	Prompt(ctx context.Context, prompt string) (string, error)
}

// Queue buffers prompts without bound and sends them one at a time.
// Submit never blocks the caller on a slow model.
type Queue struct {
	prompter Prompter
	logger   *slog.Logger

	mu      sync.Mutex
	pending []string
	closed  bool
	wake    chan struct{}
}

// NewQueue returns an idle queue; call Run to start draining.
func NewQueue(prompter Prompter, logger *slog.Logger) *Queue {
	return &Queue{
		prompter: prompter,
		logger:   logger,
		wake:     make(chan struct{}, 1),
	}
}

// Submit enqueues prompt.
func (q *Queue) Submit(prompt string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.pending = append(q.pending, prompt)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len reports prompts waiting to be sent.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting prompts. Run drains what is already queued and returns.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Run sends queued prompts sequentially until Close has been called and the
// queue is empty, or ctx is done.
func (q *Queue) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		prompt, ok, closed := q.next()
		if ok {
			q.send(ctx, prompt)
			continue
		}
		if closed {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
	}
}

func (q *Queue) next() (string, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return "", false, q.closed
	}
	prompt := q.pending[0]
	q.pending[0] = ""
	q.pending = q.pending[1:]
	return prompt, true, q.closed
}

func (q *Queue) send(ctx context.Context, prompt string) {
	reply, err := q.prompter.Prompt(ctx, prompt)
	if q.logger == nil {
		return
	}
	if err != nil {
		q.logger.Error("relay prompt failed", "error", err, "chars", len(prompt))
		return
	}
	q.logger.Info("relay reply", "utterance", prompt, "reply", reply)
}
