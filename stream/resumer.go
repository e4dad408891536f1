package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/storage"
)

const (
	pollBaseInterval = 100 * time.Millisecond
	pollMaxInterval  = time.Second
	pollBackoff      = 1.2
	pollMaxAttempts  = 600

	// pollIdleGrace is how many consecutive empty polls are tolerated at
	// the base interval before backoff kicks in.
	pollIdleGrace = 5
)

// Messages emitted when a poll ends without a normal answer.
const (
	failedReply    = "I apologize, but I'm having trouble processing your request."
	cancelledReply = "This request was cancelled."
	timeoutReply   = "The request timed out while waiting for an answer."
)

// Resumer serves stream attachments that have no live producer: reconnects
// to another process's in-flight message, or replay of a terminal one. It
// polls stored state and re-emits only newly appended text, so a client
// never receives the same content twice.
type Resumer struct {
	messages storage.MessageStore
	logger   *slog.Logger

	baseInterval time.Duration
	maxInterval  time.Duration
	maxAttempts  int
}

// ResumerOption configures a Resumer.
type ResumerOption func(*Resumer)

// WithPollIntervals overrides the base and ceiling poll intervals.
func WithPollIntervals(base, max time.Duration) ResumerOption {
	return func(r *Resumer) {
		r.baseInterval = base
		r.maxInterval = max
	}
}

// WithMaxAttempts overrides the poll attempt ceiling.
func WithMaxAttempts(n int) ResumerOption {
	return func(r *Resumer) {
		r.maxAttempts = n
	}
}

// WithResumerLogger sets the logger.
func WithResumerLogger(logger *slog.Logger) ResumerOption {
	return func(r *Resumer) {
		r.logger = logger
	}
}

// NewResumer creates a resumer over the message store.
func NewResumer(messages storage.MessageStore, opts ...ResumerOption) *Resumer {
	r := &Resumer{
		messages:     messages,
		logger:       slog.Default().With("component", "resumer"),
		baseInterval: pollBaseInterval,
		maxInterval:  pollMaxInterval,
		maxAttempts:  pollMaxAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resume streams a message's answer to emit. Terminal messages are replayed
// as one full chunk followed by done. In-flight messages are polled with
// multiplicative backoff; each poll emits only the newly appended suffix.
// The stream always terminates with a done event, even on failure paths.
func (r *Resumer) Resume(ctx context.Context, messageID string, emit func(Event) error) error {
	sent := 0
	idle := 0
	interval := r.baseInterval

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		msg, err := r.messages.GetMessage(ctx, messageID)
		if err != nil {
			emit(ChunkEvent(failedReply))
			emit(DoneEvent(nil, ""))
			return fmt.Errorf("resume poll: %w", err)
		}

		text, results := answerState(msg)

		if len(text) > sent {
			if err := emit(ChunkEvent(text[sent:])); err != nil {
				return err
			}
			sent = len(text)
			idle = 0
			interval = r.baseInterval
		} else {
			idle++
		}

		if msg.Status.Terminal() {
			return r.finish(msg, sent, results, emit)
		}

		if idle > pollIdleGrace {
			interval = time.Duration(float64(interval) * pollBackoff)
			if interval > r.maxInterval {
				interval = r.maxInterval
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	r.logger.Warn("poll attempts exhausted", "message", messageID, "sent", sent)
	emit(ChunkEvent(timeoutReply))
	emit(DoneEvent(nil, ""))
	return ErrPollExhausted
}

// finish emits the terminal event sequence for a message.
func (r *Resumer) finish(msg *core.Message, sent int, results []core.ResultItem, emit func(Event) error) error {
	switch msg.Status {
	case core.StatusCompleted:
		return emit(DoneEvent(results, msg.Type))
	case core.StatusCancelled:
		if sent == 0 {
			if err := emit(ChunkEvent(cancelledReply)); err != nil {
				return err
			}
		}
		return emit(DoneEvent(nil, msg.Type))
	default:
		if sent == 0 {
			if err := emit(ChunkEvent(failedReply)); err != nil {
				return err
			}
		}
		return emit(DoneEvent(nil, msg.Type))
	}
}

// answerState extracts the best-known answer text and results for a message.
// While streaming, Summary grows; once completed the stored response document
// is authoritative.
func answerState(msg *core.Message) (string, []core.ResultItem) {
	text := msg.Summary
	var results []core.ResultItem

	if answer, err := msg.ParsedAnswer(); err == nil {
		if answer.Text != "" {
			text = answer.Text
		}
		results = answer.Results
	}
	return text, results
}
