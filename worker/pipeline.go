package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/query"
	"github.com/seamark/answerd/retrieval"
	"github.com/seamark/answerd/storage"
	"github.com/seamark/answerd/stream"
	"github.com/seamark/answerd/synthesis"
)

// defaultRetrievalLimit is how many fused documents ground one answer.
const defaultRetrievalLimit = 10

// Chunks emitted when a job ends abnormally.
const (
	errorChunk     = "I apologize, but I'm having trouble processing your request."
	cancelledChunk = "This request was cancelled."
)

// Pipeline is the state machine one worker drives for a message:
// classify → process query → retrieve → synthesize → persist. Strict
// ordering holds within a message; there is no cross-message ordering.
type Pipeline struct {
	messages    storage.MessageStore
	sessions    storage.SessionStore
	classifier  *query.Classifier
	processor   *query.Processor
	engine      *retrieval.Engine
	synthesizer *synthesis.Synthesizer
	broker      *stream.Broker

	limit      int
	flushEvery time.Duration
	logger     *slog.Logger
}

var _ Runner = (*Pipeline)(nil)

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRetrievalLimit sets how many fused documents are retrieved per query.
func WithRetrievalLimit(limit int) PipelineOption {
	return func(p *Pipeline) {
		p.limit = limit
	}
}

// WithFlushInterval sets the partial-persistence cadence during streaming.
func WithFlushInterval(interval time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.flushEvery = interval
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline wires the pipeline stages.
func NewPipeline(
	messages storage.MessageStore,
	sessions storage.SessionStore,
	classifier *query.Classifier,
	processor *query.Processor,
	engine *retrieval.Engine,
	synthesizer *synthesis.Synthesizer,
	broker *stream.Broker,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		messages:    messages,
		sessions:    sessions,
		classifier:  classifier,
		processor:   processor,
		engine:      engine,
		synthesizer: synthesizer,
		broker:      broker,
		limit:       defaultRetrievalLimit,
		flushEvery:  defaultFlushInterval,
		logger:      slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one message to a terminal status. Failures are recorded on
// the message and returned so the queue's retry policy can observe them; a
// context cancellation records the cancelled status instead.
func (p *Pipeline) Process(ctx context.Context, messageID string) error {
	msg, err := p.messages.GetMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("load message: %w", err)
	}
	if msg.Status.Terminal() {
		p.logger.Warn("job for terminal message ignored", "message", messageID, "status", msg.Status)
		return nil
	}

	// session activity refreshes on every job start, success or not
	if err := p.sessions.TouchSession(ctx, msg.SessionID); err != nil {
		p.logger.Warn("session touch failed", "session", msg.SessionID, "error", err)
	}

	p.broker.Open(msg.ID)

	if err := p.run(ctx, msg); err != nil {
		p.fail(ctx, msg, err)
		return err
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, msg *core.Message) error {
	// cancelled while still queued
	if err := ctx.Err(); err != nil {
		return err
	}

	history, err := p.messages.History(ctx, msg.SessionID)
	if err != nil {
		return fmt.Errorf("reconstruct history: %w", err)
	}

	verdict := p.classifier.Classify(ctx, msg.Query, history)
	msg.Type = verdict.Type

	if verdict.Type.Terminal() {
		return p.completeTerminal(ctx, msg, verdict.Reply)
	}

	previous := make([]string, 0, len(history))
	for _, turn := range history {
		previous = append(previous, fmt.Sprintf("User: %s\nModel: %s", turn.Query, turn.Answer))
	}
	processed := p.processor.Process(ctx, msg.Query, previous)

	if params, err := json.Marshal(processed); err == nil {
		msg.SearchParams = string(params)
	}
	if err := msg.Transition(core.StatusProcessing); err != nil {
		return err
	}
	if msg, err = p.messages.UpdateMessage(ctx, msg); err != nil {
		return fmt.Errorf("persist processing state: %w", err)
	}

	// retrieval and synthesis answer the processed question, not the raw one
	question := processed.Question()
	if question == "" {
		question = msg.Query
	}
	result, err := p.engine.RetrieveRRF(ctx, question, processed.Params, p.limit)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}

	// the retrieval result is written exactly once, before synthesis starts
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode retrieval result: %w", err)
	}
	msg.RetrievalResult = string(raw)
	if msg, err = p.messages.UpdateMessage(ctx, msg); err != nil {
		return fmt.Errorf("persist retrieval result: %w", err)
	}

	req := p.buildRequest(ctx, msg, result, history)

	persistCtx := context.WithoutCancel(ctx)
	fl := newFlusher(p.flushEvery, func(partial string) {
		p.persistPartial(persistCtx, msg.ID, partial, result.Documents)
	})
	answer, synthErr := p.synthesizer.Synthesize(ctx, req, func(chunk string) {
		p.broker.Publish(msg.ID, stream.ChunkEvent(chunk))
		fl.Add(chunk)
	})
	fl.Stop()
	if synthErr != nil {
		return fmt.Errorf("synthesize: %w", synthErr)
	}

	final := core.BuildAnswer(answer, result.Documents)
	response, err := json.Marshal(final)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}
	msg.Summary = answer
	msg.Response = string(response)
	if err := msg.Transition(core.StatusCompleted); err != nil {
		return err
	}
	// the final flush is unconditional, regardless of flush cadence
	if _, err := p.messages.UpdateMessage(ctx, msg); err != nil {
		return fmt.Errorf("persist answer: %w", err)
	}

	p.broker.CloseTopic(msg.ID, stream.DoneEvent(final.Results, msg.Type))
	p.logger.Info("message completed", "message", msg.ID, "type", msg.Type, "answer_len", len(answer))
	return nil
}

// completeTerminal stores the classifier's canned reply as the final answer,
// skipping retrieval and synthesis entirely.
func (p *Pipeline) completeTerminal(ctx context.Context, msg *core.Message, reply string) error {
	response, err := json.Marshal(core.Answer{Text: reply})
	if err != nil {
		return fmt.Errorf("encode terminal reply: %w", err)
	}
	msg.Summary = reply
	msg.Response = string(response)
	if err := msg.Transition(core.StatusCompleted); err != nil {
		return err
	}
	if _, err := p.messages.UpdateMessage(ctx, msg); err != nil {
		return fmt.Errorf("persist terminal reply: %w", err)
	}

	p.broker.Publish(msg.ID, stream.ChunkEvent(reply))
	p.broker.CloseTopic(msg.ID, stream.DoneEvent(nil, msg.Type))
	p.logger.Info("message completed without retrieval", "message", msg.ID, "type", msg.Type)
	return nil
}

// buildRequest assembles the synthesis input for the classified mode.
func (p *Pipeline) buildRequest(ctx context.Context, msg *core.Message, result *core.RetrievalResult, history []core.Turn) synthesis.Request {
	req := synthesis.Request{
		Question:  result.Question,
		Documents: result.Documents,
		DateDecay: msg.Type == core.TypeRetrievalDecay,
		History:   history,
	}

	switch msg.Type {
	case core.TypeAction:
		req.RawQuery = msg.Query
	case core.TypePageAware:
		req.RawQuery = msg.Query
		req.PageURL = msg.PageURL
	}

	sess, err := p.sessions.GetSession(ctx, msg.SessionID)
	if err != nil {
		p.logger.Warn("session lookup failed", "session", msg.SessionID, "error", err)
	} else {
		req.Session = sess
	}
	return req
}

// persistPartial writes the streamed-so-far answer so a reconnecting client
// can resume from storage. Runs on the flusher's timer, never on the token
// path.
func (p *Pipeline) persistPartial(ctx context.Context, messageID, partial string, docs []core.Document) {
	msg, err := p.messages.GetMessage(ctx, messageID)
	if err != nil {
		p.logger.Warn("partial flush load failed", "message", messageID, "error", err)
		return
	}
	if msg.Status.Terminal() {
		return
	}

	response, err := json.Marshal(core.BuildAnswer(partial, docs))
	if err != nil {
		p.logger.Warn("partial flush encode failed", "message", messageID, "error", err)
		return
	}
	msg.Summary = partial
	msg.Response = string(response)
	if _, err := p.messages.UpdateMessage(ctx, msg); err != nil {
		p.logger.Warn("partial flush write failed", "message", messageID, "error", err)
	}
}

// fail records the terminal status for an abnormal job end and closes the
// live stream with an explanatory chunk. The cause is left to the caller to
// re-raise.
func (p *Pipeline) fail(ctx context.Context, msg *core.Message, cause error) {
	bg := context.WithoutCancel(ctx)

	// run persists intermediate state; reload so the failure write doesn't
	// clobber it with a stale copy
	if current, err := p.messages.GetMessage(bg, msg.ID); err == nil {
		current.Type = msg.Type
		msg = current
	}

	if err := p.sessions.TouchSession(bg, msg.SessionID); err != nil {
		p.logger.Warn("session touch failed on error path", "session", msg.SessionID, "error", err)
	}

	status := core.StatusFailed
	chunk := errorChunk
	if errors.Is(cause, context.Canceled) {
		status = core.StatusCancelled
		chunk = cancelledChunk
	}

	if err := msg.Transition(status); err != nil {
		p.logger.Error("status transition rejected on error path",
			"message", msg.ID, "status", msg.Status, "target", status, "error", err)
	} else if _, err := p.messages.UpdateMessage(bg, msg); err != nil {
		p.logger.Error("failed to persist terminal status", "message", msg.ID, "error", err)
	}

	p.broker.Publish(msg.ID, stream.ChunkEvent(chunk))
	p.broker.CloseTopic(msg.ID, stream.DoneEvent(nil, msg.Type))
	p.logger.Error("message ended abnormally", "message", msg.ID, "status", status, "error", cause)
}
