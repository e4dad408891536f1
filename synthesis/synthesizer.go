package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/seamark/answerd/ai"
	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/storage"
)

// maxToolRounds caps the tool-calling loop. A model that keeps requesting
// tools without producing text fails the job instead of spinning.
const maxToolRounds = 8

const synthesisTemperature = 0.1

// Request is one synthesis job.
type Request struct {
	// Question is the (possibly rewritten) query being answered.
	Question string
	// Documents is the fused retrieval context, may be empty.
	Documents []core.Document
	// DateDecay indicates recency-weighted interpretation of the context.
	DateDecay bool
	// RawQuery is the user's original query. Set for action and page-aware
	// answers, which bypass the retrieval context in the model input.
	RawQuery string
	// PageURL is the page the user is viewing. Set only for page-aware answers.
	PageURL string
	// History is the session's completed prior turns, oldest first.
	History []core.Turn
	// Session supplies the client id for instruction resolution and the
	// user timezone for the date preamble and meeting tools.
	Session *core.Session
}

// trimmedDocument is the reduced view of a retrieved document handed to the
// model. Everything else (ids, chunk bookkeeping, fused scores) is noise at
// this stage.
type trimmedDocument struct {
	Similarity float64 `json:"similarity"`
	SourceURL  string  `json:"source_url"`
	Date       string  `json:"date,omitempty"`
	Text       string  `json:"text"`
	Excerpt    string  `json:"excerpt,omitempty"`
}

// Synthesizer produces streamed grounded answers via a tool-calling chat
// model.
type Synthesizer struct {
	chat         ai.ChatModel
	prompts      storage.PromptStore
	pages        PageFetcher
	tools        *ToolSet
	placeholders map[string]string
	logger       *slog.Logger
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithPageFetcher replaces the page fetcher used for page-aware answers.
func WithPageFetcher(pages PageFetcher) SynthesizerOption {
	return func(s *Synthesizer) {
		s.pages = pages
	}
}

// WithToolSet replaces the tool dispatch table.
func WithToolSet(tools *ToolSet) SynthesizerOption {
	return func(s *Synthesizer) {
		s.tools = tools
	}
}

// WithPlaceholders sets the values substituted into instruction templates.
func WithPlaceholders(values map[string]string) SynthesizerOption {
	return func(s *Synthesizer) {
		s.placeholders = values
	}
}

// WithSynthesizerLogger sets the logger.
func WithSynthesizerLogger(logger *slog.Logger) SynthesizerOption {
	return func(s *Synthesizer) {
		s.logger = logger
	}
}

// NewSynthesizer creates a synthesizer. The prompt store may be nil, in
// which case every client gets the default instruction.
func NewSynthesizer(chat ai.ChatModel, prompts storage.PromptStore, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		chat:    chat,
		prompts: prompts,
		pages:   NewHTTPPageFetcher(),
		tools:   NewToolSet(),
		logger:  slog.Default().With("component", "synthesizer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize generates an answer, forwarding text chunks to emit as they are
// produced. It returns the full answer text. Tool calls are resolved inside
// the loop; the call fails only when the model never yields text within the
// round cap or the provider itself errors.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request, emit func(chunk string)) (string, error) {
	var clientID, timezone string
	if req.Session != nil {
		clientID = req.Session.ClientID
		timezone = req.Session.Timezone
	}

	messages := s.buildMessages(ctx, req, clientID, timezone)

	extra := ExtraArgs{
		Timezone:   timezone,
		Transcript: flattenTranscript(req.History, req.Question),
	}

	options := []llms.CallOption{
		llms.WithTemperature(synthesisTemperature),
	}
	if defs := s.tools.Definitions(); len(defs) > 0 {
		options = append(options, llms.WithTools(defs))
	}

	var full strings.Builder
	for round := 0; round < maxToolRounds; round++ {
		streamed := 0
		streamOpts := append(options, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			streamed += len(chunk)
			full.Write(chunk)
			emit(string(chunk))
			return nil
		}))

		resp, err := s.chat.GenerateContent(ctx, messages, streamOpts...)
		if err != nil {
			return full.String(), fmt.Errorf("synthesis generation: %w", err)
		}
		if len(resp.Choices) == 0 {
			return full.String(), ErrEmptyAnswer
		}
		choice := resp.Choices[0]

		if len(choice.ToolCalls) > 0 {
			messages = s.runToolCalls(ctx, messages, choice.ToolCalls, extra)
			continue
		}

		// Providers that don't stream deliver the whole text on the choice.
		if streamed == 0 && choice.Content != "" {
			full.WriteString(choice.Content)
			emit(choice.Content)
		}

		if full.Len() > 0 {
			return full.String(), nil
		}
		s.logger.Warn("model returned empty text without tool calls", "round", round)
	}

	return full.String(), ErrToolRoundsExceeded
}

// buildMessages assembles instruction, format few-shot, date preamble,
// session history and the user input.
func (s *Synthesizer) buildMessages(ctx context.Context, req Request, clientID, timezone string) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, 2*len(req.History)+2*len(formatHistory)+4)

	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, s.systemInstruction(ctx, clientID)))

	for _, pair := range formatHistory {
		messages = append(messages,
			llms.TextParts(llms.ChatMessageTypeHuman, pair[0]),
			llms.TextParts(llms.ChatMessageTypeAI, pair[1]),
		)
	}

	messages = append(messages,
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf("Today's date is %s", localNow(timezone))),
		llms.TextParts(llms.ChatMessageTypeAI, datePreambleReply),
	)

	for _, turn := range req.History {
		if turn.Query == "" || turn.Answer == "" {
			continue
		}
		messages = append(messages,
			llms.TextParts(llms.ChatMessageTypeHuman, turn.Query),
			llms.TextParts(llms.ChatMessageTypeAI, turn.Answer),
		)
	}

	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, s.buildUserInput(ctx, req)))
}

// buildUserInput encodes the final user turn. Page-aware answers bundle the
// raw query with the fetched page; action answers pass the raw query alone;
// everything else gets the question plus trimmed retrieval context.
func (s *Synthesizer) buildUserInput(ctx context.Context, req Request) string {
	if req.RawQuery != "" {
		if req.PageURL == "" {
			return req.RawQuery
		}

		content, err := s.pages.Fetch(ctx, req.PageURL)
		if err != nil {
			s.logger.Warn("page fetch failed, degrading", "url", req.PageURL, "error", err)
			content = pageFetchErrorMarker
		}
		input, err := json.Marshal(map[string]string{
			"query":       req.RawQuery,
			"pageContent": content,
		})
		if err != nil {
			return req.RawQuery
		}
		return string(input)
	}

	trimmed := make([]trimmedDocument, 0, len(req.Documents))
	for _, doc := range req.Documents {
		trimmed = append(trimmed, trimmedDocument{
			Similarity: doc.Similarity,
			SourceURL:  doc.SourceURL,
			Date:       doc.Date,
			Text:       doc.Content,
			Excerpt:    doc.Excerpt,
		})
	}

	input, err := json.Marshal(map[string]any{
		"question":          req.Question,
		"decay":             req.DateDecay,
		"related_documents": trimmed,
	})
	if err != nil {
		return req.Question
	}
	return string(input)
}

// runToolCalls executes each requested tool and appends the call/response
// exchange to the conversation.
func (s *Synthesizer) runToolCalls(ctx context.Context, messages []llms.MessageContent, calls []llms.ToolCall, extra ExtraArgs) []llms.MessageContent {
	assistantParts := make([]llms.ContentPart, 0, len(calls))
	for _, call := range calls {
		assistantParts = append(assistantParts, call)
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeAI,
		Parts: assistantParts,
	})

	for _, call := range calls {
		if call.FunctionCall == nil {
			continue
		}
		result := s.tools.Execute(ctx, call.FunctionCall.Name, call.FunctionCall.Arguments, extra)
		messages = append(messages, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: call.ID,
				Name:       call.FunctionCall.Name,
				Content:    result,
			}},
		})
	}

	return messages
}

// localNow renders the current time in the session's timezone, falling back
// to UTC for unknown zones.
func localNow(timezone string) string {
	loc := time.UTC
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			loc = parsed
		}
	}
	return time.Now().In(loc).Format("Monday, January 2, 2006 3:04 PM MST")
}

// flattenTranscript renders the session as plain text for lead capture.
func flattenTranscript(history []core.Turn, currentQuery string) string {
	var b strings.Builder
	for _, turn := range history {
		if turn.Query == "" || turn.Answer == "" {
			continue
		}
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.Query, turn.Answer)
	}
	if currentQuery != "" {
		fmt.Fprintf(&b, "User: %s\n", currentQuery)
	}
	return b.String()
}
