package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"

	"github.com/seamark/answerd/ai"
	"github.com/seamark/answerd/core"
	"github.com/tmc/langchaingo/llms"
)

// greetingOnlyPattern short-circuits pure greetings without a model call.
var greetingOnlyPattern = regexp.MustCompile(
	`(?i)^(hi|hello|hey|howdy|greetings|hola|bonjour|ciao|namaste|sup|yo|good (morning|afternoon|evening|day)|what'?s up|how (are you|is it going)|nice to (meet|see) you)[\s.,!?;:]*$`)

// Classification is the verdict for one query. Reply is only populated for
// terminal types, where it becomes the stored answer.
type Classification struct {
	Type  core.QueryType `json:"type"`
	Reply string         `json:"reply,omitempty"`
}

// Classifier labels incoming queries with a pipeline type.
type Classifier struct {
	chat   ai.ChatModel
	logger *slog.Logger
}

// ClassifierOption is a functional option for configuring a Classifier.
type ClassifierOption func(*Classifier)

// WithClassifierLogger sets the logger used by the classifier.
func WithClassifierLogger(logger *slog.Logger) ClassifierOption {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// NewClassifier creates a classifier backed by the given chat model.
func NewClassifier(chat ai.ChatModel, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		chat:   chat,
		logger: slog.Default().With("component", "classifier"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify labels the query. It never fails: a model or parse error degrades
// to a blocked verdict with an apologetic reply, so the pipeline always has a
// usable type.
func (c *Classifier) Classify(ctx context.Context, text string, history []core.Turn) Classification {
	if greetingOnlyPattern.MatchString(text) {
		return Classification{Type: core.TypeGreeting, Reply: greetingReply}
	}

	messages := make([]llms.MessageContent, 0, 2*len(classifierExamples)+2*len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, classifierPrompt))
	for _, ex := range classifierExamples {
		messages = append(messages,
			llms.TextParts(llms.ChatMessageTypeHuman, ex[0]),
			llms.TextParts(llms.ChatMessageTypeAI, ex[1]))
	}
	for _, turn := range history {
		messages = append(messages,
			llms.TextParts(llms.ChatMessageTypeHuman, turn.Query),
			llms.TextParts(llms.ChatMessageTypeAI, turn.Answer))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, text))

	resp, err := c.chat.GenerateContent(ctx, messages,
		llms.WithTemperature(0.05),
		llms.WithMaxTokens(150),
		llms.WithJSONMode())
	if err != nil {
		c.logger.Error("classification failed", "err", err)
		return Classification{Type: core.TypeBlocked, Reply: errorReply}
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("classification returned no choices")
		return Classification{Type: core.TypeBlocked, Reply: errorReply}
	}

	var result Classification
	raw := cleanModelJSON(resp.Choices[0].Content)
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.Error("error parsing classifier response", "response", raw, "err", err)
		return Classification{Type: core.TypeBlocked, Reply: errorReply}
	}

	switch result.Type {
	case core.TypeGreeting, core.TypeRetrieval, core.TypeRetrievalDecay,
		core.TypeAction, core.TypePageAware, core.TypeBlocked:
	default:
		// Ambiguous verdicts fall back to plain retrieval.
		c.logger.Warn("classifier returned unknown type", "type", result.Type)
		result = Classification{Type: core.TypeRetrieval}
	}

	return result
}
