package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/seamark/answerd/ai"
	"github.com/seamark/answerd/core"
	"github.com/tmc/langchaingo/llms"
)

// Processed is the full query-processing output. HybridParams is what
// retrieval consumes; the remaining fields are kept for diagnostics.
type Processed struct {
	RewrittenQuery string   `json:"rewrittenQuery,omitempty"`
	ExpandedQuery  string   `json:"expandedQuery"`
	Keywords       []string `json:"keywords"`
	Params         core.HybridParams
}

// Question is the query the answer should address: the rewrite when present,
// otherwise the expansion.
func (p Processed) Question() string {
	if p.RewrittenQuery != "" {
		return p.RewrittenQuery
	}
	return p.ExpandedQuery
}

// processedWire mirrors the JSON shape the model is asked to produce.
type processedWire struct {
	RewrittenQuery *string  `json:"rewrittenQuery"`
	ExpandedQuery  string   `json:"expandedQuery"`
	Keywords       []string `json:"keywords"`
	HybridParams   struct {
		SemanticQuery    string `json:"semanticQuery"`
		KeywordQuery     string `json:"keywordQuery"`
		SuggestedWeights struct {
			Semantic float64 `json:"semantic"`
			Keyword  float64 `json:"keyword"`
		} `json:"suggestedWeights"`
	} `json:"hybridSearchParams"`
}

// Processor rewrites and expands raw queries into hybrid search parameters.
type Processor struct {
	chat   ai.ChatModel
	logger *slog.Logger
}

// ProcessorOption is a functional option for configuring a Processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger sets the logger used by the processor.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a processor backed by the given chat model.
func NewProcessor(chat ai.ChatModel, opts ...ProcessorOption) *Processor {
	p := &Processor{
		chat:   chat,
		logger: slog.Default().With("component", "query-processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fallback is the deterministic result used when processing fails: the raw
// query on both sides with balanced weights. Retrieval always has usable
// parameters.
func Fallback(rawQuery string) Processed {
	return Processed{
		ExpandedQuery: rawQuery,
		Keywords:      strings.Fields(strings.ToLower(rawQuery)),
		Params: core.HybridParams{
			SemanticQuery: rawQuery,
			KeywordQuery:  rawQuery,
			Weights:       core.DefaultWeights(),
		},
	}
}

// Process rewrites and expands the query. It never hard-fails: any model or
// parse error degrades to Fallback(rawQuery).
func (p *Processor) Process(ctx context.Context, rawQuery string, previousQueries []string) Processed {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, processorPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(
			"Previous conversation context:\n%s\n\nCurrent query: %s",
			strings.Join(previousQueries, "\n"), rawQuery)),
	}

	resp, err := p.chat.GenerateContent(ctx, messages,
		llms.WithTemperature(0.1),
		llms.WithMaxTokens(5000),
		llms.WithJSONMode())
	if err != nil {
		p.logger.Error("query processing failed", "err", err)
		return Fallback(rawQuery)
	}
	if len(resp.Choices) == 0 {
		p.logger.Error("query processing returned no choices")
		return Fallback(rawQuery)
	}

	var wire processedWire
	raw := cleanModelJSON(resp.Choices[0].Content)
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		p.logger.Error("error parsing processor response", "response", raw, "err", err)
		return Fallback(rawQuery)
	}

	result := Processed{
		ExpandedQuery: wire.ExpandedQuery,
		Keywords:      wire.Keywords,
		Params: core.HybridParams{
			SemanticQuery: wire.HybridParams.SemanticQuery,
			KeywordQuery:  wire.HybridParams.KeywordQuery,
			Weights: core.Weights{
				Semantic: wire.HybridParams.SuggestedWeights.Semantic,
				Keyword:  wire.HybridParams.SuggestedWeights.Keyword,
			},
		},
	}
	if wire.RewrittenQuery != nil {
		result.RewrittenQuery = *wire.RewrittenQuery
	}

	// A structurally valid response can still be unusable.
	if result.Params.SemanticQuery == "" && result.Params.KeywordQuery == "" {
		p.logger.Warn("processor response missing search queries, using fallback")
		return Fallback(rawQuery)
	}
	if result.Params.SemanticQuery == "" {
		result.Params.SemanticQuery = rawQuery
	}
	if result.Params.KeywordQuery == "" {
		result.Params.KeywordQuery = rawQuery
	}
	if result.Params.Weights.Semantic <= 0 && result.Params.Weights.Keyword <= 0 {
		result.Params.Weights = core.DefaultWeights()
	}

	return result
}
