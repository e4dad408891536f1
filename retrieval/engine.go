package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seamark/answerd/ai"
	"github.com/seamark/answerd/core"
	"golang.org/x/sync/errgroup"
)

// candidateFactor is how many candidates each search side fetches relative
// to the requested limit, so fusion has enough overlap to rerank.
const candidateFactor = 3

// SearchBackend runs the individual searches hybrid retrieval is built from.
// Implementations must be thread-safe for concurrent use.
type SearchBackend interface {
	// SearchVector runs a nearest-neighbour search over document embeddings.
	// Results are ordered by decreasing similarity.
	SearchVector(ctx context.Context, vector []float32, limit int) ([]core.Document, error)

	// SearchKeyword runs a keyword (BM25) search.
	// Results are ordered by decreasing keyword relevance.
	SearchKeyword(ctx context.Context, query string, limit int) ([]core.Document, error)

	// SearchHybrid runs the backend's native hybrid search. Alpha follows the
	// backend convention: 0 is pure keyword, 1 is pure vector.
	SearchHybrid(ctx context.Context, query string, vector []float32, alpha float64, limit int) ([]core.Document, error)
}

// Engine performs hybrid retrieval over a search backend.
type Engine struct {
	backend  SearchBackend
	embedder ai.Embedder
	logger   *slog.Logger
}

// EngineOption is a functional option for configuring an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger used by the engine.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a retrieval engine.
func NewEngine(backend SearchBackend, embedder ai.Embedder, opts ...EngineOption) *Engine {
	e := &Engine{
		backend:  backend,
		embedder: embedder,
		logger:   slog.Default().With("component", "retrieval"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RetrieveRRF runs vector and keyword searches concurrently, each fetching
// candidateFactor*limit candidates, fuses them with weighted reciprocal rank
// fusion and returns the top limit documents. An empty result on one side is
// fine; both sides empty yields an empty (non-error) result.
func (e *Engine) RetrieveRRF(ctx context.Context, question string, params core.HybridParams, limit int) (*core.RetrievalResult, error) {
	vector, err := e.embedder.EmbedText(ctx, params.SemanticQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	fetch := limit * candidateFactor

	var vectorResults, keywordResults []core.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorResults, err = e.backend.SearchVector(gctx, vector, fetch)
		if err != nil {
			return fmt.Errorf("%w: vector: %w", ErrSearchFailed, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		keywordResults, err = e.backend.SearchKeyword(gctx, params.KeywordQuery, fetch)
		if err != nil {
			return fmt.Errorf("%w: keyword: %w", ErrSearchFailed, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuseRRF(vectorResults, keywordResults, params.Weights)
	totalCandidates := len(fused)
	if len(fused) > limit {
		fused = fused[:limit]
	}

	e.logger.Debug("hybrid retrieval complete",
		"vector_results", len(vectorResults),
		"keyword_results", len(keywordResults),
		"fused", totalCandidates,
		"returned", len(fused))

	return &core.RetrievalResult{
		Question:  question,
		Documents: fused,
		Metadata: core.QueryMetadata{
			OriginalQuery:   question,
			SemanticQuery:   params.SemanticQuery,
			KeywordQuery:    params.KeywordQuery,
			SemanticWeight:  params.Weights.Semantic,
			KeywordWeight:   params.Weights.Keyword,
			TotalCandidates: totalCandidates,
		},
	}, nil
}

// RetrieveFusion delegates ranking to the backend's native hybrid search
// instead of client-side fusion. The keyword weight is passed through as
// the backend alpha.
func (e *Engine) RetrieveFusion(ctx context.Context, question string, params core.HybridParams, limit int) (*core.RetrievalResult, error) {
	vector, err := e.embedder.EmbedText(ctx, params.SemanticQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	results, err := e.backend.SearchHybrid(ctx, params.KeywordQuery, vector, params.Weights.Keyword, limit*candidateFactor)
	if err != nil {
		return nil, fmt.Errorf("%w: hybrid: %w", ErrSearchFailed, err)
	}

	totalCandidates := len(results)
	if len(results) > limit {
		results = results[:limit]
	}

	return &core.RetrievalResult{
		Question:  question,
		Documents: results,
		Metadata: core.QueryMetadata{
			OriginalQuery:   question,
			SemanticQuery:   params.SemanticQuery,
			KeywordQuery:    params.KeywordQuery,
			SemanticWeight:  params.Weights.Semantic,
			KeywordWeight:   params.Weights.Keyword,
			TotalCandidates: totalCandidates,
		},
	}, nil
}
