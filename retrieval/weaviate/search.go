package weaviate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/retrieval"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// Backend implements retrieval.SearchBackend against a Weaviate collection.
type Backend struct {
	client *weaviate.Client
	class  string
	logger *slog.Logger
}

var _ retrieval.SearchBackend = (*Backend)(nil)

// BackendOption is a functional option for configuring a Backend.
type BackendOption func(*Backend)

// WithClass sets the collection name searched by the backend.
func WithClass(class string) BackendOption {
	return func(b *Backend) {
		b.class = class
	}
}

// WithLogger sets the logger used by the backend.
func WithLogger(logger *slog.Logger) BackendOption {
	return func(b *Backend) {
		b.logger = logger
	}
}

// NewBackend creates a search backend over the given Weaviate client.
func NewBackend(client *weaviate.Client, opts ...BackendOption) *Backend {
	b := &Backend{
		client: client,
		class:  DefaultClass,
		logger: slog.Default().With("component", "weaviate"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// documentFields are the properties requested by every search.
// Certainty is requested because it is always in [0,1], unlike distance.
func documentFields() []graphql.Field {
	return []graphql.Field{
		{Name: "title"},
		{Name: "content"},
		{Name: "excerpt"},
		{Name: "date"},
		{Name: "source_url"},
		{Name: "type"},
		{Name: "chunk_index"},
		{Name: "total_chunks"},
		{Name: "parent_id"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "certainty"},
		}},
	}
}

// SearchVector runs a nearest-neighbour search over document embeddings.
func (b *Backend) SearchVector(ctx context.Context, vector []float32, limit int) ([]core.Document, error) {
	nearVector := b.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	result, err := b.client.GraphQL().Get().
		WithClassName(b.class).
		WithFields(documentFields()...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate vector search: %w", err)
	}

	return b.parseResults(result)
}

// SearchKeyword runs a BM25 search.
func (b *Backend) SearchKeyword(ctx context.Context, query string, limit int) ([]core.Document, error) {
	bm25 := b.client.GraphQL().Bm25ArgBuilder().WithQuery(query)

	result, err := b.client.GraphQL().Get().
		WithClassName(b.class).
		WithFields(documentFields()...).
		WithBM25(bm25).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate keyword search: %w", err)
	}

	return b.parseResults(result)
}

// SearchHybrid runs Weaviate's native hybrid search.
func (b *Backend) SearchHybrid(ctx context.Context, query string, vector []float32, alpha float64, limit int) ([]core.Document, error) {
	hybrid := b.client.GraphQL().HybridArgumentBuilder().
		WithQuery(query).
		WithVector(vector).
		WithAlpha(float32(alpha))

	result, err := b.client.GraphQL().Get().
		WithClassName(b.class).
		WithFields(documentFields()...).
		WithHybrid(hybrid).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate hybrid search: %w", err)
	}

	return b.parseResults(result)
}

// parseResults converts a GraphQL response into documents.
// Rows missing expected fields are kept with zero values; a document without
// a backend id gets a content-derived one so fusion can still key on it.
func (b *Backend) parseResults(result *models.GraphQLResponse) ([]core.Document, error) {
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate query error: %s", result.Errors[0].Message)
	}

	get, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	rows, ok := get[b.class].([]interface{})
	if !ok {
		return nil, nil
	}

	docs := make([]core.Document, 0, len(rows))
	for _, row := range rows {
		props, ok := row.(map[string]interface{})
		if !ok {
			continue
		}

		doc := core.Document{
			Title:     str(props["title"]),
			Content:   str(props["content"]),
			Excerpt:   str(props["excerpt"]),
			Date:      str(props["date"]),
			SourceURL: str(props["source_url"]),
			Type:      str(props["type"]),
			ParentID:  str(props["parent_id"]),
		}
		doc.ChunkIndex = num(props["chunk_index"])
		doc.TotalChunks = num(props["total_chunks"])

		if add, ok := props["_additional"].(map[string]interface{}); ok {
			doc.ID = str(add["id"])
			if c, ok := add["certainty"].(float64); ok {
				doc.Similarity = c
			}
		}
		if doc.ID == "" {
			doc.ID = strconv.FormatUint(uint64(core.IDFromContent(doc.Content)), 16)
		}

		docs = append(docs, doc)
	}

	b.logger.Debug("parsed search results", "class", b.class, "count", len(docs))
	return docs, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func num(v interface{}) int {
	f, _ := v.(float64)
	return int(f)
}
