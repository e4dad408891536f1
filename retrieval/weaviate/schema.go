package weaviate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seamark/answerd/core"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// chunkSchema returns the Weaviate schema for the knowledge-chunk class.
// Vectors are supplied at insert time, so the class has no vectorizer.
func chunkSchema(class string) *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       class,
		Description: "Chunked knowledge-base documents with embeddings",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:         "title",
				DataType:     []string{"text"},
				Description:  "Document title",
				Tokenization: "word",
			},
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "Chunk text",
				Tokenization: "word",
			},
			{
				Name:         "excerpt",
				DataType:     []string{"text"},
				Description:  "Short human-readable excerpt",
				Tokenization: "word",
			},
			{
				Name:            "date",
				DataType:        []string{"text"},
				Description:     "Publication date",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "source_url",
				DataType:        []string{"text"},
				Description:     "Canonical source URL",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "type",
				DataType:        []string{"text"},
				Description:     "Document kind (page, post, internal_doc, do_not_cite, ...)",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:        "chunk_index",
				DataType:    []string{"int"},
				Description: "Position of this chunk within the parent document",
			},
			{
				Name:        "total_chunks",
				DataType:    []string{"int"},
				Description: "Number of chunks in the parent document",
			},
			{
				Name:            "parent_id",
				DataType:        []string{"text"},
				Description:     "Identifier shared by all chunks of one document",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
		},
	}
}

// EnsureSchema creates the knowledge-chunk class if it doesn't exist.
// This operation is idempotent.
func EnsureSchema(ctx context.Context, client *weaviate.Client, class string) error {
	_, err := client.Schema().ClassGetter().WithClassName(class).Do(ctx)
	if err == nil {
		slog.Info("schema already exists", "class", class)
		return nil
	}

	slog.Info("creating schema", "class", class)
	if err := client.Schema().ClassCreator().WithClass(chunkSchema(class)).Do(ctx); err != nil {
		return fmt.Errorf("creating schema %s: %w", class, err)
	}

	return nil
}

// insertBatchSize is the number of objects sent per batch import.
const insertBatchSize = 100

// InsertDocuments batch imports document chunks with their vectors.
// Returns the number of objects successfully indexed.
func InsertDocuments(ctx context.Context, client *weaviate.Client, class string, docs []core.Document, vectors [][]float32) (int, error) {
	if len(docs) != len(vectors) {
		return 0, fmt.Errorf("documents and vectors length mismatch: %d vs %d", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return 0, nil
	}

	indexed := 0
	for i := 0; i < len(docs); i += insertBatchSize {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		end := i + insertBatchSize
		if end > len(docs) {
			end = len(docs)
		}

		objects := make([]*models.Object, 0, end-i)
		for j := i; j < end; j++ {
			doc := docs[j]
			objects = append(objects, &models.Object{
				Class:  class,
				Vector: vectors[j],
				Properties: map[string]interface{}{
					"title":        doc.Title,
					"content":      doc.Content,
					"excerpt":      doc.Excerpt,
					"date":         doc.Date,
					"source_url":   doc.SourceURL,
					"type":         doc.Type,
					"chunk_index":  doc.ChunkIndex,
					"total_chunks": doc.TotalChunks,
					"parent_id":    doc.ParentID,
				},
			})
		}

		result, err := client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
		if err != nil {
			return indexed, fmt.Errorf("batch import failed: %w", err)
		}

		for _, obj := range result {
			if obj.Result != nil && obj.Result.Errors == nil {
				indexed++
			}
		}

		slog.Info("indexed batch", "class", class, "count", len(objects), "total_indexed", indexed)
	}

	return indexed, nil
}
