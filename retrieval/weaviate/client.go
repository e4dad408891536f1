package weaviate

import (
	"fmt"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

// DefaultClass is the collection holding knowledge-base chunks.
const DefaultClass = "KnowledgeChunk"

// NewClient creates a Weaviate client from a URL like "http://localhost:8080".
// The scheme defaults to http when the URL carries none.
func NewClient(url string) (*weaviate.Client, error) {
	cfg := weaviate.Config{
		Host:   url,
		Scheme: "http",
	}

	switch {
	case strings.HasPrefix(url, "https://"):
		cfg.Scheme = "https"
		cfg.Host = strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		cfg.Host = strings.TrimPrefix(url, "http://")
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return client, nil
}
