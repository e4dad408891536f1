// Copyright 2025 Seamark Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/seamark/answerd"
	"github.com/seamark/answerd/ai"
	"github.com/seamark/answerd/ai/openai"
	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/retrieval/weaviate"
	"github.com/seamark/answerd/synthesis"
)

func main() {
	app := &cli.App{
		Name:  "answerd",
		Usage: "Asynchronous grounded-answer service over a knowledge base",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP answering service",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "listen",
						Usage: "HTTP listen address",
						Value: ":8088",
					},
					&cli.StringFlag{
						Name:  "ai-host",
						Usage: "OpenAI-compatible service host URL for embeddings and chat",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
						Value: "text-embedding-3-small",
					},
					&cli.StringFlag{
						Name:  "chat-model",
						Usage: "Chat model name for classification, query processing and synthesis",
						Value: "gpt-4o-mini",
					},
					&cli.StringFlag{
						Name:  "search-url",
						Usage: "Weaviate endpoint URL",
						Value: "http://localhost:8080",
					},
					&cli.StringFlag{
						Name:  "search-class",
						Usage: "Weaviate collection holding knowledge chunks",
						Value: weaviate.DefaultClass,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Worker pool size",
						Value: 8,
					},
					&cli.StringFlag{
						Name:  "form-origin",
						Usage: "Origin of the form submission service used by email tools",
					},
					&cli.IntFlag{
						Name:  "lead-magnet-form-id",
						Usage: "Form id receiving lead magnet requests",
					},
					&cli.IntFlag{
						Name:  "contact-form-id",
						Usage: "Form id receiving contact submissions",
					},
					&cli.StringFlag{
						Name:  "scheduler-origin",
						Usage: "Origin of the meeting scheduler service",
					},
					&cli.StringFlag{
						Name:  "company-name",
						Usage: "Company name substituted into instruction templates",
						Value: "our company",
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Load a JSON document dump into the search collection",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "src",
						Aliases:  []string{"s"},
						Usage:    "Path to a JSON array of document chunks",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "search-url",
						Usage: "Weaviate endpoint URL",
						Value: "http://localhost:8080",
					},
					&cli.StringFlag{
						Name:  "search-class",
						Usage: "Weaviate collection holding knowledge chunks",
						Value: weaviate.DefaultClass,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed per request",
						Value: 32,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	service, err := answerd.NewService(
		c.String("db"),
		answerd.WithAIConfig(aiConfig),
		answerd.WithSearchURL(c.String("search-url")),
		answerd.WithSearchClass(c.String("search-class")),
		answerd.WithWorkers(c.Int("workers")),
		answerd.WithToolEndpoints(synthesis.Endpoints{
			FormOrigin:       c.String("form-origin"),
			LeadMagnetFormID: c.Int("lead-magnet-form-id"),
			ContactFormID:    c.Int("contact-form-id"),
			SchedulerOrigin:  c.String("scheduler-origin"),
		}),
		answerd.WithPlaceholders(map[string]string{
			"company_name": c.String("company-name"),
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer service.Close()

	server := &http.Server{
		Addr:    c.String("listen"),
		Handler: service.NewAPI().Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}
	return nil
}

func seedCommand(c *cli.Context) error {
	ctx := context.Background()

	raw, err := os.ReadFile(c.String("src"))
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var docs []core.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("seed file contains no documents")
	}

	// drop exact duplicate chunks, keyed by content hash
	seen := make(map[core.ID]struct{}, len(docs))
	unique := docs[:0]
	for _, doc := range docs {
		id := core.IDFromContent(doc.Content)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if doc.ParentID == "" {
			doc.ParentID = fmt.Sprintf("%016x", uint64(core.IDFromContent(doc.SourceURL+doc.Title)))
		}
		unique = append(unique, doc)
	}
	docs = unique
	slog.Info("seed documents loaded", "count", len(docs))

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	vectors := make([][]float32, 0, len(docs))
	for i := 0; i < len(docs); i += batchSize {
		end := i + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		texts := make([]string, 0, end-i)
		for _, doc := range docs[i:end] {
			texts = append(texts, doc.Content)
		}
		batch, err := embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch starting at %d failed: %w", i, err)
		}
		vectors = append(vectors, batch...)
		slog.Info("embedded batch", "done", len(vectors), "total", len(docs))
	}

	client, err := weaviate.NewClient(c.String("search-url"))
	if err != nil {
		return fmt.Errorf("failed to create search client: %w", err)
	}
	class := c.String("search-class")
	if err := weaviate.EnsureSchema(ctx, client, class); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	indexed, err := weaviate.InsertDocuments(ctx, client, class, docs, vectors)
	if err != nil {
		return fmt.Errorf("indexing failed after %d documents: %w", indexed, err)
	}
	slog.Info("seed complete", "indexed", indexed, "class", class)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
