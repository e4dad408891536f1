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


package answerd

import (
	"log/slog"

	"github.com/seamark/answerd/ai"
	"github.com/seamark/answerd/ai/openai"
	"github.com/seamark/answerd/api"
	"github.com/seamark/answerd/query"
	"github.com/seamark/answerd/retrieval"
	weavbackend "github.com/seamark/answerd/retrieval/weaviate"
	"github.com/seamark/answerd/storage"
	"github.com/seamark/answerd/storage/badger"
	"github.com/seamark/answerd/stream"
	"github.com/seamark/answerd/synthesis"
	"github.com/seamark/answerd/worker"
)

// Service aggregates the answering pipeline: storage, AI provider, retrieval,
// synthesis, streaming and the worker queue, wired for one process.
type Service struct {
	backend  *badger.Backend
	messages storage.MessageStore
	sessions storage.SessionStore
	prompts  storage.PromptStore
	provider ai.Provider
	engine   *retrieval.Engine
	broker   *stream.Broker
	resumer  *stream.Resumer
	queue    *worker.Queue
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig     *ai.Config
	searchURL    string
	searchClass  string
	workers      int
	endpoints    synthesis.Endpoints
	placeholders map[string]string
}

// WithAIConfig sets the embedding/chat provider configuration.
func WithAIConfig(cfg *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = cfg
	}
}

// WithSearchURL sets the Weaviate endpoint.
func WithSearchURL(url string) ServiceOption {
	return func(o *serviceOptions) {
		o.searchURL = url
	}
}

// WithSearchClass sets the Weaviate collection searched for documents.
func WithSearchClass(class string) ServiceOption {
	return func(o *serviceOptions) {
		o.searchClass = class
	}
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) ServiceOption {
	return func(o *serviceOptions) {
		o.workers = n
	}
}

// WithToolEndpoints sets the external endpoints behind the synthesis tools.
func WithToolEndpoints(endpoints synthesis.Endpoints) ServiceOption {
	return func(o *serviceOptions) {
		o.endpoints = endpoints
	}
}

// WithPlaceholders sets the substitution values for instruction templates.
func WithPlaceholders(values map[string]string) ServiceOption {
	return func(o *serviceOptions) {
		o.placeholders = values
	}
}

// NewService opens storage at filePath and wires the full pipeline.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig:    ai.DefaultConfig(),
		searchURL:   "http://localhost:8080",
		searchClass: weavbackend.DefaultClass,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	messages := badger.NewMessageStore(backend)
	sessions := badger.NewSessionStore(backend)
	prompts := badger.NewPromptStore(backend)

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		backend.Close()
		return nil, err
	}

	client, err := weavbackend.NewClient(options.searchURL)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}
	searchBackend := weavbackend.NewBackend(client, weavbackend.WithClass(options.searchClass))
	engine := retrieval.NewEngine(searchBackend, provider.Embedder())

	synthesizer := synthesis.NewSynthesizer(
		provider.Chat(),
		prompts,
		synthesis.WithToolSet(synthesis.DefaultToolSet(options.endpoints)),
		synthesis.WithPlaceholders(options.placeholders),
	)

	broker := stream.NewBroker()
	resumer := stream.NewResumer(messages)

	pipeline := worker.NewPipeline(
		messages,
		sessions,
		query.NewClassifier(provider.Chat()),
		query.NewProcessor(provider.Chat()),
		engine,
		synthesizer,
		broker,
	)
	queue, err := worker.NewQueue(pipeline, options.workers)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	return &Service{
		backend:  backend,
		messages: messages,
		sessions: sessions,
		prompts:  prompts,
		provider: provider,
		engine:   engine,
		broker:   broker,
		resumer:  resumer,
		queue:    queue,
		logger:   slog.Default(),
	}, nil
}

// Close drains the worker queue, then releases the provider and storage.
func (s *Service) Close() error {
	if err := s.queue.Close(); err != nil {
		s.logger.Error("error closing worker queue", "err", err)
	}
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Messages exposes the message store.
func (s *Service) Messages() storage.MessageStore {
	return s.messages
}

// Sessions exposes the session store.
func (s *Service) Sessions() storage.SessionStore {
	return s.sessions
}

// Prompts exposes the per-client instruction store.
func (s *Service) Prompts() storage.PromptStore {
	return s.prompts
}

// Queue exposes the job queue for enqueue and cancel operations.
func (s *Service) Queue() *worker.Queue {
	return s.queue
}

// Provider exposes the AI provider, used by the seed command for embeddings.
func (s *Service) Provider() ai.Provider {
	return s.provider
}

// NewAPI builds the HTTP layer over this service's collaborators.
func (s *Service) NewAPI(opts ...api.Option) *api.API {
	return api.New(s.messages, s.sessions, s.queue, s.broker, s.resumer, opts...)
}
