package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/seamark/answerd/storage"
	"github.com/seamark/answerd/stream"
)

// JobQueue dispatches messages to workers. *worker.Queue is the production
// implementation.
type JobQueue interface {
	// Enqueue submits a message for processing.
	Enqueue(messageID string) error
	// Cancel aborts the active job for a message, reporting whether one ran.
	Cancel(messageID string) bool
}

// API holds the handler dependencies.
type API struct {
	messages storage.MessageStore
	sessions storage.SessionStore
	queue    JobQueue
	broker   *stream.Broker
	resumer  *stream.Resumer
	logger   *slog.Logger
}

// Option configures the API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// New wires the HTTP layer over the pipeline collaborators.
func New(
	messages storage.MessageStore,
	sessions storage.SessionStore,
	queue JobQueue,
	broker *stream.Broker,
	resumer *stream.Resumer,
	opts ...Option,
) *API {
	a := &API{
		messages: messages,
		sessions: sessions,
		queue:    queue,
		broker:   broker,
		resumer:  resumer,
		logger:   slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router builds the gin engine with all routes registered.
func (a *API) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/messages", a.createMessage)
	router.GET("/messages/:id", a.getMessage)
	router.GET("/messages/:id/stream", a.streamMessage)
	router.POST("/messages/:id/cancel", a.cancelMessage)

	router.POST("/sessions", a.createSession)
	router.GET("/sessions/:id/messages", a.listSessionMessages)

	return router
}
