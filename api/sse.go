package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seamark/answerd/storage"
	"github.com/seamark/answerd/stream"
)

// SetSSEHeaders prepares the response for server-sent events. Must run
// before any body write. X-Accel-Buffering disables proxy buffering so
// chunks reach the client as they are produced.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// writeEvent serializes one event in SSE framing and flushes it.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event stream.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}

// streamMessage follows a message's answer over SSE. A live broker topic is
// preferred; without one the resumer polls stored state, which covers
// reconnects, workers in other processes and terminal replay.
func (a *API) streamMessage(c *gin.Context) {
	id := c.Param("id")

	// reject unknown ids before committing to the event stream
	if _, err := a.messages.GetMessage(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		a.logger.Error("message lookup failed", "message", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "message lookup failed"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	SetSSEHeaders(c.Writer)
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	if events, cancelSub, live := a.broker.Subscribe(id); live {
		defer cancelSub()
		a.followLive(c, flusher, id, events)
		return
	}

	err := a.resumer.Resume(c.Request.Context(), id, func(event stream.Event) error {
		return writeEvent(c.Writer, flusher, event)
	})
	if err != nil && !errors.Is(err, c.Request.Context().Err()) {
		a.logger.Warn("resume stream ended abnormally", "message", id, "error", err)
	}
}

// followLive drains a broker subscription until the topic closes or the
// client goes away.
func (a *API) followLive(c *gin.Context, flusher http.Flusher, id string, events <-chan stream.Event) {
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			if err := writeEvent(c.Writer, flusher, event); err != nil {
				a.logger.Warn("live stream write failed", "message", id, "error", err)
				return
			}
		}
	}
}
