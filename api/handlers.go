package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/storage"
)

type createMessageRequest struct {
	SessionID string `json:"sessionId"`
	Query     string `json:"query"`
	PageURL   string `json:"pageUrl,omitempty"`
}

// snapshot is the client-facing view of a message. Response is the stored
// answer document, served verbatim.
type snapshot struct {
	ID       string          `json:"id"`
	Status   core.Status     `json:"status"`
	Type     core.QueryType  `json:"type,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

func snapshotOf(msg *core.Message) snapshot {
	s := snapshot{
		ID:     msg.ID,
		Status: msg.Status,
		Type:   msg.Type,
	}
	if msg.Response != "" {
		s.Response = json.RawMessage(msg.Response)
	}
	return s
}

func (a *API) createMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg := &core.Message{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		Query:     req.Query,
		PageURL:   req.PageURL,
		Status:    core.StatusPending,
	}
	if err := core.ValidateMessage(msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := a.sessions.GetSession(c.Request.Context(), req.SessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		a.logger.Error("session lookup failed", "session", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
		return
	}

	stored, err := a.messages.AddMessage(c.Request.Context(), msg)
	if err != nil {
		a.logger.Error("message persist failed", "message", msg.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store message"})
		return
	}

	if err := a.queue.Enqueue(stored.ID); err != nil {
		a.logger.Error("enqueue failed", "message", stored.ID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not schedule message"})
		return
	}

	c.JSON(http.StatusAccepted, stored)
}

func (a *API) getMessage(c *gin.Context) {
	msg, err := a.messages.GetMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		a.logger.Error("message lookup failed", "message", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "message lookup failed"})
		return
	}

	c.JSON(http.StatusOK, snapshotOf(msg))
}

// cancelMessage aborts an in-flight job or retires a still-pending message.
// Terminal messages are immutable and report a conflict.
func (a *API) cancelMessage(c *gin.Context) {
	id := c.Param("id")
	msg, err := a.messages.GetMessage(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		a.logger.Error("message lookup failed", "message", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "message lookup failed"})
		return
	}

	if msg.Status.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "message already finished", "status": msg.Status})
		return
	}

	// a running job records the cancelled status itself when its context dies
	if a.queue.Cancel(id) {
		c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
		return
	}

	// pending with no active job: retire it directly
	if err := msg.Transition(core.StatusCancelled); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	updated, err := a.messages.UpdateMessage(c.Request.Context(), msg)
	if err != nil {
		a.logger.Error("cancel persist failed", "message", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not cancel message"})
		return
	}

	c.JSON(http.StatusOK, snapshotOf(updated))
}
