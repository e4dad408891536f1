package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/storage"
)

type createSessionRequest struct {
	ClientID string `json:"clientId"`
	Timezone string `json:"timezone,omitempty"`
}

func (a *API) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess := &core.Session{
		ID:       uuid.NewString(),
		ClientID: req.ClientID,
		Timezone: req.Timezone,
	}
	if err := core.ValidateSession(sess); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored, err := a.sessions.AddSession(c.Request.Context(), sess)
	if err != nil {
		a.logger.Error("session persist failed", "session", sess.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store session"})
		return
	}

	c.JSON(http.StatusCreated, stored)
}

func (a *API) listSessionMessages(c *gin.Context) {
	id := c.Param("id")
	if _, err := a.sessions.GetSession(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		a.logger.Error("session lookup failed", "session", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
		return
	}

	msgs, err := a.messages.GetSessionMessages(c.Request.Context(), id)
	if err != nil {
		a.logger.Error("session messages lookup failed", "session", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list messages"})
		return
	}

	snapshots := make([]snapshot, 0, len(msgs))
	for _, msg := range msgs {
		snapshots = append(snapshots, snapshotOf(msg))
	}
	c.JSON(http.StatusOK, gin.H{"messages": snapshots})
}
