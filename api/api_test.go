package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/storage"
	"github.com/seamark/answerd/storage/badger"
	"github.com/seamark/answerd/stream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeQueue records dispatch calls without running jobs.
type fakeQueue struct {
	enqueued     []string
	enqueueErr   error
	cancelResult bool
	cancelled    []string
}

var _ JobQueue = (*fakeQueue)(nil)

func (q *fakeQueue) Enqueue(messageID string) error {
	q.enqueued = append(q.enqueued, messageID)
	return q.enqueueErr
}

func (q *fakeQueue) Cancel(messageID string) bool {
	q.cancelled = append(q.cancelled, messageID)
	return q.cancelResult
}

type apiFixture struct {
	router   *gin.Engine
	messages storage.MessageStore
	sessions storage.SessionStore
	queue    *fakeQueue
	broker   *stream.Broker
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	messages, sessions, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	f := &apiFixture{
		messages: messages,
		sessions: sessions,
		queue:    &fakeQueue{},
		broker:   stream.NewBroker(),
	}
	resumer := stream.NewResumer(messages,
		stream.WithPollIntervals(time.Millisecond, 5*time.Millisecond),
		stream.WithMaxAttempts(50),
	)
	f.router = New(messages, sessions, f.queue, f.broker, resumer).Router()
	return f
}

func (f *apiFixture) addSession(t *testing.T, id string) {
	t.Helper()
	_, err := f.sessions.AddSession(context.Background(), &core.Session{
		ID:       id,
		ClientID: "client-1",
		Timezone: "UTC",
	})
	require.NoError(t, err)
}

func (f *apiFixture) addMessage(t *testing.T, msg *core.Message) {
	t.Helper()
	_, err := f.messages.AddMessage(context.Background(), msg)
	require.NoError(t, err)
}

func (f *apiFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// parseSSE decodes the data frames of an SSE response body.
func parseSSE(t *testing.T, body string) []stream.Event {
	t.Helper()
	var events []stream.Event
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event stream.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		events = append(events, event)
	}
	return events
}

func TestCreateMessage_EnqueuesPending(t *testing.T) {
	f := newAPIFixture(t)
	f.addSession(t, "s1")

	w := f.do(http.MethodPost, "/messages", gin.H{
		"sessionId": "s1",
		"query":     "do you do migrations?",
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var msg core.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, core.StatusPending, msg.Status)
	assert.Equal(t, "s1", msg.SessionID)

	require.Len(t, f.queue.enqueued, 1)
	assert.Equal(t, msg.ID, f.queue.enqueued[0])

	stored, err := f.messages.GetMessage(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, stored.Status)
}

func TestCreateMessage_UnknownSession(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/messages", gin.H{
		"sessionId": "missing",
		"query":     "hello",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, f.queue.enqueued)
}

func TestCreateMessage_EmptyQueryRejected(t *testing.T) {
	f := newAPIFixture(t)
	f.addSession(t, "s1")

	w := f.do(http.MethodPost, "/messages", gin.H{"sessionId": "s1", "query": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.queue.enqueued)
}

func TestCreateMessage_EnqueueFailure(t *testing.T) {
	f := newAPIFixture(t)
	f.addSession(t, "s1")
	f.queue.enqueueErr = assert.AnError

	w := f.do(http.MethodPost, "/messages", gin.H{"sessionId": "s1", "query": "q"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetMessage_Snapshot(t *testing.T) {
	f := newAPIFixture(t)
	f.addSession(t, "s1")

	response, err := json.Marshal(core.Answer{Text: "We handle migrations."})
	require.NoError(t, err)
	f.addMessage(t, &core.Message{
		ID:        "m1",
		SessionID: "s1",
		Query:     "do you do migrations?",
		Status:    core.StatusCompleted,
		Type:      core.TypeRetrieval,
		Response:  string(response),
	})

	w := f.do(http.MethodGet, "/messages/m1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap struct {
		Status   core.Status     `json:"status"`
		Type     core.QueryType  `json:"type"`
		Response json.RawMessage `json:"response"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, core.StatusCompleted, snap.Status)
	assert.Equal(t, core.TypeRetrieval, snap.Type)

	var answer core.Answer
	require.NoError(t, json.Unmarshal(snap.Response, &answer))
	assert.Equal(t, "We handle migrations.", answer.Text)
}

func TestGetMessage_Unknown(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodGet, "/messages/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelMessage_PendingRetiredDirectly(t *testing.T) {
	f := newAPIFixture(t)
	f.addSession(t, "s1")
	f.addMessage(t, &core.Message{
		ID:        "m1",
		SessionID: "s1",
		Query:     "q",
		Status:    core.StatusPending,
	})

	w := f.do(http.MethodPost, "/messages/m1/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := f.messages.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, stored.Status)
}

func TestCancelMessage_ActiveJobAborted(t *testing.T) {
	f := newAPIFixture(t)
	f.addSession(t, "s1")
	f.addMessage(t, &core.Message{
		ID:        "m1",
		SessionID: "s1",
		Query:     "q",
		Status:    core.StatusProcessing,
	})
	f.queue.cancelResult = true

	w := f.do(http.MethodPost, "/messages/m1/cancel", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"m1"}, f.queue.cancelled)

	// the job itself records the terminal status; the store is untouched here
	stored, err := f.messages.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusProcessing, stored.Status)
}

func TestCancelMessage_TerminalConflict(t *testing.T) {
	f := newAPIFixture(t)
	f.addSession(t, "s1")
	f.addMessage(t, &core.Message{
		ID:        "m1",
		SessionID: "s1",
		Query:     "q",
		Status:    core.StatusCompleted,
	})

	w := f.do(http.MethodPost, "/messages/m1/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStream_TerminalReplay(t *testing.T) {
	f := newAPIFixture(t)
	f.addSession(t, "s1")

	response, err := json.Marshal(core.Answer{
		Text:    "We handle migrations.",
		Results: []core.ResultItem{{Title: "Migrations", URL: "https://example.com/m", Score: 0.9}},
	})
	require.NoError(t, err)
	f.addMessage(t, &core.Message{
		ID:        "m1",
		SessionID: "s1",
		Query:     "q",
		Status:    core.StatusCompleted,
		Type:      core.TypeRetrieval,
		Response:  string(response),
	})

	w := f.do(http.MethodGet, "/messages/m1/stream", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))

	events := parseSSE(t, w.Body.String())
	require.Len(t, events, 2, "terminal replay is one chunk then done")
	assert.Equal(t, "We handle migrations.", events[0].Content)
	assert.True(t, events[1].Done)
	assert.Equal(t, core.TypeRetrieval, events[1].Type)
	require.Len(t, events[1].Results, 1)
	assert.Equal(t, "Migrations", events[1].Results[0].Title)
}

func TestStream_UnknownMessage(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodGet, "/messages/missing/stream", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStream_LiveTopicPreferred(t *testing.T) {
	f := newAPIFixture(t)
	f.addSession(t, "s1")
	f.addMessage(t, &core.Message{
		ID:        "m1",
		SessionID: "s1",
		Query:     "q",
		Status:    core.StatusProcessing,
	})

	f.broker.Open("m1")
	f.broker.Publish("m1", stream.ChunkEvent("Hello"))
	go func() {
		time.Sleep(20 * time.Millisecond)
		f.broker.Publish("m1", stream.ChunkEvent(" world"))
		f.broker.CloseTopic("m1", stream.DoneEvent(nil, core.TypeRetrieval))
	}()

	w := f.do(http.MethodGet, "/messages/m1/stream", nil)
	require.Equal(t, http.StatusOK, w.Code)

	events := parseSSE(t, w.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, "Hello", events[0].Content)
	assert.Equal(t, " world", events[1].Content)
	assert.True(t, events[2].Done)
}

func TestListSessionMessages(t *testing.T) {
	f := newAPIFixture(t)
	f.addSession(t, "s1")
	f.addMessage(t, &core.Message{ID: "m1", SessionID: "s1", Query: "q1", Status: core.StatusCompleted})
	f.addMessage(t, &core.Message{ID: "m2", SessionID: "s1", Query: "q2", Status: core.StatusPending})

	w := f.do(http.MethodGet, "/sessions/s1/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []snapshot `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Messages, 2)
}

func TestListSessionMessages_UnknownSession(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodGet, "/sessions/missing/messages", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSession(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/sessions", gin.H{"clientId": "client-1", "timezone": "Europe/Berlin"})
	require.Equal(t, http.StatusCreated, w.Code)

	var sess core.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "client-1", sess.ClientID)
	assert.Equal(t, "Europe/Berlin", sess.Timezone)

	stored, err := f.sessions.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", stored.Timezone)
}

func TestCreateSession_MissingClient(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodPost, "/sessions", gin.H{"timezone": "UTC"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
