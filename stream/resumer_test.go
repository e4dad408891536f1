package stream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/storage"
	"github.com/seamark/answerd/storage/badger"
)

func newTestResumer(t *testing.T) (*Resumer, storage.MessageStore) {
	t.Helper()
	messages, _, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	resumer := NewResumer(messages,
		WithPollIntervals(time.Millisecond, 5*time.Millisecond),
		WithMaxAttempts(50),
	)
	return resumer, messages
}

func storedAnswer(t *testing.T, text string, results []core.ResultItem) string {
	t.Helper()
	raw, err := json.Marshal(core.Answer{Text: text, Results: results})
	require.NoError(t, err)
	return string(raw)
}

func collectEvents(t *testing.T, resumer *Resumer, messageID string) ([]Event, error) {
	t.Helper()
	var events []Event
	err := resumer.Resume(context.Background(), messageID, func(e Event) error {
		events = append(events, e)
		return nil
	})
	return events, err
}

func TestResume_TerminalReplaySingleChunk(t *testing.T) {
	resumer, messages := newTestResumer(t)

	results := []core.ResultItem{{Title: "Doc", URL: "https://example.com", Score: 0.9}}
	_, err := messages.AddMessage(context.Background(), &core.Message{
		ID:        "m1",
		SessionID: "s1",
		Query:     "q",
		Status:    core.StatusCompleted,
		Type:      core.TypeRetrieval,
		Summary:   "Hello world",
		Response:  storedAnswer(t, "Hello world", results),
	})
	require.NoError(t, err)

	events, err := collectEvents(t, resumer, "m1")
	require.NoError(t, err)

	// exactly one full-text chunk, then one done event
	require.Len(t, events, 2)
	assert.Equal(t, "Hello world", events[0].Content)
	assert.False(t, events[0].Done)
	assert.True(t, events[1].Done)
	assert.Equal(t, core.TypeRetrieval, events[1].Type)
	assert.Equal(t, results, events[1].Results)
}

func TestResume_EmitsOnlyAppendedSuffix(t *testing.T) {
	resumer, messages := newTestResumer(t)

	msg := &core.Message{
		ID:        "m1",
		SessionID: "s1",
		Query:     "q",
		Status:    core.StatusProcessing,
		Summary:   "Hello",
	}
	_, err := messages.AddMessage(context.Background(), msg)
	require.NoError(t, err)

	var events []Event
	err = resumer.Resume(context.Background(), "m1", func(e Event) error {
		events = append(events, e)
		if len(events) == 1 {
			// the answer grows from 5 to 12 characters between polls
			msg.Summary = "Hello world!"
			msg.Status = core.StatusCompleted
			msg.Response = storedAnswer(t, "Hello world!", nil)
			_, uerr := messages.UpdateMessage(context.Background(), msg)
			require.NoError(t, uerr)
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, "Hello", events[0].Content)
	assert.Equal(t, " world!", events[1].Content)
	assert.True(t, events[2].Done)
}

func TestResume_FailedMessageEndsWithErrorChunkAndDone(t *testing.T) {
	resumer, messages := newTestResumer(t)

	_, err := messages.AddMessage(context.Background(), &core.Message{
		ID:        "m1",
		SessionID: "s1",
		Query:     "q",
		Status:    core.StatusFailed,
	})
	require.NoError(t, err)

	events, err := collectEvents(t, resumer, "m1")
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, failedReply, events[0].Content)
	assert.True(t, events[1].Done)
}

func TestResume_CancelledMessage(t *testing.T) {
	resumer, messages := newTestResumer(t)

	_, err := messages.AddMessage(context.Background(), &core.Message{
		ID:        "m1",
		SessionID: "s1",
		Query:     "q",
		Status:    core.StatusCancelled,
	})
	require.NoError(t, err)

	events, err := collectEvents(t, resumer, "m1")
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, cancelledReply, events[0].Content)
	assert.True(t, events[1].Done)
}

func TestResume_AttemptCeiling(t *testing.T) {
	_, messages := newTestResumer(t)

	_, err := messages.AddMessage(context.Background(), &core.Message{
		ID:        "m1",
		SessionID: "s1",
		Query:     "q",
		Status:    core.StatusPending,
	})
	require.NoError(t, err)

	shortResumer := NewResumer(messages,
		WithPollIntervals(time.Millisecond, 2*time.Millisecond),
		WithMaxAttempts(3),
	)
	events, err := collectEvents(t, shortResumer, "m1")
	assert.ErrorIs(t, err, ErrPollExhausted)

	require.Len(t, events, 2)
	assert.Equal(t, timeoutReply, events[0].Content)
	assert.True(t, events[1].Done)
}

func TestResume_UnknownMessage(t *testing.T) {
	resumer, _ := newTestResumer(t)

	events, err := collectEvents(t, resumer, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// clients still get a terminated stream
	require.Len(t, events, 2)
	assert.True(t, events[1].Done)
}

func TestResume_ContextCancellation(t *testing.T) {
	resumer, messages := newTestResumer(t)

	_, err := messages.AddMessage(context.Background(), &core.Message{
		ID:        "m1",
		SessionID: "s1",
		Query:     "q",
		Status:    core.StatusPending,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = resumer.Resume(ctx, "m1", func(Event) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
