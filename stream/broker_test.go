package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamark/answerd/core"
)

func TestBroker_SubscribeReplaysThenFollows(t *testing.T) {
	broker := NewBroker()
	broker.Open("m1")
	broker.Publish("m1", ChunkEvent("Hello"))

	events, cancel, ok := broker.Subscribe("m1")
	require.True(t, ok)
	defer cancel()

	// already-published chunk is replayed first
	assert.Equal(t, "Hello", (<-events).Content)

	broker.Publish("m1", ChunkEvent(" world"))
	assert.Equal(t, " world", (<-events).Content)

	broker.CloseTopic("m1", DoneEvent(nil, core.TypeRetrieval))
	final := <-events
	assert.True(t, final.Done)
	assert.Equal(t, core.TypeRetrieval, final.Type)

	_, open := <-events
	assert.False(t, open, "channel should close with the topic")
}

func TestBroker_SubscribeWithoutProducer(t *testing.T) {
	broker := NewBroker()
	_, _, ok := broker.Subscribe("missing")
	assert.False(t, ok)
}

func TestBroker_CancelDetachesSubscriber(t *testing.T) {
	broker := NewBroker()
	broker.Open("m1")

	events, cancel, ok := broker.Subscribe("m1")
	require.True(t, ok)
	cancel()

	_, open := <-events
	assert.False(t, open)

	// publishing after cancel must not panic
	broker.Publish("m1", ChunkEvent("late"))
	broker.CloseTopic("m1", DoneEvent(nil, ""))
}

func TestBroker_PublishAfterCloseIsDropped(t *testing.T) {
	broker := NewBroker()
	broker.Open("m1")
	broker.CloseTopic("m1", DoneEvent(nil, ""))

	broker.Publish("m1", ChunkEvent("ghost"))
	assert.False(t, broker.Live("m1"))
}

func TestBroker_MultipleSubscribers(t *testing.T) {
	broker := NewBroker()
	broker.Open("m1")

	first, cancelFirst, ok := broker.Subscribe("m1")
	require.True(t, ok)
	defer cancelFirst()
	second, cancelSecond, ok := broker.Subscribe("m1")
	require.True(t, ok)
	defer cancelSecond()

	broker.Publish("m1", ChunkEvent("both"))
	assert.Equal(t, "both", (<-first).Content)
	assert.Equal(t, "both", (<-second).Content)
}

func TestBroker_SlowSubscriberStillGetsTerminalEvent(t *testing.T) {
	broker := NewBroker()
	broker.Open("m1")

	events, cancel, ok := broker.Subscribe("m1")
	require.True(t, ok)
	defer cancel()

	// publish well past the buffer without draining, then close
	for i := 0; i < subscriberBuffer+50; i++ {
		broker.Publish("m1", ChunkEvent("x"))
	}
	broker.CloseTopic("m1", DoneEvent(nil, core.TypeRetrieval))

	var received []Event
	for event := range events {
		received = append(received, event)
	}
	require.NotEmpty(t, received)
	last := received[len(received)-1]
	assert.True(t, last.Done, "terminal event must survive a full buffer")
	assert.Equal(t, core.TypeRetrieval, last.Type)
}

func TestBroker_SubscribeDeclinesOversizedBacklog(t *testing.T) {
	broker := NewBroker()
	broker.Open("m1")
	for i := 0; i < subscriberBuffer; i++ {
		broker.Publish("m1", ChunkEvent("x"))
	}

	// a late attach that cannot replay the backlog streams from storage
	_, _, ok := broker.Subscribe("m1")
	assert.False(t, ok)
	broker.CloseTopic("m1", DoneEvent(nil, ""))
}

func TestBroker_OpenIsIdempotent(t *testing.T) {
	broker := NewBroker()
	broker.Open("m1")
	broker.Publish("m1", ChunkEvent("kept"))
	broker.Open("m1")

	events, cancel, ok := broker.Subscribe("m1")
	require.True(t, ok)
	defer cancel()

	assert.Equal(t, "kept", (<-events).Content)
}
