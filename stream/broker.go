package stream

import (
	"log/slog"
	"sync"
)

// subscriberBuffer sizes each subscriber channel. A subscriber that falls
// this far behind loses intermediate chunks, but never the terminal event;
// the full text is recoverable from storage through the poll path.
const subscriberBuffer = 256

// topic is the replayable event log of one in-flight message.
type topic struct {
	mu     sync.Mutex
	log    []Event
	subs   map[chan Event]struct{}
	closed bool
}

// Broker routes synthesis events from producers to live subscribers,
// per message id. Late subscribers receive everything already published
// before following the live feed.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]*topic
	logger *slog.Logger
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]*topic),
		logger: slog.Default().With("component", "broker"),
	}
}

// Open registers a topic for a message about to be produced. Opening an
// already-open topic is a no-op.
func (b *Broker) Open(messageID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.topics[messageID]; !ok {
		b.topics[messageID] = &topic{subs: make(map[chan Event]struct{})}
	}
}

// Publish appends an event to the message's topic and forwards it to all
// subscribers. Publishing to an unknown or closed topic is dropped.
func (b *Broker) Publish(messageID string, event Event) {
	b.mu.RLock()
	t, ok := b.topics[messageID]
	b.mu.RUnlock()
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.log = append(t.log, event)
	for sub := range t.subs {
		select {
		case sub <- event:
		default:
			b.logger.Warn("subscriber lagging, dropping event", "message", messageID)
		}
	}
}

// CloseTopic publishes the terminal event, closes all subscriber channels
// and removes the topic. Safe to call for unknown ids. Every subscriber is
// guaranteed the terminal event even with a full buffer.
func (b *Broker) CloseTopic(messageID string, final Event) {
	b.mu.Lock()
	t, ok := b.topics[messageID]
	delete(b.topics, messageID)
	b.mu.Unlock()
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for sub := range t.subs {
		b.deliverFinal(messageID, sub, final)
		close(sub)
	}
	t.subs = nil
}

// deliverFinal places the terminal event on a subscriber channel. When the
// buffer is full an old chunk is discarded to make room; buffered chunks are
// recoverable from storage, the terminal event is not. The topic is already
// closed here, so no publisher can refill the channel.
func (b *Broker) deliverFinal(messageID string, sub chan Event, final Event) {
	for {
		select {
		case sub <- final:
			return
		default:
		}
		select {
		case <-sub:
			b.logger.Warn("subscriber lagging, dropping buffered event", "message", messageID)
		default:
		}
	}
}

// Subscribe attaches to a live topic. The returned channel first replays
// everything already published, then follows the live feed; it is closed
// when the topic closes or the returned cancel func runs. ok is false when
// no live producer exists for the message, or when the topic's backlog has
// outgrown the subscriber buffer; such callers stream from storage instead.
func (b *Broker) Subscribe(messageID string) (events <-chan Event, cancel func(), ok bool) {
	b.mu.RLock()
	t, exists := b.topics[messageID]
	b.mu.RUnlock()
	if !exists {
		return nil, nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || len(t.log) >= subscriberBuffer {
		return nil, nil, false
	}

	ch := make(chan Event, subscriberBuffer)
	for _, event := range t.log {
		ch <- event
	}
	t.subs[ch] = struct{}{}

	cancel = func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, still := t.subs[ch]; still {
			delete(t.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, true
}

// Live reports whether a producer is currently streaming the message.
func (b *Broker) Live(messageID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.topics[messageID]
	return ok
}
