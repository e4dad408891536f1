package worker

import (
	"strings"
	"sync"
	"time"
)

// defaultFlushInterval is the cadence at which partial answers reach storage
// while streaming.
const defaultFlushInterval = time.Second

// flusher accumulates streamed chunks and persists the partial answer on a
// timer, decoupled from token cadence. The final flush on completion is the
// caller's responsibility and is unconditional.
type flusher struct {
	persist func(partial string)

	mu    sync.Mutex
	buf   strings.Builder
	dirty bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// newFlusher starts the timer loop. persist is called from the flusher's
// goroutine with the full text accumulated so far.
func newFlusher(interval time.Duration, persist func(partial string)) *flusher {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	f := &flusher{
		persist: persist,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(f.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f.flush()
			case <-f.stop:
				return
			}
		}
	}()

	return f
}

// Add appends a streamed chunk. The chunk is persisted on the next tick.
func (f *flusher) Add(chunk string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf.WriteString(chunk)
	f.dirty = true
}

// Text returns the full text accumulated so far.
func (f *flusher) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.String()
}

// Stop halts the timer loop. No flush happens after Stop returns.
func (f *flusher) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
	<-f.done
}

func (f *flusher) flush() {
	f.mu.Lock()
	if !f.dirty {
		f.mu.Unlock()
		return
	}
	partial := f.buf.String()
	f.dirty = false
	f.mu.Unlock()

	f.persist(partial)
}
