package events

import (
	"sync"

	"github.com/ethereum-optimism/infra/cppunit-explorer/metrics"
	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

const DefaultSubscriberBuffer = 256

// Broadcaster fans events out to subscriber channels. Emit never blocks: an
// event is dropped for a subscriber whose buffer is full.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan types.Event
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan types.Event)}
}

// Subscribe registers a new subscriber. The returned function unsubscribes
// and closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe(buffer int) (<-chan types.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan types.Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *Broadcaster) Emit(ev types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			metrics.RecordDroppedEvent()
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel; later subscriptions are closed immediately.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
