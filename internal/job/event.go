package job

import (
	"sync"
	"time"
)

// EventType distinguishes the kinds of progress events a job emits.
type EventType string

const (
	// EventStatus marks a job lifecycle transition.
	EventStatus EventType = "status"
	// EventChunk marks a chunk state change.
	EventChunk EventType = "chunk"
	// EventMessage carries free-form progress text.
	EventMessage EventType = "message"
)

// Event is one progress notification. Seq is assigned by the bus and is
// strictly increasing per job.
type Event struct {
	Seq         int64
	Type        EventType
	Timestamp   time.Time
	Status      Status
	ChunkIndex  int
	ChunkStatus ChunkStatus
	ChunksDone  int
	ChunksTotal int
	Message     string
}

// defaultEventHistory bounds the per-job event buffer.
const defaultEventHistory = 256

// EventBus stores recent events and fans them out to subscribers. Publish
// never blocks: a subscriber that falls behind loses events rather than
// stalling the pipeline.
type EventBus struct {
	mu        sync.Mutex
	events    []Event
	nextSeq   int64
	maxEvents int
	subs      map[int]chan Event
	nextSub   int
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = defaultEventHistory
	}
	return &EventBus{
		maxEvents: maxEvents,
		subs:      make(map[int]chan Event),
	}
}

// Publish stamps the event with a sequence number and timestamp, stores it,
// and offers it to every subscriber without blocking.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		b.events = b.events[len(b.events)-b.maxEvents:]
	}

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return event
}

// Since returns all buffered events with a sequence greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Event
	for _, e := range b.events {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// Subscribe registers a buffered listener channel. The returned cancel
// function unregisters it and closes the channel.
func (b *EventBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}
