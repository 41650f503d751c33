// Package realtime keeps the registry of observers watching conversations and fans events out to them.
package realtime

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"support-relay/internal/domain/notify"
)

// DefaultBufferSize is the default per-observer event buffer.
const DefaultBufferSize = 64

// ErrObserverClosed is returned by Send after the observer was closed.
var ErrObserverClosed = errors.New("observer closed")

// ErrObserverFull is returned by Send when the observer's buffer is full.
var ErrObserverFull = errors.New("observer buffer full")

// Observer receives events for the conversations it joined.
// Send must not block.
type Observer interface {
	ID() string
	Send(event notify.Event) error
}

// Hub is a concurrency-safe conversation-scoped pub/sub registry.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[string]Observer
	log   zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms: make(map[uint]map[string]Observer),
		log:   log.With().Str("component", "realtime-hub").Logger(),
	}
}

// Subscribe adds observer to the conversation's room. Subscribing twice is harmless.
func (h *Hub) Subscribe(conversationID uint, observer Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[string]Observer)
		h.rooms[conversationID] = room
	}
	room[observer.ID()] = observer
}

// Unsubscribe removes the observer from one conversation.
func (h *Hub) Unsubscribe(conversationID uint, observerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conversationID, observerID)
}

// UnsubscribeAll removes the observer from every conversation, e.g. on disconnect.
func (h *Hub) UnsubscribeAll(observerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conversationID := range h.rooms {
		h.removeLocked(conversationID, observerID)
	}
}

func (h *Hub) removeLocked(conversationID uint, observerID string) {
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(room, observerID)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}

// Publish delivers event to every observer of the conversation and returns how many
// received it. Observers whose send fails are dropped from that conversation only.
func (h *Hub) Publish(conversationID uint, event notify.Event) int {
	h.mu.RLock()
	room := h.rooms[conversationID]
	observers := make([]Observer, 0, len(room))
	for _, observer := range room {
		observers = append(observers, observer)
	}
	h.mu.RUnlock()

	delivered := 0
	var failed []string
	for _, observer := range observers {
		if err := observer.Send(event); err != nil {
			failed = append(failed, observer.ID())
			h.log.Warn().Err(err).
				Str("observer_id", observer.ID()).
				Uint("conversation_id", conversationID).
				Msg("dropping observer after failed send")
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, id := range failed {
			h.removeLocked(conversationID, id)
		}
		h.mu.Unlock()
	}
	return delivered
}

// Observers returns the number of observers subscribed to the conversation.
func (h *Hub) Observers(conversationID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// ChannelObserver buffers events in a channel drained by its owner.
type ChannelObserver struct {
	id     string
	mu     sync.Mutex
	ch     chan notify.Event
	closed bool
}

// NewChannelObserver creates an observer with the given buffer size.
func NewChannelObserver(id string, buffer int) *ChannelObserver {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &ChannelObserver{id: id, ch: make(chan notify.Event, buffer)}
}

func (o *ChannelObserver) ID() string { return o.id }

// Send enqueues without blocking; a full buffer counts as a failed send.
func (o *ChannelObserver) Send(event notify.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrObserverClosed
	}
	select {
	case o.ch <- event:
		return nil
	default:
		return ErrObserverFull
	}
}

// Events returns the channel the owner reads from. It is closed by Close.
func (o *ChannelObserver) Events() <-chan notify.Event {
	return o.ch
}

// Close stops delivery and closes the events channel.
func (o *ChannelObserver) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}
