package server

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/tweetduck/internal/shared/id"
)

const clientBuffer = 64

// Event is one message on the /events stream
type Event struct {
	ID   id.EventID `json:"id"`
	Type string     `json:"type"`
	Time time.Time  `json:"time"`
	Data any        `json:"data,omitempty"`
}

// Hub fans shell events out to websocket clients. Slow clients lose events
// rather than stall the publisher.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[chan Event]struct{}
	dropped atomic.Uint64
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{logger: logger, clients: make(map[chan Event]struct{})}
}

// Publish sends an event to every subscriber without blocking
func (h *Hub) Publish(kind string, data any) {
	ev := Event{ID: id.NewEventID(), Type: kind, Time: time.Now().UTC(), Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			if n := h.dropped.Add(1); n%clientBuffer == 1 {
				h.logger.Debug("event stream client lagging", zap.Uint64("dropped", n))
			}
		}
	}
}

// Subscribe registers a client channel
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, clientBuffer)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Dropped reports how many deliveries were skipped for slow clients
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Clients reports the number of subscribers
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
