package relay

import (
	"log/slog"
	"sync"
)

// subscriber is one connected client. Frames are delivered through a
// buffered channel so one slow reader cannot stall the broadcast path.
type subscriber struct {
	send chan []byte
}

const sendBuffer = 64

// Hub groups subscribers by chat id and fans pushed chunks out to them.
// Delivery order within one chat follows push order; a subscriber whose
// buffer is full loses the frame rather than blocking the rest.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*subscriber]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		groups: make(map[string]map[*subscriber]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new subscriber for a chat and returns it.
func (h *Hub) Subscribe(chatID string) *subscriber {
	sub := &subscriber{send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	group, ok := h.groups[chatID]
	if !ok {
		group = make(map[*subscriber]struct{})
		h.groups[chatID] = group
	}
	group[sub] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("relay subscriber joined", "chat_id", chatID)
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call
// once per subscriber.
func (h *Hub) Unsubscribe(chatID string, sub *subscriber) {
	h.mu.Lock()
	if group, ok := h.groups[chatID]; ok {
		if _, member := group[sub]; member {
			delete(group, sub)
			close(sub.send)
		}
		if len(group) == 0 {
			delete(h.groups, chatID)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends a frame to every subscriber of a chat.
func (h *Hub) Broadcast(chatID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.groups[chatID] {
		select {
		case sub.send <- frame:
		default:
			h.logger.Warn("relay subscriber buffer full, frame dropped", "chat_id", chatID)
		}
	}
}

// Subscribers reports the current group size for a chat.
func (h *Hub) Subscribers(chatID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[chatID])
}
