// Package realtime fans out per-user change events to in-process
// subscribers and WebSocket clients.
package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventWalletCreated      = "wallet.created"
	EventWalletDeleted      = "wallet.deleted"
	EventWalletPrimary      = "wallet.primary"
	EventPortfolioRefreshed = "portfolio.refreshed"
)

const defaultBufferSize = 32

type Event struct {
	Type    string    `json:"type"`
	UserID  uuid.UUID `json:"user_id"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Subscriber receives one user's events on C until unsubscribed.
type Subscriber struct {
	UserID uuid.UUID
	C      <-chan Event
	ch     chan Event
}

// Hub routes events to the subscribers of the event's user. Publish never
// blocks; a subscriber with a full buffer misses the event.
type Hub struct {
	mu         sync.RWMutex
	subs       map[uuid.UUID]map[*Subscriber]struct{}
	bufferSize int
	dropped    atomic.Int64
	logger     *zap.Logger
	now        func() time.Time
}

func NewHub(logger *zap.Logger, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:       make(map[uuid.UUID]map[*Subscriber]struct{}),
		bufferSize: bufferSize,
		logger:     logger,
		now:        time.Now,
	}
}

func (h *Hub) Subscribe(userID uuid.UUID) *Subscriber {
	ch := make(chan Event, h.bufferSize)
	s := &Subscriber{UserID: userID, C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscriber]struct{})
	}
	h.subs[userID][s] = struct{}{}
	return s
}

// Unsubscribe removes s and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[s.UserID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	close(s.ch)
	if len(set) == 0 {
		delete(h.subs, s.UserID)
	}
}

// Publish stamps and delivers an event for userID.
func (h *Hub) Publish(userID uuid.UUID, eventType string, payload any) {
	if h == nil {
		return
	}
	ev := Event{Type: eventType, UserID: userID, Payload: payload, At: h.now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[userID] {
		select {
		case s.ch <- ev:
		default:
			h.dropped.Add(1)
			h.logger.Warn("subscriber buffer full, dropping event",
				zap.String("user_id", userID.String()),
				zap.String("type", eventType),
			)
		}
	}
}

// Subscribers counts the live subscriptions of userID.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Dropped counts events discarded because a subscriber was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
