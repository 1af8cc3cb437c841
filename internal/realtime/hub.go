package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const subscriberBuffer = 32

// Hub fans events out to topic subscribers: in-process channels and
// websocket clients alike. It replaces the process-global socket handle
// of older designs; every component that publishes gets the hub injected.
type Hub struct {
	log *zap.SugaredLogger

	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		log:  log,
		subs: make(map[string]map[chan Event]struct{}),
	}
}

// Publish delivers an event to every subscriber of topic. Subscribers with
// a full buffer are skipped; a missed event is acceptable and clients are
// expected to fall back to re-verification polling.
func (h *Hub) Publish(topic, name string, payload any) {
	ev := Event{Topic: topic, Name: name, Payload: payload, At: time.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for ch := range h.subs[topic] {
		select {
		case ch <- ev:
			sent++
		default:
			// buffer full, skip
		}
	}
	h.log.Debugw("published event", "topic", topic, "event", name, "delivered", sent)
}

// Subscribe attaches a new subscriber channel to topic. The cancel func is
// idempotent and closes the channel once no publish can reach it.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.attach(topic, ch)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.detach(ch, topic)
			close(ch)
		})
	}
	return ch, cancel
}

func (h *Hub) attach(topic string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[topic]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[topic] = set
	}
	set[ch] = struct{}{}
}

// detach removes ch from every given topic. Publish sends happen under the
// read lock, so once detach returns the channel is safe to close.
func (h *Hub) detach(ch chan Event, topics ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		set := h.subs[topic]
		delete(set, ch)
		if len(set) == 0 {
			delete(h.subs, topic)
		}
	}
}

// SubscriberCount reports how many channels are attached to topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
