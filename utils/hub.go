// utils/hub.go
package utils

import (
	"sync"

	"github.com/google/uuid"

	"hostsboard/common"
	"hostsboard/services"
)

// Hub fans render events out to live UI subscribers. It implements
// services.Sink.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]chan services.Event
	buf  int
}

func NewHub(buf int) *Hub {
	if buf <= 0 {
		buf = 256
	}
	return &Hub{subs: map[string]chan services.Event{}, buf: buf}
}

// Publish never blocks. A subscriber whose buffer is full is dropped and
// its channel closed; the client reconnects and starts from a fresh snapshot.
func (h *Hub) Publish(e services.Event) {
	var slow []string

	h.mu.RLock()
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			slow = append(slow, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range slow {
		common.WarnLog("hub: subscriber %s too slow, dropping", id)
		h.remove(id)
	}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the consumer goes away.
func (h *Hub) Subscribe() (string, <-chan services.Event, func()) {
	id := uuid.NewString()
	ch := make(chan services.Event, h.buf)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()
	common.DebugLog("hub: subscriber %s connected", id)

	return id, ch, func() {
		if h.remove(id) {
			common.DebugLog("hub: subscriber %s disconnected", id)
		}
	}
}

// Len reports the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.subs[id]
	if !ok {
		return false
	}
	delete(h.subs, id)
	close(ch)
	return true
}
