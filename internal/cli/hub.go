package cli

import (
	"context"
	"sync"
)

// Hub fans reload notifications out to any number of watchers. It
// implements ports.Watchable.
type Hub struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan string]struct{})}
}

// Watch subscribes until ctx is done, then closes the channel.
func (h *Hub) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 10)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch, nil
}

// Publish delivers id to every watcher, dropping it for watchers whose
// buffer is full.
func (h *Hub) Publish(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- id:
		default:
		}
	}
}

// Pipe publishes everything received from src until it closes.
func (h *Hub) Pipe(src <-chan string) {
	for id := range src {
		h.Publish(id)
	}
}
