// Package event is a small in-process dispatcher. The cart service fires
// CartUpdated after every applied mutation and the websocket hub listens:
//
//	bus := event.NewBus()
//	bus.Listen(event.CartUpdated, func(p interface{}) { ... })
//	bus.Fire(event.CartUpdated, event.CartChange{...})
package event

import (
	"sync"

	"github.com/modera-shop/modera/pkg/logger"
)

const CartUpdated = "cart.updated"

// CartChange is the CartUpdated payload.
type CartChange struct {
	AccountID string         `json:"accountId"`
	ItemID    string         `json:"itemId"`
	Delta     int            `json:"delta"`
	Cart      map[string]int `json:"cart"`
}

type Handler func(payload interface{})

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

func (b *Bus) Listen(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

func (b *Bus) snapshot(event string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, len(b.handlers[event]))
	copy(hs, b.handlers[event])
	return hs
}

// Fire calls every listener in order on the caller's goroutine. A panicking
// listener is logged and does not stop the others.
func (b *Bus) Fire(event string, payload interface{}) {
	for _, h := range b.snapshot(event) {
		call(event, h, payload)
	}
}

// Flush removes all listeners.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = map[string][]Handler{}
}

func call(event string, h Handler, payload interface{}) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("event: listener panicked", "event", event, "panic", rec)
		}
	}()
	h(payload)
}
