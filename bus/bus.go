package bus

import (
	"log/slog"
)

const DefaultBuffer = 16

// Bus is the in-process publish/subscribe channel for lifecycle events.
// Delivery is at-least-once to subscribers registered at publish time and
// FIFO per key. There is no durable replay: late joiners catch up through
// a snapshot read, not through the bus.
type Bus struct {
	reg    *Registry
	buffer int
	lg     *slog.Logger
}

func New(buffer int, lg *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if lg == nil {
		lg = slog.Default()
	}
	return &Bus{reg: NewRegistry(), buffer: buffer, lg: lg}
}

func (b *Bus) Registry() *Registry { return b.reg }

// Subscribe registers a new subscriber on key.
func (b *Bus) Subscribe(key string) *Handle {
	return b.reg.Register(key, b.buffer)
}

// Unsubscribe cancels a subscription. Idempotent.
func (b *Bus) Unsubscribe(h *Handle) {
	b.reg.Deregister(h)
}

// Publish delivers evt to every subscriber currently registered on key.
// A subscriber whose buffer is full is dropped rather than allowed to
// block the publisher or its siblings; its channel close tells the
// transport layer to force a resync.
func (b *Bus) Publish(key string, evt Event) {
	b.reg.each(key, func(h *Handle) bool {
		select {
		case h.ch <- evt:
			return true
		default:
			b.lg.Warn("slow subscriber dropped",
				"key", key, "subscription", h.ID, "event", evt.ID)
			return false
		}
	})
}
