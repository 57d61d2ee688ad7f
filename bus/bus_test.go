package bus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"barorder/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(orderID uint, to entity.FulfillmentStatus) Event {
	return Event{
		ID:        fmt.Sprintf("evt-%d-%s", orderID, to),
		OrderID:   orderID,
		VendorID:  1,
		NewStatus: to,
		Actor:     entity.ActorVendor,
		Timestamp: time.Now().UTC(),
	}
}

func recv(t *testing.T, h *Handle) Event {
	t.Helper()
	select {
	case evt, ok := <-h.Events():
		require.True(t, ok, "channel closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishReachesCurrentSubscribers(t *testing.T) {
	b := New(8, nil)

	h1 := b.Subscribe(OrderKey(1))
	h2 := b.Subscribe(OrderKey(1))
	other := b.Subscribe(OrderKey(2))

	b.Publish(OrderKey(1), testEvent(1, entity.StatusConfirmed))

	assert.Equal(t, entity.StatusConfirmed, recv(t, h1).NewStatus)
	assert.Equal(t, entity.StatusConfirmed, recv(t, h2).NewStatus)
	select {
	case <-other.Events():
		t.Fatal("subscriber on an unrelated key received the event")
	default:
	}
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	b := New(8, nil)

	b.Publish(OrderKey(1), testEvent(1, entity.StatusConfirmed))
	h := b.Subscribe(OrderKey(1))

	select {
	case <-h.Events():
		t.Fatal("late subscriber must not see earlier events")
	default:
	}

	// but it sees everything from now on
	b.Publish(OrderKey(1), testEvent(1, entity.StatusPreparing))
	assert.Equal(t, entity.StatusPreparing, recv(t, h).NewStatus)
}

func TestPerKeyOrderingPreserved(t *testing.T) {
	b := New(256, nil)
	h := b.Subscribe(OrderKey(9))

	statuses := []entity.FulfillmentStatus{
		entity.StatusConfirmed, entity.StatusPreparing, entity.StatusReady, entity.StatusCompleted,
	}
	for i := 0; i < 50; i++ {
		b.Publish(OrderKey(9), Event{ID: fmt.Sprintf("%d", i), OrderID: 9, NewStatus: statuses[i%len(statuses)]})
	}
	for i := 0; i < 50; i++ {
		assert.Equal(t, fmt.Sprintf("%d", i), recv(t, h).ID)
	}
}

func TestSlowSubscriberIsDroppedNotBlocking(t *testing.T) {
	b := New(2, nil)
	slow := b.Subscribe(OrderKey(1))

	done := make(chan struct{})
	go func() {
		defer close(done)
		// publish more than the buffer without the slow side reading
		for i := 0; i < 5; i++ {
			b.Publish(OrderKey(1), Event{ID: fmt.Sprintf("%d", i), OrderID: 1})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	// the slow side gets the buffered prefix and then the close, which
	// is its signal to resync via snapshot
	got := 0
	for range slow.Events() {
		got++
	}
	assert.Equal(t, 2, got)
	assert.Equal(t, 0, b.Registry().Count(OrderKey(1)))
}

func keyCount(b *Bus) int {
	b.reg.mu.RLock()
	defer b.reg.mu.RUnlock()
	return len(b.reg.keys)
}

func TestEmptyKeyGroupsArePruned(t *testing.T) {
	b := New(2, nil)

	// unsubscribe path
	h := b.Subscribe(OrderKey(1))
	assert.Equal(t, 1, keyCount(b))
	b.Unsubscribe(h)
	assert.Equal(t, 0, keyCount(b), "drained key must leave the registry")

	// overflow-drop path
	slow := b.Subscribe(OrderKey(2))
	for i := 0; i < 5; i++ {
		b.Publish(OrderKey(2), testEvent(2, entity.StatusConfirmed))
	}
	for range slow.Events() {
	}
	assert.Equal(t, 0, keyCount(b))

	// a surviving subscriber keeps its group alive
	keep := b.Subscribe(OrderKey(3))
	gone := b.Subscribe(OrderKey(3))
	b.Unsubscribe(gone)
	assert.Equal(t, 1, keyCount(b))
	b.Unsubscribe(keep)
	assert.Equal(t, 0, keyCount(b))
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New(4, nil)
	h := b.Subscribe(VendorKey(3))

	b.Unsubscribe(h)
	assert.NotPanics(t, func() { b.Unsubscribe(h) })

	_, ok := <-h.Events()
	assert.False(t, ok, "channel must be closed after unsubscribe")
	assert.Equal(t, 0, b.Registry().Count(VendorKey(3)))
}

func TestConcurrentSubscribePublish(t *testing.T) {
	b := New(64, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		key := OrderKey(uint(i % 3))
		wg.Add(2)
		go func(key string) {
			defer wg.Done()
			h := b.Subscribe(key)
			for j := 0; j < 20; j++ {
				select {
				case <-h.Events():
				default:
				}
			}
			b.Unsubscribe(h)
		}(key)
		go func(key string) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				b.Publish(key, Event{ID: fmt.Sprintf("%d", j)})
			}
		}(key)
	}
	wg.Wait()
}
