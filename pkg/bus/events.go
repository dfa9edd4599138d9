package bus

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventDeliveryQueued       EventType = "delivery_queued"
	EventDeliverySent         EventType = "delivery_sent"
	EventDeliveryAcknowledged EventType = "delivery_acknowledged"
	EventDeliveryFailed       EventType = "delivery_failed"
	EventBotForwarded         EventType = "bot_forwarded"
	EventBotForwardFailed     EventType = "bot_forward_failed"
)

type Event struct {
	Type      EventType `json:"type"`
	At        time.Time `json:"at"`
	UserID    string    `json:"user_id,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Pending   int       `json:"pending"`
	Error     string    `json:"error,omitempty"`
}

func (mb *MessageBus) PublishEvent(ctx context.Context, event Event) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	if ctx.Err() != nil {
		return false
	}

	// Subscriber channels are only closed under the write lock, so the read
	// lock must be held for the whole send loop.
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	select {
	case <-mb.done:
		return false
	default:
	}

	for _, ch := range mb.eventSubscribers {
		select {
		case ch <- event:
		default:
			// Drop instead of blocking the publisher on slow subscribers.
		}
	}

	return true
}

func (mb *MessageBus) SubscribeEvents(ctx context.Context, buffer int) (<-chan Event, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan Event, buffer)

	mb.mu.Lock()
	select {
	case <-mb.done:
		mb.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}

	id := mb.nextEventSubscriberID
	mb.nextEventSubscriberID++
	mb.eventSubscribers[id] = ch
	mb.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			mb.mu.Lock()
			if eventCh, ok := mb.eventSubscribers[id]; ok {
				delete(mb.eventSubscribers, id)
				close(eventCh)
			}
			mb.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-mb.done:
			unsubscribe()
		}
	}()

	return ch, unsubscribe
}
