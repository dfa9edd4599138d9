// Package bridge composes translation and delivery behind the two operations the
// HTTP boundary uses.
package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"botbridge/pkg/bot"
	"botbridge/pkg/channel"
	"botbridge/pkg/translator"
)

// Queue accepts outbound messages and their delivery acknowledgments.
type Queue interface {
	Enqueue(userID string, msg channel.Message)
	AcknowledgeDelivered(messageID string)
}

type Bridge struct {
	translator translator.Translator
	queue      Queue
	log        *slog.Logger
}

func New(t translator.Translator, queue Queue, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}

	return &Bridge{
		translator: t,
		queue:      queue,
		log:        log.With("component", "bridge"),
	}
}

// Send translates a bot message and queues the result for delivery, in order.
func (b *Bridge) Send(ctx context.Context, msg bot.Message) error {
	messages, err := b.translator.Outbound(msg)
	if err != nil {
		return fmt.Errorf("translate outbound message for %s: %w", msg.UserID, err)
	}

	for _, out := range messages {
		out.Role = channel.RoleAppMaker
		b.queue.Enqueue(msg.UserID, out)
	}

	b.log.DebugContext(ctx, "Queued bot message", "user_id", msg.UserID, "payload", msg.MessagePayload.PayloadType(), "messages", len(messages))
	return nil
}

// Receive translates an aggregator event into bot messages. Delivery
// acknowledgments are routed to the queue and produce no messages.
func (b *Bridge) Receive(ctx context.Context, ev channel.Event) ([]bot.Message, error) {
	if ev.Trigger.IsDelivery() {
		for _, id := range translator.DeliveredMessageIDs(ev) {
			b.queue.AcknowledgeDelivered(id)
		}
		return nil, nil
	}

	messages, err := b.translator.Inbound(ev)
	if err != nil {
		return nil, fmt.Errorf("translate %s event for %s: %w", ev.Trigger, ev.AppUser.ID, err)
	}

	b.log.DebugContext(ctx, "Translated channel event", "trigger", ev.Trigger, "user_id", ev.AppUser.ID, "messages", len(messages))
	return messages, nil
}
