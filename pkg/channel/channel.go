// Package channel models the channel aggregator schema and the contracts of the
// transports that reach it.
package channel

import "context"

// Transport sends messages to end users through the aggregator.
type Transport interface {
	SendMessage(ctx context.Context, userID string, msg Message) (SendResult, error)
	GetUser(ctx context.Context, userID string) (User, error)
}

// EventHandler processes one inbound aggregator event.
type EventHandler func(context.Context, Event) error

// Adapter bridges a push-based transport (for example Telegram long polling) into
// the same event flow the aggregator webhook uses.
type Adapter interface {
	Name() string
	Run(context.Context, EventHandler) error
}
