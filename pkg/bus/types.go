package bus

import "botbridge/pkg/bot"

// InboundMessage is one translated message waiting to be forwarded to the bot.
type InboundMessage struct {
	RequestID string      `json:"request_id"`
	Message   bot.Message `json:"message"`
}
