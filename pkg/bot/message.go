// Package bot models the message schema exchanged with the conversational-bot
// platform webhook.
package bot

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message is one bot-side message addressed to, or coming from, a channel user.
type Message struct {
	UserID         string    `json:"userId"`
	MessagePayload Payload   `json:"messagePayload"`
	Metadata       *Metadata `json:"metadata,omitempty"`
}

// Metadata identifies the channel a message came through.
type Metadata struct {
	Source string `json:"source,omitempty"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserID         string          `json:"userId"`
		MessagePayload json.RawMessage `json:"messagePayload"`
		Metadata       *Metadata       `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var payload Payload
	if len(raw.MessagePayload) > 0 && string(raw.MessagePayload) != "null" {
		decoded, err := DecodePayload(raw.MessagePayload)
		if err != nil {
			return fmt.Errorf("decode messagePayload: %w", err)
		}
		payload = decoded
	}

	*m = Message{
		UserID:         raw.UserID,
		MessagePayload: payload,
		Metadata:       raw.Metadata,
	}
	return nil
}

// Decode parses a bot webhook message body.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	if msg.MessagePayload == nil {
		return Message{}, errors.New("messagePayload is required")
	}

	return msg, nil
}
