package translator

import (
	"encoding/json"
	"fmt"

	"botbridge/pkg/bot"
	"botbridge/pkg/channel"
)

const mediaTypeJPEG = "image/jpeg"

// Inbound converts one aggregator event into zero or more bot messages.
//
// Delivery acknowledgments and unknown triggers produce no messages; use
// DeliveredMessageIDs to read acknowledgments.
func (t Translator) Inbound(ev channel.Event) ([]bot.Message, error) {
	userID := ev.AppUser.ID

	switch ev.Trigger {
	case channel.TriggerMessageAppUser:
		return t.inboundMessages(ev.Messages, userID), nil
	case channel.TriggerPostback:
		return t.inboundPostbacks(ev.Postbacks, userID)
	default:
		return nil, nil
	}
}

// DeliveredMessageIDs returns the message ids acknowledged by a delivery event.
func DeliveredMessageIDs(ev channel.Event) []string {
	switch ev.Trigger {
	case channel.TriggerDeliveryUser, channel.TriggerDeliveryChannel:
		if ev.Message == nil {
			return nil
		}
		return []string{ev.Message.ID}
	case channel.TriggerDeliverySuccess:
		ids := make([]string, 0, len(ev.Messages))
		for _, msg := range ev.Messages {
			ids = append(ids, msg.ID)
		}
		return ids
	default:
		return nil
	}
}

func (t Translator) inboundMessages(messages []channel.InboundMessage, userID string) []bot.Message {
	out := make([]bot.Message, 0, len(messages))
	for _, msg := range messages {
		payload, ok := inboundPayload(msg)
		if !ok {
			continue
		}

		out = append(out, bot.Message{
			UserID:         userID,
			MessagePayload: payload,
			Metadata:       &bot.Metadata{Source: t.source()},
		})
	}

	return out
}

func inboundPayload(msg channel.InboundMessage) (bot.Payload, bool) {
	switch msg.Type {
	case "text":
		return bot.TextPayload{Text: msg.Text}, true
	case "location":
		if msg.Coordinates == nil {
			return nil, false
		}
		return bot.LocationPayload{Location: bot.Location{
			Latitude:  msg.Coordinates.Lat,
			Longitude: msg.Coordinates.Long,
		}}, true
	case "image":
		// Only JPEG is mapped; other media types are dropped.
		if msg.MediaType != mediaTypeJPEG {
			return nil, false
		}
		return bot.AttachmentPayload{Attachment: bot.Attachment{Type: "image", URL: msg.MediaURL}}, true
	default:
		return nil, false
	}
}

func (t Translator) inboundPostbacks(postbacks []channel.Postback, userID string) ([]bot.Message, error) {
	out := make([]bot.Message, 0, len(postbacks))
	for i, pb := range postbacks {
		var parsed bot.Postback
		if err := json.Unmarshal([]byte(pb.Action.Payload), &parsed); err != nil {
			return nil, fmt.Errorf("%w: postback %d: %v", ErrMalformedPostback, i, err)
		}

		out = append(out, bot.Message{
			UserID:         userID,
			MessagePayload: bot.PostbackPayload{Postback: parsed},
			Metadata:       &bot.Metadata{Source: t.source()},
		})
	}

	return out, nil
}
