package translator

import (
	"fmt"

	"botbridge/pkg/bot"
	"botbridge/pkg/channel"
)

const footerSeparator = "\n\n"

// Outbound converts one bot message into one or two channel messages.
//
// Text payloads carry their rendered actions and footer inline. Cards and
// attachments cannot, so their actions and footer follow as a second text
// message. A footer without any rendered actions is dropped.
func (t Translator) Outbound(msg bot.Message) ([]channel.Message, error) {
	var primary channel.Message

	switch p := msg.MessagePayload.(type) {
	case bot.TextPayload:
		primary = channel.TextMessage(p.Text)
	case bot.CardPayload:
		primary = listMessage(p.Cards)
	case bot.AttachmentPayload:
		primary = attachmentMessage(p.Attachment)
	case nil:
		return nil, fmt.Errorf("%w: empty payload", ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, p.PayloadType())
	}

	decorations, _ := bot.DecorationsOf(msg.MessagePayload)
	actionText := RenderActions(decorations.Actions, decorations.GlobalActions)
	if actionText == "" {
		return []channel.Message{primary}, nil
	}

	if primary.Type == channel.MessageText {
		primary.Text += actionText
		if decorations.FooterText != "" {
			primary.Text += footerSeparator + decorations.FooterText
		}
		return []channel.Message{primary}, nil
	}

	if decorations.FooterText != "" {
		actionText += footerSeparator + decorations.FooterText
	}

	return []channel.Message{primary, channel.TextMessage(actionText)}, nil
}

func listMessage(cards []bot.Card) channel.Message {
	items := make([]channel.Card, 0, len(cards))
	for _, card := range cards {
		items = append(items, buildCard(card))
	}

	return channel.Message{Type: channel.MessageList, Items: items}
}

func attachmentMessage(attachment bot.Attachment) channel.Message {
	kind := channel.MessageFile
	if attachment.Type == "image" {
		kind = channel.MessageImage
	}

	return channel.Message{Type: kind, MediaURL: attachment.URL, Text: ""}
}
