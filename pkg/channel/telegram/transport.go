package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"botbridge/pkg/channel"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// SendMessage renders a channel message as one or more Telegram messages. List
// items are sent one per message, with their media as a photo when present.
func (a *Adapter) SendMessage(ctx context.Context, userID string, msg channel.Message) (channel.SendResult, error) {
	chatID, err := strconv.ParseInt(strings.TrimSpace(userID), 10, 64)
	if err != nil {
		return channel.SendResult{}, fmt.Errorf("invalid telegram chat id %q: %w", userID, err)
	}
	chat := tu.ID(chatID)

	var sent *telego.Message
	switch msg.Type {
	case channel.MessageText:
		if strings.TrimSpace(msg.Text) == "" {
			return channel.SendResult{}, fmt.Errorf("telegram cannot send empty text to %s", userID)
		}
		sent, err = a.bot.SendMessage(ctx, tu.Message(chat, msg.Text))
	case channel.MessageList:
		for _, item := range msg.Items {
			sent, err = a.sendCard(ctx, chat, item)
			if err != nil {
				break
			}
		}
	case channel.MessageImage:
		sent, err = a.bot.SendPhoto(ctx, tu.Photo(chat, tu.FileFromURL(msg.MediaURL)).WithCaption(msg.Text))
	case channel.MessageFile:
		sent, err = a.bot.SendDocument(ctx, tu.Document(chat, tu.FileFromURL(msg.MediaURL)).WithCaption(msg.Text))
	default:
		return channel.SendResult{}, fmt.Errorf("telegram cannot render %q messages", msg.Type)
	}
	if err != nil {
		return channel.SendResult{}, fmt.Errorf("send telegram %s message: %w", msg.Type, err)
	}

	a.log.Info("Sending message", "chat_id", chatID, "type", msg.Type, "content", previewText(msg.Text))

	result := channel.SendResult{}
	if sent != nil {
		result.MessageID = strconv.Itoa(sent.MessageID)
	}
	return result, nil
}

// GetUser reports the chat as a single active, primary Telegram client.
func (a *Adapter) GetUser(_ context.Context, userID string) (channel.User, error) {
	return channel.User{
		ID: userID,
		Clients: []channel.Client{
			{ID: userID, Platform: Platform, Active: true, Primary: true},
		},
	}, nil
}

func (a *Adapter) sendCard(ctx context.Context, chat telego.ChatID, item channel.Card) (*telego.Message, error) {
	caption := cardCaption(item)
	if item.MediaURL != "" {
		return a.bot.SendPhoto(ctx, tu.Photo(chat, tu.FileFromURL(item.MediaURL)).WithCaption(caption))
	}
	if caption == "" {
		return nil, nil
	}
	return a.bot.SendMessage(ctx, tu.Message(chat, caption))
}

// cardCaption joins a list item's title and description.
func cardCaption(item channel.Card) string {
	title := strings.TrimSpace(item.Title)
	description := strings.TrimSpace(item.Description)

	switch {
	case title == "":
		return description
	case description == "":
		return title
	default:
		return title + "\n" + description
	}
}
