package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"botbridge/pkg/channel"
	"botbridge/pkg/config"

	"github.com/mymmrac/telego"
)

const channelName = "telegram"
const messagePreviewLimit = 240

// Platform is the client platform reported for Telegram chats. Sends through the
// Bot API are synchronous, so it belongs in the serializer's sync platform set.
const Platform = "TELEGRAM"

// Adapter long-polls Telegram and turns updates into aggregator-shaped events.
type Adapter struct {
	cfg       config.TelegramConfig
	bot       *telego.Bot
	allowFrom map[string]struct{}
	log       *slog.Logger
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("channel.telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	return &Adapter{
		cfg:       cfg,
		bot:       bot,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
	}, nil
}

// Name returns the channel identifier used in status output and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts Telegram long polling and forwards updates to handler.
func (a *Adapter) Run(ctx context.Context, handler channel.EventHandler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	updates, err := a.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			message := update.Message
			if message == nil {
				continue
			}
			if message.From == nil {
				a.log.Debug("Ignoring message without sender")
				continue
			}

			senderID := strconv.FormatInt(message.From.ID, 10)
			if !a.senderAllowed(senderID) {
				a.log.Debug("Ignoring message from unauthorized sender", "sender_id", senderID)
				continue
			}

			inbound, ok := a.inboundMessage(ctx, message)
			if !ok {
				continue
			}

			ev := channel.Event{
				Trigger:  channel.TriggerMessageAppUser,
				AppUser:  channel.AppUser{ID: strconv.FormatInt(message.Chat.ID, 10)},
				Messages: []channel.InboundMessage{inbound},
			}
			a.log.Info("Received message", "chat_id", ev.AppUser.ID, "sender_id", senderID, "type", inbound.Type, "content", previewText(inbound.Text))

			if err := handler(ctx, ev); err != nil {
				a.log.Error("Failed to process inbound message", "chat_id", ev.AppUser.ID, "error", err)
			}
		}
	}
}

// inboundMessage maps a Telegram message onto the aggregator's inbound shape.
func (a *Adapter) inboundMessage(ctx context.Context, message *telego.Message) (channel.InboundMessage, bool) {
	id := strconv.Itoa(message.MessageID)

	switch {
	case strings.TrimSpace(message.Text) != "":
		return channel.InboundMessage{ID: id, Type: "text", Text: message.Text}, true
	case message.Location != nil:
		return channel.InboundMessage{ID: id, Type: "location", Coordinates: &channel.Coordinates{
			Lat:  message.Location.Latitude,
			Long: message.Location.Longitude,
		}}, true
	case len(message.Photo) > 0:
		// Telegram re-encodes photos as JPEG; the largest size is last.
		photo := message.Photo[len(message.Photo)-1]
		file, err := a.bot.GetFile(ctx, &telego.GetFileParams{FileID: photo.FileID})
		if err != nil {
			a.log.Error("Failed to resolve photo", "file_id", photo.FileID, "error", err)
			return channel.InboundMessage{}, false
		}
		return channel.InboundMessage{
			ID:        id,
			Type:      "image",
			Text:      message.Caption,
			MediaURL:  a.bot.FileDownloadURL(file.FilePath),
			MediaType: "image/jpeg",
		}, true
	default:
		a.log.Debug("Ignoring unsupported telegram message", "message_id", id)
		return channel.InboundMessage{}, false
	}
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}
