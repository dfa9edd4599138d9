package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"botbridge/pkg/bot"
	"botbridge/pkg/channel"
	"botbridge/pkg/delivery"
	"botbridge/pkg/translator"

	"github.com/stretchr/testify/require"
)

type queued struct {
	userID string
	msg    channel.Message
}

type recordingQueue struct {
	mu    sync.Mutex
	items []queued
	acks  []string
}

func (q *recordingQueue) Enqueue(userID string, msg channel.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, queued{userID: userID, msg: msg})
}

func (q *recordingQueue) AcknowledgeDelivered(messageID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acks = append(q.acks, messageID)
}

func TestSendTextEnqueuesSingleMessage(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	b := New(translator.New(""), q, nil)

	err := b.Send(context.Background(), bot.Message{
		UserID: "u1",
		MessagePayload: bot.TextPayload{
			Text:        "Pick one",
			Decorations: bot.Decorations{Actions: bot.Actions{bot.PostbackAction{Label: "Yes"}}},
		},
	})
	require.NoError(t, err)

	require.Len(t, q.items, 1)
	require.Equal(t, "u1", q.items[0].userID)
	require.Equal(t, channel.MessageText, q.items[0].msg.Type)
	require.Equal(t, "Pick one\nYes", q.items[0].msg.Text)
	require.Equal(t, channel.RoleAppMaker, q.items[0].msg.Role)
}

func TestSendCardsEnqueuesListThenActions(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	b := New(translator.New(""), q, nil)

	err := b.Send(context.Background(), bot.Message{
		UserID: "u1",
		MessagePayload: bot.CardPayload{
			Cards: []bot.Card{{Title: "A"}, {Title: "B"}},
			Decorations: bot.Decorations{
				Actions: bot.Actions{bot.URLAction{Label: "More", URL: "http://x"}},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, q.items, 2)
	require.Equal(t, channel.MessageList, q.items[0].msg.Type)
	require.Equal(t, channel.MessageText, q.items[1].msg.Type)
	require.Contains(t, q.items[1].msg.Text, "More: http://x")
	for _, item := range q.items {
		require.Equal(t, channel.RoleAppMaker, item.msg.Role)
	}
}

func TestSendUnsupportedPayloadEnqueuesNothing(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	b := New(translator.New(""), q, nil)

	err := b.Send(context.Background(), bot.Message{UserID: "u1", MessagePayload: bot.UnknownPayload{Type: "table"}})
	require.ErrorIs(t, err, translator.ErrUnsupportedFormat)
	require.Empty(t, q.items)
}

func TestReceiveTextScenario(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	b := New(translator.New(""), q, nil)

	msgs, err := b.Receive(context.Background(), channel.Event{
		Trigger:  channel.TriggerMessageAppUser,
		AppUser:  channel.AppUser{ID: "u1"},
		Messages: []channel.InboundMessage{{Type: "text", Text: "Hi"}},
	})
	require.NoError(t, err)
	require.Equal(t, []bot.Message{{
		UserID:         "u1",
		MessagePayload: bot.TextPayload{Text: "Hi"},
		Metadata:       &bot.Metadata{Source: "whatsapp"},
	}}, msgs)
	require.Empty(t, q.acks)
}

func TestReceiveDeliveryRoutesAcknowledgments(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	b := New(translator.New(""), q, nil)

	msgs, err := b.Receive(context.Background(), channel.Event{
		Trigger: channel.TriggerDeliveryChannel,
		Message: &channel.InboundMessage{ID: "m1"},
	})
	require.NoError(t, err)
	require.Empty(t, msgs)

	msgs, err = b.Receive(context.Background(), channel.Event{
		Trigger:  channel.TriggerDeliverySuccess,
		Messages: []channel.InboundMessage{{ID: "m2"}, {ID: "m3"}},
	})
	require.NoError(t, err)
	require.Empty(t, msgs)

	require.Equal(t, []string{"m1", "m2", "m3"}, q.acks)
}

func TestReceiveMalformedPostbackPropagates(t *testing.T) {
	t.Parallel()

	b := New(translator.New(""), &recordingQueue{}, nil)

	_, err := b.Receive(context.Background(), channel.Event{
		Trigger:   channel.TriggerPostback,
		AppUser:   channel.AppUser{ID: "u1"},
		Postbacks: []channel.Postback{{Action: channel.PostbackAction{Payload: "{"}}},
	})
	require.True(t, errors.Is(err, translator.ErrMalformedPostback))
}

type ackingTransport struct {
	mu   sync.Mutex
	sent []channel.Message
}

func (a *ackingTransport) SendMessage(_ context.Context, _ string, msg channel.Message) (channel.SendResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, msg)
	return channel.SendResult{MessageID: "id"}, nil
}

func (a *ackingTransport) GetUser(_ context.Context, userID string) (channel.User, error) {
	return channel.User{ID: userID, Clients: []channel.Client{{Platform: "whatsapp", Active: true, Primary: true}}}, nil
}

func (a *ackingTransport) sentTypes() []channel.MessageType {
	a.mu.Lock()
	defer a.mu.Unlock()

	types := make([]channel.MessageType, 0, len(a.sent))
	for _, msg := range a.sent {
		types = append(types, msg.Type)
	}
	return types
}

func TestBridgeWithSerializerAdvancesOnDeliveryCallback(t *testing.T) {
	t.Parallel()

	transport := &ackingTransport{}
	serializer := delivery.New(context.Background(), transport)
	b := New(translator.New(""), serializer, nil)

	require.NoError(t, b.Send(context.Background(), bot.Message{
		UserID: "u1",
		MessagePayload: bot.CardPayload{
			Cards:       []bot.Card{{Title: "A"}},
			Decorations: bot.Decorations{Actions: bot.Actions{bot.CallAction{Label: "Call", PhoneNumber: "1"}}},
		},
	}))

	require.Eventually(t, func() bool { return len(transport.sentTypes()) == 1 }, time.Second, 5*time.Millisecond)
	require.Never(t, func() bool { return len(transport.sentTypes()) > 1 }, 100*time.Millisecond, 10*time.Millisecond)

	_, err := b.Receive(context.Background(), channel.Event{
		Trigger: channel.TriggerDeliveryUser,
		Message: &channel.InboundMessage{ID: "id"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(transport.sentTypes()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []channel.MessageType{channel.MessageList, channel.MessageText}, transport.sentTypes())
	require.Equal(t, 1, serializer.Pending())
}

type requestIDKey struct{}

// contextRecorder captures the request id carried by the context of each
// logged record.
type contextRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *contextRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *contextRecorder) Handle(ctx context.Context, _ slog.Record) error {
	id, _ := ctx.Value(requestIDKey{}).(string)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return nil
}

func (r *contextRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *contextRecorder) WithGroup(string) slog.Handler      { return r }

func TestSendAndReceiveLogWithRequestContext(t *testing.T) {
	t.Parallel()

	recorder := &contextRecorder{}
	b := New(translator.New(""), &recordingQueue{}, slog.New(recorder))
	ctx := context.WithValue(context.Background(), requestIDKey{}, "req-42")

	require.NoError(t, b.Send(ctx, bot.Message{UserID: "u1", MessagePayload: bot.TextPayload{Text: "hi"}}))
	_, err := b.Receive(ctx, channel.Event{
		Trigger:  channel.TriggerMessageAppUser,
		AppUser:  channel.AppUser{ID: "u1"},
		Messages: []channel.InboundMessage{{Type: "text", Text: "hello"}},
	})
	require.NoError(t, err)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Equal(t, []string{"req-42", "req-42"}, recorder.ids)
}
