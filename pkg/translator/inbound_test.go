package translator

import (
	"errors"
	"reflect"
	"testing"

	"botbridge/pkg/bot"
	"botbridge/pkg/channel"
)

func TestInboundTextMessage(t *testing.T) {
	t.Parallel()

	msgs, err := New("").Inbound(channel.Event{
		Trigger:  channel.TriggerMessageAppUser,
		AppUser:  channel.AppUser{ID: "u1"},
		Messages: []channel.InboundMessage{{Type: "text", Text: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Inbound error: %v", err)
	}

	want := []bot.Message{{
		UserID:         "u1",
		MessagePayload: bot.TextPayload{Text: "Hi"},
		Metadata:       &bot.Metadata{Source: "whatsapp"},
	}}
	if !reflect.DeepEqual(msgs, want) {
		t.Fatalf("msgs = %+v, want %+v", msgs, want)
	}
}

func TestInboundMixedMessages(t *testing.T) {
	t.Parallel()

	msgs, err := New("sms").Inbound(channel.Event{
		Trigger: channel.TriggerMessageAppUser,
		AppUser: channel.AppUser{ID: "u2"},
		Messages: []channel.InboundMessage{
			{Type: "location", Coordinates: &channel.Coordinates{Lat: 1.5, Long: 2.5}},
			{Type: "image", MediaType: "image/jpeg", MediaURL: "http://a.jpg"},
			{Type: "image", MediaType: "image/png", MediaURL: "http://b.png"},
			{Type: "file", MediaURL: "http://c.pdf"},
		},
	})
	if err != nil {
		t.Fatalf("Inbound error: %v", err)
	}

	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2 (png and file are not mapped)", len(msgs))
	}

	location, ok := msgs[0].MessagePayload.(bot.LocationPayload)
	if !ok {
		t.Fatalf("first payload = %T, want LocationPayload", msgs[0].MessagePayload)
	}
	if location.Location != (bot.Location{Latitude: 1.5, Longitude: 2.5}) {
		t.Fatalf("location = %+v", location.Location)
	}

	attachment, ok := msgs[1].MessagePayload.(bot.AttachmentPayload)
	if !ok {
		t.Fatalf("second payload = %T, want AttachmentPayload", msgs[1].MessagePayload)
	}
	if attachment.Attachment != (bot.Attachment{Type: "image", URL: "http://a.jpg"}) {
		t.Fatalf("attachment = %+v", attachment.Attachment)
	}
	if msgs[1].Metadata.Source != "sms" {
		t.Fatalf("source = %q, want sms", msgs[1].Metadata.Source)
	}
}

func TestInboundPostbacks(t *testing.T) {
	t.Parallel()

	msgs, err := New("").Inbound(channel.Event{
		Trigger: channel.TriggerPostback,
		AppUser: channel.AppUser{ID: "u1"},
		Postbacks: []channel.Postback{
			{Action: channel.PostbackAction{Type: "postback", Payload: `{"action":"yes","state":"s1","variables":{"size":"L"}}`}},
			{Action: channel.PostbackAction{Type: "postback", Payload: `{"action":"no","state":"s1"}`}},
		},
	})
	if err != nil {
		t.Fatalf("Inbound error: %v", err)
	}

	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}

	first := msgs[0].MessagePayload.(bot.PostbackPayload)
	if first.Postback.Action != "yes" || first.Postback.State != "s1" || first.Postback.Variables["size"] != "L" {
		t.Fatalf("first postback = %+v", first.Postback)
	}
	second := msgs[1].MessagePayload.(bot.PostbackPayload)
	if second.Postback.Action != "no" {
		t.Fatalf("second postback = %+v", second.Postback)
	}
}

func TestInboundMalformedPostbackIsHardError(t *testing.T) {
	t.Parallel()

	msgs, err := New("").Inbound(channel.Event{
		Trigger: channel.TriggerPostback,
		AppUser: channel.AppUser{ID: "u1"},
		Postbacks: []channel.Postback{
			{Action: channel.PostbackAction{Payload: `{"action":"ok"}`}},
			{Action: channel.PostbackAction{Payload: `not json`}},
		},
	})
	if !errors.Is(err, ErrMalformedPostback) {
		t.Fatalf("error = %v, want ErrMalformedPostback", err)
	}
	if msgs != nil {
		t.Fatalf("msgs = %+v, want nil", msgs)
	}
}

func TestInboundDeliveryProducesNoMessages(t *testing.T) {
	t.Parallel()

	for _, trigger := range []channel.Trigger{
		channel.TriggerDeliveryUser,
		channel.TriggerDeliveryChannel,
		channel.TriggerDeliverySuccess,
		channel.Trigger("conversation:read"),
	} {
		msgs, err := New("").Inbound(channel.Event{Trigger: trigger, Message: &channel.InboundMessage{ID: "m1"}})
		if err != nil {
			t.Fatalf("%s: Inbound error: %v", trigger, err)
		}
		if len(msgs) != 0 {
			t.Fatalf("%s: msgs = %+v, want none", trigger, msgs)
		}
	}
}

func TestDeliveredMessageIDs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ev   channel.Event
		want []string
	}{
		{
			name: "v1.1 user",
			ev:   channel.Event{Trigger: channel.TriggerDeliveryUser, Message: &channel.InboundMessage{ID: "m1"}},
			want: []string{"m1"},
		},
		{
			name: "v1.1 channel",
			ev:   channel.Event{Trigger: channel.TriggerDeliveryChannel, Message: &channel.InboundMessage{ID: "m2"}},
			want: []string{"m2"},
		},
		{
			name: "v1.0 list",
			ev: channel.Event{Trigger: channel.TriggerDeliverySuccess, Messages: []channel.InboundMessage{
				{ID: "a"}, {ID: "b"},
			}},
			want: []string{"a", "b"},
		},
		{
			name: "v1.1 without message",
			ev:   channel.Event{Trigger: channel.TriggerDeliveryChannel},
			want: nil,
		},
		{
			name: "not a delivery",
			ev:   channel.Event{Trigger: channel.TriggerMessageAppUser, Messages: []channel.InboundMessage{{ID: "x"}}},
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := DeliveredMessageIDs(tc.ev); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("DeliveredMessageIDs = %v, want %v", got, tc.want)
			}
		})
	}
}
