package bot

import (
	"encoding/json"
	"errors"
	"fmt"
)

type PayloadType string

const (
	PayloadText       PayloadType = "text"
	PayloadCard       PayloadType = "card"
	PayloadAttachment PayloadType = "attachment"
	PayloadPostback   PayloadType = "postback"
	PayloadLocation   PayloadType = "location"
)

// Payload is the body of a bot message, discriminated by its "type" field.
type Payload interface {
	PayloadType() PayloadType
	isPayload()
}

// Decorations are the fields shared by text, card and attachment payloads.
type Decorations struct {
	Actions       Actions `json:"actions,omitempty"`
	GlobalActions Actions `json:"globalActions,omitempty"`
	FooterText    string  `json:"footerText,omitempty"`
}

type TextPayload struct {
	Text string `json:"text"`
	Decorations
}

type CardPayload struct {
	Layout string `json:"layout,omitempty"`
	Cards  []Card `json:"cards"`
	Decorations
}

type Card struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	URL         string  `json:"url,omitempty"`
	Actions     Actions `json:"actions,omitempty"`
}

type AttachmentPayload struct {
	Attachment Attachment `json:"attachment"`
	Decorations
}

type Attachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type PostbackPayload struct {
	Postback Postback `json:"postback"`
}

// Postback carries the dialog-flow state a button press resumes.
type Postback struct {
	Action    string         `json:"action,omitempty"`
	State     string         `json:"state,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

type LocationPayload struct {
	Location Location `json:"location"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UnknownPayload keeps a payload whose type this package does not model.
type UnknownPayload struct {
	Type string
	Raw  json.RawMessage
}

func (TextPayload) PayloadType() PayloadType       { return PayloadText }
func (CardPayload) PayloadType() PayloadType       { return PayloadCard }
func (AttachmentPayload) PayloadType() PayloadType { return PayloadAttachment }
func (PostbackPayload) PayloadType() PayloadType   { return PayloadPostback }
func (LocationPayload) PayloadType() PayloadType   { return PayloadLocation }
func (p UnknownPayload) PayloadType() PayloadType  { return PayloadType(p.Type) }

func (TextPayload) isPayload()       {}
func (CardPayload) isPayload()       {}
func (AttachmentPayload) isPayload() {}
func (PostbackPayload) isPayload()   {}
func (LocationPayload) isPayload()   {}
func (UnknownPayload) isPayload()    {}

func (p TextPayload) MarshalJSON() ([]byte, error) {
	type alias TextPayload
	return marshalTagged(string(PayloadText), alias(p))
}

func (p CardPayload) MarshalJSON() ([]byte, error) {
	type alias CardPayload
	return marshalTagged(string(PayloadCard), alias(p))
}

func (p AttachmentPayload) MarshalJSON() ([]byte, error) {
	type alias AttachmentPayload
	return marshalTagged(string(PayloadAttachment), alias(p))
}

func (p PostbackPayload) MarshalJSON() ([]byte, error) {
	type alias PostbackPayload
	return marshalTagged(string(PayloadPostback), alias(p))
}

func (p LocationPayload) MarshalJSON() ([]byte, error) {
	type alias LocationPayload
	return marshalTagged(string(PayloadLocation), alias(p))
}

func (p UnknownPayload) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	return json.Marshal(map[string]string{"type": p.Type})
}

// DecodePayload decodes one message payload by its "type" field.
//
// Unmodelled types decode into UnknownPayload instead of failing.
func DecodePayload(data []byte) (Payload, error) {
	kind, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch PayloadType(kind) {
	case PayloadText:
		var p TextPayload
		err = json.Unmarshal(data, &p)
		return p, err
	case PayloadCard:
		var p CardPayload
		err = json.Unmarshal(data, &p)
		return p, err
	case PayloadAttachment:
		var p AttachmentPayload
		err = json.Unmarshal(data, &p)
		return p, err
	case PayloadPostback:
		var p PostbackPayload
		err = json.Unmarshal(data, &p)
		return p, err
	case PayloadLocation:
		var p LocationPayload
		err = json.Unmarshal(data, &p)
		return p, err
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return UnknownPayload{Type: kind, Raw: raw}, nil
	}
}

// DecorationsOf returns the shared action/footer fields of p, if it has any.
func DecorationsOf(p Payload) (Decorations, bool) {
	switch v := p.(type) {
	case TextPayload:
		return v.Decorations, true
	case CardPayload:
		return v.Decorations, true
	case AttachmentPayload:
		return v.Decorations, true
	default:
		return Decorations{}, false
	}
}

func peekType(data []byte) (string, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	if head.Type == nil {
		return "", errors.New("missing type field")
	}

	return *head.Type, nil
}

func marshalTagged(kind string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("tag %s: %w", kind, err)
	}

	tag, err := json.Marshal(kind)
	if err != nil {
		return nil, err
	}
	fields["type"] = tag

	return json.Marshal(fields)
}
