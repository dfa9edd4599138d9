package channel

import "strings"

type Trigger string

const (
	TriggerMessageAppUser Trigger = "message:appUser"
	TriggerPostback       Trigger = "postback"

	// API v1.1 delivery callbacks carry a single message.
	TriggerDeliveryUser    Trigger = "message:delivery:user"
	TriggerDeliveryChannel Trigger = "message:delivery:channel"

	// API v1.0 delivery callback carries a list of messages.
	TriggerDeliverySuccess Trigger = "delivery:success"
)

// IsDelivery reports whether t is one of the delivery acknowledgment triggers.
func (t Trigger) IsDelivery() bool {
	switch t {
	case TriggerDeliveryUser, TriggerDeliveryChannel, TriggerDeliverySuccess:
		return true
	default:
		return false
	}
}

// Event is one webhook call from the aggregator.
type Event struct {
	Trigger   Trigger          `json:"trigger"`
	AppUser   AppUser          `json:"appUser"`
	Messages  []InboundMessage `json:"messages,omitempty"`
	Message   *InboundMessage  `json:"message,omitempty"`
	Postbacks []Postback       `json:"postbacks,omitempty"`
}

type AppUser struct {
	ID      string   `json:"_id"`
	Clients []Client `json:"clients,omitempty"`
}

type InboundMessage struct {
	ID          string       `json:"_id,omitempty"`
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	MediaURL    string       `json:"mediaUrl,omitempty"`
	MediaType   string       `json:"mediaType,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Role        string       `json:"role,omitempty"`
}

type Coordinates struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

type Postback struct {
	Message *InboundMessage `json:"message,omitempty"`
	Action  PostbackAction  `json:"action"`
}

type PostbackAction struct {
	ID      string `json:"_id,omitempty"`
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Payload string `json:"payload"`
}

// User is the aggregator's view of one end user.
type User struct {
	ID      string   `json:"_id"`
	Clients []Client `json:"clients"`
}

// Client is one device or network a user is reachable on.
type Client struct {
	ID       string `json:"_id,omitempty"`
	Platform string `json:"platform"`
	Active   bool   `json:"active"`
	Primary  bool   `json:"primary"`
}

// PrimaryClient returns the first client that is both active and primary.
func (u User) PrimaryClient() (Client, bool) {
	for _, client := range u.Clients {
		if client.Active && client.Primary {
			return client, true
		}
	}

	return Client{}, false
}

// NormalizePlatform upper-cases a platform name for set lookups.
func NormalizePlatform(platform string) string {
	return strings.ToUpper(strings.TrimSpace(platform))
}
