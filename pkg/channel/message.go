package channel

// Structural limits the aggregator enforces on list items.
const (
	MaxTextLength  = 128
	MaxCardActions = 3
)

const (
	RoleAppMaker = "appMaker"
	SizeLarge    = "large"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageList  MessageType = "list"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

// Message is one outbound message in the aggregator's schema.
type Message struct {
	Type     MessageType `json:"type"`
	Text     string      `json:"text"`
	Items    []Card      `json:"items,omitempty"`
	MediaURL string      `json:"mediaUrl,omitempty"`
	Role     string      `json:"role,omitempty"`
}

// Card is one list item. Description is limited to MaxTextLength characters and
// Actions must hold between one and MaxCardActions entries.
type Card struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	MediaURL    string   `json:"mediaUrl,omitempty"`
	Size        string   `json:"size,omitempty"`
	Actions     []Action `json:"actions"`
}

type Action struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// TextMessage builds a plain text message.
func TextMessage(text string) Message {
	return Message{Type: MessageText, Text: text}
}

// SendResult is what the aggregator returns for an accepted message.
type SendResult struct {
	MessageID string `json:"_id"`
}
