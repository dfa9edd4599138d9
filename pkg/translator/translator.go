// Package translator maps messages between the bot schema and the channel
// aggregator schema.
//
// Translation is pure: no I/O and no shared state. The channel side imposes
// limits the bot side does not (description length, actions per card), so
// outbound translation truncates and merges deterministically instead of failing.
package translator

import "strings"

const DefaultSource = "whatsapp"

// Translator converts messages in both directions.
type Translator struct {
	// Source is stamped into the metadata of every inbound bot message.
	Source string
}

// New returns a translator stamping source on inbound messages.
func New(source string) Translator {
	source = strings.TrimSpace(source)
	if source == "" {
		source = DefaultSource
	}

	return Translator{Source: source}
}

func (t Translator) source() string {
	if t.Source == "" {
		return DefaultSource
	}
	return t.Source
}
