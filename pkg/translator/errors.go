package translator

import "errors"

var (
	// ErrUnsupportedFormat is returned for outbound payload types that have no
	// channel representation.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrMalformedPostback is returned when a postback action payload is not the
	// expected JSON document.
	ErrMalformedPostback = errors.New("malformed postback payload")
)
