package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the HMAC of the request body on both directions of the
// bot webhook.
const SignatureHeader = "X-Hub-Signature"

const signaturePrefix = "sha256="

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Sign returns the SignatureHeader value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a SignatureHeader value against body. An empty secret disables
// verification.
func Verify(body []byte, secret string, header string) error {
	if secret == "" {
		return nil
	}

	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, signaturePrefix) {
		return ErrInvalidSignature
	}

	if !hmac.Equal([]byte(header), []byte(Sign(body, secret))) {
		return ErrInvalidSignature
	}

	return nil
}
