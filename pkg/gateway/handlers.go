package gateway

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"botbridge/pkg/bot"
	"botbridge/pkg/bot/webhook"
	"botbridge/pkg/channel"

	"github.com/google/uuid"
)

const (
	maxBodyBytes    = 1 << 20
	apiKeyHeader    = "X-API-Key"
	requestIDHeader = "X-Request-ID"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type acceptedResponse struct {
	RequestID string `json:"request_id"`
	Queued    int    `json:"queued"`
}

// handleBotMessage accepts a bot-schema message and queues it for the channel.
func (s *Service) handleBotMessage(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	w.Header().Set(requestIDHeader, requestID)
	log := s.log.With("request_id", requestID, "route", "bot.message")

	body, err := readBody(w, r)
	if err != nil {
		log.Warn("Failed to read request body", "error", err)
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	if err := webhook.Verify(body, s.cfg.Bot.WebhookSecret, r.Header.Get(webhook.SignatureHeader)); err != nil {
		log.Warn("Rejected bot message", "error", err)
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	msg, err := bot.Decode(body)
	if err != nil {
		log.Warn("Failed to decode bot message", "error", err)
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	if err := s.bridge.Send(r.Context(), msg); err != nil {
		log.Warn("Failed to send bot message", "user_id", msg.UserID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, acceptedResponse{RequestID: requestID, Queued: s.pending()})
}

// handleUserMessage accepts an aggregator webhook event. Delivery events advance
// the outbound queue; user messages are forwarded to the bot asynchronously.
func (s *Service) handleUserMessage(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	w.Header().Set(requestIDHeader, requestID)
	log := s.log.With("request_id", requestID, "route", "user.message")

	if !s.authorized(r) {
		log.Warn("Rejected channel event with invalid API key")
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		log.Warn("Failed to read request body", "error", err)
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	var ev channel.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		log.Warn("Failed to decode channel event", "error", err)
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	queued, err := s.receive(r.Context(), requestID, ev)
	if err != nil {
		log.Warn("Failed to receive channel event", "trigger", ev.Trigger, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Debug("Channel event accepted", "trigger", ev.Trigger, "user_id", ev.AppUser.ID, "queued", queued)
	writeJSON(w, http.StatusOK, acceptedResponse{RequestID: requestID, Queued: queued})
}

// authorized compares the API key header with the channel webhook secret. With
// no secret configured every request is rejected.
func (s *Service) authorized(r *http.Request) bool {
	secret := s.cfg.Channel.Smooch.WebhookSecret
	if secret == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(r.Header.Get(apiKeyHeader)), []byte(secret)) == 1
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	return body, nil
}

func requestIDFrom(r *http.Request) string {
	if id := r.Header.Get(requestIDHeader); id != "" {
		return id
	}
	return newRequestID()
}

func newRequestID() string {
	return uuid.NewString()
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Code: statusCode, Message: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
