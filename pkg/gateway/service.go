package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"botbridge/pkg/bot"
	"botbridge/pkg/bus"
	"botbridge/pkg/channel"
	"botbridge/pkg/config"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = 3000

	shutdownTimeout = 5 * time.Second
	forwardTimeout  = 30 * time.Second
)

// Bridge is the integration facade the HTTP handlers drive.
type Bridge interface {
	Send(ctx context.Context, msg bot.Message) error
	Receive(ctx context.Context, ev channel.Event) ([]bot.Message, error)
}

// BotClient forwards translated user messages to the bot webhook.
type BotClient interface {
	Send(ctx context.Context, msg bot.Message) error
}

// QueueDepth reports how many outbound messages are waiting, in flight included.
type QueueDepth interface {
	Pending() int
}

// Dependencies are the collaborators a Service is wired with.
type Dependencies struct {
	Bridge   Bridge
	Queue    QueueDepth
	Bus      *bus.MessageBus
	Bot      BotClient
	Adapters []channel.Adapter
}

type Service struct {
	cfg      *config.Config
	log      *slog.Logger
	bridge   Bridge
	queue    QueueDepth
	bus      *bus.MessageBus
	bot      BotClient
	channels []channel.Adapter

	mu            sync.RWMutex
	startedAt     time.Time
	serving       bool
	channelStates map[string]channelState
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Pending       int                     `json:"pending"`
	BotWebhook    bool                    `json:"bot_webhook_configured"`
	Channels      map[string]channelState `json:"channels"`
}

func NewService(cfg *config.Config, deps Dependencies, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Bridge == nil {
		return nil, errors.New("bridge is required")
	}
	if deps.Bus == nil {
		return nil, errors.New("message bus is required")
	}
	if log == nil {
		log = slog.Default()
	}

	channelStates := make(map[string]channelState, len(deps.Adapters))
	for _, adapter := range deps.Adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		bridge:        deps.Bridge,
		queue:         deps.Queue,
		bus:           deps.Bus,
		bot:           deps.Bot,
		channels:      deps.Adapters,
		channelStates: channelStates,
	}, nil
}

// Run serves HTTP, forwards bot-bound messages and runs push adapters until ctx
// is cancelled or one of them fails.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	listener, err := net.Listen("tcp", s.addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr(), err)
	}

	serverErrors := make(chan error, 1)
	go s.serve(ctx, listener, serverErrors)
	go s.runForwarder(ctx)

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		s.setChannelState(adapter.Name(), channelState{Running: true})

		go func() {
			err := adapter.Run(ctx, s.handleChannelEvent)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	case err := <-errCh:
		return err
	}
}

// Handler returns the HTTP routes served by Run.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /bot/message", s.handleBotMessage)
	mux.HandleFunc("POST /user/message", s.handleUserMessage)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /events", s.handleEvents)
	return mux
}

func (s *Service) addr() string {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultPort
	}

	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (s *Service) serve(ctx context.Context, listener net.Listener, errCh chan<- error) {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.setServing(true)
	defer s.setServing(false)

	s.log.Info("Gateway server started", "address", listener.Addr().String())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("serve http: %w", err)
	}
}

// runForwarder hands translated user messages to the bot webhook one at a time.
// Failures are logged and published, never retried.
func (s *Service) runForwarder(ctx context.Context) {
	for {
		inbound, ok := s.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}
		s.forward(ctx, inbound)
	}
}

func (s *Service) forward(ctx context.Context, inbound bus.InboundMessage) {
	log := s.log.With("request_id", inbound.RequestID, "user_id", inbound.Message.UserID)
	event := bus.Event{
		Type:      bus.EventBotForwarded,
		UserID:    inbound.Message.UserID,
		RequestID: inbound.RequestID,
		Pending:   s.pending(),
	}

	if s.bot == nil {
		log.Warn("No bot webhook configured; dropping message")
		event.Type = bus.EventBotForwardFailed
		event.Error = "bot webhook not configured"
		s.bus.PublishEvent(ctx, event)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, forwardTimeout)
	defer cancel()

	if err := s.bot.Send(sendCtx, inbound.Message); err != nil {
		log.Error("Failed to forward message to bot", "error", err)
		event.Type = bus.EventBotForwardFailed
		event.Error = err.Error()
		s.bus.PublishEvent(ctx, event)
		return
	}

	log.Debug("Message forwarded to bot")
	s.bus.PublishEvent(ctx, event)
}

// handleChannelEvent is the handler push adapters deliver aggregator events to.
func (s *Service) handleChannelEvent(ctx context.Context, ev channel.Event) error {
	_, err := s.receive(ctx, newRequestID(), ev)
	return err
}

// receive translates ev and queues the resulting bot messages for forwarding.
func (s *Service) receive(ctx context.Context, requestID string, ev channel.Event) (int, error) {
	messages, err := s.bridge.Receive(ctx, ev)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, msg := range messages {
		if !s.bus.PublishInbound(ctx, bus.InboundMessage{RequestID: requestID, Message: msg}) {
			return queued, errors.New("message bus unavailable")
		}
		queued++
	}

	return queued, nil
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		Pending:       s.pending(),
		BotWebhook:    s.bot != nil,
		Channels:      channels,
	}
}

// isReady requires the HTTP server, every push adapter and a bot webhook.
func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.serving || s.bot == nil {
		return false
	}

	for _, state := range s.channelStates {
		if !state.Running {
			return false
		}
	}

	return true
}

func (s *Service) pending() int {
	if s.queue == nil {
		return 0
	}
	return s.queue.Pending()
}

func (s *Service) setServing(serving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serving = serving
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
