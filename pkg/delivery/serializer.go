// Package delivery serializes outbound messages toward the channel aggregator.
//
// At most one message is in flight at any time, across every user sharing a
// Serializer. The head of the queue is retired by the next acknowledgment,
// whatever message id it names, so acknowledgments are assumed to arrive in
// send order. A head that is never acknowledged stalls the queue: there is no
// timeout, retry or skip-ahead.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"botbridge/pkg/bus"
	"botbridge/pkg/channel"
)

// DefaultSyncPlatforms never send delivery callbacks; a successful send counts
// as delivered.
var DefaultSyncPlatforms = []string{"WEB", "IOS", "ANDROID"}

// EventPublisher receives queue lifecycle events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event bus.Event) bool
}

// Delivery is one queued outbound message.
type Delivery struct {
	UserID  string
	Message channel.Message
}

type transition int

const (
	transitionEnqueue transition = iota
	transitionAck
	transitionAdvance
)

func (t transition) String() string {
	switch t {
	case transitionEnqueue:
		return "enqueue"
	case transitionAck:
		return "ack"
	case transitionAdvance:
		return "advance"
	default:
		return fmt.Sprintf("transition(%d)", int(t))
	}
}

// outcome is the result of applying one transition to the queue.
type outcome struct {
	retired  bool
	next     Delivery
	transmit bool
	pending  int
}

type Option func(*Serializer)

func WithLogger(log *slog.Logger) Option {
	return func(s *Serializer) {
		if log != nil {
			s.log = log.With("component", "delivery.serializer")
		}
	}
}

func WithEventPublisher(events EventPublisher) Option {
	return func(s *Serializer) {
		s.events = events
	}
}

// WithSyncPlatforms replaces the set of platforms acknowledged on send success.
func WithSyncPlatforms(platforms ...string) Option {
	return func(s *Serializer) {
		s.syncPlatforms = platformSet(platforms)
	}
}

// Serializer owns the pending queue. Enqueue and AcknowledgeDelivered are its
// only entry points.
type Serializer struct {
	ctx           context.Context
	transport     channel.Transport
	log           *slog.Logger
	events        EventPublisher
	syncPlatforms map[string]struct{}

	mu    sync.Mutex
	queue []Delivery
}

// New builds a serializer. Transmissions run on ctx, not on the context of
// whoever enqueued the message.
func New(ctx context.Context, transport channel.Transport, opts ...Option) *Serializer {
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Serializer{
		ctx:           ctx,
		transport:     transport,
		log:           slog.Default().With("component", "delivery.serializer"),
		syncPlatforms: platformSet(DefaultSyncPlatforms),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Enqueue appends a message to the queue and returns immediately. If the queue
// was empty, the message is transmitted right away.
func (s *Serializer) Enqueue(userID string, msg channel.Message) {
	d := Delivery{UserID: userID, Message: msg}

	s.mu.Lock()
	out := s.step(transitionEnqueue, d)
	s.mu.Unlock()

	s.log.Debug("Message queued", "user_id", userID, "type", msg.Type, "pending", out.pending)
	s.publish(bus.Event{Type: bus.EventDeliveryQueued, UserID: userID, Pending: out.pending})

	if out.transmit {
		s.transmitAsync(out.next)
	}
}

// AcknowledgeDelivered retires the oldest pending message and transmits the
// next one. The message id is only logged; it is not matched against the queue.
// Acknowledgments on an empty queue are ignored.
func (s *Serializer) AcknowledgeDelivered(messageID string) {
	s.mu.Lock()
	out := s.step(transitionAck, Delivery{})
	s.mu.Unlock()

	if !out.retired {
		s.log.Debug("Ignoring acknowledgment on empty queue", "message_id", messageID)
		return
	}

	s.log.Info("Message delivered", "message_id", messageID, "pending", out.pending)
	s.publish(bus.Event{Type: bus.EventDeliveryAcknowledged, MessageID: messageID, Pending: out.pending})

	if out.transmit {
		s.transmitAsync(out.next)
	}
}

// Pending returns the number of queued messages, including the one in flight.
func (s *Serializer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// step applies one transition. Callers hold s.mu.
func (s *Serializer) step(t transition, d Delivery) outcome {
	switch t {
	case transitionEnqueue:
		s.queue = append(s.queue, d)
		if len(s.queue) == 1 {
			return outcome{next: d, transmit: true, pending: 1}
		}
		return outcome{pending: len(s.queue)}
	case transitionAck:
		if len(s.queue) == 0 {
			return outcome{}
		}
		s.queue[0] = Delivery{}
		s.queue = s.queue[1:]
		out := s.step(transitionAdvance, Delivery{})
		out.retired = true
		return out
	case transitionAdvance:
		if len(s.queue) == 0 {
			return outcome{}
		}
		return outcome{next: s.queue[0], transmit: true, pending: len(s.queue)}
	default:
		panic(fmt.Sprintf("delivery: unknown %s", t))
	}
}

func (s *Serializer) transmitAsync(d Delivery) {
	go func() {
		if err := s.transmit(d); err != nil {
			s.log.Error("Delivery failed; queue is stalled", "user_id", d.UserID, "error", err)
			s.publish(bus.Event{Type: bus.EventDeliveryFailed, UserID: d.UserID, Pending: s.Pending(), Error: err.Error()})
		}
	}()
}

// transmit sends d and self-acknowledges it when the user's primary client never
// reports deliveries.
func (s *Serializer) transmit(d Delivery) error {
	result, err := s.transport.SendMessage(s.ctx, d.UserID, d.Message)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	s.log.Debug("Message sent", "user_id", d.UserID, "message_id", result.MessageID)
	s.publish(bus.Event{Type: bus.EventDeliverySent, UserID: d.UserID, MessageID: result.MessageID, Pending: s.Pending()})

	user, err := s.transport.GetUser(s.ctx, d.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	client, ok := user.PrimaryClient()
	if !ok {
		return fmt.Errorf("user %s has no active primary client", d.UserID)
	}

	if s.isSyncPlatform(client.Platform) {
		s.AcknowledgeDelivered(result.MessageID)
	}

	return nil
}

func (s *Serializer) isSyncPlatform(platform string) bool {
	_, ok := s.syncPlatforms[channel.NormalizePlatform(platform)]
	return ok
}

func (s *Serializer) publish(event bus.Event) {
	if s.events == nil {
		return
	}
	s.events.PublishEvent(s.ctx, event)
}

func platformSet(platforms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(platforms))
	for _, platform := range platforms {
		normalized := channel.NormalizePlatform(platform)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}

	return set
}
