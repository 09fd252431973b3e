package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const metaSessionID = "session_id"

// Handler consumes one event. Handlers of one subscription run sequentially,
// block the publisher while running and must not publish on the bus synchronously.
type Handler func(Event)

// CancelFunc ends a subscription. Safe to call more than once and from inside the handler.
type CancelFunc func()

// Bus is the in-process real-time channel between session coordinators and
// their subscribers, backed by a watermill GoChannel.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger

	mu     sync.Mutex
	subs   map[uint64]context.CancelFunc
	nextID uint64
}

// NewBus creates a bus. Publish blocks until every subscriber has received the
// event, which keeps per-subscription delivery in publish order.
func NewBus(bufferSize int64, logger zerolog.Logger) *Bus {
	logger = logger.With().Str("component", "event_bus").Logger()
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            bufferSize,
			BlockPublishUntilSubscriberAck: true,
		}, NewLoggerAdapter(logger)),
		logger: logger,
		subs:   make(map[uint64]context.CancelFunc),
	}
}

// Publish sends an event to every subscriber of its kind.
func (b *Bus) Publish(evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(evt.ID, data)
	msg.Metadata.Set(metaSessionID, evt.SessionID)
	msg.Metadata.Set("type", evt.Type)

	if err := b.pubsub.Publish(string(evt.Kind), msg); err != nil {
		return fmt.Errorf("publish %s event: %w", evt.Kind, err)
	}
	return nil
}

// Subscribe registers handler for events of kind in sessionID. An empty
// sessionID receives events of every session.
func (b *Bus) Subscribe(sessionID string, kind Kind, handler Handler) (CancelFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := b.pubsub.Subscribe(ctx, string(kind))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s events: %w", kind, err)
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = cancel
	b.mu.Unlock()

	var cancelled atomic.Bool
	go func() {
		for msg := range msgs {
			b.dispatch(msg, sessionID, kind, &cancelled, handler)
			msg.Ack()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancelled.Store(true)
			cancel()
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}, nil
}

// dispatch runs before the ack so Publish returns only once every handler is
// done with the event, which keeps delivery ordered across kinds.
func (b *Bus) dispatch(msg *message.Message, sessionID string, kind Kind, cancelled *atomic.Bool, handler Handler) {
	if cancelled.Load() {
		return
	}
	if sessionID != "" && msg.Metadata.Get(metaSessionID) != sessionID {
		return
	}
	var evt Event
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		b.logger.Warn().Err(err).Str("kind", string(kind)).Msg("dropping undecodable event")
		return
	}
	handler(evt)
}

// SubscribeGameEvents delivers phase changes of one session.
func (b *Bus) SubscribeGameEvents(sessionID string, onPhaseChange Handler) (CancelFunc, error) {
	return b.Subscribe(sessionID, KindGame, onPhaseChange)
}

// SubscribeKickEvents delivers the id of every participant kicked from one session.
func (b *Bus) SubscribeKickEvents(sessionID string, onKicked func(participantID uuid.UUID)) (CancelFunc, error) {
	return b.Subscribe(sessionID, KindKick, func(evt Event) {
		id, err := uuid.Parse(evt.ParticipantID)
		if err != nil {
			b.logger.Warn().Err(err).Str("session_id", evt.SessionID).Msg("kick event without participant id")
			return
		}
		onKicked(id)
	})
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close cancels every subscription and shuts the underlying channel down.
func (b *Bus) Close() error {
	b.mu.Lock()
	for id, cancel := range b.subs {
		cancel()
		delete(b.subs, id)
	}
	b.mu.Unlock()
	return b.pubsub.Close()
}
