package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
)

// Forwarder copies session lifecycle events (game and kick kinds) from the bus
// to an external broker. Events are queued and published off the bus
// dispatcher so a slow broker never stalls the game.
type Forwarder struct {
	publisher message.Publisher
	topic     string
	queue     chan Event
	logger    zerolog.Logger
}

// NewKafkaForwarder connects a watermill Kafka publisher.
func NewKafkaForwarder(brokers []string, topic string, logger zerolog.Logger) (*Forwarder, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, NewLoggerAdapter(logger))
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return NewForwarder(publisher, topic, logger), nil
}

// NewForwarder wraps any watermill publisher.
func NewForwarder(publisher message.Publisher, topic string, logger zerolog.Logger) *Forwarder {
	return &Forwarder{
		publisher: publisher,
		topic:     topic,
		queue:     make(chan Event, 256),
		logger:    logger.With().Str("component", "event_forwarder").Str("topic", topic).Logger(),
	}
}

// Run subscribes to the bus and blocks until ctx is cancelled.
func (f *Forwarder) Run(ctx context.Context, bus *Bus) error {
	var cancels []CancelFunc
	for _, kind := range []Kind{KindGame, KindKick} {
		cancel, err := bus.Subscribe("", kind, f.enqueue)
		if err != nil {
			for _, c := range cancels {
				c()
			}
			return err
		}
		cancels = append(cancels, cancel)
	}
	defer func() {
		for _, c := range cancels {
			c()
		}
		if err := f.publisher.Close(); err != nil {
			f.logger.Warn().Err(err).Msg("publisher close failed")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-f.queue:
			if err := f.forward(evt); err != nil {
				f.logger.Warn().Err(err).Str("session_id", evt.SessionID).Str("type", evt.Type).Msg("forward failed")
			}
		}
	}
}

func (f *Forwarder) enqueue(evt Event) {
	select {
	case f.queue <- evt:
	default:
		f.logger.Warn().Str("session_id", evt.SessionID).Str("type", evt.Type).Msg("forward queue full, dropping event")
	}
}

func (f *Forwarder) forward(evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := message.NewMessage(evt.ID, data)
	msg.Metadata.Set("event_type", evt.Type)
	msg.Metadata.Set("session_id", evt.SessionID)
	msg.Metadata.Set("source", "classroom-quiz")
	msg.Metadata.Set("timestamp", evt.OccurredAt.Format("2006-01-02T15:04:05Z07:00"))
	return f.publisher.Publish(f.topic, msg)
}
