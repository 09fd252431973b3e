package gateway

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/classroom-quiz/internal/events"
	ws "github.com/gokatarajesh/classroom-quiz/pkg/http/ws"
)

// Subscriber is the part of the event bus the broadcaster consumes.
type Subscriber interface {
	Subscribe(sessionID string, kind events.Kind, handler events.Handler) (events.CancelFunc, error)
}

// Broadcaster fans session events from the bus out to WebSocket members.
type Broadcaster struct {
	bus     Subscriber
	hub     *ws.Hub
	logger  zerolog.Logger
	cancels []events.CancelFunc
}

// NewBroadcaster creates a broadcaster; call Start to attach it to the bus.
func NewBroadcaster(bus Subscriber, hub *ws.Hub, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		bus:    bus,
		hub:    hub,
		logger: logger.With().Str("component", "ws_broadcaster").Logger(),
	}
}

// Start subscribes to every event kind of every session.
func (b *Broadcaster) Start() error {
	handlers := map[events.Kind]events.Handler{
		events.KindGame:        b.forward,
		events.KindTick:        b.forward,
		events.KindRoster:      b.forward,
		events.KindLeaderboard: b.forward,
		events.KindKick:        b.kick,
	}
	for _, kind := range []events.Kind{events.KindGame, events.KindTick, events.KindRoster, events.KindLeaderboard, events.KindKick} {
		cancel, err := b.bus.Subscribe("", kind, handlers[kind])
		if err != nil {
			b.Stop()
			return fmt.Errorf("subscribe %s: %w", kind, err)
		}
		b.cancels = append(b.cancels, cancel)
	}
	return nil
}

// Stop detaches from the bus.
func (b *Broadcaster) Stop() {
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

func (b *Broadcaster) forward(evt events.Event) {
	msg := ws.Message{Type: evt.Type, Payload: evt.Payload}

	if evt.ParticipantID != "" {
		b.sendTo(evt, msg)
		return
	}

	if err := b.hub.BroadcastToSession(evt.SessionID, msg); err != nil {
		b.logger.Debug().Err(err).Str("session_id", evt.SessionID).Str("type", evt.Type).Msg("broadcast incomplete")
	}
	if evt.Type == ws.TypeSessionDismissed {
		b.hub.DropSession(evt.SessionID)
	}
}

// kick tells the removed participant and detaches them from the session's broadcasts.
func (b *Broadcaster) kick(evt events.Event) {
	id, ok := b.sendTo(evt, ws.Message{Type: evt.Type, Payload: evt.Payload})
	if !ok {
		return
	}
	b.hub.LeaveSession(evt.SessionID, id)
}

func (b *Broadcaster) sendTo(evt events.Event, msg ws.Message) (uuid.UUID, bool) {
	id, err := uuid.Parse(evt.ParticipantID)
	if err != nil {
		b.logger.Warn().Err(err).Str("session_id", evt.SessionID).Str("type", evt.Type).Msg("event with invalid participant id")
		return uuid.Nil, false
	}
	if err := b.hub.SendToUser(id, msg); err != nil {
		b.logger.Debug().Err(err).Str("session_id", evt.SessionID).Str("participant_id", evt.ParticipantID).Msg("targeted send failed")
	}
	return id, true
}
