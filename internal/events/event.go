package events

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

// Kind groups events into independently subscribable streams.
type Kind string

const (
	// KindGame carries phase changes: game start, question start, reveal, end, dismissal.
	KindGame Kind = "game"
	// KindTick carries per-second countdown updates.
	KindTick Kind = "tick"
	// KindKick carries participant removals by the professor.
	KindKick Kind = "kick"
	// KindRoster carries joins and leaves.
	KindRoster Kind = "roster"
	// KindLeaderboard carries recomputed standings.
	KindLeaderboard Kind = "leaderboard"
)

// Event is the envelope published on the bus. Type mirrors the WebSocket
// message type the gateway forwards it as; Payload is already JSON.
type Event struct {
	ID            string          `json:"id"`
	Kind          Kind            `json:"kind"`
	Type          string          `json:"type"`
	SessionID     string          `json:"session_id"`
	ParticipantID string          `json:"participant_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// New builds an event, marshalling payload.
func New(kind Kind, eventType, sessionID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         watermill.NewUUID(),
		Kind:       kind,
		Type:       eventType,
		SessionID:  sessionID,
		Payload:    raw,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// ForParticipant targets the event at one participant.
func (e Event) ForParticipant(participantID string) Event {
	e.ParticipantID = participantID
	return e
}
