package ws

import "encoding/json"

// MessageType constants for the session WebSocket protocol.
const (
	// Client -> Server
	TypeJoinSession     = "join_session"
	TypeLeaveSession    = "leave_session"
	TypeStartGame       = "start_game"
	TypeSubmitAnswer    = "submit_answer"
	TypeKickParticipant = "kick_participant"
	TypeResumeSession   = "resume_session"
	TypeDismissSession  = "dismiss_session"

	// Server -> Client
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
	TypeGameStarted       = "game_started"
	TypeQuestionStarted   = "question_started"
	TypeQuestionTick      = "question_tick"
	TypeAnswerAck         = "answer_ack"
	TypeQuestionRevealed  = "question_revealed"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeGameEnded         = "game_ended"
	TypeKicked            = "kicked"
	TypeResumeState       = "resume_state"
	TypeSessionDismissed  = "session_dismissed"
	TypeError             = "error"
	TypePing              = "ping"
	TypePong              = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Client Messages (incoming)

type JoinSessionPayload struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar,omitempty"`
}

type SessionRefPayload struct {
	SessionID string `json:"session_id"`
}

type SubmitAnswerPayload struct {
	SessionID  string `json:"session_id"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type KickParticipantPayload struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
}

// Server Messages (outgoing)

type Participant struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Avatar        string `json:"avatar,omitempty"`
}

type ParticipantJoinedPayload struct {
	SessionID   string      `json:"session_id"`
	Participant Participant `json:"participant"`
	Rejoined    bool        `json:"rejoined"`
	Count       int         `json:"count"`
}

type ParticipantLeftPayload struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
	Count         int    `json:"count"`
}

type GameStartedPayload struct {
	SessionID     string `json:"session_id"`
	QuestionCount int    `json:"question_count"`
	StartedAt     string `json:"started_at"`
}

// QuestionPayload never carries the correct answer.
type QuestionPayload struct {
	ID        string   `json:"id"`
	Prompt    string   `json:"prompt"`
	Type      string   `json:"type"`
	Options   []string `json:"options"`
	Points    int      `json:"points"`
	TimeLimit int      `json:"time_limit"`
}

type QuestionStartedPayload struct {
	SessionID     string          `json:"session_id"`
	QuestionIndex int             `json:"question_index"`
	QuestionCount int             `json:"question_count"`
	Question      QuestionPayload `json:"question"`
}

type QuestionTickPayload struct {
	SessionID        string `json:"session_id"`
	QuestionIndex    int    `json:"question_index"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type AnswerAckPayload struct {
	SessionID         string `json:"session_id"`
	QuestionID        string `json:"question_id"`
	Accepted          bool   `json:"accepted"`
	Correct           bool   `json:"correct"`
	PointsAwarded     int    `json:"points_awarded"`
	Score             int    `json:"score"`
	LeaderboardSynced bool   `json:"leaderboard_synced"`
}

type QuestionRevealedPayload struct {
	SessionID     string             `json:"session_id"`
	QuestionIndex int                `json:"question_index"`
	QuestionID    string             `json:"question_id"`
	CorrectAnswer string             `json:"correct_answer"`
	AnsweredCount int                `json:"answered_count"`
	Leaderboard   []LeaderboardEntry `json:"leaderboard"`
	NextInSeconds int                `json:"next_in_seconds"`
	Final         bool               `json:"final"`
}

type LeaderboardUpdatePayload struct {
	SessionID     string             `json:"session_id"`
	Top           []LeaderboardEntry `json:"top"`
	ClassAccuracy float64            `json:"class_accuracy"`
}

type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	ParticipantID string  `json:"participant_id"`
	DisplayName   string  `json:"display_name"`
	Avatar        string  `json:"avatar,omitempty"`
	Score         int     `json:"score"`
	CorrectCount  int     `json:"correct_count"`
	WrongCount    int     `json:"wrong_count"`
	Accuracy      float64 `json:"accuracy"`
}

type GameEndedPayload struct {
	SessionID     string             `json:"session_id"`
	Leaderboard   []LeaderboardEntry `json:"leaderboard"`
	ClassAccuracy float64            `json:"class_accuracy"`
	EndedAt       string             `json:"ended_at"`
}

type KickedPayload struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
}

type SessionDismissedPayload struct {
	SessionID string `json:"session_id"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
