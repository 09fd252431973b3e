package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/classroom-quiz/internal/leaderboard"
	ws "github.com/gokatarajesh/classroom-quiz/pkg/http/ws"
)

// Status is the coarse session lifecycle.
type Status string

const (
	StatusLobby      Status = "lobby"
	StatusInProgress Status = "in_progress"
	StatusEnded      Status = "ended"
)

// Phase is the fine-grained state machine position.
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseInProgress Phase = "in_progress"
	PhaseReveal     Phase = "reveal"
	PhaseEnded      Phase = "ended"
)

// Status maps a phase onto the session status.
func (p Phase) Status() Status {
	switch p {
	case PhaseLobby:
		return StatusLobby
	case PhaseEnded:
		return StatusEnded
	default:
		return StatusInProgress
	}
}

// QuestionType enumerates supported question kinds.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionBoolean        QuestionType = "boolean"
	QuestionShortAnswer    QuestionType = "short_answer"
)

// ParseQuestionType accepts canonical names and the short forms used by quiz authors.
func ParseQuestionType(raw string) (QuestionType, bool) {
	switch raw {
	case "multiple_choice", "mcq":
		return QuestionMultipleChoice, true
	case "boolean", "true_false":
		return QuestionBoolean, true
	case "short_answer", "short":
		return QuestionShortAnswer, true
	default:
		return "", false
	}
}

// Question is immutable once a session starts.
type Question struct {
	ID          uuid.UUID    `json:"id"`
	Prompt      string       `json:"prompt"`
	Type        QuestionType `json:"type"`
	Distractors []string     `json:"distractors"`
	Answer      string       `json:"answer"`
	Points      int          `json:"points"`
	TimeLimit   int          `json:"time_limit"`
}

// Profile is what the identity provider tells us about a participant.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar,omitempty"`
}

// Participant is the live per-student state inside a session.
type Participant struct {
	Profile
	Score        int          `json:"score"`
	CorrectCount int          `json:"correct_count"`
	WrongCount   int          `json:"wrong_count"`
	JoinSeq      int          `json:"join_seq"`
	JoinedAt     time.Time    `json:"joined_at"`
	Review       []ReviewItem `json:"review"`
}

// Accuracy is the derived percentage of correct answers.
func (p Participant) Accuracy() float64 {
	return leaderboard.Accuracy(p.CorrectCount, p.WrongCount)
}

func (p Participant) rankInput() leaderboard.Participant {
	return leaderboard.Participant{
		ID:           p.ID,
		DisplayName:  p.DisplayName,
		Avatar:       p.Avatar,
		Score:        p.Score,
		CorrectCount: p.CorrectCount,
		WrongCount:   p.WrongCount,
		JoinSeq:      p.JoinSeq,
	}
}

// AnswerRecord is the single stored answer for a (question, participant) pair.
type AnswerRecord struct {
	QuestionID    uuid.UUID `json:"question_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	Value         string    `json:"value"`
	Correct       bool      `json:"correct"`
	Points        int       `json:"points"`
	SubmittedAt   time.Time `json:"submitted_at"`
	TimedOut      bool      `json:"timed_out"`
}

// ReviewItem is one line of a participant's answered-question review.
type ReviewItem struct {
	QuestionID    uuid.UUID `json:"question_id"`
	Prompt        string    `json:"prompt"`
	UserAnswer    string    `json:"user_answer"`
	CorrectAnswer string    `json:"correct_answer"`
	Correct       bool      `json:"correct"`
}

// SubmitResult is returned to the submitting participant.
type SubmitResult struct {
	Accepted          bool
	Correct           bool
	PointsAwarded     int
	Score             int
	LeaderboardSynced bool
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	SessionID        string                 `json:"session_id"`
	ProfessorID      uuid.UUID              `json:"professor_id"`
	Status           Status                 `json:"status"`
	Phase            Phase                  `json:"phase"`
	QuestionIndex    int                    `json:"question_index"`
	QuestionCount    int                    `json:"question_count"`
	RemainingSeconds int                    `json:"remaining_seconds"`
	Standings        []leaderboard.Standing `json:"standings"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// ResumeState answers "where am I" for a reconnecting participant without joining them.
type ResumeState struct {
	SessionID        string                `json:"session_id"`
	Phase            Phase                 `json:"phase"`
	QuestionIndex    int                   `json:"question_index"`
	QuestionCount    int                   `json:"question_count"`
	RemainingSeconds int                   `json:"remaining_seconds"`
	Answered         bool                  `json:"answered"`
	Joined           bool                  `json:"joined"`
	Standing         *leaderboard.Standing `json:"standing,omitempty"`
	Question         *ws.QuestionPayload   `json:"question,omitempty"`
}

// Summary is the read-only end-of-game report for one participant.
type Summary struct {
	SessionID     string       `json:"session_id"`
	ParticipantID uuid.UUID    `json:"participant_id"`
	DisplayName   string       `json:"display_name"`
	Score         int          `json:"score"`
	CorrectCount  int          `json:"correct_count"`
	WrongCount    int          `json:"wrong_count"`
	Accuracy      float64      `json:"accuracy"`
	Rank          int          `json:"rank"`
	Review        []ReviewItem `json:"review"`
}
