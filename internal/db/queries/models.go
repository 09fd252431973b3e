package queries

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Quiz struct {
	QuizID      pgtype.UUID        `json:"quiz_id"`
	ClassCode   string             `json:"class_code"`
	ProfessorID pgtype.UUID        `json:"professor_id"`
	Title       string             `json:"title"`
	Status      string             `json:"status"`
	ScheduledAt pgtype.Timestamptz `json:"scheduled_at"`
	StartedAt   pgtype.Timestamptz `json:"started_at"`
	EndedAt     pgtype.Timestamptz `json:"ended_at"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type Question struct {
	QuestionID       pgtype.UUID        `json:"question_id"`
	QuizID           pgtype.UUID        `json:"quiz_id"`
	Position         int32              `json:"position"`
	Prompt           string             `json:"prompt"`
	QuestionType     string             `json:"question_type"`
	Distractors      []string           `json:"distractors"`
	Answer           string             `json:"answer"`
	Points           int32              `json:"points"`
	TimeLimitSeconds int32              `json:"time_limit_seconds"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
}

type SessionParticipant struct {
	SessionID     string             `json:"session_id"`
	ParticipantID pgtype.UUID        `json:"participant_id"`
	DisplayName   string             `json:"display_name"`
	AvatarUrl     pgtype.Text        `json:"avatar_url"`
	Score         int32              `json:"score"`
	CorrectCount  int32              `json:"correct_count"`
	WrongCount    int32              `json:"wrong_count"`
	Active        bool               `json:"active"`
	JoinedAt      pgtype.Timestamptz `json:"joined_at"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

type Answer struct {
	SessionID     string             `json:"session_id"`
	QuestionID    pgtype.UUID        `json:"question_id"`
	ParticipantID pgtype.UUID        `json:"participant_id"`
	Value         string             `json:"value"`
	Correct       bool               `json:"correct"`
	Points        int32              `json:"points"`
	TimedOut      bool               `json:"timed_out"`
	SubmittedAt   pgtype.Timestamptz `json:"submitted_at"`
}

type LeaderboardSnapshot struct {
	SnapshotID int64              `json:"snapshot_id"`
	SessionID  string             `json:"session_id"`
	Standings  []byte             `json:"standings"`
	CapturedAt pgtype.Timestamptz `json:"captured_at"`
}
