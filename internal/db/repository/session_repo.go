package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/classroom-quiz/internal/db/queries"
	"github.com/gokatarajesh/classroom-quiz/internal/leaderboard"
	"github.com/gokatarajesh/classroom-quiz/internal/session"
)

type sessionStore interface {
	GetQuizByClassCode(ctx context.Context, classCode string) (queries.Quiz, error)
	UpdateQuizStatus(ctx context.Context, arg queries.UpdateQuizStatusParams) (int64, error)
	OpenQuizLobby(ctx context.Context, classCode string) (int64, error)
	EndQuiz(ctx context.Context, classCode string) (int64, error)
	JoinSessionParticipant(ctx context.Context, arg queries.JoinSessionParticipantParams) (int64, error)
	DeactivateSessionParticipant(ctx context.Context, arg queries.DeactivateSessionParticipantParams) (int64, error)
	UpsertParticipantScore(ctx context.Context, arg queries.UpsertParticipantScoreParams) error
	ListActiveParticipants(ctx context.Context, sessionID string) ([]queries.SessionParticipant, error)
	InsertAnswer(ctx context.Context, arg queries.InsertAnswerParams) (int64, error)
}

// SessionRepository persists live session activity. It is the session backend.
type SessionRepository struct {
	store sessionStore
}

// NewSessionRepository wraps queries for session persistence.
func NewSessionRepository(store sessionStore) *SessionRepository {
	return &SessionRepository{store: store}
}

var _ session.Backend = (*SessionRepository)(nil)

// QuizOwner returns the professor who owns the quiz behind a class code.
func (r *SessionRepository) QuizOwner(ctx context.Context, sessionID string) (uuid.UUID, error) {
	quiz, err := r.store.GetQuizByClassCode(ctx, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, session.ErrSessionNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("get quiz: %w", err)
	}
	return fromPGUUID(quiz.ProfessorID), nil
}

// JoinRoom inserts a zero-score participant row, or reactivates a returning one.
func (r *SessionRepository) JoinRoom(ctx context.Context, sessionID string, participantID uuid.UUID, profile session.Profile, displayName string) (bool, error) {
	if displayName == "" {
		displayName = profile.DisplayName
	}
	n, err := r.store.JoinSessionParticipant(ctx, queries.JoinSessionParticipantParams{
		SessionID:     sessionID,
		ParticipantID: pgUUID(participantID),
		DisplayName:   displayName,
		AvatarUrl:     pgText(profile.Avatar),
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LeaveRoom marks the participant inactive. Their score row is kept.
func (r *SessionRepository) LeaveRoom(ctx context.Context, sessionID string, participantID uuid.UUID) (bool, error) {
	n, err := r.store.DeactivateSessionParticipant(ctx, queries.DeactivateSessionParticipantParams{
		SessionID:     sessionID,
		ParticipantID: pgUUID(participantID),
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SubmitAnswer stores an answer. It reports false when one already exists.
func (r *SessionRepository) SubmitAnswer(ctx context.Context, sessionID string, rec session.AnswerRecord) (bool, error) {
	n, err := r.store.InsertAnswer(ctx, queries.InsertAnswerParams{
		SessionID:     sessionID,
		QuestionID:    pgUUID(rec.QuestionID),
		ParticipantID: pgUUID(rec.ParticipantID),
		Value:         rec.Value,
		Correct:       rec.Correct,
		Points:        int32(rec.Points),
		TimedOut:      rec.TimedOut,
		SubmittedAt:   pgTime(rec.SubmittedAt),
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateLeaderboard upserts the participant's totals and returns the
// recomputed standings of active participants.
func (r *SessionRepository) UpdateLeaderboard(ctx context.Context, sessionID string, participantID uuid.UUID, profile session.Profile, score, correctCount, wrongCount int) ([]leaderboard.Standing, error) {
	err := r.store.UpsertParticipantScore(ctx, queries.UpsertParticipantScoreParams{
		SessionID:     sessionID,
		ParticipantID: pgUUID(participantID),
		DisplayName:   profile.DisplayName,
		AvatarUrl:     pgText(profile.Avatar),
		Score:         int32(score),
		CorrectCount:  int32(correctCount),
		WrongCount:    int32(wrongCount),
	})
	if err != nil {
		return nil, err
	}
	return r.Standings(ctx, sessionID)
}

// Standings reads the persisted leaderboard of active participants.
func (r *SessionRepository) Standings(ctx context.Context, sessionID string) ([]leaderboard.Standing, error) {
	rows, err := r.store.ListActiveParticipants(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return standingsFromRows(rows), nil
}

// SendEndGame archives the quiz and stamps its end time.
func (r *SessionRepository) SendEndGame(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.store.EndQuiz(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OpenLobby puts the quiz in the lobby for a new run, clearing answers,
// participants and snapshots left by an earlier run. Archived quizzes stay
// closed.
func (r *SessionRepository) OpenLobby(ctx context.Context, sessionID string) error {
	n, err := r.store.OpenQuizLobby(ctx, sessionID)
	if err != nil {
		return err
	}
	if n == 0 {
		return session.ErrSessionEnded
	}
	return nil
}

// SetQuizStatus moves the quiz through in lobby, active and archived.
func (r *SessionRepository) SetQuizStatus(ctx context.Context, sessionID, status string) error {
	n, err := r.store.UpdateQuizStatus(ctx, queries.UpdateQuizStatusParams{
		ClassCode: sessionID,
		Status:    status,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}
