package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/classroom-quiz/internal/db/queries"
	"github.com/gokatarajesh/classroom-quiz/internal/session"
)

type questionStore interface {
	ListQuestionsByClassCode(ctx context.Context, classCode string) ([]queries.Question, error)
	GetQuizByID(ctx context.Context, quizID pgtype.UUID) (queries.Quiz, error)
	NextQuestionPosition(ctx context.Context, quizID pgtype.UUID) (int32, error)
	InsertQuestion(ctx context.Context, arg queries.InsertQuestionParams) (queries.Question, error)
}

// QuestionRepository reads and appends quiz questions.
type QuestionRepository struct {
	store questionStore
}

func NewQuestionRepository(store questionStore) *QuestionRepository {
	return &QuestionRepository{store: store}
}

// ListBySession returns the ordered questions of the quiz behind a class code.
// Rows with an unknown question type are skipped.
func (r *QuestionRepository) ListBySession(ctx context.Context, sessionID string) ([]session.Question, error) {
	rows, err := r.store.ListQuestionsByClassCode(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]session.Question, 0, len(rows))
	for _, row := range rows {
		qType, ok := session.ParseQuestionType(row.QuestionType)
		if !ok {
			continue
		}
		out = append(out, session.Question{
			ID:          fromPGUUID(row.QuestionID),
			Prompt:      row.Prompt,
			Type:        qType,
			Distractors: row.Distractors,
			Answer:      row.Answer,
			Points:      int(row.Points),
			TimeLimit:   int(row.TimeLimitSeconds),
		})
	}
	return out, nil
}

// QuizOwner returns the professor of a quiz by id.
func (r *QuestionRepository) QuizOwner(ctx context.Context, quizID uuid.UUID) (uuid.UUID, string, error) {
	quiz, err := r.store.GetQuizByID(ctx, pgUUID(quizID))
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, "", session.ErrSessionNotFound
	}
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("get quiz: %w", err)
	}
	return fromPGUUID(quiz.ProfessorID), quiz.ClassCode, nil
}

// Append stores questions after the quiz's existing ones and returns them with ids.
func (r *QuestionRepository) Append(ctx context.Context, quizID uuid.UUID, questions []session.Question) ([]session.Question, error) {
	position, err := r.store.NextQuestionPosition(ctx, pgUUID(quizID))
	if err != nil {
		return nil, fmt.Errorf("next position: %w", err)
	}

	stored := make([]session.Question, 0, len(questions))
	for _, q := range questions {
		distractors := q.Distractors
		if distractors == nil {
			distractors = []string{}
		}
		row, err := r.store.InsertQuestion(ctx, queries.InsertQuestionParams{
			QuizID:           pgUUID(quizID),
			Position:         position,
			Prompt:           q.Prompt,
			QuestionType:     string(q.Type),
			Distractors:      distractors,
			Answer:           q.Answer,
			Points:           int32(q.Points),
			TimeLimitSeconds: int32(q.TimeLimit),
		})
		if err != nil {
			return stored, fmt.Errorf("insert question %d: %w", position, err)
		}
		position++
		q.ID = fromPGUUID(row.QuestionID)
		stored = append(stored, q)
	}
	return stored, nil
}
