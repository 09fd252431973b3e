package queries

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listQuestionsByClassCode = `
SELECT q.question_id, q.quiz_id, q.position, q.prompt, q.question_type, q.distractors, q.answer, q.points, q.time_limit_seconds, q.created_at
FROM questions q
JOIN quizzes z ON z.quiz_id = q.quiz_id
WHERE z.class_code = $1
ORDER BY q.position ASC, q.created_at ASC
`

func (q *Queries) ListQuestionsByClassCode(ctx context.Context, classCode string) ([]Question, error) {
	rows, err := q.db.Query(ctx, listQuestionsByClassCode, classCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Question
	for rows.Next() {
		var i Question
		if err := rows.Scan(
			&i.QuestionID,
			&i.QuizID,
			&i.Position,
			&i.Prompt,
			&i.QuestionType,
			&i.Distractors,
			&i.Answer,
			&i.Points,
			&i.TimeLimitSeconds,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const nextQuestionPosition = `
SELECT COALESCE(MAX(position) + 1, 0)::INT
FROM questions
WHERE quiz_id = $1
`

func (q *Queries) NextQuestionPosition(ctx context.Context, quizID pgtype.UUID) (int32, error) {
	row := q.db.QueryRow(ctx, nextQuestionPosition, quizID)
	var position int32
	err := row.Scan(&position)
	return position, err
}

const insertQuestion = `
INSERT INTO questions (quiz_id, position, prompt, question_type, distractors, answer, points, time_limit_seconds)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING question_id, quiz_id, position, prompt, question_type, distractors, answer, points, time_limit_seconds, created_at
`

type InsertQuestionParams struct {
	QuizID           pgtype.UUID `json:"quiz_id"`
	Position         int32       `json:"position"`
	Prompt           string      `json:"prompt"`
	QuestionType     string      `json:"question_type"`
	Distractors      []string    `json:"distractors"`
	Answer           string      `json:"answer"`
	Points           int32       `json:"points"`
	TimeLimitSeconds int32       `json:"time_limit_seconds"`
}

func (q *Queries) InsertQuestion(ctx context.Context, arg InsertQuestionParams) (Question, error) {
	row := q.db.QueryRow(ctx, insertQuestion,
		arg.QuizID,
		arg.Position,
		arg.Prompt,
		arg.QuestionType,
		arg.Distractors,
		arg.Answer,
		arg.Points,
		arg.TimeLimitSeconds,
	)
	var i Question
	err := row.Scan(
		&i.QuestionID,
		&i.QuizID,
		&i.Position,
		&i.Prompt,
		&i.QuestionType,
		&i.Distractors,
		&i.Answer,
		&i.Points,
		&i.TimeLimitSeconds,
		&i.CreatedAt,
	)
	return i, err
}
