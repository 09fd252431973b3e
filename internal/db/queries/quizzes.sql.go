package queries

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getQuizByClassCode = `
SELECT quiz_id, class_code, professor_id, title, status, scheduled_at, started_at, ended_at, created_at, updated_at
FROM quizzes
WHERE class_code = $1
`

func (q *Queries) GetQuizByClassCode(ctx context.Context, classCode string) (Quiz, error) {
	row := q.db.QueryRow(ctx, getQuizByClassCode, classCode)
	var i Quiz
	err := row.Scan(
		&i.QuizID,
		&i.ClassCode,
		&i.ProfessorID,
		&i.Title,
		&i.Status,
		&i.ScheduledAt,
		&i.StartedAt,
		&i.EndedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getQuizByID = `
SELECT quiz_id, class_code, professor_id, title, status, scheduled_at, started_at, ended_at, created_at, updated_at
FROM quizzes
WHERE quiz_id = $1
`

func (q *Queries) GetQuizByID(ctx context.Context, quizID pgtype.UUID) (Quiz, error) {
	row := q.db.QueryRow(ctx, getQuizByID, quizID)
	var i Quiz
	err := row.Scan(
		&i.QuizID,
		&i.ClassCode,
		&i.ProfessorID,
		&i.Title,
		&i.Status,
		&i.ScheduledAt,
		&i.StartedAt,
		&i.EndedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateQuizStatus = `
UPDATE quizzes
SET status = $2,
    started_at = CASE WHEN $2 = 'active' AND started_at IS NULL THEN now() ELSE started_at END,
    updated_at = now()
WHERE class_code = $1
`

type UpdateQuizStatusParams struct {
	ClassCode string `json:"class_code"`
	Status    string `json:"status"`
}

// UpdateQuizStatus reports how many rows changed so callers can detect a missing quiz.
func (q *Queries) UpdateQuizStatus(ctx context.Context, arg UpdateQuizStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateQuizStatus, arg.ClassCode, arg.Status)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const endQuiz = `
UPDATE quizzes
SET status = 'archived',
    ended_at = COALESCE(ended_at, now()),
    updated_at = now()
WHERE class_code = $1
`

func (q *Queries) EndQuiz(ctx context.Context, classCode string) (int64, error) {
	result, err := q.db.Exec(ctx, endQuiz, classCode)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const openQuizLobby = `
WITH quiz AS (
    UPDATE quizzes
    SET status = 'in lobby', updated_at = now()
    WHERE class_code = $1 AND status <> 'archived'
    RETURNING class_code
), cleared_answers AS (
    DELETE FROM answers WHERE session_id IN (SELECT class_code FROM quiz)
), cleared_participants AS (
    DELETE FROM session_participants WHERE session_id IN (SELECT class_code FROM quiz)
), cleared_snapshots AS (
    DELETE FROM leaderboard_snapshots WHERE session_id IN (SELECT class_code FROM quiz)
)
SELECT count(*) FROM quiz
`

// OpenQuizLobby moves a non-archived quiz into the lobby and drops the rows
// of any earlier run under the same class code. It returns 0 when the quiz is
// archived or missing.
func (q *Queries) OpenQuizLobby(ctx context.Context, classCode string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, openQuizLobby, classCode).Scan(&n)
	return n, err
}
