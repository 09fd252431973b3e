package queries

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertAnswer = `
INSERT INTO answers (session_id, question_id, participant_id, value, correct, points, timed_out, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (session_id, question_id, participant_id) DO NOTHING
`

type InsertAnswerParams struct {
	SessionID     string             `json:"session_id"`
	QuestionID    pgtype.UUID        `json:"question_id"`
	ParticipantID pgtype.UUID        `json:"participant_id"`
	Value         string             `json:"value"`
	Correct       bool               `json:"correct"`
	Points        int32              `json:"points"`
	TimedOut      bool               `json:"timed_out"`
	SubmittedAt   pgtype.Timestamptz `json:"submitted_at"`
}

// InsertAnswer returns 0 rows affected when the answer already exists.
func (q *Queries) InsertAnswer(ctx context.Context, arg InsertAnswerParams) (int64, error) {
	result, err := q.db.Exec(ctx, insertAnswer,
		arg.SessionID,
		arg.QuestionID,
		arg.ParticipantID,
		arg.Value,
		arg.Correct,
		arg.Points,
		arg.TimedOut,
		arg.SubmittedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
