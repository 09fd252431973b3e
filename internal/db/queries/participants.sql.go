package queries

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const joinSessionParticipant = `
INSERT INTO session_participants (session_id, participant_id, display_name, avatar_url)
VALUES ($1, $2, $3, $4)
ON CONFLICT (session_id, participant_id) DO UPDATE
SET display_name = EXCLUDED.display_name,
    avatar_url = COALESCE(EXCLUDED.avatar_url, session_participants.avatar_url),
    active = TRUE,
    updated_at = now()
`

type JoinSessionParticipantParams struct {
	SessionID     string      `json:"session_id"`
	ParticipantID pgtype.UUID `json:"participant_id"`
	DisplayName   string      `json:"display_name"`
	AvatarUrl     pgtype.Text `json:"avatar_url"`
}

// JoinSessionParticipant inserts a zero-score row, or reactivates an existing one
// keeping its score.
func (q *Queries) JoinSessionParticipant(ctx context.Context, arg JoinSessionParticipantParams) (int64, error) {
	result, err := q.db.Exec(ctx, joinSessionParticipant,
		arg.SessionID,
		arg.ParticipantID,
		arg.DisplayName,
		arg.AvatarUrl,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deactivateSessionParticipant = `
UPDATE session_participants
SET active = FALSE, updated_at = now()
WHERE session_id = $1 AND participant_id = $2 AND active
`

type DeactivateSessionParticipantParams struct {
	SessionID     string      `json:"session_id"`
	ParticipantID pgtype.UUID `json:"participant_id"`
}

func (q *Queries) DeactivateSessionParticipant(ctx context.Context, arg DeactivateSessionParticipantParams) (int64, error) {
	result, err := q.db.Exec(ctx, deactivateSessionParticipant, arg.SessionID, arg.ParticipantID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const upsertParticipantScore = `
INSERT INTO session_participants (session_id, participant_id, display_name, avatar_url, score, correct_count, wrong_count)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (session_id, participant_id) DO UPDATE
SET score = EXCLUDED.score,
    correct_count = EXCLUDED.correct_count,
    wrong_count = EXCLUDED.wrong_count,
    updated_at = now()
`

type UpsertParticipantScoreParams struct {
	SessionID     string      `json:"session_id"`
	ParticipantID pgtype.UUID `json:"participant_id"`
	DisplayName   string      `json:"display_name"`
	AvatarUrl     pgtype.Text `json:"avatar_url"`
	Score         int32       `json:"score"`
	CorrectCount  int32       `json:"correct_count"`
	WrongCount    int32       `json:"wrong_count"`
}

func (q *Queries) UpsertParticipantScore(ctx context.Context, arg UpsertParticipantScoreParams) error {
	_, err := q.db.Exec(ctx, upsertParticipantScore,
		arg.SessionID,
		arg.ParticipantID,
		arg.DisplayName,
		arg.AvatarUrl,
		arg.Score,
		arg.CorrectCount,
		arg.WrongCount,
	)
	return err
}

const listActiveParticipants = `
SELECT session_id, participant_id, display_name, avatar_url, score, correct_count, wrong_count, active, joined_at, updated_at
FROM session_participants
WHERE session_id = $1 AND active
ORDER BY score DESC, joined_at ASC, participant_id ASC
`

func (q *Queries) ListActiveParticipants(ctx context.Context, sessionID string) ([]SessionParticipant, error) {
	rows, err := q.db.Query(ctx, listActiveParticipants, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SessionParticipant
	for rows.Next() {
		var i SessionParticipant
		if err := rows.Scan(
			&i.SessionID,
			&i.ParticipantID,
			&i.DisplayName,
			&i.AvatarUrl,
			&i.Score,
			&i.CorrectCount,
			&i.WrongCount,
			&i.Active,
			&i.JoinedAt,
			&i.UpdatedAt,
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
